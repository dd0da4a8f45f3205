package executor

import (
	"context"

	"github.com/Carmen-Shannon/oxy-frames/engine/renderer"
)

// FrameSink receives the display cadence from whatever owns the window or view.
type FrameSink interface {
	// OnResize records the drawable size in pixels. It is used for frame parameters such as the
	// viewport size or the aspect ratio.
	//
	// Parameters:
	//   - width: the drawable width in pixels
	//   - height: the drawable height in pixels
	OnResize(width, height uint32)

	// OnFrame runs one frame against an already acquired drawable. A nil drawable skips frames
	// that need one.
	//
	// Parameters:
	//   - ctx: bounds any wait for completion
	//   - drawable: the drawable for this refresh, or nil
	//
	// Returns:
	//   - error: a fatal frame error
	OnFrame(ctx context.Context, drawable renderer.Drawable) error
}
