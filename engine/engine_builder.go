package engine

import (
	"log/slog"

	"github.com/Carmen-Shannon/oxy-frames/engine/executor"
	"github.com/Carmen-Shannon/oxy-frames/engine/renderer"
	"github.com/Carmen-Shannon/oxy-frames/engine/window"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithSink sets the frame sink the engine drives, usually an executor.
//
// Parameters:
//   - sink: receives one OnFrame call per tick and every resize
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithSink(sink executor.FrameSink) EngineBuilderOption {
	return func(e *engine) {
		e.sink = sink
	}
}

// WithSurface sets the surface drawables are acquired from. Without one the sink receives a nil
// drawable every frame.
//
// Parameters:
//   - surface: the presentation surface
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithSurface(surface renderer.Surface) EngineBuilderOption {
	return func(e *engine) {
		e.surface = surface
	}
}

// WithWindow attaches a window. The engine runs its message loop and forwards its resizes.
//
// Parameters:
//   - w: a created Window instance
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithWindow(w window.Window) EngineBuilderOption {
	return func(e *engine) {
		e.window = w
	}
}

// WithProfiling enables or disables performance profiling output.
//
// Parameters:
//   - enabled: if true, enables performance profiling
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled = enabled
	}
}

// WithRenderFrameLimit sets an optional render frame rate cap in frames per second.
// Pass 0 to uncap the render loop (default).
//
// Parameters:
//   - fps: maximum render frames per second (0 = uncapped)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderFrameLimit(fps float64) EngineBuilderOption {
	return func(e *engine) {
		e.renderFrameLimit = frameDuration(fps)
	}
}

// WithMaxFrames stops the engine after n frames. Zero runs until quit.
//
// Parameters:
//   - n: the frame budget
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithMaxFrames(n uint64) EngineBuilderOption {
	return func(e *engine) {
		e.maxFrames = n
	}
}

// WithLogger sets the logger for engine and profiler output. Nil keeps the package-wide logger.
//
// Parameters:
//   - logger: the destination logger
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithLogger(logger *slog.Logger) EngineBuilderOption {
	return func(e *engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}
