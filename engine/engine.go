package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/oxy-frames/common"
	"github.com/Carmen-Shannon/oxy-frames/engine/executor"
	"github.com/Carmen-Shannon/oxy-frames/engine/profiler"
	"github.com/Carmen-Shannon/oxy-frames/engine/renderer"
	"github.com/Carmen-Shannon/oxy-frames/engine/window"
)

// pausePoll is how often a paused render loop checks for resume.
const pausePoll = 10 * time.Millisecond

// ErrNoSink is returned by Run when the engine has nothing to drive.
var ErrNoSink = errors.New("engine has no frame sink")

// engine implements the Engine interface.
// Coordinates the render loop with the window message loop.
type engine struct {
	wg sync.WaitGroup

	quitChannel chan struct{}
	quitOnce    sync.Once // Ensures quitChannel is only closed once

	window  window.Window
	surface renderer.Surface
	sink    executor.FrameSink
	logger  *slog.Logger

	profiler         *profiler.Profiler
	profilingEnabled bool

	renderFrameLimit time.Duration // minimum frame duration; 0 = uncapped
	maxFrames        uint64        // 0 = until quit
	paused           atomic.Bool

	mu     sync.Mutex
	frames uint64
	err    error
}

// Engine drives a frame sink at the display cadence.
// With a window the render loop runs beside the window message loop; without one it renders
// headless frames back to back.
type Engine interface {
	// Window returns the underlying window.
	//
	// Returns:
	//   - window.Window: the window instance, or nil for headless engines
	Window() window.Window

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// SetRenderFrameLimit sets an optional render frame rate cap in frames per second.
	// Pass 0 to uncap the render loop (default).
	//
	// Parameters:
	//   - fps: maximum render frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// SetPaused stops or resumes handing frames to the sink. The space key toggles it on windowed
	// engines.
	//
	// Parameters:
	//   - paused: true to hold frame submission
	SetPaused(paused bool)

	// Paused reports whether frame submission is held.
	//
	// Returns:
	//   - bool: true while paused
	Paused() bool

	// Frames returns the number of frames handed to the sink so far.
	//
	// Returns:
	//   - uint64: the frame count
	Frames() uint64

	// Run renders until the window closes, Quit is called, ctx is done or the frame budget is
	// spent. It blocks; with a window it must be called from the thread that created the window.
	//
	// Parameters:
	//   - ctx: cancels the render loop
	//
	// Returns:
	//   - error: the first fatal frame error, or nil on a clean stop
	Run(ctx context.Context) error

	// Quit signals the render loop to stop.
	// Safe to call multiple times; subsequent calls are no-ops.
	Quit()
}

// NewEngine creates a new Engine instance with the provided options.
// Options are applied directly to the engine struct via the option-builder pattern. When both a
// window and a surface are set, window resizes reconfigure the surface and reach the sink.
//
// Parameters:
//   - options: functional options for engine configuration (sink, surface, window, profiling, etc.)
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(options ...EngineBuilderOption) Engine {
	e := &engine{
		quitChannel: make(chan struct{}),
		profiler:    profiler.NewProfiler(),
		logger:      common.Logger(),
	}

	for _, opt := range options {
		opt(e)
	}

	if stats, ok := e.sink.(interface{ Stats() executor.FrameStats }); ok {
		e.profiler.SetStatsSource(stats.Stats)
	}
	e.profiler.SetLogger(e.logger)

	if e.window != nil {
		e.window.SetResizeCallback(func(width, height int) {
			if width <= 0 || height <= 0 {
				return
			}
			e.resize(uint32(width), uint32(height))
		})
		e.window.SetKeyDownCallback(func(keyCode uint32) {
			if keyCode == common.KeySpace {
				e.SetPaused(!e.Paused())
			}
		})
	}

	return e
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) SetPaused(paused bool) {
	if e.paused.Swap(paused) != paused {
		e.logger.Info("frame submission", "paused", paused)
	}
}

func (e *engine) Paused() bool {
	return e.paused.Load()
}

func (e *engine) Frames() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.frames
}

func (e *engine) Run(ctx context.Context) error {
	if e.sink == nil {
		return ErrNoSink
	}
	if e.surface != nil {
		e.sink.OnResize(e.surface.Size())
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-ctx.Done():
			e.signalQuit()
		case <-e.quitChannel:
		}
	}()

	if e.window == nil {
		e.wg.Add(1)
		e.handleRender(ctx)
		return e.result()
	}

	e.wg.Add(1)
	go e.handleRender(ctx)
	e.window.SetUpdateCallback(func() {
		select {
		case <-e.quitChannel:
			e.window.Close()
		default:
		}
	})
	e.window.ProcessMessages()
	e.signalQuit()
	e.wg.Wait()
	return e.result()
}

// Quit signals all engine goroutines to stop and shuts down the engine.
// Safe to call multiple times; subsequent calls are no-ops due to sync.Once.
func (e *engine) Quit() {
	e.signalQuit()
}

// signalQuit closes the quit channel to signal all goroutines to exit.
// Uses sync.Once to ensure the channel is only closed once.
func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		close(e.quitChannel)
	})
}

func (e *engine) result() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.err
}

// fail records the first fatal error and stops the engine.
func (e *engine) fail(err error) {
	e.mu.Lock()
	if e.err == nil {
		e.err = err
	}
	e.mu.Unlock()
	e.logger.Error("frame failed, stopping", "error", err)
	e.signalQuit()
}

func (e *engine) resize(width, height uint32) {
	if e.surface != nil {
		if err := e.surface.Resize(width, height); err != nil {
			e.fail(fmt.Errorf("resize surface to %dx%d: %w", width, height, err))
			return
		}
	}
	if e.sink != nil {
		e.sink.OnResize(width, height)
	}
	e.logger.Debug("resized", "width", width, "height", height)
}

// handleRender runs the uncapped (or frame-limited) render loop.
// Each iteration acquires a drawable when a surface is set, hands it to the sink and ticks the profiler.
// Recovers from panics to avoid crashing the process and signals quit on recovery.
func (e *engine) handleRender(ctx context.Context) {
	defer e.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			e.fail(fmt.Errorf("render loop panic: %v", r))
		}
	}()

	for {
		select {
		case <-e.quitChannel:
			return
		default:
		}

		if e.paused.Load() {
			select {
			case <-time.After(pausePoll):
			case <-e.quitChannel:
				return
			}
			continue
		}

		start := time.Now()
		var drawable renderer.Drawable
		if e.surface != nil {
			// A missing drawable is passed on as nil; the sink decides whether to skip.
			drawable, _ = e.surface.NextDrawable()
		}
		if err := e.sink.OnFrame(ctx, drawable); err != nil {
			if ctx.Err() == nil {
				e.fail(err)
			}
			return
		}

		e.mu.Lock()
		e.frames++
		frames := e.frames
		e.mu.Unlock()

		if e.profilingEnabled {
			e.profiler.Tick()
		}
		if e.maxFrames > 0 && frames >= e.maxFrames {
			e.signalQuit()
			return
		}

		// Frame rate limiting
		if e.renderFrameLimit > 0 {
			if remaining := e.renderFrameLimit - time.Since(start); remaining > 0 {
				select {
				case <-time.After(remaining):
				case <-e.quitChannel:
					return
				}
			}
		}
	}
}

// EnableProfiler enables performance profiling output to the log.
func (e *engine) EnableProfiler() {
	e.profilingEnabled = true
}

// DisableProfiler disables performance profiling output.
func (e *engine) DisableProfiler() {
	e.profilingEnabled = false
}

// SetRenderFrameLimit sets an optional render frame rate cap.
// Pass 0 to uncap the render loop.
func (e *engine) SetRenderFrameLimit(fps float64) {
	e.renderFrameLimit = frameDuration(fps)
}

func frameDuration(fps float64) time.Duration {
	if fps <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / fps)
}
