// Package executor drives frames: it owns the queue, the pipelines and the resources created on one
// device, and every frame encodes a fixed sequence of compute and render passes into a single
// command buffer.
package executor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-frames/common"
	"github.com/Carmen-Shannon/oxy-frames/engine/renderer"
	"github.com/Carmen-Shannon/oxy-frames/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-frames/engine/renderer/shader"
)

// State is the lifecycle state of an executor.
type State int

const (
	// StateUninitialized executors accept only Initialize.
	StateUninitialized State = iota
	// StateReady executors run frames.
	StateReady
	// StateFailed is terminal.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "uninitialized"
	}
}

var (
	// ErrNotInitialized is returned by operations that need a successful Initialize first.
	ErrNotInitialized = errors.New("executor not initialized")

	// ErrAlreadyInitialized is returned by a second Initialize.
	ErrAlreadyInitialized = errors.New("executor already initialized")

	// ErrExecutorFailed is returned by every operation after a failed Initialize.
	ErrExecutorFailed = errors.New("executor failed to initialize")
)

// FrameStats counts frames since Initialize.
type FrameStats struct {
	// Submitted is the number of committed command buffers.
	Submitted uint64

	// Skipped is the number of frames dropped because no drawable was available.
	Skipped uint64

	// LastEncode is the host time spent encoding the latest submitted frame.
	LastEncode time.Duration
}

// executor is the implementation of the Executor interface.
type executor struct {
	mu      sync.Mutex
	label   string
	present bool
	wait    bool

	state     State
	device    renderer.Device
	queue     renderer.Queue
	library   shader.Library
	compute   map[string]renderer.ComputePipeline
	render    map[string]renderer.RenderPipeline
	resources []renderer.Resource

	passes        []Pass
	needsDrawable bool
	size          FrameInfo
	stats         FrameStats
}

// Executor records and submits frames on one device.
type Executor interface {
	FrameSink

	// Initialize binds the executor to a device and builds every pipeline. On failure nothing is
	// retained and the executor moves to the terminal failed state.
	//
	// Parameters:
	//   - device: the device every pipeline and resource is created on
	//   - library: the shader library the pipeline entry points are resolved in
	//   - specs: the pipeline configurations, keyed by PipelineKey
	//
	// Returns:
	//   - error: a *renderer.SetupError, or ErrAlreadyInitialized / ErrExecutorFailed
	Initialize(device renderer.Device, library shader.Library, specs ...pipeline.Descriptor) error

	// State returns the lifecycle state.
	State() State

	// Device returns the device bound by Initialize, or nil.
	Device() renderer.Device

	// ComputePipeline returns the compute pipeline built for key.
	//
	// Parameters:
	//   - key: the pipeline key
	//
	// Returns:
	//   - renderer.ComputePipeline: the pipeline
	//   - bool: false when no compute pipeline has that key
	ComputePipeline(key string) (renderer.ComputePipeline, bool)

	// RenderPipeline returns the render pipeline built for key.
	//
	// Parameters:
	//   - key: the pipeline key
	//
	// Returns:
	//   - renderer.RenderPipeline: the pipeline
	//   - bool: false when no render pipeline has that key
	RenderPipeline(key string) (renderer.RenderPipeline, bool)

	// AllocateResource creates a buffer or texture on the executor's device. The executor releases
	// it on Release.
	//
	// Parameters:
	//   - req: what to allocate
	//
	// Returns:
	//   - renderer.Resource: a renderer.Buffer or renderer.Texture
	//   - error: error if the device rejected the request
	AllocateResource(req ResourceRequest) (renderer.Resource, error)

	// AllocateBuffer creates a zeroed buffer.
	//
	// Parameters:
	//   - label: the buffer label
	//   - length: the size in bytes
	//   - cpuVisible: true for host-visible memory
	//
	// Returns:
	//   - renderer.Buffer: the buffer
	//   - error: error if allocation failed
	AllocateBuffer(label string, length int, cpuVisible bool) (renderer.Buffer, error)

	// AllocateBufferWithData creates a buffer holding a copy of data.
	//
	// Parameters:
	//   - label: the buffer label
	//   - data: the initial contents, which also set the length
	//   - cpuVisible: true for host-visible memory
	//
	// Returns:
	//   - renderer.Buffer: the buffer
	//   - error: error if allocation failed
	AllocateBufferWithData(label string, data []byte, cpuVisible bool) (renderer.Buffer, error)

	// AllocateTexture creates a texture and uploads pixels when given.
	//
	// Parameters:
	//   - desc: the texture descriptor
	//   - pixels: tightly packed texels, or nil
	//
	// Returns:
	//   - renderer.Texture: the texture
	//   - error: error if allocation or upload failed
	AllocateTexture(desc renderer.TextureDescriptor, pixels []byte) (renderer.Texture, error)

	// SetPasses replaces the pass sequence encoded by every frame. Pipeline keys must exist with
	// the matching kind, bound objects must belong to the executor's device and only the last pass
	// may render into the drawable.
	//
	// Parameters:
	//   - passes: the passes in encoding order
	//
	// Returns:
	//   - error: error if validation failed; the previous sequence is kept
	SetPasses(passes ...Pass) error

	// RunFrame encodes and commits one frame. If a pass renders into the drawable and the surface
	// has none, the frame is skipped without error.
	//
	// Parameters:
	//   - ctx: bounds the wait for completion
	//   - surface: the presentable surface, or nil for offscreen frames
	//
	// Returns:
	//   - error: a *renderer.SubmissionError or a wrapped context error
	RunFrame(ctx context.Context, surface renderer.Surface) error

	// Stats returns the frame counters.
	Stats() FrameStats

	// Release waits for every committed frame to finish, then frees every resource allocated
	// through the executor.
	Release()
}

var _ Executor = &executor{}

// NewExecutor creates an uninitialized executor.
//
// Parameters:
//   - options: functional options
//
// Returns:
//   - Executor: the executor
func NewExecutor(options ...ExecutorBuilderOption) Executor {
	e := &executor{
		label:   "executor",
		present: true,
	}
	for _, opt := range options {
		opt(e)
	}
	return e
}

// ready reports the error matching the current state for operations that need StateReady.
func (e *executor) ready() error {
	switch e.state {
	case StateUninitialized:
		return ErrNotInitialized
	case StateFailed:
		return ErrExecutorFailed
	}
	return nil
}

func (e *executor) Initialize(device renderer.Device, library shader.Library, specs ...pipeline.Descriptor) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.state {
	case StateReady:
		return ErrAlreadyInitialized
	case StateFailed:
		return ErrExecutorFailed
	}

	fail := func(err error) error {
		e.state = StateFailed
		common.Logger().Error("executor setup failed", "executor", e.label, "error", err)
		return err
	}

	if device == nil {
		return fail(&renderer.SetupError{Op: "device", Err: renderer.ErrNoDevice})
	}
	queue, err := device.NewQueue()
	if err != nil {
		return fail(&renderer.SetupError{Op: "queue", Err: err})
	}

	compute := make(map[string]renderer.ComputePipeline)
	render := make(map[string]renderer.RenderPipeline)
	for _, spec := range specs {
		key := spec.PipelineKey()
		if _, ok := compute[key]; ok {
			return fail(&renderer.SetupError{Op: "pipeline", Err: fmt.Errorf("duplicate pipeline key %q", key)})
		}
		if _, ok := render[key]; ok {
			return fail(&renderer.SetupError{Op: "pipeline", Err: fmt.Errorf("duplicate pipeline key %q", key)})
		}

		switch spec.Type() {
		case pipeline.PipelineTypeCompute:
			desc, err := spec.ComputeDescriptor(library)
			if err != nil {
				return fail(&renderer.SetupError{Op: "pipeline", Err: resolveError(key, err)})
			}
			p, err := device.NewComputePipeline(desc)
			if err != nil {
				return fail(&renderer.SetupError{Op: "pipeline", Err: buildError(key, err)})
			}
			compute[key] = p
		case pipeline.PipelineTypeRender:
			desc, err := spec.RenderDescriptor(library)
			if err != nil {
				return fail(&renderer.SetupError{Op: "pipeline", Err: resolveError(key, err)})
			}
			p, err := device.NewRenderPipeline(desc)
			if err != nil {
				return fail(&renderer.SetupError{Op: "pipeline", Err: buildError(key, err)})
			}
			render[key] = p
		default:
			return fail(&renderer.SetupError{Op: "pipeline", Err: fmt.Errorf("pipeline %q has unknown type %d", key, int(spec.Type()))})
		}
		common.Logger().Debug("pipeline ready", "executor", e.label, "key", key, "type", spec.Type())
	}

	e.device = device
	e.queue = queue
	e.library = library
	e.compute = compute
	e.render = render
	e.state = StateReady
	common.Logger().Info("executor initialized",
		"executor", e.label, "device", device.Name(), "backend", device.Backend(),
		"compute", len(compute), "render", len(render))
	return nil
}

// resolveError wraps an entry point lookup failure.
func resolveError(key string, err error) error {
	var nf *shader.EntryPointNotFound
	if errors.As(err, &nf) {
		return &renderer.PipelineBuildError{Pipeline: key, Err: err}
	}
	return &renderer.PipelineBuildError{Pipeline: key, Diagnostic: err.Error()}
}

// buildError keeps backend build errors and wraps anything else with its message as diagnostic.
func buildError(key string, err error) error {
	var be *renderer.PipelineBuildError
	if errors.As(err, &be) {
		return err
	}
	return &renderer.PipelineBuildError{Pipeline: key, Diagnostic: err.Error(), Err: err}
}

func (e *executor) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *executor) Device() renderer.Device {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.device
}

func (e *executor) ComputePipeline(key string) (renderer.ComputePipeline, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, ok := e.compute[key]
	return p, ok
}

func (e *executor) RenderPipeline(key string) (renderer.RenderPipeline, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, ok := e.render[key]
	return p, ok
}

func (e *executor) AllocateResource(req ResourceRequest) (renderer.Resource, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ready(); err != nil {
		return nil, err
	}
	r, err := e.allocate(req)
	if err != nil {
		return nil, err
	}
	e.resources = append(e.resources, r)
	return r, nil
}

func (e *executor) AllocateBuffer(label string, length int, cpuVisible bool) (renderer.Buffer, error) {
	r, err := e.AllocateResource(ResourceRequest{Kind: ResourceBuffer, Label: label, Length: length, CPUVisible: cpuVisible})
	if err != nil {
		return nil, err
	}
	return r.(renderer.Buffer), nil
}

func (e *executor) AllocateBufferWithData(label string, data []byte, cpuVisible bool) (renderer.Buffer, error) {
	r, err := e.AllocateResource(ResourceRequest{Kind: ResourceBuffer, Label: label, Data: data, CPUVisible: cpuVisible})
	if err != nil {
		return nil, err
	}
	return r.(renderer.Buffer), nil
}

func (e *executor) AllocateTexture(desc renderer.TextureDescriptor, pixels []byte) (renderer.Texture, error) {
	r, err := e.AllocateResource(ResourceRequest{Kind: ResourceTexture, Label: desc.Label, Texture: desc, Data: pixels})
	if err != nil {
		return nil, err
	}
	return r.(renderer.Texture), nil
}

func (e *executor) SetPasses(passes ...Pass) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ready(); err != nil {
		return err
	}

	needsDrawable := false
	for i, p := range passes {
		if p == nil {
			return fmt.Errorf("pass %d is nil", i)
		}
		key := p.PipelineKey()
		_, isCompute := e.compute[key]
		_, isRender := e.render[key]
		switch {
		case key == "" && p.Kind() == pipeline.PipelineTypeRender:
			// clear-only pass
		case !isCompute && !isRender:
			return fmt.Errorf("pass %d: unknown pipeline %q", i, key)
		case p.Kind() == pipeline.PipelineTypeCompute && !isCompute:
			return fmt.Errorf("pass %d: pipeline %q is a render pipeline, the pass is compute", i, key)
		case p.Kind() == pipeline.PipelineTypeRender && !isRender:
			return fmt.Errorf("pass %d: pipeline %q is a compute pipeline, the pass is render", i, key)
		}
		if err := p.validate(); err != nil {
			return fmt.Errorf("pass %d: %w", i, err)
		}
		for _, obj := range p.objects() {
			if err := renderer.CheckDevice(e.device, obj); err != nil {
				return fmt.Errorf("pass %d: %w", i, err)
			}
		}
		if p.TargetsDrawable() {
			if i != len(passes)-1 {
				return fmt.Errorf("pass %d: only the last pass may render into the drawable", i)
			}
			needsDrawable = true
		}
	}

	e.passes = append([]Pass(nil), passes...)
	e.needsDrawable = needsDrawable
	return nil
}

func (e *executor) OnResize(width, height uint32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.size = FrameInfo{Width: width, Height: height}
}

func (e *executor) RunFrame(ctx context.Context, surface renderer.Surface) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ready(); err != nil {
		return err
	}

	info := e.size
	if surface != nil {
		info.Width, info.Height = surface.Size()
	}
	var drawable renderer.Drawable
	if e.needsDrawable {
		if surface == nil {
			e.skip("no surface")
			return nil
		}
		d, ok := surface.NextDrawable()
		if !ok {
			e.skip("no drawable")
			return nil
		}
		drawable = d
	}
	return e.submit(ctx, drawable, info)
}

func (e *executor) OnFrame(ctx context.Context, drawable renderer.Drawable) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ready(); err != nil {
		return err
	}
	if e.needsDrawable && drawable == nil {
		e.skip("no drawable")
		return nil
	}

	info := e.size
	if info.Width == 0 && drawable != nil {
		t := drawable.Texture()
		info = FrameInfo{Width: t.Width(), Height: t.Height()}
	}
	if !e.needsDrawable {
		drawable = nil
	}
	return e.submit(ctx, drawable, info)
}

func (e *executor) skip(reason string) {
	e.stats.Skipped++
	common.Logger().Debug("frame skipped", "executor", e.label, "reason", reason, "skipped", e.stats.Skipped)
}

// frame is the encoding state of one RunFrame.
type frame struct {
	exec     *executor
	cb       renderer.CommandBuffer
	drawable renderer.Drawable
	info     FrameInfo
}

// submit encodes every pass into one command buffer, schedules presentation and commits.
func (e *executor) submit(ctx context.Context, drawable renderer.Drawable, info FrameInfo) error {
	start := time.Now()
	cb, err := e.queue.CommandBuffer()
	if err != nil {
		return &renderer.SubmissionError{Op: "acquire command buffer", Err: err}
	}

	f := &frame{exec: e, cb: cb, drawable: drawable, info: info}
	for i, p := range e.passes {
		if err := p.encode(f); err != nil {
			return &renderer.SubmissionError{Label: cb.Label(), Op: fmt.Sprintf("encode pass %d (%s)", i, p.PipelineKey()), Err: err}
		}
	}
	if drawable != nil && e.present {
		cb.Present(drawable)
	}
	e.stats.LastEncode = time.Since(start)

	if err := cb.Commit(); err != nil {
		return &renderer.SubmissionError{Label: cb.Label(), Op: "commit", Err: err}
	}
	e.stats.Submitted++
	common.Logger().Debug("frame committed",
		"executor", e.label, "command_buffer", cb.Label(), "passes", len(e.passes), "encode", e.stats.LastEncode)

	if !e.wait {
		return nil
	}
	if err := cb.WaitUntilCompleted(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return fmt.Errorf("wait for %q: %w", cb.Label(), err)
		}
		return &renderer.SubmissionError{Label: cb.Label(), Op: "execute", Err: err}
	}
	return nil
}

func (e *executor) Stats() FrameStats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}

func (e *executor) Release() {
	e.mu.Lock()
	defer e.mu.Unlock()
	// Frames committed without waiting may still bind these resources.
	if e.queue != nil {
		if err := e.queue.WaitIdle(context.Background()); err != nil {
			common.Logger().Warn("release before queue drained", "executor", e.label, "error", err)
		}
	}
	for _, r := range e.resources {
		r.Release()
	}
	e.resources = nil
	e.passes = nil
}
