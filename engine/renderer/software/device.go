// Package software implements renderer.Device on the CPU. Compute dispatches run their thread
// groups on a worker pool, render passes run a scanline-free edge-function rasteriser, and every
// committed command buffer is logged so tests can inspect exactly what was encoded.
package software

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-frames/common"
	"github.com/Carmen-Shannon/oxy-frames/engine/renderer"
)

const (
	defaultMaxThreadsPerGroup = 1024
	defaultMaxBufferLength    = 1 << 30
	defaultMaxTextureSize     = 8192

	// MaxVaryings is the largest number of float varyings a vertex function may output.
	MaxVaryings = 8
)

// ErrDeviceReleased is returned by every constructor of a released device.
var ErrDeviceReleased = errors.New("device released")

// device is the implementation of the Device interface.
type device struct {
	mu       sync.Mutex
	name     string
	workers  int
	limits   renderer.Limits
	released bool

	kernels   map[string]Kernel
	vertices  map[string]VertexFunction
	fragments map[string]FragmentFunction

	pool        worker.DynamicWorkerPool
	submitMu    sync.Mutex
	submissions []Submission
	nextTaskID  int
}

// Device is a renderer.Device executing on the CPU with extra inspection hooks.
type Device interface {
	renderer.Device

	// Submissions returns a copy of the log of every completed command buffer, in completion order.
	//
	// Returns:
	//   - []Submission: the submission log
	Submissions() []Submission

	// ResetSubmissions clears the submission log.
	ResetSubmissions()
}

var _ Device = &device{}

// NewDevice creates a software device. Shader entry points are implemented by Go functions
// registered with WithKernel, WithVertexFunction and WithFragmentFunction; pipelines whose entry
// points have no implementation fail to build.
//
// Parameters:
//   - options: functional options
//
// Returns:
//   - Device: the device
func NewDevice(options ...DeviceBuilderOption) Device {
	d := &device{
		name:    "Oxy Software Device",
		workers: runtime.GOMAXPROCS(0),
		limits: renderer.Limits{
			MaxThreadsPerThreadgroup: defaultMaxThreadsPerGroup,
			MaxThreadgroupSize:       renderer.Size{Width: defaultMaxThreadsPerGroup, Height: defaultMaxThreadsPerGroup, Depth: 64},
			MaxBufferLength:          defaultMaxBufferLength,
			MaxTextureDimension2D:    defaultMaxTextureSize,
		},
		kernels:   make(map[string]Kernel),
		vertices:  make(map[string]VertexFunction),
		fragments: make(map[string]FragmentFunction),
	}
	for _, opt := range options {
		opt(d)
	}
	d.pool = worker.NewDynamicWorkerPool(d.workers, 256, 1*time.Second)

	common.Logger().Info("software device created", "name", d.name, "workers", d.workers)
	return d
}

func (d *device) Name() string {
	return d.name
}

func (d *device) Backend() renderer.BackendType {
	return renderer.BackendTypeSoftware
}

func (d *device) Limits() renderer.Limits {
	return d.limits
}

func (d *device) checkAlive() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.released {
		return ErrDeviceReleased
	}
	return nil
}

func (d *device) NewQueue() (renderer.Queue, error) {
	if err := d.checkAlive(); err != nil {
		return nil, err
	}
	return &queue{dev: d}, nil
}

func (d *device) NewBuffer(desc renderer.BufferDescriptor) (renderer.Buffer, error) {
	if err := d.checkAlive(); err != nil {
		return nil, err
	}
	if desc.Length <= 0 {
		return nil, fmt.Errorf("buffer %q: length must be positive, got %d", desc.Label, desc.Length)
	}
	if uint64(desc.Length) > d.limits.MaxBufferLength {
		return nil, fmt.Errorf("buffer %q: length %d exceeds device limit %d", desc.Label, desc.Length, d.limits.MaxBufferLength)
	}
	if len(desc.Contents) > desc.Length {
		return nil, fmt.Errorf("buffer %q: %d initial bytes exceed length %d", desc.Label, len(desc.Contents), desc.Length)
	}
	b := &buffer{
		dev:   d,
		label: desc.Label,
		mode:  desc.StorageMode,
		data:  make([]byte, desc.Length),
	}
	copy(b.data, desc.Contents)
	return b, nil
}

func (d *device) NewTexture(desc renderer.TextureDescriptor) (renderer.Texture, error) {
	if err := d.checkAlive(); err != nil {
		return nil, err
	}
	if !desc.Format.Valid() {
		return nil, fmt.Errorf("texture %q: %w: %s", desc.Label, renderer.ErrUnsupportedFormat, desc.Format)
	}
	if desc.Width == 0 || desc.Height == 0 {
		return nil, fmt.Errorf("texture %q: invalid size %dx%d", desc.Label, desc.Width, desc.Height)
	}
	if desc.Width > d.limits.MaxTextureDimension2D || desc.Height > d.limits.MaxTextureDimension2D {
		return nil, fmt.Errorf("texture %q: size %dx%d exceeds device limit %d", desc.Label, desc.Width, desc.Height, d.limits.MaxTextureDimension2D)
	}
	samples := common.Coalesce(desc.SampleCount, 1)
	if !renderer.MSAASampleCount(samples).Valid() {
		return nil, fmt.Errorf("texture %q: %w: %d", desc.Label, renderer.ErrUnsupportedSampleCount, samples)
	}
	usage := common.Coalesce(desc.Usage, renderer.TextureUsageShaderRead)
	return newTexture(d, desc.Label, desc.Width, desc.Height, desc.Format, usage, samples), nil
}

func (d *device) NewComputePipeline(desc renderer.ComputePipelineDescriptor) (renderer.ComputePipeline, error) {
	if err := d.checkAlive(); err != nil {
		return nil, err
	}
	if desc.Function == nil {
		return nil, &renderer.PipelineBuildError{Pipeline: desc.Label, Diagnostic: "no compute function"}
	}
	kernel, ok := d.kernels[desc.Function.Name]
	if !ok {
		return nil, &renderer.PipelineBuildError{
			Pipeline:   desc.Label,
			Diagnostic: fmt.Sprintf("no software implementation registered for compute function %q", desc.Function.Name),
		}
	}

	maxThreads := d.limits.MaxThreadsPerThreadgroup
	if desc.MaxThreadsPerGroup > 0 && desc.MaxThreadsPerGroup < maxThreads {
		maxThreads = desc.MaxThreadsPerGroup
	}
	wg := desc.Function.WorkgroupSize
	if total := uint64(wg[0]) * uint64(wg[1]) * uint64(wg[2]); total > uint64(d.limits.MaxThreadsPerThreadgroup) {
		return nil, &renderer.PipelineBuildError{
			Pipeline:   desc.Label,
			Diagnostic: fmt.Sprintf("workgroup size %v exceeds %d threads", wg, d.limits.MaxThreadsPerThreadgroup),
		}
	}

	common.Logger().Debug("compute pipeline built", "label", desc.Label, "function", desc.Function.Name)
	return &computePipeline{
		dev:        d,
		label:      desc.Label,
		function:   desc.Function,
		kernel:     kernel,
		maxThreads: maxThreads,
	}, nil
}

func (d *device) NewRenderPipeline(desc renderer.RenderPipelineDescriptor) (renderer.RenderPipeline, error) {
	if err := d.checkAlive(); err != nil {
		return nil, err
	}
	if desc.Vertex == nil || desc.Fragment == nil {
		return nil, &renderer.PipelineBuildError{Pipeline: desc.Label, Diagnostic: "render pipelines need a vertex and a fragment function"}
	}
	if !desc.ColorFormat.Valid() {
		return nil, &renderer.PipelineBuildError{
			Pipeline:   desc.Label,
			Diagnostic: fmt.Sprintf("color format %s", desc.ColorFormat),
			Err:        renderer.ErrUnsupportedFormat,
		}
	}
	samples := common.Coalesce(desc.SampleCount, 1)
	if !renderer.MSAASampleCount(samples).Valid() {
		return nil, &renderer.PipelineBuildError{
			Pipeline:   desc.Label,
			Diagnostic: fmt.Sprintf("sample count %d", samples),
			Err:        renderer.ErrUnsupportedSampleCount,
		}
	}
	vs, ok := d.vertices[desc.Vertex.Name]
	if !ok {
		return nil, &renderer.PipelineBuildError{
			Pipeline:   desc.Label,
			Diagnostic: fmt.Sprintf("no software implementation registered for vertex function %q", desc.Vertex.Name),
		}
	}
	fs, ok := d.fragments[desc.Fragment.Name]
	if !ok {
		return nil, &renderer.PipelineBuildError{
			Pipeline:   desc.Label,
			Diagnostic: fmt.Sprintf("no software implementation registered for fragment function %q", desc.Fragment.Name),
		}
	}

	common.Logger().Debug("render pipeline built", "label", desc.Label, "vertex", desc.Vertex.Name, "fragment", desc.Fragment.Name)
	return &renderPipeline{
		dev:         d,
		label:       desc.Label,
		vertex:      desc.Vertex,
		fragment:    desc.Fragment,
		vertexFn:    vs,
		fragmentFn:  fs,
		format:      desc.ColorFormat,
		sampleCount: samples,
		blending:    desc.Blending,
	}, nil
}

func (d *device) Release() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.released {
		return
	}
	d.released = true
	d.pool.Stop()
}

func (d *device) Submissions() []Submission {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Submission(nil), d.submissions...)
}

func (d *device) ResetSubmissions() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.submissions = nil
}

func (d *device) logSubmission(s Submission) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.submissions = append(d.submissions, s)
}

// submit queues fn on the worker pool. Panics inside fn are recovered and reported through onPanic.
// The pool grows its worker list without locking, so submissions are serialised.
func (d *device) submit(wg *sync.WaitGroup, fn func(), onPanic func(any)) {
	d.mu.Lock()
	id := d.nextTaskID
	d.nextTaskID++
	d.mu.Unlock()

	wg.Add(1)
	d.submitMu.Lock()
	defer d.submitMu.Unlock()
	d.pool.SubmitTask(worker.Task{
		ID: id,
		Do: func() (any, error) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					onPanic(r)
				}
			}()
			fn()
			return nil, nil
		},
	})
}
