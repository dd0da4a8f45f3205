// Package webgpu implements renderer.Device on top of wgpu-native through cogentcore/webgpu.
// Pipelines are compiled from the WGSL a shader.Library carries and bind groups are built from the
// library's reflected bindings, so the slot convention of the executor maps onto WebGPU groups.
package webgpu

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/Carmen-Shannon/oxy-frames/common"
	"github.com/Carmen-Shannon/oxy-frames/engine/renderer"
	"github.com/cogentcore/webgpu/wgpu"
)

// ErrDeviceReleased is returned by every constructor of a released device.
var ErrDeviceReleased = errors.New("device released")

// ErrNoSurface is returned by NewSurface when the device was created without a surface descriptor.
var ErrNoSurface = errors.New("device has no window surface")

// device is the implementation of the Device interface.
type device struct {
	mu       sync.Mutex
	label    string
	released bool

	surfaceDescriptor    *wgpu.SurfaceDescriptor
	forceFallbackAdapter bool

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	raw      *wgpu.Device
	queue    *wgpu.Queue
	surface  *wgpu.Surface
	sampler  *wgpu.Sampler

	limits renderer.Limits
}

// Device is a renderer.Device backed by a wgpu-native adapter.
type Device interface {
	renderer.Device

	// Raw returns the underlying wgpu device.
	//
	// Returns:
	//   - *wgpu.Device: the device
	Raw() *wgpu.Device

	// HasSurface reports whether the device was created for a window surface.
	//
	// Returns:
	//   - bool: true if NewSurface can configure a swapchain
	HasSurface() bool
}

var _ Device = &device{}

// NewDevice creates the instance, requests an adapter compatible with the window surface when one
// is given, then requests the device and its queue. The calling goroutine is locked to its OS thread
// since surface presentation must happen on the thread that created the window.
//
// Parameters:
//   - options: functional options
//
// Returns:
//   - Device: the device
//   - error: a *renderer.SetupError if no adapter or device is available
func NewDevice(options ...DeviceBuilderOption) (Device, error) {
	runtime.LockOSThread()
	d := &device{label: "Oxy WebGPU Device"}
	for _, opt := range options {
		opt(d)
	}

	d.instance = wgpu.CreateInstance(nil)
	if d.surfaceDescriptor != nil {
		d.surface = d.instance.CreateSurface(d.surfaceDescriptor)
	}

	a, err := d.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: d.forceFallbackAdapter,
		CompatibleSurface:    d.surface,
	})
	if err != nil {
		d.releaseInstance()
		return nil, &renderer.SetupError{Op: "request adapter", Err: errors.Join(renderer.ErrNoDevice, err)}
	}
	d.adapter = a

	limits := wgpu.DefaultLimits()
	raw, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: d.label,
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: limits,
		},
	})
	if err != nil {
		d.releaseInstance()
		return nil, &renderer.SetupError{Op: "request device", Err: errors.Join(renderer.ErrNoDevice, err)}
	}
	d.raw = raw
	d.queue = raw.GetQueue()

	// The requested limits are guaranteed, so they are what the executor sizes dispatches against.
	d.limits = renderer.Limits{
		MaxThreadsPerThreadgroup: uint32(limits.MaxComputeInvocationsPerWorkgroup),
		MaxThreadgroupSize: renderer.Size{
			Width:  uint32(limits.MaxComputeWorkgroupSizeX),
			Height: uint32(limits.MaxComputeWorkgroupSizeY),
			Depth:  uint32(limits.MaxComputeWorkgroupSizeZ),
		},
		MaxBufferLength:       uint64(limits.MaxBufferSize),
		MaxTextureDimension2D: uint32(limits.MaxTextureDimension2D),
	}

	d.sampler, err = raw.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         "default linear sampler",
		AddressModeU:  wgpu.AddressModeClampToEdge,
		AddressModeV:  wgpu.AddressModeClampToEdge,
		AddressModeW:  wgpu.AddressModeClampToEdge,
		MagFilter:     wgpu.FilterModeLinear,
		MinFilter:     wgpu.FilterModeLinear,
		MipmapFilter:  wgpu.MipmapFilterModeNearest,
		LodMaxClamp:   32,
		MaxAnisotropy: 1,
	})
	if err != nil {
		d.Release()
		return nil, &renderer.SetupError{Op: "create default sampler", Err: err}
	}

	common.Logger().Info("webgpu device created", "label", d.label, "fallback", d.forceFallbackAdapter, "surface", d.surface != nil)
	return d, nil
}

func (d *device) Name() string {
	return d.label
}

func (d *device) Backend() renderer.BackendType {
	return renderer.BackendTypeWGPU
}

func (d *device) Limits() renderer.Limits {
	return d.limits
}

func (d *device) Raw() *wgpu.Device {
	return d.raw
}

func (d *device) HasSurface() bool {
	return d.surface != nil
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
	return newBuffer(d, desc)
}

func (d *device) NewTexture(desc renderer.TextureDescriptor) (renderer.Texture, error) {
	if err := d.checkAlive(); err != nil {
		return nil, err
	}
	if _, err := textureFormat(desc.Format); err != nil {
		return nil, fmt.Errorf("texture %q: %w", desc.Label, err)
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
	desc.SampleCount = samples
	desc.Usage = common.Coalesce(desc.Usage, renderer.TextureUsageShaderRead)
	return newTexture(d, desc)
}

func (d *device) NewComputePipeline(desc renderer.ComputePipelineDescriptor) (renderer.ComputePipeline, error) {
	if err := d.checkAlive(); err != nil {
		return nil, err
	}
	return newComputePipeline(d, desc)
}

func (d *device) NewRenderPipeline(desc renderer.RenderPipelineDescriptor) (renderer.RenderPipeline, error) {
	if err := d.checkAlive(); err != nil {
		return nil, err
	}
	return newRenderPipeline(d, desc)
}

func (d *device) Release() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.released {
		return
	}
	d.released = true

	if d.sampler != nil {
		d.sampler.Release()
		d.sampler = nil
	}
	if d.queue != nil {
		d.queue.Release()
		d.queue = nil
	}
	if d.raw != nil {
		d.raw.Release()
		d.raw = nil
	}
	d.releaseInstance()
}

func (d *device) releaseInstance() {
	if d.adapter != nil {
		d.adapter.Release()
		d.adapter = nil
	}
	if d.surface != nil {
		d.surface.Release()
		d.surface = nil
	}
	if d.instance != nil {
		d.instance.Release()
		d.instance = nil
	}
}

// wait blocks until the device has finished every submitted command buffer.
func (d *device) wait() {
	d.raw.Poll(true, nil)
}
