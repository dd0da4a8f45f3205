package webgpu

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-frames/engine/renderer"
	"github.com/cogentcore/webgpu/wgpu"
)

// buffer is a WebGPU storage buffer. Shared buffers keep a host shadow: it is uploaded before every
// submission that binds the buffer and refreshed from the device once that submission completes.
type buffer struct {
	dev    *device
	label  string
	mode   renderer.StorageMode
	length int
	raw    *wgpu.Buffer

	mu     sync.Mutex
	shadow []byte
}

var _ renderer.Buffer = &buffer{}

func bufferUsage() wgpu.BufferUsage {
	return wgpu.BufferUsageStorage | wgpu.BufferUsageUniform | wgpu.BufferUsageVertex |
		wgpu.BufferUsageCopyDst | wgpu.BufferUsageCopySrc
}

func newBuffer(d *device, desc renderer.BufferDescriptor) (*buffer, error) {
	raw, err := d.raw.CreateBuffer(&wgpu.BufferDescriptor{
		Label: desc.Label,
		Size:  alignedSize(desc.Length),
		Usage: bufferUsage(),
	})
	if err != nil {
		return nil, fmt.Errorf("buffer %q: %w", desc.Label, err)
	}
	b := &buffer{
		dev:    d,
		label:  desc.Label,
		mode:   desc.StorageMode,
		length: desc.Length,
		raw:    raw,
	}
	if desc.StorageMode == renderer.StorageModeShared {
		b.shadow = make([]byte, desc.Length)
		copy(b.shadow, desc.Contents)
	}
	if len(desc.Contents) > 0 {
		d.queue.WriteBuffer(raw, 0, padded(desc.Contents))
	}
	return b, nil
}

func (b *buffer) Label() string {
	return b.label
}

func (b *buffer) Device() renderer.Device {
	return b.dev
}

func (b *buffer) Length() int {
	return b.length
}

func (b *buffer) StorageMode() renderer.StorageMode {
	return b.mode
}

func (b *buffer) Contents() []byte {
	if b.mode != renderer.StorageModeShared {
		return nil
	}
	return b.shadow
}

func (b *buffer) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.raw != nil {
		b.raw.Release()
		b.raw = nil
	}
	b.shadow = nil
}

func (b *buffer) shared() bool {
	return b.mode == renderer.StorageModeShared
}

// upload writes the host shadow to the device ahead of a submission.
func (b *buffer) upload() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.shadow == nil || b.raw == nil {
		return
	}
	b.dev.queue.WriteBuffer(b.raw, 0, padded(b.shadow))
}

// readback copies the device contents of b into its shadow through a mappable staging buffer.
type readback struct {
	buf     *buffer
	staging *wgpu.Buffer
	size    uint64
}

func newReadback(d *device, b *buffer) (*readback, error) {
	size := alignedSize(b.length)
	staging, err := d.raw.CreateBuffer(&wgpu.BufferDescriptor{
		Label: b.label + " readback",
		Size:  size,
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("buffer %q readback: %w", b.label, err)
	}
	return &readback{buf: b, staging: staging, size: size}, nil
}

// encode records the device to staging copy.
func (r *readback) encode(enc *wgpu.CommandEncoder) {
	enc.CopyBufferToBuffer(r.buf.raw, 0, r.staging, 0, r.size)
}

// finish maps the staging buffer after its submission completed and refreshes the shadow.
func (r *readback) finish(d *device) error {
	defer r.staging.Release()
	data, err := mapRead(d, r.staging, r.size)
	if err != nil {
		return fmt.Errorf("buffer %q readback: %w", r.buf.label, err)
	}
	r.buf.mu.Lock()
	defer r.buf.mu.Unlock()
	copy(r.buf.shadow, data)
	return nil
}

// mapRead maps a MapRead buffer, copies size bytes out and unmaps it.
func mapRead(d *device, staging *wgpu.Buffer, size uint64) ([]byte, error) {
	var status wgpu.BufferMapAsyncStatus
	done := false
	staging.MapAsync(wgpu.MapModeRead, 0, size, func(s wgpu.BufferMapAsyncStatus) {
		status = s
		done = true
	})
	d.wait()
	if !done {
		return nil, fmt.Errorf("map did not complete")
	}
	if status != wgpu.BufferMapAsyncStatusSuccess {
		return nil, fmt.Errorf("map failed with status %v", status)
	}
	out := make([]byte, size)
	copy(out, staging.GetMappedRange(0, uint(size)))
	staging.Unmap()
	return out, nil
}

// padded returns data grown to a multiple of four bytes, as WriteBuffer requires.
func padded(data []byte) []byte {
	if len(data)%4 == 0 {
		return data
	}
	out := make([]byte, (len(data)+3)/4*4)
	copy(out, data)
	return out
}
