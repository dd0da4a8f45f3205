package webgpu

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-frames/engine/renderer"
	"github.com/cogentcore/webgpu/wgpu"
)

// texture is a 2D WebGPU texture with its default view.
type texture struct {
	dev     *device
	label   string
	width   uint32
	height  uint32
	format  renderer.PixelFormat
	usage   renderer.TextureUsage
	samples uint32

	raw  *wgpu.Texture
	view *wgpu.TextureView
}

var _ renderer.Texture = &texture{}

func newTexture(d *device, desc renderer.TextureDescriptor) (*texture, error) {
	format, err := textureFormat(desc.Format)
	if err != nil {
		return nil, err
	}
	usage := textureUsage(desc.Usage)
	if desc.SampleCount > 1 {
		// Multisampled textures can only be attached and resolved.
		usage = wgpu.TextureUsageRenderAttachment
	}
	raw, err := d.raw.CreateTexture(&wgpu.TextureDescriptor{
		Label: desc.Label,
		Size: wgpu.Extent3D{
			Width:              desc.Width,
			Height:             desc.Height,
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   desc.SampleCount,
		Dimension:     wgpu.TextureDimension2D,
		Format:        format,
		Usage:         usage,
	})
	if err != nil {
		return nil, fmt.Errorf("texture %q: %w", desc.Label, err)
	}
	view, err := raw.CreateView(nil)
	if err != nil {
		raw.Release()
		return nil, fmt.Errorf("texture %q view: %w", desc.Label, err)
	}
	return &texture{
		dev:     d,
		label:   desc.Label,
		width:   desc.Width,
		height:  desc.Height,
		format:  desc.Format,
		usage:   desc.Usage,
		samples: desc.SampleCount,
		raw:     raw,
		view:    view,
	}, nil
}

func (t *texture) Label() string                { return t.label }
func (t *texture) Device() renderer.Device      { return t.dev }
func (t *texture) Width() uint32                { return t.width }
func (t *texture) Height() uint32               { return t.height }
func (t *texture) Format() renderer.PixelFormat { return t.format }
func (t *texture) Usage() renderer.TextureUsage { return t.usage }
func (t *texture) SampleCount() uint32          { return t.samples }

func (t *texture) Release() {
	if t.view != nil {
		t.view.Release()
		t.view = nil
	}
	if t.raw != nil {
		t.raw.Release()
		t.raw = nil
	}
}

func (t *texture) Replace(pixels []byte, bytesPerRow uint32) error {
	row := t.width * t.format.BytesPerPixel()
	if bytesPerRow < row {
		return fmt.Errorf("texture %q: row pitch %d below %d", t.label, bytesPerRow, row)
	}
	if need := int(bytesPerRow)*int(t.height-1) + int(row); len(pixels) < need {
		return fmt.Errorf("texture %q: %d bytes given, %d needed", t.label, len(pixels), need)
	}
	if t.samples > 1 {
		return fmt.Errorf("texture %q: multisampled textures cannot be written", t.label)
	}
	t.dev.queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  t.raw,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		pixels,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  bytesPerRow,
			RowsPerImage: t.height,
		},
		&wgpu.Extent3D{
			Width:              t.width,
			Height:             t.height,
			DepthOrArrayLayers: 1,
		},
	)
	return nil
}

// GetBytes copies the texture into a staging buffer with 256-byte aligned rows, waits for the copy
// and strips the row padding.
func (t *texture) GetBytes() ([]byte, error) {
	if t.samples > 1 {
		return nil, fmt.Errorf("texture %q: multisampled textures cannot be read back", t.label)
	}
	row := t.width * t.format.BytesPerPixel()
	pitch := alignedRow(row)
	size := uint64(pitch) * uint64(t.height)

	staging, err := t.dev.raw.CreateBuffer(&wgpu.BufferDescriptor{
		Label: t.label + " readback",
		Size:  size,
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("texture %q readback: %w", t.label, err)
	}
	defer staging.Release()

	enc, err := t.dev.raw.CreateCommandEncoder(nil)
	if err != nil {
		return nil, fmt.Errorf("texture %q readback: %w", t.label, err)
	}
	defer enc.Release()
	enc.CopyTextureToBuffer(
		&wgpu.ImageCopyTexture{
			Texture:  t.raw,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		&wgpu.ImageCopyBuffer{
			Buffer: staging,
			Layout: wgpu.TextureDataLayout{
				Offset:       0,
				BytesPerRow:  pitch,
				RowsPerImage: t.height,
			},
		},
		&wgpu.Extent3D{
			Width:              t.width,
			Height:             t.height,
			DepthOrArrayLayers: 1,
		},
	)
	cb, err := enc.Finish(nil)
	if err != nil {
		return nil, fmt.Errorf("texture %q readback: %w", t.label, err)
	}
	t.dev.queue.Submit(cb)
	cb.Release()

	data, err := mapRead(t.dev, staging, size)
	if err != nil {
		return nil, fmt.Errorf("texture %q readback: %w", t.label, err)
	}
	out := make([]byte, 0, int(row)*int(t.height))
	for y := uint32(0); y < t.height; y++ {
		start := y * pitch
		out = append(out, data[start:start+row]...)
	}
	return out, nil
}
