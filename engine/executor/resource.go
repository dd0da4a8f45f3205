package executor

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-frames/engine/renderer"
)

// ResourceKind selects what AllocateResource creates.
type ResourceKind int

const (
	// ResourceBuffer requests a linear buffer.
	ResourceBuffer ResourceKind = iota
	// ResourceTexture requests a 2D texture.
	ResourceTexture
)

func (k ResourceKind) String() string {
	if k == ResourceTexture {
		return "texture"
	}
	return "buffer"
}

// ResourceRequest describes a buffer or texture to allocate on the executor's device.
type ResourceRequest struct {
	Kind  ResourceKind
	Label string

	// Length is the buffer size in bytes. When zero, the length of Data is used.
	Length int

	// Texture describes a texture request. Its Label defaults to the request label.
	Texture renderer.TextureDescriptor

	// CPUVisible buffers share host memory with the device. Others are device-only.
	CPUVisible bool

	// Data is the initial buffer contents, or tightly packed texture pixels.
	Data []byte
}

func (e *executor) allocate(req ResourceRequest) (renderer.Resource, error) {
	switch req.Kind {
	case ResourceBuffer:
		mode := renderer.StorageModePrivate
		if req.CPUVisible {
			mode = renderer.StorageModeShared
		}
		length := req.Length
		if length == 0 {
			length = len(req.Data)
		}
		buf, err := e.device.NewBuffer(renderer.BufferDescriptor{
			Label:       req.Label,
			Length:      length,
			StorageMode: mode,
			Contents:    req.Data,
		})
		if err != nil {
			return nil, fmt.Errorf("allocate buffer %q: %w", req.Label, err)
		}
		return buf, nil

	case ResourceTexture:
		desc := req.Texture
		if desc.Label == "" {
			desc.Label = req.Label
		}
		tex, err := e.device.NewTexture(desc)
		if err != nil {
			return nil, fmt.Errorf("allocate texture %q: %w", desc.Label, err)
		}
		if len(req.Data) > 0 {
			if err := tex.Replace(req.Data, desc.Width*desc.Format.BytesPerPixel()); err != nil {
				tex.Release()
				return nil, fmt.Errorf("upload texture %q: %w", desc.Label, err)
			}
		}
		return tex, nil
	}
	return nil, errors.New("unknown resource kind")
}
