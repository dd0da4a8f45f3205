package webgpu

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-frames/engine/renderer"
	"github.com/cogentcore/webgpu/wgpu"
)

// rowAlignment is the byte alignment WebGPU requires of bytesPerRow in texture to buffer copies.
const rowAlignment = 256

func textureFormat(f renderer.PixelFormat) (wgpu.TextureFormat, error) {
	switch f {
	case renderer.PixelFormatRGBA8Unorm:
		return wgpu.TextureFormatRGBA8Unorm, nil
	case renderer.PixelFormatRGBA8UnormSRGB:
		return wgpu.TextureFormatRGBA8UnormSrgb, nil
	case renderer.PixelFormatBGRA8Unorm:
		return wgpu.TextureFormatBGRA8Unorm, nil
	case renderer.PixelFormatBGRA8UnormSRGB:
		return wgpu.TextureFormatBGRA8UnormSrgb, nil
	default:
		return 0, fmt.Errorf("%w: %s", renderer.ErrUnsupportedFormat, f)
	}
}

func pixelFormat(f wgpu.TextureFormat) (renderer.PixelFormat, bool) {
	switch f {
	case wgpu.TextureFormatRGBA8Unorm:
		return renderer.PixelFormatRGBA8Unorm, true
	case wgpu.TextureFormatRGBA8UnormSrgb:
		return renderer.PixelFormatRGBA8UnormSRGB, true
	case wgpu.TextureFormatBGRA8Unorm:
		return renderer.PixelFormatBGRA8Unorm, true
	case wgpu.TextureFormatBGRA8UnormSrgb:
		return renderer.PixelFormatBGRA8UnormSRGB, true
	default:
		return renderer.PixelFormatInvalid, false
	}
}

// storageFormat maps a reflected WGSL texel format name.
func storageFormat(name string) (wgpu.TextureFormat, error) {
	switch name {
	case "rgba8unorm":
		return wgpu.TextureFormatRGBA8Unorm, nil
	case "bgra8unorm":
		return wgpu.TextureFormatBGRA8Unorm, nil
	case "r32float":
		return wgpu.TextureFormatR32Float, nil
	case "r32uint":
		return wgpu.TextureFormatR32Uint, nil
	case "rgba16float":
		return wgpu.TextureFormatRGBA16Float, nil
	case "rgba32float":
		return wgpu.TextureFormatRGBA32Float, nil
	default:
		return 0, fmt.Errorf("%w: storage texel format %q", renderer.ErrUnsupportedFormat, name)
	}
}

func textureUsage(u renderer.TextureUsage) wgpu.TextureUsage {
	usage := wgpu.TextureUsageCopyDst | wgpu.TextureUsageCopySrc
	if u.Has(renderer.TextureUsageShaderRead) {
		usage |= wgpu.TextureUsageTextureBinding
	}
	if u.Has(renderer.TextureUsageShaderWrite) {
		usage |= wgpu.TextureUsageStorageBinding
	}
	if u.Has(renderer.TextureUsageRenderTarget) {
		usage |= wgpu.TextureUsageRenderAttachment
	}
	return usage
}

func presentMode(m renderer.PresentMode) wgpu.PresentMode {
	if m == renderer.PresentModeUncapped {
		return wgpu.PresentModeImmediate
	}
	return wgpu.PresentModeFifo
}

func loadOp(a renderer.LoadAction) wgpu.LoadOp {
	if a == renderer.LoadActionLoad {
		return wgpu.LoadOpLoad
	}
	// WebGPU has no don't-care load, clearing is the cheapest defined alternative.
	return wgpu.LoadOpClear
}

func storeOp(a renderer.StoreAction) wgpu.StoreOp {
	if a == renderer.StoreActionDontCare {
		return wgpu.StoreOpDiscard
	}
	return wgpu.StoreOpStore
}

func topology(p renderer.PrimitiveType) wgpu.PrimitiveTopology {
	if p == renderer.PrimitiveTypeTriangleStrip {
		return wgpu.PrimitiveTopologyTriangleStrip
	}
	return wgpu.PrimitiveTopologyTriangleList
}

// alignedRow returns the copy row pitch of a texture row of n bytes.
func alignedRow(n uint32) uint32 {
	return (n + rowAlignment - 1) / rowAlignment * rowAlignment
}

// alignedSize rounds a transient buffer size up to 16 bytes, the largest WGSL scalar-vector alignment.
func alignedSize(n int) uint64 {
	if n <= 0 {
		return 16
	}
	return uint64((n + 15) / 16 * 16)
}
