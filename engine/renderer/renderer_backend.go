package renderer

import (
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/oxy-frames/common"
)

// BackendType identifies the device implementation behind a Device.
type BackendType int

const (
	// BackendTypeSoftware selects the pure-Go reference device.
	BackendTypeSoftware BackendType = iota

	// BackendTypeWGPU selects the WebGPU-based device.
	BackendTypeWGPU
)

func (b BackendType) String() string {
	switch b {
	case BackendTypeSoftware:
		return "software"
	case BackendTypeWGPU:
		return "webgpu"
	default:
		return fmt.Sprintf("BackendType(%d)", int(b))
	}
}

// ParseBackendType maps a configuration string to a BackendType. Matching is case-insensitive
// and accepts "wgpu" as an alias of "webgpu".
//
// Parameters:
//   - s: the backend name
//
// Returns:
//   - BackendType: the parsed backend
//   - error: an error if the name is unknown
func ParseBackendType(s string) (BackendType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "software", "cpu":
		return BackendTypeSoftware, nil
	case "webgpu", "wgpu":
		return BackendTypeWGPU, nil
	default:
		return 0, fmt.Errorf("unknown backend %q", s)
	}
}

// PresentMode controls how rendered frames are presented to the display surface.
type PresentMode int

const (
	// PresentModeVSync waits for the next vertical blank before presenting, capping frame rate
	// to the monitor's refresh rate. Eliminates tearing.
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents frames immediately without waiting for vertical blank.
	// May cause screen tearing but provides the lowest latency.
	PresentModeUncapped
)

func (m PresentMode) String() string {
	if m == PresentModeUncapped {
		return "uncapped"
	}
	return "vsync"
}

// ParsePresentMode maps "vsync" or "uncapped" to a PresentMode.
func ParsePresentMode(s string) (PresentMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "vsync", "":
		return PresentModeVSync, nil
	case "uncapped", "immediate":
		return PresentModeUncapped, nil
	default:
		return 0, fmt.Errorf("unknown present mode %q", s)
	}
}

// MSAASampleCount controls the number of samples used for multisample anti-aliasing (MSAA).
// Only specific power-of-two values are valid for GPU hardware. WebGPU guarantees support for
// 1 (off) and 4; higher values (8, 16) are adapter-dependent and may not be available.
type MSAASampleCount uint32

const (
	// MSAAOff disables multisample anti-aliasing (sample count 1).
	MSAAOff MSAASampleCount = 1

	// MSAA4x enables 4× multisample anti-aliasing.
	MSAA4x MSAASampleCount = 4

	// MSAA8x enables 8× multisample anti-aliasing. Adapter-dependent; not all hardware supports this.
	MSAA8x MSAASampleCount = 8

	// MSAA16x enables 16× multisample anti-aliasing. Adapter-dependent; not all hardware supports this.
	MSAA16x MSAASampleCount = 16
)

// Valid reports whether c is one of the supported sample counts.
func (c MSAASampleCount) Valid() bool {
	switch c {
	case MSAAOff, MSAA4x, MSAA8x, MSAA16x:
		return true
	}
	return false
}

// PixelFormat is the texel format of a texture or render target.
type PixelFormat int

const (
	PixelFormatInvalid PixelFormat = iota
	PixelFormatRGBA8Unorm
	PixelFormatRGBA8UnormSRGB
	PixelFormatBGRA8Unorm
	PixelFormatBGRA8UnormSRGB
)

func (f PixelFormat) String() string {
	switch f {
	case PixelFormatRGBA8Unorm:
		return "rgba8unorm"
	case PixelFormatRGBA8UnormSRGB:
		return "rgba8unorm-srgb"
	case PixelFormatBGRA8Unorm:
		return "bgra8unorm"
	case PixelFormatBGRA8UnormSRGB:
		return "bgra8unorm-srgb"
	default:
		return fmt.Sprintf("PixelFormat(%d)", int(f))
	}
}

// Valid reports whether f is a known format.
func (f PixelFormat) Valid() bool {
	return f >= PixelFormatRGBA8Unorm && f <= PixelFormatBGRA8UnormSRGB
}

// IsSRGB reports whether shader writes are sRGB-encoded on store.
func (f PixelFormat) IsSRGB() bool {
	return f == PixelFormatRGBA8UnormSRGB || f == PixelFormatBGRA8UnormSRGB
}

// Order returns the channel order of the format's texels.
func (f PixelFormat) Order() common.PixelOrder {
	if f == PixelFormatBGRA8Unorm || f == PixelFormatBGRA8UnormSRGB {
		return common.PixelOrderBGRA
	}
	return common.PixelOrderRGBA
}

// Linear returns the non-sRGB variant of f.
func (f PixelFormat) Linear() PixelFormat {
	switch f {
	case PixelFormatRGBA8UnormSRGB:
		return PixelFormatRGBA8Unorm
	case PixelFormatBGRA8UnormSRGB:
		return PixelFormatBGRA8Unorm
	}
	return f
}

// BytesPerPixel returns the texel size in bytes.
func (f PixelFormat) BytesPerPixel() uint32 {
	return 4
}

// StorageMode controls where a buffer's memory lives.
type StorageMode int

const (
	// StorageModeShared buffers expose host-visible Contents shared with the device.
	StorageModeShared StorageMode = iota

	// StorageModePrivate buffers are device-only; Contents returns nil.
	StorageModePrivate
)

func (m StorageMode) String() string {
	if m == StorageModePrivate {
		return "private"
	}
	return "shared"
}

// TextureUsage is a bit set of the ways a texture may be bound.
type TextureUsage uint32

const (
	TextureUsageShaderRead TextureUsage = 1 << iota
	TextureUsageShaderWrite
	TextureUsageRenderTarget
)

// Has reports whether every bit of u2 is set in u.
func (u TextureUsage) Has(u2 TextureUsage) bool {
	return u&u2 == u2
}

// LoadAction selects how a render pass initialises its color attachment.
type LoadAction int

const (
	LoadActionDontCare LoadAction = iota
	LoadActionLoad
	LoadActionClear
)

// StoreAction selects whether a render pass keeps its color attachment.
type StoreAction int

const (
	StoreActionStore StoreAction = iota
	StoreActionDontCare
)

// PrimitiveType is the topology used by a draw call.
type PrimitiveType int

const (
	PrimitiveTypeTriangle PrimitiveType = iota
	PrimitiveTypeTriangleStrip
)

func (p PrimitiveType) String() string {
	if p == PrimitiveTypeTriangleStrip {
		return "triangle-strip"
	}
	return "triangle"
}

// CommandBufferStatus tracks a command buffer through its lifecycle.
type CommandBufferStatus int

const (
	CommandBufferStatusNotEnqueued CommandBufferStatus = iota
	CommandBufferStatusCommitted
	CommandBufferStatusCompleted
	CommandBufferStatusError
)

func (s CommandBufferStatus) String() string {
	switch s {
	case CommandBufferStatusNotEnqueued:
		return "not-enqueued"
	case CommandBufferStatusCommitted:
		return "committed"
	case CommandBufferStatusCompleted:
		return "completed"
	case CommandBufferStatusError:
		return "error"
	default:
		return fmt.Sprintf("CommandBufferStatus(%d)", int(s))
	}
}
