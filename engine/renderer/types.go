package renderer

import "github.com/Carmen-Shannon/oxy-frames/engine/renderer/shader"

// Size is a three-dimensional extent used for grids and thread groups.
type Size struct {
	Width, Height, Depth uint32
}

// Total returns the product of all three dimensions.
func (s Size) Total() uint64 {
	return uint64(s.Width) * uint64(s.Height) * uint64(s.Depth)
}

// ClearColor is the normalised RGBA value a color attachment is cleared to.
type ClearColor struct {
	R, G, B, A float64
}

// Viewport maps normalised device coordinates onto the render target, in pixels.
type Viewport struct {
	X, Y, Width, Height float64
	ZNear, ZFar         float64
}

// Limits reports device capabilities relevant to the executor.
type Limits struct {
	// MaxThreadsPerThreadgroup is the largest total thread count of one group.
	MaxThreadsPerThreadgroup uint32

	// MaxThreadgroupSize bounds each dimension of a thread group.
	MaxThreadgroupSize Size

	// MaxBufferLength is the largest buffer the device will allocate, in bytes.
	MaxBufferLength uint64

	// MaxTextureDimension2D bounds the width and height of a texture.
	MaxTextureDimension2D uint32
}

// BufferDescriptor configures a new buffer.
type BufferDescriptor struct {
	// Label is a debug name.
	Label string

	// Length is the buffer size in bytes. Must be positive.
	Length int

	// StorageMode selects host-visible shared memory or device-private memory.
	StorageMode StorageMode

	// Contents optionally initialises the buffer. Must not be longer than Length.
	Contents []byte
}

// TextureDescriptor configures a new 2D texture.
type TextureDescriptor struct {
	Label       string
	Width       uint32
	Height      uint32
	Format      PixelFormat
	Usage       TextureUsage
	SampleCount uint32
}

// ComputePipelineDescriptor configures a compute pipeline.
type ComputePipelineDescriptor struct {
	Label    string
	Function *shader.Function

	// MaxThreadsPerGroup caps MaxTotalThreadsPerThreadgroup. Zero uses the device limit.
	MaxThreadsPerGroup uint32
}

// RenderPipelineDescriptor configures a render pipeline with one color attachment.
type RenderPipelineDescriptor struct {
	Label       string
	Vertex      *shader.Function
	Fragment    *shader.Function
	ColorFormat PixelFormat
	SampleCount uint32
	Blending    bool
}

// ColorAttachment is the single color target of a render pass.
type ColorAttachment struct {
	// Texture is rendered into. For multisampled passes it is the multisample texture.
	Texture Texture

	// ResolveTexture receives the resolved image of a multisampled Texture. May be nil.
	ResolveTexture Texture

	Load  LoadAction
	Store StoreAction
	Clear ClearColor
}

// RenderPassDescriptor configures a render pass.
type RenderPassDescriptor struct {
	Label string
	Color ColorAttachment
}

// Target returns the texture a render pass ultimately produces: the resolve texture if set, otherwise the color texture.
func (d RenderPassDescriptor) Target() Texture {
	if d.Color.ResolveTexture != nil {
		return d.Color.ResolveTexture
	}
	return d.Color.Texture
}
