package renderer

import "context"

// Device is the root owner of every GPU object it creates. Objects created by one Device
// must never be bound to command buffers of another.
type Device interface {
	// Name returns a human readable device name.
	//
	// Returns:
	//   - string: the adapter or implementation name
	Name() string

	// Backend returns the implementation type of this device.
	//
	// Returns:
	//   - BackendType: the backend
	Backend() BackendType

	// Limits reports the device capabilities.
	//
	// Returns:
	//   - Limits: the capability limits
	Limits() Limits

	// NewQueue creates a command submission queue.
	//
	// Returns:
	//   - Queue: the queue
	//   - error: an error if the device cannot create a queue
	NewQueue() (Queue, error)

	// NewBuffer allocates a buffer.
	//
	// Parameters:
	//   - desc: the buffer configuration
	//
	// Returns:
	//   - Buffer: the buffer
	//   - error: an error if the descriptor is invalid or allocation fails
	NewBuffer(desc BufferDescriptor) (Buffer, error)

	// NewTexture allocates a 2D texture.
	//
	// Parameters:
	//   - desc: the texture configuration
	//
	// Returns:
	//   - Texture: the texture
	//   - error: an error if the descriptor is invalid or allocation fails; ErrUnsupportedFormat for unknown formats
	NewTexture(desc TextureDescriptor) (Texture, error)

	// NewComputePipeline builds a compute pipeline from a reflected compute function.
	//
	// Parameters:
	//   - desc: the pipeline configuration
	//
	// Returns:
	//   - ComputePipeline: the pipeline
	//   - error: a *PipelineBuildError carrying the backend diagnostic on rejection
	NewComputePipeline(desc ComputePipelineDescriptor) (ComputePipeline, error)

	// NewRenderPipeline builds a render pipeline from reflected vertex and fragment functions.
	//
	// Parameters:
	//   - desc: the pipeline configuration
	//
	// Returns:
	//   - RenderPipeline: the pipeline
	//   - error: a *PipelineBuildError carrying the backend diagnostic on rejection
	NewRenderPipeline(desc RenderPipelineDescriptor) (RenderPipeline, error)

	// Release frees the device and everything it still owns.
	Release()
}

// Object is anything created by a Device.
type Object interface {
	// Label returns the debug label given at creation.
	Label() string

	// Device returns the owning device. It is a non-owning back reference.
	Device() Device
}

// Resource is a buffer or texture.
type Resource interface {
	Object

	// Release frees the resource's memory.
	Release()
}

// Buffer is a linear block of device memory.
type Buffer interface {
	Resource

	// Length returns the buffer size in bytes.
	Length() int

	// StorageMode returns where the buffer memory lives.
	StorageMode() StorageMode

	// Contents returns the live host-visible bytes of a shared buffer, or nil for private buffers.
	// Host writes are visible to the device on the next commit; device writes are visible to the host
	// once the command buffer that made them has completed.
	Contents() []byte
}

// Texture is a 2D image.
type Texture interface {
	Resource

	Width() uint32
	Height() uint32
	Format() PixelFormat
	Usage() TextureUsage
	SampleCount() uint32

	// Replace overwrites the whole texture with tightly or loosely packed rows of pixels in the texture's format.
	//
	// Parameters:
	//   - pixels: the source pixel rows
	//   - bytesPerRow: the row pitch of pixels, at least Width * BytesPerPixel
	//
	// Returns:
	//   - error: an error if pixels is too short
	Replace(pixels []byte, bytesPerRow uint32) error

	// GetBytes reads the whole texture back into tightly packed rows.
	//
	// Returns:
	//   - []byte: the pixels in the texture's format
	//   - error: an error if readback fails
	GetBytes() ([]byte, error)
}

// ComputePipeline is an immutable compiled compute configuration.
type ComputePipeline interface {
	Object

	// FunctionName returns the entry point the pipeline runs.
	FunctionName() string

	// MaxTotalThreadsPerThreadgroup is the largest thread group this pipeline may be dispatched with.
	MaxTotalThreadsPerThreadgroup() uint32

	// WorkgroupSize is the thread group size compiled into the function, if fixed.
	WorkgroupSize() Size
}

// RenderPipeline is an immutable compiled render configuration.
type RenderPipeline interface {
	Object

	ColorFormat() PixelFormat
	SampleCount() uint32
}

// Queue hands out command buffers that execute in commit order.
type Queue interface {
	// Device returns the owning device.
	Device() Device

	// CommandBuffer creates a new command buffer for one frame.
	//
	// Returns:
	//   - CommandBuffer: the command buffer
	//   - error: an error if the queue cannot allocate one
	CommandBuffer() (CommandBuffer, error)

	// WaitIdle blocks until every committed command buffer has completed or ctx is done.
	//
	// Parameters:
	//   - ctx: bounds the wait
	//
	// Returns:
	//   - error: ctx.Err() if the wait was abandoned
	WaitIdle(ctx context.Context) error
}

// CommandBuffer records passes for one submission.
type CommandBuffer interface {
	// Label returns the command buffer's debug label.
	Label() string

	// BeginComputePass starts recording a compute pass. The previous encoder must have ended.
	//
	// Returns:
	//   - ComputePassEncoder: the encoder
	//   - error: an error if another encoder is open or the buffer was committed
	BeginComputePass() (ComputePassEncoder, error)

	// BeginRenderPass starts recording a render pass into the descriptor's color attachment.
	//
	// Parameters:
	//   - desc: the render pass configuration
	//
	// Returns:
	//   - RenderPassEncoder: the encoder
	//   - error: an error if another encoder is open, the buffer was committed, or the attachment is foreign
	BeginRenderPass(desc RenderPassDescriptor) (RenderPassEncoder, error)

	// Present schedules d to be shown once every pass of this command buffer has completed.
	//
	// Parameters:
	//   - d: the drawable to present
	Present(d Drawable)

	// Commit submits the command buffer. No further encoding is allowed.
	//
	// Returns:
	//   - error: an error if the buffer was already committed or an encoder is still open
	Commit() error

	// WaitUntilCompleted blocks until execution finishes or ctx is done.
	//
	// Parameters:
	//   - ctx: bounds the wait
	//
	// Returns:
	//   - error: ctx.Err() if abandoned, or the execution error reported by the device
	WaitUntilCompleted(ctx context.Context) error

	// Status returns the current lifecycle state.
	Status() CommandBufferStatus
}

// ComputePassEncoder records compute commands. Binding errors are deferred and reported by End.
type ComputePassEncoder interface {
	SetPipeline(p ComputePipeline)

	// SetBuffer binds buf starting at offset to the given slot index.
	SetBuffer(buf Buffer, offset int, index int)

	// SetBytes binds a copy of data as an inline constant blob at the given slot index.
	SetBytes(data []byte, index int)

	// SetTexture binds tex to the given slot index.
	SetTexture(tex Texture, index int)

	// DispatchThreadgroups runs groups thread groups of threadsPerGroup threads each.
	DispatchThreadgroups(groups, threadsPerGroup Size)

	// End finishes the pass.
	//
	// Returns:
	//   - error: the first deferred encoding error
	End() error
}

// RenderPassEncoder records draw commands. Binding errors are deferred and reported by End.
type RenderPassEncoder interface {
	SetPipeline(p RenderPipeline)
	SetViewport(v Viewport)
	SetVertexBuffer(buf Buffer, offset int, index int)
	SetVertexBytes(data []byte, index int)
	SetFragmentTexture(tex Texture, index int)
	SetFragmentBytes(data []byte, index int)

	// Draw issues count vertices starting at start with the given topology.
	Draw(primitive PrimitiveType, start, count int)

	// End finishes the pass.
	//
	// Returns:
	//   - error: the first deferred encoding error
	End() error
}

// Surface hands out presentable drawables.
type Surface interface {
	// NextDrawable returns the next drawable, or false when none is available this frame.
	//
	// Returns:
	//   - Drawable: the drawable
	//   - bool: false if no drawable could be acquired
	NextDrawable() (Drawable, bool)

	// Format returns the pixel format of the drawables.
	Format() PixelFormat

	// SampleCount returns the sample count render pipelines targeting this surface must use.
	SampleCount() uint32

	// Size returns the drawable size in pixels.
	Size() (width, height uint32)

	// Resize reconfigures the drawables for a new size.
	//
	// Parameters:
	//   - width: the new width in pixels
	//   - height: the new height in pixels
	//
	// Returns:
	//   - error: an error if reconfiguration fails
	Resize(width, height uint32) error
}

// Drawable is one presentable image.
type Drawable interface {
	// Texture is the presentable single-sample texture.
	Texture() Texture

	// MultisampleTexture is the render target when the surface sample count is above one, otherwise nil.
	MultisampleTexture() Texture
}
