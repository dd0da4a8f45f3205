package software

import (
	"github.com/Carmen-Shannon/oxy-frames/engine/renderer"
	"github.com/Carmen-Shannon/oxy-frames/engine/renderer/shader"
)

// ThreadPosition identifies one invocation of a kernel.
type ThreadPosition struct {
	// Global is the thread position in the whole dispatch grid.
	Global [3]uint32

	// Local is the thread position within its thread group.
	Local [3]uint32

	// Group is the thread group position in the dispatch.
	Group [3]uint32

	// GroupSize is the number of threads per group in each dimension.
	GroupSize [3]uint32
}

// Kernel is the Go implementation of a compute entry point. It is called once per thread,
// concurrently across thread groups.
type Kernel func(tid ThreadPosition, args *Args)

// VertexOutput is the result of one vertex function invocation.
type VertexOutput struct {
	// Position is the clip-space position.
	Position [4]float32

	// Varyings are interpolated across the primitive. At most MaxVaryings values.
	Varyings []float32
}

// FragmentInput is handed to a fragment function for every covered pixel.
type FragmentInput struct {
	// Position holds the pixel centre in framebuffer coordinates, the depth and the clip w.
	Position [4]float32

	// Varyings are the interpolated vertex outputs.
	Varyings []float32
}

// VertexFunction is the Go implementation of a vertex entry point.
type VertexFunction func(vertexID uint32, args *Args) VertexOutput

// FragmentFunction is the Go implementation of a fragment entry point. It returns linear RGBA.
type FragmentFunction func(in FragmentInput, args *Args) [4]float32

// Functions groups the Go implementations of a shader library's entry points.
type Functions struct {
	Kernels  map[string]Kernel
	Vertex   map[string]VertexFunction
	Fragment map[string]FragmentFunction
}

// Args exposes the resources bound to a stage, keyed by slot index.
type Args struct {
	buffers  map[int][]byte
	textures map[int]*texture
}

// Buffer returns the bytes bound at a slot, either a buffer from its bind offset or an inline blob.
// Returns nil for unbound slots.
func (a *Args) Buffer(index int) []byte {
	return a.buffers[index]
}

// Texture returns the texture bound at a slot, or nil.
func (a *Args) Texture(index int) Image {
	t, ok := a.textures[index]
	if !ok {
		return nil
	}
	return t
}

// computePipeline is a software compute pipeline.
type computePipeline struct {
	dev        *device
	label      string
	function   *shader.Function
	kernel     Kernel
	maxThreads uint32
}

var _ renderer.ComputePipeline = &computePipeline{}

func (p *computePipeline) Label() string           { return p.label }
func (p *computePipeline) Device() renderer.Device { return p.dev }
func (p *computePipeline) FunctionName() string    { return p.function.Name }

func (p *computePipeline) MaxTotalThreadsPerThreadgroup() uint32 {
	return p.maxThreads
}

func (p *computePipeline) WorkgroupSize() renderer.Size {
	wg := p.function.WorkgroupSize
	return renderer.Size{Width: wg[0], Height: wg[1], Depth: wg[2]}
}

// renderPipeline is a software render pipeline.
type renderPipeline struct {
	dev         *device
	label       string
	vertex      *shader.Function
	fragment    *shader.Function
	vertexFn    VertexFunction
	fragmentFn  FragmentFunction
	format      renderer.PixelFormat
	sampleCount uint32
	blending    bool
}

var _ renderer.RenderPipeline = &renderPipeline{}

func (p *renderPipeline) Label() string                     { return p.label }
func (p *renderPipeline) Device() renderer.Device           { return p.dev }
func (p *renderPipeline) ColorFormat() renderer.PixelFormat { return p.format }
func (p *renderPipeline) SampleCount() uint32               { return p.sampleCount }
