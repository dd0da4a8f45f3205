package executor

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-frames/common"
	"github.com/Carmen-Shannon/oxy-frames/engine/renderer"
	"github.com/Carmen-Shannon/oxy-frames/engine/renderer/pipeline"
)

// FrameInfo carries the per-frame values parameters may depend on.
type FrameInfo struct {
	// Width is the drawable width in pixels.
	Width uint32

	// Height is the drawable height in pixels.
	Height uint32
}

// Param is a small inline parameter blob bound by index, recomputed every frame.
type Param struct {
	// Index is the binding slot.
	Index int

	// Value produces the bytes for a frame.
	Value func(info FrameInfo) []byte
}

// StaticParam binds a copy of data at index on every frame.
func StaticParam(index int, data []byte) Param {
	blob := append([]byte(nil), data...)
	return Param{Index: index, Value: func(FrameInfo) []byte { return blob }}
}

// FrameParam binds the result of fn at index, evaluated per frame.
func FrameParam(index int, fn func(info FrameInfo) []byte) Param {
	return Param{Index: index, Value: fn}
}

// ViewportSizeParam binds the drawable size as two little-endian uint32 values.
func ViewportSizeParam(index int) Param {
	return FrameParam(index, func(info FrameInfo) []byte {
		return append([]byte(nil), common.SliceToBytes([]uint32{info.Width, info.Height})...)
	})
}

// AspectRatioParam binds height / width as a float32, or 1 while the size is unknown.
func AspectRatioParam(index int) Param {
	return FrameParam(index, func(info FrameInfo) []byte {
		ratio := float32(1)
		if info.Width > 0 {
			ratio = float32(info.Height) / float32(info.Width)
		}
		return append([]byte(nil), common.SliceToBytes([]float32{ratio})...)
	})
}

// BufferBinding binds a buffer at an index.
type BufferBinding struct {
	Index  int
	Buffer renderer.Buffer
	Offset int
}

// TextureBinding binds a texture at an index.
type TextureBinding struct {
	Index   int
	Texture renderer.Texture
}

// Pass is one encoded unit of GPU work. The only implementations are ComputePass and RenderPass.
type Pass interface {
	// Kind returns the pipeline type the pass needs.
	Kind() pipeline.PipelineType

	// PipelineKey returns the key of the pipeline the pass binds.
	PipelineKey() string

	// TargetsDrawable reports whether the pass renders into the frame's drawable.
	TargetsDrawable() bool

	objects() []renderer.Object
	validate() error
	encode(f *frame) error
}

// ComputePass dispatches one compute pipeline over a grid.
type ComputePass struct {
	Label    string
	Pipeline string
	Buffers  []BufferBinding
	Textures []TextureBinding
	Params   []Param
	Grid     Grid
}

var _ Pass = ComputePass{}

func (p ComputePass) Kind() pipeline.PipelineType { return pipeline.PipelineTypeCompute }
func (p ComputePass) PipelineKey() string         { return p.Pipeline }
func (p ComputePass) TargetsDrawable() bool       { return false }

func (p ComputePass) objects() []renderer.Object {
	var objs []renderer.Object
	for _, b := range p.Buffers {
		objs = append(objs, b.Buffer)
	}
	for _, t := range p.Textures {
		objs = append(objs, t.Texture)
	}
	return objs
}

func (p ComputePass) validate() error {
	if p.Grid == nil {
		return errors.New("compute pass has no grid")
	}
	return validateBindings(p.Buffers, p.Textures, p.Params)
}

func (p ComputePass) encode(f *frame) error {
	cp := f.exec.compute[p.Pipeline]
	enc, err := f.cb.BeginComputePass()
	if err != nil {
		return err
	}
	enc.SetPipeline(cp)
	for _, b := range p.Buffers {
		enc.SetBuffer(b.Buffer, b.Offset, b.Index)
	}
	for _, t := range p.Textures {
		enc.SetTexture(t.Texture, t.Index)
	}
	for _, prm := range p.Params {
		enc.SetBytes(prm.Value(f.info), prm.Index)
	}
	size, gridErr := p.Grid(cp, f.info)
	if gridErr == nil {
		enc.DispatchThreadgroups(size.Groups, size.ThreadsPerGroup)
	}
	if err := enc.End(); err != nil {
		return err
	}
	return gridErr
}

// RenderPass draws with one render pipeline into an offscreen texture, or the drawable when
// Target is nil.
type RenderPass struct {
	Label string

	// Pipeline is the render pipeline key. An empty key makes a clear-only pass, which binds
	// nothing and draws nothing.
	Pipeline string

	// Target is the offscreen color texture. Nil renders into the drawable.
	Target renderer.Texture
	Load   renderer.LoadAction
	Clear  renderer.ClearColor

	// Viewport overrides the default full-target viewport.
	Viewport *renderer.Viewport

	VertexBuffers    []BufferBinding
	VertexParams     []Param
	FragmentTextures []TextureBinding
	FragmentParams   []Param

	Primitive   renderer.PrimitiveType
	VertexStart int
	VertexCount int
}

var _ Pass = RenderPass{}

func (p RenderPass) Kind() pipeline.PipelineType { return pipeline.PipelineTypeRender }
func (p RenderPass) PipelineKey() string         { return p.Pipeline }
func (p RenderPass) TargetsDrawable() bool       { return p.Target == nil }

func (p RenderPass) objects() []renderer.Object {
	var objs []renderer.Object
	if p.Target != nil {
		objs = append(objs, p.Target)
	}
	for _, b := range p.VertexBuffers {
		objs = append(objs, b.Buffer)
	}
	for _, t := range p.FragmentTextures {
		objs = append(objs, t.Texture)
	}
	return objs
}

func (p RenderPass) validate() error {
	if p.VertexStart < 0 || p.VertexCount < 0 {
		return fmt.Errorf("negative vertex range start=%d count=%d", p.VertexStart, p.VertexCount)
	}
	if p.Pipeline == "" && (p.VertexCount > 0 || len(p.VertexBuffers) > 0 || len(p.VertexParams) > 0 ||
		len(p.FragmentTextures) > 0 || len(p.FragmentParams) > 0) {
		return errors.New("a render pass without a pipeline may only clear its target")
	}
	if p.Target != nil && !p.Target.Usage().Has(renderer.TextureUsageRenderTarget) {
		return fmt.Errorf("target %q is not a render target", p.Target.Label())
	}
	if err := validateBindings(p.VertexBuffers, nil, p.VertexParams); err != nil {
		return err
	}
	return validateBindings(nil, p.FragmentTextures, p.FragmentParams)
}

func (p RenderPass) encode(f *frame) error {
	rp := f.exec.render[p.Pipeline]
	desc := renderer.RenderPassDescriptor{
		Label: p.Label,
		Color: renderer.ColorAttachment{Load: p.Load, Store: renderer.StoreActionStore, Clear: p.Clear},
	}
	if p.Target != nil {
		desc.Color.Texture = p.Target
	} else if ms := f.drawable.MultisampleTexture(); ms != nil {
		desc.Color.Texture = ms
		desc.Color.ResolveTexture = f.drawable.Texture()
		desc.Color.Store = renderer.StoreActionDontCare
	} else {
		desc.Color.Texture = f.drawable.Texture()
	}

	enc, err := f.cb.BeginRenderPass(desc)
	if err != nil {
		return err
	}
	if rp != nil {
		enc.SetPipeline(rp)
	}
	if p.Viewport != nil {
		enc.SetViewport(*p.Viewport)
	} else {
		t := desc.Target()
		enc.SetViewport(renderer.Viewport{Width: float64(t.Width()), Height: float64(t.Height()), ZFar: 1})
	}
	for _, b := range p.VertexBuffers {
		enc.SetVertexBuffer(b.Buffer, b.Offset, b.Index)
	}
	for _, prm := range p.VertexParams {
		enc.SetVertexBytes(prm.Value(f.info), prm.Index)
	}
	for _, t := range p.FragmentTextures {
		enc.SetFragmentTexture(t.Texture, t.Index)
	}
	for _, prm := range p.FragmentParams {
		enc.SetFragmentBytes(prm.Value(f.info), prm.Index)
	}
	if p.VertexCount > 0 {
		enc.Draw(p.Primitive, p.VertexStart, p.VertexCount)
	}
	return enc.End()
}

func validateBindings(buffers []BufferBinding, textures []TextureBinding, params []Param) error {
	for _, b := range buffers {
		if b.Buffer == nil {
			return fmt.Errorf("nil buffer at index %d", b.Index)
		}
		if b.Index < 0 || b.Offset < 0 || b.Offset > b.Buffer.Length() {
			return fmt.Errorf("buffer %q: invalid index %d or offset %d", b.Buffer.Label(), b.Index, b.Offset)
		}
	}
	for _, t := range textures {
		if t.Texture == nil {
			return fmt.Errorf("nil texture at index %d", t.Index)
		}
		if t.Index < 0 {
			return fmt.Errorf("texture %q: invalid index %d", t.Texture.Label(), t.Index)
		}
	}
	for _, p := range params {
		if p.Value == nil || p.Index < 0 {
			return fmt.Errorf("invalid parameter at index %d", p.Index)
		}
	}
	return nil
}
