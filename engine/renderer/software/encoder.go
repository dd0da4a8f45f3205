package software

import (
	"fmt"
	"maps"

	"github.com/Carmen-Shannon/oxy-frames/engine/renderer"
	"github.com/Carmen-Shannon/oxy-frames/engine/renderer/shader"
)

// inlineHexLimit is the largest inline blob whose bytes are spelled out in pass records.
const inlineHexLimit = 64

// binding is the resource bound at one slot.
type binding struct {
	buf    *buffer
	offset int
	bytes  []byte
	tex    *texture
}

// data returns the bound bytes from the binding offset on.
func (b binding) data() ([]byte, error) {
	if b.buf == nil {
		return b.bytes, nil
	}
	if b.offset > len(b.buf.data) {
		if b.buf.data == nil {
			return nil, fmt.Errorf("buffer %q was released", b.buf.label)
		}
		return nil, fmt.Errorf("buffer %q: offset %d beyond length %d", b.buf.label, b.offset, len(b.buf.data))
	}
	return b.buf.data[b.offset:], nil
}

func (b binding) isBuffer() bool {
	return b.buf != nil || b.bytes != nil
}

func describeBytes(data []byte) string {
	if len(data) <= inlineHexLimit {
		return fmt.Sprintf("len=%d data=%x", len(data), data)
	}
	return fmt.Sprintf("len=%d", len(data))
}

// bindingSet holds slot state shared by both encoders.
type bindingSet struct {
	cb       *commandBuffer
	commands []string
	err      error
	ended    bool
}

func (s *bindingSet) fail(err error) {
	if s.err == nil {
		s.err = err
	}
}

func (s *bindingSet) command(format string, args ...any) {
	s.commands = append(s.commands, fmt.Sprintf(format, args...))
}

func (s *bindingSet) bindBuffer(slots map[int]binding, kind string, buf renderer.Buffer, offset, index int) {
	b, ok := buf.(*buffer)
	if !ok || b.dev != s.cb.dev {
		s.fail(fmt.Errorf("%s index %d: %w", kind, index, renderer.ErrForeignDevice))
		return
	}
	if offset < 0 || offset > len(b.data) {
		s.fail(fmt.Errorf("%s index %d: offset %d outside buffer %q of %d bytes", kind, index, offset, b.label, len(b.data)))
		return
	}
	slots[index] = binding{buf: b, offset: offset}
	s.command("%s index=%d buffer=%q offset=%d", kind, index, b.label, offset)
}

func (s *bindingSet) bindBytes(slots map[int]binding, kind string, data []byte, index int) {
	blob := make([]byte, len(data))
	copy(blob, data)
	slots[index] = binding{bytes: blob}
	s.command("%s index=%d %s", kind, index, describeBytes(blob))
}

func (s *bindingSet) bindTexture(slots map[int]binding, kind string, tex renderer.Texture, index int) {
	t, ok := tex.(*texture)
	if !ok || t.dev != s.cb.dev {
		s.fail(fmt.Errorf("%s index %d: %w", kind, index, renderer.ErrForeignDevice))
		return
	}
	slots[index] = binding{tex: t}
	s.command("%s index=%d texture=%q", kind, index, t.label)
}

// checkSlots verifies every resource fn reads through its slot group is bound with the right kind.
func checkSlots(fn *shader.Function, slots map[int]binding) error {
	for _, b := range fn.Group(fn.SlotGroup()) {
		if b.Kind == shader.BindingSampler {
			continue
		}
		s, ok := slots[b.Slot()]
		switch {
		case b.Kind.IsBuffer():
			if !ok || !s.isBuffer() {
				return fmt.Errorf("function %q expects a %s buffer %q at index %d", fn.Name, b.Kind, b.Name, b.Slot())
			}
			data, err := s.data()
			if err != nil {
				return fmt.Errorf("function %q: %q at index %d: %w", fn.Name, b.Name, b.Slot(), err)
			}
			if b.Size > 0 && len(data) < int(b.Size) {
				return fmt.Errorf("function %q: %q at index %d needs %d bytes, %d bound", fn.Name, b.Name, b.Slot(), b.Size, len(data))
			}
		case b.Kind.IsTexture():
			if !ok || s.tex == nil {
				return fmt.Errorf("function %q expects a texture %q at index %d", fn.Name, b.Name, b.Slot())
			}
			if b.Kind == shader.BindingStorageTexture && b.Access != shader.TextureAccessRead &&
				!s.tex.usage.Has(renderer.TextureUsageShaderWrite) {
				return fmt.Errorf("function %q writes texture %q which lacks shader-write usage", fn.Name, s.tex.label)
			}
		}
	}
	return nil
}

// computeEncoder records a compute pass.
type computeEncoder struct {
	bindingSet
	pipeline   *computePipeline
	slots      map[int]binding
	dispatches []dispatch
}

var _ renderer.ComputePassEncoder = &computeEncoder{}

func (e *computeEncoder) SetPipeline(p renderer.ComputePipeline) {
	cp, ok := p.(*computePipeline)
	if !ok || cp.dev != e.cb.dev {
		e.fail(fmt.Errorf("set compute pipeline: %w", renderer.ErrForeignDevice))
		return
	}
	e.pipeline = cp
	e.command("setPipeline %s", cp.label)
}

func (e *computeEncoder) SetBuffer(buf renderer.Buffer, offset int, index int) {
	e.bindBuffer(e.slots, "setBuffer", buf, offset, index)
}

func (e *computeEncoder) SetBytes(data []byte, index int) {
	e.bindBytes(e.slots, "setBytes", data, index)
}

func (e *computeEncoder) SetTexture(tex renderer.Texture, index int) {
	e.bindTexture(e.slots, "setTexture", tex, index)
}

func (e *computeEncoder) DispatchThreadgroups(groups, threadsPerGroup renderer.Size) {
	e.command("dispatch groups=%dx%dx%d threads=%dx%dx%d",
		groups.Width, groups.Height, groups.Depth,
		threadsPerGroup.Width, threadsPerGroup.Height, threadsPerGroup.Depth)

	if e.pipeline == nil {
		e.fail(fmt.Errorf("dispatch without a compute pipeline"))
		return
	}
	total := threadsPerGroup.Total()
	if total == 0 {
		e.fail(fmt.Errorf("dispatch with an empty thread group"))
		return
	}
	if total > uint64(e.pipeline.maxThreads) {
		e.fail(fmt.Errorf("thread group of %d threads exceeds pipeline %q limit %d", total, e.pipeline.label, e.pipeline.maxThreads))
		return
	}
	if err := checkSlots(e.pipeline.function, e.slots); err != nil {
		e.fail(err)
		return
	}
	e.dispatches = append(e.dispatches, dispatch{
		pipeline:        e.pipeline,
		slots:           maps.Clone(e.slots),
		groups:          groups,
		threadsPerGroup: threadsPerGroup,
	})
}

func (e *computeEncoder) End() error {
	if e.ended {
		return fmt.Errorf("compute encoder already ended")
	}
	e.ended = true
	p := &computePass{dispatches: e.dispatches, commands: e.commands}
	e.cb.endPass(p, e.err)
	return e.err
}

// renderEncoder records a render pass.
type renderEncoder struct {
	bindingSet
	pass     *renderPass
	pipeline *renderPipeline
	viewport renderer.Viewport
	vertex   map[int]binding
	fragment map[int]binding
}

var _ renderer.RenderPassEncoder = &renderEncoder{}

func (e *renderEncoder) SetPipeline(p renderer.RenderPipeline) {
	rp, ok := p.(*renderPipeline)
	if !ok || rp.dev != e.cb.dev {
		e.fail(fmt.Errorf("set render pipeline: %w", renderer.ErrForeignDevice))
		return
	}
	e.pipeline = rp
	e.command("setPipeline %s", rp.label)
}

func (e *renderEncoder) SetViewport(v renderer.Viewport) {
	e.viewport = v
	e.command("setViewport x=%g y=%g w=%g h=%g z=%g..%g", v.X, v.Y, v.Width, v.Height, v.ZNear, v.ZFar)
}

func (e *renderEncoder) SetVertexBuffer(buf renderer.Buffer, offset int, index int) {
	e.bindBuffer(e.vertex, "setVertexBuffer", buf, offset, index)
}

func (e *renderEncoder) SetVertexBytes(data []byte, index int) {
	e.bindBytes(e.vertex, "setVertexBytes", data, index)
}

func (e *renderEncoder) SetFragmentTexture(tex renderer.Texture, index int) {
	e.bindTexture(e.fragment, "setFragmentTexture", tex, index)
}

func (e *renderEncoder) SetFragmentBytes(data []byte, index int) {
	e.bindBytes(e.fragment, "setFragmentBytes", data, index)
}

func (e *renderEncoder) Draw(primitive renderer.PrimitiveType, start, count int) {
	e.command("draw %s start=%d count=%d", primitive, start, count)

	if e.pipeline == nil {
		e.fail(fmt.Errorf("draw without a render pipeline"))
		return
	}
	if start < 0 || count < 0 {
		e.fail(fmt.Errorf("draw with negative range start=%d count=%d", start, count))
		return
	}
	target := e.pass.target
	if e.pipeline.format != target.format {
		e.fail(fmt.Errorf("pipeline %q renders %s, attachment %q is %s", e.pipeline.label, e.pipeline.format, target.label, target.format))
		return
	}
	if e.pipeline.sampleCount != target.samples {
		e.fail(fmt.Errorf("pipeline %q sample count %d, attachment %q has %d", e.pipeline.label, e.pipeline.sampleCount, target.label, target.samples))
		return
	}
	if err := checkSlots(e.pipeline.vertex, e.vertex); err != nil {
		e.fail(err)
		return
	}
	if err := checkSlots(e.pipeline.fragment, e.fragment); err != nil {
		e.fail(err)
		return
	}
	e.pass.draws = append(e.pass.draws, draw{
		pipeline:  e.pipeline,
		viewport:  e.viewport,
		vertex:    maps.Clone(e.vertex),
		fragment:  maps.Clone(e.fragment),
		primitive: primitive,
		start:     start,
		count:     count,
	})
}

func (e *renderEncoder) End() error {
	if e.ended {
		return fmt.Errorf("render encoder already ended")
	}
	e.ended = true
	e.pass.commands = append([]string{e.pass.describe()}, e.commands...)
	e.cb.endPass(e.pass, e.err)
	return e.err
}
