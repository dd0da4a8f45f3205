package webgpu

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-frames/common"
	"github.com/Carmen-Shannon/oxy-frames/engine/renderer"
	"github.com/Carmen-Shannon/oxy-frames/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// slot is the resource bound at one API index.
type slot struct {
	buf    *buffer
	offset int
	bytes  []byte
	tex    *texture
}

func (s slot) isBuffer() bool {
	return s.buf != nil || s.bytes != nil
}

// bindingSet holds the slot state and the deferred error shared by both encoders.
type bindingSet struct {
	cb    *commandBuffer
	err   error
	ended bool
}

func (s *bindingSet) fail(err error) {
	if s.err == nil {
		s.err = err
	}
}

func (s *bindingSet) bindBuffer(slots map[int]slot, kind string, buf renderer.Buffer, offset, index int) {
	b, ok := buf.(*buffer)
	if !ok || b.dev != s.cb.dev {
		s.fail(fmt.Errorf("%s index %d: %w", kind, index, renderer.ErrForeignDevice))
		return
	}
	if offset < 0 || offset > b.length {
		s.fail(fmt.Errorf("%s index %d: offset %d outside buffer %q of %d bytes", kind, index, offset, b.label, b.length))
		return
	}
	slots[index] = slot{buf: b, offset: offset}
}

func (s *bindingSet) bindBytes(slots map[int]slot, data []byte, index int) {
	slots[index] = slot{bytes: append([]byte{}, data...)}
}

func (s *bindingSet) bindTexture(slots map[int]slot, kind string, tex renderer.Texture, index int) {
	t, ok := tex.(*texture)
	if !ok || t.dev != s.cb.dev {
		s.fail(fmt.Errorf("%s index %d: %w", kind, index, renderer.ErrForeignDevice))
		return
	}
	slots[index] = slot{tex: t}
}

// entry resolves one reflected binding against the slots of its stage.
func (s *bindingSet) entry(fn *shader.Function, b shader.Binding, slots map[int]slot) (wgpu.BindGroupEntry, error) {
	if b.Kind == shader.BindingSampler {
		return wgpu.BindGroupEntry{Binding: b.Binding, Sampler: s.cb.dev.sampler}, nil
	}
	bound, ok := slots[b.Slot()]
	switch {
	case b.Kind.IsBuffer():
		if !ok || !bound.isBuffer() {
			return wgpu.BindGroupEntry{}, fmt.Errorf("function %q expects a %s buffer %q at index %d", fn.Name, b.Kind, b.Name, b.Slot())
		}
		if bound.bytes != nil {
			raw, err := s.cb.transient(b.Name, bound.bytes)
			if err != nil {
				return wgpu.BindGroupEntry{}, err
			}
			return wgpu.BindGroupEntry{Binding: b.Binding, Buffer: raw, Offset: 0, Size: wgpu.WholeSize}, nil
		}
		if b.Size > 0 && bound.buf.length-bound.offset < int(b.Size) {
			return wgpu.BindGroupEntry{}, fmt.Errorf("function %q: %q at index %d needs %d bytes, %d bound", fn.Name, b.Name, b.Slot(), b.Size, bound.buf.length-bound.offset)
		}
		s.cb.use(bound.buf, b.Kind == shader.BindingStorage)
		return wgpu.BindGroupEntry{Binding: b.Binding, Buffer: bound.buf.raw, Offset: uint64(bound.offset), Size: wgpu.WholeSize}, nil
	case b.Kind.IsTexture():
		if !ok || bound.tex == nil {
			return wgpu.BindGroupEntry{}, fmt.Errorf("function %q expects a texture %q at index %d", fn.Name, b.Name, b.Slot())
		}
		if b.Kind == shader.BindingStorageTexture && b.Access != shader.TextureAccessRead &&
			!bound.tex.usage.Has(renderer.TextureUsageShaderWrite) {
			return wgpu.BindGroupEntry{}, fmt.Errorf("function %q writes texture %q which lacks shader-write usage", fn.Name, bound.tex.label)
		}
		return wgpu.BindGroupEntry{Binding: b.Binding, TextureView: bound.tex.view}, nil
	}
	return wgpu.BindGroupEntry{}, fmt.Errorf("function %q: unsupported binding %q", fn.Name, b.Name)
}

// stageSlots pairs a function with the slots its slot group reads.
type stageSlots struct {
	fn    *shader.Function
	slots map[int]slot
}

// bindGroups builds one bind group per layout group from the stages' reflected bindings.
func (s *bindingSet) bindGroups(label string, layout *pipelineLayout, stages ...stageSlots) ([]*wgpu.BindGroup, error) {
	entries := make([][]wgpu.BindGroupEntry, len(layout.groups))
	seen := make(map[[2]uint32]bool)
	for _, st := range stages {
		for _, b := range st.fn.Bindings {
			key := [2]uint32{b.Group, b.Binding}
			if seen[key] {
				continue
			}
			seen[key] = true
			if b.Group != st.fn.SlotGroup() && b.Kind != shader.BindingSampler {
				return nil, fmt.Errorf("function %q: %q is in group %d, outside its slot group %d", st.fn.Name, b.Name, b.Group, st.fn.SlotGroup())
			}
			e, err := s.entry(st.fn, b, st.slots)
			if err != nil {
				return nil, err
			}
			entries[b.Group] = append(entries[b.Group], e)
		}
	}

	groups := make([]*wgpu.BindGroup, len(layout.groups))
	for g, bgl := range layout.groups {
		bg, err := s.cb.dev.raw.CreateBindGroup(&wgpu.BindGroupDescriptor{
			Label:   fmt.Sprintf("%s group %d", label, g),
			Layout:  bgl,
			Entries: entries[g],
		})
		if err != nil {
			return nil, fmt.Errorf("bind group %d of %q: %w", g, label, err)
		}
		s.cb.bindGroups = append(s.cb.bindGroups, bg)
		groups[g] = bg
	}
	return groups, nil
}

// computeEncoder records a compute pass.
type computeEncoder struct {
	bindingSet
	raw      *wgpu.ComputePassEncoder
	pipeline *computePipeline
	slots    map[int]slot
}

var _ renderer.ComputePassEncoder = &computeEncoder{}

func (e *computeEncoder) SetPipeline(p renderer.ComputePipeline) {
	cp, ok := p.(*computePipeline)
	if !ok || cp.dev != e.cb.dev {
		e.fail(fmt.Errorf("set compute pipeline: %w", renderer.ErrForeignDevice))
		return
	}
	e.pipeline = cp
	e.raw.SetPipeline(cp.raw)
}

func (e *computeEncoder) SetBuffer(buf renderer.Buffer, offset int, index int) {
	e.bindBuffer(e.slots, "setBuffer", buf, offset, index)
}

func (e *computeEncoder) SetBytes(data []byte, index int) {
	e.bindBytes(e.slots, data, index)
}

func (e *computeEncoder) SetTexture(tex renderer.Texture, index int) {
	e.bindTexture(e.slots, "setTexture", tex, index)
}

// DispatchThreadgroups launches enough compiled workgroups to cover groups * threadsPerGroup
// threads in every dimension. Kernels guard their own bounds.
func (e *computeEncoder) DispatchThreadgroups(groups, threadsPerGroup renderer.Size) {
	if e.pipeline == nil {
		e.fail(fmt.Errorf("dispatch without a compute pipeline"))
		return
	}
	total := threadsPerGroup.Total()
	if total == 0 {
		e.fail(fmt.Errorf("dispatch with an empty thread group"))
		return
	}
	if limit := e.pipeline.MaxTotalThreadsPerThreadgroup(); total > uint64(limit) {
		e.fail(fmt.Errorf("thread group of %d threads exceeds pipeline %q limit %d", total, e.pipeline.label, limit))
		return
	}
	bgs, err := e.bindGroups(e.pipeline.label, e.pipeline.layout, stageSlots{fn: e.pipeline.function, slots: e.slots})
	if err != nil {
		e.fail(err)
		return
	}
	for i, bg := range bgs {
		e.raw.SetBindGroup(uint32(i), bg, nil)
	}
	wg := e.pipeline.WorkgroupSize()
	e.raw.DispatchWorkgroups(
		common.CeilDiv(groups.Width*threadsPerGroup.Width, wg.Width),
		common.CeilDiv(groups.Height*threadsPerGroup.Height, wg.Height),
		common.CeilDiv(groups.Depth*threadsPerGroup.Depth, wg.Depth),
	)
}

func (e *computeEncoder) End() error {
	if e.ended {
		return fmt.Errorf("compute encoder already ended")
	}
	e.ended = true
	e.raw.End()
	e.raw.Release()
	e.cb.endPass(e.err)
	return e.err
}

// renderEncoder records a render pass.
type renderEncoder struct {
	bindingSet
	raw      *wgpu.RenderPassEncoder
	target   *texture
	pipeline *renderPipeline
	vertex   map[int]slot
	fragment map[int]slot
}

var _ renderer.RenderPassEncoder = &renderEncoder{}

func (e *renderEncoder) SetPipeline(p renderer.RenderPipeline) {
	rp, ok := p.(*renderPipeline)
	if !ok || rp.dev != e.cb.dev {
		e.fail(fmt.Errorf("set render pipeline: %w", renderer.ErrForeignDevice))
		return
	}
	e.pipeline = rp
	e.raw.SetPipeline(rp.raw)
}

func (e *renderEncoder) SetViewport(v renderer.Viewport) {
	e.raw.SetViewport(float32(v.X), float32(v.Y), float32(v.Width), float32(v.Height), float32(v.ZNear), float32(v.ZFar))
}

func (e *renderEncoder) SetVertexBuffer(buf renderer.Buffer, offset int, index int) {
	e.bindBuffer(e.vertex, "setVertexBuffer", buf, offset, index)
}

func (e *renderEncoder) SetVertexBytes(data []byte, index int) {
	e.bindBytes(e.vertex, data, index)
}

func (e *renderEncoder) SetFragmentTexture(tex renderer.Texture, index int) {
	e.bindTexture(e.fragment, "setFragmentTexture", tex, index)
}

func (e *renderEncoder) SetFragmentBytes(data []byte, index int) {
	e.bindBytes(e.fragment, data, index)
}

func (e *renderEncoder) Draw(primitive renderer.PrimitiveType, start, count int) {
	if e.pipeline == nil {
		e.fail(fmt.Errorf("draw without a render pipeline"))
		return
	}
	if start < 0 || count < 0 {
		e.fail(fmt.Errorf("draw with negative range start=%d count=%d", start, count))
		return
	}
	if topology(primitive) != wgpu.PrimitiveTopologyTriangleList {
		e.fail(fmt.Errorf("pipeline %q is built for triangle lists, draw asked for %s", e.pipeline.label, primitive))
		return
	}
	if e.pipeline.format != e.target.format {
		e.fail(fmt.Errorf("pipeline %q renders %s, attachment %q is %s", e.pipeline.label, e.pipeline.format, e.target.label, e.target.format))
		return
	}
	if e.pipeline.sampleCount != e.target.samples {
		e.fail(fmt.Errorf("pipeline %q sample count %d, attachment %q has %d", e.pipeline.label, e.pipeline.sampleCount, e.target.label, e.target.samples))
		return
	}
	bgs, err := e.bindGroups(e.pipeline.label, e.pipeline.layout,
		stageSlots{fn: e.pipeline.vertex, slots: e.vertex},
		stageSlots{fn: e.pipeline.fragment, slots: e.fragment},
	)
	if err != nil {
		e.fail(err)
		return
	}
	for i, bg := range bgs {
		e.raw.SetBindGroup(uint32(i), bg, nil)
	}
	e.raw.Draw(uint32(count), 1, uint32(start), 0)
}

func (e *renderEncoder) End() error {
	if e.ended {
		return fmt.Errorf("render encoder already ended")
	}
	e.ended = true
	e.raw.End()
	e.raw.Release()
	e.cb.endPass(e.err)
	return e.err
}
