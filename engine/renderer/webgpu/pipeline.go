package webgpu

import (
	"fmt"
	"slices"

	"github.com/Carmen-Shannon/oxy-frames/common"
	"github.com/Carmen-Shannon/oxy-frames/engine/renderer"
	"github.com/Carmen-Shannon/oxy-frames/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// groupLayouts holds the bind group layout entries of a pipeline keyed by @group.
type groupLayouts map[uint32][]wgpu.BindGroupLayoutEntry

// layoutEntries converts the reflected bindings of fn into layout entries visible to stage.
func layoutEntries(fn *shader.Function, stage wgpu.ShaderStage) (groupLayouts, error) {
	layouts := make(groupLayouts)
	for _, b := range fn.Bindings {
		entry := wgpu.BindGroupLayoutEntry{
			Binding:    b.Binding,
			Visibility: stage,
		}
		switch b.Kind {
		case shader.BindingUniform:
			entry.Buffer.Type = wgpu.BufferBindingTypeUniform
		case shader.BindingStorage:
			entry.Buffer.Type = wgpu.BufferBindingTypeStorage
		case shader.BindingReadOnlyStorage:
			entry.Buffer.Type = wgpu.BufferBindingTypeReadOnlyStorage
		case shader.BindingSampledTexture:
			entry.Texture.SampleType = wgpu.TextureSampleTypeFloat
			entry.Texture.ViewDimension = wgpu.TextureViewDimension2D
			entry.Texture.Multisampled = b.Multisampled
		case shader.BindingStorageTexture:
			format, err := storageFormat(b.StorageFormat)
			if err != nil {
				return nil, fmt.Errorf("%q: %w", b.Name, err)
			}
			entry.StorageTexture.Format = format
			entry.StorageTexture.ViewDimension = wgpu.TextureViewDimension2D
			switch b.Access {
			case shader.TextureAccessRead:
				entry.StorageTexture.Access = wgpu.StorageTextureAccessReadOnly
			case shader.TextureAccessReadWrite:
				entry.StorageTexture.Access = wgpu.StorageTextureAccessReadWrite
			default:
				entry.StorageTexture.Access = wgpu.StorageTextureAccessWriteOnly
			}
		case shader.BindingSampler:
			entry.Sampler.Type = wgpu.SamplerBindingTypeFiltering
		}
		layouts[b.Group] = append(layouts[b.Group], entry)
	}
	return layouts, nil
}

// mergeLayouts combines the layouts of two stages. A binding used by both stages keeps the first
// stage's entry with both visibilities.
func mergeLayouts(a, b groupLayouts) groupLayouts {
	merged := make(groupLayouts)
	for g, entries := range a {
		merged[g] = slices.Clone(entries)
	}
	for g, entries := range b {
		for _, e := range entries {
			i := slices.IndexFunc(merged[g], func(m wgpu.BindGroupLayoutEntry) bool { return m.Binding == e.Binding })
			if i >= 0 {
				merged[g][i].Visibility |= e.Visibility
				continue
			}
			merged[g] = append(merged[g], e)
		}
	}
	for g := range merged {
		slices.SortFunc(merged[g], func(x, y wgpu.BindGroupLayoutEntry) int {
			return int(x.Binding) - int(y.Binding)
		})
	}
	return merged
}

// pipelineLayout owns the bind group layouts of one pipeline. Groups without bindings up to the
// highest used group get empty layouts so group indices stay dense.
type pipelineLayout struct {
	groups []*wgpu.BindGroupLayout
	raw    *wgpu.PipelineLayout
}

func newPipelineLayout(d *device, label string, layouts groupLayouts) (*pipelineLayout, error) {
	count := 0
	for g := range layouts {
		count = max(count, int(g)+1)
	}
	pl := &pipelineLayout{groups: make([]*wgpu.BindGroupLayout, count)}
	for g := range pl.groups {
		bgl, err := d.raw.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
			Label:   fmt.Sprintf("%s group %d", label, g),
			Entries: layouts[uint32(g)],
		})
		if err != nil {
			pl.release()
			return nil, err
		}
		pl.groups[g] = bgl
	}
	raw, err := d.raw.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            label,
		BindGroupLayouts: pl.groups,
	})
	if err != nil {
		pl.release()
		return nil, err
	}
	pl.raw = raw
	return pl, nil
}

func (pl *pipelineLayout) release() {
	for _, g := range pl.groups {
		if g != nil {
			g.Release()
		}
	}
	pl.groups = nil
	if pl.raw != nil {
		pl.raw.Release()
		pl.raw = nil
	}
}

func shaderModule(d *device, fn *shader.Function) (*wgpu.ShaderModule, error) {
	return d.raw.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: fn.Module,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: fn.Source,
		},
	})
}

// computePipeline is a compiled compute pipeline. Its thread group size is fixed by the function's
// @workgroup_size.
type computePipeline struct {
	dev      *device
	label    string
	function *shader.Function
	layout   *pipelineLayout
	raw      *wgpu.ComputePipeline
}

var _ renderer.ComputePipeline = &computePipeline{}

func newComputePipeline(d *device, desc renderer.ComputePipelineDescriptor) (*computePipeline, error) {
	if desc.Function == nil {
		return nil, &renderer.PipelineBuildError{Pipeline: desc.Label, Diagnostic: "no compute function"}
	}
	wg := desc.Function.WorkgroupSize
	if total := uint64(wg[0]) * uint64(wg[1]) * uint64(wg[2]); total > uint64(d.limits.MaxThreadsPerThreadgroup) {
		return nil, &renderer.PipelineBuildError{
			Pipeline:   desc.Label,
			Diagnostic: fmt.Sprintf("workgroup size %v exceeds %d threads", wg, d.limits.MaxThreadsPerThreadgroup),
		}
	}

	layouts, err := layoutEntries(desc.Function, wgpu.ShaderStageCompute)
	if err != nil {
		return nil, &renderer.PipelineBuildError{Pipeline: desc.Label, Diagnostic: "bind group layout", Err: err}
	}
	layout, err := newPipelineLayout(d, desc.Label, layouts)
	if err != nil {
		return nil, &renderer.PipelineBuildError{Pipeline: desc.Label, Diagnostic: "pipeline layout", Err: err}
	}
	module, err := shaderModule(d, desc.Function)
	if err != nil {
		layout.release()
		return nil, &renderer.PipelineBuildError{Pipeline: desc.Label, Diagnostic: "shader module " + desc.Function.Module, Err: err}
	}
	defer module.Release()

	raw, err := d.raw.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:  desc.Label,
		Layout: layout.raw,
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     module,
			EntryPoint: desc.Function.Name,
		},
	})
	if err != nil {
		layout.release()
		return nil, &renderer.PipelineBuildError{Pipeline: desc.Label, Err: err}
	}

	common.Logger().Debug("compute pipeline built", "label", desc.Label, "function", desc.Function.Name, "workgroup", wg)
	return &computePipeline{
		dev:      d,
		label:    desc.Label,
		function: desc.Function,
		layout:   layout,
		raw:      raw,
	}, nil
}

func (p *computePipeline) Label() string           { return p.label }
func (p *computePipeline) Device() renderer.Device { return p.dev }
func (p *computePipeline) FunctionName() string    { return p.function.Name }

// MaxTotalThreadsPerThreadgroup is the compiled workgroup size: WebGPU cannot launch other sizes.
func (p *computePipeline) MaxTotalThreadsPerThreadgroup() uint32 {
	return uint32(p.WorkgroupSize().Total())
}

func (p *computePipeline) WorkgroupSize() renderer.Size {
	wg := p.function.WorkgroupSize
	return renderer.Size{
		Width:  common.Coalesce(wg[0], 1),
		Height: common.Coalesce(wg[1], 1),
		Depth:  common.Coalesce(wg[2], 1),
	}
}

// renderPipeline is a compiled render pipeline with one color target.
type renderPipeline struct {
	dev         *device
	label       string
	vertex      *shader.Function
	fragment    *shader.Function
	format      renderer.PixelFormat
	sampleCount uint32
	layout      *pipelineLayout
	raw         *wgpu.RenderPipeline
}

var _ renderer.RenderPipeline = &renderPipeline{}

func blendState() *wgpu.BlendState {
	return &wgpu.BlendState{
		Color: wgpu.BlendComponent{
			SrcFactor: wgpu.BlendFactorSrcAlpha,
			DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
			Operation: wgpu.BlendOperationAdd,
		},
		Alpha: wgpu.BlendComponent{
			SrcFactor: wgpu.BlendFactorOne,
			DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
			Operation: wgpu.BlendOperationAdd,
		},
	}
}

func newRenderPipeline(d *device, desc renderer.RenderPipelineDescriptor) (*renderPipeline, error) {
	if desc.Vertex == nil || desc.Fragment == nil {
		return nil, &renderer.PipelineBuildError{Pipeline: desc.Label, Diagnostic: "render pipelines need a vertex and a fragment function"}
	}
	format, err := textureFormat(desc.ColorFormat)
	if err != nil {
		return nil, &renderer.PipelineBuildError{Pipeline: desc.Label, Diagnostic: fmt.Sprintf("color format %s", desc.ColorFormat), Err: err}
	}
	samples := common.Coalesce(desc.SampleCount, 1)
	if !renderer.MSAASampleCount(samples).Valid() {
		return nil, &renderer.PipelineBuildError{
			Pipeline:   desc.Label,
			Diagnostic: fmt.Sprintf("sample count %d", samples),
			Err:        renderer.ErrUnsupportedSampleCount,
		}
	}

	vertexLayouts, err := layoutEntries(desc.Vertex, wgpu.ShaderStageVertex)
	if err != nil {
		return nil, &renderer.PipelineBuildError{Pipeline: desc.Label, Diagnostic: "vertex bind group layout", Err: err}
	}
	fragmentLayouts, err := layoutEntries(desc.Fragment, wgpu.ShaderStageFragment)
	if err != nil {
		return nil, &renderer.PipelineBuildError{Pipeline: desc.Label, Diagnostic: "fragment bind group layout", Err: err}
	}
	layout, err := newPipelineLayout(d, desc.Label, mergeLayouts(vertexLayouts, fragmentLayouts))
	if err != nil {
		return nil, &renderer.PipelineBuildError{Pipeline: desc.Label, Diagnostic: "pipeline layout", Err: err}
	}

	vs, err := shaderModule(d, desc.Vertex)
	if err != nil {
		layout.release()
		return nil, &renderer.PipelineBuildError{Pipeline: desc.Label, Diagnostic: "shader module " + desc.Vertex.Module, Err: err}
	}
	defer vs.Release()
	fs := vs
	if desc.Fragment.Module != desc.Vertex.Module {
		if fs, err = shaderModule(d, desc.Fragment); err != nil {
			layout.release()
			return nil, &renderer.PipelineBuildError{Pipeline: desc.Label, Diagnostic: "shader module " + desc.Fragment.Module, Err: err}
		}
		defer fs.Release()
	}

	target := wgpu.ColorTargetState{
		Format:    format,
		WriteMask: wgpu.ColorWriteMaskAll,
	}
	if desc.Blending {
		target.Blend = blendState()
	}

	raw, err := d.raw.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  desc.Label,
		Layout: layout.raw,
		Vertex: wgpu.VertexState{
			Module:     vs,
			EntryPoint: desc.Vertex.Name,
		},
		Fragment: &wgpu.FragmentState{
			Module:     fs,
			EntryPoint: desc.Fragment.Name,
			Targets:    []wgpu.ColorTargetState{target},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		Multisample: wgpu.MultisampleState{
			Count: samples,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		layout.release()
		return nil, &renderer.PipelineBuildError{Pipeline: desc.Label, Err: err}
	}

	common.Logger().Debug("render pipeline built", "label", desc.Label, "vertex", desc.Vertex.Name, "fragment", desc.Fragment.Name)
	return &renderPipeline{
		dev:         d,
		label:       desc.Label,
		vertex:      desc.Vertex,
		fragment:    desc.Fragment,
		format:      desc.ColorFormat,
		sampleCount: samples,
		layout:      layout,
		raw:         raw,
	}, nil
}

func (p *renderPipeline) Label() string                     { return p.label }
func (p *renderPipeline) Device() renderer.Device           { return p.dev }
func (p *renderPipeline) ColorFormat() renderer.PixelFormat { return p.format }
func (p *renderPipeline) SampleCount() uint32               { return p.sampleCount }
