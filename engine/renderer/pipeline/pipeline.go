package pipeline

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-frames/engine/renderer"
	"github.com/Carmen-Shannon/oxy-frames/engine/renderer/shader"
)

// PipelineType identifies whether a pipeline is a compute pipeline or a render pipeline.
type PipelineType int

const (
	// PipelineTypeCompute indicates a compute pipeline with a single compute entry point.
	PipelineTypeCompute PipelineType = iota

	// PipelineTypeRender indicates a render pipeline with vertex and fragment entry points.
	PipelineTypeRender
)

func (t PipelineType) String() string {
	switch t {
	case PipelineTypeCompute:
		return "compute"
	case PipelineTypeRender:
		return "render"
	}
	return fmt.Sprintf("PipelineType(%d)", int(t))
}

// descriptor is the implementation of the Descriptor interface.
type descriptor struct {
	pipelineType PipelineType
	pipelineKey  string
	label        string

	// function names resolved against a shader library at build time
	computeFunction, vertexFunction, fragmentFunction string

	maxThreadsPerGroup uint32
	colorFormat        renderer.PixelFormat
	sampleCount        uint32
	blendEnabled       bool
}

// Descriptor is the immutable specification of a pipeline configuration. It names the entry
// points by string; they are resolved against a shader.Library when the pipeline is built.
type Descriptor interface {
	// Type returns the type of the pipeline.
	//
	// Returns:
	//   - PipelineType: the type of the pipeline (render or compute)
	Type() PipelineType

	// PipelineKey returns the unique key associated with this pipeline, used for lookups by passes.
	//
	// Returns:
	//   - string: the unique key for this pipeline
	PipelineKey() string

	// Label returns the debug label, defaulting to the key.
	//
	// Returns:
	//   - string: the label
	Label() string

	// FunctionNames returns the entry point names this pipeline needs, in stage order
	// (compute, or vertex then fragment).
	//
	// Returns:
	//   - []string: the entry point names
	FunctionNames() []string

	// ComputeDescriptor resolves a compute pipeline against lib.
	//
	// Parameters:
	//   - lib: the shader library
	//
	// Returns:
	//   - renderer.ComputePipelineDescriptor: the device-level descriptor
	//   - error: *shader.EntryPointNotFound for missing names, or a stage mismatch
	ComputeDescriptor(lib shader.Library) (renderer.ComputePipelineDescriptor, error)

	// RenderDescriptor resolves a render pipeline against lib.
	//
	// Parameters:
	//   - lib: the shader library
	//
	// Returns:
	//   - renderer.RenderPipelineDescriptor: the device-level descriptor
	//   - error: *shader.EntryPointNotFound for missing names, or a stage mismatch
	RenderDescriptor(lib shader.Library) (renderer.RenderPipelineDescriptor, error)

	// ColorFormat returns the color attachment format of a render pipeline.
	ColorFormat() renderer.PixelFormat

	// SampleCount returns the sample count of a render pipeline.
	SampleCount() uint32
}

var _ Descriptor = &descriptor{}

// NewCompute creates a compute pipeline descriptor.
//
// Parameters:
//   - key: the unique pipeline key
//   - function: the compute entry point name
//   - options: functional options
//
// Returns:
//   - Descriptor: the descriptor
func NewCompute(key, function string, options ...PipelineBuilderOption) Descriptor {
	d := &descriptor{
		pipelineType:    PipelineTypeCompute,
		pipelineKey:     key,
		computeFunction: function,
	}
	for _, opt := range options {
		opt(d)
	}
	return d
}

// NewRender creates a render pipeline descriptor. The color format defaults to BGRA8Unorm and
// the sample count to 1.
//
// Parameters:
//   - key: the unique pipeline key
//   - vertex: the vertex entry point name
//   - fragment: the fragment entry point name
//   - options: functional options
//
// Returns:
//   - Descriptor: the descriptor
func NewRender(key, vertex, fragment string, options ...PipelineBuilderOption) Descriptor {
	d := &descriptor{
		pipelineType:     PipelineTypeRender,
		pipelineKey:      key,
		vertexFunction:   vertex,
		fragmentFunction: fragment,
		colorFormat:      renderer.PixelFormatBGRA8Unorm,
		sampleCount:      1,
	}
	for _, opt := range options {
		opt(d)
	}
	return d
}

func (d *descriptor) Type() PipelineType {
	return d.pipelineType
}

func (d *descriptor) PipelineKey() string {
	return d.pipelineKey
}

func (d *descriptor) Label() string {
	if d.label != "" {
		return d.label
	}
	return d.pipelineKey
}

func (d *descriptor) FunctionNames() []string {
	if d.pipelineType == PipelineTypeCompute {
		return []string{d.computeFunction}
	}
	return []string{d.vertexFunction, d.fragmentFunction}
}

func (d *descriptor) ColorFormat() renderer.PixelFormat {
	return d.colorFormat
}

func (d *descriptor) SampleCount() uint32 {
	return d.sampleCount
}

func (d *descriptor) ComputeDescriptor(lib shader.Library) (renderer.ComputePipelineDescriptor, error) {
	if d.pipelineType != PipelineTypeCompute {
		return renderer.ComputePipelineDescriptor{}, fmt.Errorf("pipeline %q is a %s pipeline", d.pipelineKey, d.pipelineType)
	}
	fn, err := resolve(lib, d.computeFunction, shader.ShaderTypeCompute)
	if err != nil {
		return renderer.ComputePipelineDescriptor{}, err
	}
	return renderer.ComputePipelineDescriptor{
		Label:              d.Label(),
		Function:           fn,
		MaxThreadsPerGroup: d.maxThreadsPerGroup,
	}, nil
}

func (d *descriptor) RenderDescriptor(lib shader.Library) (renderer.RenderPipelineDescriptor, error) {
	if d.pipelineType != PipelineTypeRender {
		return renderer.RenderPipelineDescriptor{}, fmt.Errorf("pipeline %q is a %s pipeline", d.pipelineKey, d.pipelineType)
	}
	vs, err := resolve(lib, d.vertexFunction, shader.ShaderTypeVertex)
	if err != nil {
		return renderer.RenderPipelineDescriptor{}, err
	}
	fs, err := resolve(lib, d.fragmentFunction, shader.ShaderTypeFragment)
	if err != nil {
		return renderer.RenderPipelineDescriptor{}, err
	}
	return renderer.RenderPipelineDescriptor{
		Label:       d.Label(),
		Vertex:      vs,
		Fragment:    fs,
		ColorFormat: d.colorFormat,
		SampleCount: d.sampleCount,
		Blending:    d.blendEnabled,
	}, nil
}

func resolve(lib shader.Library, name string, stage shader.ShaderType) (*shader.Function, error) {
	if lib == nil {
		return nil, &shader.EntryPointNotFound{Name: name}
	}
	fn, err := lib.Function(name)
	if err != nil {
		return nil, err
	}
	if fn.Stage != stage {
		return nil, fmt.Errorf("entry point %q is a %s function, expected %s", name, fn.Stage, stage)
	}
	return fn, nil
}
