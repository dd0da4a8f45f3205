package pipeline

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-frames/engine/renderer"
	"github.com/Carmen-Shannon/oxy-frames/engine/renderer/shader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSource = `
@group(0) @binding(0) var<storage, read_write> data: array<f32>;

@compute @workgroup_size(8)
fn double_values(@builtin(global_invocation_id) gid: vec3<u32>) {
    data[gid.x] = data[gid.x] * 2.0;
}

@vertex
fn fullscreen(@builtin(vertex_index) vid: u32) -> @builtin(position) vec4<f32> {
    let x = f32(i32(vid & 1u) * 4 - 1);
    let y = f32(i32(vid >> 1u) * 4 - 1);
    return vec4<f32>(x, y, 0.0, 1.0);
}

@fragment
fn solid() -> @location(0) vec4<f32> {
    return vec4<f32>(1.0, 0.0, 0.0, 1.0);
}
`

func testLibrary(t *testing.T) shader.Library {
	t.Helper()
	lib, err := shader.NewLibrary(shader.WithSource("test.wgsl", testSource), shader.WithValidation(false))
	require.NoError(t, err)
	return lib
}

func TestComputeDescriptor(t *testing.T) {
	d := NewCompute("double", "double_values", WithMaxThreadsPerGroup(32))
	assert.Equal(t, PipelineTypeCompute, d.Type())
	assert.Equal(t, "double", d.PipelineKey())
	assert.Equal(t, "double", d.Label())
	assert.Equal(t, []string{"double_values"}, d.FunctionNames())

	desc, err := d.ComputeDescriptor(testLibrary(t))
	require.NoError(t, err)
	assert.Equal(t, "double_values", desc.Function.Name)
	assert.Equal(t, uint32(32), desc.MaxThreadsPerGroup)

	_, err = d.RenderDescriptor(testLibrary(t))
	assert.Error(t, err)
}

func TestRenderDescriptorDefaults(t *testing.T) {
	d := NewRender("solid", "fullscreen", "solid", WithLabel("solid fill"))
	assert.Equal(t, renderer.PixelFormatBGRA8Unorm, d.ColorFormat())
	assert.Equal(t, uint32(1), d.SampleCount())
	assert.Equal(t, "solid fill", d.Label())

	desc, err := d.RenderDescriptor(testLibrary(t))
	require.NoError(t, err)
	assert.Equal(t, "fullscreen", desc.Vertex.Name)
	assert.Equal(t, "solid", desc.Fragment.Name)
	assert.False(t, desc.Blending)
}

func TestRenderDescriptorOptions(t *testing.T) {
	d := NewRender("solid", "fullscreen", "solid",
		WithColorFormat(renderer.PixelFormatRGBA8UnormSRGB),
		WithSampleCount(4),
		WithBlendEnabled(true),
	)
	desc, err := d.RenderDescriptor(testLibrary(t))
	require.NoError(t, err)
	assert.Equal(t, renderer.PixelFormatRGBA8UnormSRGB, desc.ColorFormat)
	assert.Equal(t, uint32(4), desc.SampleCount)
	assert.True(t, desc.Blending)
}

func TestDescriptorMissingEntryPoint(t *testing.T) {
	_, err := NewCompute("missing", "no_such_kernel").ComputeDescriptor(testLibrary(t))
	var notFound *shader.EntryPointNotFound
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, "no_such_kernel", notFound.Name)

	_, err = NewCompute("missing", "no_such_kernel").ComputeDescriptor(nil)
	assert.True(t, errors.As(err, &notFound))
}

func TestDescriptorWrongStage(t *testing.T) {
	_, err := NewCompute("wrong", "fullscreen").ComputeDescriptor(testLibrary(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "vertex function")

	_, err = NewRender("wrong", "solid", "solid").RenderDescriptor(testLibrary(t))
	assert.Error(t, err)
}
