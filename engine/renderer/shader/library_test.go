package shader

import (
	"errors"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const addSource = `
@group(0) @binding(0) var<storage, read> inA: array<f32>;
@group(0) @binding(1) var<storage, read> inB: array<f32>;
@group(0) @binding(2) var<storage, read_write> result: array<f32>;

@compute @workgroup_size(64)
fn add_arrays(@builtin(global_invocation_id) gid: vec3<u32>) {
    let i = gid.x;
    if (i >= arrayLength(&result)) {
        return;
    }
    result[i] = inA[i] + inB[i];
}
`

const quadInclude = `
struct VertexOut {
    @builtin(position) position: vec4<f32>,
    @location(0) uv: vec2<f32>,
}
`

const quadSource = `
//@oxy:include quad

struct Vertex {
    position: vec2<f32>,
    uv: vec2<f32>,
}

@group(0) @binding(0) var<storage, read> vertices: array<Vertex>;
@group(0) @binding(1) var<uniform> viewport: vec2<u32>;

@group(1) @binding(0) var colorTexture: texture_2d<f32>;
@group(1) @binding(16) var colorSampler: sampler;

@vertex
fn vertexShader(@builtin(vertex_index) vid: u32) -> VertexOut {
    let v = vertices[vid];
    let halfSize = vec2<f32>(viewport) / 2.0;
    var output: VertexOut;
    output.position = vec4<f32>(v.position / halfSize, 0.0, 1.0);
    output.uv = v.uv;
    return output;
}

@fragment
fn samplingShader(input: VertexOut) -> @location(0) vec4<f32> {
    return textureSample(colorTexture, colorSampler, input.uv);
}
`

func TestLibraryReflectsCompute(t *testing.T) {
	lib, err := NewLibrary(WithLabel("adder"), WithSource("add.wgsl", addSource))
	require.NoError(t, err)

	f, err := lib.Function("add_arrays")
	require.NoError(t, err)
	assert.Equal(t, ShaderTypeCompute, f.Stage)
	assert.Equal(t, [3]uint32{64, 1, 1}, f.WorkgroupSize)
	assert.Equal(t, "add.wgsl", f.Module)
	assert.NotEmpty(t, f.SPIRV)

	require.Len(t, f.Bindings, 3)
	assert.Equal(t, BindingReadOnlyStorage, f.Bindings[0].Kind)
	assert.Equal(t, "inA", f.Bindings[0].Name)
	assert.Equal(t, BindingReadOnlyStorage, f.Bindings[1].Kind)
	assert.Equal(t, BindingStorage, f.Bindings[2].Kind)

	b, ok := f.Slot(2)
	require.True(t, ok)
	assert.Equal(t, "result", b.Name)
	_, ok = f.Slot(3)
	assert.False(t, ok)

	assert.Equal(t, []string{"add_arrays"}, lib.Names())
	assert.Equal(t, "adder", lib.Label())
}

const helperSource = `
@group(0) @binding(0) var<storage, read> values: array<f32>;
@group(0) @binding(1) var<storage, read_write> doubled: array<f32>;
@group(0) @binding(2) var<storage, read_write> negated: array<f32>;

fn load(i: u32) -> f32 {
    return values[i];
}

fn storeDoubled(i: u32) {
    doubled[i] = load(i) * 2.0;
}

@compute @workgroup_size(64)
fn double_values(@builtin(global_invocation_id) gid: vec3<u32>) {
    if (gid.x < arrayLength(&doubled)) {
        storeDoubled(gid.x);
    }
}

@compute @workgroup_size(64)
fn negate_values(@builtin(global_invocation_id) gid: vec3<u32>) {
    negated[gid.x] = -values[gid.x];
}
`

func TestLibraryResolvesHelperCalls(t *testing.T) {
	lib, err := NewLibrary(WithSource("helpers.wgsl", helperSource))
	require.NoError(t, err)

	names := func(f *Function) []string {
		out := make([]string, 0, len(f.Bindings))
		for _, b := range f.Bindings {
			out = append(out, b.Name)
		}
		return out
	}

	double, err := lib.Function("double_values")
	require.NoError(t, err)
	assert.Equal(t, []string{"values", "doubled"}, names(double), "globals reached through nested helpers")

	negate, err := lib.Function("negate_values")
	require.NoError(t, err)
	assert.Equal(t, []string{"values", "negated"}, names(negate), "helpers it never calls add nothing")
}

func TestLibraryReflectsRenderStages(t *testing.T) {
	lib, err := NewLibrary(WithInclude("quad", quadInclude), WithSource("quad.wgsl", quadSource))
	require.NoError(t, err)

	vs, err := lib.Function("vertexShader")
	require.NoError(t, err)
	assert.Equal(t, ShaderTypeVertex, vs.Stage)
	assert.Equal(t, [3]uint32{}, vs.WorkgroupSize)
	assert.Equal(t, ResourceGroup, vs.SlotGroup())

	viewport, ok := vs.Slot(1)
	require.True(t, ok)
	assert.Equal(t, BindingUniform, viewport.Kind)
	assert.Equal(t, uint32(8), viewport.Size)
	assert.Empty(t, vs.Group(FragmentGroup))

	fs, err := lib.Function("samplingShader")
	require.NoError(t, err)
	assert.Equal(t, ShaderTypeFragment, fs.Stage)
	assert.Equal(t, FragmentGroup, fs.SlotGroup())

	tex, ok := fs.Slot(0)
	require.True(t, ok)
	assert.Equal(t, BindingSampledTexture, tex.Kind)

	smp, ok := fs.Binding(FragmentGroup, SamplerBindingOffset)
	require.True(t, ok)
	assert.Equal(t, BindingSampler, smp.Kind)
	assert.Equal(t, 0, smp.Slot())

	assert.Len(t, lib.Functions(), 2)
}

func TestLibraryEntryPointNotFound(t *testing.T) {
	lib, err := NewLibrary(WithLabel("adder"), WithSource("add.wgsl", addSource))
	require.NoError(t, err)

	_, err = lib.Function("missing_kernel")
	var notFound *EntryPointNotFound
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, "missing_kernel", notFound.Name)
	assert.Contains(t, err.Error(), "missing_kernel")
}

func TestLibraryParseError(t *testing.T) {
	_, err := NewLibrary(WithSource("broken.wgsl", "fn broken( {"))
	var compileErr *CompileError
	require.True(t, errors.As(err, &compileErr))
	assert.Equal(t, "broken.wgsl", compileErr.Module)
	assert.Equal(t, "parse", compileErr.Stage)
}

func TestLibraryUnknownInclude(t *testing.T) {
	_, err := NewLibrary(WithSource("quad.wgsl", quadSource))
	var compileErr *CompileError
	require.True(t, errors.As(err, &compileErr))
	assert.Equal(t, "pre-process", compileErr.Stage)
}

func TestLibraryDuplicateEntryPoint(t *testing.T) {
	_, err := NewLibrary(
		WithSource("a.wgsl", addSource),
		WithSource("b.wgsl", addSource),
		WithValidation(false),
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already declared")
}

func TestLibraryWithoutValidation(t *testing.T) {
	lib, err := NewLibrary(WithSource("add.wgsl", addSource), WithValidation(false))
	require.NoError(t, err)
	f, err := lib.Function("add_arrays")
	require.NoError(t, err)
	assert.Nil(t, f.SPIRV)
}

func TestLibrarySourceFS(t *testing.T) {
	fsys := fstest.MapFS{
		"shaders/_quad.wgsl": {Data: []byte(quadInclude)},
		"shaders/quad.wgsl":  {Data: []byte(quadSource)},
		"shaders/add.wgsl":   {Data: []byte(addSource)},
	}
	lib, err := NewLibrary(WithSourceFS(fsys, "shaders/*.wgsl"))
	require.NoError(t, err)
	assert.Equal(t, []string{"add_arrays", "vertexShader", "samplingShader"}, lib.Names())
}

func TestLibrarySourceFSNoMatches(t *testing.T) {
	_, err := NewLibrary(WithSourceFS(fstest.MapFS{}, "*.wgsl"))
	assert.Error(t, err)
}

func TestLibrarySourceFromPathMissing(t *testing.T) {
	_, err := NewLibrary(WithSourceFromPath(t.TempDir() + "/missing.wgsl"))
	assert.Error(t, err)
}

func TestBindingKindString(t *testing.T) {
	assert.Equal(t, "read-only-storage", BindingReadOnlyStorage.String())
	assert.True(t, BindingUniform.IsBuffer())
	assert.True(t, BindingStorageTexture.IsTexture())
	assert.False(t, BindingSampler.IsBuffer())
	assert.Equal(t, "fragment", ShaderTypeFragment.String())
}
