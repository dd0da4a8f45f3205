package webgpu

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-frames/engine/renderer"
	"github.com/Carmen-Shannon/oxy-frames/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextureFormatRoundTrip(t *testing.T) {
	for _, f := range []renderer.PixelFormat{
		renderer.PixelFormatRGBA8Unorm,
		renderer.PixelFormatRGBA8UnormSRGB,
		renderer.PixelFormatBGRA8Unorm,
		renderer.PixelFormatBGRA8UnormSRGB,
	} {
		raw, err := textureFormat(f)
		require.NoError(t, err, f.String())
		back, ok := pixelFormat(raw)
		require.True(t, ok, f.String())
		assert.Equal(t, f, back)
	}

	_, err := textureFormat(renderer.PixelFormatInvalid)
	assert.ErrorIs(t, err, renderer.ErrUnsupportedFormat)

	_, ok := pixelFormat(wgpu.TextureFormatR32Float)
	assert.False(t, ok)
}

func TestStorageFormat(t *testing.T) {
	f, err := storageFormat("rgba8unorm")
	require.NoError(t, err)
	assert.Equal(t, wgpu.TextureFormatRGBA8Unorm, f)

	_, err = storageFormat("rg11b10float")
	assert.ErrorIs(t, err, renderer.ErrUnsupportedFormat)
}

func TestTextureUsage(t *testing.T) {
	u := textureUsage(renderer.TextureUsageShaderRead | renderer.TextureUsageRenderTarget)
	assert.NotZero(t, u&wgpu.TextureUsageTextureBinding)
	assert.NotZero(t, u&wgpu.TextureUsageRenderAttachment)
	assert.NotZero(t, u&wgpu.TextureUsageCopySrc)
	assert.Zero(t, u&wgpu.TextureUsageStorageBinding)

	assert.NotZero(t, textureUsage(renderer.TextureUsageShaderWrite)&wgpu.TextureUsageStorageBinding)
}

func TestAlignment(t *testing.T) {
	assert.Equal(t, uint32(256), alignedRow(4))
	assert.Equal(t, uint32(256), alignedRow(256))
	assert.Equal(t, uint32(3328), alignedRow(800*4))

	assert.Equal(t, uint64(16), alignedSize(0))
	assert.Equal(t, uint64(16), alignedSize(8))
	assert.Equal(t, uint64(32), alignedSize(17))

	assert.Equal(t, []byte{1, 2, 3, 0}, padded([]byte{1, 2, 3}))
	four := []byte{1, 2, 3, 4}
	assert.Same(t, &four[0], &padded(four)[0])
}

func TestPresentAndPassModes(t *testing.T) {
	assert.Equal(t, wgpu.PresentModeFifo, presentMode(renderer.PresentModeVSync))
	assert.Equal(t, wgpu.PresentModeImmediate, presentMode(renderer.PresentModeUncapped))
	assert.Equal(t, wgpu.LoadOpLoad, loadOp(renderer.LoadActionLoad))
	assert.Equal(t, wgpu.LoadOpClear, loadOp(renderer.LoadActionDontCare))
	assert.Equal(t, wgpu.StoreOpDiscard, storeOp(renderer.StoreActionDontCare))
	assert.Equal(t, wgpu.PrimitiveTopologyTriangleStrip, topology(renderer.PrimitiveTypeTriangleStrip))
}

func TestLayoutEntries(t *testing.T) {
	fn := &shader.Function{
		Name:  "samplingShader",
		Stage: shader.ShaderTypeFragment,
		Bindings: []shader.Binding{
			{Name: "colorTexture", Group: 1, Binding: 0, Kind: shader.BindingSampledTexture},
			{Name: "colorSampler", Group: 1, Binding: 16, Kind: shader.BindingSampler},
		},
	}
	layouts, err := layoutEntries(fn, wgpu.ShaderStageFragment)
	require.NoError(t, err)
	require.Len(t, layouts[1], 2)
	assert.Equal(t, wgpu.TextureSampleTypeFloat, layouts[1][0].Texture.SampleType)
	assert.Equal(t, wgpu.SamplerBindingTypeFiltering, layouts[1][1].Sampler.Type)
	assert.Equal(t, uint32(16), layouts[1][1].Binding)

	kernel := &shader.Function{
		Name:  "grayscaleKernel",
		Stage: shader.ShaderTypeCompute,
		Bindings: []shader.Binding{
			{Name: "inTexture", Binding: 0, Kind: shader.BindingSampledTexture},
			{Name: "outTexture", Binding: 1, Kind: shader.BindingStorageTexture, StorageFormat: "rgba8unorm", Access: shader.TextureAccessWrite},
		},
	}
	layouts, err = layoutEntries(kernel, wgpu.ShaderStageCompute)
	require.NoError(t, err)
	assert.Equal(t, wgpu.StorageTextureAccessWriteOnly, layouts[0][1].StorageTexture.Access)
	assert.Equal(t, wgpu.TextureFormatRGBA8Unorm, layouts[0][1].StorageTexture.Format)

	kernel.Bindings[1].StorageFormat = "rg11b10float"
	_, err = layoutEntries(kernel, wgpu.ShaderStageCompute)
	assert.ErrorIs(t, err, renderer.ErrUnsupportedFormat)
}

func TestMergeLayouts(t *testing.T) {
	vertex := groupLayouts{
		0: {
			{Binding: 1, Visibility: wgpu.ShaderStageVertex},
			{Binding: 0, Visibility: wgpu.ShaderStageVertex},
		},
	}
	fragment := groupLayouts{
		0: {{Binding: 1, Visibility: wgpu.ShaderStageFragment}},
		1: {{Binding: 0, Visibility: wgpu.ShaderStageFragment}},
	}
	merged := mergeLayouts(vertex, fragment)

	require.Len(t, merged[0], 2)
	assert.Equal(t, uint32(0), merged[0][0].Binding)
	assert.Equal(t, uint32(1), merged[0][1].Binding)
	assert.Equal(t, wgpu.ShaderStageVertex|wgpu.ShaderStageFragment, merged[0][1].Visibility)
	require.Len(t, merged[1], 1)

	// The inputs are untouched.
	assert.Equal(t, wgpu.ShaderStageVertex, vertex[0][0].Visibility)
}
