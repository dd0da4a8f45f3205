package software

import (
	"context"
	"strings"
	"testing"

	"github.com/Carmen-Shannon/oxy-frames/common"
	"github.com/Carmen-Shannon/oxy-frames/engine/renderer"
	"github.com/Carmen-Shannon/oxy-frames/engine/renderer/shader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	positionVertex = &shader.Function{
		Name:     "positionVertex",
		Stage:    shader.ShaderTypeVertex,
		Bindings: []shader.Binding{{Name: "positions", Binding: 0, Kind: shader.BindingReadOnlyStorage}},
	}
	tintFragment = &shader.Function{
		Name:     "tintFragment",
		Stage:    shader.ShaderTypeFragment,
		Bindings: []shader.Binding{{Name: "tint", Group: shader.FragmentGroup, Binding: 0, Kind: shader.BindingUniform, Size: 16}},
	}
	texturedFragment = &shader.Function{
		Name:  "texturedFragment",
		Stage: shader.ShaderTypeFragment,
		Bindings: []shader.Binding{
			{Name: "tex", Group: shader.FragmentGroup, Binding: 0, Kind: shader.BindingSampledTexture},
			{Name: "samp", Group: shader.FragmentGroup, Binding: shader.SamplerBindingOffset, Kind: shader.BindingSampler},
		},
	}
)

// fullscreenQuad covers clip space with two triangles sharing the diagonal.
var fullscreenQuad = []float32{
	-1, -1, 1, -1, 1, 1,
	-1, -1, 1, 1, -1, 1,
}

var centreTriangle = []float32{
	0, 0.5, -0.5, -0.5, 0.5, -0.5,
}

func rasterFunctions() Functions {
	return Functions{
		Vertex: map[string]VertexFunction{
			"positionVertex": func(id uint32, args *Args) VertexOutput {
				pos := args.Buffer(0)
				return VertexOutput{Position: [4]float32{common.Float32At(pos, int(id)*2), common.Float32At(pos, int(id)*2+1), 0, 1}}
			},
		},
		Fragment: map[string]FragmentFunction{
			"tintFragment": func(_ FragmentInput, args *Args) [4]float32 {
				t := common.BytesToSlice[float32](args.Buffer(0))
				return [4]float32{t[0], t[1], t[2], t[3]}
			},
			"texturedFragment": func(in FragmentInput, args *Args) [4]float32 {
				return args.Texture(0).Read(uint32(in.Position[0]), uint32(in.Position[1]))
			},
		},
	}
}

type renderFixture struct {
	dev  Device
	q    renderer.Queue
	pipe renderer.RenderPipeline
}

func newRenderFixture(t *testing.T, format renderer.PixelFormat, samples uint32, blending bool) *renderFixture {
	t.Helper()
	dev := newTestDevice(t, WithFunctions(rasterFunctions()))
	pipe, err := dev.NewRenderPipeline(renderer.RenderPipelineDescriptor{
		Label:       "tint",
		Vertex:      positionVertex,
		Fragment:    tintFragment,
		ColorFormat: format,
		SampleCount: samples,
		Blending:    blending,
	})
	require.NoError(t, err)
	q, err := dev.NewQueue()
	require.NoError(t, err)
	return &renderFixture{dev: dev, q: q, pipe: pipe}
}

func (f *renderFixture) target(t *testing.T, w, h uint32, format renderer.PixelFormat) renderer.Texture {
	t.Helper()
	tex, err := f.dev.NewTexture(renderer.TextureDescriptor{
		Label:  "target",
		Width:  w,
		Height: h,
		Format: format,
		Usage:  renderer.TextureUsageRenderTarget | renderer.TextureUsageShaderRead,
	})
	require.NoError(t, err)
	return tex
}

// drawTint encodes and runs one pass drawing positions with a constant tint.
func (f *renderFixture) drawTint(t *testing.T, color renderer.ColorAttachment, positions []float32, tint [4]float32) error {
	t.Helper()
	cb, err := f.q.CommandBuffer()
	require.NoError(t, err)
	enc, err := cb.BeginRenderPass(renderer.RenderPassDescriptor{Label: "tint", Color: color})
	require.NoError(t, err)
	enc.SetPipeline(f.pipe)
	enc.SetVertexBytes(common.SliceToBytes(positions), 0)
	enc.SetFragmentBytes(common.SliceToBytes(tint[:]), 0)
	enc.Draw(renderer.PrimitiveTypeTriangle, 0, len(positions)/2)
	if err := enc.End(); err != nil {
		return err
	}
	require.NoError(t, cb.Commit())
	return cb.WaitUntilCompleted(context.Background())
}

func pixelAt(t *testing.T, tex renderer.Texture, x, y uint32) [4]uint8 {
	t.Helper()
	data, err := tex.GetBytes()
	require.NoError(t, err)
	staging := common.TextureStagingData{Pixels: data, Width: tex.Width(), Height: tex.Height(), Order: tex.Format().Order()}
	return staging.At(x, y)
}

func TestClearOnly(t *testing.T) {
	f := newRenderFixture(t, renderer.PixelFormatRGBA8Unorm, 1, false)
	target := f.target(t, 4, 4, renderer.PixelFormatRGBA8Unorm)

	cb, err := f.q.CommandBuffer()
	require.NoError(t, err)
	enc, err := cb.BeginRenderPass(renderer.RenderPassDescriptor{Color: renderer.ColorAttachment{
		Texture: target,
		Load:    renderer.LoadActionClear,
		Clear:   renderer.ClearColor{R: 0, G: 0.5, B: 1, A: 1},
	}})
	require.NoError(t, err)
	require.NoError(t, enc.End())
	require.NoError(t, cb.Commit())
	require.NoError(t, cb.WaitUntilCompleted(context.Background()))

	for y := uint32(0); y < 4; y++ {
		for x := uint32(0); x < 4; x++ {
			assert.Equal(t, [4]uint8{0, 128, 255, 255}, pixelAt(t, target, x, y))
		}
	}

	subs := f.dev.Submissions()
	require.Len(t, subs, 1)
	assert.Equal(t, "render", subs[0].Passes[0].Kind)
	assert.True(t, strings.HasPrefix(subs[0].Passes[0].Commands[0], `attachment texture="target"`))
}

func TestTriangleCoverage(t *testing.T) {
	f := newRenderFixture(t, renderer.PixelFormatRGBA8Unorm, 1, false)
	target := f.target(t, 16, 16, renderer.PixelFormatRGBA8Unorm)

	err := f.drawTint(t, renderer.ColorAttachment{
		Texture: target,
		Load:    renderer.LoadActionClear,
		Clear:   renderer.ClearColor{R: 1, G: 1, B: 1, A: 1},
	}, centreTriangle, [4]float32{1, 0, 0, 1})
	require.NoError(t, err)

	assert.Equal(t, [4]uint8{255, 0, 0, 255}, pixelAt(t, target, 8, 8), "centre is covered")
	assert.Equal(t, [4]uint8{255, 255, 255, 255}, pixelAt(t, target, 0, 0), "corner keeps the clear colour")
	assert.Equal(t, [4]uint8{255, 255, 255, 255}, pixelAt(t, target, 15, 15))
	assert.Equal(t, [4]uint8{255, 255, 255, 255}, pixelAt(t, target, 8, 1), "above the apex")
}

func TestSharedEdgeIsShadedOnce(t *testing.T) {
	f := newRenderFixture(t, renderer.PixelFormatRGBA8Unorm, 1, true)
	target := f.target(t, 8, 8, renderer.PixelFormatRGBA8Unorm)

	err := f.drawTint(t, renderer.ColorAttachment{
		Texture: target,
		Load:    renderer.LoadActionClear,
		Clear:   renderer.ClearColor{A: 1},
	}, fullscreenQuad, [4]float32{1, 0, 0, 0.5})
	require.NoError(t, err)

	for y := uint32(0); y < 8; y++ {
		for x := uint32(0); x < 8; x++ {
			assert.Equal(t, [4]uint8{128, 0, 0, 255}, pixelAt(t, target, x, y), "pixel (%d,%d)", x, y)
		}
	}
}

func TestLoadActionLoadKeepsContents(t *testing.T) {
	f := newRenderFixture(t, renderer.PixelFormatRGBA8Unorm, 1, false)
	target := f.target(t, 16, 16, renderer.PixelFormatRGBA8Unorm)

	require.NoError(t, f.drawTint(t, renderer.ColorAttachment{
		Texture: target,
		Load:    renderer.LoadActionClear,
		Clear:   renderer.ClearColor{G: 1, A: 1},
	}, nil, [4]float32{}))
	require.NoError(t, f.drawTint(t, renderer.ColorAttachment{
		Texture: target,
		Load:    renderer.LoadActionLoad,
	}, centreTriangle, [4]float32{0, 0, 1, 1}))

	assert.Equal(t, [4]uint8{0, 0, 255, 255}, pixelAt(t, target, 8, 8))
	assert.Equal(t, [4]uint8{0, 255, 0, 255}, pixelAt(t, target, 0, 0))
}

func TestDrawValidatesAttachment(t *testing.T) {
	f := newRenderFixture(t, renderer.PixelFormatRGBA8Unorm, 1, false)

	bgra := f.target(t, 4, 4, renderer.PixelFormatBGRA8Unorm)
	err := f.drawTint(t, renderer.ColorAttachment{Texture: bgra}, centreTriangle, [4]float32{1, 1, 1, 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "renders")

	cb, err := f.q.CommandBuffer()
	require.NoError(t, err)
	readOnly, err := f.dev.NewTexture(renderer.TextureDescriptor{Label: "ro", Width: 4, Height: 4, Format: renderer.PixelFormatRGBA8Unorm})
	require.NoError(t, err)
	_, err = cb.BeginRenderPass(renderer.RenderPassDescriptor{Color: renderer.ColorAttachment{Texture: readOnly}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a render target")
}

func TestDrawRequiresFragmentTexture(t *testing.T) {
	dev := newTestDevice(t, WithFunctions(rasterFunctions()))
	pipe, err := dev.NewRenderPipeline(renderer.RenderPipelineDescriptor{
		Label:       "textured",
		Vertex:      positionVertex,
		Fragment:    texturedFragment,
		ColorFormat: renderer.PixelFormatRGBA8Unorm,
	})
	require.NoError(t, err)
	target, err := dev.NewTexture(renderer.TextureDescriptor{
		Label: "target", Width: 4, Height: 4, Format: renderer.PixelFormatRGBA8Unorm, Usage: renderer.TextureUsageRenderTarget,
	})
	require.NoError(t, err)

	q, err := dev.NewQueue()
	require.NoError(t, err)
	cb, err := q.CommandBuffer()
	require.NoError(t, err)
	enc, err := cb.BeginRenderPass(renderer.RenderPassDescriptor{Color: renderer.ColorAttachment{Texture: target}})
	require.NoError(t, err)
	enc.SetPipeline(pipe)
	enc.SetVertexBytes(common.SliceToBytes(fullscreenQuad), 0)
	enc.Draw(renderer.PrimitiveTypeTriangle, 0, 6)
	err = enc.End()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `expects a texture "tex"`)
}

func TestTexturedDrawCopiesSource(t *testing.T) {
	dev := newTestDevice(t, WithFunctions(rasterFunctions()))
	pipe, err := dev.NewRenderPipeline(renderer.RenderPipelineDescriptor{
		Label:       "textured",
		Vertex:      positionVertex,
		Fragment:    texturedFragment,
		ColorFormat: renderer.PixelFormatRGBA8Unorm,
	})
	require.NoError(t, err)

	src, err := dev.NewTexture(renderer.TextureDescriptor{Label: "src", Width: 2, Height: 2, Format: renderer.PixelFormatBGRA8Unorm})
	require.NoError(t, err)
	// BGRA texels: blue, green / red, white
	require.NoError(t, src.Replace([]byte{
		255, 0, 0, 255, 0, 255, 0, 255,
		0, 0, 255, 255, 255, 255, 255, 255,
	}, 8))
	target, err := dev.NewTexture(renderer.TextureDescriptor{
		Label: "target", Width: 2, Height: 2, Format: renderer.PixelFormatRGBA8Unorm, Usage: renderer.TextureUsageRenderTarget,
	})
	require.NoError(t, err)

	q, err := dev.NewQueue()
	require.NoError(t, err)
	cb, err := q.CommandBuffer()
	require.NoError(t, err)
	enc, err := cb.BeginRenderPass(renderer.RenderPassDescriptor{Color: renderer.ColorAttachment{Texture: target, Load: renderer.LoadActionClear}})
	require.NoError(t, err)
	enc.SetPipeline(pipe)
	enc.SetVertexBytes(common.SliceToBytes(fullscreenQuad), 0)
	enc.SetFragmentTexture(src, 0)
	enc.Draw(renderer.PrimitiveTypeTriangle, 0, 6)
	require.NoError(t, enc.End())
	require.NoError(t, cb.Commit())
	require.NoError(t, cb.WaitUntilCompleted(context.Background()))

	assert.Equal(t, [4]uint8{0, 0, 255, 255}, pixelAt(t, target, 0, 0))
	assert.Equal(t, [4]uint8{0, 255, 0, 255}, pixelAt(t, target, 1, 0))
	assert.Equal(t, [4]uint8{255, 0, 0, 255}, pixelAt(t, target, 0, 1))
	assert.Equal(t, [4]uint8{255, 255, 255, 255}, pixelAt(t, target, 1, 1))
}

func TestFragmentPanicFailsCommandBuffer(t *testing.T) {
	fns := rasterFunctions()
	fns.Fragment["tintFragment"] = func(FragmentInput, *Args) [4]float32 { panic("bad fragment") }
	dev := newTestDevice(t, WithFunctions(fns))
	pipe, err := dev.NewRenderPipeline(renderer.RenderPipelineDescriptor{
		Label: "tint", Vertex: positionVertex, Fragment: tintFragment, ColorFormat: renderer.PixelFormatRGBA8Unorm,
	})
	require.NoError(t, err)
	q, err := dev.NewQueue()
	require.NoError(t, err)
	f := &renderFixture{dev: dev, q: q, pipe: pipe}
	target := f.target(t, 4, 4, renderer.PixelFormatRGBA8Unorm)

	err = f.drawTint(t, renderer.ColorAttachment{Texture: target}, fullscreenQuad, [4]float32{1, 1, 1, 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad fragment")

	subs := dev.Submissions()
	require.Len(t, subs, 1)
	assert.Error(t, subs[0].Err)
}

func TestMissingRenderFunctions(t *testing.T) {
	dev := newTestDevice(t)
	_, err := dev.NewRenderPipeline(renderer.RenderPipelineDescriptor{
		Label: "tint", Vertex: positionVertex, Fragment: tintFragment, ColorFormat: renderer.PixelFormatRGBA8Unorm,
	})
	var buildErr *renderer.PipelineBuildError
	require.ErrorAs(t, err, &buildErr)
	assert.Contains(t, buildErr.Diagnostic, "positionVertex")

	_, err = dev.NewRenderPipeline(renderer.RenderPipelineDescriptor{
		Label: "tint", Vertex: positionVertex, Fragment: tintFragment, ColorFormat: renderer.PixelFormatRGBA8Unorm, SampleCount: 3,
	})
	assert.ErrorIs(t, err, renderer.ErrUnsupportedSampleCount)
}
