package samples

import (
	"context"
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-frames/common"
	"github.com/Carmen-Shannon/oxy-frames/engine/executor"
	"github.com/Carmen-Shannon/oxy-frames/engine/renderer"
	"github.com/Carmen-Shannon/oxy-frames/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-frames/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-frames/engine/renderer/software"
)

// OffscreenSize is the width and height of the offscreen target.
const OffscreenSize = 512

// OffscreenTriangle is drawn into the offscreen target, in clip space.
var OffscreenTriangle = []ColorVertex{
	{Position: [2]float32{0.5, -0.5}, Color: [4]float32{1, 0, 0, 1}},
	{Position: [2]float32{-0.5, -0.5}, Color: [4]float32{0, 1, 0, 1}},
	{Position: [2]float32{0, 0.5}, Color: [4]float32{0, 0, 1, 0}},
}

var (
	offscreenClear = renderer.ClearColor{R: 1, G: 1, B: 1, A: 1}
	drawableClear  = renderer.ClearColor{R: 1, A: 1}
)

// offscreen renders a triangle into a texture, then draws that texture on a quad in the drawable
// with the drawable's aspect ratio applied.
type offscreen struct {
	target renderer.Texture
}

var _ Sample = &offscreen{}

// NewOffscreen creates the render-to-texture sample.
func NewOffscreen() Sample {
	return &offscreen{}
}

func (s *offscreen) Name() string      { return "offscreen" }
func (s *offscreen) Synchronous() bool { return false }

func (s *offscreen) Description() string {
	return "renders a triangle into a texture, then samples that texture in the drawable"
}

func (s *offscreen) DrawableFormat() renderer.PixelFormat {
	return renderer.PixelFormatBGRA8Unorm
}

func (s *offscreen) Library() (shader.Library, error) {
	return newLibrary("offscreen", "offscreen_simple", "offscreen_texture")
}

func (s *offscreen) Software() software.Functions {
	return software.Functions{
		Vertex: map[string]software.VertexFunction{
			"simpleVertexShader":  simpleVertex,
			"textureVertexShader": aspectQuadVertex,
		},
		Fragment: map[string]software.FragmentFunction{
			"simpleFragmentShader":  passColor,
			"textureFragmentShader": sampleTexture,
		},
	}
}

// Pipelines builds the offscreen pipeline for the target's format without multisampling and the
// drawable pipeline for the surface.
func (s *offscreen) Pipelines(format renderer.PixelFormat, sampleCount uint32) []pipeline.Descriptor {
	return []pipeline.Descriptor{
		pipeline.NewRender("simple", "simpleVertexShader", "simpleFragmentShader",
			pipeline.WithLabel("offscreen pipeline"),
			pipeline.WithColorFormat(renderer.PixelFormatRGBA8Unorm),
			pipeline.WithSampleCount(1)),
		pipeline.NewRender("drawable", "textureVertexShader", "textureFragmentShader",
			pipeline.WithLabel("drawable pipeline"),
			pipeline.WithColorFormat(format),
			pipeline.WithSampleCount(sampleCount)),
	}
}

func (s *offscreen) Setup(_ context.Context, exec executor.Executor, _ Env) error {
	var err error
	s.target, err = exec.AllocateTexture(renderer.TextureDescriptor{
		Label:  "offscreen target",
		Width:  OffscreenSize,
		Height: OffscreenSize,
		Format: renderer.PixelFormatRGBA8Unorm,
		Usage:  renderer.TextureUsageRenderTarget | renderer.TextureUsageShaderRead,
	}, nil)
	if err != nil {
		return err
	}

	return exec.SetPasses(
		executor.RenderPass{
			Label:        "offscreen",
			Pipeline:     "simple",
			Target:       s.target,
			Load:         renderer.LoadActionClear,
			Clear:        offscreenClear,
			VertexParams: []executor.Param{executor.StaticParam(0, common.SliceToBytes(OffscreenTriangle))},
			VertexCount:  len(OffscreenTriangle),
		},
		executor.RenderPass{
			Label:    "drawable",
			Pipeline: "drawable",
			Load:     renderer.LoadActionClear,
			Clear:    drawableClear,
			VertexParams: []executor.Param{
				executor.StaticParam(0, common.SliceToBytes(quadVertices(0.5))),
				executor.AspectRatioParam(1),
			},
			FragmentTextures: []executor.TextureBinding{{Index: 0, Texture: s.target}},
			VertexCount:      6,
		},
	)
}

// Verify checks that the offscreen target kept its clear color outside the triangle and was drawn
// over at the triangle's centroid.
func (s *offscreen) Verify(context.Context, executor.Executor) error {
	if s.target == nil {
		return errors.New("offscreen was not set up")
	}
	data, err := s.target.GetBytes()
	if err != nil {
		return fmt.Errorf("read offscreen target: %w", err)
	}
	img := &common.TextureStagingData{Pixels: data, Width: OffscreenSize, Height: OffscreenSize, Order: common.PixelOrderRGBA}

	white := [4]uint8{255, 255, 255, 255}
	if c := img.At(0, 0); c != white {
		return fmt.Errorf("offscreen corner is %v, want the clear color %v", c, white)
	}
	// The centroid (0, -1/6) in clip space.
	if c := img.At(OffscreenSize/2, OffscreenSize*7/12); c == white {
		return errors.New("offscreen triangle was not drawn")
	}
	return nil
}

func simpleVertex(id uint32, args *software.Args) software.VertexOutput {
	v := colorVertexAt(args.Buffer(0), id)
	return colorOutput([4]float32{v.Position[0], v.Position[1], 0, 1}, v.Color)
}

func aspectQuadVertex(id uint32, args *software.Args) software.VertexOutput {
	v := texturedVertexAt(args.Buffer(0), id)
	ratio := common.Float32At(args.Buffer(1), 0)
	return texturedOutput([4]float32{v.Position[0] * ratio, v.Position[1], 0, 1}, v.Texcoord)
}
