package samples

import (
	"context"

	"github.com/Carmen-Shannon/oxy-frames/common"
	"github.com/Carmen-Shannon/oxy-frames/engine/executor"
	"github.com/Carmen-Shannon/oxy-frames/engine/renderer"
	"github.com/Carmen-Shannon/oxy-frames/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-frames/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-frames/engine/renderer/software"
)

// QuadHalfSize is half the side of the textured quad, in pixels.
const QuadHalfSize = 250

// textured draws an image loaded from disk onto a quad sized in pixels.
type textured struct {
	image renderer.Texture
}

var _ Sample = &textured{}

// NewTexture creates the textured quad sample.
func NewTexture() Sample {
	return &textured{}
}

func (s *textured) Name() string                         { return "texture" }
func (s *textured) Description() string                  { return "samples an image onto a quad sized in pixels" }
func (s *textured) Synchronous() bool                    { return false }
func (s *textured) DrawableFormat() renderer.PixelFormat { return renderer.PixelFormatBGRA8Unorm }

func (s *textured) Library() (shader.Library, error) {
	return newLibrary("texture", "quad")
}

func (s *textured) Software() software.Functions {
	return quadFunctions()
}

func (s *textured) Pipelines(format renderer.PixelFormat, sampleCount uint32) []pipeline.Descriptor {
	return []pipeline.Descriptor{quadPipeline(format, sampleCount)}
}

func (s *textured) Setup(ctx context.Context, exec executor.Executor, env Env) error {
	img, err := loadImage(ctx, env.TexturePath, common.PixelOrderBGRA)
	if err != nil {
		return err
	}
	s.image, err = exec.AllocateTexture(renderer.TextureDescriptor{
		Label:  "image",
		Width:  img.Width,
		Height: img.Height,
		Format: renderer.PixelFormatBGRA8Unorm,
		Usage:  renderer.TextureUsageShaderRead,
	}, img.Pixels)
	if err != nil {
		return err
	}

	vertices, err := exec.AllocateBufferWithData("quad vertices", common.SliceToBytes(quadVertices(QuadHalfSize)), true)
	if err != nil {
		return err
	}
	return exec.SetPasses(quadPass(vertices, s.image))
}

func (s *textured) Verify(context.Context, executor.Executor) error {
	return nil
}

// The quad pipeline and its pass are shared with the grayscale sample.

func quadFunctions() software.Functions {
	return software.Functions{
		Vertex:   map[string]software.VertexFunction{"vertexShader": quadVertex},
		Fragment: map[string]software.FragmentFunction{"samplingShader": sampleTexture},
	}
}

func quadPipeline(format renderer.PixelFormat, sampleCount uint32) pipeline.Descriptor {
	return pipeline.NewRender("quad", "vertexShader", "samplingShader",
		pipeline.WithLabel("textured quad pipeline"),
		pipeline.WithColorFormat(format),
		pipeline.WithSampleCount(sampleCount))
}

func quadPass(vertices renderer.Buffer, tex renderer.Texture) executor.RenderPass {
	return executor.RenderPass{
		Label:            "textured quad",
		Pipeline:         "quad",
		Load:             renderer.LoadActionClear,
		Clear:            ClearColor,
		VertexBuffers:    []executor.BufferBinding{{Index: 0, Buffer: vertices}},
		VertexParams:     []executor.Param{executor.ViewportSizeParam(1)},
		FragmentTextures: []executor.TextureBinding{{Index: 0, Texture: tex}},
		VertexCount:      6,
	}
}

func quadVertex(id uint32, args *software.Args) software.VertexOutput {
	v := texturedVertexAt(args.Buffer(0), id)
	return texturedOutput(pixelToClip(v.Position, args.Buffer(1)), v.Texcoord)
}
