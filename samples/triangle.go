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

// TriangleVertices are in pixels from the centre of the drawable.
var TriangleVertices = []ColorVertex{
	{Position: [2]float32{250, -250}, Color: [4]float32{1, 0, 0, 1}},
	{Position: [2]float32{-250, -250}, Color: [4]float32{0, 1, 0, 1}},
	{Position: [2]float32{0, 250}, Color: [4]float32{0, 0, 1, 1}},
}

// triangle draws one vertex-colored triangle whose vertices are passed inline every frame.
type triangle struct{}

var _ Sample = triangle{}

// NewTriangle creates the colored triangle sample.
func NewTriangle() Sample {
	return triangle{}
}

func (triangle) Name() string                         { return "triangle" }
func (triangle) Description() string                  { return "draws a vertex-colored triangle sized in pixels" }
func (triangle) Synchronous() bool                    { return false }
func (triangle) DrawableFormat() renderer.PixelFormat { return renderer.PixelFormatBGRA8Unorm }

func (triangle) Library() (shader.Library, error) {
	return newLibrary("triangle", "triangle")
}

func (triangle) Software() software.Functions {
	return software.Functions{
		Vertex:   map[string]software.VertexFunction{"vertexShader": triangleVertex},
		Fragment: map[string]software.FragmentFunction{"fragmentShader": passColor},
	}
}

func (triangle) Pipelines(format renderer.PixelFormat, sampleCount uint32) []pipeline.Descriptor {
	return []pipeline.Descriptor{
		pipeline.NewRender("triangle", "vertexShader", "fragmentShader",
			pipeline.WithLabel("triangle pipeline"),
			pipeline.WithColorFormat(format),
			pipeline.WithSampleCount(sampleCount)),
	}
}

func (triangle) Setup(_ context.Context, exec executor.Executor, _ Env) error {
	return exec.SetPasses(executor.RenderPass{
		Label:    "triangle",
		Pipeline: "triangle",
		Load:     renderer.LoadActionClear,
		Clear:    ClearColor,
		VertexParams: []executor.Param{
			executor.StaticParam(0, common.SliceToBytes(TriangleVertices)),
			executor.ViewportSizeParam(1),
		},
		VertexCount: len(TriangleVertices),
	})
}

func (triangle) Verify(context.Context, executor.Executor) error {
	return nil
}

func triangleVertex(id uint32, args *software.Args) software.VertexOutput {
	v := colorVertexAt(args.Buffer(0), id)
	return colorOutput(pixelToClip(v.Position, args.Buffer(1)), v.Color)
}
