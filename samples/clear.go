package samples

import (
	"context"

	"github.com/Carmen-Shannon/oxy-frames/engine/executor"
	"github.com/Carmen-Shannon/oxy-frames/engine/renderer"
	"github.com/Carmen-Shannon/oxy-frames/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-frames/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-frames/engine/renderer/software"
)

// ClearColor is the color the clear sample fills the drawable with.
var ClearColor = renderer.ClearColor{R: 0, G: 0.5, B: 1, A: 1}

// clearDrawable fills the drawable with a constant color. It needs no shaders.
type clearDrawable struct{}

var _ Sample = clearDrawable{}

// NewClear creates the drawable clear sample.
func NewClear() Sample {
	return clearDrawable{}
}

func (clearDrawable) Name() string                         { return "clear" }
func (clearDrawable) Description() string                  { return "clears the drawable to a constant color" }
func (clearDrawable) Synchronous() bool                    { return false }
func (clearDrawable) DrawableFormat() renderer.PixelFormat { return renderer.PixelFormatBGRA8Unorm }
func (clearDrawable) Software() software.Functions         { return software.Functions{} }

func (clearDrawable) Library() (shader.Library, error) {
	return shader.NewLibrary(shader.WithLabel("clear"))
}

func (clearDrawable) Pipelines(renderer.PixelFormat, uint32) []pipeline.Descriptor {
	return nil
}

func (clearDrawable) Setup(_ context.Context, exec executor.Executor, _ Env) error {
	return exec.SetPasses(executor.RenderPass{
		Label: "clear",
		Load:  renderer.LoadActionClear,
		Clear: ClearColor,
	})
}

func (clearDrawable) Verify(context.Context, executor.Executor) error {
	return nil
}
