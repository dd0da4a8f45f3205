// Package samples holds the demo workloads run by oxy-frames. Each sample ships its WGSL entry
// points, Go implementations of the same entry points for the software device, the pipeline
// configurations it needs and the resources and passes it encodes every frame.
package samples

import (
	"context"
	"embed"
	"fmt"
	"slices"

	"github.com/Carmen-Shannon/oxy-frames/common"
	"github.com/Carmen-Shannon/oxy-frames/engine/executor"
	"github.com/Carmen-Shannon/oxy-frames/engine/renderer"
	"github.com/Carmen-Shannon/oxy-frames/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-frames/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-frames/engine/renderer/software"
)

//go:embed shaders/*.wgsl
var shaderFS embed.FS

//go:embed assets/Image.tga
var defaultImage []byte

// DefaultElementCount is the adder length used when Env.ElementCount is zero.
const DefaultElementCount = 1 << 16

// Env is what a sample may depend on when it creates its resources.
type Env struct {
	// Surface is the presentable surface, or nil for headless synchronous runs.
	Surface renderer.Surface

	// Format is the drawable format render pipelines targeting the drawable are built for.
	Format renderer.PixelFormat

	// SampleCount is the drawable sample count.
	SampleCount uint32

	// TexturePath overrides the embedded image used by textured samples.
	TexturePath string

	// ElementCount is the adder array length.
	ElementCount int
}

// Sample is one workload the executor can run.
type Sample interface {
	// Name returns the registry name.
	Name() string

	// Description returns a one line summary for listings.
	Description() string

	// Synchronous reports whether the sample runs one frame, waits for it and verifies the result
	// instead of rendering continuously.
	Synchronous() bool

	// DrawableFormat returns the surface format the sample expects, or PixelFormatInvalid when it
	// never presents.
	DrawableFormat() renderer.PixelFormat

	// Library compiles the sample's WGSL modules.
	//
	// Returns:
	//   - shader.Library: the reflected library
	//   - error: a *shader.CompileError if a module fails to compile
	Library() (shader.Library, error)

	// Software returns Go implementations of the library's entry points for the software device.
	Software() software.Functions

	// Pipelines returns the pipeline configurations the sample's passes bind.
	//
	// Parameters:
	//   - format: the drawable format
	//   - sampleCount: the drawable sample count
	//
	// Returns:
	//   - []pipeline.Descriptor: the configurations, keyed by their PipelineKey
	Pipelines(format renderer.PixelFormat, sampleCount uint32) []pipeline.Descriptor

	// Setup allocates the sample's resources through exec and installs its passes.
	//
	// Parameters:
	//   - ctx: cancels asset loading
	//   - exec: an initialized executor built from Pipelines
	//   - env: the run environment
	//
	// Returns:
	//   - error: error if an asset, an allocation or the pass sequence is rejected
	Setup(ctx context.Context, exec executor.Executor, env Env) error

	// Verify checks the results of the frames run so far. It must only be called once those frames
	// have completed.
	//
	// Parameters:
	//   - ctx: bounds GPU readbacks
	//   - exec: the executor the sample was set up on
	//
	// Returns:
	//   - error: an *executor.VerificationError listing every mismatch, or a readback failure
	Verify(ctx context.Context, exec executor.Executor) error
}

// All returns a fresh instance of every sample in listing order.
func All() []Sample {
	return []Sample{
		NewAdder(),
		NewClear(),
		NewTriangle(),
		NewTexture(),
		NewGrayscale(),
		NewOffscreen(),
	}
}

// Names returns the registry names in listing order.
func Names() []string {
	all := All()
	names := make([]string, len(all))
	for i, s := range all {
		names[i] = s.Name()
	}
	return names
}

// Lookup returns a fresh instance of the named sample.
//
// Parameters:
//   - name: the registry name
//
// Returns:
//   - Sample: the sample
//   - bool: false if no sample has that name
func Lookup(name string) (Sample, bool) {
	all := All()
	i := slices.IndexFunc(all, func(s Sample) bool { return s.Name() == name })
	if i < 0 {
		return nil, false
	}
	return all[i], true
}

// Prepare compiles the sample's library, initializes an executor on dev with the sample's
// pipelines and runs Setup. Format and SampleCount default to the surface's when a surface is set.
// The caller owns the returned executor and must Release it.
//
// Parameters:
//   - ctx: passed to Setup
//   - s: the sample
//   - dev: the device to run on
//   - env: the run environment
//   - options: extra executor options, applied after the sample's defaults
//
// Returns:
//   - executor.Executor: a ready executor with the sample's passes installed
//   - error: a compile, setup or allocation error
func Prepare(ctx context.Context, s Sample, dev renderer.Device, env Env, options ...executor.ExecutorBuilderOption) (executor.Executor, error) {
	env = env.withDefaults(s)

	lib, err := s.Library()
	if err != nil {
		return nil, err
	}

	options = append([]executor.ExecutorBuilderOption{
		executor.WithLabel(s.Name()),
		executor.WithWaitUntilCompleted(s.Synchronous()),
	}, options...)
	exec := executor.NewExecutor(options...)
	if err := exec.Initialize(dev, lib, s.Pipelines(env.Format, env.SampleCount)...); err != nil {
		return nil, err
	}
	if err := s.Setup(ctx, exec, env); err != nil {
		exec.Release()
		return nil, fmt.Errorf("set up sample %q: %w", s.Name(), err)
	}
	common.Logger().Info("sample prepared", "sample", s.Name(), "device", dev.Name(), "format", env.Format.String(), "samples", env.SampleCount)
	return exec, nil
}

func (env Env) withDefaults(s Sample) Env {
	if env.Surface != nil {
		if env.Format == renderer.PixelFormatInvalid {
			env.Format = env.Surface.Format()
		}
		if env.SampleCount == 0 {
			env.SampleCount = env.Surface.SampleCount()
		}
	}
	if env.Format == renderer.PixelFormatInvalid {
		env.Format = common.Coalesce(s.DrawableFormat(), renderer.PixelFormatBGRA8Unorm)
	}
	if env.SampleCount == 0 {
		env.SampleCount = 1
	}
	if env.ElementCount <= 0 {
		env.ElementCount = DefaultElementCount
	}
	return env
}

// newLibrary compiles the shared include plus the named modules under shaders/.
func newLibrary(label string, modules ...string) (shader.Library, error) {
	patterns := []string{"shaders/_common.wgsl"}
	for _, m := range modules {
		patterns = append(patterns, "shaders/"+m+".wgsl")
	}
	return shader.NewLibrary(shader.WithLabel(label), shader.WithSourceFS(shaderFS, patterns...))
}

// loadImage decodes the override image at path, or the embedded image when path is empty.
func loadImage(ctx context.Context, path string, order common.PixelOrder) (*common.TextureStagingData, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if path == "" {
		return common.DecodeTextureBytes(defaultImage, order)
	}
	return common.LoadTexture(path, order)
}
