package samples

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/Carmen-Shannon/oxy-frames/common"
	"github.com/Carmen-Shannon/oxy-frames/engine/executor"
	"github.com/Carmen-Shannon/oxy-frames/engine/renderer"
	"github.com/Carmen-Shannon/oxy-frames/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-frames/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-frames/engine/renderer/software"
)

// Rec709Luma weights linear red, green and blue into luminance.
var Rec709Luma = [3]float32{0.2126, 0.7152, 0.0722}

// grayscale converts an image to luminance in a compute kernel, then draws the result on a quad.
type grayscale struct {
	input, output renderer.Texture
}

var _ Sample = &grayscale{}

// NewGrayscale creates the compute-then-render grayscale sample.
func NewGrayscale() Sample {
	return &grayscale{}
}

func (s *grayscale) Name() string      { return "grayscale" }
func (s *grayscale) Synchronous() bool { return false }

func (s *grayscale) Description() string {
	return "converts an image to grayscale in a compute kernel and draws it on a quad"
}

func (s *grayscale) DrawableFormat() renderer.PixelFormat {
	return renderer.PixelFormatBGRA8UnormSRGB
}

func (s *grayscale) Library() (shader.Library, error) {
	return newLibrary("grayscale", "grayscale", "quad")
}

func (s *grayscale) Software() software.Functions {
	fns := quadFunctions()
	fns.Kernels = map[string]software.Kernel{"grayscaleKernel": grayscaleKernel}
	return fns
}

func (s *grayscale) Pipelines(format renderer.PixelFormat, sampleCount uint32) []pipeline.Descriptor {
	return []pipeline.Descriptor{
		pipeline.NewCompute("grayscale", "grayscaleKernel", pipeline.WithLabel("grayscale pipeline")),
		quadPipeline(format, sampleCount),
	}
}

func (s *grayscale) Setup(ctx context.Context, exec executor.Executor, env Env) error {
	img, err := loadImage(ctx, env.TexturePath, common.PixelOrderBGRA)
	if err != nil {
		return err
	}
	s.input, err = exec.AllocateTexture(renderer.TextureDescriptor{
		Label:  "input",
		Width:  img.Width,
		Height: img.Height,
		Format: renderer.PixelFormatBGRA8Unorm,
		Usage:  renderer.TextureUsageShaderRead,
	}, img.Pixels)
	if err != nil {
		return err
	}
	s.output, err = exec.AllocateTexture(renderer.TextureDescriptor{
		Label:  "output",
		Width:  img.Width,
		Height: img.Height,
		Format: renderer.PixelFormatRGBA8Unorm,
		Usage:  renderer.TextureUsageShaderRead | renderer.TextureUsageShaderWrite,
	}, nil)
	if err != nil {
		return err
	}

	vertices, err := exec.AllocateBufferWithData("quad vertices", common.SliceToBytes(quadVertices(QuadHalfSize)), true)
	if err != nil {
		return err
	}
	return exec.SetPasses(
		executor.ComputePass{
			Label:    "grayscale",
			Pipeline: "grayscale",
			Textures: []executor.TextureBinding{
				{Index: 0, Texture: s.input},
				{Index: 1, Texture: s.output},
			},
			Grid: executor.GridFromTexture(s.input),
		},
		quadPass(vertices, s.output),
	)
}

// Verify recomputes the luminance of every input pixel and compares it with the output texture,
// allowing one unit of rounding difference.
func (s *grayscale) Verify(context.Context, executor.Executor) error {
	if s.output == nil {
		return errors.New("grayscale was not set up")
	}
	in, err := s.input.GetBytes()
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	out, err := s.output.GetBytes()
	if err != nil {
		return fmt.Errorf("read output: %w", err)
	}

	var mismatches []executor.VerificationMismatch
	for i := 0; i+3 < len(in) && i+3 < len(out); i += 4 {
		// input is BGRA, output RGBA
		rgb := [3]float32{float32(in[i+2]) / 255, float32(in[i+1]) / 255, float32(in[i]) / 255}
		want := math.Round(float64(luma(rgb)) * 255)
		for c := 0; c < 3; c++ {
			if math.Abs(float64(out[i+c])-want) > 1 {
				mismatches = append(mismatches, executor.VerificationMismatch{Index: i / 4, Expected: float32(want), Actual: float32(out[i+c])})
				break
			}
		}
	}
	return executor.MismatchError(mismatches)
}

func luma(rgb [3]float32) float32 {
	return rgb[0]*Rec709Luma[0] + rgb[1]*Rec709Luma[1] + rgb[2]*Rec709Luma[2]
}

// grayscaleKernel runs one thread per output pixel, like its WGSL counterpart.
func grayscaleKernel(tid software.ThreadPosition, args *software.Args) {
	out := args.Texture(1)
	x, y := tid.Global[0], tid.Global[1]
	if x >= out.Width() || y >= out.Height() {
		return
	}
	c := args.Texture(0).Read(x, y)
	gray := luma([3]float32{c[0], c[1], c[2]})
	out.Write(x, y, [4]float32{gray, gray, gray, 1})
}
