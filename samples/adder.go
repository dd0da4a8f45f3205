package samples

import (
	"context"
	"errors"
	"math/rand/v2"

	"github.com/Carmen-Shannon/oxy-frames/common"
	"github.com/Carmen-Shannon/oxy-frames/engine/executor"
	"github.com/Carmen-Shannon/oxy-frames/engine/renderer"
	"github.com/Carmen-Shannon/oxy-frames/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-frames/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-frames/engine/renderer/software"
)

// adder adds two arrays of random floats on the device and checks the sum on the host.
type adder struct {
	seed  uint64
	count int

	a, b, result renderer.Buffer
}

var _ Sample = &adder{}

// NewAdder creates the array addition sample. The inputs are seeded so every run adds the same
// numbers.
func NewAdder() Sample {
	return &adder{seed: 1}
}

func (s *adder) Name() string      { return "adder" }
func (s *adder) Synchronous() bool { return true }

func (s *adder) Description() string {
	return "adds two float arrays in a compute kernel and verifies the sum"
}

func (s *adder) DrawableFormat() renderer.PixelFormat {
	return renderer.PixelFormatInvalid
}

func (s *adder) Library() (shader.Library, error) {
	return shader.NewLibrary(shader.WithLabel(s.Name()), shader.WithSourceFS(shaderFS, "shaders/adder.wgsl"))
}

func (s *adder) Software() software.Functions {
	return software.Functions{Kernels: map[string]software.Kernel{"add_arrays": addArrays}}
}

func (s *adder) Pipelines(renderer.PixelFormat, uint32) []pipeline.Descriptor {
	return []pipeline.Descriptor{pipeline.NewCompute("add", "add_arrays", pipeline.WithLabel("add arrays"))}
}

func (s *adder) Setup(_ context.Context, exec executor.Executor, env Env) error {
	s.count = common.Coalesce(env.ElementCount, DefaultElementCount)
	rng := rand.New(rand.NewPCG(s.seed, s.seed))
	a := make([]float32, s.count)
	b := make([]float32, s.count)
	for i := range a {
		a[i] = rng.Float32()
		b[i] = rng.Float32()
	}

	var err error
	if s.a, err = exec.AllocateBufferWithData("A", common.SliceToBytes(a), true); err != nil {
		return err
	}
	if s.b, err = exec.AllocateBufferWithData("B", common.SliceToBytes(b), true); err != nil {
		return err
	}
	if s.result, err = exec.AllocateBuffer("Result", s.count*4, true); err != nil {
		return err
	}

	return exec.SetPasses(executor.ComputePass{
		Label:    "add arrays",
		Pipeline: "add",
		Buffers: []executor.BufferBinding{
			{Index: 0, Buffer: s.a},
			{Index: 1, Buffer: s.b},
			{Index: 2, Buffer: s.result},
		},
		Grid: executor.Grid1D(uint32(s.count)),
	})
}

func (s *adder) Verify(context.Context, executor.Executor) error {
	if s.result == nil {
		return errors.New("adder was not set up")
	}
	mismatches, err := executor.VerifyResult(s.a, s.b, s.result, s.count, executor.Add)
	if err != nil {
		return err
	}
	if err := executor.MismatchError(mismatches); err != nil {
		common.Logger().Warn("adder verification failed", "mismatches", len(mismatches))
		return err
	}
	common.Logger().Info("adder verified", "elements", s.count)
	return nil
}

// addArrays is the Go add_arrays: result[i] = inA[i] + inB[i] for every i inside result.
func addArrays(tid software.ThreadPosition, args *software.Args) {
	result := args.Buffer(2)
	i := int(tid.Global[0])
	if (i+1)*4 > len(result) {
		return
	}
	common.PutFloat32(result, i, common.Float32At(args.Buffer(0), i)+common.Float32At(args.Buffer(1), i))
}
