package software

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-frames/common"
	"github.com/Carmen-Shannon/oxy-frames/engine/renderer"
	"github.com/Carmen-Shannon/oxy-frames/engine/renderer/shader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var addFunction = &shader.Function{
	Name:          "add",
	Stage:         shader.ShaderTypeCompute,
	WorkgroupSize: [3]uint32{1, 1, 1},
	Bindings: []shader.Binding{
		{Name: "a", Binding: 0, Kind: shader.BindingReadOnlyStorage},
		{Name: "b", Binding: 1, Kind: shader.BindingReadOnlyStorage},
		{Name: "out", Binding: 2, Kind: shader.BindingStorage},
		{Name: "count", Binding: 3, Kind: shader.BindingUniform, Size: 4},
	},
}

func addKernel(tid ThreadPosition, args *Args) {
	i := int(tid.Global[0])
	if uint32(i) >= common.Uint32At(args.Buffer(3), 0) {
		return
	}
	common.PutFloat32(args.Buffer(2), i, common.Float32At(args.Buffer(0), i)+common.Float32At(args.Buffer(1), i))
}

func newTestDevice(t *testing.T, options ...DeviceBuilderOption) Device {
	t.Helper()
	options = append([]DeviceBuilderOption{WithWorkers(4), WithKernel("add", addKernel)}, options...)
	dev := NewDevice(options...)
	t.Cleanup(dev.Release)
	return dev
}

func floatBuffer(t *testing.T, dev renderer.Device, label string, values []float32) renderer.Buffer {
	t.Helper()
	buf, err := dev.NewBuffer(renderer.BufferDescriptor{
		Label:       label,
		Length:      len(values) * 4,
		StorageMode: renderer.StorageModeShared,
		Contents:    common.SliceToBytes(values),
	})
	require.NoError(t, err)
	return buf
}

func TestNewBuffer(t *testing.T) {
	dev := newTestDevice(t)

	shared, err := dev.NewBuffer(renderer.BufferDescriptor{Label: "shared", Length: 8, Contents: []byte{1, 2}})
	require.NoError(t, err)
	assert.Equal(t, 8, shared.Length())
	assert.Equal(t, []byte{1, 2, 0, 0, 0, 0, 0, 0}, shared.Contents())
	assert.Equal(t, renderer.Device(dev), shared.Device())

	private, err := dev.NewBuffer(renderer.BufferDescriptor{Label: "private", Length: 8, StorageMode: renderer.StorageModePrivate})
	require.NoError(t, err)
	assert.Nil(t, private.Contents())

	_, err = dev.NewBuffer(renderer.BufferDescriptor{Length: 0})
	assert.Error(t, err)
	_, err = dev.NewBuffer(renderer.BufferDescriptor{Length: 1, Contents: []byte{1, 2}})
	assert.Error(t, err)
}

func TestNewTextureValidation(t *testing.T) {
	dev := newTestDevice(t)

	_, err := dev.NewTexture(renderer.TextureDescriptor{Width: 4, Height: 4})
	assert.ErrorIs(t, err, renderer.ErrUnsupportedFormat)

	_, err = dev.NewTexture(renderer.TextureDescriptor{Width: 4, Height: 4, Format: renderer.PixelFormatRGBA8Unorm, SampleCount: 3})
	assert.ErrorIs(t, err, renderer.ErrUnsupportedSampleCount)

	tex, err := dev.NewTexture(renderer.TextureDescriptor{Width: 4, Height: 2, Format: renderer.PixelFormatRGBA8Unorm})
	require.NoError(t, err)
	assert.True(t, tex.Usage().Has(renderer.TextureUsageShaderRead))
	assert.Equal(t, uint32(1), tex.SampleCount())
}

func TestComputeDispatch(t *testing.T) {
	dev := newTestDevice(t)
	pipe, err := dev.NewComputePipeline(renderer.ComputePipelineDescriptor{Label: "add", Function: addFunction, MaxThreadsPerGroup: 4})
	require.NoError(t, err)
	assert.Equal(t, uint32(4), pipe.MaxTotalThreadsPerThreadgroup())
	assert.Equal(t, "add", pipe.FunctionName())

	a := floatBuffer(t, dev, "a", []float32{1, 2, 3, 4, 5, 6, 7, 8, 9, 10})
	b := floatBuffer(t, dev, "b", []float32{10, 9, 8, 7, 6, 5, 4, 3, 2, 1})
	out := floatBuffer(t, dev, "out", make([]float32, 10))

	q, err := dev.NewQueue()
	require.NoError(t, err)
	cb, err := q.CommandBuffer()
	require.NoError(t, err)
	enc, err := cb.BeginComputePass()
	require.NoError(t, err)
	enc.SetPipeline(pipe)
	enc.SetBuffer(a, 0, 0)
	enc.SetBuffer(b, 0, 1)
	enc.SetBuffer(out, 0, 2)
	enc.SetBytes(common.SliceToBytes([]uint32{10}), 3)
	enc.DispatchThreadgroups(renderer.Size{Width: 3, Height: 1, Depth: 1}, renderer.Size{Width: 4, Height: 1, Depth: 1})
	require.NoError(t, enc.End())
	require.NoError(t, cb.Commit())
	require.NoError(t, cb.WaitUntilCompleted(context.Background()))
	assert.Equal(t, renderer.CommandBufferStatusCompleted, cb.Status())

	for _, v := range common.BytesToSlice[float32](out.Contents()) {
		assert.Equal(t, float32(11), v)
	}

	subs := dev.Submissions()
	require.Len(t, subs, 1)
	require.Len(t, subs[0].Passes, 1)
	assert.Equal(t, "compute", subs[0].Passes[0].Kind)
	assert.Equal(t, []string{
		"setPipeline add",
		`setBuffer index=0 buffer="a" offset=0`,
		`setBuffer index=1 buffer="b" offset=0`,
		`setBuffer index=2 buffer="out" offset=0`,
		"setBytes index=3 len=4 data=0a000000",
		"dispatch groups=3x1x1 threads=4x1x1",
	}, subs[0].Passes[0].Commands)

	dev.ResetSubmissions()
	assert.Empty(t, dev.Submissions())
}

func TestComputePipelineMissingKernel(t *testing.T) {
	dev := newTestDevice(t)
	_, err := dev.NewComputePipeline(renderer.ComputePipelineDescriptor{
		Label:    "missing",
		Function: &shader.Function{Name: "missing", Stage: shader.ShaderTypeCompute},
	})
	var buildErr *renderer.PipelineBuildError
	require.True(t, errors.As(err, &buildErr))
	assert.Contains(t, buildErr.Diagnostic, `"missing"`)
}

func encodeAdd(t *testing.T, dev renderer.Device, bind func(enc renderer.ComputePassEncoder)) (renderer.CommandBuffer, error) {
	t.Helper()
	pipe, err := dev.NewComputePipeline(renderer.ComputePipelineDescriptor{Label: "add", Function: addFunction})
	require.NoError(t, err)
	q, err := dev.NewQueue()
	require.NoError(t, err)
	cb, err := q.CommandBuffer()
	require.NoError(t, err)
	enc, err := cb.BeginComputePass()
	require.NoError(t, err)
	enc.SetPipeline(pipe)
	bind(enc)
	enc.DispatchThreadgroups(renderer.Size{Width: 1, Height: 1, Depth: 1}, renderer.Size{Width: 2, Height: 1, Depth: 1})
	return cb, enc.End()
}

func TestComputeMissingBinding(t *testing.T) {
	dev := newTestDevice(t)
	a := floatBuffer(t, dev, "a", []float32{1, 2})

	cb, err := encodeAdd(t, dev, func(enc renderer.ComputePassEncoder) {
		enc.SetBuffer(a, 0, 0)
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "index 1")
	assert.Error(t, cb.Commit())
}

func TestComputeForeignBuffer(t *testing.T) {
	dev := newTestDevice(t)
	other := newTestDevice(t)
	foreign := floatBuffer(t, other, "foreign", []float32{1, 2})

	_, err := encodeAdd(t, dev, func(enc renderer.ComputePassEncoder) {
		enc.SetBuffer(foreign, 0, 0)
	})
	assert.ErrorIs(t, err, renderer.ErrForeignDevice)
}

func TestComputeThreadGroupLimit(t *testing.T) {
	dev := newTestDevice(t, WithMaxThreadsPerGroup(1))
	a := floatBuffer(t, dev, "a", []float32{1, 2})

	_, err := encodeAdd(t, dev, func(enc renderer.ComputePassEncoder) {
		for i := 0; i < 3; i++ {
			enc.SetBuffer(a, 0, i)
		}
		enc.SetBytes(common.SliceToBytes([]uint32{2}), 3)
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds")
}

func TestKernelPanicIsExecutionError(t *testing.T) {
	dev := newTestDevice(t, WithKernel("add", func(ThreadPosition, *Args) { panic("boom") }))
	a := floatBuffer(t, dev, "a", []float32{1, 2})

	cb, err := encodeAdd(t, dev, func(enc renderer.ComputePassEncoder) {
		for i := 0; i < 3; i++ {
			enc.SetBuffer(a, 0, i)
		}
		enc.SetBytes(common.SliceToBytes([]uint32{2}), 3)
	})
	require.NoError(t, err)
	require.NoError(t, cb.Commit())

	err = cb.WaitUntilCompleted(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.Equal(t, renderer.CommandBufferStatusError, cb.Status())
}

func TestReleasedBindingIsExecutionError(t *testing.T) {
	dev := newTestDevice(t)
	a := floatBuffer(t, dev, "a", []float32{1, 2, 3})

	cb, err := encodeAdd(t, dev, func(enc renderer.ComputePassEncoder) {
		for i := 0; i < 3; i++ {
			enc.SetBuffer(a, 4, i)
		}
		enc.SetBytes(common.SliceToBytes([]uint32{2}), 3)
	})
	require.NoError(t, err)
	a.Release()
	require.NoError(t, cb.Commit())

	err = cb.WaitUntilCompleted(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `buffer "a" was released`)
	assert.Equal(t, renderer.CommandBufferStatusError, cb.Status())
}

func TestCommandBufferLifecycle(t *testing.T) {
	dev := newTestDevice(t)
	q, err := dev.NewQueue()
	require.NoError(t, err)
	cb, err := q.CommandBuffer()
	require.NoError(t, err)

	assert.Error(t, cb.WaitUntilCompleted(context.Background()))

	enc, err := cb.BeginComputePass()
	require.NoError(t, err)
	_, err = cb.BeginComputePass()
	assert.Error(t, err, "second encoder while one is open")
	assert.Error(t, cb.Commit(), "commit with open encoder")
	require.NoError(t, enc.End())
	assert.Error(t, enc.End())

	require.NoError(t, cb.Commit())
	assert.Error(t, cb.Commit())
	_, err = cb.BeginComputePass()
	assert.Error(t, err)

	require.NoError(t, q.WaitIdle(context.Background()))
	assert.Equal(t, renderer.CommandBufferStatusCompleted, cb.Status())
}

func TestQueueExecutesInCommitOrder(t *testing.T) {
	dev := newTestDevice(t)
	q, err := dev.NewQueue()
	require.NoError(t, err)

	var labels []string
	for i := 0; i < 5; i++ {
		cb, err := q.CommandBuffer()
		require.NoError(t, err)
		enc, err := cb.BeginComputePass()
		require.NoError(t, err)
		require.NoError(t, enc.End())
		require.NoError(t, cb.Commit())
		labels = append(labels, cb.Label())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, q.WaitIdle(ctx))

	subs := dev.Submissions()
	require.Len(t, subs, 5)
	for i, s := range subs {
		assert.Equal(t, labels[i], s.Label)
	}
}

func TestWaitUntilCompletedHonoursContext(t *testing.T) {
	release := make(chan struct{})
	dev := newTestDevice(t, WithKernel("add", func(ThreadPosition, *Args) { <-release }))
	a := floatBuffer(t, dev, "a", []float32{1, 2})

	cb, err := encodeAdd(t, dev, func(enc renderer.ComputePassEncoder) {
		for i := 0; i < 3; i++ {
			enc.SetBuffer(a, 0, i)
		}
		enc.SetBytes(common.SliceToBytes([]uint32{2}), 3)
	})
	require.NoError(t, err)
	require.NoError(t, cb.Commit())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, cb.WaitUntilCompleted(ctx), context.DeadlineExceeded)

	close(release)
	assert.NoError(t, cb.WaitUntilCompleted(context.Background()))
}

func TestReleasedDevice(t *testing.T) {
	dev := NewDevice(WithWorkers(1))
	dev.Release()
	dev.Release()

	_, err := dev.NewQueue()
	assert.ErrorIs(t, err, ErrDeviceReleased)
	_, err = dev.NewBuffer(renderer.BufferDescriptor{Length: 4})
	assert.ErrorIs(t, err, ErrDeviceReleased)
}

func TestDeviceIdentity(t *testing.T) {
	dev := newTestDevice(t, WithName("test device"))
	assert.Equal(t, "test device", dev.Name())
	assert.Equal(t, renderer.BackendTypeSoftware, dev.Backend())
	assert.Equal(t, uint32(1024), dev.Limits().MaxThreadsPerThreadgroup)
}
