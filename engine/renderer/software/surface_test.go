package software

import (
	"context"
	"testing"

	"github.com/Carmen-Shannon/oxy-frames/engine/renderer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSurfaceDrawables(t *testing.T) {
	dev := newTestDevice(t)
	s, err := NewSurface(dev, 8, 4, renderer.PixelFormatBGRA8Unorm, WithDrawableCount(2))
	require.NoError(t, err)

	w, h := s.Size()
	assert.Equal(t, uint32(8), w)
	assert.Equal(t, uint32(4), h)
	assert.Equal(t, uint32(1), s.SampleCount())

	d1, ok := s.NextDrawable()
	require.True(t, ok)
	d2, ok := s.NextDrawable()
	require.True(t, ok)
	d3, ok := s.NextDrawable()
	require.True(t, ok)
	assert.NotSame(t, d1, d2)
	assert.Same(t, d1, d3, "drawables rotate")
	assert.Nil(t, d1.MultisampleTexture())
	assert.Equal(t, "drawable", d1.Texture().Label())

	s.SetAvailable(false)
	_, ok = s.NextDrawable()
	assert.False(t, ok)
	s.SetAvailable(true)

	require.NoError(t, s.Resize(16, 16))
	d, ok := s.NextDrawable()
	require.True(t, ok)
	assert.Equal(t, uint32(16), d.Texture().Width())
}

func TestSurfaceRejectsForeignDevice(t *testing.T) {
	_, err := NewSurface(nil, 4, 4, renderer.PixelFormatBGRA8Unorm)
	assert.ErrorIs(t, err, renderer.ErrForeignDevice)
}

func TestPresentResolvedMultisampleDrawable(t *testing.T) {
	dev := newTestDevice(t)
	s, err := NewSurface(dev, 4, 4, renderer.PixelFormatBGRA8Unorm, WithSampleCount(4))
	require.NoError(t, err)
	assert.Nil(t, s.LastPresented())

	d, ok := s.NextDrawable()
	require.True(t, ok)
	require.NotNil(t, d.MultisampleTexture())
	assert.Equal(t, uint32(4), d.MultisampleTexture().SampleCount())

	q, err := dev.NewQueue()
	require.NoError(t, err)
	cb, err := q.CommandBuffer()
	require.NoError(t, err)
	enc, err := cb.BeginRenderPass(renderer.RenderPassDescriptor{Color: renderer.ColorAttachment{
		Texture:        d.MultisampleTexture(),
		ResolveTexture: d.Texture(),
		Load:           renderer.LoadActionClear,
		Store:          renderer.StoreActionDontCare,
		Clear:          renderer.ClearColor{B: 1, A: 1},
	}})
	require.NoError(t, err)
	require.NoError(t, enc.End())
	cb.Present(d)
	require.NoError(t, cb.Commit())
	require.NoError(t, cb.WaitUntilCompleted(context.Background()))

	assert.Equal(t, 1, s.Presented())
	last := s.LastPresented()
	require.NotNil(t, last)
	assert.Equal(t, [4]uint8{0, 0, 255, 255}, last.At(0, 0))
	assert.Equal(t, [4]uint8{0, 0, 255, 255}, last.At(3, 3))

	subs := dev.Submissions()
	require.Len(t, subs, 1)
	assert.Equal(t, 1, subs[0].Presented)
}

func TestPresentForeignDrawable(t *testing.T) {
	dev := newTestDevice(t)
	other := newTestDevice(t)
	s, err := NewSurface(other, 4, 4, renderer.PixelFormatBGRA8Unorm)
	require.NoError(t, err)
	d, ok := s.NextDrawable()
	require.True(t, ok)

	q, err := dev.NewQueue()
	require.NoError(t, err)
	cb, err := q.CommandBuffer()
	require.NoError(t, err)
	cb.Present(d)
	assert.ErrorIs(t, cb.Commit(), renderer.ErrForeignDevice)
}

func TestLastPresentedKeepsSizeAcrossResize(t *testing.T) {
	dev := newTestDevice(t)
	s, err := NewSurface(dev, 4, 2, renderer.PixelFormatRGBA8Unorm)
	require.NoError(t, err)
	d, ok := s.NextDrawable()
	require.True(t, ok)

	q, err := dev.NewQueue()
	require.NoError(t, err)
	cb, err := q.CommandBuffer()
	require.NoError(t, err)
	cb.Present(d)
	require.NoError(t, cb.Commit())
	require.NoError(t, cb.WaitUntilCompleted(context.Background()))

	require.NoError(t, s.Resize(16, 16))
	last := s.LastPresented()
	require.NotNil(t, last)
	assert.Equal(t, uint32(4), last.Width)
	assert.Equal(t, uint32(2), last.Height)
	assert.Len(t, last.Pixels, 4*2*4)
}
