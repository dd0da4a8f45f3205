package window

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWindowDefaults(t *testing.T) {
	w := newEngineWindow()

	assert.Equal(t, "oxy-frames", w.title)
	assert.True(t, w.resizable)
	assert.Equal(t, 800, w.Width())
	assert.Equal(t, 600, w.Height())
	assert.NoError(t, w.validate())
}

func TestWindowOptions(t *testing.T) {
	w := newEngineWindow(
		WithTitle("Hello Triangle"),
		WithSize(640, 480),
		WithSizeLimits(320, 240, 1280, 960),
		WithResizable(false),
	)

	assert.Equal(t, "Hello Triangle", w.title)
	assert.False(t, w.resizable)
	assert.Equal(t, 640, w.Width())
	assert.Equal(t, 480, w.Height())
	assert.Equal(t, 320, w.minWidth)
	assert.Equal(t, 960, w.maxHeight)
}

func TestWindowValidate(t *testing.T) {
	assert.Error(t, newEngineWindow(WithSize(0, 480)).validate())
	assert.Error(t, newEngineWindow(WithSizeLimits(800, 600, 400, 300)).validate())
}

func TestUninitializedWindow(t *testing.T) {
	w := newEngineWindow()

	assert.False(t, w.IsRunning())
	assert.Nil(t, w.SurfaceDescriptor())
	assert.ErrorIs(t, w.Close(), errNotInitialized)

	// The message loop returns at once when there is no platform window.
	calls := 0
	w.SetUpdateCallback(func() { calls++ })
	w.ProcessMessages()
	assert.Zero(t, calls)
}
