package webgpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResizeKeepsMultisampleOfAcquiredDrawable(t *testing.T) {
	old := &texture{label: "drawable-multisample", width: 4, height: 4, samples: 4}
	s := &surface{multisample: old}
	d := &drawable{surface: s, texture: &texture{label: "drawable"}, multisample: old}
	s.acquired = d

	resized := &texture{label: "drawable-multisample", width: 8, height: 8, samples: 4}
	s.swapMultisample(resized)
	assert.Same(t, resized, s.multisample)
	assert.Same(t, old, d.MultisampleTexture(), "the acquired drawable keeps its texture")
	require.Len(t, s.retired, 1)
	assert.Same(t, old, s.retired[0])

	s.finish(&drawable{surface: s})
	assert.Len(t, s.retired, 1, "finishing another drawable leaves the retired texture alone")

	s.finish(d)
	assert.Nil(t, s.acquired)
	assert.Empty(t, s.retired)
}

func TestResizeWithoutAcquiredDrawableReleasesImmediately(t *testing.T) {
	old := &texture{label: "drawable-multisample"}
	s := &surface{multisample: old}

	s.swapMultisample(nil)
	assert.Nil(t, s.multisample)
	assert.Empty(t, s.retired)

	// A drawable acquired before an earlier resize holds an older texture, so the current one is
	// released at once.
	next := &texture{label: "drawable-multisample"}
	s.multisample = next
	s.acquired = &drawable{surface: s, texture: &texture{}, multisample: old}
	s.swapMultisample(nil)
	assert.Empty(t, s.retired)
}
