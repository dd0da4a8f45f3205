package webgpu

import (
	"fmt"
	"slices"
	"sync"

	"github.com/Carmen-Shannon/oxy-frames/common"
	"github.com/Carmen-Shannon/oxy-frames/engine/renderer"
	"github.com/cogentcore/webgpu/wgpu"
)

// surface is the window swapchain of a device created with WithSurfaceDescriptor.
type surface struct {
	dev *device
	raw *wgpu.Surface

	mu            sync.Mutex
	width, height uint32
	format        renderer.PixelFormat
	config        wgpu.SurfaceConfiguration
	presentMode   renderer.PresentMode
	sampleCount   uint32
	preferred     renderer.PixelFormat

	multisample *texture
	acquired    *drawable
	// retired holds multisample textures replaced by Resize while the acquired drawable still
	// renders into them.
	retired []*texture
}

var _ renderer.Surface = &surface{}

// SurfaceBuilderOption is a functional option applied to a surface during construction via NewSurface.
type SurfaceBuilderOption func(*surface)

// WithPresentMode selects vsync or uncapped presentation.
//
// Parameters:
//   - mode: the present mode, vsync by default
//
// Returns:
//   - SurfaceBuilderOption: a function that applies the present mode option to a surface
func WithPresentMode(mode renderer.PresentMode) SurfaceBuilderOption {
	return func(s *surface) {
		s.presentMode = mode
	}
}

// WithSampleCount sets the sample count render pipelines targeting the surface must use. Counts
// above one render into a multisample texture resolved into the swapchain image.
//
// Parameters:
//   - count: the sample count, 1 by default
//
// Returns:
//   - SurfaceBuilderOption: a function that applies the sample count option to a surface
func WithSampleCount(count uint32) SurfaceBuilderOption {
	return func(s *surface) {
		s.sampleCount = count
	}
}

// WithPreferredFormat picks the swapchain format when the adapter supports it. Otherwise the first
// supported 8-bit format is used.
//
// Parameters:
//   - format: the preferred drawable format
//
// Returns:
//   - SurfaceBuilderOption: a function that applies the format option to a surface
func WithPreferredFormat(format renderer.PixelFormat) SurfaceBuilderOption {
	return func(s *surface) {
		s.preferred = format
	}
}

// NewSurface configures the swapchain of a device created with WithSurfaceDescriptor.
//
// Parameters:
//   - dev: the webgpu device that owns the window surface
//   - width: the drawable width in pixels
//   - height: the drawable height in pixels
//   - options: functional options
//
// Returns:
//   - renderer.Surface: the surface
//   - error: renderer.ErrForeignDevice for other devices, ErrNoSurface for headless devices, or
//     renderer.ErrUnsupportedFormat when no swapchain format is usable
func NewSurface(dev renderer.Device, width, height uint32, options ...SurfaceBuilderOption) (renderer.Surface, error) {
	d, ok := dev.(*device)
	if !ok {
		return nil, fmt.Errorf("webgpu surface: %w", renderer.ErrForeignDevice)
	}
	if d.surface == nil {
		return nil, ErrNoSurface
	}
	s := &surface{
		dev:         d,
		raw:         d.surface,
		sampleCount: 1,
	}
	for _, opt := range options {
		opt(s)
	}
	if !renderer.MSAASampleCount(s.sampleCount).Valid() {
		return nil, fmt.Errorf("webgpu surface: %w: %d", renderer.ErrUnsupportedSampleCount, s.sampleCount)
	}

	caps := s.raw.GetCapabilities(d.adapter)
	if len(caps.Formats) == 0 || len(caps.AlphaModes) == 0 {
		return nil, fmt.Errorf("webgpu surface: adapter reports no surface formats")
	}
	s.config = wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		PresentMode: presentMode(s.presentMode),
		AlphaMode:   caps.AlphaModes[0],
	}
	if want, err := textureFormat(s.preferred); err == nil && slices.Contains(caps.Formats, want) {
		s.config.Format, s.format = want, s.preferred
	} else {
		for _, f := range caps.Formats {
			if pf, ok := pixelFormat(f); ok {
				s.config.Format, s.format = f, pf
				break
			}
		}
	}
	if s.format == renderer.PixelFormatInvalid {
		return nil, fmt.Errorf("webgpu surface: %w: none of %v", renderer.ErrUnsupportedFormat, caps.Formats)
	}

	if err := s.Resize(width, height); err != nil {
		return nil, err
	}
	common.Logger().Info("webgpu surface configured", "format", s.format.String(), "present", s.presentMode.String(), "samples", s.sampleCount)
	return s, nil
}

// NextDrawable acquires the current swapchain image. It reports false when the swapchain has no
// image, for example while minimised. An image acquired by a frame that never presented it is
// presented unchanged first, since the swapchain hands out one image at a time.
func (s *surface) NextDrawable() (renderer.Drawable, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.acquired != nil {
		s.raw.Present()
		s.acquired.texture.Release()
		s.finish(s.acquired)
	}
	raw, err := s.raw.GetCurrentTexture()
	if err != nil {
		common.Logger().Debug("no drawable", "error", err)
		return nil, false
	}
	view, err := raw.CreateView(nil)
	if err != nil {
		raw.Release()
		common.Logger().Debug("no drawable", "error", err)
		return nil, false
	}
	d := &drawable{
		surface: s,
		texture: &texture{
			dev:     s.dev,
			label:   "drawable",
			width:   s.width,
			height:  s.height,
			format:  s.format,
			usage:   renderer.TextureUsageRenderTarget,
			samples: 1,
			raw:     raw,
			view:    view,
		},
		multisample: s.multisample,
	}
	s.acquired = d
	return d, true
}

func (s *surface) Format() renderer.PixelFormat {
	return s.format
}

func (s *surface) SampleCount() uint32 {
	return s.sampleCount
}

func (s *surface) Size() (uint32, uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.width, s.height
}

func (s *surface) Resize(width, height uint32) error {
	if width == 0 || height == 0 {
		return fmt.Errorf("webgpu surface: invalid size %dx%d", width, height)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.config.Width, s.config.Height = width, height
	s.raw.Configure(s.dev.adapter, s.dev.raw, &s.config)

	s.swapMultisample(nil)
	if s.sampleCount > 1 {
		ms, err := newTexture(s.dev, renderer.TextureDescriptor{
			Label:       "drawable-multisample",
			Width:       width,
			Height:      height,
			Format:      s.format,
			Usage:       renderer.TextureUsageRenderTarget,
			SampleCount: s.sampleCount,
		})
		if err != nil {
			return fmt.Errorf("webgpu surface: %w", err)
		}
		s.swapMultisample(ms)
	}
	s.width, s.height = width, height
	return nil
}

// swapMultisample replaces the multisample texture. The old one is released now, or retired until
// the acquired drawable holding it is presented. Callers hold s.mu.
func (s *surface) swapMultisample(next *texture) {
	old := s.multisample
	s.multisample = next
	if old == nil {
		return
	}
	if s.acquired != nil && s.acquired.multisample == old {
		s.retired = append(s.retired, old)
		return
	}
	old.Release()
}

// finish drops d as the acquired drawable and releases the textures retired while it was out.
// Callers hold s.mu.
func (s *surface) finish(d *drawable) {
	if s.acquired != d {
		return
	}
	s.acquired = nil
	for _, t := range s.retired {
		t.Release()
	}
	s.retired = nil
}

// drawable is one acquired swapchain image.
type drawable struct {
	surface     *surface
	texture     *texture
	multisample *texture
}

var _ renderer.Drawable = &drawable{}

func (d *drawable) Texture() renderer.Texture {
	return d.texture
}

func (d *drawable) MultisampleTexture() renderer.Texture {
	if d.multisample == nil {
		return nil
	}
	return d.multisample
}

// present queues the image for display and returns it to the swapchain. It runs after the command
// buffer rendering into it was submitted.
func (d *drawable) present() {
	s := d.surface
	s.mu.Lock()
	defer s.mu.Unlock()
	s.raw.Present()
	d.texture.Release()
	s.finish(d)
}
