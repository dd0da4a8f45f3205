package software

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-frames/common"
	"github.com/Carmen-Shannon/oxy-frames/engine/renderer"
)

const defaultDrawableCount = 3

// surface is an offscreen presentable surface backed by software textures.
type surface struct {
	dev           *device
	mu            sync.Mutex
	width, height uint32
	format        renderer.PixelFormat
	sampleCount   uint32
	drawableCount int
	available     bool

	drawables []*drawable
	next      int
	presented int

	// last holds the most recent presentation at the size it was drawn.
	last                  []byte
	lastWidth, lastHeight uint32
}

// Surface is a renderer.Surface whose drawable supply and presentations can be controlled and inspected.
type Surface interface {
	renderer.Surface

	// SetAvailable toggles whether NextDrawable hands out drawables.
	//
	// Parameters:
	//   - available: false to simulate a window with no drawable this frame
	SetAvailable(available bool)

	// Presented returns how many drawables have been presented.
	//
	// Returns:
	//   - int: the presentation count
	Presented() int

	// LastPresented returns a copy of the most recently presented image in the surface format.
	//
	// Returns:
	//   - *common.TextureStagingData: the pixels, or nil before the first presentation
	LastPresented() *common.TextureStagingData
}

var _ Surface = &surface{}

// SurfaceBuilderOption is a functional option applied to a surface during construction via NewSurface.
type SurfaceBuilderOption func(*surface)

// WithSampleCount sets the sample count render pipelines targeting the surface must use.
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

// WithDrawableCount sets how many drawables the surface rotates through.
//
// Parameters:
//   - n: the drawable count, 3 by default
//
// Returns:
//   - SurfaceBuilderOption: a function that applies the drawable count option to a surface
func WithDrawableCount(n int) SurfaceBuilderOption {
	return func(s *surface) {
		if n > 0 {
			s.drawableCount = n
		}
	}
}

// NewSurface creates an offscreen surface on a software device.
//
// Parameters:
//   - dev: the software device that owns the drawables
//   - width: the drawable width in pixels
//   - height: the drawable height in pixels
//   - format: the drawable pixel format
//   - options: functional options
//
// Returns:
//   - Surface: the surface
//   - error: renderer.ErrForeignDevice for non-software devices, or a texture creation error
func NewSurface(dev renderer.Device, width, height uint32, format renderer.PixelFormat, options ...SurfaceBuilderOption) (Surface, error) {
	d, ok := dev.(*device)
	if !ok {
		return nil, fmt.Errorf("software surface: %w", renderer.ErrForeignDevice)
	}
	s := &surface{
		dev:           d,
		format:        format,
		sampleCount:   1,
		drawableCount: defaultDrawableCount,
		available:     true,
	}
	for _, opt := range options {
		opt(s)
	}
	if err := s.Resize(width, height); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *surface) NextDrawable() (renderer.Drawable, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.available || len(s.drawables) == 0 {
		return nil, false
	}
	d := s.drawables[s.next]
	s.next = (s.next + 1) % len(s.drawables)
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
	drawables := make([]*drawable, 0, s.drawableCount)
	for i := 0; i < s.drawableCount; i++ {
		tex, err := s.dev.NewTexture(renderer.TextureDescriptor{
			Label:  "drawable",
			Width:  width,
			Height: height,
			Format: s.format,
			Usage:  renderer.TextureUsageRenderTarget | renderer.TextureUsageShaderRead,
		})
		if err != nil {
			return fmt.Errorf("software surface: %w", err)
		}
		dr := &drawable{surface: s, texture: tex.(*texture)}
		if s.sampleCount > 1 {
			ms, err := s.dev.NewTexture(renderer.TextureDescriptor{
				Label:       "drawable-multisample",
				Width:       width,
				Height:      height,
				Format:      s.format,
				Usage:       renderer.TextureUsageRenderTarget,
				SampleCount: s.sampleCount,
			})
			if err != nil {
				return fmt.Errorf("software surface: %w", err)
			}
			dr.multisample = ms.(*texture)
		}
		drawables = append(drawables, dr)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.width, s.height = width, height
	s.drawables = drawables
	s.next = 0
	return nil
}

func (s *surface) SetAvailable(available bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.available = available
}

func (s *surface) Presented() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.presented
}

func (s *surface) LastPresented() *common.TextureStagingData {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return nil
	}
	pixels := make([]byte, len(s.last))
	copy(pixels, s.last)
	return &common.TextureStagingData{Pixels: pixels, Width: s.lastWidth, Height: s.lastHeight, Order: s.format.Order()}
}

// drawable is one presentable software image.
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

// present snapshots the drawable into the surface's last presented image.
func (d *drawable) present() {
	s := d.surface
	s.mu.Lock()
	defer s.mu.Unlock()
	s.presented++
	if len(s.last) != len(d.texture.data) {
		s.last = make([]byte, len(d.texture.data))
	}
	copy(s.last, d.texture.data)
	s.lastWidth, s.lastHeight = d.texture.width, d.texture.height
}
