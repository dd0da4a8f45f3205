package software

import (
	"fmt"
	"math"

	"github.com/Carmen-Shannon/oxy-frames/common"
	"github.com/Carmen-Shannon/oxy-frames/engine/renderer"
)

// Image is the shader-side view of a texture handed to kernels and fragment functions.
// Colors are normalised RGBA regardless of the texture's channel order; sRGB textures are
// decoded on read and encoded on write.
type Image interface {
	Width() uint32
	Height() uint32

	// Read returns the texel at (x, y). Coordinates outside the texture are clamped.
	Read(x, y uint32) [4]float32

	// Write stores c at (x, y). Coordinates outside the texture are ignored.
	Write(x, y uint32, c [4]float32)

	// Sample filters the texture bilinearly at normalised (u, v) with clamp-to-edge addressing.
	Sample(u, v float32) [4]float32
}

// texture is a software 2D texture stored as 4 bytes per texel in its format's channel order.
type texture struct {
	dev     *device
	label   string
	width   uint32
	height  uint32
	format  renderer.PixelFormat
	usage   renderer.TextureUsage
	samples uint32
	data    []byte
}

var (
	_ renderer.Texture = &texture{}
	_ Image            = &texture{}
)

func newTexture(d *device, label string, w, h uint32, format renderer.PixelFormat, usage renderer.TextureUsage, samples uint32) *texture {
	return &texture{
		dev:     d,
		label:   label,
		width:   w,
		height:  h,
		format:  format,
		usage:   usage,
		samples: samples,
		data:    make([]byte, int(w)*int(h)*4),
	}
}

func (t *texture) Label() string                { return t.label }
func (t *texture) Device() renderer.Device      { return t.dev }
func (t *texture) Width() uint32                { return t.width }
func (t *texture) Height() uint32               { return t.height }
func (t *texture) Format() renderer.PixelFormat { return t.format }
func (t *texture) Usage() renderer.TextureUsage { return t.usage }
func (t *texture) SampleCount() uint32          { return t.samples }
func (t *texture) Release()                     { t.data = nil }

func (t *texture) Replace(pixels []byte, bytesPerRow uint32) error {
	row := t.width * 4
	if bytesPerRow < row {
		return fmt.Errorf("texture %q: row pitch %d below %d", t.label, bytesPerRow, row)
	}
	need := uint64(bytesPerRow)*uint64(t.height-1) + uint64(row)
	if uint64(len(pixels)) < need {
		return fmt.Errorf("texture %q: %d bytes supplied, %d needed", t.label, len(pixels), need)
	}
	for y := uint32(0); y < t.height; y++ {
		copy(t.data[y*row:(y+1)*row], pixels[y*bytesPerRow:y*bytesPerRow+row])
	}
	return nil
}

func (t *texture) GetBytes() ([]byte, error) {
	out := make([]byte, len(t.data))
	copy(out, t.data)
	return out, nil
}

func (t *texture) Read(x, y uint32) [4]float32 {
	x = min(x, t.width-1)
	y = min(y, t.height-1)
	return t.load((y*t.width + x) * 4)
}

func (t *texture) Write(x, y uint32, c [4]float32) {
	if x >= t.width || y >= t.height {
		return
	}
	t.store((y*t.width+x)*4, c)
}

func (t *texture) Sample(u, v float32) [4]float32 {
	fx := float64(u)*float64(t.width) - 0.5
	fy := float64(v)*float64(t.height) - 0.5
	x0 := math.Floor(fx)
	y0 := math.Floor(fy)
	ax := float32(fx - x0)
	ay := float32(fy - y0)

	c00 := t.Read(clampIndex(x0, t.width), clampIndex(y0, t.height))
	c10 := t.Read(clampIndex(x0+1, t.width), clampIndex(y0, t.height))
	c01 := t.Read(clampIndex(x0, t.width), clampIndex(y0+1, t.height))
	c11 := t.Read(clampIndex(x0+1, t.width), clampIndex(y0+1, t.height))

	var out [4]float32
	for i := range out {
		top := c00[i] + (c10[i]-c00[i])*ax
		bottom := c01[i] + (c11[i]-c01[i])*ax
		out[i] = top + (bottom-top)*ay
	}
	return out
}

func clampIndex(v float64, n uint32) uint32 {
	if v < 0 {
		return 0
	}
	if v >= float64(n) {
		return n - 1
	}
	return uint32(v)
}

// load decodes the texel at byte offset i into normalised linear RGBA.
func (t *texture) load(i uint32) [4]float32 {
	p := t.data[i : i+4]
	c := [4]float32{unorm(p[0]), unorm(p[1]), unorm(p[2]), unorm(p[3])}
	if t.format.Order() == common.PixelOrderBGRA {
		c[0], c[2] = c[2], c[0]
	}
	if t.format.IsSRGB() {
		for k := 0; k < 3; k++ {
			c[k] = srgbToLinear(c[k])
		}
	}
	return c
}

// store encodes normalised linear RGBA into the texel at byte offset i.
func (t *texture) store(i uint32, c [4]float32) {
	if t.format.IsSRGB() {
		for k := 0; k < 3; k++ {
			c[k] = linearToSRGB(c[k])
		}
	}
	if t.format.Order() == common.PixelOrderBGRA {
		c[0], c[2] = c[2], c[0]
	}
	p := t.data[i : i+4]
	p[0], p[1], p[2], p[3] = toUnorm(c[0]), toUnorm(c[1]), toUnorm(c[2]), toUnorm(c[3])
}

// fill stores c in every texel.
func (t *texture) fill(c [4]float32) {
	if len(t.data) < 4 {
		return
	}
	t.store(0, c)
	for i := 4; i < len(t.data); i *= 2 {
		copy(t.data[i:], t.data[:i])
	}
}

func unorm(b uint8) float32 {
	return float32(b) / 255
}

func toUnorm(v float32) uint8 {
	return uint8(math.Round(float64(common.Clamp01(v)) * 255))
}

func srgbToLinear(c float32) float32 {
	if c <= 0.04045 {
		return c / 12.92
	}
	return float32(math.Pow((float64(c)+0.055)/1.055, 2.4))
}

func linearToSRGB(c float32) float32 {
	c = common.Clamp01(c)
	if c <= 0.0031308 {
		return c * 12.92
	}
	return float32(1.055*math.Pow(float64(c), 1/2.4) - 0.055)
}
