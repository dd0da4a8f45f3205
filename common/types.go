// package common contains common types that are used throughout this engine. They are not interface-wrapped structs, just plain structs that express
// commonly used data-types.
package common

import "fmt"

// PixelOrder is the byte order of a 4-channel, 8-bit-per-channel pixel.
type PixelOrder int

const (
	// PixelOrderRGBA stores red, green, blue, alpha.
	PixelOrderRGBA PixelOrder = iota
	// PixelOrderBGRA stores blue, green, red, alpha.
	PixelOrderBGRA
)

func (o PixelOrder) String() string {
	switch o {
	case PixelOrderRGBA:
		return "rgba"
	case PixelOrderBGRA:
		return "bgra"
	default:
		return fmt.Sprintf("PixelOrder(%d)", int(o))
	}
}

// TextureStagingData holds decoded pixel data pending upload into a texture resource.
type TextureStagingData struct {
	// Pixels is the pixel data, 4 bytes per pixel, row-major, top row first.
	Pixels []byte
	// Width is the width of the texture in pixels.
	Width uint32
	// Height is the height of the texture in pixels.
	Height uint32
	// Order is the channel order of Pixels.
	Order PixelOrder
}

// BytesPerRow returns the row pitch of the staged pixels.
func (t *TextureStagingData) BytesPerRow() uint32 {
	return t.Width * 4
}

// At returns the pixel at (x, y) in RGBA order regardless of the staged order.
func (t *TextureStagingData) At(x, y uint32) [4]uint8 {
	i := (y*t.Width + x) * 4
	p := [4]uint8{t.Pixels[i], t.Pixels[i+1], t.Pixels[i+2], t.Pixels[i+3]}
	if t.Order == PixelOrderBGRA {
		p[0], p[2] = p[2], p[0]
	}
	return p
}

// Convert rewrites the pixels in place into the requested order.
//
// Parameters:
//   - order: the target channel order
func (t *TextureStagingData) Convert(order PixelOrder) {
	if t.Order == order {
		return
	}
	SwapRedBlue(t.Pixels)
	t.Order = order
}

// SwapRedBlue exchanges the first and third byte of every 4-byte pixel in place.
// It converts between RGBA and BGRA layouts in either direction.
func SwapRedBlue(pixels []byte) {
	for i := 0; i+3 < len(pixels); i += 4 {
		pixels[i], pixels[i+2] = pixels[i+2], pixels[i]
	}
}
