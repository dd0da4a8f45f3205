package common

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// LoadTexture decodes the image file at path into staging data with the requested channel order.
// Supports PNG, JPEG, GIF, BMP, TIFF, WebP and TGA.
//
// Parameters:
//   - path: the image file on disk
//   - order: the channel order of the returned pixels
//
// Returns:
//   - *TextureStagingData: the decoded pixels
//   - error: error if the file cannot be opened or decoded
func LoadTexture(path string, order PixelOrder) (*TextureStagingData, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open texture file %s: %w", path, err)
	}
	defer file.Close()

	tex, err := DecodeTexture(file, order)
	if err != nil {
		return nil, fmt.Errorf("failed to decode texture file %s: %w", path, err)
	}
	return tex, nil
}

// DecodeTexture decodes an encoded image from r into staging data with the requested channel order.
//
// Parameters:
//   - r: the encoded image bytes
//   - order: the channel order of the returned pixels
//
// Returns:
//   - *TextureStagingData: the decoded pixels
//   - error: error if decoding fails
func DecodeTexture(r io.Reader, order PixelOrder) (*TextureStagingData, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, err
	}
	return TextureFromImage(img, order), nil
}

// DecodeTextureBytes is DecodeTexture over an in-memory buffer, used for embedded assets.
func DecodeTextureBytes(data []byte, order PixelOrder) (*TextureStagingData, error) {
	return DecodeTexture(bytes.NewReader(data), order)
}

// TextureFromImage converts any image into non-premultiplied 8-bit staging data.
//
// Parameters:
//   - img: the source image
//   - order: the channel order of the returned pixels
//
// Returns:
//   - *TextureStagingData: the converted pixels
func TextureFromImage(img image.Image, order PixelOrder) *TextureStagingData {
	bounds := img.Bounds()
	nrgba, ok := img.(*image.NRGBA)
	if !ok || nrgba.Stride != bounds.Dx()*4 {
		nrgba = image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		draw.Draw(nrgba, nrgba.Bounds(), img, bounds.Min, draw.Src)
	}

	pixels := make([]byte, len(nrgba.Pix))
	copy(pixels, nrgba.Pix)
	tex := &TextureStagingData{
		Pixels: pixels,
		Width:  uint32(bounds.Dx()),
		Height: uint32(bounds.Dy()),
		Order:  PixelOrderRGBA,
	}
	tex.Convert(order)
	return tex
}

// ImageFromPixels wraps 4-byte pixels of the given order in an *image.NRGBA for encoding.
// The pixel bytes are copied.
func ImageFromPixels(pixels []byte, width, height uint32, order PixelOrder) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, int(width), int(height)))
	copy(img.Pix, pixels)
	if order == PixelOrderBGRA {
		SwapRedBlue(img.Pix)
	}
	return img
}
