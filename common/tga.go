package common

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
)

const tgaHeaderSize = 18

const (
	tgaTypeTrueColor    = 2
	tgaTypeGray         = 3
	tgaTypeRLETrueColor = 10
	tgaTypeRLEGray      = 11

	tgaDescRightToLeft = 1 << 4
	tgaDescTopToBottom = 1 << 5
)

// ErrUnsupportedTGA is returned for Targa variants the decoder does not handle (colour-mapped, 16-bit).
var ErrUnsupportedTGA = errors.New("tga: unsupported image type")

func init() {
	// TGA files have no magic number. The empty prefix makes image.Decode try this decoder last.
	image.RegisterFormat("tga", "", DecodeTGA, DecodeTGAConfig)
}

type tgaHeader struct {
	idLength     uint8
	colorMapType uint8
	imageType    uint8
	colorMapLen  uint16
	colorMapBits uint8
	width        uint16
	height       uint16
	bitsPerPixel uint8
	descriptor   uint8
}

func readTGAHeader(r io.Reader) (tgaHeader, error) {
	var raw [tgaHeaderSize]byte
	if _, err := io.ReadFull(r, raw[:]); err != nil {
		return tgaHeader{}, fmt.Errorf("tga: reading header: %w", err)
	}
	h := tgaHeader{
		idLength:     raw[0],
		colorMapType: raw[1],
		imageType:    raw[2],
		colorMapLen:  binary.LittleEndian.Uint16(raw[5:7]),
		colorMapBits: raw[7],
		width:        binary.LittleEndian.Uint16(raw[12:14]),
		height:       binary.LittleEndian.Uint16(raw[14:16]),
		bitsPerPixel: raw[16],
		descriptor:   raw[17],
	}
	return h, h.validate()
}

func (h tgaHeader) gray() bool {
	return h.imageType == tgaTypeGray || h.imageType == tgaTypeRLEGray
}

func (h tgaHeader) rle() bool {
	return h.imageType == tgaTypeRLETrueColor || h.imageType == tgaTypeRLEGray
}

func (h tgaHeader) validate() error {
	switch h.imageType {
	case tgaTypeTrueColor, tgaTypeRLETrueColor:
		if h.bitsPerPixel != 24 && h.bitsPerPixel != 32 {
			return fmt.Errorf("%w: %d-bit true colour", ErrUnsupportedTGA, h.bitsPerPixel)
		}
	case tgaTypeGray, tgaTypeRLEGray:
		if h.bitsPerPixel != 8 {
			return fmt.Errorf("%w: %d-bit greyscale", ErrUnsupportedTGA, h.bitsPerPixel)
		}
	default:
		return fmt.Errorf("%w: type %d", ErrUnsupportedTGA, h.imageType)
	}
	if h.width == 0 || h.height == 0 {
		return fmt.Errorf("tga: invalid dimensions %dx%d", h.width, h.height)
	}
	return nil
}

// DecodeTGAConfig returns the dimensions and colour model of a Targa image without decoding pixels.
func DecodeTGAConfig(r io.Reader) (image.Config, error) {
	h, err := readTGAHeader(r)
	if err != nil {
		return image.Config{}, err
	}
	return image.Config{ColorModel: color.NRGBAModel, Width: int(h.width), Height: int(h.height)}, nil
}

// DecodeTGA decodes an uncompressed or run-length encoded true-colour or greyscale Targa image.
// Both bottom-up and top-down origins are handled; the result is always top row first.
//
// Parameters:
//   - r: the encoded image
//
// Returns:
//   - image.Image: an *image.NRGBA holding the pixels
//   - error: error if the data is truncated or of an unsupported type
func DecodeTGA(r io.Reader) (image.Image, error) {
	br := bufio.NewReader(r)
	h, err := readTGAHeader(br)
	if err != nil {
		return nil, err
	}

	skip := int64(h.idLength)
	if h.colorMapType == 1 {
		skip += int64(h.colorMapLen) * int64((h.colorMapBits+7)/8)
	}
	if _, err := io.CopyN(io.Discard, br, skip); err != nil {
		return nil, fmt.Errorf("tga: skipping header fields: %w", err)
	}

	bpp := int(h.bitsPerPixel / 8)
	count := int(h.width) * int(h.height)
	raw := make([]byte, count*bpp)
	if h.rle() {
		err = readTGARLE(br, raw, bpp)
	} else {
		_, err = io.ReadFull(br, raw)
	}
	if err != nil {
		return nil, fmt.Errorf("tga: reading pixels: %w", err)
	}

	w, ht := int(h.width), int(h.height)
	alpha := h.descriptor&0x0f != 0
	img := image.NewNRGBA(image.Rect(0, 0, w, ht))
	for sy := 0; sy < ht; sy++ {
		dy := ht - 1 - sy
		if h.descriptor&tgaDescTopToBottom != 0 {
			dy = sy
		}
		for sx := 0; sx < w; sx++ {
			dx := sx
			if h.descriptor&tgaDescRightToLeft != 0 {
				dx = w - 1 - sx
			}
			src := raw[(sy*w+sx)*bpp:]
			dst := img.Pix[dy*img.Stride+dx*4:]
			if h.gray() {
				dst[0], dst[1], dst[2], dst[3] = src[0], src[0], src[0], 0xff
				continue
			}
			dst[0], dst[1], dst[2], dst[3] = src[2], src[1], src[0], 0xff
			if bpp == 4 && alpha {
				dst[3] = src[3]
			}
		}
	}
	return img, nil
}

// readTGARLE expands run-length packets into dst. Packets may cross scanlines.
func readTGARLE(r io.ByteReader, dst []byte, bpp int) error {
	pixel := make([]byte, bpp)
	for off := 0; off < len(dst); {
		head, err := r.ReadByte()
		if err != nil {
			return err
		}
		n := int(head&0x7f) + 1
		if off+n*bpp > len(dst) {
			return fmt.Errorf("run of %d pixels overflows image", n)
		}
		if head&0x80 != 0 {
			for i := range pixel {
				if pixel[i], err = r.ReadByte(); err != nil {
					return err
				}
			}
			for i := 0; i < n; i++ {
				off += copy(dst[off:], pixel)
			}
			continue
		}
		for i := 0; i < n*bpp; i++ {
			if dst[off], err = r.ReadByte(); err != nil {
				return err
			}
			off++
		}
	}
	return nil
}

// EncodeTGA writes img as an uncompressed, top-down, 32-bit Targa file.
func EncodeTGA(w io.Writer, img image.Image) error {
	b := img.Bounds()
	if b.Dx() > 0xffff || b.Dy() > 0xffff {
		return fmt.Errorf("tga: image %dx%d too large", b.Dx(), b.Dy())
	}
	var head [tgaHeaderSize]byte
	head[2] = tgaTypeTrueColor
	binary.LittleEndian.PutUint16(head[12:14], uint16(b.Dx()))
	binary.LittleEndian.PutUint16(head[14:16], uint16(b.Dy()))
	head[16] = 32
	head[17] = tgaDescTopToBottom | 8

	bw := bufio.NewWriter(w)
	if _, err := bw.Write(head[:]); err != nil {
		return err
	}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			if _, err := bw.Write([]byte{c.B, c.G, c.R, c.A}); err != nil {
				return err
			}
		}
	}
	return bw.Flush()
}
