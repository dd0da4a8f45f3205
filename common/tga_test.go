package common

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tgaFile(imageType, bpp, desc uint8, w, h uint16, body []byte) []byte {
	head := make([]byte, tgaHeaderSize)
	head[2] = imageType
	binary.LittleEndian.PutUint16(head[12:], w)
	binary.LittleEndian.PutUint16(head[14:], h)
	head[16] = bpp
	head[17] = desc
	return append(head, body...)
}

func TestDecodeTGAUncompressedBottomUp(t *testing.T) {
	// 1x2, bottom row first: bottom pixel blue, top pixel red. 24-bit BGR.
	data := tgaFile(tgaTypeTrueColor, 24, 0, 1, 2, []byte{
		255, 0, 0,
		0, 0, 255,
	})
	img, err := DecodeTGA(bytes.NewReader(data))
	require.NoError(t, err)

	n := img.(*image.NRGBA)
	assert.Equal(t, color.NRGBA{R: 255, A: 255}, n.NRGBAAt(0, 0))
	assert.Equal(t, color.NRGBA{B: 255, A: 255}, n.NRGBAAt(0, 1))
}

func TestDecodeTGATopDownWithAlpha(t *testing.T) {
	data := tgaFile(tgaTypeTrueColor, 32, tgaDescTopToBottom|8, 2, 1, []byte{
		1, 2, 3, 4,
		5, 6, 7, 8,
	})
	img, err := DecodeTGA(bytes.NewReader(data))
	require.NoError(t, err)

	n := img.(*image.NRGBA)
	assert.Equal(t, color.NRGBA{R: 3, G: 2, B: 1, A: 4}, n.NRGBAAt(0, 0))
	assert.Equal(t, color.NRGBA{R: 7, G: 6, B: 5, A: 8}, n.NRGBAAt(1, 0))
}

func TestDecodeTGAIgnoresAlphaWithoutAlphaBits(t *testing.T) {
	data := tgaFile(tgaTypeTrueColor, 32, tgaDescTopToBottom, 1, 1, []byte{1, 2, 3, 0})
	img, err := DecodeTGA(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{R: 3, G: 2, B: 1, A: 255}, img.(*image.NRGBA).NRGBAAt(0, 0))
}

func TestDecodeTGARLE(t *testing.T) {
	// 4x1 grey: run of three 0x40 then one raw 0x80.
	data := tgaFile(tgaTypeRLEGray, 8, tgaDescTopToBottom, 4, 1, []byte{
		0x82, 0x40,
		0x00, 0x80,
	})
	img, err := DecodeTGA(bytes.NewReader(data))
	require.NoError(t, err)

	n := img.(*image.NRGBA)
	for x := 0; x < 3; x++ {
		assert.Equal(t, color.NRGBA{R: 0x40, G: 0x40, B: 0x40, A: 255}, n.NRGBAAt(x, 0))
	}
	assert.Equal(t, color.NRGBA{R: 0x80, G: 0x80, B: 0x80, A: 255}, n.NRGBAAt(3, 0))
}

func TestDecodeTGARLEOverflow(t *testing.T) {
	data := tgaFile(tgaTypeRLEGray, 8, 0, 2, 1, []byte{0x85, 0x40})
	_, err := DecodeTGA(bytes.NewReader(data))
	assert.Error(t, err)
}

func TestDecodeTGARightToLeft(t *testing.T) {
	data := tgaFile(tgaTypeGray, 8, tgaDescTopToBottom|tgaDescRightToLeft, 2, 1, []byte{10, 20})
	img, err := DecodeTGA(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, uint8(20), img.(*image.NRGBA).NRGBAAt(0, 0).R)
}

func TestDecodeTGAUnsupported(t *testing.T) {
	tests := map[string][]byte{
		"colour mapped": tgaFile(1, 8, 0, 1, 1, []byte{0}),
		"16 bit":        tgaFile(tgaTypeTrueColor, 16, 0, 1, 1, []byte{0, 0}),
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeTGA(bytes.NewReader(data))
			assert.ErrorIs(t, err, ErrUnsupportedTGA)
		})
	}
}

func TestDecodeTGATruncated(t *testing.T) {
	data := tgaFile(tgaTypeTrueColor, 24, 0, 2, 2, []byte{1, 2, 3})
	_, err := DecodeTGA(bytes.NewReader(data))
	assert.Error(t, err)
}

func TestTGARegisteredWithImageDecode(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeTGA(&buf, testImage()))

	cfg, format, err := image.DecodeConfig(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, "tga", format)
	assert.Equal(t, 2, cfg.Width)

	tex, err := DecodeTextureBytes(buf.Bytes(), PixelOrderRGBA)
	require.NoError(t, err)
	assert.Equal(t, [4]uint8{10, 20, 30, 128}, tex.At(1, 1))
}
