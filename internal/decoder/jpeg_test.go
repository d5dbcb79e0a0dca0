package decoder

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJPEGDecoder(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 32, 16))
	for i := range src.Pix {
		src.Pix[i] = 0x80
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, src, &jpeg.Options{Quality: 95}))

	img, err := NewJPEGDecoder().Decode(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 32, 16), img.Bounds())

	c := img.RGBAAt(5, 5)
	assert.InDelta(t, 0x80, int(c.R), 4)
	assert.Equal(t, uint8(0xFF), c.A)
}

func TestJPEGDecoder_Garbage(t *testing.T) {
	_, err := NewJPEGDecoder().Decode([]byte("not a jpeg"))
	assert.Error(t, err)
}

func TestToRGBA_RebasesOrigin(t *testing.T) {
	gray := image.NewGray(image.Rect(10, 10, 14, 12))
	gray.SetGray(10, 10, color.Gray{Y: 200})

	out := ToRGBA(gray)
	assert.Equal(t, image.Rect(0, 0, 4, 2), out.Bounds())
	assert.Equal(t, color.RGBA{200, 200, 200, 255}, out.RGBAAt(0, 0))
}
