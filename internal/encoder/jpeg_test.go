package encoder

import (
	"bytes"
	"image"
	"image/jpeg"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gradient(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			o := img.PixOffset(x, y)
			img.Pix[o] = uint8(x)
			img.Pix[o+1] = uint8(y)
			img.Pix[o+2] = 0x40
			img.Pix[o+3] = 0xFF
		}
	}
	return img
}

func decodeSize(t *testing.T, data []byte) image.Point {
	t.Helper()
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	return image.Pt(cfg.Width, cfg.Height)
}

func TestJPEGEncoder_KeepsSize(t *testing.T) {
	data, err := NewJPEGEncoder(70, 0).Encode(gradient(64, 48))
	require.NoError(t, err)
	assert.Equal(t, image.Pt(64, 48), decodeSize(t, data))
}

func TestJPEGEncoder_Downscales(t *testing.T) {
	enc := NewJPEGEncoder(70, 32)
	data, err := enc.Encode(gradient(64, 48))
	require.NoError(t, err)
	assert.Equal(t, image.Pt(32, 24), decodeSize(t, data))

	// narrower frames pass through
	data, err = enc.Encode(gradient(16, 16))
	require.NoError(t, err)
	assert.Equal(t, image.Pt(16, 16), decodeSize(t, data))
}

func TestJPEGEncoder_Quality(t *testing.T) {
	img := gradient(128, 128)
	low, err := NewJPEGEncoder(5, 0).Encode(img)
	require.NoError(t, err)

	enc := NewJPEGEncoder(500, 0)
	high, err := enc.Encode(img)
	require.NoError(t, err)
	assert.Greater(t, len(high), len(low))
	assert.Equal(t, 100, enc.quality)

	assert.Equal(t, 1, clampQuality(-3))
}
