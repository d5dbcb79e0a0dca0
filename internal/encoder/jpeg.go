package encoder

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"sync"

	"golang.org/x/image/draw"
)

// JPEGEncoder encodes frames as JPEG, downscaling frames wider than maxWidth.
type JPEGEncoder struct {
	mu       sync.Mutex
	quality  int
	maxWidth int
	scaled   *image.RGBA
}

// NewJPEGEncoder creates a JPEG encoder with the given quality (1-100).
// maxWidth <= 0 disables downscaling.
func NewJPEGEncoder(quality, maxWidth int) *JPEGEncoder {
	return &JPEGEncoder{quality: clampQuality(quality), maxWidth: maxWidth}
}

func (e *JPEGEncoder) Encode(img *image.RGBA) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	src := e.fit(img)
	var buf bytes.Buffer
	buf.Grow(256 * 1024) // pre-allocate 256KB
	if err := jpeg.Encode(&buf, src, &jpeg.Options{Quality: e.quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// fit returns img, or a reused scratch image holding img scaled down to
// maxWidth with the aspect ratio kept.
func (e *JPEGEncoder) fit(img *image.RGBA) image.Image {
	b := img.Bounds()
	if e.maxWidth <= 0 || b.Dx() <= e.maxWidth {
		return img
	}
	h := b.Dy() * e.maxWidth / b.Dx()
	if h < 1 {
		h = 1
	}
	dst := image.Rect(0, 0, e.maxWidth, h)
	if e.scaled == nil || e.scaled.Rect != dst {
		e.scaled = image.NewRGBA(dst)
	}
	draw.ApproxBiLinear.Scale(e.scaled, dst, img, b, draw.Src, nil)
	return e.scaled
}

func clampQuality(q int) int {
	if q < 1 {
		return 1
	}
	if q > 100 {
		return 100
	}
	return q
}
