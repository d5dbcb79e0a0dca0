package capture

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"sync"
)

// SMPTE-style bars, left to right.
var bars = []color.RGBA{
	{0xC0, 0xC0, 0xC0, 0xFF},
	{0xC0, 0xC0, 0x00, 0xFF},
	{0x00, 0xC0, 0xC0, 0xFF},
	{0x00, 0xC0, 0x00, 0xFF},
	{0xC0, 0x00, 0xC0, 0xFF},
	{0xC0, 0x00, 0x00, 0xFF},
	{0x00, 0x00, 0xC0, 0xFF},
	{0x10, 0x10, 0x10, 0xFF},
}

// OpenPattern returns an Opener of synthetic devices. Each index rotates the
// bar order so devices are told apart on screen; a white line scrolls down one
// row per frame.
func OpenPattern(width, height int) (Opener, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: pattern %dx%d", ErrBadSize, width, height)
	}
	return func(ctx context.Context, index int) (Device, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return &PatternDevice{index: index, width: width, height: height}, nil
	}, nil
}

// PatternDevice is a capture device that renders test bars.
type PatternDevice struct {
	index  int
	width  int
	height int

	mu     sync.Mutex
	frame  int
	closed bool
}

func (d *PatternDevice) ReadFrame(ctx context.Context) (*image.RGBA, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, ErrClosed
	}

	img := image.NewRGBA(image.Rect(0, 0, d.width, d.height))
	barW := (d.width + len(bars) - 1) / len(bars)
	marker := d.frame % d.height
	for y := 0; y < d.height; y++ {
		row := img.Pix[y*img.Stride:]
		for x := 0; x < d.width; x++ {
			c := bars[(x/barW+d.index)%len(bars)]
			if y == marker {
				c = color.RGBA{0xFF, 0xFF, 0xFF, 0xFF}
			}
			o := x * 4
			row[o], row[o+1], row[o+2], row[o+3] = c.R, c.G, c.B, c.A
		}
	}
	d.frame++
	return img, nil
}

func (d *PatternDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	d.closed = true
	return nil
}
