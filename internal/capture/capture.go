// Package capture polls video capture devices and hands their frames to a
// single consumer.
//
// A Poller owns one open device and runs the read, publish, sleep loop in its
// own goroutine. A Session owns at most one Poller at a time and replaces it
// when the viewer cycles to another device index.
package capture

import (
	"context"
	"errors"
	"image"
	"time"
)

// Frame represents a captured video frame.
type Frame struct {
	Seq       uint64
	Device    int
	Image     *image.RGBA
	Timestamp time.Time
}

// Size returns the frame dimensions.
func (f *Frame) Size() (w, h int) {
	b := f.Image.Bounds()
	return b.Dx(), b.Dy()
}

// Device is an open capture device.
// ReadFrame returns a freshly allocated image; callers may keep it.
type Device interface {
	ReadFrame(ctx context.Context) (*image.RGBA, error)
	Close() error
}

// Opener opens the device with the given index.
type Opener func(ctx context.Context, index int) (Device, error)

var (
	ErrClosed     = errors.New("capture: closed")
	ErrNoFrame    = errors.New("capture: no frame available")
	ErrRunning    = errors.New("capture: already running")
	ErrNotStarted = errors.New("capture: not started")
	ErrOutOfRange = errors.New("capture: device index out of range")
	ErrBadSize    = errors.New("capture: frame size must be positive")
)

// Stats counts polling activity.
type Stats struct {
	Frames     uint64
	ReadErrors uint64
	Dropped    uint64
	Opens      uint64
	OpenErrors uint64
}

// Add accumulates o into s.
func (s *Stats) Add(o Stats) {
	s.Frames += o.Frames
	s.ReadErrors += o.ReadErrors
	s.Dropped += o.Dropped
	s.Opens += o.Opens
	s.OpenErrors += o.OpenErrors
}
