// Package pixfmt converts raw capture buffers into RGBA images.
//
// Capture hardware hands out packed YUV 4:2:2, motion JPEG or 24-bit RGB/BGR
// buffers. Everything downstream of capture (display, encoder) works on
// *image.RGBA, so every buffer passes through ToRGBA exactly once.
package pixfmt

import (
	"errors"
	"fmt"
	"strings"
)

// Format is a capture pixel format.
type Format int

const (
	Unknown Format = iota
	YUYV
	MJPEG
	RGB24
	BGR24
)

// V4L2 FourCC codes.
const (
	fourccYUYV = 0x56595559 // 'YUYV'
	fourccMJPG = 0x47504A4D // 'MJPG'
	fourccJPEG = 0x4745504A // 'JPEG'
	fourccRGB3 = 0x33424752 // 'RGB3'
	fourccBGR3 = 0x33524742 // 'BGR3'
)

var (
	ErrShortBuffer = errors.New("pixfmt: buffer shorter than frame")
	ErrBadSize     = errors.New("pixfmt: invalid frame size")
	ErrUnsupported = errors.New("pixfmt: unsupported format")
)

var names = map[Format]string{
	YUYV:  "yuyv",
	MJPEG: "mjpeg",
	RGB24: "rgb24",
	BGR24: "bgr24",
}

func (f Format) String() string {
	if n, ok := names[f]; ok {
		return n
	}
	return "unknown"
}

// FourCC returns the V4L2 code for f, or 0.
func (f Format) FourCC() uint32 {
	switch f {
	case YUYV:
		return fourccYUYV
	case MJPEG:
		return fourccMJPG
	case RGB24:
		return fourccRGB3
	case BGR24:
		return fourccBGR3
	}
	return 0
}

// FromFourCC maps a V4L2 code to a Format.
func FromFourCC(code uint32) Format {
	switch code {
	case fourccYUYV:
		return YUYV
	case fourccMJPG, fourccJPEG:
		return MJPEG
	case fourccRGB3:
		return RGB24
	case fourccBGR3:
		return BGR24
	}
	return Unknown
}

// ParseFormat accepts a format name. "auto" and "" map to Unknown, meaning
// the capture side negotiates.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "auto":
		return Unknown, nil
	case "yuyv", "yuy2":
		return YUYV, nil
	case "mjpeg", "mjpg", "jpeg":
		return MJPEG, nil
	case "rgb24", "rgb":
		return RGB24, nil
	case "bgr24", "bgr":
		return BGR24, nil
	}
	return Unknown, fmt.Errorf("%w: %q", ErrUnsupported, s)
}

// Preference is the negotiation order when no format is requested.
var Preference = []Format{YUYV, MJPEG, RGB24, BGR24}
