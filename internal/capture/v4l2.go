package capture

import (
	"context"
	"fmt"
	"image"
	"path/filepath"
	"strconv"
	"time"

	"github.com/blackjack/webcam"
	"go.uber.org/zap"

	"github.com/junsooki/HDMIView/internal/pixfmt"
)

// V4L2Options configures OpenV4L2.
type V4L2Options struct {
	Dir         string
	Format      pixfmt.Format // Unknown negotiates from pixfmt.Preference
	Width       int
	Height      int
	Buffers     int
	ReadTimeout time.Duration
	Logger      *zap.Logger
}

// DevicePath returns the node path for a device index.
func DevicePath(dir string, index int) string {
	return filepath.Join(dir, "video"+strconv.Itoa(index))
}

// OpenV4L2 returns an Opener for video4linux capture nodes.
func OpenV4L2(opts V4L2Options) Opener {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Dir == "" {
		opts.Dir = "/dev"
	}
	return func(ctx context.Context, index int) (Device, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return openV4L2(opts, index)
	}
}

// camera is the part of *webcam.Webcam a streaming device uses.
type camera interface {
	WaitForFrame(timeout uint32) error
	GetFrame() ([]byte, uint32, error)
	ReleaseFrame(index uint32) error
	StopStreaming() error
	Close() error
}

type v4l2Device struct {
	cam     camera
	path    string
	format  pixfmt.Format
	width   int
	height  int
	timeout uint32
}

func openV4L2(opts V4L2Options, index int) (*v4l2Device, error) {
	path := DevicePath(opts.Dir, index)
	cam, err := webcam.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	code, err := chooseFormat(cam.GetSupportedFormats(), opts.Format)
	if err != nil {
		cam.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	w, h := closestSize(cam.GetSupportedFrameSizes(code), opts.Width, opts.Height)

	got, gw, gh, err := cam.SetImageFormat(code, uint32(w), uint32(h))
	if err != nil {
		cam.Close()
		return nil, fmt.Errorf("set format on %s: %w", path, err)
	}
	format := pixfmt.FromFourCC(uint32(got))
	if format == pixfmt.Unknown {
		cam.Close()
		return nil, fmt.Errorf("%s: driver chose unsupported format %#x", path, uint32(got))
	}

	if opts.Buffers > 0 {
		if err := cam.SetBufferCount(uint32(opts.Buffers)); err != nil {
			cam.Close()
			return nil, fmt.Errorf("set buffer count on %s: %w", path, err)
		}
	}
	if err := cam.StartStreaming(); err != nil {
		cam.Close()
		return nil, fmt.Errorf("start streaming on %s: %w", path, err)
	}

	timeout := uint32(opts.ReadTimeout / time.Second)
	if timeout == 0 {
		timeout = 1
	}
	opts.Logger.Info("capture device opened",
		zap.String("path", path),
		zap.Stringer("format", format),
		zap.Uint32("width", gw),
		zap.Uint32("height", gh),
	)
	return &v4l2Device{
		cam:     cam,
		path:    path,
		format:  format,
		width:   int(gw),
		height:  int(gh),
		timeout: timeout,
	}, nil
}

func (d *v4l2Device) ReadFrame(ctx context.Context) (*image.RGBA, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	err := d.cam.WaitForFrame(d.timeout)
	switch err.(type) {
	case nil:
	case *webcam.Timeout:
		return nil, ErrNoFrame
	default:
		return nil, fmt.Errorf("wait for frame on %s: %w", d.path, err)
	}

	// data points into a driver buffer; it is only valid until ReleaseFrame.
	data, buf, err := d.cam.GetFrame()
	if err != nil {
		return nil, fmt.Errorf("read frame on %s: %w", d.path, err)
	}
	img, convErr := d.convert(data)
	if err := d.cam.ReleaseFrame(buf); err != nil {
		return nil, fmt.Errorf("release buffer %d on %s: %w", buf, d.path, err)
	}
	return img, convErr
}

func (d *v4l2Device) convert(data []byte) (*image.RGBA, error) {
	if len(data) == 0 {
		return nil, ErrNoFrame
	}
	return pixfmt.ToRGBA(d.format, data, d.width, d.height)
}

func (d *v4l2Device) Close() error {
	_ = d.cam.StopStreaming()
	return d.cam.Close()
}

// chooseFormat picks want when the device offers it, otherwise the first
// supported entry of pixfmt.Preference.
func chooseFormat(supported map[webcam.PixelFormat]string, want pixfmt.Format) (webcam.PixelFormat, error) {
	has := func(f pixfmt.Format) (webcam.PixelFormat, bool) {
		for code := range supported {
			if pixfmt.FromFourCC(uint32(code)) == f {
				return code, true
			}
		}
		return 0, false
	}
	if want != pixfmt.Unknown {
		if code, ok := has(want); ok {
			return code, nil
		}
	}
	for _, f := range pixfmt.Preference {
		if code, ok := has(f); ok {
			return code, nil
		}
	}
	return 0, fmt.Errorf("%w: none of the offered formats", pixfmt.ErrUnsupported)
}

// closestSize returns the supported size nearest to w x h. Stepwise ranges
// are clamped and snapped to their step.
func closestSize(sizes []webcam.FrameSize, w, h int) (int, int) {
	if len(sizes) == 0 {
		return w, h
	}
	bestW, bestH, bestD := w, h, -1
	for _, s := range sizes {
		cw := snap(w, int(s.MinWidth), int(s.MaxWidth), int(s.StepWidth))
		ch := snap(h, int(s.MinHeight), int(s.MaxHeight), int(s.StepHeight))
		d := abs(cw-w) + abs(ch-h)
		if bestD < 0 || d < bestD {
			bestW, bestH, bestD = cw, ch, d
		}
	}
	return bestW, bestH
}

func snap(v, lo, hi, step int) int {
	if hi < lo {
		hi = lo
	}
	if v < lo {
		v = lo
	}
	if v > hi {
		v = hi
	}
	if step > 0 {
		v = lo + (v-lo)/step*step
	}
	return v
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
