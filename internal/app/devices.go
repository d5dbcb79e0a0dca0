package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"go.uber.org/zap"

	"github.com/junsooki/HDMIView/internal/capture"
	"github.com/junsooki/HDMIView/internal/config"
	"github.com/junsooki/HDMIView/internal/permissions"
)

// ListDevices writes a table of the video nodes in cc.DeviceDir. With probe
// set each accessible device is opened and one frame is read.
func ListDevices(ctx context.Context, out io.Writer, cc config.CaptureConfig, probe bool, log *zap.Logger) error {
	indices, err := capture.ScanDevices(cc.DeviceDir)
	if err != nil {
		return err
	}
	if len(indices) == 0 {
		fmt.Fprintf(out, "No video devices in %s\n", cc.DeviceDir)
		return nil
	}

	var open capture.Opener
	if probe {
		if open, err = NewOpener(cc, log); err != nil {
			return err
		}
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "INDEX\tPATH\tACCESS\tFRAME")
	for _, i := range indices {
		path := capture.DevicePath(cc.DeviceDir, i)
		access := "ok"
		accessErr := permissions.CheckDevice(path)
		if accessErr != nil {
			access = accessErr.Error()
		}
		frame := "-"
		if open != nil && accessErr == nil {
			frame = probeDevice(ctx, open, i, cc)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", i, path, access, frame)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	return nil
}

func probeDevice(ctx context.Context, open capture.Opener, index int, cc config.CaptureConfig) string {
	ctx, cancel := context.WithTimeout(ctx, cc.ReadTimeout+cc.RetryInterval)
	defer cancel()
	dev, err := open(ctx, index)
	if err != nil {
		return "open failed: " + err.Error()
	}
	defer dev.Close()
	for {
		img, err := dev.ReadFrame(ctx)
		switch {
		case err == nil:
			b := img.Bounds()
			return fmt.Sprintf("%dx%d", b.Dx(), b.Dy())
		case errors.Is(err, capture.ErrNoFrame) && ctx.Err() == nil:
			continue
		default:
			return "read failed: " + err.Error()
		}
	}
}
