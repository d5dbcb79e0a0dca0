// Package app wires capture sessions, commands and the signaling relay
// for the hdmiview subcommands.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/junsooki/HDMIView/internal/capture"
	"github.com/junsooki/HDMIView/internal/config"
	"github.com/junsooki/HDMIView/internal/permissions"
	"github.com/junsooki/HDMIView/internal/pixfmt"
)

// NewOpener builds the device opener for the configured source.
func NewOpener(cc config.CaptureConfig, log *zap.Logger) (capture.Opener, error) {
	switch cc.Source {
	case "pattern":
		return capture.OpenPattern(cc.Width, cc.Height)
	case "v4l2":
		format, err := pixfmt.ParseFormat(cc.PixelFormat)
		if err != nil {
			return nil, err
		}
		return capture.OpenV4L2(capture.V4L2Options{
			Dir:         cc.DeviceDir,
			Format:      format,
			Width:       cc.Width,
			Height:      cc.Height,
			Buffers:     cc.Buffers,
			ReadTimeout: cc.ReadTimeout,
			Logger:      log,
		}), nil
	default:
		return nil, fmt.Errorf("unknown capture source %q", cc.Source)
	}
}

// CaptureStack is a started Session plus the optional device catalog
// feeding it.
type CaptureStack struct {
	Session *capture.Session
	Catalog *capture.DeviceCatalog
}

// StartCapture opens the configured device and starts polling it.
func StartCapture(ctx context.Context, cc config.CaptureConfig, log *zap.Logger) (*CaptureStack, error) {
	open, err := NewOpener(cc, log)
	if err != nil {
		return nil, err
	}

	if cc.Source == "v4l2" {
		path := capture.DevicePath(cc.DeviceDir, cc.DeviceIndex)
		if err := permissions.CheckDevice(path); err != nil {
			// The poller keeps retrying, so a missing device is not fatal.
			log.Warn("capture device not usable yet",
				zap.String("path", path), zap.Error(err), zap.String("hint", permissions.Hint(err)))
		}
	}

	session := capture.NewSession(open, capture.SessionConfig{
		Range:         capture.Range{Min: cc.MinIndex, Max: cc.MaxIndex, Wrap: cc.Wrap},
		Interval:      cc.PollInterval,
		RetryInterval: cc.RetryInterval,
	}, log.Named("capture"))

	stack := &CaptureStack{Session: session}
	if cc.SkipMissing && cc.Source == "v4l2" {
		catalog, err := capture.NewDeviceCatalog(cc.DeviceDir, log.Named("catalog"))
		if err != nil {
			return nil, err
		}
		if err := catalog.Start(ctx); err != nil {
			_ = catalog.Close()
			return nil, err
		}
		session.SetCatalog(catalog)
		stack.Catalog = catalog
	}

	if err := session.Start(ctx, cc.DeviceIndex); err != nil {
		stack.Close()
		return nil, err
	}
	log.Info("capture started",
		zap.String("source", cc.Source),
		zap.Int("device", cc.DeviceIndex),
		zap.Duration("interval", cc.PollInterval))
	return stack, nil
}

// Close stops polling and the catalog. It is safe to call more than once.
func (c *CaptureStack) Close() {
	c.Session.Close()
	if c.Catalog != nil {
		_ = c.Catalog.Close()
	}
}
