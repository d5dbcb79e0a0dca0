package capture

import (
	"context"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// PollerConfig configures a Poller.
type PollerConfig struct {
	Index int
	// Interval is the pause after each read. It bounds the frame rate and
	// with it the CPU spent polling.
	Interval time.Duration
	// RetryInterval is the pause between failed open attempts.
	RetryInterval time.Duration
}

// Poller reads frames from one device until stopped.
type Poller struct {
	cfg     PollerConfig
	open    Opener
	publish func(index int, img *image.RGBA)
	log     *zap.Logger

	frames     atomic.Uint64
	readErrors atomic.Uint64
	opens      atomic.Uint64
	openErrors atomic.Uint64

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewPoller creates a Poller. publish is called from the polling goroutine
// for every successful read and must not block.
func NewPoller(open Opener, cfg PollerConfig, publish func(index int, img *image.RGBA), log *zap.Logger) *Poller {
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Poller{
		cfg:     cfg,
		open:    open,
		publish: publish,
		log:     log.With(zap.Int("device", cfg.Index)),
	}
}

// Index returns the device index this poller drives.
func (p *Poller) Index() int {
	return p.cfg.Index
}

// Start launches the polling goroutine. A Poller runs once; later calls
// return ErrRunning.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done != nil {
		return ErrRunning
	}
	ctx, p.cancel = context.WithCancel(ctx)
	p.done = make(chan struct{})
	go p.run(ctx, p.done)
	return nil
}

// Stop ends the loop and blocks until the device has been released.
// It is safe to call more than once.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.mu.Unlock()
	if done == nil {
		return
	}
	cancel()
	<-done
}

// Done is closed once the polling goroutine has exited.
func (p *Poller) Done() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done
}

// Stats returns the counters of this poller.
func (p *Poller) Stats() Stats {
	return Stats{
		Frames:     p.frames.Load(),
		ReadErrors: p.readErrors.Load(),
		Opens:      p.opens.Load(),
		OpenErrors: p.openErrors.Load(),
	}
}

func (p *Poller) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	dev, err := p.openDevice(ctx)
	if err != nil {
		return
	}
	defer func() {
		if err := dev.Close(); err != nil {
			p.log.Warn("release capture device", zap.Error(err))
		}
		p.log.Debug("capture device released")
	}()

	wait := time.NewTimer(p.cfg.Interval)
	defer wait.Stop()
	for {
		img, err := dev.ReadFrame(ctx)
		switch {
		case err == nil:
			p.frames.Add(1)
			p.publish(p.cfg.Index, img)
		case ctx.Err() != nil:
			return
		default:
			// Failed reads are skipped; the next tick tries again.
			if p.readErrors.Add(1) == 1 {
				p.log.Debug("frame read failed", zap.Error(err))
			}
		}

		wait.Reset(p.cfg.Interval)
		select {
		case <-ctx.Done():
			return
		case <-wait.C:
		}
	}
}

func (p *Poller) openDevice(ctx context.Context) (Device, error) {
	for {
		dev, err := p.open(ctx, p.cfg.Index)
		if err == nil {
			p.opens.Add(1)
			return dev, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if p.openErrors.Add(1) == 1 {
			p.log.Warn("open capture device failed, retrying", zap.Error(err))
		} else {
			p.log.Debug("open capture device failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(p.cfg.RetryInterval):
		}
	}
}
