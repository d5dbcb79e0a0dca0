package capture

import (
	"context"
	"errors"
	"image"
	"sync"
	"sync/atomic"
)

var errFakeRead = errors.New("fake read failure")

type fakeDevice struct {
	index     int
	failEvery int
	// hold, when set, makes ReadFrame wait for it to close even after
	// cancellation, like a driver sitting out its read timeout.
	hold      chan struct{}
	cancelled chan<- int

	reads           atomic.Int64
	closes          atomic.Int64
	readsAfterClose atomic.Int64
}

func (d *fakeDevice) ReadFrame(ctx context.Context) (*image.RGBA, error) {
	if d.hold != nil {
		select {
		case <-d.hold:
		case <-ctx.Done():
			select {
			case d.cancelled <- d.index:
			default:
			}
			<-d.hold
		}
	}
	if d.closes.Load() > 0 {
		d.readsAfterClose.Add(1)
		return nil, ErrClosed
	}
	n := d.reads.Add(1)
	if d.failEvery > 0 && n%int64(d.failEvery) == 0 {
		return nil, errFakeRead
	}
	return image.NewRGBA(image.Rect(0, 0, 4, 2)), nil
}

func (d *fakeDevice) Close() error {
	d.closes.Add(1)
	return nil
}

// fakeOpener records every device it hands out. failOpens makes the first N
// opens of any index fail.
type fakeOpener struct {
	failEvery int
	failOpens int
	hold      chan struct{}
	cancelled chan int

	mu       sync.Mutex
	attempts int
	opened   []*fakeDevice
}

func (o *fakeOpener) Open(ctx context.Context, index int) (Device, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.attempts++
	if o.attempts <= o.failOpens {
		return nil, errors.New("no such device")
	}
	d := &fakeDevice{index: index, failEvery: o.failEvery, hold: o.hold, cancelled: o.cancelled}
	o.opened = append(o.opened, d)
	return d, nil
}

func (o *fakeOpener) devices() []*fakeDevice {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]*fakeDevice(nil), o.opened...)
}

func (o *fakeOpener) indices() []int {
	var out []int
	for _, d := range o.devices() {
		out = append(out, d.index)
	}
	return out
}

type staticCatalog []int

func (c staticCatalog) Available() []int { return c }
