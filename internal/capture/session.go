package capture

import (
	"context"
	"fmt"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Catalog reports which device indices currently exist.
type Catalog interface {
	Available() []int
}

// SessionConfig configures a Session.
type SessionConfig struct {
	Range         Range
	Interval      time.Duration
	RetryInterval time.Duration
	// Buffer is the capacity of the Frames channel.
	Buffer int
}

// Session owns the active Poller and switches it between device indices.
// All pollers publish into one channel; a full channel drops the frame
// instead of stalling the polling loop.
type Session struct {
	cfg     SessionConfig
	open    Opener
	log     *zap.Logger
	catalog Catalog

	mu      sync.Mutex
	ctx     context.Context
	index   int
	poller  *Poller
	started bool
	closed  bool

	// Readable while a switch waits on Poller.Stop.
	statsMu sync.Mutex
	current *Poller
	retired Stats
	active  atomic.Int64

	pubMu     sync.RWMutex
	pubClosed bool
	frames    chan *Frame
	seq       atomic.Uint64
	dropped   atomic.Uint64
}

// NewSession creates a Session. Call Start to open the first device.
func NewSession(open Opener, cfg SessionConfig, log *zap.Logger) *Session {
	if cfg.Buffer <= 0 {
		cfg.Buffer = 2
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Session{
		cfg:    cfg,
		open:   open,
		log:    log,
		frames: make(chan *Frame, cfg.Buffer),
	}
}

// SetCatalog restricts cycling to the devices c reports, when it reports any.
func (s *Session) SetCatalog(c Catalog) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.catalog = c
}

// Start begins polling device index.
func (s *Session) Start(ctx context.Context, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.closed:
		return ErrClosed
	case s.started:
		return ErrRunning
	case !s.cfg.Range.Contains(index):
		return fmt.Errorf("%w: %d not in [%d, %d]", ErrOutOfRange, index, s.cfg.Range.Min, s.cfg.Range.Max)
	}
	s.ctx = ctx
	s.started = true
	return s.switchLocked(index)
}

// Frames delivers frames from whichever device is active. It is closed by Close.
func (s *Session) Frames() <-chan *Frame {
	return s.frames
}

// Index returns the active device index.
func (s *Session) Index() int {
	return int(s.active.Load())
}

// Next switches to the following device and returns the active index.
func (s *Session) Next() (int, error) {
	return s.move(1)
}

// Previous switches to the preceding device and returns the active index.
func (s *Session) Previous() (int, error) {
	return s.move(-1)
}

// Select switches to a specific device index. Selecting the active index is a no-op.
func (s *Session) Select(index int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.usableLocked(); err != nil {
		return s.index, err
	}
	if !s.cfg.Range.Contains(index) {
		return s.index, fmt.Errorf("%w: %d not in [%d, %d]", ErrOutOfRange, index, s.cfg.Range.Min, s.cfg.Range.Max)
	}
	if index == s.index {
		return s.index, nil
	}
	return index, s.switchLocked(index)
}

// Stats returns counters summed over every poller this session has run.
func (s *Session) Stats() Stats {
	s.statsMu.Lock()
	st := s.retired
	if s.current != nil {
		st.Add(s.current.Stats())
	}
	s.statsMu.Unlock()
	st.Dropped = s.dropped.Load()
	return st
}

// Close stops polling, releases the device and closes Frames.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.stopLocked()
	s.mu.Unlock()

	s.pubMu.Lock()
	s.pubClosed = true
	close(s.frames)
	s.pubMu.Unlock()
}

func (s *Session) move(delta int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.usableLocked(); err != nil {
		return s.index, err
	}
	var present []int
	if s.catalog != nil {
		present = s.catalog.Available()
	}
	next, ok := s.cfg.Range.Step(s.index, delta, present)
	if !ok {
		return s.index, nil
	}
	return next, s.switchLocked(next)
}

func (s *Session) usableLocked() error {
	if s.closed {
		return ErrClosed
	}
	if !s.started {
		return ErrNotStarted
	}
	return nil
}

// switchLocked stops the active poller, waiting for its device to be
// released, before the next device is opened.
func (s *Session) switchLocked(index int) error {
	s.stopLocked()
	p := NewPoller(s.open, PollerConfig{
		Index:         index,
		Interval:      s.cfg.Interval,
		RetryInterval: s.cfg.RetryInterval,
	}, s.publish, s.log)
	if err := p.Start(s.ctx); err != nil {
		return err
	}
	s.poller = p
	s.index = index
	s.active.Store(int64(index))
	s.statsMu.Lock()
	s.current = p
	s.statsMu.Unlock()
	s.log.Info("capture device changed", zap.Int("device", index))
	return nil
}

// stopLocked stops the active poller and folds its counters into retired.
func (s *Session) stopLocked() {
	if s.poller == nil {
		return
	}
	s.poller.Stop()
	s.statsMu.Lock()
	s.retired.Add(s.poller.Stats())
	s.current = nil
	s.statsMu.Unlock()
	s.poller = nil
}

func (s *Session) publish(index int, img *image.RGBA) {
	s.pubMu.RLock()
	defer s.pubMu.RUnlock()
	if s.pubClosed {
		return
	}
	f := &Frame{
		Seq:       s.seq.Add(1),
		Device:    index,
		Image:     img,
		Timestamp: time.Now(),
	}
	select {
	case s.frames <- f:
	default:
		s.dropped.Add(1)
	}
}
