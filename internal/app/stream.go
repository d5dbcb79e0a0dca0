package app

import (
	"encoding/json"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/junsooki/HDMIView/internal/capture"
	"github.com/junsooki/HDMIView/internal/encoder"
	"github.com/junsooki/HDMIView/internal/input"
	"github.com/junsooki/HDMIView/internal/transport"
)

// HostPeer is one controller connection on the capturing side.
// *peer.Host implements it.
type HostPeer interface {
	transport.FrameSender
	transport.ControlReceiver
	HandleOffer(from string, payload json.RawMessage) error
	HandleICECandidate(payload json.RawMessage) error
	PeerID() string
	OnReady(fn func())
	Close() error
}

// Streamer serves one controller at a time: a new offer replaces the
// current peer. Device commands from the controller are queued on cmds;
// view commands are ignored.
type Streamer struct {
	newPeer func() (HostPeer, error)
	queue   func(input.Command)
	log     *zap.Logger

	mu   sync.Mutex
	peer HostPeer
}

// NewStreamer creates a Streamer. newPeer is called for every offer.
func NewStreamer(newPeer func() (HostPeer, error), cmds chan<- input.Command, log *zap.Logger) *Streamer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Streamer{
		newPeer: newPeer,
		queue:   Enqueue(cmds, log),
		log:     log,
	}
}

func (s *Streamer) current() HostPeer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peer
}

// HandleOffer answers an offer on a fresh peer and closes the previous one.
func (s *Streamer) HandleOffer(from string, payload json.RawMessage) {
	s.log.Info("received offer", zap.String("from", from))

	p, err := s.newPeer()
	if err != nil {
		s.log.Error("create peer", zap.Error(err))
		return
	}
	p.OnReady(func() {
		s.log.Info("controller connected, streaming", zap.String("controller", from))
	})
	p.OnControl(s.handleControl)

	s.mu.Lock()
	old := s.peer
	s.peer = p
	s.mu.Unlock()
	if old != nil {
		_ = old.Close()
	}

	if err := p.HandleOffer(from, payload); err != nil {
		s.log.Error("handle offer", zap.Error(err))
	}
}

func (s *Streamer) handleControl(data []byte) {
	cmd, err := input.Decode(data)
	if err != nil {
		s.log.Warn("bad control message", zap.Error(err))
		return
	}
	if !cmd.IsDevice() {
		s.log.Debug("ignoring view command from controller", zap.String("command", string(cmd.Type)))
		return
	}
	s.queue(cmd)
}

// HandleCandidate adds a candidate from the connected controller. Candidates
// from anyone else are dropped.
func (s *Streamer) HandleCandidate(from string, payload json.RawMessage) {
	p := s.current()
	if p == nil || p.PeerID() != from {
		return
	}
	if err := p.HandleICECandidate(payload); err != nil {
		s.log.Warn("add ICE candidate", zap.Error(err))
	}
}

// Stream encodes and sends frames until frames is closed. Frames are
// discarded while no controller is connected or the channel is congested.
func (s *Streamer) Stream(frames <-chan *capture.Frame, enc encoder.Encoder) {
	for f := range frames {
		p := s.current()
		if p == nil {
			continue
		}
		data, err := enc.Encode(f.Image)
		if err != nil {
			s.log.Warn("encode frame", zap.Uint64("seq", f.Seq), zap.Error(err))
			continue
		}
		switch err := p.SendFrame(data); {
		case err == nil, errors.Is(err, transport.ErrNotOpen), errors.Is(err, transport.ErrBusy):
		default:
			s.log.Warn("send frame", zap.Error(err))
		}
	}
}

// Close closes the current peer.
func (s *Streamer) Close() {
	s.mu.Lock()
	p := s.peer
	s.peer = nil
	s.mu.Unlock()
	if p != nil {
		_ = p.Close()
	}
}
