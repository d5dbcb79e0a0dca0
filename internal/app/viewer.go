package app

import (
	"encoding/json"
	"image"
	"sync"

	"go.uber.org/zap"

	"github.com/junsooki/HDMIView/internal/decoder"
	"github.com/junsooki/HDMIView/internal/signaling"
	"github.com/junsooki/HDMIView/internal/transport"
)

// ControllerPeer is the viewing side of one host connection.
// *peer.Controller implements it.
type ControllerPeer interface {
	transport.ControlSender
	transport.FrameReceiver
	Connect() error
	HandleAnswer(payload json.RawMessage) error
	HandleICECandidate(payload json.RawMessage) error
	Close() error
}

// FrameSink receives decoded frames. The display implements it.
type FrameSink interface {
	SetFrame(img *image.RGBA)
	SetStatus(s string)
}

// Viewer keeps one connection to a host, picking the configured host (or
// the first listed one) and reconnecting when it reappears in the host list.
type Viewer struct {
	newPeer func(hostID string) (ControllerPeer, error)
	dec     decoder.Decoder
	sink    FrameSink
	log     *zap.Logger

	mu     sync.Mutex
	want   string // empty means any host
	target string
	peer   ControllerPeer
}

// NewViewer creates a Viewer. newPeer is called for every connection attempt.
func NewViewer(newPeer func(hostID string) (ControllerPeer, error), target string, dec decoder.Decoder, sink FrameSink, log *zap.Logger) *Viewer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Viewer{newPeer: newPeer, want: target, dec: dec, sink: sink, log: log}
}

func (v *Viewer) current() ControllerPeer {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.peer
}

func (v *Viewer) connect(hostID string) {
	p, err := v.newPeer(hostID)
	if err != nil {
		v.log.Error("create peer", zap.Error(err))
		return
	}
	p.OnFrame(func(data []byte) {
		img, err := v.dec.Decode(data)
		if err != nil {
			v.log.Debug("decode frame", zap.Error(err))
			return
		}
		v.sink.SetFrame(img)
	})

	v.mu.Lock()
	old := v.peer
	v.peer = p
	v.target = hostID
	v.mu.Unlock()
	if old != nil {
		_ = old.Close()
	}

	v.log.Info("connecting to host", zap.String("host", hostID))
	v.sink.SetStatus("connecting to " + hostID)
	if err := p.Connect(); err != nil {
		v.log.Error("send offer", zap.Error(err))
	}
}

// HostsUpdated connects to a matching host when not connected.
func (v *Viewer) HostsUpdated(hosts []signaling.HostInfo) {
	v.mu.Lock()
	want, connected := v.want, v.peer != nil
	v.mu.Unlock()
	if connected {
		return
	}
	for _, h := range hosts {
		if want == "" || h.ID == want {
			v.connect(h.ID)
			return
		}
	}
	if want == "" {
		v.sink.SetStatus("waiting for a host")
	} else {
		v.sink.SetStatus("waiting for host " + want)
	}
}

// HostDisconnected drops the connection when its host leaves.
func (v *Viewer) HostDisconnected(hostID string) {
	v.mu.Lock()
	if v.peer == nil || hostID != v.target {
		v.mu.Unlock()
		return
	}
	p := v.peer
	v.peer = nil
	v.target = ""
	v.mu.Unlock()
	_ = p.Close()
	v.log.Info("host disconnected", zap.String("host", hostID))
	v.sink.SetStatus("host " + hostID + " disconnected")
}

func (v *Viewer) fromTarget(from string) ControllerPeer {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.peer == nil || from != v.target {
		return nil
	}
	return v.peer
}

// HandleAnswer applies the connected host's answer.
func (v *Viewer) HandleAnswer(from string, payload json.RawMessage) {
	p := v.fromTarget(from)
	if p == nil {
		return
	}
	if err := p.HandleAnswer(payload); err != nil {
		v.log.Error("handle answer", zap.Error(err))
		return
	}
	v.sink.SetStatus("")
}

// HandleCandidate adds a candidate from the connected host.
func (v *Viewer) HandleCandidate(from string, payload json.RawMessage) {
	if p := v.fromTarget(from); p != nil {
		if err := p.HandleICECandidate(payload); err != nil {
			v.log.Warn("add ICE candidate", zap.Error(err))
		}
	}
}

// SendControl forwards a serialized command to the host.
func (v *Viewer) SendControl(data []byte) error {
	p := v.current()
	if p == nil {
		return transport.ErrNotOpen
	}
	return p.SendControl(data)
}

// Close closes the current peer.
func (v *Viewer) Close() {
	v.mu.Lock()
	p := v.peer
	v.peer = nil
	v.mu.Unlock()
	if p != nil {
		_ = p.Close()
	}
}
