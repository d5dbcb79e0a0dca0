package peer

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/pion/webrtc/v4"
	"go.uber.org/zap"

	"github.com/junsooki/HDMIView/internal/transport"
)

// Host manages the capturing side of the WebRTC connection. The controller
// creates the data channels; the host adopts them as they arrive.
type Host struct {
	pc         *webrtc.PeerConnection
	sig        Signaler
	transport  *transport.DataChannelTransport
	candidates candidateQueue
	log        *zap.Logger

	mu      sync.Mutex
	peerID  string // the controller we're connected to
	onReady func()
}

// NewHost creates a Host peer manager.
func NewHost(sig Signaler, cfg Config) (*Host, error) {
	pc, err := NewPeerConnection(cfg)
	if err != nil {
		return nil, fmt.Errorf("create peer connection: %w", err)
	}

	h := &Host{
		pc:        pc,
		sig:       sig,
		transport: transport.NewDataChannelTransport(nil, nil),
		log:       cfg.logger().Named("host-peer"),
	}

	pc.OnDataChannel(func(dc *webrtc.DataChannel) {
		h.log.Info("data channel received", zap.String("label", dc.Label()))
		switch dc.Label() {
		case transport.FramesLabel:
			dc.OnOpen(func() {
				h.log.Info("frames data channel open")
				h.mu.Lock()
				ready := h.onReady
				h.mu.Unlock()
				if ready != nil {
					ready()
				}
			})
			h.transport.SetFramesChannel(dc)
		case transport.ControlLabel:
			h.transport.SetControlChannel(dc)
		}
	})

	pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		h.mu.Lock()
		target := h.peerID
		h.mu.Unlock()
		if c == nil || target == "" {
			return
		}
		sendCandidate(sig, target, c, h.log)
	})

	return h, nil
}

// SendFrame sends an encoded frame to the controller.
func (h *Host) SendFrame(data []byte) error {
	return h.transport.SendFrame(data)
}

// OnControl registers the handler for commands from the controller.
func (h *Host) OnControl(cb func(data []byte)) {
	h.transport.OnControl(cb)
}

// OnReady registers a callback run once the frames channel opens.
func (h *Host) OnReady(fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onReady = fn
}

// PeerID returns the controller this host answered.
func (h *Host) PeerID() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.peerID
}

// HandleOffer processes an incoming offer from a controller.
func (h *Host) HandleOffer(from string, payload json.RawMessage) error {
	h.mu.Lock()
	h.peerID = from
	h.mu.Unlock()

	var offer webrtc.SessionDescription
	if err := json.Unmarshal(payload, &offer); err != nil {
		return fmt.Errorf("unmarshal offer: %w", err)
	}
	if err := h.pc.SetRemoteDescription(offer); err != nil {
		return fmt.Errorf("set remote description: %w", err)
	}
	if err := h.candidates.flush(h.pc); err != nil {
		return fmt.Errorf("add queued candidate: %w", err)
	}

	answer, err := h.pc.CreateAnswer(nil)
	if err != nil {
		return fmt.Errorf("create answer: %w", err)
	}
	if err := h.pc.SetLocalDescription(answer); err != nil {
		return fmt.Errorf("set local description: %w", err)
	}

	answerJSON, err := json.Marshal(answer)
	if err != nil {
		return err
	}
	return h.sig.SendAnswer(from, answerJSON)
}

// HandleICECandidate adds a remote ICE candidate.
func (h *Host) HandleICECandidate(payload json.RawMessage) error {
	return h.candidates.add(h.pc, payload)
}

// Close shuts down the peer connection.
func (h *Host) Close() error {
	return h.pc.Close()
}

var (
	_ transport.FrameSender     = (*Host)(nil)
	_ transport.ControlReceiver = (*Host)(nil)
)
