package peer

import (
	"encoding/json"
	"fmt"

	"github.com/pion/webrtc/v4"
	"go.uber.org/zap"

	"github.com/junsooki/HDMIView/internal/transport"
)

// Controller manages the viewing side of the WebRTC connection.
type Controller struct {
	pc         *webrtc.PeerConnection
	sig        Signaler
	transport  *transport.DataChannelTransport
	candidates candidateQueue
	hostID     string
	log        *zap.Logger
}

// NewController creates a Controller peer manager and its data channels.
// Frames are unordered with no retransmits; a late frame is worthless.
func NewController(sig Signaler, hostID string, cfg Config) (*Controller, error) {
	pc, err := NewPeerConnection(cfg)
	if err != nil {
		return nil, fmt.Errorf("create peer connection: %w", err)
	}

	framesOrdered := false
	framesMaxRetransmits := uint16(0)
	framesDC, err := pc.CreateDataChannel(transport.FramesLabel, &webrtc.DataChannelInit{
		Ordered:        &framesOrdered,
		MaxRetransmits: &framesMaxRetransmits,
	})
	if err != nil {
		pc.Close()
		return nil, fmt.Errorf("create frames channel: %w", err)
	}

	controlOrdered := true
	controlDC, err := pc.CreateDataChannel(transport.ControlLabel, &webrtc.DataChannelInit{
		Ordered: &controlOrdered,
	})
	if err != nil {
		pc.Close()
		return nil, fmt.Errorf("create control channel: %w", err)
	}

	ctrl := &Controller{
		pc:        pc,
		sig:       sig,
		transport: transport.NewDataChannelTransport(framesDC, controlDC),
		hostID:    hostID,
		log:       cfg.logger().Named("controller-peer"),
	}
	controlDC.OnOpen(func() {
		ctrl.log.Info("control data channel open")
	})

	pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil {
			return
		}
		sendCandidate(sig, hostID, c, ctrl.log)
	})

	return ctrl, nil
}

// SendControl sends a serialized command to the host.
func (c *Controller) SendControl(data []byte) error {
	return c.transport.SendControl(data)
}

// OnFrame registers the handler for frames from the host.
func (c *Controller) OnFrame(cb func(data []byte)) {
	c.transport.OnFrame(cb)
}

// Connect initiates the WebRTC connection by creating and sending an offer.
func (c *Controller) Connect() error {
	offer, err := c.pc.CreateOffer(nil)
	if err != nil {
		return fmt.Errorf("create offer: %w", err)
	}
	if err := c.pc.SetLocalDescription(offer); err != nil {
		return fmt.Errorf("set local description: %w", err)
	}

	offerJSON, err := json.Marshal(offer)
	if err != nil {
		return err
	}
	return c.sig.SendOffer(c.hostID, offerJSON)
}

// HandleAnswer processes an incoming SDP answer.
func (c *Controller) HandleAnswer(payload json.RawMessage) error {
	var answer webrtc.SessionDescription
	if err := json.Unmarshal(payload, &answer); err != nil {
		return fmt.Errorf("unmarshal answer: %w", err)
	}
	if err := c.pc.SetRemoteDescription(answer); err != nil {
		return fmt.Errorf("set remote description: %w", err)
	}
	return c.candidates.flush(c.pc)
}

// HandleICECandidate adds a remote ICE candidate.
func (c *Controller) HandleICECandidate(payload json.RawMessage) error {
	return c.candidates.add(c.pc, payload)
}

// Close shuts down the peer connection.
func (c *Controller) Close() error {
	return c.pc.Close()
}

var (
	_ transport.ControlSender = (*Controller)(nil)
	_ transport.FrameReceiver = (*Controller)(nil)
)
