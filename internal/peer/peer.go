package peer

import (
	"encoding/json"
	"sync"

	"github.com/pion/webrtc/v4"
	"go.uber.org/zap"
)

// DefaultICEServers is used when Config.ICEServers is nil. A non-nil empty
// list disables STUN.
var DefaultICEServers = []string{"stun:stun.l.google.com:19302", "stun:stun1.l.google.com:19302"}

// Config configures peer connections.
type Config struct {
	ICEServers []string
	Logger     *zap.Logger
}

func (c Config) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}

// Signaler relays session descriptions and candidates to the remote peer.
// signaling.Client implements it.
type Signaler interface {
	SendOffer(target string, payload json.RawMessage) error
	SendAnswer(target string, payload json.RawMessage) error
	SendICECandidate(target string, payload json.RawMessage) error
}

// NewPeerConnection creates a configured PeerConnection.
func NewPeerConnection(cfg Config) (*webrtc.PeerConnection, error) {
	urls := cfg.ICEServers
	if urls == nil {
		urls = DefaultICEServers
	}
	var rtcCfg webrtc.Configuration
	if len(urls) > 0 {
		rtcCfg.ICEServers = []webrtc.ICEServer{{URLs: urls}}
	}
	pc, err := webrtc.NewPeerConnection(rtcCfg)
	if err != nil {
		return nil, err
	}
	log := cfg.logger()
	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		log.Info("peer connection state", zap.Stringer("state", state))
	})
	return pc, nil
}

// candidateQueue holds remote candidates that arrive before the remote
// description is set.
type candidateQueue struct {
	mu      sync.Mutex
	ready   bool
	pending []webrtc.ICECandidateInit
}

func (q *candidateQueue) add(pc *webrtc.PeerConnection, payload json.RawMessage) error {
	var candidate webrtc.ICECandidateInit
	if err := json.Unmarshal(payload, &candidate); err != nil {
		return err
	}
	q.mu.Lock()
	if !q.ready {
		q.pending = append(q.pending, candidate)
		q.mu.Unlock()
		return nil
	}
	q.mu.Unlock()
	return pc.AddICECandidate(candidate)
}

// flush marks the remote description as set and applies queued candidates.
func (q *candidateQueue) flush(pc *webrtc.PeerConnection) error {
	q.mu.Lock()
	pending := q.pending
	q.pending = nil
	q.ready = true
	q.mu.Unlock()
	for _, c := range pending {
		if err := pc.AddICECandidate(c); err != nil {
			return err
		}
	}
	return nil
}

func sendCandidate(sig Signaler, target string, c *webrtc.ICECandidate, log *zap.Logger) {
	data, err := json.Marshal(c.ToJSON())
	if err != nil {
		log.Warn("marshal ICE candidate", zap.Error(err))
		return
	}
	if err := sig.SendICECandidate(target, data); err != nil {
		log.Debug("send ICE candidate", zap.Error(err))
	}
}
