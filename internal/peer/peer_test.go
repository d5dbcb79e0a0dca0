package peer

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/pion/webrtc/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// loopback routes signaling messages straight into the other peer.
type loopback struct {
	mu         sync.Mutex
	host       *Host
	controller *Controller
	offers     int
	answers    int
	candidates int
}

func (l *loopback) SendOffer(target string, payload json.RawMessage) error {
	l.mu.Lock()
	l.offers++
	l.mu.Unlock()
	return l.host.HandleOffer("controller-1", payload)
}

func (l *loopback) SendAnswer(target string, payload json.RawMessage) error {
	l.mu.Lock()
	l.answers++
	l.mu.Unlock()
	return l.controller.HandleAnswer(payload)
}

func (l *loopback) SendICECandidate(target string, payload json.RawMessage) error {
	l.mu.Lock()
	l.candidates++
	l.mu.Unlock()
	return nil
}

func TestOfferAnswerExchange(t *testing.T) {
	cfg := Config{ICEServers: []string{}}
	sig := &loopback{}

	host, err := NewHost(sig, cfg)
	require.NoError(t, err)
	defer host.Close()
	ctrl, err := NewController(sig, "host-1", cfg)
	require.NoError(t, err)
	defer ctrl.Close()
	sig.host, sig.controller = host, ctrl

	require.NoError(t, ctrl.Connect())

	assert.Equal(t, "controller-1", host.PeerID())
	assert.Equal(t, 1, sig.offers)
	assert.Equal(t, 1, sig.answers)
	require.NotNil(t, ctrl.pc.RemoteDescription())
	assert.Equal(t, webrtc.SDPTypeAnswer, ctrl.pc.RemoteDescription().Type)
	assert.Contains(t, host.pc.RemoteDescription().SDP, "m=application")
}

func TestCandidatesQueuedUntilRemoteDescription(t *testing.T) {
	host, err := NewHost(&loopback{}, Config{ICEServers: []string{}})
	require.NoError(t, err)
	defer host.Close()

	cand, err := json.Marshal(webrtc.ICECandidateInit{
		Candidate: "candidate:1 1 udp 2130706431 192.0.2.1 50000 typ host",
	})
	require.NoError(t, err)

	require.NoError(t, host.HandleICECandidate(cand))
	host.candidates.mu.Lock()
	assert.Len(t, host.candidates.pending, 1)
	host.candidates.mu.Unlock()

	assert.Error(t, host.HandleICECandidate(json.RawMessage(`{`)))
	assert.Error(t, host.HandleOffer("c", json.RawMessage(`"nope"`)))
}
