package app

import (
	"encoding/json"
	"image"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junsooki/HDMIView/internal/decoder"
	"github.com/junsooki/HDMIView/internal/encoder"
	"github.com/junsooki/HDMIView/internal/signaling"
	"github.com/junsooki/HDMIView/internal/transport"
)

type fakeControllerPeer struct {
	hostID     string
	connects   int
	answers    int
	candidates int
	sent       [][]byte
	onFrame    func([]byte)
	closed     bool
}

func (p *fakeControllerPeer) SendControl(data []byte) error {
	p.sent = append(p.sent, data)
	return nil
}

func (p *fakeControllerPeer) OnFrame(cb func([]byte)) { p.onFrame = cb }

func (p *fakeControllerPeer) Connect() error {
	p.connects++
	return nil
}

func (p *fakeControllerPeer) HandleAnswer(json.RawMessage) error {
	p.answers++
	return nil
}

func (p *fakeControllerPeer) HandleICECandidate(json.RawMessage) error {
	p.candidates++
	return nil
}

func (p *fakeControllerPeer) Close() error {
	p.closed = true
	return nil
}

type controllerPeers struct {
	made []*fakeControllerPeer
}

func (c *controllerPeers) newPeer(hostID string) (ControllerPeer, error) {
	p := &fakeControllerPeer{hostID: hostID}
	c.made = append(c.made, p)
	return p, nil
}

type recordingSink struct {
	mu     sync.Mutex
	frames []*image.RGBA
	status string
}

func (s *recordingSink) SetFrame(img *image.RGBA) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = append(s.frames, img)
}

func (s *recordingSink) SetStatus(status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
}

func newTestViewer(target string) (*Viewer, *controllerPeers, *recordingSink) {
	peers := &controllerPeers{}
	sink := &recordingSink{}
	return NewViewer(peers.newPeer, target, decoder.NewJPEGDecoder(), sink, nil), peers, sink
}

func hosts(ids ...string) []signaling.HostInfo {
	var out []signaling.HostInfo
	for _, id := range ids {
		out = append(out, signaling.HostInfo{ID: id, Online: true})
	}
	return out
}

func TestViewer_ConnectsToFirstHost(t *testing.T) {
	v, peers, sink := newTestViewer("")
	defer v.Close()

	v.HostsUpdated(nil)
	assert.Equal(t, "waiting for a host", sink.status)

	v.HostsUpdated(hosts("host-a", "host-b"))
	require.Len(t, peers.made, 1)
	assert.Equal(t, "host-a", peers.made[0].hostID)
	assert.Equal(t, 1, peers.made[0].connects)
	assert.Equal(t, "connecting to host-a", sink.status)

	// already connected: later lists do not open another peer
	v.HostsUpdated(hosts("host-b"))
	assert.Len(t, peers.made, 1)
}

func TestViewer_WaitsForNamedHost(t *testing.T) {
	v, peers, sink := newTestViewer("host-b")
	defer v.Close()

	v.HostsUpdated(hosts("host-a"))
	assert.Empty(t, peers.made)
	assert.Equal(t, "waiting for host host-b", sink.status)

	v.HostsUpdated(hosts("host-a", "host-b"))
	require.Len(t, peers.made, 1)
	assert.Equal(t, "host-b", peers.made[0].hostID)
}

func TestViewer_ReconnectsAfterHostDisconnect(t *testing.T) {
	v, peers, sink := newTestViewer("")
	defer v.Close()

	v.HostsUpdated(hosts("host-a"))
	require.Len(t, peers.made, 1)

	v.HostDisconnected("host-z")
	assert.False(t, peers.made[0].closed)

	v.HostDisconnected("host-a")
	assert.True(t, peers.made[0].closed)
	assert.Equal(t, "host host-a disconnected", sink.status)
	assert.ErrorIs(t, v.SendControl([]byte(`{}`)), transport.ErrNotOpen)

	v.HostsUpdated(hosts("host-a"))
	require.Len(t, peers.made, 2)
	assert.Equal(t, 1, peers.made[1].connects)
	assert.False(t, peers.made[1].closed)
}

func TestViewer_SignalingFromTargetOnly(t *testing.T) {
	v, peers, sink := newTestViewer("")
	defer v.Close()

	// nothing to route to yet
	v.HandleAnswer("host-a", json.RawMessage(`{}`))

	v.HostsUpdated(hosts("host-a"))
	p := peers.made[0]

	v.HandleAnswer("host-x", json.RawMessage(`{}`))
	v.HandleCandidate("host-x", json.RawMessage(`{}`))
	assert.Equal(t, 0, p.answers)
	assert.Equal(t, 0, p.candidates)

	v.HandleAnswer("host-a", json.RawMessage(`{}`))
	v.HandleCandidate("host-a", json.RawMessage(`{}`))
	assert.Equal(t, 1, p.answers)
	assert.Equal(t, 1, p.candidates)
	assert.Empty(t, sink.status)
}

func TestViewer_FramesAndControl(t *testing.T) {
	v, peers, sink := newTestViewer("")
	defer v.Close()

	assert.ErrorIs(t, v.SendControl([]byte(`{"type":"next_device"}`)), transport.ErrNotOpen)

	v.HostsUpdated(hosts("host-a"))
	p := peers.made[0]

	require.NoError(t, v.SendControl([]byte(`{"type":"next_device"}`)))
	assert.Equal(t, [][]byte{[]byte(`{"type":"next_device"}`)}, p.sent)

	data, err := encoder.NewJPEGEncoder(90, 0).Encode(image.NewRGBA(image.Rect(0, 0, 24, 12)))
	require.NoError(t, err)
	p.onFrame(data)
	p.onFrame([]byte("not a jpeg"))

	require.Len(t, sink.frames, 1)
	assert.Equal(t, image.Rect(0, 0, 24, 12), sink.frames[0].Bounds())
}
