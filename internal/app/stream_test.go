package app

import (
	"bytes"
	"encoding/json"
	"errors"
	"image"
	"image/jpeg"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junsooki/HDMIView/internal/capture"
	"github.com/junsooki/HDMIView/internal/encoder"
	"github.com/junsooki/HDMIView/internal/input"
	"github.com/junsooki/HDMIView/internal/transport"
)

type fakeHostPeer struct {
	mu         sync.Mutex
	from       string
	candidates int
	sent       [][]byte
	sendErr    error
	onControl  func([]byte)
	closed     bool
}

func (p *fakeHostPeer) SendFrame(data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sendErr != nil {
		return p.sendErr
	}
	p.sent = append(p.sent, data)
	return nil
}

func (p *fakeHostPeer) OnControl(cb func([]byte)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onControl = cb
}

func (p *fakeHostPeer) HandleOffer(from string, payload json.RawMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.from = from
	return nil
}

func (p *fakeHostPeer) HandleICECandidate(json.RawMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.candidates++
	return nil
}

func (p *fakeHostPeer) PeerID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.from
}

func (p *fakeHostPeer) OnReady(func()) {}

func (p *fakeHostPeer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *fakeHostPeer) control(t *testing.T, cmd input.Command) {
	t.Helper()
	data, err := input.Encode(cmd)
	require.NoError(t, err)
	p.onControl(data)
}

// hostPeers hands out a new fake for every offer.
type hostPeers struct {
	made []*fakeHostPeer
	err  error
}

func (h *hostPeers) newPeer() (HostPeer, error) {
	if h.err != nil {
		return nil, h.err
	}
	p := &fakeHostPeer{}
	h.made = append(h.made, p)
	return p, nil
}

func TestStreamer_OnlyDeviceCommandsAreQueued(t *testing.T) {
	peers := &hostPeers{}
	cmds := make(chan input.Command, 4)
	s := NewStreamer(peers.newPeer, cmds, nil)
	defer s.Close()

	s.HandleOffer("controller-1", json.RawMessage(`{}`))
	require.Len(t, peers.made, 1)
	p := peers.made[0]
	assert.Equal(t, "controller-1", p.PeerID())

	p.control(t, input.Command{Type: input.CmdFullscreen})
	p.control(t, input.Command{Type: input.CmdQuit})
	p.control(t, input.Command{Type: input.CmdNextDevice})
	p.control(t, input.Command{Type: input.CmdSelectDevice, Device: 2})
	p.onControl([]byte(`{"type":`))

	require.Len(t, cmds, 2)
	assert.Equal(t, input.CmdNextDevice, (<-cmds).Type)
	assert.Equal(t, input.Command{Type: input.CmdSelectDevice, Device: 2}, <-cmds)
}

func TestStreamer_NewOfferReplacesPeer(t *testing.T) {
	peers := &hostPeers{}
	s := NewStreamer(peers.newPeer, make(chan input.Command, 1), nil)

	s.HandleOffer("controller-1", json.RawMessage(`{}`))
	s.HandleOffer("controller-2", json.RawMessage(`{}`))
	require.Len(t, peers.made, 2)
	first, second := peers.made[0], peers.made[1]
	assert.True(t, first.closed)
	assert.False(t, second.closed)

	// candidates only reach the peer of the controller that sent them
	s.HandleCandidate("controller-1", json.RawMessage(`{}`))
	s.HandleCandidate("controller-2", json.RawMessage(`{}`))
	assert.Equal(t, 0, first.candidates)
	assert.Equal(t, 1, second.candidates)

	s.Close()
	assert.True(t, second.closed)
}

func TestStreamer_PeerCreationFails(t *testing.T) {
	peers := &hostPeers{err: errors.New("no ICE agent")}
	s := NewStreamer(peers.newPeer, make(chan input.Command, 1), nil)
	s.HandleOffer("controller-1", json.RawMessage(`{}`))
	s.HandleCandidate("controller-1", json.RawMessage(`{}`))
	assert.Nil(t, s.current())
}

func testFrame(seq uint64) *capture.Frame {
	return &capture.Frame{Seq: seq, Image: image.NewRGBA(image.Rect(0, 0, 32, 16))}
}

func TestStreamer_Stream(t *testing.T) {
	peers := &hostPeers{}
	s := NewStreamer(peers.newPeer, make(chan input.Command, 1), nil)
	enc := encoder.NewJPEGEncoder(80, 0)

	// nobody connected yet: frames are discarded
	frames := make(chan *capture.Frame, 1)
	frames <- testFrame(1)
	close(frames)
	s.Stream(frames, enc)

	s.HandleOffer("controller-1", json.RawMessage(`{}`))
	p := peers.made[0]

	frames = make(chan *capture.Frame, 3)
	frames <- testFrame(2)
	frames <- testFrame(3)
	close(frames)
	s.Stream(frames, enc)

	require.Len(t, p.sent, 2)
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(p.sent[0]))
	require.NoError(t, err)
	assert.Equal(t, 32, cfg.Width)

	// a congested channel drops the frame and keeps going
	p.sendErr = transport.ErrBusy
	frames = make(chan *capture.Frame, 1)
	frames <- testFrame(4)
	close(frames)
	s.Stream(frames, enc)
	assert.Len(t, p.sent, 2)
}
