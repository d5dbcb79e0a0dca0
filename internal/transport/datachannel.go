package transport

import (
	"sync"

	"github.com/pion/webrtc/v4"
)

// maxBufferedFrames bounds the bytes queued on the frames channel. Frames
// beyond it are dropped rather than queued behind stale ones.
const maxBufferedFrames = 1 << 20

// DataChannelTransport carries frames and control commands over WebRTC DataChannels.
type DataChannelTransport struct {
	maxBuffered uint64

	mu        sync.RWMutex
	framesDC  *webrtc.DataChannel
	controlDC *webrtc.DataChannel
	onFrame   func(data []byte)
	onControl func(data []byte)
}

// NewDataChannelTransport wraps two DataChannels (frames + control). Either
// may be nil and set later once negotiated.
func NewDataChannelTransport(framesDC, controlDC *webrtc.DataChannel) *DataChannelTransport {
	t := &DataChannelTransport{maxBuffered: maxBufferedFrames}
	if framesDC != nil {
		t.SetFramesChannel(framesDC)
	}
	if controlDC != nil {
		t.SetControlChannel(controlDC)
	}
	return t
}

func (t *DataChannelTransport) SendFrame(data []byte) error {
	t.mu.RLock()
	dc := t.framesDC
	t.mu.RUnlock()
	if dc == nil || dc.ReadyState() != webrtc.DataChannelStateOpen {
		return ErrNotOpen
	}
	if dc.BufferedAmount() > t.maxBuffered {
		return ErrBusy
	}
	return dc.Send(data)
}

func (t *DataChannelTransport) SendControl(data []byte) error {
	t.mu.RLock()
	dc := t.controlDC
	t.mu.RUnlock()
	if dc == nil || dc.ReadyState() != webrtc.DataChannelStateOpen {
		return ErrNotOpen
	}
	return dc.Send(data)
}

func (t *DataChannelTransport) OnFrame(cb func(data []byte)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onFrame = cb
}

func (t *DataChannelTransport) OnControl(cb func(data []byte)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onControl = cb
}

// SetFramesChannel sets or replaces the frames DataChannel (used when receiving negotiated channels).
func (t *DataChannelTransport) SetFramesChannel(dc *webrtc.DataChannel) {
	t.mu.Lock()
	t.framesDC = dc
	t.mu.Unlock()
	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		t.mu.RLock()
		cb := t.onFrame
		t.mu.RUnlock()
		if cb != nil {
			cb(msg.Data)
		}
	})
}

// SetControlChannel sets or replaces the control DataChannel.
func (t *DataChannelTransport) SetControlChannel(dc *webrtc.DataChannel) {
	t.mu.Lock()
	t.controlDC = dc
	t.mu.Unlock()
	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		t.mu.RLock()
		cb := t.onControl
		t.mu.RUnlock()
		if cb != nil {
			cb(msg.Data)
		}
	})
}

var (
	_ FrameSender     = (*DataChannelTransport)(nil)
	_ FrameReceiver   = (*DataChannelTransport)(nil)
	_ ControlSender   = (*DataChannelTransport)(nil)
	_ ControlReceiver = (*DataChannelTransport)(nil)
)
