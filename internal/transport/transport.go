package transport

import "errors"

// DataChannel labels.
const (
	FramesLabel  = "frames"
	ControlLabel = "control"
)

var (
	ErrNotOpen = errors.New("transport: data channel not open")
	ErrBusy    = errors.New("transport: send buffer full")
)

// FrameSender sends encoded video frames.
type FrameSender interface {
	SendFrame(data []byte) error
}

// FrameReceiver receives encoded video frames.
type FrameReceiver interface {
	OnFrame(callback func(data []byte))
}

// ControlSender sends serialized viewer commands.
type ControlSender interface {
	SendControl(data []byte) error
}

// ControlReceiver receives serialized viewer commands.
type ControlReceiver interface {
	OnControl(callback func(data []byte))
}
