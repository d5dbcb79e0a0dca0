package input

import (
	"encoding/json"
	"errors"
	"fmt"
)

// CommandType identifies a viewer command.
type CommandType string

const (
	CmdNextDevice     CommandType = "next_device"
	CmdPreviousDevice CommandType = "previous_device"
	CmdSelectDevice   CommandType = "select_device"
	CmdFullscreen     CommandType = "fullscreen"
	CmdWindowed       CommandType = "windowed"
	CmdKeepAspect     CommandType = "keep_aspect"
	CmdIgnoreAspect   CommandType = "ignore_aspect"
	CmdToggleHelp     CommandType = "toggle_help"
	CmdQuit           CommandType = "quit"
)

var ErrUnknownCommand = errors.New("unknown command")

var known = map[CommandType]bool{
	CmdNextDevice: true, CmdPreviousDevice: true, CmdSelectDevice: true,
	CmdFullscreen: true, CmdWindowed: true,
	CmdKeepAspect: true, CmdIgnoreAspect: true,
	CmdToggleHelp: true, CmdQuit: true,
}

// Command is the wire format for viewer commands sent over the control channel.
type Command struct {
	Type CommandType `json:"type"`
	// Device is the target index of CmdSelectDevice.
	Device int `json:"device,omitempty"`
}

// IsDevice reports whether c changes the capture device rather than the view.
func (c Command) IsDevice() bool {
	switch c.Type {
	case CmdNextDevice, CmdPreviousDevice, CmdSelectDevice:
		return true
	}
	return false
}

// Encode marshals c.
func Encode(c Command) ([]byte, error) {
	if !known[c.Type] {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, c.Type)
	}
	return json.Marshal(c)
}

// Decode unmarshals and validates a command.
func Decode(data []byte) (Command, error) {
	var c Command
	if err := json.Unmarshal(data, &c); err != nil {
		return c, fmt.Errorf("unmarshal command: %w", err)
	}
	if !known[c.Type] {
		return c, fmt.Errorf("%w: %q", ErrUnknownCommand, c.Type)
	}
	return c, nil
}
