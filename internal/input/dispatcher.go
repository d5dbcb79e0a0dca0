package input

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/junsooki/HDMIView/internal/viewport"
)

// Switcher changes the active capture device. capture.Session implements it.
type Switcher interface {
	Next() (int, error)
	Previous() (int, error)
	Select(index int) (int, error)
}

// View changes how frames are presented.
type View interface {
	SetFullscreen(on bool)
	SetAspect(mode viewport.Mode)
	ToggleHelp()
	Quit()
}

// Dispatcher routes device commands to a Switcher and view commands to a View.
// Either side may be nil, in which case its commands are ignored.
type Dispatcher struct {
	switcher Switcher
	view     View
	log      *zap.Logger
}

func NewDispatcher(sw Switcher, view View, log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{switcher: sw, view: view, log: log}
}

func (d *Dispatcher) Handle(cmd Command) error {
	if !known[cmd.Type] {
		return fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Type)
	}
	if cmd.IsDevice() {
		return d.handleDevice(cmd)
	}
	if d.view == nil {
		d.log.Debug("view command ignored", zap.String("command", string(cmd.Type)))
		return nil
	}
	switch cmd.Type {
	case CmdFullscreen:
		d.view.SetFullscreen(true)
	case CmdWindowed:
		d.view.SetFullscreen(false)
	case CmdKeepAspect:
		d.view.SetAspect(viewport.KeepAspect)
	case CmdIgnoreAspect:
		d.view.SetAspect(viewport.IgnoreAspect)
	case CmdToggleHelp:
		d.view.ToggleHelp()
	case CmdQuit:
		d.view.Quit()
	}
	return nil
}

func (d *Dispatcher) handleDevice(cmd Command) error {
	if d.switcher == nil {
		d.log.Debug("device command ignored", zap.String("command", string(cmd.Type)))
		return nil
	}
	var (
		idx int
		err error
	)
	switch cmd.Type {
	case CmdNextDevice:
		idx, err = d.switcher.Next()
	case CmdPreviousDevice:
		idx, err = d.switcher.Previous()
	case CmdSelectDevice:
		idx, err = d.switcher.Select(cmd.Device)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", cmd.Type, err)
	}
	if idx >= 0 {
		d.log.Info("capture device selected", zap.Int("device", idx))
	}
	return nil
}

// RemoteSwitcher forwards device commands to a remote host. The remote
// index is not known locally, so every method returns -1.
type RemoteSwitcher struct {
	Send func(data []byte) error
}

func (r RemoteSwitcher) Next() (int, error) {
	return -1, r.send(Command{Type: CmdNextDevice})
}

func (r RemoteSwitcher) Previous() (int, error) {
	return -1, r.send(Command{Type: CmdPreviousDevice})
}

func (r RemoteSwitcher) Select(index int) (int, error) {
	return -1, r.send(Command{Type: CmdSelectDevice, Device: index})
}

func (r RemoteSwitcher) send(c Command) error {
	data, err := Encode(c)
	if err != nil {
		return err
	}
	return r.Send(data)
}
