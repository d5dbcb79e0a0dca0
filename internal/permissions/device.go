// Package permissions checks that the current user may open capture devices.
package permissions

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

var (
	ErrNoDevice = errors.New("device node does not exist")
	ErrDenied   = errors.New("no read/write access to device")
)

// CheckDevice returns nil when path exists and is readable and writable.
func CheckDevice(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%s: %w", path, ErrNoDevice)
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK); err != nil {
		return fmt.Errorf("%s: %w (%v)", path, ErrDenied, err)
	}
	return nil
}

// Hint returns advice for a CheckDevice error, or "".
func Hint(err error) string {
	switch {
	case errors.Is(err, ErrDenied):
		return "add your user to the video group (sudo usermod -aG video $USER) and log in again"
	case errors.Is(err, ErrNoDevice):
		return "check that the capture device is plugged in; `hdmiview devices` lists what is present"
	}
	return ""
}
