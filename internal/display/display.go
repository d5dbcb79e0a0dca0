package display

import (
	"image"

	"github.com/junsooki/HDMIView/internal/input"
)

// Display renders frames and turns key presses into commands.
type Display interface {
	Run() error
}

// FrameSink accepts frames from any goroutine.
type FrameSink interface {
	SetFrame(img *image.RGBA)
}

// CommandCallback is called on the UI goroutine for every bound key press.
// It must not block.
type CommandCallback func(cmd input.Command)
