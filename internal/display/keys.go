package display

import (
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/junsooki/HDMIView/internal/input"
)

type binding struct {
	key ebiten.Key
	cmd input.Command
}

var bindings = []binding{
	{ebiten.KeyArrowLeft, input.Command{Type: input.CmdPreviousDevice}},
	{ebiten.KeyArrowRight, input.Command{Type: input.CmdNextDevice}},
	{ebiten.KeyArrowUp, input.Command{Type: input.CmdFullscreen}},
	{ebiten.KeyArrowDown, input.Command{Type: input.CmdWindowed}},
	{ebiten.KeyNumpadAdd, input.Command{Type: input.CmdIgnoreAspect}},
	{ebiten.KeyMinus, input.Command{Type: input.CmdKeepAspect}},
	{ebiten.KeyNumpadSubtract, input.Command{Type: input.CmdKeepAspect}},
	{ebiten.KeyF1, input.Command{Type: input.CmdToggleHelp}},
	{ebiten.KeyEscape, input.Command{Type: input.CmdQuit}},
}

var digitKeys = []ebiten.Key{
	ebiten.KeyDigit0, ebiten.KeyDigit1, ebiten.KeyDigit2, ebiten.KeyDigit3, ebiten.KeyDigit4,
	ebiten.KeyDigit5, ebiten.KeyDigit6, ebiten.KeyDigit7, ebiten.KeyDigit8, ebiten.KeyDigit9,
}

// pressedCommands returns the commands for keys pressed since the last tick.
func pressedCommands() []input.Command {
	var cmds []input.Command
	for _, b := range bindings {
		if inpututil.IsKeyJustPressed(b.key) {
			cmds = append(cmds, b.cmd)
		}
	}
	// '+' shares its key with '='.
	if inpututil.IsKeyJustPressed(ebiten.KeyEqual) && ebiten.IsKeyPressed(ebiten.KeyShift) {
		cmds = append(cmds, input.Command{Type: input.CmdIgnoreAspect})
	}
	for i, k := range digitKeys {
		if inpututil.IsKeyJustPressed(k) {
			cmds = append(cmds, input.Command{Type: input.CmdSelectDevice, Device: i})
		}
	}
	return cmds
}

const helpText = `Left/Right  previous/next device
0-9         select device
Up/Down     full screen/windowed
+/-         stretch/keep aspect
F1          toggle this help
Esc         quit`
