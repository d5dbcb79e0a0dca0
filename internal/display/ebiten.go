package display

import (
	"image"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"go.uber.org/zap"

	"github.com/junsooki/HDMIView/internal/input"
	"github.com/junsooki/HDMIView/internal/viewport"
)

// Options configures the window.
type Options struct {
	Title      string
	Width      int
	Height     int
	Fullscreen bool
	Aspect     viewport.Mode
	ShowHelp   bool
}

// EbitenDisplay paints the latest frame into an Ebitengine window.
type EbitenDisplay struct {
	opts      Options
	onCommand CommandCallback
	log       *zap.Logger

	mu         sync.Mutex
	frame      *image.RGBA
	dirty      bool
	aspect     viewport.Mode
	fullscreen bool
	showHelp   bool
	status     string
	quit       bool
	applied    bool // fullscreen state pushed to the window

	// UI goroutine only.
	ebitenImage *ebiten.Image
}

// NewEbitenDisplay creates an Ebitengine-based display.
func NewEbitenDisplay(opts Options, onCommand CommandCallback, log *zap.Logger) *EbitenDisplay {
	if opts.Width <= 0 || opts.Height <= 0 {
		opts.Width, opts.Height = 1280, 720
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &EbitenDisplay{
		opts:       opts,
		onCommand:  onCommand,
		log:        log,
		aspect:     opts.Aspect,
		fullscreen: opts.Fullscreen,
		showHelp:   opts.ShowHelp,
	}
}

// SetFrame replaces the displayed frame. Only the latest frame is kept.
func (d *EbitenDisplay) SetFrame(img *image.RGBA) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.frame = img
	d.dirty = true
}

// SetStatus sets the overlay status line. An empty string hides it.
func (d *EbitenDisplay) SetStatus(s string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.status = s
}

func (d *EbitenDisplay) SetFullscreen(on bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fullscreen != on {
		d.fullscreen = on
		d.applied = false
	}
}

func (d *EbitenDisplay) SetAspect(mode viewport.Mode) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.aspect = mode
}

func (d *EbitenDisplay) ToggleHelp() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.showHelp = !d.showHelp
}

// Quit closes the window at the next tick.
func (d *EbitenDisplay) Quit() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.quit = true
}

// Run starts the Ebitengine game loop. Must be called from the main goroutine.
func (d *EbitenDisplay) Run() error {
	ebiten.SetWindowSize(d.opts.Width, d.opts.Height)
	ebiten.SetWindowTitle(d.opts.Title)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	return ebiten.RunGame(d)
}

// --- ebiten.Game interface ---

func (d *EbitenDisplay) Update() error {
	if d.onCommand != nil {
		for _, cmd := range pressedCommands() {
			d.log.Debug("key command", zap.String("command", string(cmd.Type)))
			d.onCommand(cmd)
		}
	}

	d.mu.Lock()
	quit := d.quit
	fullscreen, applied := d.fullscreen, d.applied
	d.applied = true
	d.mu.Unlock()

	if !applied {
		ebiten.SetFullscreen(fullscreen)
	}
	if quit {
		return ebiten.Termination
	}
	return nil
}

func (d *EbitenDisplay) Draw(screen *ebiten.Image) {
	d.mu.Lock()
	frame, dirty := d.frame, d.dirty
	d.dirty = false
	aspect, showHelp, status := d.aspect, d.showHelp, d.status
	d.mu.Unlock()

	if frame != nil {
		fw, fh := frame.Bounds().Dx(), frame.Bounds().Dy()
		if d.ebitenImage == nil ||
			d.ebitenImage.Bounds().Dx() != fw ||
			d.ebitenImage.Bounds().Dy() != fh {
			if d.ebitenImage != nil {
				d.ebitenImage.Deallocate()
			}
			d.ebitenImage = ebiten.NewImage(fw, fh)
			dirty = true
		}
		if dirty {
			d.ebitenImage.WritePixels(frame.Pix)
		}

		sw, sh := screen.Bounds().Dx(), screen.Bounds().Dy()
		t := viewport.For(aspect, float64(sw), float64(sh), float64(fw), float64(fh))

		op := &ebiten.DrawImageOptions{}
		op.GeoM.Scale(t.ScaleX, t.ScaleY)
		op.GeoM.Translate(t.OffsetX, t.OffsetY)
		op.Filter = ebiten.FilterLinear
		screen.DrawImage(d.ebitenImage, op)
	}

	var text string
	if showHelp {
		text = helpText + "\n\n"
	}
	text += status
	if text != "" {
		ebitenutil.DebugPrint(screen, text)
	}
}

func (d *EbitenDisplay) Layout(outsideWidth, outsideHeight int) (int, int) {
	return outsideWidth, outsideHeight
}

var _ input.View = (*EbitenDisplay)(nil)
