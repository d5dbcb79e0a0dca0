// Package viewport maps frames onto a window.
package viewport

import "math"

// Mode selects how a frame is scaled into the window.
type Mode int

const (
	// KeepAspect letterboxes the frame.
	KeepAspect Mode = iota
	// IgnoreAspect stretches the frame to fill the window.
	IgnoreAspect
)

func (m Mode) String() string {
	if m == IgnoreAspect {
		return "stretch"
	}
	return "fit"
}

// Transform scales then translates frame coordinates into view coordinates.
type Transform struct {
	ScaleX, ScaleY   float64
	OffsetX, OffsetY float64
}

// For returns the transform of the given mode.
func For(m Mode, viewW, viewH, frameW, frameH float64) Transform {
	if m == IgnoreAspect {
		return Stretch(viewW, viewH, frameW, frameH)
	}
	return Fit(viewW, viewH, frameW, frameH)
}

// Fit returns scale and offsets to fit frame into view with letterboxing.
func Fit(viewW, viewH, frameW, frameH float64) Transform {
	if frameW <= 0 || frameH <= 0 {
		return Transform{ScaleX: 1, ScaleY: 1}
	}
	scale := math.Min(viewW/frameW, viewH/frameH)
	return Transform{
		ScaleX:  scale,
		ScaleY:  scale,
		OffsetX: (viewW - frameW*scale) / 2,
		OffsetY: (viewH - frameH*scale) / 2,
	}
}

// Stretch scales each axis independently to fill the view.
func Stretch(viewW, viewH, frameW, frameH float64) Transform {
	if frameW <= 0 || frameH <= 0 {
		return Transform{ScaleX: 1, ScaleY: 1}
	}
	return Transform{ScaleX: viewW / frameW, ScaleY: viewH / frameH}
}
