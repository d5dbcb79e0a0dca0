package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/junsooki/HDMIView/internal/capture"
	"github.com/junsooki/HDMIView/internal/input"
)

// Enqueue returns a non-blocking callback that hands commands to a worker.
// Device switches wait for the old device to be released and must stay off
// the UI goroutine.
func Enqueue(cmds chan<- input.Command, log *zap.Logger) func(input.Command) {
	return func(cmd input.Command) {
		select {
		case cmds <- cmd:
		default:
			log.Warn("command queue full, dropping", zap.String("command", string(cmd.Type)))
		}
	}
}

// RunCommands applies queued commands until ctx is done.
func RunCommands(ctx context.Context, cmds <-chan input.Command, h input.Handler, log *zap.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-cmds:
			if err := h.Handle(cmd); err != nil {
				log.Warn("command failed", zap.String("command", string(cmd.Type)), zap.Error(err))
			}
		}
	}
}

// StatusLine formats session stats for the status overlay. fps is computed
// against the previous sample.
type StatusLine struct {
	last     capture.Stats
	lastTime time.Time
}

func (s *StatusLine) Format(index int, st capture.Stats, now time.Time) string {
	fps := 0.0
	if !s.lastTime.IsZero() {
		if dt := now.Sub(s.lastTime).Seconds(); dt > 0 && st.Frames >= s.last.Frames {
			fps = float64(st.Frames-s.last.Frames) / dt
		}
	}
	s.last, s.lastTime = st, now
	return fmt.Sprintf("device %d  %.1f fps  frames %d  dropped %d  read errors %d",
		index, fps, st.Frames, st.Dropped, st.ReadErrors)
}
