package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/junsooki/HDMIView/internal/app"
	"github.com/junsooki/HDMIView/internal/config"
	"github.com/junsooki/HDMIView/internal/display"
	"github.com/junsooki/HDMIView/internal/input"
	"github.com/junsooki/HDMIView/internal/viewport"
)

var viewCmd = &cobra.Command{
	Use:   "view",
	Short: "Show the capture device in a local window (default)",
	RunE:  runView,
}

func init() {
	addViewFlags(viewCmd)
}

func addViewFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&flagCfg.Display.Title, "title", flagCfg.Display.Title, "Window title")
	f.BoolVar(&flagCfg.Display.Fullscreen, "fullscreen", flagCfg.Display.Fullscreen, "Start fullscreen")
	f.BoolVar(&stretch, "stretch", false, "Stretch frames to the window instead of keeping the aspect ratio")
	f.BoolVar(&flagCfg.Display.ShowStatus, "status", flagCfg.Display.ShowStatus, "Show device and frame rate overlay")
}

func displayOptions(dc config.DisplayConfig) display.Options {
	aspect := viewport.KeepAspect
	if !dc.KeepAspect {
		aspect = viewport.IgnoreAspect
	}
	return display.Options{
		Title:      dc.Title,
		Width:      dc.Width,
		Height:     dc.Height,
		Fullscreen: dc.Fullscreen,
		Aspect:     aspect,
	}
}

func runView(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stack, err := app.StartCapture(ctx, cfg.Capture, logger)
	if err != nil {
		return err
	}
	defer stack.Close()

	cmds := make(chan input.Command, 8)
	disp := display.NewEbitenDisplay(displayOptions(cfg.Display), app.Enqueue(cmds, logger), logger.Named("display"))
	dispatcher := input.NewDispatcher(stack.Session, disp, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		app.RunCommands(gctx, cmds, dispatcher, logger)
		return nil
	})
	g.Go(func() error {
		frames := stack.Session.Frames()
		for {
			select {
			case <-gctx.Done():
				return nil
			case f, ok := <-frames:
				if !ok {
					return nil
				}
				disp.SetFrame(f.Image)
			}
		}
	})
	if cfg.Display.ShowStatus {
		g.Go(func() error {
			var line app.StatusLine
			ticker := time.NewTicker(time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-gctx.Done():
					return nil
				case now := <-ticker.C:
					disp.SetStatus(line.Format(stack.Session.Index(), stack.Session.Stats(), now))
				}
			}
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		disp.Quit()
		return nil
	})

	// Ebitengine needs the main goroutine.
	runErr := disp.Run()
	logger.Info("window closed", zap.Int("device", stack.Session.Index()))
	cancel()
	stack.Close()
	_ = g.Wait()
	return runErr
}
