package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/junsooki/HDMIView/internal/app"
	"github.com/junsooki/HDMIView/internal/decoder"
	"github.com/junsooki/HDMIView/internal/display"
	"github.com/junsooki/HDMIView/internal/input"
	"github.com/junsooki/HDMIView/internal/peer"
	"github.com/junsooki/HDMIView/internal/signaling"
)

var controllerCmd = &cobra.Command{
	Use:   "controller",
	Short: "View a remote host and switch its capture device",
	Long: `controller connects to a host through the signaling server and shows its
frames. Left/Right are sent to the host; fullscreen and aspect keys stay local.`,
	RunE: runController,
}

func init() {
	f := controllerCmd.Flags()
	f.StringVar(&flagCfg.Stream.SignalingURL, "signaling", flagCfg.Stream.SignalingURL, "Signaling server URL")
	f.StringVar(&flagCfg.Stream.ControllerID, "controller-id", "", "Controller ID (generated if empty)")
	f.StringVar(&flagCfg.Stream.TargetHost, "host", "", "Host ID to connect to (first listed host if empty)")
	addViewFlags(controllerCmd)
}

func runController(cmd *cobra.Command, args []string) error {
	sc := cfg.Stream
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cmds := make(chan input.Command, 8)
	disp := display.NewEbitenDisplay(displayOptions(cfg.Display), app.Enqueue(cmds, logger), logger.Named("display"))

	var sig *signaling.Client
	peerCfg := peer.Config{ICEServers: sc.ICEServers, Logger: logger}
	v := app.NewViewer(func(hostID string) (app.ControllerPeer, error) {
		c, err := peer.NewController(sig, hostID, peerCfg)
		if err != nil {
			return nil, err
		}
		return c, nil
	}, sc.TargetHost, decoder.NewJPEGDecoder(), disp, logger.Named("controller"))

	sig = signaling.NewClient(sc.SignalingURL, sc.ControllerID, signaling.RoleController, signaling.Handler{
		OnRegistered: func() {
			if err := sig.RequestHostList(); err != nil {
				logger.Warn("request host list", zap.Error(err))
			}
		},
		OnHostsUpdated:     v.HostsUpdated,
		OnHostDisconnected: v.HostDisconnected,
		OnAnswer:           v.HandleAnswer,
		OnICECandidate:     v.HandleCandidate,
		OnError: func(msg string) {
			logger.Warn("signaling error", zap.String("message", msg))
			disp.SetStatus(msg)
		},
	}, logger)
	if err := sig.Connect(ctx); err != nil {
		return fmt.Errorf("connect to signaling server: %w", err)
	}
	defer sig.Close()
	defer v.Close()

	// Device commands travel to the host; view commands apply here.
	dispatcher := input.NewDispatcher(input.RemoteSwitcher{Send: v.SendControl}, disp, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		app.RunCommands(gctx, cmds, dispatcher, logger)
		return nil
	})
	g.Go(func() error {
		var err error
		select {
		case <-gctx.Done():
		case <-sig.Done():
			err = errSignalingLost
		}
		disp.Quit()
		return err
	})

	runErr := disp.Run()
	cancel()
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return runErr
}
