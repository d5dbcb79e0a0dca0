package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/junsooki/HDMIView/internal/app"
	"github.com/junsooki/HDMIView/internal/encoder"
	"github.com/junsooki/HDMIView/internal/input"
	"github.com/junsooki/HDMIView/internal/peer"
	"github.com/junsooki/HDMIView/internal/signaling"
)

var errSignalingLost = errors.New("signaling connection lost")

var hostCmd = &cobra.Command{
	Use:   "host",
	Short: "Stream the capture device to remote controllers",
	RunE:  runHost,
}

func init() {
	f := hostCmd.Flags()
	f.StringVar(&flagCfg.Stream.SignalingURL, "signaling", flagCfg.Stream.SignalingURL, "Signaling server URL")
	f.StringVar(&flagCfg.Stream.HostID, "host-id", "", "Host ID (generated if empty)")
	f.IntVar(&flagCfg.Stream.Quality, "quality", flagCfg.Stream.Quality, "JPEG quality 1-100")
	f.IntVar(&flagCfg.Stream.MaxWidth, "max-width", flagCfg.Stream.MaxWidth, "Downscale frames wider than this (0 keeps full size)")
}

func runHost(cmd *cobra.Command, args []string) error {
	sc := cfg.Stream
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stack, err := app.StartCapture(ctx, cfg.Capture, logger)
	if err != nil {
		return err
	}
	defer stack.Close()

	var sig *signaling.Client
	peerCfg := peer.Config{ICEServers: sc.ICEServers, Logger: logger}
	cmds := make(chan input.Command, 8)
	s := app.NewStreamer(func() (app.HostPeer, error) {
		h, err := peer.NewHost(sig, peerCfg)
		if err != nil {
			return nil, err
		}
		return h, nil
	}, cmds, logger.Named("host"))

	sig = signaling.NewClient(sc.SignalingURL, sc.HostID, signaling.RoleHost, signaling.Handler{
		OnRegistered: func() {
			logger.Info("registered with signaling server", zap.String("host_id", sc.HostID))
		},
		OnOffer:        s.HandleOffer,
		OnICECandidate: s.HandleCandidate,
		OnError: func(msg string) {
			logger.Warn("signaling error", zap.String("message", msg))
		},
	}, logger)
	if err := sig.Connect(ctx); err != nil {
		return fmt.Errorf("connect to signaling server: %w", err)
	}
	defer sig.Close()
	defer s.Close()

	dispatcher := input.NewDispatcher(stack.Session, nil, logger)
	enc := encoder.NewJPEGEncoder(sc.Quality, sc.MaxWidth)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		app.RunCommands(gctx, cmds, dispatcher, logger)
		return nil
	})
	g.Go(func() error {
		s.Stream(stack.Session.Frames(), enc)
		return nil
	})
	g.Go(func() error {
		var err error
		select {
		case <-gctx.Done():
		case <-sig.Done():
			err = errSignalingLost
		}
		// Closing the session ends Stream.
		stack.Close()
		return err
	})

	fmt.Fprintf(cmd.OutOrStdout(), "Host %q ready. Press Ctrl+C to stop.\n", sc.HostID)
	err = g.Wait()
	logger.Info("host stopped", zap.Any("stats", stack.Session.Stats()))
	return err
}
