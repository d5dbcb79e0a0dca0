package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/junsooki/HDMIView/internal/app"
	"github.com/junsooki/HDMIView/internal/signaling"
)

const shutdownTimeout = 5 * time.Second

var signalCmd = &cobra.Command{
	Use:   "signal",
	Short: "Run the signaling relay hosts and controllers register with",
	RunE:  runSignal,
}

func init() {
	signalCmd.Flags().StringVar(&flagCfg.Stream.ListenAddr, "listen", flagCfg.Stream.ListenAddr, "HTTP listen address")
}

func runSignal(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := signaling.NewServer(logger)
	httpSrv := &http.Server{
		Addr:              cfg.Stream.ListenAddr,
		Handler:           app.NewSignalMux(srv, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("signaling server listening", zap.String("addr", httpSrv.Addr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("signaling server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
