package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/junsooki/HDMIView/internal/config"
	"github.com/junsooki/HDMIView/internal/logging"
)

var (
	// Global flags
	configPath string
	verbose    bool

	// flagCfg receives flag values; only flags the user set are copied onto
	// the loaded configuration.
	flagCfg = config.Default()

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "hdmiview",
	Short: "Show a USB/HDMI capture device in a window",
	Long: `hdmiview polls a video capture device, converts each frame to RGBA and
paints it into a window. Left/Right switch to the previous/next device index.

Run without a subcommand to open the local viewer. "host" streams a capture
device to remote controllers over WebRTC, "controller" views a remote host,
"signal" runs the signaling relay both of them connect to.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		applyFlagOverrides(cmd, cfg)
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}

		logger, err = logging.New(logging.Options{
			Level:       cfg.Logging.Level,
			Development: cfg.Logging.Development,
			Verbose:     verbose,
		})
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runView,
}

type override struct {
	flag  string
	apply func(dst, src *config.Config)
}

var overrides = []override{
	{"source", func(d, s *config.Config) { d.Capture.Source = s.Capture.Source }},
	{"device", func(d, s *config.Config) { d.Capture.DeviceIndex = s.Capture.DeviceIndex }},
	{"device-dir", func(d, s *config.Config) { d.Capture.DeviceDir = s.Capture.DeviceDir }},
	{"min-device", func(d, s *config.Config) { d.Capture.MinIndex = s.Capture.MinIndex }},
	{"max-device", func(d, s *config.Config) { d.Capture.MaxIndex = s.Capture.MaxIndex }},
	{"wrap", func(d, s *config.Config) { d.Capture.Wrap = s.Capture.Wrap }},
	{"skip-missing", func(d, s *config.Config) { d.Capture.SkipMissing = s.Capture.SkipMissing }},
	{"interval", func(d, s *config.Config) { d.Capture.PollInterval = s.Capture.PollInterval }},
	{"width", func(d, s *config.Config) { d.Capture.Width = s.Capture.Width }},
	{"height", func(d, s *config.Config) { d.Capture.Height = s.Capture.Height }},
	{"format", func(d, s *config.Config) { d.Capture.PixelFormat = s.Capture.PixelFormat }},
	{"title", func(d, s *config.Config) { d.Display.Title = s.Display.Title }},
	{"fullscreen", func(d, s *config.Config) { d.Display.Fullscreen = s.Display.Fullscreen }},
	{"stretch", func(d, s *config.Config) { d.Display.KeepAspect = !stretch }},
	{"status", func(d, s *config.Config) { d.Display.ShowStatus = s.Display.ShowStatus }},
	{"signaling", func(d, s *config.Config) { d.Stream.SignalingURL = s.Stream.SignalingURL }},
	{"listen", func(d, s *config.Config) { d.Stream.ListenAddr = s.Stream.ListenAddr }},
	{"quality", func(d, s *config.Config) { d.Stream.Quality = s.Stream.Quality }},
	{"max-width", func(d, s *config.Config) { d.Stream.MaxWidth = s.Stream.MaxWidth }},
	{"host-id", func(d, s *config.Config) { d.Stream.HostID = s.Stream.HostID }},
	{"controller-id", func(d, s *config.Config) { d.Stream.ControllerID = s.Stream.ControllerID }},
	{"host", func(d, s *config.Config) { d.Stream.TargetHost = s.Stream.TargetHost }},
	{"log-level", func(d, s *config.Config) { d.Logging.Level = s.Logging.Level }},
}

var stretch bool

func applyFlagOverrides(cmd *cobra.Command, dst *config.Config) {
	flags := cmd.Flags()
	for _, o := range overrides {
		if f := flags.Lookup(o.flag); f != nil && f.Changed {
			o.apply(dst, flagCfg)
		}
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configPath, "config", "c", "", "YAML configuration file")
	pf.BoolVarP(&verbose, "verbose", "v", false, "Debug logging")
	pf.StringVar(&flagCfg.Logging.Level, "log-level", flagCfg.Logging.Level, "Log level (debug, info, warn, error)")

	pf.StringVar(&flagCfg.Capture.Source, "source", flagCfg.Capture.Source, "Capture source: v4l2 or pattern")
	pf.IntVarP(&flagCfg.Capture.DeviceIndex, "device", "d", flagCfg.Capture.DeviceIndex, "Initial capture device index")
	pf.StringVar(&flagCfg.Capture.DeviceDir, "device-dir", flagCfg.Capture.DeviceDir, "Directory holding video<N> nodes")
	pf.IntVar(&flagCfg.Capture.MinIndex, "min-device", flagCfg.Capture.MinIndex, "Lowest device index to cycle to")
	pf.IntVar(&flagCfg.Capture.MaxIndex, "max-device", flagCfg.Capture.MaxIndex, "Highest device index to cycle to")
	pf.BoolVar(&flagCfg.Capture.Wrap, "wrap", flagCfg.Capture.Wrap, "Wrap around when cycling past either end")
	pf.BoolVar(&flagCfg.Capture.SkipMissing, "skip-missing", flagCfg.Capture.SkipMissing, "Cycle only over device nodes that exist")
	pf.DurationVar(&flagCfg.Capture.PollInterval, "interval", flagCfg.Capture.PollInterval, "Delay between frame reads (bounds CPU use)")
	pf.IntVar(&flagCfg.Capture.Width, "width", flagCfg.Capture.Width, "Requested capture width")
	pf.IntVar(&flagCfg.Capture.Height, "height", flagCfg.Capture.Height, "Requested capture height")
	pf.StringVar(&flagCfg.Capture.PixelFormat, "format", flagCfg.Capture.PixelFormat, "Pixel format: auto, yuyv, mjpeg, rgb24, bgr24")

	addViewFlags(rootCmd)
	rootCmd.AddCommand(viewCmd, hostCmd, controllerCmd, signalCmd, devicesCmd, configCmd)
}

func main() {
	start := time.Now()
	if err := rootCmd.Execute(); err != nil {
		if logger != nil {
			logger.Error("hdmiview failed", zap.Error(err), zap.Duration("uptime", time.Since(start)))
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
