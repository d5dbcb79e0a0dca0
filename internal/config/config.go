package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Config holds all runtime configuration.
type Config struct {
	Capture CaptureConfig `yaml:"capture"`
	Display DisplayConfig `yaml:"display"`
	Stream  StreamConfig  `yaml:"stream"`
	Logging LoggingConfig `yaml:"logging"`
}

// CaptureConfig configures device polling and switching.
type CaptureConfig struct {
	Source      string `yaml:"source"` // v4l2, pattern
	DeviceDir   string `yaml:"device_dir"`
	DeviceIndex int    `yaml:"device_index"`
	MinIndex    int    `yaml:"min_index"`
	MaxIndex    int    `yaml:"max_index"`
	// Wrap cycles past the ends of [MinIndex, MaxIndex]; otherwise moves clamp.
	Wrap bool `yaml:"wrap"`
	// SkipMissing cycles only over device nodes that currently exist.
	SkipMissing   bool          `yaml:"skip_missing"`
	PollInterval  time.Duration `yaml:"poll_interval"`
	RetryInterval time.Duration `yaml:"retry_interval"`
	ReadTimeout   time.Duration `yaml:"read_timeout"`
	Width         int           `yaml:"width"`
	Height        int           `yaml:"height"`
	PixelFormat   string        `yaml:"pixel_format"` // auto, yuyv, mjpeg, rgb24, bgr24
	Buffers       int           `yaml:"buffers"`
}

// DisplayConfig configures the viewer window.
type DisplayConfig struct {
	Title      string `yaml:"title"`
	Width      int    `yaml:"width"`
	Height     int    `yaml:"height"`
	Fullscreen bool   `yaml:"fullscreen"`
	KeepAspect bool   `yaml:"keep_aspect"`
	ShowStatus bool   `yaml:"show_status"`
}

// StreamConfig configures remote viewing.
type StreamConfig struct {
	SignalingURL string   `yaml:"signaling_url"`
	ListenAddr   string   `yaml:"listen_addr"`
	HostID       string   `yaml:"host_id"`
	ControllerID string   `yaml:"controller_id"`
	TargetHost   string   `yaml:"target_host"`
	Quality      int      `yaml:"quality"`
	MaxWidth     int      `yaml:"max_width"`
	ICEServers   []string `yaml:"ice_servers"`
}

// LoggingConfig configures zap.
type LoggingConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Default returns the configuration used when no file or flag overrides it.
func Default() *Config {
	return &Config{
		Capture: CaptureConfig{
			Source:        "v4l2",
			DeviceDir:     "/dev",
			DeviceIndex:   0,
			MinIndex:      0,
			MaxIndex:      9,
			Wrap:          true,
			PollInterval:  30 * time.Millisecond,
			RetryInterval: time.Second,
			ReadTimeout:   2 * time.Second,
			Width:         1280,
			Height:        720,
			PixelFormat:   "auto",
			Buffers:       4,
		},
		Display: DisplayConfig{
			Title:      "HDMI IN",
			Width:      1280,
			Height:     720,
			KeepAspect: true,
		},
		Stream: StreamConfig{
			SignalingURL: "ws://localhost:8080/ws",
			ListenAddr:   ":8080",
			Quality:      70,
			MaxWidth:     1280,
			ICEServers:   []string{"stun:stun.l.google.com:19302", "stun:stun1.l.google.com:19302"},
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads a YAML file on top of Default. An empty path yields the
// defaults; a named file that cannot be read is an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Validate checks ranges and fills generated IDs.
func (c *Config) Validate() error {
	cc := &c.Capture
	switch cc.Source {
	case "v4l2", "pattern":
	default:
		return fmt.Errorf("capture source must be v4l2 or pattern, got %q", cc.Source)
	}
	if cc.MinIndex < 0 || cc.MaxIndex < cc.MinIndex {
		return fmt.Errorf("device index range [%d, %d] is invalid", cc.MinIndex, cc.MaxIndex)
	}
	if cc.DeviceIndex < cc.MinIndex || cc.DeviceIndex > cc.MaxIndex {
		return fmt.Errorf("device index %d outside [%d, %d]", cc.DeviceIndex, cc.MinIndex, cc.MaxIndex)
	}
	if cc.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %s", cc.PollInterval)
	}
	if cc.RetryInterval <= 0 {
		cc.RetryInterval = time.Second
	}
	if cc.ReadTimeout < time.Second {
		cc.ReadTimeout = time.Second
	}
	if cc.Width <= 0 || cc.Height <= 0 {
		return fmt.Errorf("capture size must be positive, got %dx%d", cc.Width, cc.Height)
	}
	if cc.Buffers <= 0 {
		cc.Buffers = 1
	}
	cc.PixelFormat = strings.ToLower(cc.PixelFormat)

	if c.Display.Width <= 0 || c.Display.Height <= 0 {
		return fmt.Errorf("window size must be positive, got %dx%d", c.Display.Width, c.Display.Height)
	}

	if c.Stream.Quality < 1 || c.Stream.Quality > 100 {
		return fmt.Errorf("quality must be 1-100, got %d", c.Stream.Quality)
	}
	if c.Stream.HostID == "" {
		c.Stream.HostID = "host-" + shortID()
	}
	if c.Stream.ControllerID == "" {
		c.Stream.ControllerID = "controller-" + shortID()
	}
	return nil
}

func shortID() string {
	return strings.SplitN(uuid.NewString(), "-", 2)[0]
}
