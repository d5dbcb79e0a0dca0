package capture

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DeviceCatalog tracks video<N> nodes in a device directory as they are
// plugged in and removed.
type DeviceCatalog struct {
	dir     string
	watcher *fsnotify.Watcher
	log     *zap.Logger

	mu       sync.RWMutex
	present  map[int]struct{}
	onChange func([]int)
	running  bool
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewDeviceCatalog creates a catalog over dir (usually /dev).
func NewDeviceCatalog(dir string, log *zap.Logger) (*DeviceCatalog, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create device watcher: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &DeviceCatalog{
		dir:     dir,
		watcher: watcher,
		log:     log,
		present: make(map[int]struct{}),
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}, nil
}

// ParseDeviceName returns N for a node named videoN.
func ParseDeviceName(name string) (int, bool) {
	rest, ok := strings.CutPrefix(name, "video")
	if !ok || rest == "" {
		return 0, false
	}
	for _, r := range rest {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(rest)
	if err != nil {
		return 0, false
	}
	return n, true
}

// OnChange registers a callback invoked with the new device list after each change.
func (c *DeviceCatalog) OnChange(fn func([]int)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onChange = fn
}

// ScanDevices lists the video<N> indices in dir in ascending order.
func ScanDevices(dir string) ([]int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}
	var out []int
	for _, e := range entries {
		if n, ok := ParseDeviceName(e.Name()); ok {
			out = append(out, n)
		}
	}
	sort.Ints(out)
	return out, nil
}

// Scan rebuilds the device list from the directory contents.
func (c *DeviceCatalog) Scan() error {
	found, err := ScanDevices(c.dir)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.present = toSet(found)
	c.mu.Unlock()
	return nil
}

func toSet(indices []int) map[int]struct{} {
	set := make(map[int]struct{}, len(indices))
	for _, n := range indices {
		set[n] = struct{}{}
	}
	return set
}

// Available returns the known device indices in ascending order.
func (c *DeviceCatalog) Available() []int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]int, 0, len(c.present))
	for n := range c.present {
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}

// Start scans the directory and begins watching it. Later calls are no-ops.
func (c *DeviceCatalog) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return nil
	}
	select {
	case <-c.stopCh:
		return ErrClosed
	default:
	}

	found, err := ScanDevices(c.dir)
	if err != nil {
		return err
	}
	if err := c.watcher.Add(c.dir); err != nil {
		return fmt.Errorf("watch %s: %w", c.dir, err)
	}
	c.present = toSet(found)
	c.running = true
	c.log.Debug("watching for capture devices", zap.String("dir", c.dir), zap.Ints("devices", found))
	go c.run(ctx)
	return nil
}

// Close stops watching and waits for the watch goroutine.
func (c *DeviceCatalog) Close() error {
	c.mu.Lock()
	running := c.running
	select {
	case <-c.stopCh:
		c.mu.Unlock()
		return nil
	default:
		close(c.stopCh)
	}
	c.mu.Unlock()

	err := c.watcher.Close()
	if running {
		<-c.doneCh
	}
	return err
}

func (c *DeviceCatalog) run(ctx context.Context) {
	defer close(c.doneCh)
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopCh:
			return
		case ev, ok := <-c.watcher.Events:
			if !ok {
				return
			}
			c.handle(ev)
		case err, ok := <-c.watcher.Errors:
			if !ok {
				return
			}
			c.log.Warn("device watcher error", zap.Error(err))
		}
	}
}

func (c *DeviceCatalog) handle(ev fsnotify.Event) {
	n, ok := ParseDeviceName(filepath.Base(ev.Name))
	if !ok {
		return
	}

	c.mu.Lock()
	_, had := c.present[n]
	switch {
	case ev.Has(fsnotify.Create):
		c.present[n] = struct{}{}
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		delete(c.present, n)
	}
	_, has := c.present[n]
	fn := c.onChange
	c.mu.Unlock()

	if had == has {
		return
	}
	if has {
		c.log.Info("capture device added", zap.Int("device", n))
	} else {
		c.log.Info("capture device removed", zap.Int("device", n))
	}
	if fn != nil {
		fn(c.Available())
	}
}
