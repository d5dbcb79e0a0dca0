package capture

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDeviceName(t *testing.T) {
	for name, want := range map[string]int{"video0": 0, "video12": 12} {
		n, ok := ParseDeviceName(name)
		assert.True(t, ok, name)
		assert.Equal(t, want, n)
	}
	for _, name := range []string{"video", "videoX", "video1a", "vbi0", "media0"} {
		_, ok := ParseDeviceName(name)
		assert.False(t, ok, name)
	}
}

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, nil, 0o600))
}

func TestDeviceCatalog_Scan(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "video2"))
	touch(t, filepath.Join(dir, "video0"))
	touch(t, filepath.Join(dir, "media0"))

	c, err := NewDeviceCatalog(dir, nil)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Scan())
	assert.Equal(t, []int{0, 2}, c.Available())
}

func TestDeviceCatalog_Watch(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "video0"))

	c, err := NewDeviceCatalog(dir, nil)
	require.NoError(t, err)
	var changes atomic.Int64
	c.OnChange(func([]int) { changes.Add(1) })

	require.NoError(t, c.Start(context.Background()))
	assert.Equal(t, []int{0}, c.Available())

	touch(t, filepath.Join(dir, "video3"))
	require.Eventually(t, func() bool {
		return assert.ObjectsAreEqual([]int{0, 3}, c.Available())
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, os.Remove(filepath.Join(dir, "video0")))
	require.Eventually(t, func() bool {
		return assert.ObjectsAreEqual([]int{3}, c.Available())
	}, 2*time.Second, 10*time.Millisecond)
	assert.GreaterOrEqual(t, changes.Load(), int64(2))

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
}

func TestDeviceCatalog_MissingDir(t *testing.T) {
	c, err := NewDeviceCatalog(filepath.Join(t.TempDir(), "nope"), nil)
	require.NoError(t, err)
	assert.Error(t, c.Start(context.Background()))
	require.NoError(t, c.Close())
}

func TestScanDevices(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "video10"))
	touch(t, filepath.Join(dir, "video1"))
	touch(t, filepath.Join(dir, "vbi0"))

	got, err := ScanDevices(dir)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 10}, got)

	_, err = ScanDevices(filepath.Join(dir, "nope"))
	assert.Error(t, err)
}

func TestDeviceCatalog_ConcurrentStart(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "video0"))
	c, err := NewDeviceCatalog(dir, nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, c.Start(context.Background()))
		}()
	}
	wg.Wait()
	assert.Equal(t, []int{0}, c.Available())

	// a second watch goroutine would close doneCh twice and panic here
	require.NoError(t, c.Close())
	assert.ErrorIs(t, c.Start(context.Background()), ErrClosed)
}
