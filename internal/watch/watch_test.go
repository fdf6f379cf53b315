package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startWatcher(t *testing.T, dir string, runs *atomic.Int32) (context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	w := New(dir, func(context.Context) error {
		runs.Add(1)
		return nil
	}, WithDebounce(20*time.Millisecond))

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	// give the watcher time to register directories
	time.Sleep(100 * time.Millisecond)
	return cancel, done
}

func TestWatcherRunsAfterChange(t *testing.T) {
	dir := t.TempDir()
	var runs atomic.Int32
	cancel, done := startWatcher(t, dir, &runs)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.markdown"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.markdown"), []byte("y"), 0o644))

	assert.Eventually(t, func() bool { return runs.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestWatcherFollowsNewDirectories(t *testing.T) {
	dir := t.TempDir()
	var runs atomic.Int32
	cancel, _ := startWatcher(t, dir, &runs)
	defer cancel()

	sub := filepath.Join(dir, "2021-05-01-hello")
	require.NoError(t, os.Mkdir(sub, 0o755))
	assert.Eventually(t, func() bool { return runs.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)

	before := runs.Load()
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(sub, "hello.markdown"), []byte("# Hello"), 0o644))
	assert.Eventually(t, func() bool { return runs.Load() > before }, 2*time.Second, 10*time.Millisecond)
}

func TestWatcherMissingDir(t *testing.T) {
	w := New(filepath.Join(t.TempDir(), "missing"), func(context.Context) error { return nil })
	assert.Error(t, w.Run(context.Background()))
}
