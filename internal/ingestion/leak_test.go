package ingestion

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// TestWatcherStopLeavesNoGoroutines verifies Stop() tears down both the
// fsnotify reader goroutine and the debounce timer cleanly.
func TestWatcherStopLeavesNoGoroutines(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	root := t.TempDir()
	writeFile(t, root, "a.go", "package main\n\nfunc main() {}\n")

	c, _ := newTestCoordinator(t, root)
	ctx := context.Background()
	_, err := c.Ingest(ctx, false)
	require.NoError(t, err)

	watcher, err := NewWatcher(c, 10*time.Millisecond)
	require.NoError(t, err)
	require.NoError(t, watcher.Start())
	require.NoError(t, watcher.Stop())
}

// TestIngestWorkerPoolLeavesNoGoroutines verifies a full Ingest cycle's
// worker pool drains completely once Ingest returns.
func TestIngestWorkerPoolLeavesNoGoroutines(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	root := t.TempDir()
	for i := 0; i < 8; i++ {
		writeFile(t, root, "f.go", "package main\n\nfunc main() {}\n")
	}

	c, _ := newTestCoordinator(t, root)
	_, err := c.Ingest(context.Background(), false)
	require.NoError(t, err)
}
