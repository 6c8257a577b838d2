package watcher

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/semindex-mcp/internal/workspace"
)

// collector gathers batches delivered by the watcher
type collector struct {
	mu      sync.Mutex
	batches [][]Event
}

func (c *collector) add(batch []Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.batches = append(c.batches, batch)
}

func (c *collector) snapshot() [][]Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]Event, len(c.batches))
	copy(out, c.batches)
	return out
}

func (c *collector) waitForBatch(t *testing.T, timeout time.Duration) [][]Event {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if batches := c.snapshot(); len(batches) > 0 {
			return batches
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("no batch delivered before timeout")
	return nil
}

func startWatcher(t *testing.T, root string, debounce time.Duration) (*Watcher, *collector) {
	t.Helper()
	c := &collector{}
	w, err := New(workspace.NewScanner(root), debounce, c.add)
	require.NoError(t, err)
	require.NoError(t, w.Start())
	t.Cleanup(w.Stop)
	return w, c
}

func TestWatcher_CoalescesBurstIntoOneBatch(t *testing.T) {
	dir := t.TempDir()
	_, c := startWatcher(t, dir, 150*time.Millisecond)

	// A burst of writes well inside the debounce window
	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "main.go"), []byte("package main\n"), 0o644))
		time.Sleep(20 * time.Millisecond)
	}

	batches := c.waitForBatch(t, 3*time.Second)
	require.Len(t, batches, 1)
	require.Len(t, batches[0], 1)
	assert.Equal(t, "main.go", batches[0][0].Path)
	assert.False(t, batches[0][0].Removed)
}

func TestWatcher_ReportsRemoval(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gone.md")
	require.NoError(t, os.WriteFile(path, []byte("# gone\n"), 0o644))

	_, c := startWatcher(t, dir, 100*time.Millisecond)
	require.NoError(t, os.Remove(path))

	batches := c.waitForBatch(t, 3*time.Second)
	found := false
	for _, batch := range batches {
		for _, ev := range batch {
			if ev.Path == "gone.md" && ev.Removed {
				found = true
			}
		}
	}
	assert.True(t, found)
}

func TestWatcher_IgnoresNonIndexableFiles(t *testing.T) {
	dir := t.TempDir()
	_, c := startWatcher(t, dir, 100*time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "image.png"), []byte("png"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "kept.go"), []byte("package x\n"), 0o644))

	batches := c.waitForBatch(t, 3*time.Second)
	for _, batch := range batches {
		for _, ev := range batch {
			assert.NotEqual(t, "image.png", ev.Path)
		}
	}
}

func TestWatcher_WatchesNewDirectories(t *testing.T) {
	dir := t.TempDir()
	_, c := startWatcher(t, dir, 100*time.Millisecond)

	sub := filepath.Join(dir, "internal")
	require.NoError(t, os.Mkdir(sub, 0o755))
	// Give the watcher a moment to register the new directory
	time.Sleep(200 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(sub, "app.go"), []byte("package app\n"), 0o644))

	batches := c.waitForBatch(t, 3*time.Second)
	found := false
	for _, batch := range batches {
		for _, ev := range batch {
			if ev.Path == "internal/app.go" {
				found = true
			}
		}
	}
	assert.True(t, found)
}

func TestWatcher_StopIdempotent(t *testing.T) {
	dir := t.TempDir()
	w, _ := startWatcher(t, dir, 100*time.Millisecond)

	w.Stop()
	w.Stop()
}
