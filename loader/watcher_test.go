package loader

import (
	"path/filepath"
	"testing"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWatcher(t *testing.T, root string) *Watcher {
	t.Helper()
	w, err := NewWatcher(root, "**/*.md", WatchConfig{}, discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Stop() })
	return w
}

func TestWatcher_MatchesPattern(t *testing.T) {
	w := newTestWatcher(t, t.TempDir())

	assert.True(t, w.matchesPattern("notes.md"))
	assert.True(t, w.matchesPattern("a/b/notes.md"))
	assert.False(t, w.matchesPattern("notes.txt"))
	assert.False(t, w.matchesPattern("node_modules/pkg/readme.md"))
}

func TestWatcher_FlushBatchesMatchingChanges(t *testing.T) {
	root := t.TempDir()
	w := newTestWatcher(t, root)

	w.handleFSEvent(fsnotify.Event{Name: filepath.Join(root, "b.md"), Op: fsnotify.Write})
	w.handleFSEvent(fsnotify.Event{Name: filepath.Join(root, "a", "a.md"), Op: fsnotify.Write})
	w.handleFSEvent(fsnotify.Event{Name: filepath.Join(root, "skip.txt"), Op: fsnotify.Write})
	// Duplicate writes collapse into one pending entry.
	w.handleFSEvent(fsnotify.Event{Name: filepath.Join(root, "b.md"), Op: fsnotify.Write})

	w.flushPending()

	select {
	case batch := <-w.Events():
		assert.Equal(t, []string{"a/a.md", "b.md"}, batch)
	default:
		t.Fatal("expected a flushed batch")
	}

	// Nothing pending, nothing emitted.
	w.flushPending()
	select {
	case batch := <-w.Events():
		t.Fatalf("unexpected batch %v", batch)
	default:
	}
}
