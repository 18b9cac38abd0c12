package loader

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
)

// eventChannelBuffer is the size of the watch event channel.
const eventChannelBuffer = 64

// WatchConfig configures change watching for a scanned directory tree.
type WatchConfig struct {
	// DebounceDelay is how long to wait for more changes before
	// emitting a batch. Default 500ms.
	DebounceDelay time.Duration

	// ExcludeDirs lists directory names to skip entirely.
	// Default .git, node_modules, vendor.
	ExcludeDirs []string
}

// DefaultWatchConfig returns default watch configuration.
func DefaultWatchConfig() WatchConfig {
	return WatchConfig{
		DebounceDelay: 500 * time.Millisecond,
		ExcludeDirs:   []string{".git", "node_modules", "vendor"},
	}
}

// Watcher emits debounced batches of changed paths under a scan root
// that match a file loader's glob pattern. Callers typically re-run the
// loader's Load on each batch.
type Watcher struct {
	config   WatchConfig
	root     string
	pattern  string
	watcher  *fsnotify.Watcher
	logger   *slog.Logger
	excludes map[string]bool

	pendingMu sync.Mutex
	pending   map[string]struct{}

	events chan []string
}

// NewWatcher creates a watcher over root for files matching pattern.
// The pattern uses the same glob syntax as FileConfig.Pattern.
func NewWatcher(root, pattern string, cfg WatchConfig, logger *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.DebounceDelay <= 0 {
		cfg.DebounceDelay = DefaultWatchConfig().DebounceDelay
	}

	excludes := make(map[string]bool)
	dirNames := cfg.ExcludeDirs
	if len(dirNames) == 0 {
		dirNames = DefaultWatchConfig().ExcludeDirs
	}
	for _, dir := range dirNames {
		excludes[dir] = true
	}

	return &Watcher{
		config:   cfg,
		root:     root,
		pattern:  pattern,
		watcher:  fsw,
		logger:   logger,
		excludes: excludes,
		pending:  make(map[string]struct{}),
		events:   make(chan []string, eventChannelBuffer),
	}, nil
}

// Events returns the channel of changed-path batches. Paths are
// relative to the root and sorted.
func (w *Watcher) Events() <-chan []string {
	return w.events
}

// Start begins watching. The events channel closes when ctx is
// canceled or the watcher is stopped.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.addWatchesRecursive(w.root); err != nil {
		return err
	}

	go w.processEvents(ctx)

	w.logger.Info("watching for changes",
		slog.String("root", w.root),
		slog.String("pattern", w.pattern),
		slog.Duration("debounce", w.config.DebounceDelay))
	return nil
}

// Stop stops the watcher. The events channel is closed by the event
// goroutine when it exits.
func (w *Watcher) Stop() error {
	return w.watcher.Close()
}

// addWatchesRecursive adds watches to all non-excluded directories.
func (w *Watcher) addWatchesRecursive(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}

		base := filepath.Base(path)
		if w.excludes[base] || (strings.HasPrefix(base, ".") && path != root) {
			return filepath.SkipDir
		}

		if err := w.watcher.Add(path); err != nil {
			w.logger.Warn("failed to watch directory",
				slog.String("path", path),
				slog.String("error", err.Error()))
		}
		return nil
	})
}

// processEvents handles fsnotify events with debouncing.
func (w *Watcher) processEvents(ctx context.Context) {
	defer close(w.events)
	ticker := time.NewTicker(w.config.DebounceDelay)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleFSEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("watcher error", slog.String("error", err.Error()))

		case <-ticker.C:
			w.flushPending()
		}
	}
}

// handleFSEvent queues a matching file change, and adds watches for
// newly created directories so they are covered going forward.
func (w *Watcher) handleFSEvent(event fsnotify.Event) {
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			w.watchNewDirectory(event.Name)
			return
		}
	}

	rel, err := filepath.Rel(w.root, event.Name)
	if err != nil {
		return
	}
	rel = filepath.ToSlash(rel)
	if !w.matchesPattern(rel) {
		return
	}

	w.pendingMu.Lock()
	w.pending[rel] = struct{}{}
	w.pendingMu.Unlock()
}

// matchesPattern reports whether a root-relative path matches the
// loader's glob, and is not inside an excluded directory.
func (w *Watcher) matchesPattern(rel string) bool {
	for _, part := range strings.Split(rel, "/") {
		if w.excludes[part] {
			return false
		}
	}
	ok, err := doublestar.Match(w.pattern, rel)
	return err == nil && ok
}

func (w *Watcher) watchNewDirectory(path string) {
	base := filepath.Base(path)
	if w.excludes[base] || strings.HasPrefix(base, ".") {
		return
	}
	if err := w.watcher.Add(path); err != nil {
		w.logger.Warn("failed to watch new directory",
			slog.String("path", path),
			slog.String("error", err.Error()))
	}
}

// flushPending emits the accumulated changes as one sorted batch.
func (w *Watcher) flushPending() {
	w.pendingMu.Lock()
	if len(w.pending) == 0 {
		w.pendingMu.Unlock()
		return
	}
	batch := make([]string, 0, len(w.pending))
	for rel := range w.pending {
		batch = append(batch, rel)
	}
	w.pending = make(map[string]struct{})
	w.pendingMu.Unlock()

	sort.Strings(batch)

	select {
	case w.events <- batch:
	default:
		w.logger.Warn("event channel full, dropping batch",
			slog.Int("changes", len(batch)))
	}
}
