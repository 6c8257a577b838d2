// Package watcher turns raw filesystem notifications into debounced
// batches of workspace-relative change events.
package watcher

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dshills/semindex-mcp/internal/workspace"
)

// DefaultDebounce is how long the watcher waits after the last event
// before flushing a batch. Editors and build tools fire bursts of
// writes; one flush per burst keeps reindexing cheap.
const DefaultDebounce = 500 * time.Millisecond

// Event describes a single file change after debouncing
type Event struct {
	Path    string // workspace-relative
	Removed bool
}

// Watcher observes a workspace tree recursively and delivers debounced
// batches of changes to a single callback.
type Watcher struct {
	scanner  *workspace.Scanner
	fw       *fsnotify.Watcher
	debounce time.Duration
	onBatch  func([]Event)

	mu      sync.Mutex
	pending map[string]Event
	timer   *time.Timer

	done     chan struct{}
	stopOnce sync.Once
}

// New creates a watcher for the scanner's workspace. Changes are
// reported to onBatch after debounce of quiet time. A zero debounce
// uses DefaultDebounce.
func New(scanner *workspace.Scanner, debounce time.Duration, onBatch func([]Event)) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	return &Watcher{
		scanner:  scanner,
		fw:       fw,
		debounce: debounce,
		onBatch:  onBatch,
		pending:  make(map[string]Event),
		done:     make(chan struct{}),
	}, nil
}

// Start registers all workspace directories and begins dispatching
// events. It returns once the watch set is established.
func (w *Watcher) Start() error {
	if err := w.addTree(w.scanner.Root()); err != nil {
		return err
	}
	go w.loop()
	return nil
}

// Stop tears down the watcher. Pending events that have not flushed
// are discarded. Stop is safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		_ = w.fw.Close()
		w.mu.Lock()
		if w.timer != nil {
			w.timer.Stop()
		}
		w.mu.Unlock()
	})
}

// addTree registers root and every non-ignored subdirectory
func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable entries are skipped
		}
		if !d.IsDir() {
			return nil
		}
		name := d.Name()
		if path != root && (w.scanner.IgnoredDir(name) || strings.HasPrefix(name, ".")) {
			return filepath.SkipDir
		}
		if err := w.fw.Add(path); err != nil {
			log.Printf("watcher: cannot watch %s: %v", path, err)
		}
		return nil
	})
}

func (w *Watcher) loop() {
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			log.Printf("watcher: %v", err)
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	// New directories need watching before their contents change
	if ev.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if !w.scanner.IgnoredDir(filepath.Base(ev.Name)) && !strings.HasPrefix(filepath.Base(ev.Name), ".") {
				_ = w.addTree(ev.Name)
			}
			return
		}
	}

	if !w.scanner.Indexable(ev.Name) {
		return
	}

	removed := ev.Op.Has(fsnotify.Remove) || ev.Op.Has(fsnotify.Rename)
	rel := w.scanner.Rel(ev.Name)

	w.mu.Lock()
	defer w.mu.Unlock()

	// Delete beats a stale change for the same path; a later change
	// beats an earlier delete (recreate case).
	w.pending[rel] = Event{Path: rel, Removed: removed}

	if w.timer == nil {
		w.timer = time.AfterFunc(w.debounce, w.flush)
	} else {
		w.timer.Reset(w.debounce)
	}
}

// flush hands the accumulated batch to the callback. Runs on the timer
// goroutine after a quiet period.
func (w *Watcher) flush() {
	w.mu.Lock()
	if len(w.pending) == 0 {
		w.mu.Unlock()
		return
	}
	batch := make([]Event, 0, len(w.pending))
	for _, ev := range w.pending {
		batch = append(batch, ev)
	}
	w.pending = make(map[string]Event)
	w.timer = nil
	w.mu.Unlock()

	select {
	case <-w.done:
		return
	default:
	}
	w.onBatch(batch)
}
