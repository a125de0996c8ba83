package fileio

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce coalesces editor write bursts into one reload.
const DefaultDebounce = 1500 * time.Millisecond

// Watcher re-applies the output document when something edits the file on
// disk. The parent directory is watched rather than the file itself, so
// editors that replace the file (and a document that does not exist yet at
// startup) are handled. Writes made through the Store are recognized and
// skipped, keeping a deferred save from bouncing back into the orchestrator.
type Watcher struct {
	store    *Store
	debounce time.Duration
	onChange func(data []byte)
	watcher  *fsnotify.Watcher
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewWatcher creates a watcher for the store's document. A zero debounce
// uses DefaultDebounce. onChange receives the fresh file content.
func NewWatcher(store *Store, debounce time.Duration, onChange func(data []byte)) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Watcher{
		store:    store,
		debounce: debounce,
		onChange: onChange,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start begins watching for changes.
func (w *Watcher) Start() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	w.watcher = watcher

	dir := filepath.Dir(w.store.Path())
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	log.Printf("👀 Watching %s for edits", w.store.Path())
	go w.watch()
	return nil
}

// Stop stops watching and releases the notifier.
func (w *Watcher) Stop() error {
	w.cancel()
	if w.watcher != nil {
		return w.watcher.Close()
	}
	return nil
}

func (w *Watcher) watch() {
	var timer *time.Timer
	var timerC <-chan time.Time
	target := filepath.Clean(w.store.Path())

	for {
		select {
		case <-w.ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			// Write for in-place edits, Create for editors that replace
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(w.debounce)
			timerC = timer.C

		case <-timerC:
			timerC = nil
			w.reload()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("⚠️ Output config watcher error: %v", err)
		}
	}
}

func (w *Watcher) reload() {
	data, err := os.ReadFile(w.store.Path())
	if err != nil {
		log.Printf("⚠️ Failed to re-read output config: %v", err)
		return
	}
	if w.store.WroteLast(data) {
		// Our own deferred save landing on disk
		return
	}
	log.Printf("🔄 Output config edited on disk, re-applying")
	w.onChange(data)
}
