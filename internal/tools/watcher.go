package tools

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Quick successive writes (editor save, git checkout) collapse into one reload.
const watchDebounce = 500 * time.Millisecond

// Watcher reloads the dynamic tool catalog when files in the tools directory
// change. Events are debounced so a burst of writes triggers a single reload.
type Watcher struct {
	loader *DynamicLoader
	fsw    *fsnotify.Watcher
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	timer   *time.Timer
	pending bool
}

func NewWatcher(loader *DynamicLoader) *Watcher {
	return &Watcher{loader: loader}
}

// Start begins watching the loader's directory. Returns without error when
// the directory does not exist; the watcher simply stays idle.
func (w *Watcher) Start(ctx context.Context) error {
	if _, err := os.Stat(w.loader.Dir()); os.IsNotExist(err) {
		slog.Debug("tools directory does not exist, hot reload disabled", "dir", w.loader.Dir())
		return nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fsw.Add(w.loader.Dir()); err != nil {
		fsw.Close()
		return err
	}
	w.fsw = fsw

	ctx, w.cancel = context.WithCancel(ctx)
	w.wg.Add(1)
	go w.loop(ctx)

	slog.Info("watching tools directory for changes", "dir", w.loader.Dir())
	return nil
}

// Stop shuts down the watcher and waits for the event loop to exit.
func (w *Watcher) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	if w.fsw != nil {
		w.fsw.Close()
	}
	w.wg.Wait()

	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
}

func (w *Watcher) loop(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			slog.Warn("tools watcher error", "error", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !strings.HasSuffix(event.Name, ".js") {
		return
	}
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}
	slog.Debug("tools directory changed", "file", event.Name, "op", event.Op.String())
	w.scheduleReload()
}

func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending = true
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(watchDebounce, w.flush)
}

func (w *Watcher) flush() {
	w.mu.Lock()
	if !w.pending {
		w.mu.Unlock()
		return
	}
	w.pending = false
	w.mu.Unlock()

	if err := w.loader.Reload(); err != nil {
		slog.Warn("dynamic tool reload failed", "error", err)
		return
	}
	slog.Info("reloaded dynamic tools", "count", len(w.loader.Loaded()))
}
