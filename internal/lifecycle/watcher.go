package lifecycle

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/dshills/overlay/internal/logging"
)

// DefaultDebounce is how long the watcher waits for writes to an archive to
// settle before reporting it.
const DefaultDebounce = 500 * time.Millisecond

// Watcher reports plugin archives that were created or rewritten in a
// directory. It never touches descriptors: paths are posted on Changes for
// the event loop to turn into Rescan steps.
type Watcher struct {
	dir      string
	ext      string
	debounce time.Duration
	log      *logging.Logger

	fsw     *fsnotify.Watcher
	changes chan string

	mu     sync.Mutex
	timers map[string]*time.Timer
	cancel context.CancelFunc
	done   chan struct{}
}

// NewWatcher creates a watcher for archives with extension ext in dir.
func NewWatcher(dir, ext string, log *logging.Logger) *Watcher {
	if log == nil {
		log = logging.NewNop()
	}
	return &Watcher{
		dir:      dir,
		ext:      strings.ToLower(ext),
		debounce: DefaultDebounce,
		log:      log.WithComponent("watcher"),
		changes:  make(chan string, 16),
		timers:   make(map[string]*time.Timer),
	}
}

// SetDebounce overrides the settle delay. Call before Start.
func (w *Watcher) SetDebounce(d time.Duration) {
	w.debounce = d
}

// Changes delivers archive paths that need rescanning.
func (w *Watcher) Changes() <-chan string {
	return w.changes
}

// Start begins watching. It returns once the directory is registered.
func (w *Watcher) Start(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := fsw.Add(w.dir); err != nil {
		fsw.Close()
		return fmt.Errorf("watch plugin dir: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)

	w.mu.Lock()
	w.fsw = fsw
	w.cancel = cancel
	w.done = make(chan struct{})
	w.mu.Unlock()

	w.log.Info("watching plugin directory", zap.String("dir", w.dir))
	go w.loop(ctx)
	return nil
}

// Stop ends watching and waits for the loop to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.cancel = nil
	for name, t := range w.timers {
		t.Stop()
		delete(w.timers, name)
	}
	w.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.done)
	defer w.fsw.Close()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(ctx, event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Error("watcher error", zap.Error(err))
		}
	}
}

// handle debounces create and write events for archive files.
func (w *Watcher) handle(ctx context.Context, event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}
	if strings.ToLower(filepath.Ext(event.Name)) != w.ext {
		return
	}

	path := event.Name

	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.timers[path]; ok {
		t.Stop()
	}
	w.timers[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()

		select {
		case w.changes <- path:
			w.log.Debug("archive changed", zap.String("path", path))
		case <-ctx.Done():
		}
	})
}
