package filewatch

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/khoahotran/profile-portal/pkg/logger"
)

const DefaultDebounce = 500 * time.Millisecond

// SnapshotWatcher fires its subscribers when the snapshot file is written,
// created, or replaced. The parent directory is watched so atomic renames
// are seen too.
type SnapshotWatcher struct {
	path     string
	debounce time.Duration
	watcher  *fsnotify.Watcher
	logger   logger.Logger

	mu     sync.Mutex
	subs   map[int]func()
	nextID int
}

func NewSnapshotWatcher(path string, debounce time.Duration, log logger.Logger) (*SnapshotWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve snapshot path: %w", err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &SnapshotWatcher{
		path:     abs,
		debounce: debounce,
		watcher:  watcher,
		logger:   log.With(zap.String("snapshot", abs)),
		subs:     make(map[int]func()),
	}, nil
}

func (w *SnapshotWatcher) Subscribe(fn func()) (unsubscribe func()) {
	w.mu.Lock()
	id := w.nextID
	w.nextID++
	w.subs[id] = fn
	w.mu.Unlock()

	return func() {
		w.mu.Lock()
		delete(w.subs, id)
		w.mu.Unlock()
	}
}

// Run delivers debounced change notifications until ctx is done or the
// watcher is closed.
func (w *SnapshotWatcher) Run(ctx context.Context) {
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			w.logger.Debug("Snapshot change detected", zap.String("op", event.Op.String()))
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, w.fire)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("Snapshot watcher error", err)
		}
	}
}

func (w *SnapshotWatcher) Close() error {
	return w.watcher.Close()
}

func (w *SnapshotWatcher) fire() {
	w.mu.Lock()
	fns := make([]func(), 0, len(w.subs))
	for _, fn := range w.subs {
		fns = append(fns, fn)
	}
	w.mu.Unlock()

	w.logger.Info("Snapshot changed, notifying subscribers", zap.Int("subscribers", len(fns)))
	for _, fn := range fns {
		fn()
	}
}
