package history

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const watchDebounce = 150 * time.Millisecond

// Refresher is anything that can pick up external changes to the store.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Watch calls r.Refresh whenever the database at dbPath, or its write ahead
// log, is written by another process. Bursts of writes are coalesced. It
// blocks until ctx is done.
func Watch(ctx context.Context, dbPath string, r Refresher) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	dir := filepath.Dir(dbPath)
	base := filepath.Base(dbPath)
	if err := w.Add(dir); err != nil {
		return err
	}
	slog.Debug("Watching store", "path", dbPath)

	var (
		mu    sync.Mutex
		timer *time.Timer
	)
	refresh := func() {
		if err := r.Refresh(ctx); err != nil && ctx.Err() == nil {
			slog.Warn("Failed to refresh history", "error", err)
		}
	}
	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !strings.HasPrefix(filepath.Base(event.Name), base) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			mu.Lock()
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(watchDebounce, refresh)
			mu.Unlock()
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			slog.Error("Watcher error", "error", err)
		}
	}
}
