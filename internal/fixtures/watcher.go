package fixtures

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const reloadDebounce = 200 * time.Millisecond

// ReloadFunc is called with the freshly parsed seed after the seed file
// changes on disk.
type ReloadFunc func(seed *Seed)

// Watch watches the seed file and resyncs the store whenever it changes,
// until ctx is cancelled. The parent directory is watched rather than the
// file itself so editors that save by rename keep being tracked. Bursts of
// events are debounced. A seed that fails to parse is logged and ignored;
// the store keeps its previous contents.
func Watch(ctx context.Context, store *Store, seedPath string, logger *slog.Logger, onReload ReloadFunc, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	abs, err := filepath.Abs(seedPath)
	if err != nil {
		return err
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("seed", abs))

	var reloadTimer *time.Timer
	var reloadCh <-chan time.Time

	scheduleReload := func() {
		if reloadTimer == nil {
			reloadTimer = time.NewTimer(reloadDebounce)
			reloadCh = reloadTimer.C
		} else {
			reloadTimer.Reset(reloadDebounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reloadTimer != nil {
				reloadTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-reloadCh:
			seed, err := ReadSeed(abs)
			if err != nil {
				logger.Warn("watcher: seed rejected", slog.String("error", err.Error()))
				continue
			}
			if err := Sync(store, seed, logger, cb); err != nil {
				logger.Warn("watcher: sync failed", slog.String("error", err.Error()))
				continue
			}
			if onReload != nil {
				onReload(seed)
			}
			logger.Debug("watcher: reloaded", slog.Int("documents", len(seed.Documents)))

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
				scheduleReload()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
