package coordinator

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// StaleLockWatcher supplements acquire's own on-demand reclaim check: it
// watches lockDir and sweeps for stale lock-files whenever the directory
// changes, so a crashed worker's abandoned lock is cleaned up even if no
// other worker happens to contend for that exact path soon after: a single
// fsnotify.Watcher scoped to one directory, debounced, run in its own
// goroutine.
type StaleLockWatcher struct {
	watcher   *fsnotify.Watcher
	dir       string
	threshold time.Duration
	debounce  time.Duration
	lastSweep time.Time
	done      chan struct{}
}

// NewStaleLockWatcher watches lockDir (created if absent) for changes that
// might leave a lock-file stale.
func NewStaleLockWatcher(lockDir string, staleThreshold time.Duration) (*StaleLockWatcher, error) {
	if err := os.MkdirAll(lockDir, 0o755); err != nil {
		return nil, err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(lockDir); err != nil {
		w.Close()
		return nil, err
	}
	return &StaleLockWatcher{
		watcher:   w,
		dir:       lockDir,
		threshold: staleThreshold,
		debounce:  time.Second,
		done:      make(chan struct{}),
	}, nil
}

// Run pumps fsnotify events, sweeping the lock directory for stale files
// after each debounced burst. Meant to run in its own goroutine.
func (w *StaleLockWatcher) Run() {
	for {
		select {
		case _, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			now := time.Now()
			if now.Sub(w.lastSweep) < w.debounce {
				continue
			}
			w.lastSweep = now
			w.sweep()
		case <-w.watcher.Errors:
		case <-w.done:
			return
		}
	}
}

func (w *StaleLockWatcher) sweep() {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".lock") {
			continue
		}
		_, _ = reclaimIfStale(filepath.Join(w.dir, e.Name()), w.threshold)
	}
}

// Close stops Run and releases the fsnotify watcher.
func (w *StaleLockWatcher) Close() error {
	close(w.done)
	return w.watcher.Close()
}
