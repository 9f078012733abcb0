package memory

import (
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// BriefingWatcher notifies a running session when briefing.json is written
// or created on disk: one fsnotify.Watcher scoped to a single directory,
// with writes debounced so a single save doesn't fan out into several
// signals. It does not tell the session's own Save calls apart from other
// writers (a second sunwell process, a human editing the file); both
// signal.
type BriefingWatcher struct {
	watcher  *fsnotify.Watcher
	path     string
	debounce time.Duration
	lastSeen time.Time
	changed  chan struct{}
	done     chan struct{}
}

// NewBriefingWatcher watches dir (the Memory Subsystem's root) for changes
// to briefing.json.
func NewBriefingWatcher(dir string) (*BriefingWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, err
	}
	return &BriefingWatcher{
		watcher:  w,
		path:     filepath.Join(dir, "briefing.json"),
		debounce: 250 * time.Millisecond,
		changed:  make(chan struct{}, 1),
		done:     make(chan struct{}),
	}, nil
}

// Changed returns a channel that receives one signal per debounced burst of
// writes to briefing.json. The channel is never closed by a write;
// call Close to release the underlying watcher.
func (w *BriefingWatcher) Changed() <-chan struct{} {
	return w.changed
}

// Run pumps fsnotify events into Changed until Close is called. It is meant
// to be run in its own goroutine by the caller.
func (w *BriefingWatcher) Run() {
	for {
		select {
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			now := time.Now()
			if now.Sub(w.lastSeen) < w.debounce {
				continue
			}
			w.lastSeen = now
			select {
			case w.changed <- struct{}{}:
			default:
			}
		case <-w.watcher.Errors:
			// best-effort: a watcher error never stops a session, since the
			// briefing is still correctly readable from disk on demand.
		case <-w.done:
			return
		}
	}
}

// Close stops Run and releases the fsnotify watcher.
func (w *BriefingWatcher) Close() error {
	close(w.done)
	return w.watcher.Close()
}
