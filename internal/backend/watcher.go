package backend

import (
	"slices"
	"sync"

	"github.com/erazemk/shramba/internal/model"
)

// Watcher is one open feed of a group's snapshots. Only the latest
// undelivered snapshot is kept, so a slow reader never blocks writers.
type Watcher struct {
	c       *Collection
	groupID string
	ch      chan model.Snapshot
	done    chan struct{}

	mu     sync.Mutex
	closed bool
	err    error
}

// Snapshots returns the snapshot channel. It is closed when the feed ends.
func (w *Watcher) Snapshots() <-chan model.Snapshot {
	return w.ch
}

// Err returns the error that ended the feed, or nil if it was closed.
func (w *Watcher) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

// Close ends the feed. It is safe to call more than once.
func (w *Watcher) Close() error {
	w.end(nil)
	return nil
}

func (w *Watcher) fail(err error) {
	w.end(err)
}

func (w *Watcher) end(err error) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	w.err = err
	close(w.ch)
	close(w.done)
	w.mu.Unlock()

	w.c.remove(w)
}

func (w *Watcher) deliver(snap model.Snapshot) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}

	// Replace any snapshot the reader has not picked up yet.
	select {
	case <-w.ch:
	default:
	}
	w.ch <- model.Snapshot{Revision: snap.Revision, Items: slices.Clone(snap.Items)}
}
