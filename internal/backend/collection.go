package backend

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/erazemk/shramba/internal/model"
	"github.com/erazemk/shramba/internal/store"
)

// ErrNotFound is returned when a document or blob does not exist.
var ErrNotFound = errors.New("not found")

// Collection is a group-partitioned item collection with live snapshots.
type Collection struct {
	db     *sql.DB
	logger *slog.Logger
	now    func() time.Time

	clockMu sync.Mutex
	last    time.Time

	mu     sync.Mutex
	topics map[string]*topic
}

// topic holds the watchers of one group. publish serializes snapshot
// reloads so watchers see snapshots in commit order; rev counts them.
type topic struct {
	publish  sync.Mutex
	rev      uint64
	watchers map[*Watcher]struct{}
}

// Option configures a Collection.
type Option func(*Collection)

// WithLogger sets the logger used for feed diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(c *Collection) { c.logger = l }
}

// WithClock replaces the server clock used for created_at.
func WithClock(now func() time.Time) Option {
	return func(c *Collection) { c.now = now }
}

// NewCollection returns a collection backed by db.
func NewCollection(db *sql.DB, opts ...Option) *Collection {
	c := &Collection{
		db:     db,
		logger: slog.Default(),
		now:    time.Now,
		topics: make(map[string]*topic),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ServerTime returns the next server timestamp. Timestamps handed out by one
// collection are strictly increasing.
func (c *Collection) ServerTime() time.Time {
	c.clockMu.Lock()
	defer c.clockMu.Unlock()

	t := c.now().UTC()
	if !t.After(c.last) {
		t = c.last.Add(time.Nanosecond)
	}
	c.last = t
	return t
}

// Create adds a document with a generated ID and server-assigned
// created_at. It returns the ID and the revision of the first snapshot that
// contains the document.
func (c *Collection) Create(ctx context.Context, groupID string, fields model.ItemFields) (string, uint64, error) {
	id := uuid.NewString()
	if err := store.CreateItem(ctx, c.db, groupID, id, fields, c.ServerTime()); err != nil {
		return "", 0, err
	}
	return id, c.publish(groupID), nil
}

// Update applies a partial update to a document and returns the revision
// of the first snapshot that reflects it.
func (c *Collection) Update(ctx context.Context, groupID, id string, patch model.ItemPatch) (uint64, error) {
	found, err := store.UpdateItem(ctx, c.db, groupID, id, patch, c.ServerTime())
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, fmt.Errorf("updating item %s: %w", id, ErrNotFound)
	}
	return c.publish(groupID), nil
}

// Delete removes a document and returns the revision of the first snapshot
// without it. Deleting a missing document succeeds.
func (c *Collection) Delete(ctx context.Context, groupID, id string) (uint64, error) {
	if err := store.DeleteItem(ctx, c.db, groupID, id); err != nil {
		return 0, err
	}
	return c.publish(groupID), nil
}

// Watch opens a live feed of a group's items ordered by created_at
// descending. The current snapshot is queued before Watch returns. The feed
// ends when ctx is cancelled, Close is called, or a snapshot cannot be loaded.
func (c *Collection) Watch(ctx context.Context, groupID string) (*Watcher, error) {
	t := c.topic(groupID)

	t.publish.Lock()
	defer t.publish.Unlock()

	items, err := store.ListItems(ctx, c.db, groupID)
	if err != nil {
		return nil, fmt.Errorf("loading initial snapshot: %w", err)
	}

	w := &Watcher{
		c:       c,
		groupID: groupID,
		ch:      make(chan model.Snapshot, 1),
		done:    make(chan struct{}),
	}
	w.ch <- model.Snapshot{Revision: t.rev, Items: items}

	c.mu.Lock()
	t.watchers[w] = struct{}{}
	c.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			w.Close()
		case <-w.done:
		}
	}()

	return w, nil
}

// Watchers returns the number of open feeds for a group.
func (c *Collection) Watchers(groupID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.topics[groupID]; ok {
		return len(t.watchers)
	}
	return 0
}

func (c *Collection) topic(groupID string) *topic {
	c.mu.Lock()
	defer c.mu.Unlock()

	t, ok := c.topics[groupID]
	if !ok {
		t = &topic{watchers: make(map[*Watcher]struct{})}
		c.topics[groupID] = t
	}
	return t
}

func (c *Collection) remove(w *Watcher) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.topics[w.groupID]; ok {
		delete(t.watchers, w)
	}
}

// publish reloads a group's snapshot, delivers it to every watcher and
// returns its revision. The reload happens after the caller's commit, so the
// snapshot includes it.
func (c *Collection) publish(groupID string) uint64 {
	t := c.topic(groupID)

	t.publish.Lock()
	defer t.publish.Unlock()

	t.rev++
	rev := t.rev

	c.mu.Lock()
	watchers := make([]*Watcher, 0, len(t.watchers))
	for w := range t.watchers {
		watchers = append(watchers, w)
	}
	c.mu.Unlock()

	if len(watchers) == 0 {
		return rev
	}

	items, err := store.ListItems(context.Background(), c.db, groupID)
	if err != nil {
		c.logger.Error("failed to load snapshot, closing feeds", "group", groupID, "watchers", len(watchers), "error", err)
		for _, w := range watchers {
			w.fail(fmt.Errorf("loading snapshot: %w", err))
		}
		return rev
	}

	snap := model.Snapshot{Revision: rev, Items: items}
	for _, w := range watchers {
		w.deliver(snap)
	}
	return rev
}
