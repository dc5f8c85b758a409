package inventory

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/erazemk/shramba/internal/backend"
	"github.com/erazemk/shramba/internal/model"
)

// Feed is a live sequence of full snapshots of a group's items.
type Feed interface {
	Snapshots() <-chan model.Snapshot
	Err() error
	Close() error
}

// Documents is the group-scoped item collection. Writes return the revision
// of the first snapshot that reflects them, or zero if unknown.
type Documents interface {
	Watch(ctx context.Context, groupID string) (Feed, error)
	Create(ctx context.Context, groupID string, fields model.ItemFields) (string, uint64, error)
	Update(ctx context.Context, groupID, id string, patch model.ItemPatch) (uint64, error)
	Delete(ctx context.Context, groupID, id string) (uint64, error)
}

// Blobs stores item images.
type Blobs interface {
	Upload(ctx context.Context, groupID, key string, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, ref string) error
}

// Collection adapts a backend collection to Documents.
func Collection(c *backend.Collection) Documents {
	return collectionDocuments{c}
}

type collectionDocuments struct {
	*backend.Collection
}

func (d collectionDocuments) Watch(ctx context.Context, groupID string) (Feed, error) {
	w, err := d.Collection.Watch(ctx, groupID)
	if err != nil {
		return nil, err
	}
	return w, nil
}

// Engine is one client's synchronized view of a group's inventory.
type Engine struct {
	session model.Session
	docs    Documents
	blobs   Blobs
	logger  *slog.Logger
	now     func() time.Time

	mu       sync.RWMutex
	items    []model.Item
	detail   *model.Item
	sub      *Subscription
	applied  uint64        // revision of the local list
	progress chan struct{} // closed and replaced whenever applied or sub changes
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithClock sets the clock used for image keys and the detail view patch.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New returns an engine for a signed-in session.
func New(session model.Session, docs Documents, blobs Blobs, opts ...Option) (*Engine, error) {
	if !session.SignedIn || session.GroupID == "" {
		return nil, ErrNotSignedIn
	}

	e := &Engine{
		session: session,
		docs:    docs,
		blobs:   blobs,
		logger:  slog.Default(),
		now:      time.Now,
		items:    []model.Item{},
		progress: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With("group", session.GroupID)
	return e, nil
}

// GroupID returns the group the engine reads and writes.
func (e *Engine) GroupID() string {
	return e.session.GroupID
}

// Session returns the session the engine was built from.
func (e *Engine) Session() model.Session {
	return e.session
}

// Items returns a copy of the local item list, newest first.
func (e *Engine) Items() []model.Item {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return slices.Clone(e.items)
}

// View returns the local items whose name starts with term.
func (e *Engine) View(term string) []model.Item {
	return Filter(e.Items(), term)
}

// Lookup returns a local item by ID.
func (e *Engine) Lookup(id string) (model.Item, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lookupLocked(id)
}

func (e *Engine) lookupLocked(id string) (model.Item, bool) {
	for _, item := range e.items {
		if item.ID == id {
			return item, true
		}
	}
	return model.Item{}, false
}

// collision returns true if a local item other than exceptID uses name.
func (e *Engine) collision(name, exceptID string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, item := range e.items {
		if item.Name == name && item.ID != exceptID {
			return true
		}
	}
	return false
}

// OpenDetail opens the detail view on a local item.
func (e *Engine) OpenDetail(id string) (model.Item, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	item, ok := e.lookupLocked(id)
	if !ok {
		return model.Item{}, ErrItemNotFound
	}
	e.detail = &item
	return item, nil
}

// Detail returns the item in the open detail view.
func (e *Engine) Detail() (model.Item, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.detail == nil {
		return model.Item{}, false
	}
	return *e.detail, true
}

// CloseDetail closes the detail view.
func (e *Engine) CloseDetail() {
	e.mu.Lock()
	e.detail = nil
	e.mu.Unlock()
}

func (e *Engine) patchDetail(id string, patch model.ItemPatch) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.detail != nil && e.detail.ID == id {
		patched := patch.Apply(*e.detail, e.now())
		e.detail = &patched
	}
}

func (e *Engine) closeDetailOn(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.detail != nil && e.detail.ID == id {
		e.detail = nil
	}
}

// replaceLocked swaps in a snapshot and refreshes the detail view from it.
func (e *Engine) replaceLocked(snap model.Snapshot) {
	e.items = snap.Items
	if snap.Revision > e.applied {
		e.applied = snap.Revision
	}
	e.signalLocked()
	if e.detail == nil {
		return
	}
	if item, ok := e.lookupLocked(e.detail.ID); ok {
		e.detail = &item
	} else {
		e.detail = nil
	}
}

func (e *Engine) signalLocked() {
	close(e.progress)
	e.progress = make(chan struct{})
}

// awaitRevision blocks until the local list reflects revision rev. It gives
// up when the subscription ends or ctx is done, and reports whether the
// revision was reached. A zero revision is never reached.
func (e *Engine) awaitRevision(ctx context.Context, rev uint64) bool {
	if rev == 0 {
		return false
	}
	for {
		e.mu.RLock()
		if e.applied >= rev {
			e.mu.RUnlock()
			return true
		}
		if e.sub == nil {
			e.mu.RUnlock()
			return false
		}
		progress := e.progress
		e.mu.RUnlock()

		select {
		case <-progress:
		case <-ctx.Done():
			e.logger.Warn("write not yet visible locally", "revision", rev, "error", ctx.Err())
			return false
		}
	}
}

// Close ends the active subscription, if any.
func (e *Engine) Close() error {
	e.mu.Lock()
	sub := e.sub
	e.sub = nil
	e.signalLocked()
	e.mu.Unlock()

	if sub != nil {
		return sub.Close()
	}
	return nil
}
