package inventory

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/erazemk/shramba/internal/model"
)

// Registry keeps one subscribed engine per signed-in session.
type Registry struct {
	docs   Documents
	blobs  Blobs
	logger *slog.Logger
	opts   []Option
	now    func() time.Time

	mu      sync.Mutex
	engines map[string]*entry
	closed  bool
}

type entry struct {
	mu       sync.Mutex // held while subscribing engine
	engine   *Engine
	lastUsed time.Time // guarded by Registry.mu
}

var errReleased = errors.New("session engine released")

// NewRegistry returns an empty registry. opts are applied to every engine.
func NewRegistry(docs Documents, blobs Blobs, logger *slog.Logger, opts ...Option) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		docs:    docs,
		blobs:   blobs,
		logger:  logger,
		opts:    append([]Option{WithLogger(logger)}, opts...),
		now:     time.Now,
		engines: make(map[string]*entry),
	}
}

// Engine returns the session's engine, subscribing it first if needed. An
// engine whose subscription failed is subscribed again. Only requests of the
// same session wait for each other.
func (r *Registry) Engine(ctx context.Context, session model.Session) (*Engine, error) {
	if session.ID == "" {
		return nil, errors.New("session id required")
	}

	ent, stale, err := r.entry(session)
	if stale != nil {
		stale.Close()
	}
	if err != nil {
		return nil, err
	}

	ent.mu.Lock()
	defer ent.mu.Unlock()

	e := ent.engine
	if e.Subscribed() {
		return e, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	// The subscription outlives the request that opened it.
	if _, err := e.Subscribe(context.Background()); err != nil {
		r.forget(session.ID, ent)
		return nil, err
	}

	// Release, Prune or Close may have dropped the entry meanwhile.
	if !r.holds(session.ID, ent) {
		e.Close()
		return nil, errReleased
	}
	r.logger.Info("session engine subscribed", "group", session.GroupID)
	return e, nil
}

// entry returns the session's entry, creating it if needed, and marks it
// used. An engine of another group is dropped and returned as stale.
func (r *Registry) entry(session model.Session) (*entry, *Engine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, nil, errors.New("registry closed")
	}

	var stale *Engine
	ent, ok := r.engines[session.ID]
	if ok && ent.engine.GroupID() != session.GroupID {
		stale = ent.engine
		delete(r.engines, session.ID)
		ok = false
	}
	if !ok {
		e, err := New(session, r.docs, r.blobs, r.opts...)
		if err != nil {
			return nil, stale, err
		}
		ent = &entry{engine: e}
		r.engines[session.ID] = ent
	}
	ent.lastUsed = r.now()
	return ent, stale, nil
}

func (r *Registry) holds(sessionID string, ent *entry) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.engines[sessionID] == ent
}

func (r *Registry) forget(sessionID string, ent *entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.engines[sessionID] == ent {
		delete(r.engines, sessionID)
	}
}

// Release closes and forgets a session's engine.
func (r *Registry) Release(sessionID string) {
	r.mu.Lock()
	ent, ok := r.engines[sessionID]
	delete(r.engines, sessionID)
	r.mu.Unlock()

	if ok {
		ent.engine.Close()
	}
}

// Prune closes the engines of sessions that have not been used for longer
// than idle and returns how many were closed. A pruned session gets a fresh
// engine on its next request.
func (r *Registry) Prune(idle time.Duration) int {
	cutoff := r.now().Add(-idle)

	r.mu.Lock()
	var stale []*Engine
	for id, ent := range r.engines {
		if ent.lastUsed.Before(cutoff) {
			stale = append(stale, ent.engine)
			delete(r.engines, id)
		}
	}
	r.mu.Unlock()

	for _, e := range stale {
		e.Close()
	}
	if len(stale) > 0 {
		r.logger.Info("pruned idle session engines", "count", len(stale))
	}
	return len(stale)
}

// Len returns the number of registered engines.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.engines)
}

// Close closes every engine. Later Engine calls fail.
func (r *Registry) Close() {
	r.mu.Lock()
	engines := r.engines
	r.engines = make(map[string]*entry)
	r.closed = true
	r.mu.Unlock()

	for _, ent := range engines {
		ent.engine.Close()
	}
}
