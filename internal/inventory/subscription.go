package inventory

import (
	"context"
	"errors"
	"sync"

	"github.com/erazemk/shramba/internal/model"
)

// Subscription is the engine's live link to the group collection. Every
// snapshot replaces the engine's local list and is then offered on Updates.
type Subscription struct {
	feed    Feed
	updates chan []model.Item
	done    chan struct{}

	closeOnce sync.Once

	mu  sync.Mutex
	err error
}

// Updates delivers the local list after each snapshot. Only the latest
// undelivered list is kept. The channel is closed when the subscription ends.
func (s *Subscription) Updates() <-chan []model.Item {
	return s.updates
}

// Done is closed once the subscription has ended.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Err returns a *SubscriptionError if the feed failed, or nil.
func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close ends the subscription and waits for it to stop.
func (s *Subscription) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.feed.Close()
	})
	<-s.done
	return err
}

func (s *Subscription) offer(items []model.Item) {
	select {
	case <-s.updates:
	default:
	}
	s.updates <- items
}

// Subscribe opens the live subscription to the session's group, replacing
// any previous one. It returns after the initial snapshot is applied. The
// subscription ends when ctx is cancelled, Close is called, or the feed fails.
func (e *Engine) Subscribe(ctx context.Context) (*Subscription, error) {
	if err := e.Close(); err != nil {
		e.logger.Warn("closing previous subscription", "error", err)
	}

	feed, err := e.docs.Watch(ctx, e.session.GroupID)
	if err != nil {
		return nil, &SubscriptionError{Err: err}
	}

	var initial model.Snapshot
	select {
	case snap, ok := <-feed.Snapshots():
		if !ok {
			err := feed.Err()
			if err == nil {
				err = errors.New("feed closed before the first snapshot")
			}
			return nil, &SubscriptionError{Err: err}
		}
		initial = snap
	case <-ctx.Done():
		feed.Close()
		return nil, ctx.Err()
	}

	sub := &Subscription{
		feed:    feed,
		updates: make(chan []model.Item, 1),
		done:    make(chan struct{}),
	}

	e.mu.Lock()
	prev := e.sub
	e.sub = sub
	e.replaceLocked(initial)
	e.mu.Unlock()

	if prev != nil {
		prev.Close()
	}

	sub.offer(cloneItems(initial.Items))
	go e.run(sub)

	e.logger.Debug("subscribed", "items", len(initial.Items), "revision", initial.Revision)
	return sub, nil
}

// Subscribed reports whether a subscription is currently active.
func (e *Engine) Subscribed() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.sub != nil
}

func (e *Engine) run(sub *Subscription) {
	defer close(sub.done)
	defer close(sub.updates)

	for snap := range sub.feed.Snapshots() {
		if !e.apply(sub, snap) {
			continue
		}
		sub.offer(cloneItems(snap.Items))
	}

	if err := sub.feed.Err(); err != nil {
		sub.mu.Lock()
		sub.err = &SubscriptionError{Err: err}
		sub.mu.Unlock()
		e.logger.Error("inventory subscription failed", "error", err)
	}

	e.mu.Lock()
	if e.sub == sub {
		e.sub = nil
	}
	e.signalLocked()
	e.mu.Unlock()
}

// apply installs a snapshot unless sub has been superseded.
func (e *Engine) apply(sub *Subscription, snap model.Snapshot) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.sub != sub {
		return false
	}
	e.replaceLocked(snap)
	return true
}

func cloneItems(items []model.Item) []model.Item {
	out := make([]model.Item, len(items))
	copy(out, items)
	return out
}
