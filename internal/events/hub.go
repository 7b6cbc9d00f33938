package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/indexsync/internal/content"
)

// Handler reacts to one published event.
type Handler func(ctx context.Context, ev content.ChangeEvent) error

type subscription struct {
	id uint64
	fn Handler
}

// Hub routes content events to subscribers.
//
// Thread-safety: Publish and the subscription methods may be called
// concurrently. Publish delivers to the subscribers registered when it
// started; a subscriber added during a publish sees the next event.
type Hub struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[content.EventKind][]subscription
}

// NewHub returns a hub with no subscribers.
func NewHub() *Hub {
	return &Hub{subs: make(map[content.EventKind][]subscription)}
}

// Subscribe registers fn for one event kind and returns its unsubscribe
// function. Unsubscribing twice is a no-op.
func (h *Hub) Subscribe(kind content.EventKind, fn Handler) (unsubscribe func()) {
	h.mu.Lock()
	h.nextID++
	id := h.nextID
	h.subs[kind] = append(h.subs[kind], subscription{id: id, fn: fn})
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { h.remove(kind, id) })
	}
}

func (h *Hub) remove(kind content.EventKind, id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs := h.subs[kind]
	for i, s := range subs {
		if s.id == id {
			// Copy so snapshots held by in-flight publishes stay intact.
			next := make([]subscription, 0, len(subs)-1)
			next = append(next, subs[:i]...)
			next = append(next, subs[i+1:]...)
			h.subs[kind] = next
			return
		}
	}
}

// OnItemMoved subscribes to item:moved.
func (h *Hub) OnItemMoved(fn func(context.Context, content.ItemMoved) error) func() {
	return on(h, content.KindItemMoved, fn)
}

// OnItemCopied subscribes to item:copied.
func (h *Hub) OnItemCopied(fn func(context.Context, content.ItemCopied) error) func() {
	return on(h, content.KindItemCopied, fn)
}

// OnItemUpdated subscribes to item:updated.
func (h *Hub) OnItemUpdated(fn func(context.Context, content.ItemUpdated) error) func() {
	return on(h, content.KindItemUpdated, fn)
}

// OnItemVersionAdded subscribes to item:version-added.
func (h *Hub) OnItemVersionAdded(fn func(context.Context, content.ItemVersionAdded) error) func() {
	return on(h, content.KindItemVersionAdded, fn)
}

// OnItemVersionDeleted subscribes to item:version-deleted.
func (h *Hub) OnItemVersionDeleted(fn func(context.Context, content.ItemVersionDeleted) error) func() {
	return on(h, content.KindItemVersionDeleted, fn)
}

// OnItemDeleted subscribes to item:deleted.
func (h *Hub) OnItemDeleted(fn func(context.Context, content.ItemDeleted) error) func() {
	return on(h, content.KindItemDeleted, fn)
}

func on[E content.ChangeEvent](h *Hub, kind content.EventKind, fn func(context.Context, E) error) func() {
	return h.Subscribe(kind, func(ctx context.Context, ev content.ChangeEvent) error {
		typed, ok := ev.(E)
		if !ok {
			return fmt.Errorf("event %s: unexpected payload %T", kind, ev)
		}
		return fn(ctx, typed)
	})
}

// Publish delivers ev to every subscriber of its kind and returns their
// joined errors. A failing subscriber does not stop delivery to the rest.
func (h *Hub) Publish(ctx context.Context, ev content.ChangeEvent) error {
	if ev == nil {
		return errors.New("publish: nil event")
	}

	h.mu.RLock()
	subs := h.subs[ev.Kind()]
	h.mu.RUnlock()

	slog.Debug("publishing event",
		"kind", string(ev.Kind()),
		"database", ev.DatabaseName(),
		"subscribers", len(subs),
	)

	var errs []error
	for _, s := range subs {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := s.fn(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Subscribers returns the number of subscribers for kind.
func (h *Hub) Subscribers(kind content.EventKind) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[kind])
}
