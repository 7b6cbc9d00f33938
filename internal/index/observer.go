package index

import (
	"context"
	"log/slog"

	"github.com/roach88/indexsync/internal/content"
)

// NotificationKind names an observability notification.
type NotificationKind string

const (
	// NotifyExcluded: the reference was skipped by a crawler's exclusion policy.
	NotifyExcluded NotificationKind = "excluded"
	// NotifyUpdateDependents: dependents of an excluded reference are being updated.
	NotifyUpdateDependents NotificationKind = "update-dependents"
	// NotifyUnresolved: a reference could not be loaded from the content store.
	NotifyUnresolved NotificationKind = "unresolved"
)

// Notification is a fire-and-forget observability event.
type Notification struct {
	Kind  NotificationKind
	Index string
	Ref   content.IndexableRef
	Err   error
}

// Observer receives notifications. Implementations must not block and must be
// safe for concurrent use.
type Observer interface {
	Notify(ctx context.Context, n Notification)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, n Notification)

// Notify implements Observer.
func (f ObserverFunc) Notify(ctx context.Context, n Notification) { f(ctx, n) }

// MultiObserver fans a notification out to several observers in order.
type MultiObserver []Observer

// Notify implements Observer.
func (m MultiObserver) Notify(ctx context.Context, n Notification) {
	for _, o := range m {
		if o != nil {
			o.Notify(ctx, n)
		}
	}
}

// LogObserver writes notifications to the default slog logger.
type LogObserver struct{}

// Notify implements Observer.
func (LogObserver) Notify(ctx context.Context, n Notification) {
	switch n.Kind {
	case NotifyExcluded:
		slog.DebugContext(ctx, "excluded from index", "index", n.Index, "ref", n.Ref.String())
	case NotifyUpdateDependents:
		slog.DebugContext(ctx, "update dependents", "index", n.Index, "ref", n.Ref.String())
	case NotifyUnresolved:
		slog.WarnContext(ctx, "reference could not be resolved", "index", n.Index, "ref", n.Ref.String(), "error", n.Err)
	default:
		slog.DebugContext(ctx, "index notification", "kind", string(n.Kind), "index", n.Index, "ref", n.Ref.String())
	}
}
