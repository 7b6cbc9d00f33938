package events

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/indexsync/internal/content"
)

var testRef = content.NewRef("item", "en", 1, "master")

func TestHub_DeliversInRegistrationOrder(t *testing.T) {
	h := NewHub()
	var got []string

	h.OnItemCopied(func(_ context.Context, ev content.ItemCopied) error {
		got = append(got, "first "+ev.Ref.String())
		return nil
	})
	h.OnItemCopied(func(_ context.Context, ev content.ItemCopied) error {
		got = append(got, "second "+ev.Ref.String())
		return nil
	})

	require.NoError(t, h.Publish(context.Background(), content.ItemCopied{Ref: testRef}))
	assert.Equal(t, []string{"first master:item/en/1", "second master:item/en/1"}, got)
}

func TestHub_RoutesByKind(t *testing.T) {
	h := NewHub()
	var kinds []content.EventKind
	record := func(ctx context.Context, ev content.ChangeEvent) error {
		kinds = append(kinds, ev.Kind())
		return nil
	}

	h.OnItemMoved(func(ctx context.Context, ev content.ItemMoved) error { return record(ctx, ev) })
	h.OnItemUpdated(func(ctx context.Context, ev content.ItemUpdated) error { return record(ctx, ev) })
	h.OnItemVersionAdded(func(ctx context.Context, ev content.ItemVersionAdded) error { return record(ctx, ev) })
	h.OnItemVersionDeleted(func(ctx context.Context, ev content.ItemVersionDeleted) error { return record(ctx, ev) })
	h.OnItemDeleted(func(ctx context.Context, ev content.ItemDeleted) error { return record(ctx, ev) })

	ctx := context.Background()
	require.NoError(t, h.Publish(ctx, content.ItemDeleted{ItemID: "item", Database: "master"}))
	require.NoError(t, h.Publish(ctx, content.ItemCopied{Ref: testRef}))
	require.NoError(t, h.Publish(ctx, content.ItemMoved{Ref: testRef}))

	assert.Equal(t, []content.EventKind{content.KindItemDeleted, content.KindItemMoved}, kinds)
}

func TestHub_JoinsErrorsAndKeepsDelivering(t *testing.T) {
	h := NewHub()
	errA := errors.New("a failed")
	errB := errors.New("b failed")
	calls := 0

	h.OnItemDeleted(func(context.Context, content.ItemDeleted) error { calls++; return errA })
	h.OnItemDeleted(func(context.Context, content.ItemDeleted) error { calls++; return nil })
	h.OnItemDeleted(func(context.Context, content.ItemDeleted) error { calls++; return errB })

	err := h.Publish(context.Background(), content.ItemDeleted{ItemID: "x", Database: "master"})
	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errB)
	assert.Equal(t, 3, calls)
}

func TestHub_Unsubscribe(t *testing.T) {
	h := NewHub()
	calls := 0
	unsubscribe := h.OnItemDeleted(func(context.Context, content.ItemDeleted) error { calls++; return nil })

	require.Equal(t, 1, h.Subscribers(content.KindItemDeleted))
	unsubscribe()
	unsubscribe()
	assert.Zero(t, h.Subscribers(content.KindItemDeleted))

	require.NoError(t, h.Publish(context.Background(), content.ItemDeleted{ItemID: "x"}))
	assert.Zero(t, calls)
}

func TestHub_CancelledContextStopsDelivery(t *testing.T) {
	h := NewHub()
	calls := 0
	h.OnItemDeleted(func(context.Context, content.ItemDeleted) error { calls++; return nil })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := h.Publish(ctx, content.ItemDeleted{ItemID: "x"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls)
}

func TestHub_NilEvent(t *testing.T) {
	assert.Error(t, NewHub().Publish(context.Background(), nil))
}

func TestHub_ConcurrentPublishAndSubscribe(t *testing.T) {
	h := NewHub()
	var mu sync.Mutex
	seen := 0
	var wg sync.WaitGroup

	for i := 0; i < 16; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			unsub := h.OnItemCopied(func(context.Context, content.ItemCopied) error {
				mu.Lock()
				seen++
				mu.Unlock()
				return nil
			})
			defer unsub()
		}()
		go func() {
			defer wg.Done()
			_ = h.Publish(context.Background(), content.ItemCopied{Ref: testRef})
		}()
	}
	wg.Wait()

	assert.Zero(t, h.Subscribers(content.KindItemCopied))
}
