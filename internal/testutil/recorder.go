package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/roach88/indexsync/internal/content"
	"github.com/roach88/indexsync/internal/index"
)

// Call is one recorded index mutation.
type Call struct {
	Op     index.Op
	Index  string
	Ref    content.IndexableRef
	ItemID content.ItemID
	Flags  index.UpdateFlags
}

// String renders the call compactly for assertion messages.
func (c Call) String() string {
	switch c.Op {
	case index.OpDelete:
		return fmt.Sprintf("%s(%s)", c.Op, c.ItemID)
	default:
		return fmt.Sprintf("%s(%s %+v)", c.Op, c.Ref, c.Flags)
	}
}

// RecordingCustodian is an index.Custodian that records every call.
//
// Err, when set, is returned from every call after it is recorded.
// Thread-safety: safe for concurrent use.
type RecordingCustodian struct {
	mu    sync.Mutex
	calls []Call
	Err   error
}

// NewRecordingCustodian returns an empty recorder.
func NewRecordingCustodian() *RecordingCustodian {
	return &RecordingCustodian{}
}

func (r *RecordingCustodian) record(c Call) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, c)
	return r.Err
}

// UpdateEntry implements index.Custodian.
func (r *RecordingCustodian) UpdateEntry(_ context.Context, idx index.Index, ref content.IndexableRef, flags index.UpdateFlags) error {
	return r.record(Call{Op: index.OpUpdate, Index: idx.Name(), Ref: ref, ItemID: ref.ItemID, Flags: flags})
}

// DeleteEntry implements index.Custodian.
func (r *RecordingCustodian) DeleteEntry(_ context.Context, idx index.Index, id content.ItemID) error {
	return r.record(Call{Op: index.OpDelete, Index: idx.Name(), ItemID: id})
}

// DeleteVersion implements index.Custodian.
func (r *RecordingCustodian) DeleteVersion(_ context.Context, idx index.Index, ref content.IndexableRef) error {
	return r.record(Call{Op: index.OpDeleteVersion, Index: idx.Name(), Ref: ref, ItemID: ref.ItemID})
}

// RefreshSubtree implements index.Custodian.
func (r *RecordingCustodian) RefreshSubtree(_ context.Context, idx index.Index, ref content.IndexableRef) error {
	return r.record(Call{Op: index.OpRefresh, Index: idx.Name(), Ref: ref, ItemID: ref.ItemID})
}

// Calls returns a copy of the recorded calls in order.
func (r *RecordingCustodian) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Call, len(r.calls))
	copy(out, r.calls)
	return out
}

// Reset forgets all recorded calls.
func (r *RecordingCustodian) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}

// RecordingUpdater records base-primitive updates for crawler tests.
//
// FailOn maps a reference to the error returned for it.
// Thread-safety: safe for concurrent use.
type RecordingUpdater struct {
	mu     sync.Mutex
	refs   []content.IndexableRef
	flags  []index.UpdateFlags
	FailOn map[content.IndexableRef]error
}

// NewRecordingUpdater returns an empty recorder.
func NewRecordingUpdater() *RecordingUpdater {
	return &RecordingUpdater{FailOn: make(map[content.IndexableRef]error)}
}

// Update records the call.
func (u *RecordingUpdater) Update(_ context.Context, ref content.IndexableRef, flags index.UpdateFlags) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.refs = append(u.refs, ref)
	u.flags = append(u.flags, flags)
	return u.FailOn[ref]
}

// Refs returns the updated references in call order.
func (u *RecordingUpdater) Refs() []content.IndexableRef {
	u.mu.Lock()
	defer u.mu.Unlock()
	out := make([]content.IndexableRef, len(u.refs))
	copy(out, u.refs)
	return out
}

// Flags returns the flags of each call in call order.
func (u *RecordingUpdater) Flags() []index.UpdateFlags {
	u.mu.Lock()
	defer u.mu.Unlock()
	out := make([]index.UpdateFlags, len(u.flags))
	copy(out, u.flags)
	return out
}

// Count returns how many times ref was updated.
func (u *RecordingUpdater) Count(ref content.IndexableRef) int {
	u.mu.Lock()
	defer u.mu.Unlock()
	n := 0
	for _, r := range u.refs {
		if r == ref {
			n++
		}
	}
	return n
}

// RecordingObserver collects notifications.
type RecordingObserver struct {
	mu    sync.Mutex
	notes []index.Notification
}

// Notify implements index.Observer.
func (o *RecordingObserver) Notify(_ context.Context, n index.Notification) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.notes = append(o.notes, n)
}

// Notifications returns a copy of the collected notifications.
func (o *RecordingObserver) Notifications() []index.Notification {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]index.Notification, len(o.notes))
	copy(out, o.notes)
	return out
}

// Of returns the references notified with the given kind, in order.
func (o *RecordingObserver) Of(kind index.NotificationKind) []content.IndexableRef {
	o.mu.Lock()
	defer o.mu.Unlock()
	var out []content.IndexableRef
	for _, n := range o.notes {
		if n.Kind == kind {
			out = append(out, n.Ref)
		}
	}
	return out
}

// StaticIndex is an index.Index with a fixed name and no crawlers.
type StaticIndex string

// Name implements index.Index.
func (s StaticIndex) Name() string { return string(s) }

// Crawlers implements index.Index.
func (s StaticIndex) Crawlers() []index.Crawler { return nil }

// Writer implements index.Index.
func (s StaticIndex) Writer() index.Writer { return nil }

// StaticState is an index.State answering a fixed value.
type StaticState bool

// IsIndexingPaused implements index.State.
func (s StaticState) IsIndexingPaused(index.Index) bool { return bool(s) }

// StaticBulk is an index.BulkMode answering a fixed value.
type StaticBulk bool

// IsBulkUpdateActive implements index.BulkMode.
func (s StaticBulk) IsBulkUpdateActive() bool { return bool(s) }
