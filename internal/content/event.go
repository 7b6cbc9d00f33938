package content

// EventKind names the six content-change notifications.
type EventKind string

const (
	KindItemUpdated        EventKind = "item:updated"
	KindItemMoved          EventKind = "item:moved"
	KindItemCopied         EventKind = "item:copied"
	KindItemVersionAdded   EventKind = "item:version-added"
	KindItemVersionDeleted EventKind = "item:version-deleted"
	KindItemDeleted        EventKind = "item:deleted"
)

// AllEventKinds lists every kind in a stable order.
var AllEventKinds = []EventKind{
	KindItemUpdated,
	KindItemMoved,
	KindItemCopied,
	KindItemVersionAdded,
	KindItemVersionDeleted,
	KindItemDeleted,
}

// ChangeEvent is a content-change notification.
//
// The set of implementations is closed: only the six variants below satisfy
// the interface (isChangeEvent is unexported). Consumers dispatch with a
// single type switch.
type ChangeEvent interface {
	Kind() EventKind
	DatabaseName() string
	isChangeEvent()
}

// ItemUpdated is raised after an item version is saved.
type ItemUpdated struct {
	Ref     IndexableRef
	Changes FieldChangeSet
}

// ItemMoved is raised after an item (and its subtree) moved under a new parent.
// Ref points at the item in its new location.
type ItemMoved struct {
	Ref         IndexableRef
	OldParentID ItemID
}

// ItemCopied is raised for the root of a newly copied subtree.
type ItemCopied struct {
	Ref IndexableRef
}

// ItemVersionAdded is raised after a version is added. Ref may name any
// version; the handler re-resolves the current latest one.
type ItemVersionAdded struct {
	Ref IndexableRef
}

// ItemVersionDeleted is raised after one version is removed.
type ItemVersionDeleted struct {
	Ref IndexableRef
}

// ItemDeleted is raised after an item and all of its versions are removed.
type ItemDeleted struct {
	ItemID   ItemID
	Database string
}

func (ItemUpdated) Kind() EventKind        { return KindItemUpdated }
func (ItemMoved) Kind() EventKind          { return KindItemMoved }
func (ItemCopied) Kind() EventKind         { return KindItemCopied }
func (ItemVersionAdded) Kind() EventKind   { return KindItemVersionAdded }
func (ItemVersionDeleted) Kind() EventKind { return KindItemVersionDeleted }
func (ItemDeleted) Kind() EventKind        { return KindItemDeleted }

func (e ItemUpdated) DatabaseName() string        { return e.Ref.Database }
func (e ItemMoved) DatabaseName() string          { return e.Ref.Database }
func (e ItemCopied) DatabaseName() string         { return e.Ref.Database }
func (e ItemVersionAdded) DatabaseName() string   { return e.Ref.Database }
func (e ItemVersionDeleted) DatabaseName() string { return e.Ref.Database }
func (e ItemDeleted) DatabaseName() string        { return e.Database }

func (ItemUpdated) isChangeEvent()        {}
func (ItemMoved) isChangeEvent()          {}
func (ItemCopied) isChangeEvent()         {}
func (ItemVersionAdded) isChangeEvent()   {}
func (ItemVersionDeleted) isChangeEvent() {}
func (ItemDeleted) isChangeEvent()        {}
