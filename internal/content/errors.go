package content

import "errors"

var (
	// ErrItemNotFound is returned when a reference cannot be resolved to an item.
	ErrItemNotFound = errors.New("item not found")

	// ErrEmptyItemID is returned when an item id is blank.
	ErrEmptyItemID = errors.New("empty item id")
)
