package content

import "strings"

// Item is a resolved version of a content item.
type Item struct {
	Ref      IndexableRef      `json:"ref"`
	ParentID ItemID            `json:"parent_id,omitempty"`
	Name     string            `json:"name"`
	Path     string            `json:"path"`
	Template string            `json:"template,omitempty"`
	Fields   map[string]string `json:"fields,omitempty"`

	// DependsOn lists the items whose data this item aggregates
	// (computed or rollup fields). When one of them changes while
	// excluded from the index, this item's entry must still be refreshed.
	DependsOn []IndexableRef `json:"depends_on,omitempty"`
}

// ParentPath returns the path of the item's parent ("" for a root item).
func (it *Item) ParentPath() string {
	idx := strings.LastIndex(it.Path, "/")
	if idx <= 0 {
		return ""
	}
	return it.Path[:idx]
}
