package content

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// ItemID identifies a content item independent of language and version.
//
// GUID identifiers are canonicalised to the braced upper-case form
// ({XXXXXXXX-XXXX-XXXX-XXXX-XXXXXXXXXXXX}) so that differently formatted
// spellings of the same GUID compare equal. Any other non-empty token is
// accepted verbatim as an opaque identifier.
type ItemID string

// NewItemID returns a fresh random GUID identifier.
func NewItemID() ItemID {
	return guidID(uuid.New())
}

// ParseItemID normalises s into an ItemID.
func ParseItemID(s string) (ItemID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("item id: %w", ErrEmptyItemID)
	}
	if u, err := uuid.Parse(strings.Trim(s, "{}")); err == nil {
		return guidID(u), nil
	}
	return ItemID(s), nil
}

// MustParseItemID is like ParseItemID but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustParseItemID(s string) ItemID {
	id, err := ParseItemID(s)
	if err != nil {
		panic(err)
	}
	return id
}

func guidID(u uuid.UUID) ItemID {
	return ItemID("{" + strings.ToUpper(u.String()) + "}")
}

// String implements fmt.Stringer.
func (id ItemID) String() string { return string(id) }

// Version is a numbered item version within one language.
type Version int

// LatestVersion asks the content store for the current latest version.
const LatestVersion Version = 0

// IndexableRef names one version of one language of a content item in one database.
//
// IndexableRef is a value type: equality is structural (==) and it is safe to use
// as a map key. It is never mutated after construction; the With*/At* helpers
// return modified copies.
type IndexableRef struct {
	ItemID   ItemID  `json:"item_id" yaml:"item_id"`
	Language string  `json:"language" yaml:"language"`
	Version  Version `json:"version" yaml:"version"`
	Database string  `json:"database" yaml:"database"`
}

// NewRef builds a reference.
func NewRef(id ItemID, language string, version Version, database string) IndexableRef {
	return IndexableRef{ItemID: id, Language: language, Version: version, Database: database}
}

// AtLatest returns the same reference pointing at the latest version.
func (r IndexableRef) AtLatest() IndexableRef {
	r.Version = LatestVersion
	return r
}

// WithVersion returns the same reference pointing at version v.
func (r IndexableRef) WithVersion(v Version) IndexableRef {
	r.Version = v
	return r
}

// WithLanguage returns the same reference in another language (latest version).
func (r IndexableRef) WithLanguage(lang string) IndexableRef {
	r.Language = lang
	r.Version = LatestVersion
	return r
}

// SameLatest reports whether other names the same item, language and database
// at a different version.
func (r IndexableRef) SameLatest(other IndexableRef) bool {
	return r.ItemID == other.ItemID &&
		r.Language == other.Language &&
		r.Database == other.Database &&
		r.Version != other.Version
}

// IsZero reports whether r is the zero reference.
func (r IndexableRef) IsZero() bool {
	return r == IndexableRef{}
}

// String renders the reference as "database:item/language/version".
func (r IndexableRef) String() string {
	return fmt.Sprintf("%s:%s/%s/%d", r.Database, r.ItemID, r.Language, r.Version)
}

// ParseRef parses the form produced by IndexableRef.String.
//
// The version segment may be omitted ("master:home/en") to mean LatestVersion.
func ParseRef(s string) (IndexableRef, error) {
	db, rest, ok := strings.Cut(s, ":")
	if !ok || db == "" {
		return IndexableRef{}, fmt.Errorf("parse ref %q: missing database", s)
	}

	parts := strings.Split(rest, "/")
	if len(parts) < 2 || len(parts) > 3 {
		return IndexableRef{}, fmt.Errorf("parse ref %q: want database:item/language[/version]", s)
	}

	id, err := ParseItemID(parts[0])
	if err != nil {
		return IndexableRef{}, fmt.Errorf("parse ref %q: %w", s, err)
	}
	if parts[1] == "" {
		return IndexableRef{}, fmt.Errorf("parse ref %q: missing language", s)
	}

	version := LatestVersion
	if len(parts) == 3 {
		n, err := strconv.Atoi(parts[2])
		if err != nil || n < 0 {
			return IndexableRef{}, fmt.Errorf("parse ref %q: invalid version %q", s, parts[2])
		}
		version = Version(n)
	}

	return NewRef(id, parts[1], version, db), nil
}

// MustParseRef is like ParseRef but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustParseRef(s string) IndexableRef {
	ref, err := ParseRef(s)
	if err != nil {
		panic(err)
	}
	return ref
}
