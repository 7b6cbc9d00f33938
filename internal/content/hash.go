package content

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
)

// DomainEntry is the domain prefix for index entry keys.
// The version suffix leaves room for a future key algorithm.
const DomainEntry = "indexsync/entry/v1"

// Key returns the content-addressed key of the index entry for r.
//
// Format: hex(SHA256(domain + 0x00 + database + 0x00 + item + 0x00 + language + 0x00 + version)).
// The null separators keep field boundaries unambiguous.
func (r IndexableRef) Key() string {
	h := sha256.New()
	h.Write([]byte(DomainEntry))
	for _, part := range []string{r.Database, string(r.ItemID), r.Language, strconv.Itoa(int(r.Version))} {
		h.Write([]byte{0x00})
		h.Write([]byte(part))
	}
	return hex.EncodeToString(h.Sum(nil))
}
