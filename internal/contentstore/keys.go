package contentstore

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/indexsync/internal/content"
)

const sep = "/"

func itemPrefix(db string, id content.ItemID) []byte {
	return []byte("item/" + db + sep + string(id) + sep)
}

func langPrefix(db string, id content.ItemID, lang string) []byte {
	return []byte("item/" + db + sep + string(id) + sep + lang + sep)
}

func itemKey(ref content.IndexableRef) []byte {
	return []byte(fmt.Sprintf("item/%s/%s/%s/%010d", ref.Database, ref.ItemID, ref.Language, ref.Version))
}

// parseItemKey extracts the language and version from an item key.
func parseItemKey(key []byte) (lang string, version content.Version, err error) {
	parts := strings.Split(string(key), sep)
	if len(parts) != 5 || parts[0] != "item" {
		return "", 0, fmt.Errorf("malformed item key %q", key)
	}
	v, err := strconv.Atoi(parts[4])
	if err != nil {
		return "", 0, fmt.Errorf("malformed item key %q: %w", key, err)
	}
	return parts[3], content.Version(v), nil
}

func parentKey(db string, id content.ItemID) []byte {
	return []byte("parent/" + db + sep + string(id))
}

func childPrefix(db string, parent content.ItemID) []byte {
	return []byte("child/" + db + sep + string(parent) + sep)
}

func childKey(db string, parent, id content.ItemID) []byte {
	return append(childPrefix(db, parent), id...)
}

func depPrefix(db string, target content.ItemID, lang string) []byte {
	return []byte("dep/" + db + sep + string(target) + sep + lang + sep)
}

func depKey(target content.IndexableRef, dependent content.IndexableRef) []byte {
	return append(depPrefix(target.Database, target.ItemID, target.Language),
		fmt.Sprintf("%s/%s/%010d", dependent.ItemID, dependent.Language, dependent.Version)...)
}

// parseDepSuffix extracts the dependent item and language from a dep key.
func parseDepSuffix(key, prefix []byte) (content.ItemID, string, error) {
	parts := strings.Split(string(key[len(prefix):]), sep)
	if len(parts) != 3 {
		return "", "", fmt.Errorf("malformed dependency key %q", key)
	}
	return content.ItemID(parts[0]), parts[1], nil
}

// upperBound returns the smallest key greater than every key with prefix.
func upperBound(prefix []byte) []byte {
	end := make([]byte, len(prefix))
	copy(end, prefix)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}

// validSegment rejects names that would break the key layout.
func validSegment(kind, s string) error {
	if s == "" {
		return fmt.Errorf("empty %s", kind)
	}
	if strings.Contains(s, sep) {
		return fmt.Errorf("%s %q contains %q", kind, s, sep)
	}
	return nil
}
