package document

import (
	"fmt"
	"sort"
	"strings"
)

// Prefix returns the part of key before its first underscore, or the whole
// key when it has none.
func Prefix(key string) string {
	if i := strings.IndexByte(key, '_'); i >= 0 {
		return key[:i]
	}
	return key
}

// GroupByPrefix partitions keys by Prefix. Keys inside a group are sorted.
func GroupByPrefix(keys []string) map[string][]string {
	groups := make(map[string][]string)
	for _, k := range keys {
		p := Prefix(k)
		groups[p] = append(groups[p], k)
	}
	for _, g := range groups {
		sort.Strings(g)
	}
	return groups
}

// SortedPrefixes returns the group names of groups in ascending order.
func SortedPrefixes(groups map[string][]string) []string {
	out := make([]string, 0, len(groups))
	for p := range groups {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// ValidateKey checks that key can be used as a single path segment and a
// filename inside the store directory.
func ValidateKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: key cannot be empty", ErrInvalidKey)
	}
	if key == "." || key == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	if strings.ContainsAny(key, "/\\\x00") {
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidKey, key)
	}
	return nil
}
