package shortlink

import (
	"fmt"
	"net/url"
	"sort"
)

// MusicKey is the entry served by the dedicated music host.
const MusicKey = "music"

// Table maps case-sensitive shortlink keys to absolute destination URLs.
// It is built once and never mutated, so it is safe for concurrent reads.
type Table struct {
	links map[string]string
}

// NewTable validates and copies links into an immutable table.
func NewTable(links map[string]string) (Table, error) {
	copied := make(map[string]string, len(links))
	for key, dest := range links {
		if key == "" {
			return Table{}, fmt.Errorf("shortlink with empty key -> %q", dest)
		}
		u, err := url.Parse(dest)
		if err != nil {
			return Table{}, fmt.Errorf("shortlink %q: invalid destination: %w", key, err)
		}
		if !u.IsAbs() || u.Host == "" {
			return Table{}, fmt.Errorf("shortlink %q: destination %q is not an absolute URL", key, dest)
		}
		copied[key] = dest
	}
	return Table{links: copied}, nil
}

// Lookup returns the destination stored for key.
func (t Table) Lookup(key string) (string, bool) {
	dest, ok := t.links[key]
	return dest, ok
}

func (t Table) Len() int { return len(t.links) }

// Entries returns a copy of the table contents.
func (t Table) Entries() map[string]string {
	out := make(map[string]string, len(t.links))
	for k, v := range t.links {
		out[k] = v
	}
	return out
}

// Keys returns the keys in sorted order.
func (t Table) Keys() []string {
	keys := make([]string, 0, len(t.links))
	for k := range t.links {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
