package convert

import "path/filepath"

// Dict is a mapping that keeps insertion order. Plain Go maps are encoded
// with sorted keys; use Dict when the foreign names must follow a given order.
type Dict struct {
	keys   []string
	values map[string]any
}

// NewDict creates an empty Dict.
func NewDict() *Dict {
	return &Dict{values: make(map[string]any)}
}

// Set adds or replaces a key. A new key is appended at the end.
func (d *Dict) Set(key string, value any) *Dict {
	if _, ok := d.values[key]; !ok {
		d.keys = append(d.keys, key)
	}
	d.values[key] = value
	return d
}

// Get returns the value stored under key.
func (d *Dict) Get(key string) (any, bool) {
	v, ok := d.values[key]
	return v, ok
}

// Keys returns the keys in insertion order.
func (d *Dict) Keys() []string {
	return append([]string(nil), d.keys...)
}

// Len returns the number of entries.
func (d *Dict) Len() int { return len(d.keys) }

// Path is a filesystem path. It is sent to the runtime in slash form.
type Path string

func (p Path) String() string { return filepath.ToSlash(string(p)) }
