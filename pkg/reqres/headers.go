// Package reqres defines the Request/Response data model shared by the
// codec, dispatcher and rule engine.
package reqres

import "strings"

// header is one (name, value) pair as it appeared on the wire.
type header struct {
	name  string
	value string
}

// Headers is an ordered list of (name, value) pairs with case-insensitive
// lookup. Insertion preserves first-seen order; a duplicate name overwrites
// the prior value in place rather than appending a second entry.
type Headers struct {
	entries []header
	index   map[string]int // lower(name) -> index into entries
}

// NewHeaders returns an empty header list.
func NewHeaders() *Headers {
	return &Headers{index: make(map[string]int)}
}

// Set inserts name/value, or overwrites the existing value when name was
// already present (case-insensitive).
func (h *Headers) Set(name, value string) {
	key := strings.ToLower(name)
	if idx, ok := h.index[key]; ok {
		h.entries[idx].value = value
		return
	}
	h.index[key] = len(h.entries)
	h.entries = append(h.entries, header{name: name, value: value})
}

// Get returns the value for name and whether it was present.
func (h *Headers) Get(name string) (string, bool) {
	idx, ok := h.index[strings.ToLower(name)]
	if !ok {
		return "", false
	}
	return h.entries[idx].value, true
}

// Has reports whether name is present, case-insensitively.
func (h *Headers) Has(name string) bool {
	_, ok := h.index[strings.ToLower(name)]
	return ok
}

// Del removes name, if present.
func (h *Headers) Del(name string) {
	key := strings.ToLower(name)
	idx, ok := h.index[key]
	if !ok {
		return
	}
	h.entries = append(h.entries[:idx], h.entries[idx+1:]...)
	delete(h.index, key)
	for k, i := range h.index {
		if i > idx {
			h.index[k] = i - 1
		}
	}
}

// Each calls fn for every header in insertion order.
func (h *Headers) Each(fn func(name, value string)) {
	for _, e := range h.entries {
		fn(e.name, e.value)
	}
}

// Len returns the number of distinct header names.
func (h *Headers) Len() int { return len(h.entries) }

// Clone returns a deep copy.
func (h *Headers) Clone() *Headers {
	c := NewHeaders()
	h.Each(func(name, value string) { c.Set(name, value) })
	return c
}
