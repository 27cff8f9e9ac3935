package cim

import (
	"iter"
	"strings"
)

// Map is an insertion-ordered map keyed by case-insensitive CIM names.
// The zero value is ready to use.
type Map[V any] struct {
	keys  []string
	items map[string]V
}

// Set stores v under name. An existing entry keeps its position.
func (m *Map[V]) Set(name string, v V) {
	key := strings.ToLower(name)
	if m.items == nil {
		m.items = make(map[string]V)
	}
	if _, exists := m.items[key]; !exists {
		m.keys = append(m.keys, key)
	}
	m.items[key] = v
}

// Get returns the entry stored under name.
func (m *Map[V]) Get(name string) (V, bool) {
	v, ok := m.items[strings.ToLower(name)]
	return v, ok
}

// Has reports whether name is present.
func (m *Map[V]) Has(name string) bool {
	_, ok := m.items[strings.ToLower(name)]
	return ok
}

// Delete removes name, preserving the order of the remaining entries.
func (m *Map[V]) Delete(name string) {
	key := strings.ToLower(name)
	if _, ok := m.items[key]; !ok {
		return
	}
	delete(m.items, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i:i], m.keys[i+1:]...)
			break
		}
	}
	if len(m.keys) == 0 {
		m.keys, m.items = nil, nil
	}
}

// Len returns the number of entries.
func (m *Map[V]) Len() int {
	return len(m.keys)
}

// Values returns the entries in insertion order.
func (m *Map[V]) Values() []V {
	values := make([]V, 0, len(m.keys))
	for _, k := range m.keys {
		values = append(values, m.items[k])
	}
	return values
}

// All iterates over lowercased keys and values in insertion order.
func (m *Map[V]) All() iter.Seq2[string, V] {
	return func(yield func(string, V) bool) {
		for _, k := range m.keys {
			if !yield(k, m.items[k]) {
				return
			}
		}
	}
}
