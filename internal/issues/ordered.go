package issues

// orderedMap is a string-keyed map that remembers insertion order.
type orderedMap[V any] struct {
	index map[string]V
	keys  []string
}

func newOrderedMap[V any]() *orderedMap[V] {
	return &orderedMap[V]{index: make(map[string]V)}
}

func (m *orderedMap[V]) get(key string) (V, bool) {
	v, ok := m.index[key]
	return v, ok
}

func (m *orderedMap[V]) put(key string, v V) {
	if _, ok := m.index[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.index[key] = v
}

func (m *orderedMap[V]) values() []V {
	out := make([]V, 0, len(m.keys))
	for _, k := range m.keys {
		out = append(out, m.index[k])
	}
	return out
}
