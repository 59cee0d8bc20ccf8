package prune

// StyleSnapshot is an ordered, immutable mapping from CSS property name to
// serialized value.
type StyleSnapshot struct {
	names  []string
	values map[string]string
}

// NewStyleSnapshot builds a snapshot from property/value pairs. A repeated
// property keeps its first position and its last value.
func NewStyleSnapshot(pairs ...[2]string) StyleSnapshot {
	s := StyleSnapshot{
		names:  make([]string, 0, len(pairs)),
		values: make(map[string]string, len(pairs)),
	}
	for _, p := range pairs {
		if _, ok := s.values[p[0]]; !ok {
			s.names = append(s.names, p[0])
		}
		s.values[p[0]] = p[1]
	}
	return s
}

// StyleFromMap builds a snapshot from a map in the given property order.
// Properties in order but missing from m are skipped.
func StyleFromMap(order []string, m map[string]string) StyleSnapshot {
	pairs := make([][2]string, 0, len(order))
	for _, name := range order {
		if v, ok := m[name]; ok {
			pairs = append(pairs, [2]string{name, v})
		}
	}
	return NewStyleSnapshot(pairs...)
}

func (s StyleSnapshot) Len() int { return len(s.names) }

// Names returns the property names in enumeration order.
func (s StyleSnapshot) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

func (s StyleSnapshot) Get(name string) (string, bool) {
	v, ok := s.values[name]
	return v, ok
}

func (s StyleSnapshot) Value(name string) string {
	return s.values[name]
}

// Each calls fn for every property in enumeration order.
func (s StyleSnapshot) Each(fn func(name, value string)) {
	for _, name := range s.names {
		fn(name, s.values[name])
	}
}
