package set

// Set is a generic set of comparable items (thread-unsafe)
type Set[T comparable] struct {
	items map[T]struct{}
}

// New creates a new Set holding the given elements
func New[T comparable](elems ...T) Set[T] {
	s := Set[T]{
		items: make(map[T]struct{}, len(elems)),
	}
	s.Append(elems...)
	return s
}

// Append inserts elements into the set
func (s Set[T]) Append(elems ...T) {
	for _, elem := range elems {
		s.items[elem] = struct{}{}
	}
}

// Contains checks if an element is in the set
func (s Set[T]) Contains(elem T) bool {
	_, ok := s.items[elem]
	return ok
}

// Len returns the number of elements in the set
func (s Set[T]) Len() int {
	return len(s.items)
}
