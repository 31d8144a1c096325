package graph

import (
	"cmp"
	"maps"
	"slices"
)

// Store owns every element of a hierarchy, keyed by ID. Inter-element
// references are IDs only, so re-parenting never juggles live pointers.
//
// The store itself does not keep edges symmetric; [Builder] does. A store
// carries a "built" flag that is cleared whenever a pending element enters
// and set again by a build pass that leaves nothing pending.
//
// The zero value is not usable - use NewStore.
// Store is not safe for concurrent use without external synchronization.
type Store[K cmp.Ordered, T cmp.Ordered] struct {
	elements map[K]*Element[K, T]
	built    bool
}

// NewStore creates an empty store. An empty store counts as built.
func NewStore[K cmp.Ordered, T cmp.Ordered]() *Store[K, T] {
	return &Store[K, T]{
		elements: make(map[K]*Element[K, T]),
		built:    true,
	}
}

// Create inserts a new pending element for id with the given sorted tokens.
// If id is taken the call does nothing unless replace is set, in which case
// the old element and its edges are discarded. Edges on other elements that
// referenced the old element are left alone; [Builder.Replace] retracts
// them as well.
//
// It reports whether id was free before the call.
func (s *Store[K, T]) Create(id K, toks []T, replace bool) bool {
	return s.Add(NewElement(id, toks), replace)
}

// Add inserts a pre-built element under its own ID, with the same
// replacement rules as [Store.Create]. Adding a pending element marks the
// store as not built. It reports whether the ID was free before the call.
func (s *Store[K, T]) Add(e *Element[K, T], replace bool) bool {
	_, exists := s.elements[e.id]
	if exists && !replace {
		return false
	}
	s.elements[e.id] = e
	if e.pending {
		s.built = false
	}
	return !exists
}

// Get returns the element with the given ID and true, or nil and false.
// The pointer refers to the stored element.
func (s *Store[K, T]) Get(id K) (*Element[K, T], bool) {
	e, ok := s.elements[id]
	return e, ok
}

// Has reports whether an element with the given ID is stored.
func (s *Store[K, T]) Has(id K) bool {
	_, ok := s.elements[id]
	return ok
}

// Delete removes the element only. Edges elsewhere that point at it are
// left dangling; [Builder.Delete] retracts them as well. It reports whether
// the element existed.
func (s *Store[K, T]) Delete(id K) bool {
	if _, ok := s.elements[id]; !ok {
		return false
	}
	delete(s.elements, id)
	return true
}

// Len returns the number of stored elements, absorbed ones included.
func (s *Store[K, T]) Len() int { return len(s.elements) }

// IDs returns every stored ID in ascending order.
func (s *Store[K, T]) IDs() []K {
	return slices.Sorted(maps.Keys(s.elements))
}

// Elements returns every stored element ordered by ID.
func (s *Store[K, T]) Elements() []*Element[K, T] {
	out := make([]*Element[K, T], 0, len(s.elements))
	for _, id := range s.IDs() {
		out = append(out, s.elements[id])
	}
	return out
}

// Built reports whether no pending element has entered the store since the
// last complete build pass.
func (s *Store[K, T]) Built() bool { return s.built }

// Counts summarises the store: total elements, active ones, absorbed ones
// and those still pending.
func (s *Store[K, T]) Counts() (total, active, duplicates, pending int) {
	for _, e := range s.elements {
		total++
		switch {
		case e.IsDuplicate():
			duplicates++
		default:
			active++
			if e.pending {
				pending++
			}
		}
	}
	return total, active, duplicates, pending
}

// EdgeCount returns the number of parent→child edges.
func (s *Store[K, T]) EdgeCount() int {
	n := 0
	for _, e := range s.elements {
		if e.edges != nil {
			n += e.edges.children.Len()
		}
	}
	return n
}
