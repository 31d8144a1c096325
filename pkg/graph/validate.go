package graph

import (
	"cmp"
	"errors"
	"fmt"
	"slices"

	"github.com/matzehuels/phrasetower/pkg/tokens"
)

// Validate checks the structural invariants of a hierarchy:
//
//   - tokens are sorted ascending
//   - every edge points at a stored element and no edge is a self-edge
//   - parent and child edges are mirrored and never touch an absorbed element
//   - every parent→child edge is strict containment
//   - duplicate edges and DuplicateOf markers mirror each other
//   - no two placed active elements carry identical tokens
//   - parent→child edges form no cycle
//
// All violations are collected and returned with errors.Join; each wraps one
// of the package's sentinel errors. A nil result means the store is
// consistent. Validate does not require the store to be built.
func Validate[K cmp.Ordered, T cmp.Ordered](s *Store[K, T]) error {
	var errs []error
	addf := func(sentinel error, format string, args ...any) {
		errs = append(errs, fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), sentinel))
	}

	for _, e := range s.Elements() {
		if !tokens.IsSorted(e.tokens) {
			addf(ErrUnsortedTokens, "element %v", e.id)
		}
		if e.IsDuplicate() {
			rep, ok := s.Get(e.dupOf)
			switch {
			case !ok:
				addf(ErrDanglingEdge, "element %v: duplicate of %v", e.id, e.dupOf)
			case rep.IsDuplicate() || !rep.edges.Has(e.id, EdgeDuplicate):
				addf(ErrAsymmetricEdge, "element %v: not listed as a duplicate of %v", e.id, e.dupOf)
			}
			continue
		}

		for _, kind := range edgeKinds {
			for _, nid := range e.edges.List(kind) {
				if nid == e.id {
					addf(ErrInvalidContainment, "element %v: %s edge to itself", e.id, kind)
					continue
				}
				n, ok := s.Get(nid)
				if !ok {
					addf(ErrDanglingEdge, "element %v: %s %v", e.id, kind, nid)
					continue
				}
				if kind == EdgeDuplicate {
					if of, dup := n.DuplicateOf(); !dup || of != e.id {
						addf(ErrAsymmetricEdge, "element %v: duplicate %v is not absorbed into it", e.id, nid)
					}
					continue
				}
				if n.IsDuplicate() {
					addf(ErrEdgeToDuplicate, "element %v: %s %v", e.id, kind, nid)
					continue
				}
				if !n.edges.Has(e.id, kind.Mirror()) {
					addf(ErrAsymmetricEdge, "element %v: %s %v", e.id, kind, nid)
				}
				if kind == EdgeChild && !tokens.Contains(e.tokens, n.tokens) {
					addf(ErrInvalidContainment, "edge %v→%v", e.id, nid)
				}
			}
		}
	}

	if err := checkDuplicateTokens(s); err != nil {
		errs = append(errs, err)
	}
	if err := checkAcyclic(s); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// checkDuplicateTokens skips pending elements: the next build pass absorbs
// them.
func checkDuplicateTokens[K cmp.Ordered, T cmp.Ordered](s *Store[K, T]) error {
	var active []*Element[K, T]
	for _, e := range s.Elements() {
		if !e.IsDuplicate() && !e.pending {
			active = append(active, e)
		}
	}
	slices.SortStableFunc(active, func(a, b *Element[K, T]) int {
		return slices.Compare(a.tokens, b.tokens)
	})

	var errs []error
	for i := 1; i < len(active); i++ {
		if tokens.Equal(active[i-1].tokens, active[i].tokens) {
			errs = append(errs, fmt.Errorf("elements %v and %v: %w", active[i-1].id, active[i].id, ErrDuplicateTokens))
		}
	}
	return errors.Join(errs...)
}

// checkAcyclic runs a three-colour DFS over child edges.
func checkAcyclic[K cmp.Ordered, T cmp.Ordered](s *Store[K, T]) error {
	const (
		white = iota
		gray
		black
	)
	state := make(map[K]int, s.Len())

	var visit func(id K) error
	visit = func(id K) error {
		state[id] = gray
		if e, ok := s.Get(id); ok && !e.IsDuplicate() {
			for _, c := range e.edges.List(EdgeChild) {
				switch state[c] {
				case gray:
					return fmt.Errorf("edge %v→%v: %w", id, c, ErrGraphHasCycle)
				case white:
					if !s.Has(c) {
						continue
					}
					if err := visit(c); err != nil {
						return err
					}
				}
			}
		}
		state[id] = black
		return nil
	}

	for _, id := range s.IDs() {
		if state[id] == white {
			if err := visit(id); err != nil {
				return err
			}
		}
	}
	return nil
}
