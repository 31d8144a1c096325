package graph

import (
	"context"
	"slices"

	"github.com/charmbracelet/log"
	"k8s.io/apimachinery/pkg/util/sets"
)

// NarrowMode selects how [Builder.Narrow] interprets its ID set.
type NarrowMode int

const (
	// NarrowKeep retracts every edge whose far endpoint is not in the set.
	NarrowKeep NarrowMode = iota
	// NarrowDrop retracts every edge whose far endpoint is in the set.
	NarrowDrop
)

// Narrow retracts edges by far endpoint, on every element in the store, and
// reports whether anything was retracted. Parent and child edges are removed
// on both endpoints when the neighbour still exists. Retracting a duplicate
// edge releases the absorbed element: it becomes active and pending again
// with no edges, and the next [Builder.Upbuild] absorbs or places it anew.
// Elements themselves are never added or removed.
//
// Narrow is used after elements were deleted outside the builder, to clear
// the references they left behind.
func (b *Builder[K, T]) Narrow(ids []K, mode NarrowMode) bool {
	set := sets.New(ids...)
	retract := func(id K) bool {
		if mode == NarrowKeep {
			return !set.Has(id)
		}
		return set.Has(id)
	}

	changed := false
	for _, e := range b.store.Elements() {
		if e.IsDuplicate() {
			continue
		}
		for _, kind := range edgeKinds {
			for _, nid := range e.edges.List(kind) {
				if !retract(nid) {
					continue
				}
				e.RemoveEdge(nid, kind)
				changed = true
				n, ok := b.store.Get(nid)
				if !ok {
					continue
				}
				if kind == EdgeDuplicate {
					b.release(n, e.id)
					continue
				}
				n.RemoveEdge(e.id, kind.Mirror())
			}
		}
	}
	return changed
}

// Delete removes an element and retracts every edge pointing at it. When
// the element is a representative, its lowest-ID duplicate takes over its
// edges and the remaining duplicates. It reports whether the element
// existed.
func (b *Builder[K, T]) Delete(id K) bool {
	e, ok := b.store.Get(id)
	if !ok {
		return false
	}
	if heir, ok := b.heir(e); ok {
		e.RemoveEdge(heir.id, EdgeDuplicate)
		heir.release()
		heir.setPending(e.pending)
		if _, err := b.Absorb(heir.id, id); err != nil {
			b.report(log.ErrorLevel, "handing over to duplicate failed", "id", id, "heir", heir.id, "err", err)
		} else {
			b.report(log.DebugLevel, "duplicate took over deleted element", "id", id, "heir", heir.id)
		}
	}
	b.store.Delete(id)
	b.Narrow([]K{id}, NarrowDrop)
	b.report(log.DebugLevel, "deleted element", "id", id)
	return true
}

// Replace gives id a new token sequence. An existing element is removed as
// by [Builder.Delete] first, so no edge keeps pointing at the old tokens.
// The new element is pending. Replace reports whether id existed.
func (b *Builder[K, T]) Replace(id K, toks []T) bool {
	existed := b.Delete(id)
	b.store.Create(id, toks, false)
	return existed
}

// heir returns the lowest-ID stored duplicate of e.
func (b *Builder[K, T]) heir(e *Element[K, T]) (*Element[K, T], bool) {
	for _, did := range e.Duplicates() {
		d, ok := b.store.Get(did)
		if !ok {
			continue
		}
		if of, dup := d.DuplicateOf(); dup && of == e.id {
			return d, true
		}
	}
	return nil, false
}

// release reactivates d once it no longer belongs to rep.
func (b *Builder[K, T]) release(d *Element[K, T], rep K) {
	if of, dup := d.DuplicateOf(); !dup || of != rep {
		return
	}
	d.release()
	b.store.built = false
	b.report(log.DebugLevel, "released duplicate", "id", d.id, "from", rep)
}

// Roots returns the active elements without parents, in ascending ID order.
// With onlyBuilt set, pending elements are left out.
func (b *Builder[K, T]) Roots(onlyBuilt bool) []K {
	var roots []K
	for _, e := range b.store.Elements() {
		if e.IsDuplicate() || e.HasParents() {
			continue
		}
		if onlyBuilt && e.pending {
			continue
		}
		roots = append(roots, e.id)
	}
	return roots
}

// UnbuiltByLength groups the pending active elements by token count. Each
// list is in ascending ID order.
func (b *Builder[K, T]) UnbuiltByLength() map[int][]K {
	groups := make(map[int][]K)
	for _, e := range b.store.Elements() {
		if e.IsDuplicate() || !e.pending {
			continue
		}
		groups[e.Len()] = append(groups[e.Len()], e.id)
	}
	return groups
}

// Ancestors returns every element reachable from id through parent edges,
// sorted by ID. It returns nil for an unknown or absorbed element.
func (b *Builder[K, T]) Ancestors(id K) []K { return b.walk(id, EdgeParent) }

// Descendants returns every element reachable from id through child edges,
// sorted by ID. It returns nil for an unknown or absorbed element.
func (b *Builder[K, T]) Descendants(id K) []K { return b.walk(id, EdgeChild) }

func (b *Builder[K, T]) walk(id K, kind EdgeKind) []K {
	start, ok := b.store.Get(id)
	if !ok || start.IsDuplicate() {
		return nil
	}
	seen := sets.New[K]()
	queue := start.edges.List(kind)
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		if next == id || seen.Has(next) {
			continue
		}
		seen.Insert(next)
		if e, ok := b.store.Get(next); ok && !e.IsDuplicate() {
			queue = append(queue, e.edges.List(kind)...)
		}
	}
	out := seen.UnsortedList()
	slices.Sort(out)
	return out
}

// Rebuild drops every parent and child edge, marks all active elements
// pending and runs a fresh [Builder.Upbuild]. Absorptions are kept. A single
// pass in ascending token count yields the same hierarchy regardless of the
// order in which batches originally arrived.
func (b *Builder[K, T]) Rebuild(ctx context.Context) (*BuildResult[K], error) {
	for _, e := range b.store.elements {
		e.reset()
	}
	b.store.built = false
	return b.Upbuild(ctx)
}
