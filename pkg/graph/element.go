package graph

import (
	"cmp"
	"slices"

	"k8s.io/apimachinery/pkg/util/sets"
)

// EdgeKind selects one of the three edge sets held by an active element.
type EdgeKind int

const (
	// EdgeParent links to a more general element (a strict sub-multiset).
	EdgeParent EdgeKind = iota
	// EdgeChild links to a more specific element (a strict super-multiset).
	EdgeChild
	// EdgeDuplicate links to an element that was absorbed into this one.
	EdgeDuplicate
)

// edgeKinds lists every kind in the order absorption and narrowing visit them.
var edgeKinds = [...]EdgeKind{EdgeParent, EdgeChild, EdgeDuplicate}

// String returns the lower-case name of the kind.
func (k EdgeKind) String() string {
	switch k {
	case EdgeParent:
		return "parent"
	case EdgeChild:
		return "child"
	case EdgeDuplicate:
		return "duplicate"
	default:
		return "unknown"
	}
}

// Mirror returns the kind stored on the other endpoint of an edge.
// Parent and child mirror each other. A duplicate edge is mirrored by the
// absorbed element's DuplicateOf marker rather than an edge set, so
// EdgeDuplicate mirrors itself.
func (k EdgeKind) Mirror() EdgeKind {
	switch k {
	case EdgeParent:
		return EdgeChild
	case EdgeChild:
		return EdgeParent
	default:
		return k
	}
}

// Edges holds the three edge sets of an active element.
// It is only reachable through [Element.Edges] while the element has not been
// absorbed, so edge sets can never be read off a duplicate by accident.
type Edges[K cmp.Ordered] struct {
	parents    sets.Set[K]
	children   sets.Set[K]
	duplicates sets.Set[K]
}

func newEdges[K cmp.Ordered]() *Edges[K] {
	return &Edges[K]{
		parents:    sets.New[K](),
		children:   sets.New[K](),
		duplicates: sets.New[K](),
	}
}

func (e *Edges[K]) set(kind EdgeKind) sets.Set[K] {
	switch kind {
	case EdgeParent:
		return e.parents
	case EdgeChild:
		return e.children
	default:
		return e.duplicates
	}
}

// List returns the IDs of the given kind in ascending order.
// The slice is a fresh copy and may be modified by the caller.
func (e *Edges[K]) List(kind EdgeKind) []K {
	ids := e.set(kind).UnsortedList()
	slices.Sort(ids)
	return ids
}

// Has reports whether id is in the edge set of the given kind.
func (e *Edges[K]) Has(id K, kind EdgeKind) bool { return e.set(kind).Has(id) }

// Len returns the size of the edge set of the given kind.
func (e *Edges[K]) Len(kind EdgeKind) int { return e.set(kind).Len() }

// Element is a node of the subsumption hierarchy: an identifier, its sorted
// token sequence and either a set of edges (while active) or a pointer to the
// element it was merged into (once absorbed).
//
// Elements are created pending with [NewElement] and positioned in the
// hierarchy by [Builder.Upbuild]. All structural mutation that must stay
// symmetric goes through the [Builder]; the edge primitives on Element only
// touch the local node.
type Element[K cmp.Ordered, T cmp.Ordered] struct {
	id      K
	tokens  []T
	pending bool

	// edges is nil once the element has been absorbed; dupOf is only
	// meaningful in that state.
	edges *Edges[K]
	dupOf K
}

// NewElement creates a pending, active element. The token slice is copied and
// must already be sorted ascending; the element does not sort it.
func NewElement[K cmp.Ordered, T cmp.Ordered](id K, toks []T) *Element[K, T] {
	return &Element[K, T]{
		id:      id,
		tokens:  slices.Clone(toks),
		pending: true,
		edges:   newEdges[K](),
	}
}

// ID returns the element's identifier.
func (e *Element[K, T]) ID() K { return e.id }

// Tokens returns the sorted token sequence. The slice is shared with the
// element and must not be modified.
func (e *Element[K, T]) Tokens() []T { return e.tokens }

// Len returns the number of tokens, the grouping key of a build pass.
func (e *Element[K, T]) Len() int { return len(e.tokens) }

// Pending reports whether the element still awaits insertion by a build pass.
func (e *Element[K, T]) Pending() bool { return e.pending }

// IsDuplicate reports whether the element has been absorbed into another.
func (e *Element[K, T]) IsDuplicate() bool { return e.edges == nil }

// DuplicateOf returns the absorbing element's ID and true if the element
// has been absorbed, or the zero ID and false while it is active.
func (e *Element[K, T]) DuplicateOf() (K, bool) {
	if e.edges != nil {
		var zero K
		return zero, false
	}
	return e.dupOf, true
}

// Edges returns the element's edge sets and true while it is active.
// Absorbed elements return nil and false: their edges were transferred to
// the absorbing element and callers must resolve to [Element.DuplicateOf].
func (e *Element[K, T]) Edges() (*Edges[K], bool) {
	return e.edges, e.edges != nil
}

// Parents returns the sorted parent IDs, or nil for an absorbed element.
func (e *Element[K, T]) Parents() []K { return e.list(EdgeParent) }

// Children returns the sorted child IDs, or nil for an absorbed element.
func (e *Element[K, T]) Children() []K { return e.list(EdgeChild) }

// Duplicates returns the sorted IDs absorbed into this element, or nil for
// an absorbed element.
func (e *Element[K, T]) Duplicates() []K { return e.list(EdgeDuplicate) }

func (e *Element[K, T]) list(kind EdgeKind) []K {
	if e.edges == nil {
		return nil
	}
	return e.edges.List(kind)
}

// HasParents reports whether the active element has at least one parent.
func (e *Element[K, T]) HasParents() bool {
	return e.edges != nil && e.edges.parents.Len() > 0
}

// AddEdge inserts id into the edge set of the given kind. It reports whether
// the set changed; adding an existing edge or editing an absorbed element is
// a no-op.
func (e *Element[K, T]) AddEdge(id K, kind EdgeKind) bool {
	if e.edges == nil {
		return false
	}
	s := e.edges.set(kind)
	if s.Has(id) {
		return false
	}
	s.Insert(id)
	return true
}

// RemoveEdge deletes id from the edge set of the given kind and reports
// whether it was present.
func (e *Element[K, T]) RemoveEdge(id K, kind EdgeKind) bool {
	if e.edges == nil {
		return false
	}
	s := e.edges.set(kind)
	if !s.Has(id) {
		return false
	}
	s.Delete(id)
	return true
}

// ReplaceEdge swaps oldID for newID in the edge set of the given kind.
// newID is added even if oldID was absent, so the call is idempotent. It
// reports whether oldID was present.
func (e *Element[K, T]) ReplaceEdge(oldID, newID K, kind EdgeKind) bool {
	if e.edges == nil {
		return false
	}
	removed := e.RemoveEdge(oldID, kind)
	e.AddEdge(newID, kind)
	return removed
}

// absorbInto turns the element into a duplicate of eater. Its edge sets are
// dropped; the caller has already transferred them.
func (e *Element[K, T]) absorbInto(eater K) {
	e.edges = nil
	e.dupOf = eater
	e.pending = false
}

// retarget points an absorbed element at a new representative.
func (e *Element[K, T]) retarget(eater K) bool {
	if e.edges != nil {
		return false
	}
	e.dupOf = eater
	return true
}

// release turns an absorbed element back into an active, pending one with
// empty edge sets.
func (e *Element[K, T]) release() bool {
	if e.edges != nil {
		return false
	}
	var zero K
	e.edges = newEdges[K]()
	e.dupOf = zero
	e.pending = true
	return true
}

// reset drops parent and child edges and marks the element pending again.
// Duplicate edges are kept: absorption is independent of placement.
func (e *Element[K, T]) reset() {
	if e.edges == nil {
		return
	}
	e.edges.parents = sets.New[K]()
	e.edges.children = sets.New[K]()
	e.pending = true
}

func (e *Element[K, T]) setPending(p bool) { e.pending = p }

// Record is the flat, serialisable form of an element used by import,
// export and storage adapters.
type Record[K cmp.Ordered, T cmp.Ordered] struct {
	ID          K    `json:"id"`
	Tokens      []T  `json:"tokens"`
	Pending     bool `json:"pending,omitempty"`
	DuplicateOf *K   `json:"duplicate_of,omitempty"`
	Parents     []K  `json:"parents,omitempty"`
	Children    []K  `json:"children,omitempty"`
	Duplicates  []K  `json:"duplicates,omitempty"`
}

// Record returns a snapshot of the element. Edge lists are sorted.
func (e *Element[K, T]) Record() Record[K, T] {
	r := Record[K, T]{
		ID:      e.id,
		Tokens:  slices.Clone(e.tokens),
		Pending: e.pending,
	}
	if of, ok := e.DuplicateOf(); ok {
		r.DuplicateOf = &of
		return r
	}
	r.Parents = e.Parents()
	r.Children = e.Children()
	r.Duplicates = e.Duplicates()
	return r
}

// FromRecord rebuilds an element from its snapshot. A record with
// DuplicateOf set yields an absorbed element and its edge lists are ignored.
// No symmetry or containment checks are made; use [Validate] on the store
// once all records are loaded.
func FromRecord[K cmp.Ordered, T cmp.Ordered](r Record[K, T]) *Element[K, T] {
	e := NewElement(r.ID, r.Tokens)
	e.pending = r.Pending
	if r.DuplicateOf != nil {
		e.absorbInto(*r.DuplicateOf)
		return e
	}
	e.edges.parents.Insert(r.Parents...)
	e.edges.children.Insert(r.Children...)
	e.edges.duplicates.Insert(r.Duplicates...)
	return e
}
