package graph

import "errors"

var (
	// ErrUnknownNode is returned when an operation names an ID that is not in
	// the store and cannot be hydrated. Recoverable lookups during a build
	// pass are reported to the sink instead; the error is reserved for
	// direct calls such as [Builder.Absorb] with an ID that never existed.
	ErrUnknownNode = errors.New("unknown node")

	// ErrSelfAbsorb is returned by [Builder.Absorb] when eater and feeder are
	// the same element.
	ErrSelfAbsorb = errors.New("element cannot absorb itself")

	// ErrHydrationMismatch is returned when a [Hydrator] answers a request for
	// one ID with an element carrying another.
	ErrHydrationMismatch = errors.New("hydrated element has a different ID")

	// ErrUnsortedTokens is reported by [Validate] for an element whose tokens
	// are not sorted ascending. The containment test is undefined for it.
	ErrUnsortedTokens = errors.New("tokens are not sorted")

	// ErrDanglingEdge is reported by [Validate] for an edge whose far endpoint
	// is missing from the store.
	ErrDanglingEdge = errors.New("edge points at a missing element")

	// ErrAsymmetricEdge is reported by [Validate] when an edge is not
	// mirrored on its far endpoint.
	ErrAsymmetricEdge = errors.New("edge is not mirrored")

	// ErrInvalidContainment is reported by [Validate] for a parent→child edge
	// whose parent tokens are not a strict sub-multiset of the child's.
	ErrInvalidContainment = errors.New("parent does not strictly contain child")

	// ErrEdgeToDuplicate is reported by [Validate] for a parent or child edge
	// that points at an absorbed element.
	ErrEdgeToDuplicate = errors.New("edge points at an absorbed element")

	// ErrDuplicateTokens is reported by [Validate] when two active elements
	// carry identical token sequences.
	ErrDuplicateTokens = errors.New("active elements share identical tokens")

	// ErrGraphHasCycle is reported by [Validate] when the parent→child edges
	// form a cycle. Strict containment makes this impossible for edges the
	// builder creates, so a cycle means edges were loaded from corrupt data.
	ErrGraphHasCycle = errors.New("graph contains a cycle")
)
