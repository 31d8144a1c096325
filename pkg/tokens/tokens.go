package tokens

import (
	"cmp"
	"slices"
)

// Relation classifies how two token sequences relate under multiset containment.
type Relation int

const (
	// RelationUnrelated means neither sequence contains the other (or both sides
	// are the same element).
	RelationUnrelated Relation = iota
	// RelationContains means the first sequence is a strict sub-multiset of the
	// second: the first is the more general phrase, an ancestor.
	RelationContains
	// RelationContained means the second sequence is a strict sub-multiset of the
	// first: the first is the more specific phrase, a descendant.
	RelationContained
	// RelationEqual means both sequences hold the same tokens with the same
	// multiplicities. Equal elements are duplicates of each other.
	RelationEqual
)

var relationNames = [...]string{
	RelationUnrelated: "unrelated",
	RelationContains:  "contains",
	RelationContained: "contained",
	RelationEqual:     "equal",
}

// String returns a lower-case name for the relation.
func (r Relation) String() string {
	if r < 0 || int(r) >= len(relationNames) {
		return "unknown"
	}
	return relationNames[r]
}

// Invert returns the relation seen from the other side.
// Contains and Contained swap; Equal and Unrelated are symmetric.
func (r Relation) Invert() Relation {
	switch r {
	case RelationContains:
		return RelationContained
	case RelationContained:
		return RelationContains
	default:
		return r
	}
}

// Contains reports whether parent is a strict sub-multiset of child.
//
// Both sequences must be sorted ascending; the result is undefined otherwise.
// A parent that is not strictly shorter than child is never contained, so
// equal sequences report false. Repeated tokens are honoured: two equal
// tokens in parent require two in child.
//
// The test is a single left-to-right merge over both sequences and runs in
// O(len(child)).
func Contains[T cmp.Ordered](parent, child []T) bool {
	if len(parent) >= len(child) {
		return false
	}
	j := 0
	for _, p := range parent {
		for j < len(child) && child[j] < p {
			j++
		}
		if j == len(child) || child[j] != p {
			return false
		}
		j++
	}
	return true
}

// Equal reports whether a and b hold the same tokens in the same order.
func Equal[T cmp.Ordered](a, b []T) bool {
	return slices.Equal(a, b)
}

// Compare classifies the relation between two sorted sequences.
// It does not know about element identity; see CompareIdentified for the
// variant that treats an element as unrelated to itself.
func Compare[T cmp.Ordered](a, b []T) Relation {
	switch {
	case Equal(a, b):
		return RelationEqual
	case Contains(a, b):
		return RelationContains
	case Contains(b, a):
		return RelationContained
	default:
		return RelationUnrelated
	}
}

// CompareIdentified is Compare for identified sequences. Two sequences with
// the same identifier are always unrelated, so an element never relates to
// itself.
func CompareIdentified[K comparable, T cmp.Ordered](aID K, a []T, bID K, b []T) Relation {
	if aID == bID {
		return RelationUnrelated
	}
	return Compare(a, b)
}

// IsSorted reports whether s is sorted ascending, the precondition of
// Contains and Compare.
func IsSorted[T cmp.Ordered](s []T) bool {
	return slices.IsSorted(s)
}

// Sorted returns a sorted copy of s. Ingestion adapters use it to bring
// caller-supplied token lists into canonical order; the graph core never
// sorts on its own.
func Sorted[T cmp.Ordered](s []T) []T {
	out := slices.Clone(s)
	slices.Sort(out)
	return out
}
