package graph

import (
	"fmt"

	"github.com/charmbracelet/log"
)

// Absorb merges feeder into eater. The two are expected to carry identical
// tokens; Absorb does not check this, so it can also be used to merge
// phrases judged equivalent by other means.
//
// Every parent, child and duplicate of feeder is retargeted to eater and the
// mirrored edge is added on eater. Feeder then becomes a duplicate of eater
// and loses its edge sets. Neighbours missing from the store are skipped and
// reported; the merge still completes. The returned bool is true only when
// every neighbour was found.
//
// Absorbing into or from an element that is already a duplicate is rejected
// without changing anything: the call reports the attempt and returns false
// with a nil error. Unknown IDs and eater == feeder are caller errors and
// return [ErrUnknownNode] or [ErrSelfAbsorb].
func (b *Builder[K, T]) Absorb(eater, feeder K) (bool, error) {
	if eater == feeder {
		return false, fmt.Errorf("absorb %v: %w", eater, ErrSelfAbsorb)
	}
	e, ok := b.store.Get(eater)
	if !ok {
		return false, fmt.Errorf("absorb into %v: %w", eater, ErrUnknownNode)
	}
	f, ok := b.store.Get(feeder)
	if !ok {
		return false, fmt.Errorf("absorb %v: %w", feeder, ErrUnknownNode)
	}
	if of, dup := e.DuplicateOf(); dup {
		b.report(log.WarnLevel, "rejected absorption by a duplicate", "eater", eater, "feeder", feeder, "eater_of", of)
		return false, nil
	}
	if of, dup := f.DuplicateOf(); dup {
		b.report(log.WarnLevel, "rejected absorption of a duplicate", "eater", eater, "feeder", feeder, "feeder_of", of)
		return false, nil
	}

	complete := true
	for _, kind := range edgeKinds {
		for _, nid := range f.edges.List(kind) {
			if nid == eater {
				// An edge between the two would become a self-edge.
				e.RemoveEdge(feeder, kind.Mirror())
				continue
			}
			n, ok := b.store.Get(nid)
			if !ok {
				b.report(log.WarnLevel, "neighbour missing during absorption",
					"eater", eater, "feeder", feeder, "neighbour", nid, "kind", kind)
				complete = false
				continue
			}
			if kind == EdgeDuplicate {
				n.retarget(eater)
			} else {
				n.ReplaceEdge(feeder, eater, kind.Mirror())
			}
			e.AddEdge(nid, kind)
		}
	}
	e.AddEdge(feeder, EdgeDuplicate)
	f.absorbInto(eater)

	b.report(log.DebugLevel, "absorbed duplicate", "eater", eater, "feeder", feeder)
	return complete, nil
}

// Resolve follows duplicate markers from id to the active element that
// represents it. It returns the representative's ID, or false when id or
// any element on the way is missing.
func (b *Builder[K, T]) Resolve(id K) (K, bool) {
	seen := make(map[K]bool)
	for {
		e, ok := b.store.Get(id)
		if !ok || seen[id] {
			var zero K
			return zero, false
		}
		of, dup := e.DuplicateOf()
		if !dup {
			return id, true
		}
		seen[id] = true
		id = of
	}
}
