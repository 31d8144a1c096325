package graph

import (
	"cmp"
	"context"
	"maps"
	"slices"
	"time"

	"github.com/charmbracelet/log"
)

// BuildResult summarises one [Builder.Upbuild] pass.
type BuildResult[K cmp.Ordered] struct {
	// Attempted counts the pending elements the pass tried to insert.
	Attempted int
	// Attached counts elements that ended with at least one parent.
	Attached int
	// Heads counts elements that became new roots.
	Heads int
	// Absorbed counts elements merged into an existing element.
	Absorbed int
	// Isolated lists elements left with neither parents nor children.
	Isolated []K
	// Failed maps each element whose insertion returned an error to that
	// error. Failed elements stay pending.
	Failed map[K]error
	// Duration is the wall time of the pass.
	Duration time.Duration
}

// OK reports whether every attempted insertion succeeded.
func (r *BuildResult[K]) OK() bool { return len(r.Failed) == 0 }

// Succeeded returns the number of attempted insertions that did not fail.
func (r *BuildResult[K]) Succeeded() int { return r.Attempted - len(r.Failed) }

// FailedIDs returns the failed element IDs in ascending order.
func (r *BuildResult[K]) FailedIDs() []K { return slices.Sorted(maps.Keys(r.Failed)) }

// Upbuild inserts every pending element into the hierarchy.
//
// Pending elements are processed in ascending token count so shallow
// structure exists before longer phrases look for their place. The head list
// is seeded with the built roots; an element that finds no parent joins it,
// and after each length group heads that gained a parent or were absorbed
// are dropped.
//
// An element whose insertion fails is recorded in the result, reported to the
// sink and left pending for the next pass; the pass itself continues. The
// returned error is non-nil only when ctx is done, in which case elements
// attempted so far are settled and the rest stay pending.
//
// A pass over a store with nothing pending returns at once without touching
// any element.
func (b *Builder[K, T]) Upbuild(ctx context.Context) (*BuildResult[K], error) {
	start := time.Now()
	res := &BuildResult[K]{Failed: make(map[K]error)}

	groups := b.UnbuiltByLength()
	if len(groups) == 0 {
		b.store.built = true
		res.Duration = time.Since(start)
		return res, nil
	}

	heads := b.Roots(true)
	pass := newPlacement[K]()

	for _, length := range slices.Sorted(maps.Keys(groups)) {
		for _, id := range groups[length] {
			if err := ctx.Err(); err != nil {
				b.dropBypassed(pass)
				b.settle(pass, res, start)
				return res, err
			}
			n, ok := b.store.Get(id)
			if !ok || n.IsDuplicate() || !n.pending {
				continue
			}

			pass.attempted[id] = true
			res.Attempted++
			if err := b.insert(ctx, n, heads, pass); err != nil {
				pass.failed[id] = true
				res.Failed[id] = err
				b.report(log.ErrorLevel, "insertion failed", "id", id, "err", err)
				continue
			}

			switch {
			case n.IsDuplicate():
				res.Absorbed++
			case n.HasParents():
				res.Attached++
			default:
				heads = append(heads, id)
				res.Heads++
			}
		}
		b.dropBypassed(pass)
		heads = b.filterHeads(heads)
	}

	b.settle(pass, res, start)
	b.report(log.DebugLevel, "build pass finished",
		"attempted", res.Attempted, "attached", res.Attached, "heads", res.Heads,
		"absorbed", res.Absorbed, "failed", len(res.Failed), "duration", res.Duration)
	return res, nil
}

// filterHeads drops heads that were absorbed, deleted or gained a parent.
func (b *Builder[K, T]) filterHeads(heads []K) []K {
	return slices.DeleteFunc(heads, func(id K) bool {
		e, ok := b.store.Get(id)
		return !ok || e.IsDuplicate() || e.HasParents()
	})
}

// settle clears the pending flag of every attempted element that did not
// fail, applies the isolated policy and updates the store's built flag.
func (b *Builder[K, T]) settle(pass *placement[K], res *BuildResult[K], start time.Time) {
	for _, id := range slices.Sorted(maps.Keys(pass.attempted)) {
		if pass.failed[id] {
			continue
		}
		e, ok := b.store.Get(id)
		if !ok || e.IsDuplicate() {
			continue
		}
		if e.edges.parents.Len() == 0 && e.edges.children.Len() == 0 {
			res.Isolated = append(res.Isolated, id)
			if b.opts.Isolated == IsolatedRecheck {
				continue
			}
		}
		e.setPending(false)
	}

	_, _, _, pending := b.store.Counts()
	b.store.built = pending == 0
	res.Duration = time.Since(start)
}
