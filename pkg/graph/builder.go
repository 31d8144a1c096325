package graph

import (
	"cmp"
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/phrasetower/pkg/tokens"
)

// IsolatedPolicy decides what a build pass does with an element that ends
// up as a head with neither parents nor children.
type IsolatedPolicy int

const (
	// IsolatedSettle counts an isolated head as processed like any other
	// element. Repeated passes converge.
	IsolatedSettle IsolatedPolicy = iota
	// IsolatedRecheck leaves isolated heads pending so the next pass tries
	// them again against whatever was added in between.
	IsolatedRecheck
)

// String returns the policy name used in configuration files.
func (p IsolatedPolicy) String() string {
	switch p {
	case IsolatedRecheck:
		return "recheck"
	default:
		return "settle"
	}
}

// ParseIsolatedPolicy maps a configuration value to a policy.
// The empty string selects IsolatedSettle.
func ParseIsolatedPolicy(s string) (IsolatedPolicy, error) {
	switch s {
	case "", "settle":
		return IsolatedSettle, nil
	case "recheck":
		return IsolatedRecheck, nil
	default:
		return IsolatedSettle, fmt.Errorf("unknown isolated policy %q", s)
	}
}

// Options tunes a [Builder].
type Options struct {
	// ExhaustiveRelink makes every insertion also scan the placed part of
	// the hierarchy for the minimal supersets of the new element and link
	// them under it. Without it, only heads and the children of the new
	// element's parents are considered, which is enough when batches arrive
	// in ascending token count but can miss links when a shorter phrase
	// arrives after longer ones. Costs one containment test per placed
	// element and insertion.
	ExhaustiveRelink bool

	// Isolated selects the handling of isolated heads; see IsolatedPolicy.
	Isolated IsolatedPolicy
}

// Hydrator loads an element that an edge refers to but the store does not
// hold. Hydrate returns nil and no error when the backing source does not
// know the ID either.
type Hydrator[K cmp.Ordered, T cmp.Ordered] interface {
	Hydrate(ctx context.Context, id K) (*Element[K, T], error)
}

// HydratorFunc adapts a function to the Hydrator interface.
type HydratorFunc[K cmp.Ordered, T cmp.Ordered] func(ctx context.Context, id K) (*Element[K, T], error)

// Hydrate calls f.
func (f HydratorFunc[K, T]) Hydrate(ctx context.Context, id K) (*Element[K, T], error) {
	return f(ctx, id)
}

// Builder positions pending elements in the hierarchy and keeps its edges
// consistent. Every edge change made by the builder is mirrored on both
// endpoints.
//
// A Builder is single-threaded: callers serialise Upbuild, Absorb, Narrow,
// Delete and direct Store mutation with one exclusive lock.
type Builder[K cmp.Ordered, T cmp.Ordered] struct {
	store    *Store[K, T]
	opts     Options
	sink     Sink
	hydrator Hydrator[K, T]
}

// NewBuilder creates a builder over store. Reports go to [Discard] until a
// sink is set.
func NewBuilder[K cmp.Ordered, T cmp.Ordered](store *Store[K, T], opts Options) *Builder[K, T] {
	return &Builder[K, T]{
		store: store,
		opts:  opts,
		sink:  Discard,
	}
}

// Store returns the store the builder works on.
func (b *Builder[K, T]) Store() *Store[K, T] { return b.store }

// Options returns the builder's options.
func (b *Builder[K, T]) Options() Options { return b.opts }

// SetSink routes diagnostics to s. A nil sink discards them.
func (b *Builder[K, T]) SetSink(s Sink) {
	if s == nil {
		s = Discard
	}
	b.sink = s
}

// SetHydrator installs the lazy-loading hook used when an edge refers to an
// element missing from the store. A nil hydrator disables hydration.
func (b *Builder[K, T]) SetHydrator(h Hydrator[K, T]) { b.hydrator = h }

func (b *Builder[K, T]) report(level log.Level, msg string, keyvals ...any) {
	b.sink(level, msg, keyvals...)
}

// lookup returns the element for id, hydrating it if needed. A missing
// element is reported and yields nil with no error; only a failing
// hydrator produces an error.
func (b *Builder[K, T]) lookup(ctx context.Context, id K) (*Element[K, T], error) {
	if e, ok := b.store.Get(id); ok {
		return e, nil
	}
	if b.hydrator != nil {
		e, err := b.hydrator.Hydrate(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("hydrate %v: %w", id, err)
		}
		if e != nil {
			if e.id != id {
				return nil, fmt.Errorf("hydrate %v: %w (got %v)", id, ErrHydrationMismatch, e.id)
			}
			b.store.Add(e, false)
			b.report(log.DebugLevel, "hydrated missing element", "id", id)
			return e, nil
		}
	}
	b.report(log.WarnLevel, "referenced element is missing", "id", id)
	return nil, nil
}

// link adds the edge parent→child on both endpoints and reports whether it
// was new.
func (b *Builder[K, T]) link(parent, child *Element[K, T]) bool {
	added := parent.AddEdge(child.id, EdgeChild)
	return child.AddEdge(parent.id, EdgeParent) || added
}

// unlink retracts the edge parent→child on both endpoints.
func (b *Builder[K, T]) unlink(parent, child *Element[K, T]) {
	parent.RemoveEdge(child.id, EdgeChild)
	child.RemoveEdge(parent.id, EdgeParent)
}

// Compare classifies a against b. An element is unrelated to itself;
// equal tokens on distinct elements mean a duplicate.
func Compare[K cmp.Ordered, T cmp.Ordered](a, b *Element[K, T]) tokens.Relation {
	return tokens.CompareIdentified(a.id, a.tokens, b.id, b.tokens)
}

// placement tracks one build pass: which elements were already attempted
// (and so count as placed even though their pending flag is still set), and
// the parent→child edges re-parenting made redundant in the current length
// group.
type placement[K cmp.Ordered] struct {
	attempted map[K]bool
	failed    map[K]bool
	bypassed  []bypass[K]
}

type bypass[K cmp.Ordered] struct{ parent, child K }

func newPlacement[K cmp.Ordered]() *placement[K] {
	return &placement[K]{attempted: make(map[K]bool), failed: make(map[K]bool)}
}

// placed reports whether e already sits in the hierarchy: it was built in
// an earlier pass, or was inserted earlier in this one without failing.
func (p *placement[K]) placed(id K, pending bool) bool {
	if !pending {
		return true
	}
	return p.attempted[id] && !p.failed[id]
}

// insert positions n below the given heads. On return n is either absorbed,
// attached below one or more elements, the parent of one or more heads, or
// unrelated to everything (the caller then records it as a new head).
func (b *Builder[K, T]) insert(ctx context.Context, n *Element[K, T], heads []K, pass *placement[K]) error {
	visited := make(map[K]bool)
	for _, hid := range heads {
		if n.IsDuplicate() {
			break
		}
		if hid == n.id {
			continue
		}
		head, err := b.lookup(ctx, hid)
		if err != nil {
			return err
		}
		if head == nil {
			continue
		}
		if head.IsDuplicate() {
			b.report(log.WarnLevel, "head was absorbed, skipping", "head", hid, "element", n.id)
			continue
		}

		ok, err := b.insertIntoBranch(ctx, head, n, true, visited, pass)
		if err != nil {
			return err
		}
		if ok {
			continue
		}
		// No forward relation: n may still be more general than the head.
		// n was never compared against the existing graph before, so it
		// cannot own a subtree yet and a single edge is all that is needed.
		if _, err := b.insertIntoBranch(ctx, n, head, false, nil, pass); err != nil {
			return err
		}
	}

	if b.opts.ExhaustiveRelink && !n.IsDuplicate() {
		return b.relink(n, pass)
	}
	return nil
}

// insertIntoBranch tries to place child in the branch rooted at parent and
// reports whether it found a place. With deep set, a containing parent
// first offers child to each of its own children and only links child
// directly when none of them takes it. visited memoises results per branch
// root for the current insertion so diamonds are walked once.
func (b *Builder[K, T]) insertIntoBranch(ctx context.Context, parent, child *Element[K, T], deep bool, visited map[K]bool, pass *placement[K]) (bool, error) {
	if visited != nil {
		if ok, seen := visited[parent.id]; seen {
			return ok, nil
		}
	}

	switch Compare(parent, child) {
	case tokens.RelationEqual:
		if _, err := b.Absorb(parent.id, child.id); err != nil {
			return false, err
		}
		return true, nil

	case tokens.RelationContains:
		if deep {
			found := false
			for _, cid := range parent.Children() {
				if cid == child.id {
					continue
				}
				next, err := b.lookup(ctx, cid)
				if err != nil {
					return false, err
				}
				if next == nil || next.IsDuplicate() {
					continue
				}
				ok, err := b.insertIntoBranch(ctx, next, child, deep, visited, pass)
				if err != nil {
					return false, err
				}
				if child.IsDuplicate() {
					return true, nil
				}
				found = found || ok
			}
			if found {
				if visited != nil {
					visited[parent.id] = true
				}
				return true, nil
			}
		}
		b.link(parent, child)
		if deep && pass.placed(parent.id, parent.pending) {
			if err := b.turnAround(ctx, parent, child, pass); err != nil {
				return false, err
			}
		}
		if visited != nil {
			visited[parent.id] = true
		}
		return true, nil

	default:
		if visited != nil {
			visited[parent.id] = false
		}
		return false, nil
	}
}

// turnAround links n above the children of parent that n now sits between.
// Only direct children are checked: anything deeper was positioned relative
// to those children when it was inserted. The bypassed parent→child edges
// stay until the length group ends so that every element of the group still
// finds those children below parent.
func (b *Builder[K, T]) turnAround(ctx context.Context, parent, n *Element[K, T], pass *placement[K]) error {
	for _, cid := range parent.Children() {
		if cid == n.id {
			continue
		}
		c, err := b.lookup(ctx, cid)
		if err != nil {
			return err
		}
		if c == nil {
			b.report(log.WarnLevel, "child vanished during re-parenting", "parent", parent.id, "child", cid)
			continue
		}
		if Compare(n, c) == tokens.RelationContains {
			pass.bypassed = append(pass.bypassed, bypass[K]{parent.id, cid})
			b.link(n, c)
			b.report(log.DebugLevel, "re-parented child", "child", cid, "from", parent.id, "to", n.id)
		}
	}
	return nil
}

// dropBypassed retracts the edges queued by turnAround.
func (b *Builder[K, T]) dropBypassed(pass *placement[K]) {
	for _, e := range pass.bypassed {
		p, ok := b.store.Get(e.parent)
		if !ok {
			continue
		}
		c, ok := b.store.Get(e.child)
		if !ok {
			continue
		}
		b.unlink(p, c)
	}
	pass.bypassed = pass.bypassed[:0]
}

// relink links n above every placed minimal superset it has, and drops the
// edges into those supersets from elements that n now sits between. An
// element X is a minimal superset when n ⊂ X and no parent of X contains n.
// A placed element with the same tokens that the head walk could not reach
// absorbs n instead.
func (b *Builder[K, T]) relink(n *Element[K, T], pass *placement[K]) error {
	for _, x := range b.store.Elements() {
		if x.id == n.id || x.IsDuplicate() || !pass.placed(x.id, x.pending) {
			continue
		}
		if tokens.Equal(n.tokens, x.tokens) {
			_, err := b.Absorb(x.id, n.id)
			return err
		}
	}

	for _, x := range b.store.Elements() {
		if x.id == n.id || x.IsDuplicate() || !pass.placed(x.id, x.pending) {
			continue
		}
		if !tokens.Contains(n.tokens, x.tokens) {
			continue
		}
		minimal := true
		var bypassed []*Element[K, T]
		for _, pid := range x.Parents() {
			if pid == n.id {
				continue
			}
			p, ok := b.store.Get(pid)
			if !ok || p.IsDuplicate() {
				continue
			}
			if tokens.Contains(n.tokens, p.tokens) {
				minimal = false
				break
			}
			if tokens.Contains(p.tokens, n.tokens) {
				bypassed = append(bypassed, p)
			}
		}
		if !minimal {
			continue
		}
		for _, p := range bypassed {
			b.unlink(p, x)
		}
		if b.link(n, x) {
			b.report(log.DebugLevel, "relinked superset", "element", n.id, "child", x.id)
		}
	}
	return nil
}
