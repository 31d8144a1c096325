package graph

import (
	"context"
	"errors"
	"reflect"
	"slices"
	"testing"

	"github.com/charmbracelet/log"
)

func newTestBuilder(opts Options) (*Builder[int, int], *Recorder) {
	rec := &Recorder{}
	b := NewBuilder(NewStore[int, int](), opts)
	b.SetSink(rec.Sink())
	return b, rec
}

func upbuild(t *testing.T, b *Builder[int, int]) *BuildResult[int] {
	t.Helper()
	res, err := b.Upbuild(context.Background())
	if err != nil {
		t.Fatalf("Upbuild() error: %v", err)
	}
	if !res.OK() {
		t.Fatalf("Upbuild() failures: %v", res.Failed)
	}
	return res
}

func mustValidate(t *testing.T, b *Builder[int, int]) {
	t.Helper()
	if err := Validate(b.Store()); err != nil {
		t.Fatalf("Validate() = %v", err)
	}
}

func element(t *testing.T, b *Builder[int, int], id int) *Element[int, int] {
	t.Helper()
	e, ok := b.Store().Get(id)
	if !ok {
		t.Fatalf("element %d missing", id)
	}
	return e
}

func assertIDs(t *testing.T, what string, got, want []int) {
	t.Helper()
	if len(got) == 0 && len(want) == 0 {
		return
	}
	if !slices.Equal(got, want) {
		t.Errorf("%s = %v, want %v", what, got, want)
	}
}

func snapshot(b *Builder[int, int]) []Record[int, int] {
	var out []Record[int, int]
	for _, e := range b.Store().Elements() {
		out = append(out, e.Record())
	}
	return out
}

func TestUpbuild_AscendingBatches(t *testing.T) {
	b, _ := newTestBuilder(Options{})
	s := b.Store()

	s.Create(10, []int{1}, false)
	upbuild(t, b)
	s.Create(20, []int{1, 2}, false)
	s.Create(30, []int{1, 3}, false)
	upbuild(t, b)
	s.Create(40, []int{1, 2, 3}, false)
	upbuild(t, b)

	mustValidate(t, b)
	assertIDs(t, "Roots(true)", b.Roots(true), []int{10})
	assertIDs(t, "children of 10", element(t, b, 10).Children(), []int{20, 30})
	assertIDs(t, "parents of 40", element(t, b, 40).Parents(), []int{20, 30})
	if !s.Built() {
		t.Error("store should be built after the last pass")
	}
}

func TestUpbuild_SinglePass(t *testing.T) {
	b, _ := newTestBuilder(Options{})
	s := b.Store()
	s.Create(40, []int{1, 2, 3}, false)
	s.Create(30, []int{1, 3}, false)
	s.Create(20, []int{1, 2}, false)
	s.Create(10, []int{1}, false)

	res := upbuild(t, b)

	if res.Attempted != 4 || res.Heads != 1 || res.Attached != 3 {
		t.Errorf("result = %+v, want 4 attempted, 1 head, 3 attached", res)
	}
	assertIDs(t, "parents of 40", element(t, b, 40).Parents(), []int{20, 30})
	assertIDs(t, "children of 10", element(t, b, 10).Children(), []int{20, 30})
	mustValidate(t, b)
}

func TestUpbuild_ReparentsUnderNewElement(t *testing.T) {
	b, _ := newTestBuilder(Options{})
	s := b.Store()
	s.Create(10, []int{1}, false)
	s.Create(40, []int{1, 2, 3}, false)
	upbuild(t, b)
	assertIDs(t, "parents of 40", element(t, b, 40).Parents(), []int{10})

	s.Create(20, []int{1, 2}, false)
	upbuild(t, b)

	assertIDs(t, "parents of 40", element(t, b, 40).Parents(), []int{20})
	assertIDs(t, "children of 10", element(t, b, 10).Children(), []int{20})
	mustValidate(t, b)
}

func TestUpbuild_ReverseAttachToHead(t *testing.T) {
	b, _ := newTestBuilder(Options{})
	s := b.Store()
	s.Create(1, []int{4, 5}, false)
	upbuild(t, b)
	s.Create(2, []int{4}, false)
	upbuild(t, b)

	assertIDs(t, "Roots(true)", b.Roots(true), []int{2})
	assertIDs(t, "children of 2", element(t, b, 2).Children(), []int{1})
	mustValidate(t, b)
}

func TestUpbuild_AbsorbsEqualTokens(t *testing.T) {
	b, _ := newTestBuilder(Options{})
	s := b.Store()
	s.Create(1, []int{5, 9}, false)
	upbuild(t, b)
	s.Create(2, []int{5, 9}, false)
	res := upbuild(t, b)

	if res.Absorbed != 1 {
		t.Errorf("Absorbed = %d, want 1", res.Absorbed)
	}
	dup := element(t, b, 2)
	if of, ok := dup.DuplicateOf(); !ok || of != 1 {
		t.Errorf("DuplicateOf() = %d, %v, want 1, true", of, ok)
	}
	assertIDs(t, "duplicates of 1", element(t, b, 1).Duplicates(), []int{2})
	assertIDs(t, "Roots(false)", b.Roots(false), []int{1})
	mustValidate(t, b)
}

func TestUpbuild_AbsorbsWithinOnePass(t *testing.T) {
	b, _ := newTestBuilder(Options{})
	s := b.Store()
	s.Create(1, []int{1}, false)
	s.Create(2, []int{1, 2}, false)
	s.Create(3, []int{1, 2}, false)
	upbuild(t, b)

	if of, ok := element(t, b, 3).DuplicateOf(); !ok || of != 2 {
		t.Errorf("DuplicateOf(3) = %d, %v, want 2, true", of, ok)
	}
	assertIDs(t, "children of 1", element(t, b, 1).Children(), []int{2})
	mustValidate(t, b)
}

func TestUpbuild_Convergence(t *testing.T) {
	b, _ := newTestBuilder(Options{})
	s := b.Store()
	for i, toks := range [][]int{{1}, {2}, {1, 2}, {1, 1, 2}, {2, 3}, {7}} {
		s.Create(i+1, toks, false)
	}
	upbuild(t, b)
	before := snapshot(b)

	res := upbuild(t, b)
	if res.Attempted != 0 {
		t.Errorf("second pass attempted %d elements, want 0", res.Attempted)
	}
	if !reflect.DeepEqual(before, snapshot(b)) {
		t.Error("second pass changed the store")
	}
}

func TestUpbuild_IsolatedPolicy(t *testing.T) {
	tests := []struct {
		policy      IsolatedPolicy
		wantPending bool
	}{
		{IsolatedSettle, false},
		{IsolatedRecheck, true},
	}
	for _, tt := range tests {
		t.Run(tt.policy.String(), func(t *testing.T) {
			b, _ := newTestBuilder(Options{Isolated: tt.policy})
			s := b.Store()
			s.Create(1, []int{1}, false)
			s.Create(2, []int{1, 2}, false)
			s.Create(3, []int{9}, false)

			res := upbuild(t, b)

			assertIDs(t, "Isolated", res.Isolated, []int{3})
			if got := element(t, b, 3).Pending(); got != tt.wantPending {
				t.Errorf("Pending() = %v, want %v", got, tt.wantPending)
			}
			if element(t, b, 1).Pending() || element(t, b, 2).Pending() {
				t.Error("connected elements should be settled")
			}
			if s.Built() == tt.wantPending {
				t.Errorf("Built() = %v", s.Built())
			}
		})
	}
}

func TestUpbuild_RecheckAttachesLater(t *testing.T) {
	b, _ := newTestBuilder(Options{Isolated: IsolatedRecheck})
	s := b.Store()
	s.Create(1, []int{3, 4}, false)
	upbuild(t, b)

	s.Create(2, []int{3}, false)
	upbuild(t, b)

	assertIDs(t, "children of 2", element(t, b, 2).Children(), []int{1})
	if element(t, b, 1).Pending() || element(t, b, 2).Pending() {
		t.Error("both elements should be settled once connected")
	}
	mustValidate(t, b)
}

func TestUpbuild_Cancelled(t *testing.T) {
	b, _ := newTestBuilder(Options{})
	b.Store().Create(1, []int{1}, false)
	b.Store().Create(2, []int{1, 2}, false)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := b.Upbuild(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Upbuild() error = %v, want context.Canceled", err)
	}
	if res.Attempted != 0 {
		t.Errorf("Attempted = %d, want 0", res.Attempted)
	}
	if len(b.UnbuiltByLength()) != 2 {
		t.Error("cancelled pass should leave elements pending")
	}
}

func TestUnbuiltByLength(t *testing.T) {
	b, _ := newTestBuilder(Options{})
	s := b.Store()
	s.Create(3, []int{1, 2}, false)
	s.Create(1, []int{1}, false)
	s.Create(2, []int{2, 3}, false)

	want := map[int][]int{1: {1}, 2: {2, 3}}
	if got := b.UnbuiltByLength(); !reflect.DeepEqual(got, want) {
		t.Errorf("UnbuiltByLength() = %v, want %v", got, want)
	}
}

func TestAbsorb_RetargetsEdges(t *testing.T) {
	b, rec := newTestBuilder(Options{})
	s := b.Store()
	s.Create(1, []int{5, 9}, false)
	s.Create(2, []int{5, 9}, false)
	s.Create(3, []int{5}, false)
	s.Create(4, []int{5, 9, 11}, false)
	s.Create(5, []int{5, 9}, false)
	b.link(element(t, b, 3), element(t, b, 2))
	b.link(element(t, b, 2), element(t, b, 4))
	element(t, b, 5).absorbInto(2)
	element(t, b, 2).AddEdge(5, EdgeDuplicate)

	complete, err := b.Absorb(1, 2)
	if err != nil {
		t.Fatalf("Absorb() error: %v", err)
	}
	if !complete {
		t.Errorf("Absorb() = false, want true (diagnostics: %v)", rec.Entries)
	}

	assertIDs(t, "children of 3", element(t, b, 3).Children(), []int{1})
	assertIDs(t, "parents of 4", element(t, b, 4).Parents(), []int{1})
	assertIDs(t, "parents of 1", element(t, b, 1).Parents(), []int{3})
	assertIDs(t, "children of 1", element(t, b, 1).Children(), []int{4})
	assertIDs(t, "duplicates of 1", element(t, b, 1).Duplicates(), []int{2, 5})
	if of, _ := element(t, b, 5).DuplicateOf(); of != 1 {
		t.Errorf("DuplicateOf(5) = %d, want 1", of)
	}
	if _, ok := element(t, b, 2).Edges(); ok {
		t.Error("absorbed element still exposes edges")
	}
	mustValidate(t, b)
}

func TestAbsorb_Twice(t *testing.T) {
	b, rec := newTestBuilder(Options{})
	s := b.Store()
	s.Create(1, []int{5, 9}, false)
	s.Create(2, []int{5, 9}, false)

	if _, err := b.Absorb(1, 2); err != nil {
		t.Fatalf("Absorb() error: %v", err)
	}
	before := snapshot(b)

	ok, err := b.Absorb(1, 2)
	if err != nil || ok {
		t.Errorf("second Absorb() = %v, %v, want false, nil", ok, err)
	}
	ok, err = b.Absorb(2, 1)
	if err != nil || ok {
		t.Errorf("Absorb() by a duplicate = %v, %v, want false, nil", ok, err)
	}
	if !reflect.DeepEqual(before, snapshot(b)) {
		t.Error("rejected absorption changed the store")
	}
	if rec.Count(log.WarnLevel) != 2 {
		t.Errorf("warnings = %d, want 2", rec.Count(log.WarnLevel))
	}
}

func TestAbsorb_Errors(t *testing.T) {
	b, _ := newTestBuilder(Options{})
	b.Store().Create(1, []int{1}, false)

	if _, err := b.Absorb(1, 1); !errors.Is(err, ErrSelfAbsorb) {
		t.Errorf("Absorb(1, 1) error = %v, want ErrSelfAbsorb", err)
	}
	if _, err := b.Absorb(1, 9); !errors.Is(err, ErrUnknownNode) {
		t.Errorf("Absorb(1, 9) error = %v, want ErrUnknownNode", err)
	}
	if _, err := b.Absorb(9, 1); !errors.Is(err, ErrUnknownNode) {
		t.Errorf("Absorb(9, 1) error = %v, want ErrUnknownNode", err)
	}
}

func TestAbsorb_MissingNeighbour(t *testing.T) {
	b, rec := newTestBuilder(Options{})
	s := b.Store()
	s.Create(1, []int{2}, false)
	s.Create(2, []int{2}, false)
	element(t, b, 2).AddEdge(99, EdgeChild)

	complete, err := b.Absorb(1, 2)
	if err != nil {
		t.Fatalf("Absorb() error: %v", err)
	}
	if complete {
		t.Error("Absorb() = true with a missing neighbour, want false")
	}
	if !element(t, b, 2).IsDuplicate() {
		t.Error("absorption should complete despite the gap")
	}
	if rec.Count(log.WarnLevel) != 1 {
		t.Errorf("warnings = %d, want 1", rec.Count(log.WarnLevel))
	}
}

func TestResolve(t *testing.T) {
	b, _ := newTestBuilder(Options{})
	s := b.Store()
	s.Create(1, []int{1}, false)
	s.Create(2, []int{1}, false)
	b.Absorb(1, 2)

	if id, ok := b.Resolve(2); !ok || id != 1 {
		t.Errorf("Resolve(2) = %d, %v, want 1, true", id, ok)
	}
	if id, ok := b.Resolve(1); !ok || id != 1 {
		t.Errorf("Resolve(1) = %d, %v, want 1, true", id, ok)
	}
	if _, ok := b.Resolve(3); ok {
		t.Error("Resolve(3) on a missing element returned true")
	}
}

func TestHydration(t *testing.T) {
	b, _ := newTestBuilder(Options{})
	s := b.Store()
	root := NewElement(1, []int{1})
	root.AddEdge(2, EdgeChild)
	root.setPending(false)
	s.Add(root, false)
	s.Create(3, []int{1, 2, 3}, false)

	var calls []int
	b.SetHydrator(HydratorFunc[int, int](func(_ context.Context, id int) (*Element[int, int], error) {
		calls = append(calls, id)
		if id != 2 {
			return nil, nil
		}
		return FromRecord(Record[int, int]{ID: 2, Tokens: []int{1, 2}, Parents: []int{1}}), nil
	}))

	upbuild(t, b)

	assertIDs(t, "hydrator calls", calls, []int{2})
	assertIDs(t, "parents of 3", element(t, b, 3).Parents(), []int{2})
	mustValidate(t, b)
}

func TestHydration_FailureKeepsPending(t *testing.T) {
	b, rec := newTestBuilder(Options{})
	s := b.Store()
	root := NewElement(1, []int{1})
	root.AddEdge(2, EdgeChild)
	root.setPending(false)
	s.Add(root, false)
	s.Create(3, []int{1, 2, 3}, false)

	b.SetHydrator(HydratorFunc[int, int](func(_ context.Context, id int) (*Element[int, int], error) {
		return NewElement(id+100, []int{1, 2}), nil
	}))

	res, err := b.Upbuild(context.Background())
	if err != nil {
		t.Fatalf("Upbuild() error: %v", err)
	}
	if res.OK() {
		t.Fatal("Upbuild() should report the failed insertion")
	}
	if !errors.Is(res.Failed[3], ErrHydrationMismatch) {
		t.Errorf("Failed[3] = %v, want ErrHydrationMismatch", res.Failed[3])
	}
	if !element(t, b, 3).Pending() {
		t.Error("failed element should stay pending")
	}
	if rec.Count(log.ErrorLevel) != 1 {
		t.Errorf("errors reported = %d, want 1", rec.Count(log.ErrorLevel))
	}

	// Without a hydrator the dangling child is skipped and the retry
	// attaches the element directly under the root.
	b.SetHydrator(nil)
	upbuild(t, b)
	assertIDs(t, "parents of 3", element(t, b, 3).Parents(), []int{1})
	if rec.Count(log.WarnLevel) == 0 {
		t.Error("missing child should be reported")
	}
}

func TestExhaustiveRelink_OutOfOrder(t *testing.T) {
	for _, exhaustive := range []bool{false, true} {
		b, _ := newTestBuilder(Options{ExhaustiveRelink: exhaustive})
		s := b.Store()
		s.Create(1, []int{5}, false)
		s.Create(2, []int{2, 5}, false)
		upbuild(t, b)
		s.Create(3, []int{2}, false)
		upbuild(t, b)

		got := element(t, b, 3).Children()
		if exhaustive {
			assertIDs(t, "children of 3 (exhaustive)", got, []int{2})
			assertIDs(t, "parents of 2 (exhaustive)", element(t, b, 2).Parents(), []int{1, 3})
		} else if len(got) != 0 {
			t.Errorf("children of 3 = %v, want none without relink", got)
		}
		mustValidate(t, b)
	}
}

func TestExhaustiveRelink_DropsBypassedEdge(t *testing.T) {
	b, _ := newTestBuilder(Options{ExhaustiveRelink: true})
	s := b.Store()
	s.Create(10, []int{1}, false)
	s.Create(40, []int{1, 2, 3}, false)
	upbuild(t, b)
	s.Create(20, []int{1, 2}, false)
	s.Create(30, []int{1, 3}, false)
	upbuild(t, b)

	assertIDs(t, "parents of 40", element(t, b, 40).Parents(), []int{20, 30})
	assertIDs(t, "children of 10", element(t, b, 10).Children(), []int{20, 30})
	mustValidate(t, b)
}

func TestUpbuild_ReparentsWithinOneBatch(t *testing.T) {
	b, _ := newTestBuilder(Options{})
	s := b.Store()
	s.Create(10, []int{1}, false)
	upbuild(t, b)
	s.Create(40, []int{1, 2, 3}, false)
	upbuild(t, b)
	s.Create(20, []int{1, 2}, false)
	s.Create(30, []int{1, 3}, false)
	upbuild(t, b)

	assertIDs(t, "Roots(true)", b.Roots(true), []int{10})
	assertIDs(t, "children of 10", element(t, b, 10).Children(), []int{20, 30})
	assertIDs(t, "parents of 40", element(t, b, 40).Parents(), []int{20, 30})
	mustValidate(t, b)
}

func TestUpbuild_ReparentsBelowHeadPlacedInSamePass(t *testing.T) {
	b, _ := newTestBuilder(Options{})
	s := b.Store()
	s.Create(9, []int{1, 2, 3}, false)
	upbuild(t, b)
	s.Create(1, []int{1}, false)
	s.Create(2, []int{1, 2}, false)
	upbuild(t, b)

	assertIDs(t, "children of 1", element(t, b, 1).Children(), []int{2})
	assertIDs(t, "parents of 9", element(t, b, 9).Parents(), []int{2})
	mustValidate(t, b)
}

func TestMaintenance(t *testing.T) {
	tests := []struct {
		name  string
		setup [][]int
		run   func(t *testing.T, b *Builder[int, int])
		check func(t *testing.T, b *Builder[int, int])
	}{
		{
			name:  "delete representative",
			setup: [][]int{{5}, {5, 9}, {5, 9}, {5, 9}, {5, 9, 11}},
			run: func(t *testing.T, b *Builder[int, int]) {
				if !b.Delete(2) {
					t.Fatal("Delete(2) = false")
				}
			},
			check: func(t *testing.T, b *Builder[int, int]) {
				heir := element(t, b, 3)
				if heir.IsDuplicate() || heir.Pending() {
					t.Errorf("heir: duplicate=%v pending=%v, want active and placed", heir.IsDuplicate(), heir.Pending())
				}
				assertIDs(t, "parents of 3", heir.Parents(), []int{1})
				assertIDs(t, "children of 3", heir.Children(), []int{5})
				assertIDs(t, "duplicates of 3", heir.Duplicates(), []int{4})
				if of, _ := element(t, b, 4).DuplicateOf(); of != 3 {
					t.Errorf("DuplicateOf(4) = %d, want 3", of)
				}
				if !b.Store().Built() {
					t.Error("handing over should not leave anything pending")
				}
			},
		},
		{
			name:  "delete duplicate",
			setup: [][]int{{5}, {5, 9}, {5, 9}, {5, 9}, {5, 9, 11}},
			run: func(t *testing.T, b *Builder[int, int]) {
				b.Delete(3)
			},
			check: func(t *testing.T, b *Builder[int, int]) {
				assertIDs(t, "duplicates of 2", element(t, b, 2).Duplicates(), []int{4})
				assertIDs(t, "children of 2", element(t, b, 2).Children(), []int{5})
			},
		},
		{
			name:  "narrow duplicate edge",
			setup: [][]int{{5}, {5}},
			run: func(t *testing.T, b *Builder[int, int]) {
				if !b.Narrow([]int{1}, NarrowKeep) {
					t.Fatal("Narrow() = false, want true")
				}
			},
			check: func(t *testing.T, b *Builder[int, int]) {
				assertIDs(t, "duplicates of 1", element(t, b, 1).Duplicates(), nil)
				released := element(t, b, 2)
				if released.IsDuplicate() || !released.Pending() {
					t.Errorf("released element: duplicate=%v pending=%v, want active and pending", released.IsDuplicate(), released.Pending())
				}
				mustValidate(t, b)
				upbuild(t, b)
				if of, ok := released.DuplicateOf(); !ok || of != 1 {
					t.Errorf("after rebuild DuplicateOf(2) = %d, %v, want 1, true", of, ok)
				}
			},
		},
		{
			name:  "replace element with neighbours and duplicates",
			setup: [][]int{{5}, {5, 9}, {5, 9}, {5, 9, 11}},
			run: func(t *testing.T, b *Builder[int, int]) {
				if !b.Replace(2, []int{7}) {
					t.Fatal("Replace(2) = false, want true")
				}
			},
			check: func(t *testing.T, b *Builder[int, int]) {
				replaced := element(t, b, 2)
				if !replaced.Pending() || len(replaced.Children())+len(replaced.Parents()) != 0 {
					t.Errorf("replaced element should be pending without edges: %+v", replaced.Record())
				}
				assertIDs(t, "children of 3", element(t, b, 3).Children(), []int{4})
				mustValidate(t, b)
				upbuild(t, b)
				assertIDs(t, "Roots(false)", b.Roots(false), []int{1, 2})
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, _ := newTestBuilder(Options{})
			for i, toks := range tt.setup {
				b.Store().Create(i+1, toks, false)
			}
			upbuild(t, b)
			tt.run(t, b)
			mustValidate(t, b)
			tt.check(t, b)
		})
	}
}

func TestRebuild(t *testing.T) {
	b, _ := newTestBuilder(Options{})
	s := b.Store()
	s.Create(10, []int{1}, false)
	s.Create(40, []int{1, 2, 3}, false)
	upbuild(t, b)
	s.Create(20, []int{1, 2}, false)
	s.Create(30, []int{1, 3}, false)
	s.Create(31, []int{1, 3}, false)
	upbuild(t, b)
	before := snapshot(b)

	res, err := b.Rebuild(context.Background())
	if err != nil || !res.OK() {
		t.Fatalf("Rebuild() = %+v, %v", res, err)
	}
	if res.Attempted != 4 {
		t.Errorf("Attempted = %d, want 4", res.Attempted)
	}
	if !reflect.DeepEqual(before, snapshot(b)) {
		t.Error("Rebuild changed a hierarchy built in ascending batches")
	}
	assertIDs(t, "parents of 40", element(t, b, 40).Parents(), []int{20, 30})
	assertIDs(t, "duplicates of 30", element(t, b, 30).Duplicates(), []int{31})
	mustValidate(t, b)
}
