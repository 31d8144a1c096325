package graph_test

import (
	"context"
	"fmt"

	"github.com/matzehuels/phrasetower/pkg/graph"
)

func ExampleBuilder_Upbuild() {
	s := graph.NewStore[int, string]()
	s.Create(1, []string{"shoes"}, false)
	s.Create(2, []string{"running", "shoes"}, false)
	s.Create(3, []string{"red", "shoes"}, false)
	s.Create(4, []string{"red", "running", "shoes"}, false)

	b := graph.NewBuilder(s, graph.Options{})
	res, _ := b.Upbuild(context.Background())

	fmt.Println("Attempted:", res.Attempted)
	fmt.Println("Roots:", b.Roots(true))
	e, _ := s.Get(4)
	fmt.Println("Parents of 4:", e.Parents())
	// Output:
	// Attempted: 4
	// Roots: [1]
	// Parents of 4: [2 3]
}

func ExampleBuilder_Absorb() {
	s := graph.NewStore[int, string]()
	s.Create(1, []string{"cheap", "flights"}, false)
	s.Create(2, []string{"cheap", "flights"}, false)

	b := graph.NewBuilder(s, graph.Options{})
	_, _ = b.Upbuild(context.Background())

	dup, _ := s.Get(2)
	of, ok := dup.DuplicateOf()
	fmt.Println("2 absorbed:", ok, "into", of)
	rep, _ := s.Get(1)
	fmt.Println("Duplicates of 1:", rep.Duplicates())
	// Output:
	// 2 absorbed: true into 1
	// Duplicates of 1: [2]
}

func ExampleBuilder_Narrow() {
	s := graph.NewStore[int, int]()
	s.Create(1, []int{1}, false)
	s.Create(2, []int{1, 2}, false)
	s.Create(3, []int{1, 3}, false)

	b := graph.NewBuilder(s, graph.Options{})
	_, _ = b.Upbuild(context.Background())

	changed := b.Narrow([]int{1, 2}, graph.NarrowKeep)
	root, _ := s.Get(1)
	fmt.Println("Changed:", changed)
	fmt.Println("Children of 1:", root.Children())
	fmt.Println("Elements:", s.Len())
	// Output:
	// Changed: true
	// Children of 1: [2]
	// Elements: 3
}
