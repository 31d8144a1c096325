package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/matzehuels/phrasetower/pkg/graph"
	"github.com/matzehuels/phrasetower/pkg/pipeline"
)

func duplicateHierarchy(t *testing.T) *pipeline.Hierarchy {
	t.Helper()
	s := graph.NewStore[int64, string]()
	s.Create(1, []string{"shoes"}, false)
	s.Create(2, []string{"running", "shoes"}, false)
	s.Create(3, []string{"running", "shoes"}, false)
	s.Create(4, []string{"red", "running", "shoes"}, false)
	if _, err := graph.NewBuilder(s, graph.Options{}).Upbuild(context.Background()); err != nil {
		t.Fatalf("Upbuild() error: %v", err)
	}
	return &pipeline.Hierarchy{Store: s, Phrases: map[int64]string{1: "shoes"}}
}

func TestPrinter_Stats(t *testing.T) {
	h := duplicateHierarchy(t)
	var buf bytes.Buffer
	newPrinter(&buf).stats(h.Store, true)

	out := buf.String()
	for _, want := range []string{"3 active", "2 edges", "1 duplicate", "cached"} {
		if !strings.Contains(out, want) {
			t.Errorf("stats line %q missing %q", out, want)
		}
	}
	if strings.Contains(out, "pending") {
		t.Errorf("built hierarchy should not report pending elements: %q", out)
	}
}

func TestPrinter_Elements(t *testing.T) {
	h := duplicateHierarchy(t)
	var buf bytes.Buffer
	p := newPrinter(&buf)
	p.elements(h, []int64{1, 4})
	p.elements(h, nil)

	out := buf.String()
	for _, want := range []string{"#1", "shoes", "1 child", "#4", "red running shoes", "none"} {
		if !strings.Contains(out, want) {
			t.Errorf("element list %q missing %q", out, want)
		}
	}
}

func TestFormatIDs(t *testing.T) {
	if got := formatIDs(nil); got != "none" {
		t.Errorf("formatIDs(nil) = %q", got)
	}
	if got := formatIDs([]int64{2, 7}); got != "#2 #7" {
		t.Errorf("formatIDs() = %q, want %q", got, "#2 #7")
	}
}

func TestPlural(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{0, "0 edges"},
		{1, "1 edge"},
		{5, "5 edges"},
	}
	for _, tt := range tests {
		if got := plural(tt.n, "edge", "edges"); got != tt.want {
			t.Errorf("plural(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}
