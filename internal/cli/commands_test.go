package cli

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/matzehuels/phrasetower/pkg/errors"
	phio "github.com/matzehuels/phrasetower/pkg/io"
)

const sampleDocument = `{
  "items": [
    {"id": 1, "phrase": "shoes", "tokens": ["shoes"]},
    {"id": 2, "phrase": "running shoes", "tokens": ["shoes", "running"]},
    {"id": 3, "phrase": "red shoes", "tokens": ["shoes", "red"]},
    {"id": 4, "phrase": "red running shoes", "tokens": ["running", "red", "shoes"]}
  ]
}`

// buildSample writes the sample document, builds it and returns the path of
// the exported hierarchy.
func buildSample(t *testing.T) string {
	t.Helper()
	isolate(t)
	dir := t.TempDir()
	doc := filepath.Join(dir, "phrases.json")
	if err := os.WriteFile(doc, []byte(sampleDocument), 0o644); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(dir, "hierarchy.json")
	if _, _, err := execute(t, "build", doc, "-o", out); err != nil {
		t.Fatalf("build: %v", err)
	}
	return out
}

func importHierarchy(t *testing.T, path string) *phio.Store {
	t.Helper()
	s, _, err := phio.ImportJSON(path)
	if err != nil {
		t.Fatalf("ImportJSON(%s) error: %v", path, err)
	}
	return s
}

func TestBuildCommand(t *testing.T) {
	s := importHierarchy(t, buildSample(t))
	if s.Len() != 4 {
		t.Fatalf("Len() = %d, want 4", s.Len())
	}
	e, _ := s.Get(4)
	if got := e.Parents(); !slices.Equal(got, []int64{2, 3}) {
		t.Errorf("Parents(4) = %v, want [2 3]", got)
	}
}

func TestBuildCommand_Errors(t *testing.T) {
	isolate(t)
	if _, _, err := execute(t, "build", filepath.Join(t.TempDir(), "missing.json")); !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("build(missing) error = %v, want %s", err, errors.ErrCodeFileNotFound)
	}

	doc := filepath.Join(t.TempDir(), "phrases.json")
	if err := os.WriteFile(doc, []byte(sampleDocument), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := execute(t, "build", doc, "--isolated", "sometimes"); err == nil {
		t.Error("unknown isolated policy should fail")
	}
}

func TestNarrowCommand(t *testing.T) {
	path := buildSample(t)
	narrowed := filepath.Join(t.TempDir(), "narrowed.json")

	if _, _, err := execute(t, "narrow", "--from", path, "--drop", "3", "-o", narrowed); err != nil {
		t.Fatalf("narrow: %v", err)
	}
	s := importHierarchy(t, narrowed)
	e1, _ := s.Get(1)
	if got := e1.Children(); !slices.Equal(got, []int64{2}) {
		t.Errorf("Children(1) = %v, want [2]", got)
	}
	if !s.Has(3) {
		t.Error("narrow must not remove elements")
	}

	if _, _, err := execute(t, "narrow", "--from", path, "--drop", "3", "--keep", "1"); err == nil {
		t.Error("narrow with both --keep and --drop should fail")
	}
}

func TestDeleteCommand(t *testing.T) {
	path := buildSample(t)

	if _, _, err := execute(t, "delete", "--from", path, "2,99"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	s := importHierarchy(t, path)
	if s.Has(2) {
		t.Error("element 2 still present")
	}
	e4, _ := s.Get(4)
	if slices.Contains(e4.Parents(), 2) {
		t.Error("edge to deleted element survived")
	}
}

func TestShowCommand_Unknown(t *testing.T) {
	path := buildSample(t)
	_, _, err := execute(t, "show", "--from", path, "42")
	if !errors.Is(err, errors.ErrCodeElementNotFound) {
		t.Errorf("show(42) error = %v, want %s", err, errors.ErrCodeElementNotFound)
	}
	if _, _, err := execute(t, "show", "--from", path, "x"); err == nil {
		t.Error("show with a non-numeric id should fail")
	}
}

func TestRenderCommand(t *testing.T) {
	path := buildSample(t)
	base := filepath.Join(t.TempDir(), "out", "tower")

	if _, _, err := execute(t, "render", "--from", path, "-f", "dot,json", "-o", base, "--detailed"); err != nil {
		t.Fatalf("render: %v", err)
	}
	dot, err := os.ReadFile(base + ".dot")
	if err != nil {
		t.Fatalf("read dot: %v", err)
	}
	if !strings.HasPrefix(string(dot), "digraph") || !strings.Contains(string(dot), "red running shoes") {
		t.Errorf("unexpected DOT output:\n%s", dot)
	}
	if _, err := os.Stat(base + ".json"); err != nil {
		t.Errorf("json artifact missing: %v", err)
	}

	if _, _, err := execute(t, "render", "--from", path, "-f", "gif"); err == nil {
		t.Error("render with an unknown format should fail")
	}
}

// TestStorageRoundTrip builds into a sqlite repository and renders from it
// in a second invocation.
func TestStorageRoundTrip(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	cfg := filepath.Join(dir, "phrasetower.toml")
	body := "[storage]\ndriver = \"sqlite\"\npath = \"" + filepath.ToSlash(filepath.Join(dir, "phrases.db")) + "\"\n"
	if err := os.WriteFile(cfg, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	doc := filepath.Join(dir, "phrases.json")
	if err := os.WriteFile(doc, []byte(sampleDocument), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, _, err := execute(t, "--config", cfg, "build", doc); err != nil {
		t.Fatalf("build: %v", err)
	}
	if _, _, err := execute(t, "--config", cfg, "delete", "3"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	out := filepath.Join(dir, "stored.dot")
	if _, _, err := execute(t, "--config", cfg, "render", "-f", "dot", "-o", out); err != nil {
		t.Fatalf("render: %v", err)
	}
	dot, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(dot), `"4" [`) || strings.Contains(string(dot), `"3" [`) {
		t.Errorf("stored hierarchy not rendered as expected:\n%s", dot)
	}
}

func TestParseIDs(t *testing.T) {
	got, err := parseIDs([]string{"1,2", " 3 ", ""})
	if err != nil {
		t.Fatalf("parseIDs() error: %v", err)
	}
	if !slices.Equal(got, []int64{1, 2, 3}) {
		t.Errorf("parseIDs() = %v", got)
	}
	if _, err := parseIDs([]string{"1,a"}); err == nil {
		t.Error("parseIDs() should reject non-numeric ids")
	}
}

func TestOutputPaths(t *testing.T) {
	tests := []struct {
		output, input string
		formats       []string
		want          map[string]string
	}{
		{"graph.svg", "", []string{"svg"}, map[string]string{"svg": "graph.svg"}},
		{"", "data/h.json", []string{"svg", "dot"}, map[string]string{"svg": "data/h.svg", "dot": "data/h.dot"}},
		{"out.svg", "", []string{"svg", "png"}, map[string]string{"svg": "out.svg", "png": "out.png"}},
		{"", "", []string{"dot"}, map[string]string{"dot": "phrasetower.dot"}},
	}
	for _, tt := range tests {
		got := outputPaths(tt.output, tt.input, tt.formats)
		if len(got) != len(tt.want) {
			t.Errorf("outputPaths(%q, %q, %v) = %v, want %v", tt.output, tt.input, tt.formats, got, tt.want)
			continue
		}
		for f, p := range tt.want {
			if got[f] != p {
				t.Errorf("outputPaths(%q, %q)[%s] = %q, want %q", tt.output, tt.input, f, got[f], p)
			}
		}
	}
}

func TestRootsAndShowCommands(t *testing.T) {
	path := buildSample(t)

	out, _, err := execute(t, "roots", "--from", path)
	if err != nil {
		t.Fatalf("roots: %v", err)
	}
	if !strings.Contains(out, "1 root") || !strings.Contains(out, "#1") {
		t.Errorf("roots output:\n%s", out)
	}

	out, _, err = execute(t, "show", "--from", path, "--ancestors", "4")
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	for _, want := range []string{"#4", "red running shoes", "#2 #3", "Ancestors", "running shoes"} {
		if !strings.Contains(out, want) {
			t.Errorf("show output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderCommand_Stdout(t *testing.T) {
	path := buildSample(t)
	out, _, err := execute(t, "render", "--from", path, "-f", "dot", "-o", "-")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.HasPrefix(out, "digraph") {
		t.Errorf("render to stdout should print only the DOT source:\n%s", out)
	}
}
