package io

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"strings"
	"testing"

	"github.com/matzehuels/phrasetower/pkg/errors"
	"github.com/matzehuels/phrasetower/pkg/graph"
)

const sampleDocument = `{
  "items": [
    {"id": 1, "phrase": "shoes", "tokens": ["shoes"]},
    {"id": 2, "phrase": "running shoes", "tokens": ["shoes", "running"]},
    {"id": 3, "phrase": "shoes running", "tokens": ["running", "shoes"]},
    {"id": 4, "tokens": ["red", "shoes", "running"]}
  ]
}`

func buildSample(t *testing.T) (*Store, *Document) {
	t.Helper()
	doc, err := ReadDocument(strings.NewReader(sampleDocument))
	if err != nil {
		t.Fatalf("ReadDocument() error: %v", err)
	}
	s := graph.NewStore[int64, string]()
	if n := doc.Load(s, false); n != 4 {
		t.Fatalf("Load() = %d, want 4", n)
	}
	b := graph.NewBuilder(s, graph.Options{})
	if _, err := b.Upbuild(context.Background()); err != nil {
		t.Fatalf("Upbuild() error: %v", err)
	}
	return s, doc
}

func TestReadDocument_SortsOnLoad(t *testing.T) {
	s, doc := buildSample(t)

	e, _ := s.Get(4)
	if !slices.Equal(e.Tokens(), []string{"red", "running", "shoes"}) {
		t.Errorf("Tokens() = %v, want sorted", e.Tokens())
	}
	if of, ok := mustGet(t, s, 3).DuplicateOf(); !ok || of != 2 {
		t.Errorf("DuplicateOf(3) = %d, %v, want 2, true", of, ok)
	}

	phrases := doc.Phrases()
	if len(phrases) != 3 || phrases[2] != "running shoes" {
		t.Errorf("Phrases() = %v", phrases)
	}
}

func TestLoad_SkipsExisting(t *testing.T) {
	doc := &Document{Items: []Item{{ID: 1, Tokens: []string{"a"}}, {ID: 2, Tokens: []string{"b"}}}}
	s := graph.NewStore[int64, string]()
	s.Create(1, []string{"z"}, false)

	if n := doc.Load(s, false); n != 1 {
		t.Errorf("Load() = %d, want 1", n)
	}
	if got := mustGet(t, s, 1).Tokens(); !slices.Equal(got, []string{"z"}) {
		t.Errorf("existing element was replaced: %v", got)
	}
	if n := doc.Load(s, true); n != 2 {
		t.Errorf("Load(replace) = %d, want 2", n)
	}
	if got := mustGet(t, s, 1).Tokens(); !slices.Equal(got, []string{"a"}) {
		t.Errorf("Load(replace) kept old tokens: %v", got)
	}
}

func TestLoad_ReplaceKeepsHierarchyConsistent(t *testing.T) {
	s := graph.NewStore[int64, string]()
	s.Create(1, []string{"shoes"}, false)
	s.Create(2, []string{"running", "shoes"}, false)
	s.Create(3, []string{"running", "shoes"}, false)
	if _, err := graph.NewBuilder(s, graph.Options{}).Upbuild(context.Background()); err != nil {
		t.Fatal(err)
	}

	doc := &Document{Items: []Item{{ID: 2, Tokens: []string{"boots"}}}}
	if n := doc.Load(s, true); n != 1 {
		t.Errorf("Load(replace) = %d, want 1", n)
	}
	if err := graph.Validate(s); err != nil {
		t.Errorf("Validate() after replace = %v", err)
	}
	if got := mustGet(t, s, 1).Children(); !slices.Equal(got, []int64{3}) {
		t.Errorf("Children(1) = %v, want [3]", got)
	}
}

func TestReadDocument_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		code  errors.Code
	}{
		{"malformed", `{"items": [`, errors.ErrCodeInvalidFormat},
		{"duplicate id", `{"items": [{"id": 1, "tokens": ["a"]}, {"id": 1, "tokens": ["b"]}]}`, errors.ErrCodeInvalidDocument},
		{"no tokens", `{"items": [{"id": 1, "tokens": []}]}`, errors.ErrCodeInvalidTokens},
		{"space in token", `{"items": [{"id": 1, "tokens": ["a b"]}]}`, errors.ErrCodeInvalidTokens},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadDocument(strings.NewReader(tt.input))
			if !errors.Is(err, tt.code) {
				t.Errorf("ReadDocument() error = %v, want code %s", err, tt.code)
			}
		})
	}
}

func TestReadCSV(t *testing.T) {
	input := "id,phrase,tokens\n1,shoes,shoes\n2,running shoes,shoes running\n"
	doc, err := ReadCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadCSV() error: %v", err)
	}
	want := []Item{
		{ID: 1, Phrase: "shoes", Tokens: []string{"shoes"}},
		{ID: 2, Phrase: "running shoes", Tokens: []string{"shoes", "running"}},
	}
	if !reflect.DeepEqual(doc.Items, want) {
		t.Errorf("Items = %+v, want %+v", doc.Items, want)
	}
}

func TestReadCSV_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"no id column", "phrase,tokens\nx,y\n"},
		{"no tokens column", "id,phrase\n1,x\n"},
		{"bad id", "id,tokens\nabc,x\n"},
		{"empty tokens", "id,tokens\n1,\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ReadCSV(strings.NewReader(tt.input)); err == nil {
				t.Error("ReadCSV() error = nil, want error")
			}
		})
	}
}

func TestHierarchy_RoundTrip(t *testing.T) {
	s, doc := buildSample(t)

	var buf bytes.Buffer
	if err := WriteJSON(s, doc.Phrases(), &buf); err != nil {
		t.Fatalf("WriteJSON() error: %v", err)
	}

	back, phrases, err := ReadJSON(&buf)
	if err != nil {
		t.Fatalf("ReadJSON() error: %v", err)
	}
	if !reflect.DeepEqual(Snapshot(back, phrases), Snapshot(s, doc.Phrases())) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", Snapshot(back, phrases), Snapshot(s, doc.Phrases()))
	}
	if !back.Built() {
		t.Error("re-imported store should be built")
	}
}

func TestReadJSON_RejectsInconsistentHierarchy(t *testing.T) {
	input := `{"elements": [
		{"id": 1, "tokens": ["a"], "children": [2]},
		{"id": 2, "tokens": ["b"], "parents": [1]}
	]}`
	_, _, err := ReadJSON(strings.NewReader(input))
	if !errors.Is(err, errors.ErrCodeInvalidDocument) {
		t.Fatalf("ReadJSON() error = %v, want %s", err, errors.ErrCodeInvalidDocument)
	}
}

func TestExportImportJSON(t *testing.T) {
	s, doc := buildSample(t)
	path := filepath.Join(t.TempDir(), "hierarchy.json")

	if err := ExportJSON(s, doc.Phrases(), path); err != nil {
		t.Fatalf("ExportJSON() error: %v", err)
	}
	back, _, err := ImportJSON(path)
	if err != nil {
		t.Fatalf("ImportJSON() error: %v", err)
	}
	if back.Len() != s.Len() {
		t.Errorf("Len() = %d, want %d", back.Len(), s.Len())
	}

	if _, _, err := ImportJSON(filepath.Join(t.TempDir(), "missing.json")); !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("ImportJSON(missing) error = %v, want %s", err, errors.ErrCodeFileNotFound)
	}
}

func TestImportDocument_CSVByExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "phrases.csv")
	if err := os.WriteFile(path, []byte("id,tokens\n7,b a\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	doc, err := ImportDocument(path)
	if err != nil {
		t.Fatalf("ImportDocument() error: %v", err)
	}
	if len(doc.Items) != 1 || doc.Items[0].ID != 7 {
		t.Errorf("Items = %+v", doc.Items)
	}
}

func TestWriteDocument_SortsByID(t *testing.T) {
	doc := &Document{Items: []Item{{ID: 2, Tokens: []string{"b"}}, {ID: 1, Tokens: []string{"a"}}}}
	var buf bytes.Buffer
	if err := WriteDocument(doc, &buf); err != nil {
		t.Fatalf("WriteDocument() error: %v", err)
	}
	back, err := ReadDocument(&buf)
	if err != nil {
		t.Fatalf("ReadDocument() error: %v", err)
	}
	if back.Items[0].ID != 1 || doc.Items[0].ID != 2 {
		t.Errorf("WriteDocument() should sort its output without touching the input")
	}
}

func mustGet(t *testing.T, s *Store, id int64) *graph.Element[int64, string] {
	t.Helper()
	e, ok := s.Get(id)
	if !ok {
		t.Fatalf("element %d missing", id)
	}
	return e
}

func TestExampleDocuments(t *testing.T) {
	build := func(path string) *Store {
		t.Helper()
		doc, err := ImportDocument(path)
		if err != nil {
			t.Fatalf("ImportDocument(%s) error: %v", path, err)
		}
		s := graph.NewStore[int64, string]()
		doc.Load(s, false)
		if _, err := graph.NewBuilder(s, graph.Options{}).Upbuild(context.Background()); err != nil {
			t.Fatalf("Upbuild() error: %v", err)
		}
		return s
	}

	fromJSON := build("../../examples/shoes.json")
	fromCSV := build("../../examples/shoes.csv")
	if !reflect.DeepEqual(Snapshot(fromJSON, nil), Snapshot(fromCSV, nil)) {
		t.Error("JSON and CSV examples should build the same hierarchy")
	}

	parents := map[int64][]int64{
		3: {1, 10},
		4: {2, 3},
		6: {2},
		8: {7, 10},
		9: {6},
	}
	for id, want := range parents {
		if got := mustGet(t, fromJSON, id).Parents(); !slices.Equal(got, want) {
			t.Errorf("Parents(%d) = %v, want %v", id, got, want)
		}
	}
	if of, ok := mustGet(t, fromJSON, 5).DuplicateOf(); !ok || of != 2 {
		t.Errorf("DuplicateOf(5) = %d, %v, want 2, true", of, ok)
	}
}
