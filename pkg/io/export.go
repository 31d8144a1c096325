package io

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/matzehuels/phrasetower/pkg/graph"
)

// Element is the exported form of one hierarchy element: its record plus
// the phrase text, if known.
type Element struct {
	graph.Record[int64, string]
	Phrase string `json:"phrase,omitempty"`
}

type hierarchy struct {
	Built    bool      `json:"built"`
	Elements []Element `json:"elements"`
}

// Snapshot returns the exported form of every stored element in ID order.
// phrases may be nil.
func Snapshot(s *Store, phrases map[int64]string) []Element {
	elems := s.Elements()
	out := make([]Element, len(elems))
	for i, e := range elems {
		out[i] = Element{Record: e.Record(), Phrase: phrases[e.ID()]}
	}
	return out
}

// WriteJSON encodes the hierarchy held by s as JSON and writes it to w.
// Every element is written, absorbed ones included, with its edge lists or
// its duplicate_of marker. phrases supplies optional display text and may be
// nil. The output can be re-imported with [ReadJSON].
func WriteJSON(s *Store, phrases map[int64]string, w io.Writer) error {
	out := hierarchy{Built: s.Built(), Elements: Snapshot(s, phrases)}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// ExportJSON writes the hierarchy to a JSON file at path.
// This is a convenience wrapper around [WriteJSON] for file-based output.
func ExportJSON(s *Store, phrases map[int64]string, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return WriteJSON(s, phrases, f)
}
