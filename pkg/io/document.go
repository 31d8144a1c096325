package io

import (
	"cmp"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/matzehuels/phrasetower/pkg/errors"
	"github.com/matzehuels/phrasetower/pkg/graph"
	"github.com/matzehuels/phrasetower/pkg/tokens"
)

// Store is the concrete hierarchy type handled by this package: integer IDs
// and string tokens.
type Store = graph.Store[int64, string]

// Item is one ingested phrase.
type Item struct {
	ID     int64    `json:"id"`
	Phrase string   `json:"phrase,omitempty"`
	Tokens []string `json:"tokens"`
}

// Document is an ingestion batch.
type Document struct {
	Items []Item `json:"items"`
}

// Phrases returns the display text of every item that has one, keyed by ID.
func (d *Document) Phrases() map[int64]string {
	out := make(map[int64]string, len(d.Items))
	for _, it := range d.Items {
		if it.Phrase != "" {
			out[it.ID] = it.Phrase
		}
	}
	return out
}

// Validate checks every item and rejects repeated IDs. Token order is not
// checked; [Document.Load] sorts.
func (d *Document) Validate() error {
	seen := make(map[int64]bool, len(d.Items))
	for i, it := range d.Items {
		if seen[it.ID] {
			return errors.New(errors.ErrCodeInvalidDocument, "item %d: duplicate id %d", i, it.ID)
		}
		seen[it.ID] = true
		if err := errors.ValidatePhrase(it.Phrase); err != nil {
			return fmt.Errorf("item %d: %w", it.ID, err)
		}
		if err := errors.ValidateTokens(it.Tokens); err != nil {
			return fmt.Errorf("item %d: %w", it.ID, err)
		}
	}
	return nil
}

// Load creates a pending element per item. Tokens are sorted on the way in;
// the graph core requires sorted sequences and never sorts itself. Items
// whose ID is already stored are skipped unless replace is set, in which
// case the old element is removed with [graph.Builder.Replace] so its
// neighbours and duplicates stay consistent. It returns the number of
// elements created or replaced.
func (d *Document) Load(s *Store, replace bool) int {
	b := graph.NewBuilder(s, graph.Options{})
	n := 0
	for _, it := range d.Items {
		switch {
		case !s.Has(it.ID):
			s.Create(it.ID, tokens.Sorted(it.Tokens), false)
		case replace:
			b.Replace(it.ID, tokens.Sorted(it.Tokens))
		default:
			continue
		}
		n++
	}
	return n
}

// ReadDocument decodes and validates a JSON ingestion document:
//
//	{
//	  "items": [
//	    {"id": 1, "phrase": "running shoes", "tokens": ["running", "shoes"]},
//	    {"id": 2, "phrase": "shoes for running", "tokens": ["shoes", "running"]}
//	  ]
//	}
//
// ReadDocument does not close r.
func ReadDocument(r io.Reader) (*Document, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode document")
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// ReadCSV decodes a tabular ingestion file. The first row is a header that
// must name the columns id and tokens; a phrase column is optional. Tokens
// are separated by whitespace within their cell.
//
//	id,phrase,tokens
//	1,running shoes,running shoes
//	2,red shoes,red shoes
func ReadCSV(r io.Reader) (*Document, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "read header")
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	idCol, ok := col["id"]
	if !ok {
		return nil, errors.New(errors.ErrCodeInvalidFormat, "header has no id column")
	}
	tokCol, ok := col["tokens"]
	if !ok {
		return nil, errors.New(errors.ErrCodeInvalidFormat, "header has no tokens column")
	}
	phraseCol, hasPhrase := col["phrase"]

	var doc Document
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "read row")
		}
		line, _ := cr.FieldPos(idCol)
		id, err := strconv.ParseInt(strings.TrimSpace(rec[idCol]), 10, 64)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidDocument, err, "line %d: invalid id %q", line, rec[idCol])
		}
		it := Item{ID: id, Tokens: strings.Fields(rec[tokCol])}
		if hasPhrase {
			it.Phrase = rec[phraseCol]
		}
		doc.Items = append(doc.Items, it)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// ImportDocument reads an ingestion file at path. Files ending in .csv are
// read with [ReadCSV], everything else with [ReadDocument].
func ImportDocument(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "open %s", path)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return ReadCSV(f)
	}
	return ReadDocument(f)
}

// WriteDocument encodes a document as indented JSON. Items are written in
// ID order.
func WriteDocument(d *Document, w io.Writer) error {
	out := Document{Items: slices.Clone(d.Items)}
	slices.SortFunc(out.Items, func(a, b Item) int { return cmp.Compare(a.ID, b.ID) })
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}
