package io

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/matzehuels/phrasetower/pkg/errors"
	"github.com/matzehuels/phrasetower/pkg/graph"
)

// ReadJSON decodes a hierarchy written by [WriteJSON] into a new store and
// returns it together with the phrase texts found in the input.
//
// The input must be a JSON object with an "elements" array:
//
//	{
//	  "built": true,
//	  "elements": [
//	    {"id": 1, "tokens": ["shoes"], "children": [2]},
//	    {"id": 2, "tokens": ["running", "shoes"], "parents": [1]},
//	    {"id": 3, "tokens": ["running", "shoes"], "duplicate_of": 2}
//	  ]
//	}
//
// ReadJSON returns an error if:
//   - The JSON is malformed
//   - Two elements share an ID
//   - The loaded hierarchy violates a structural invariant (see
//     [graph.Validate]): unsorted tokens, dangling or one-sided edges,
//     edges that are not strict containment, cycles
//
// ReadJSON does not close r.
func ReadJSON(r io.Reader) (*Store, map[int64]string, error) {
	var data hierarchy
	if err := json.NewDecoder(r).Decode(&data); err != nil {
		return nil, nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode")
	}

	s := graph.NewStore[int64, string]()
	phrases := make(map[int64]string)
	for _, el := range data.Elements {
		if !s.Add(graph.FromRecord(el.Record), false) {
			return nil, nil, errors.New(errors.ErrCodeInvalidDocument, "element %d: duplicate id", el.ID)
		}
		if el.Phrase != "" {
			phrases[el.ID] = el.Phrase
		}
	}
	if err := graph.Validate(s); err != nil {
		return nil, nil, errors.Wrap(errors.ErrCodeInvalidDocument, err, "hierarchy is inconsistent")
	}
	return s, phrases, nil
}

// ImportJSON reads a hierarchy file at path. It returns the same errors as
// [ReadJSON], wrapped with the file path.
func ImportJSON(path string) (*Store, map[int64]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "open %s", path)
		}
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	s, phrases, err := ReadJSON(f)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, phrases, nil
}
