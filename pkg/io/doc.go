// Package io reads ingestion batches and reads and writes built hierarchies
// as JSON.
//
// # Ingestion
//
// An ingestion batch is a [Document]: a list of items with an ID, an
// optional phrase and a token list. Use [ImportDocument] to read one from a
// file (JSON, or CSV when the name ends in .csv), or [ReadDocument] and
// [ReadCSV] to read from any io.Reader:
//
//	doc, err := io.ImportDocument("phrases.json")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	doc.Load(store, false)
//
// Tokens are validated (non-empty, no whitespace) and sorted by
// [Document.Load]. The graph core never sorts or normalises tokens.
//
// # Hierarchy Export
//
// [WriteJSON] and [ExportJSON] write every element of a store, absorbed
// ones included, with its parents, children, duplicates and pending flag.
// [ReadJSON] and [ImportJSON] load such a file into a fresh store and check
// it with graph.Validate, so a hierarchy can be exported, inspected by
// other tools and re-imported without a rebuild.
//
// # Concurrency
//
// All functions in this package are safe to call concurrently with other
// readers of the same store, but not with concurrent modifications to it.
package io
