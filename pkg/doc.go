// Package pkg provides the core libraries for Phrasetower subsumption
// hierarchies.
//
// # Overview
//
// Phrasetower arranges phrases by token containment. Every phrase is a
// sorted token sequence; a phrase sits below every most specific phrase
// whose tokens it contains, so "red running shoes" ends up under both
// "running shoes" and "red shoes", which in turn sit under "shoes". The
// hierarchy is built incrementally: new phrases are inserted into an
// existing hierarchy without recomputing it.
//
// The pkg directory is organized into four main areas:
//
//  1. [tokens], [graph] - Domain logic (containment, elements, the builder)
//  2. [io], [storage], [cache] - Persistence and interchange
//  3. [pipeline] - Orchestration (ingest → build → persist → render)
//  4. [render/nodelink], [observability] - Output and instrumentation
//
// # Architecture
//
// The typical data flow through Phrasetower:
//
//	Ingestion document (JSON or CSV)
//	         ↓
//	    [io] package (validate + sort tokens)
//	         ↓
//	    [graph] package (upbuild: insert pending elements)
//	         ↓
//	    [storage] package (sqlite, badger or memory)
//	         ↓
//	    [render/nodelink] package (DOT/SVG/PNG/PDF) or JSON export
//
// # Quick Start
//
// Build a hierarchy from a document:
//
//	import (
//	    "context"
//	    "github.com/matzehuels/phrasetower/pkg/graph"
//	    "github.com/matzehuels/phrasetower/pkg/io"
//	)
//
//	// 1. Read the batch
//	doc, _ := io.ImportDocument("phrases.json")
//
//	// 2. Load it as pending elements
//	store := graph.NewStore[int64, string]()
//	doc.Load(store, false)
//
//	// 3. Insert everything
//	res, _ := graph.NewBuilder(store, graph.Options{}).Upbuild(context.Background())
//
//	// 4. Export
//	io.ExportJSON(store, doc.Phrases(), "hierarchy.json")
//
// # Main Packages
//
// [tokens] - Containment relation between sorted token sequences.
//
// [graph] - Elements, the arena store, and the builder that inserts,
// absorbs duplicates, narrows, deletes and validates.
//
// [errors] - Coded errors and input validation helpers.
//
// [config] - TOML configuration.
//
// [io] - Ingestion documents and JSON export of built hierarchies.
//
// [storage] - Repository interface with memory, sqlite and badger drivers.
// Repositories also hydrate missing elements lazily during a build.
//
// [cache] - Build and render caches keyed by content hashes.
//
// [retry] - Backoff for storage writes that hit a busy database.
//
// [pipeline] - The Runner used by the CLI: ingest → build → persist, plus
// load, delete and render.
//
// [observability] - Hook interfaces with no-op defaults and an
// OpenTelemetry implementation.
//
// # Testing
//
// Run tests:
//
//	go test ./pkg/...                    # All tests
//	go test ./pkg/graph/...              # Specific package
//	go test -run Example                 # Examples only
//
// [tokens]: https://pkg.go.dev/github.com/matzehuels/phrasetower/pkg/tokens
// [graph]: https://pkg.go.dev/github.com/matzehuels/phrasetower/pkg/graph
// [errors]: https://pkg.go.dev/github.com/matzehuels/phrasetower/pkg/errors
// [config]: https://pkg.go.dev/github.com/matzehuels/phrasetower/pkg/config
// [io]: https://pkg.go.dev/github.com/matzehuels/phrasetower/pkg/io
// [storage]: https://pkg.go.dev/github.com/matzehuels/phrasetower/pkg/storage
// [cache]: https://pkg.go.dev/github.com/matzehuels/phrasetower/pkg/cache
// [retry]: https://pkg.go.dev/github.com/matzehuels/phrasetower/pkg/retry
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/phrasetower/pkg/pipeline
// [observability]: https://pkg.go.dev/github.com/matzehuels/phrasetower/pkg/observability
// [render/nodelink]: https://pkg.go.dev/github.com/matzehuels/phrasetower/pkg/render/nodelink
package pkg
