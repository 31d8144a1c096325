// Package cache stores build results so that re-running a build over an
// unchanged ingestion document with unchanged options skips the build pass.
//
// # Overview
//
// A [Cache] is a byte-oriented key/value store with optional expiry. Keys
// come from a [Keyer]: build keys hash the input document and every option
// that changes the resulting hierarchy, render keys hash a build key and
// the render options.
//
// Two implementations are provided: [FileCache] for the CLI (one file per
// entry under an XDG cache directory, grouped by kind) and [NullCache] when
// caching is disabled. [ScopedKeyer] prefixes keys, which the CLI uses to
// keep entries of different releases apart.
package cache

import (
	"context"
	"time"
)

// Cache is a key/value store for serialised build results.
type Cache interface {
	// Get returns the value for key and whether it was found. Expired and
	// unreadable entries count as misses.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of zero means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases resources held by the cache.
	Close() error
}

// BuildKeyOpts lists the build options that change the resulting hierarchy.
type BuildKeyOpts struct {
	ExhaustiveRelink bool   `json:"exhaustive_relink,omitempty"`
	IsolatedPolicy   string `json:"isolated_policy,omitempty"`
}

// RenderKeyOpts lists the options that change a rendered artifact.
type RenderKeyOpts struct {
	Format     string  `json:"format"`
	Direction  string  `json:"direction,omitempty"`
	MaxNodes   int     `json:"max_nodes,omitempty"`
	Detailed   bool    `json:"detailed,omitempty"`
	Duplicates bool    `json:"duplicates,omitempty"`
	Include    []int64 `json:"include,omitempty"`
}

// Keyer derives cache keys.
type Keyer interface {
	// BuildKey returns the key for the hierarchy built from a document with
	// the given content hash.
	BuildKey(docHash string, opts BuildKeyOpts) string

	// RenderKey returns the key for an artifact rendered from a build.
	RenderKey(buildKey string, opts RenderKeyOpts) string
}

// DefaultKeyer hashes its inputs into fixed-length keys.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the default keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// BuildKey returns "build:" followed by a SHA-256 over the document hash
// and options.
func (DefaultKeyer) BuildKey(docHash string, opts BuildKeyOpts) string {
	return hashKey(KindBuild, docHash, opts)
}

// RenderKey returns "render:" followed by a SHA-256 over the build key and
// options.
func (DefaultKeyer) RenderKey(buildKey string, opts RenderKeyOpts) string {
	return hashKey(KindRender, buildKey, opts)
}

// Ensure DefaultKeyer implements Keyer.
var _ Keyer = DefaultKeyer{}
