// Package pipeline runs the phrasetower build end to end.
//
// This package implements the ingest → build → persist → render pipeline
// used by the CLI. By centralizing this logic, every command loads, builds
// and stores hierarchies the same way.
//
// # Architecture
//
// A build goes through four stages:
//
//  1. Ingest: read a JSON or CSV document of phrases and validate it
//  2. Build: load the stored hierarchy, add the new phrases as pending
//     elements and run an upbuild pass
//  3. Persist: write every element back to the configured repository
//  4. Render: draw the hierarchy as DOT, SVG, PNG, PDF or JSON
//
// Build and render results are cached. A build is only cached when it
// starts from an empty repository, since otherwise its output depends on
// state the cache key cannot see.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, repo, logger)
//	result, err := runner.Build(ctx, pipeline.BuildOptions{Input: "phrases.json"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	artifacts, err := runner.Render(ctx, &result.Hierarchy, pipeline.RenderOptions{
//	    Formats: []string{"svg"},
//	})
package pipeline

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/phrasetower/pkg/cache"
	"github.com/matzehuels/phrasetower/pkg/errors"
	"github.com/matzehuels/phrasetower/pkg/graph"
	phio "github.com/matzehuels/phrasetower/pkg/io"
	"github.com/matzehuels/phrasetower/pkg/render/nodelink"
)

// =============================================================================
// Default Values
// =============================================================================

// DefaultTTL is how long build and render results stay cached.
const DefaultTTL = 24 * time.Hour

// Format constants for output formats.
const (
	FormatDOT  = "dot"
	FormatSVG  = "svg"
	FormatPNG  = "png"
	FormatPDF  = "pdf"
	FormatJSON = "json"
)

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatDOT:  true,
	FormatSVG:  true,
	FormatPNG:  true,
	FormatPDF:  true,
	FormatJSON: true,
}

// ValidDirections is the set of supported diagram directions.
var ValidDirections = map[string]bool{
	nodelink.DirectionTopDown:   true,
	nodelink.DirectionLeftRight: true,
}

// =============================================================================
// Options
// =============================================================================

// BuildOptions configures a build.
type BuildOptions struct {
	// Input is the path of a JSON or CSV ingestion document.
	Input string

	// Document is used instead of Input when set.
	Document *phio.Document

	// Graph tunes the builder.
	Graph graph.Options

	// Replace overwrites stored elements whose ID appears in the document.
	// Without it such items are skipped.
	Replace bool

	// Rebuild clears every edge and rebuilds the whole hierarchy instead
	// of inserting only the new elements.
	Rebuild bool

	// Refresh bypasses the build cache.
	Refresh bool

	// Logger overrides the runner's logger for this build.
	Logger *log.Logger
}

// Validate checks that an input is given.
func (o *BuildOptions) Validate() error {
	if o.Document != nil {
		return nil
	}
	if o.Input == "" {
		return errors.New(errors.ErrCodeInvalidInput, "input document is required")
	}
	return errors.ValidatePath(o.Input)
}

// KeyOpts returns the cache key options for this build.
func (o *BuildOptions) KeyOpts() cache.BuildKeyOpts {
	return cache.BuildKeyOpts{
		ExhaustiveRelink: o.Graph.ExhaustiveRelink,
		IsolatedPolicy:   o.Graph.Isolated.String(),
	}
}

// RenderOptions configures rendering.
type RenderOptions struct {
	Formats    []string
	Direction  string
	Detailed   bool
	Duplicates bool
	MaxNodes   int

	// Include restricts the drawing to these elements when non-empty.
	Include []int64

	// Logger overrides the runner's logger for this render.
	Logger *log.Logger
}

// SetDefaults fills in the format and direction.
func (o *RenderOptions) SetDefaults() {
	if len(o.Formats) == 0 {
		o.Formats = []string{FormatSVG}
	}
	if o.Direction == "" {
		o.Direction = nodelink.DirectionTopDown
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// Validate applies defaults and checks every value.
func (o *RenderOptions) Validate() error {
	o.SetDefaults()
	if err := ValidateFormats(o.Formats); err != nil {
		return err
	}
	if err := ValidateDirection(o.Direction); err != nil {
		return err
	}
	if o.MaxNodes < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "max nodes must not be negative")
	}
	return nil
}

// KeyOpts returns cache key options for one output format.
func (o *RenderOptions) KeyOpts(format string) cache.RenderKeyOpts {
	return cache.RenderKeyOpts{
		Format:     format,
		Direction:  o.Direction,
		MaxNodes:   o.MaxNodes,
		Detailed:   o.Detailed,
		Duplicates: o.Duplicates,
		Include:    o.Include,
	}
}

// NodelinkOptions converts to diagram options for h.
func (o *RenderOptions) NodelinkOptions(h *Hierarchy) nodelink.Options[int64] {
	return nodelink.Options[int64]{
		Direction:  o.Direction,
		Phrases:    h.Phrases,
		Detailed:   o.Detailed,
		Duplicates: o.Duplicates,
		Include:    o.Include,
		MaxNodes:   o.MaxNodes,
	}
}

// =============================================================================
// Results
// =============================================================================

// Hierarchy is a store together with the display text of its phrases.
type Hierarchy struct {
	Store   *phio.Store
	Phrases map[int64]string
}

// Result contains the outputs of a build.
type Result struct {
	Hierarchy

	// Build is the pass summary. It is nil when the result came from the
	// cache.
	Build *graph.BuildResult[int64]

	// BuildKey is the cache key of this build, or "" if it was not
	// cacheable.
	BuildKey string

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks which stages hit the cache.
	CacheInfo CacheInfo
}

// Err returns a *errors.BuildFailedError if any insertion failed.
func (r *Result) Err() error {
	if r.Build == nil || r.Build.OK() {
		return nil
	}
	ids := r.Build.FailedIDs()
	return &errors.BuildFailedError{
		Failed:    len(ids),
		Attempted: r.Build.Attempted,
		First:     fmt.Errorf("element %d: %w", ids[0], r.Build.Failed[ids[0]]),
	}
}

// Stats contains build statistics.
type Stats struct {
	Items      int // Items in the ingestion document
	Loaded     int // Items that became pending elements
	Elements   int
	Active     int
	Duplicates int
	Pending    int
	Edges      int

	IngestTime  time.Duration
	BuildTime   time.Duration
	PersistTime time.Duration
}

// CacheInfo tracks cache hits for each stage.
type CacheInfo struct {
	BuildHit  bool // Whether the hierarchy came from cache
	RenderHit bool // Whether all artifacts came from cache
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return errors.New(errors.ErrCodeInvalidInput, "invalid format: %q (must be one of: dot, svg, png, pdf, json)", format)
	}
	return nil
}

// ValidateFormats checks that all formats are valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// ValidateDirection checks that a diagram direction is valid.
func ValidateDirection(dir string) error {
	if !ValidDirections[dir] {
		return errors.New(errors.ErrCodeInvalidInput, "invalid direction: %q (must be one of: TB, LR)", dir)
	}
	return nil
}
