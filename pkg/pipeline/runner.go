package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/phrasetower/pkg/cache"
	"github.com/matzehuels/phrasetower/pkg/errors"
	"github.com/matzehuels/phrasetower/pkg/graph"
	phio "github.com/matzehuels/phrasetower/pkg/io"
	"github.com/matzehuels/phrasetower/pkg/observability"
	"github.com/matzehuels/phrasetower/pkg/render/nodelink"
	"github.com/matzehuels/phrasetower/pkg/storage"
)

// Runner encapsulates pipeline execution with caching and persistence.
//
// The Runner keeps no build state of its own: the hierarchy lives in the
// repository between runs. A Runner must not run two builds against the
// same repository at once.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Repo   storage.Repository
	Logger *log.Logger

	// TTL is how long results stay cached.
	TTL time.Duration
}

// NewRunner creates a runner.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
// If repo is nil, an in-memory repository is used.
func NewRunner(c cache.Cache, keyer cache.Keyer, repo storage.Repository, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if repo == nil {
		repo = storage.NewMemory()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Repo:   repo,
		Logger: logger,
		TTL:    DefaultTTL,
	}
}

// Build runs ingest → build → persist.
//
// Insertion failures do not make Build fail; they are listed in
// Result.Build and reported by Result.Err. Build fails when the document
// cannot be read, storage is unavailable or ctx is cancelled.
func (r *Runner) Build(ctx context.Context, opts BuildOptions) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	logger := r.logger(opts.Logger)
	result := &Result{}

	// Stage 1: Ingest
	ingestStart := time.Now()
	doc, err := r.ingest(opts)
	result.Stats.IngestTime = time.Since(ingestStart)
	observability.Build().OnIngest(ctx, r.source(opts), r.items(doc), result.Stats.IngestTime, err)
	if err != nil {
		return nil, fmt.Errorf("ingest: %w", err)
	}
	result.Stats.Items = len(doc.Items)
	logger.Info("read document", "items", len(doc.Items), "duration", result.Stats.IngestTime)

	// Stage 2: Build
	store, err := storage.Load(ctx, r.Repo)
	if err != nil {
		return nil, fmt.Errorf("load stored hierarchy: %w", err)
	}
	phrases := doc.Phrases()

	cacheable := store.Len() == 0 && !opts.Refresh
	if cacheable {
		var buf bytes.Buffer
		if err := phio.WriteDocument(doc, &buf); err == nil {
			result.BuildKey = r.Keyer.BuildKey(cache.Hash(buf.Bytes()), opts.KeyOpts())
		}
	}
	if h, ok := r.cachedBuild(ctx, result.BuildKey); ok {
		logger.Info("using cached hierarchy", "elements", h.Store.Len())
		result.Hierarchy = *h
		result.CacheInfo.BuildHit = true
	} else {
		buildStart := time.Now()
		loaded, res, err := r.build(ctx, store, doc, opts, logger)
		result.Stats.BuildTime = time.Since(buildStart)
		if err != nil {
			return nil, err
		}
		result.Hierarchy = Hierarchy{Store: store, Phrases: phrases}
		result.Build = res
		result.Stats.Loaded = loaded
		r.storeBuild(ctx, result.BuildKey, &result.Hierarchy)
	}
	fillStats(&result.Stats, result.Store)

	// Stage 3: Persist
	persistStart := time.Now()
	if err := storage.Save(ctx, r.Repo, result.Store); err != nil {
		return nil, fmt.Errorf("persist: %w", err)
	}
	result.Stats.PersistTime = time.Since(persistStart)
	logger.Debug("persisted hierarchy",
		"driver", r.Repo.Driver(),
		"elements", result.Stats.Elements,
		"duration", result.Stats.PersistTime)

	return result, nil
}

func (r *Runner) ingest(opts BuildOptions) (*phio.Document, error) {
	if opts.Document != nil {
		if err := opts.Document.Validate(); err != nil {
			return nil, err
		}
		return opts.Document, nil
	}
	return phio.ImportDocument(opts.Input)
}

func (r *Runner) source(opts BuildOptions) string {
	if opts.Document != nil {
		return "document"
	}
	return opts.Input
}

func (r *Runner) items(doc *phio.Document) int {
	if doc == nil {
		return 0
	}
	return len(doc.Items)
}

// build loads doc into store and runs one pass.
func (r *Runner) build(ctx context.Context, store *phio.Store, doc *phio.Document, opts BuildOptions, logger *log.Logger) (int, *graph.BuildResult[int64], error) {
	loaded := doc.Load(store, opts.Replace)
	if skipped := len(doc.Items) - loaded; skipped > 0 {
		logger.Warn("skipped items already stored", "count", skipped)
	}

	b := graph.NewBuilder(store, opts.Graph)
	b.SetSink(graph.LogSink(logger))
	b.SetHydrator(storage.NewHydrator(r.Repo))

	_, _, _, pending := store.Counts()
	observability.Build().OnBuildStart(ctx, pending)
	start := time.Now()

	var (
		res *graph.BuildResult[int64]
		err error
	)
	if opts.Rebuild {
		res, err = b.Rebuild(ctx)
	} else {
		res, err = b.Upbuild(ctx)
	}
	observability.Build().OnBuildComplete(ctx, buildStats(res), time.Since(start), err)
	if err != nil {
		if ctx.Err() != nil {
			return loaded, nil, errors.Wrap(errors.ErrCodeBuildCancelled, err, "build")
		}
		return loaded, nil, errors.Wrap(errors.ErrCodeBuildFailed, err, "build")
	}

	logger.Info("built hierarchy",
		"attempted", res.Attempted,
		"attached", res.Attached,
		"heads", res.Heads,
		"absorbed", res.Absorbed,
		"isolated", len(res.Isolated),
		"duration", res.Duration)
	if !res.OK() {
		logger.Warn("some elements could not be placed", "failed", len(res.Failed), "ids", res.FailedIDs())
	}
	return loaded, res, nil
}

func (r *Runner) cachedBuild(ctx context.Context, key string) (*Hierarchy, bool) {
	if key == "" {
		return nil, false
	}
	data, hit, err := r.Cache.Get(ctx, key)
	if err != nil || !hit {
		observability.Cache().OnCacheMiss(ctx, "build")
		return nil, false
	}
	s, phrases, err := phio.ReadJSON(bytes.NewReader(data))
	if err != nil {
		r.Logger.Debug("discarding unreadable cache entry", "key", key, "error", err)
		observability.Cache().OnCacheMiss(ctx, "build")
		return nil, false
	}
	observability.Cache().OnCacheHit(ctx, "build")
	return &Hierarchy{Store: s, Phrases: phrases}, true
}

func (r *Runner) storeBuild(ctx context.Context, key string, h *Hierarchy) {
	if key == "" || !h.Store.Built() {
		return
	}
	var buf bytes.Buffer
	if err := phio.WriteJSON(h.Store, h.Phrases, &buf); err != nil {
		return
	}
	if err := r.Cache.Set(ctx, key, buf.Bytes(), r.TTL); err == nil {
		observability.Cache().OnCacheSet(ctx, "build", buf.Len())
	}
}

// Load returns a hierarchy: from the exported JSON file at path when path
// is set, otherwise from the repository.
func (r *Runner) Load(ctx context.Context, path string) (*Hierarchy, error) {
	if path != "" {
		s, phrases, err := phio.ImportJSON(path)
		if err != nil {
			return nil, err
		}
		return &Hierarchy{Store: s, Phrases: phrases}, nil
	}
	s, err := storage.Load(ctx, r.Repo)
	if err != nil {
		return nil, err
	}
	return &Hierarchy{Store: s, Phrases: map[int64]string{}}, nil
}

// Delete removes elements from h and from the repository, and retracts
// every edge that pointed at them. Neighbours whose edges changed are
// written back. It returns the IDs that existed.
func (r *Runner) Delete(ctx context.Context, h *Hierarchy, ids []int64) ([]int64, error) {
	b := graph.NewBuilder(h.Store, graph.Options{})
	b.SetSink(graph.LogSink(r.Logger))

	var deleted []int64
	for _, id := range ids {
		if b.Delete(id) {
			deleted = append(deleted, id)
			delete(h.Phrases, id)
		}
	}
	if len(deleted) == 0 {
		return nil, nil
	}
	if err := storage.Remove(ctx, r.Repo, deleted...); err != nil {
		return nil, err
	}
	if err := storage.Save(ctx, r.Repo, h.Store); err != nil {
		return nil, err
	}
	return deleted, nil
}

// Render draws h in every requested format. Artifacts are cached by the
// content of the hierarchy and the render options. The boolean reports
// whether every artifact came from the cache.
func (r *Runner) Render(ctx context.Context, h *Hierarchy, opts RenderOptions) (map[string][]byte, bool, error) {
	if err := opts.Validate(); err != nil {
		return nil, false, err
	}

	var buf bytes.Buffer
	if err := phio.WriteJSON(h.Store, h.Phrases, &buf); err != nil {
		return nil, false, fmt.Errorf("serialize hierarchy for cache key: %w", err)
	}
	hierarchyKey := cache.Hash(buf.Bytes())

	artifacts := make(map[string][]byte, len(opts.Formats))
	for _, format := range opts.Formats {
		key := r.Keyer.RenderKey(hierarchyKey, opts.KeyOpts(format))
		if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
			observability.Cache().OnCacheHit(ctx, "render")
			artifacts[format] = data
			continue
		}
		observability.Cache().OnCacheMiss(ctx, "render")
		break
	}
	if len(artifacts) == len(opts.Formats) {
		return artifacts, true, nil
	}

	dot := nodelink.ToDOT(h.Store, opts.NodelinkOptions(h))
	for _, format := range opts.Formats {
		start := time.Now()
		var data []byte
		var err error

		switch format {
		case FormatDOT:
			data = []byte(dot)
		case FormatSVG:
			data, err = nodelink.RenderSVG(dot)
		case FormatPNG:
			data, err = nodelink.RenderPNG(dot)
		case FormatPDF:
			data, err = nodelink.RenderPDF(dot)
		case FormatJSON:
			data = bytes.Clone(buf.Bytes())
		default:
			err = fmt.Errorf("unsupported format: %s", format)
		}
		observability.Build().OnRenderComplete(ctx, format, time.Since(start), err)
		if err != nil {
			return nil, false, fmt.Errorf("render %s: %w", format, err)
		}
		artifacts[format] = data

		key := r.Keyer.RenderKey(hierarchyKey, opts.KeyOpts(format))
		if err := r.Cache.Set(ctx, key, data, r.TTL); err == nil {
			observability.Cache().OnCacheSet(ctx, "render", len(data))
		}
	}

	r.logger(opts.Logger).Debug("rendered outputs", "formats", opts.Formats)
	return artifacts, false, nil
}

// Close releases the cache and the repository.
func (r *Runner) Close() error {
	var cacheErr, repoErr error
	if r.Cache != nil {
		cacheErr = r.Cache.Close()
	}
	if r.Repo != nil {
		repoErr = r.Repo.Close()
	}
	if cacheErr != nil {
		return cacheErr
	}
	return repoErr
}

func (r *Runner) logger(override *log.Logger) *log.Logger {
	if override != nil {
		return override
	}
	return r.Logger
}

func buildStats(res *graph.BuildResult[int64]) observability.BuildStats {
	if res == nil {
		return observability.BuildStats{}
	}
	return observability.BuildStats{
		Attempted: res.Attempted,
		Attached:  res.Attached,
		Heads:     res.Heads,
		Absorbed:  res.Absorbed,
		Isolated:  len(res.Isolated),
		Failed:    len(res.Failed),
	}
}

func fillStats(st *Stats, s *phio.Store) {
	st.Elements, st.Active, st.Duplicates, st.Pending = s.Counts()
	st.Edges = s.EdgeCount()
}
