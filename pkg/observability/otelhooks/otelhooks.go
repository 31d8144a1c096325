// Package otelhooks implements the observability hook interfaces on top of
// OpenTelemetry metrics.
//
// A single [Hooks] value satisfies observability.BuildHooks,
// observability.StorageHooks and observability.CacheHooks:
//
//	provider, shutdown, err := otelhooks.NewStdoutProvider(os.Stderr, "dev")
//	if err != nil {
//	    return err
//	}
//	defer shutdown(context.Background())
//
//	h, err := otelhooks.New(provider)
//	if err != nil {
//	    return err
//	}
//	observability.SetBuildHooks(h)
//	observability.SetStorageHooks(h)
//	observability.SetCacheHooks(h)
//
// Instruments are created once per [Hooks] value. All metric names carry the
// "phrasetower_" prefix.
package otelhooks

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"

	"github.com/matzehuels/phrasetower/pkg/observability"
)

// ScopeName is the instrumentation scope used for every instrument.
const ScopeName = "github.com/matzehuels/phrasetower"

var (
	_ observability.BuildHooks   = (*Hooks)(nil)
	_ observability.StorageHooks = (*Hooks)(nil)
	_ observability.CacheHooks   = (*Hooks)(nil)
)

// Hooks records hook events as OpenTelemetry metrics.
type Hooks struct {
	ingestItems    metric.Int64Counter
	ingestDuration metric.Float64Histogram

	buildTotal     metric.Int64Counter
	buildPending   metric.Int64Histogram
	buildDuration  metric.Float64Histogram
	buildElements  metric.Int64Counter
	renderDuration metric.Float64Histogram

	storageDuration metric.Float64Histogram
	storageElements metric.Int64Counter
	hydrateTotal    metric.Int64Counter

	cacheRequests metric.Int64Counter
	cacheBytes    metric.Int64Counter
}

// New creates the instruments on a meter obtained from provider.
func New(provider metric.MeterProvider) (*Hooks, error) {
	m := provider.Meter(ScopeName)
	r := &registrar{meter: m}
	h := &Hooks{
		ingestItems:    r.counter("phrasetower_ingest_items_total", "Items read from ingestion batches", ""),
		ingestDuration: r.seconds("phrasetower_ingest_duration_seconds", "Duration of batch ingestion"),

		buildTotal:     r.counter("phrasetower_build_total", "Total number of build passes", ""),
		buildPending:   r.histogram("phrasetower_build_pending", "Pending elements at the start of a build pass"),
		buildDuration:  r.seconds("phrasetower_build_duration_seconds", "Duration of build passes"),
		buildElements:  r.counter("phrasetower_build_elements_total", "Elements classified by build passes", ""),
		renderDuration: r.seconds("phrasetower_render_duration_seconds", "Duration of hierarchy rendering"),

		storageDuration: r.seconds("phrasetower_storage_duration_seconds", "Duration of bulk storage operations"),
		storageElements: r.counter("phrasetower_storage_elements_total", "Elements moved by bulk storage operations", ""),
		hydrateTotal:    r.counter("phrasetower_hydrate_total", "Lazy element lookups against storage", ""),

		cacheRequests: r.counter("phrasetower_cache_requests_total", "Cache lookups by result", ""),
		cacheBytes:    r.counter("phrasetower_cache_set_bytes_total", "Bytes written to the cache", "By"),
	}
	if r.err != nil {
		return nil, fmt.Errorf("create instruments: %w", r.err)
	}
	return h, nil
}

// OnIngest implements observability.BuildHooks.
func (h *Hooks) OnIngest(ctx context.Context, source string, items int, d time.Duration, err error) {
	attrs := metric.WithAttributes(attribute.Bool("success", err == nil))
	h.ingestDuration.Record(ctx, d.Seconds(), attrs)
	if err == nil {
		h.ingestItems.Add(ctx, int64(items))
	}
}

// OnBuildStart implements observability.BuildHooks.
func (h *Hooks) OnBuildStart(ctx context.Context, pending int) {
	h.buildPending.Record(ctx, int64(pending))
}

// OnBuildComplete implements observability.BuildHooks.
func (h *Hooks) OnBuildComplete(ctx context.Context, stats observability.BuildStats, d time.Duration, err error) {
	attrs := metric.WithAttributes(attribute.Bool("success", err == nil))
	h.buildTotal.Add(ctx, 1, attrs)
	h.buildDuration.Record(ctx, d.Seconds(), attrs)

	for _, o := range []struct {
		outcome string
		n       int
	}{
		{"attached", stats.Attached},
		{"head", stats.Heads},
		{"absorbed", stats.Absorbed},
		{"isolated", stats.Isolated},
		{"failed", stats.Failed},
	} {
		if o.n > 0 {
			h.buildElements.Add(ctx, int64(o.n), metric.WithAttributes(attribute.String("outcome", o.outcome)))
		}
	}
}

// OnRenderComplete implements observability.BuildHooks.
func (h *Hooks) OnRenderComplete(ctx context.Context, format string, d time.Duration, err error) {
	h.renderDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("format", format),
		attribute.Bool("success", err == nil),
	))
}

// OnLoad implements observability.StorageHooks.
func (h *Hooks) OnLoad(ctx context.Context, driver string, elements int, d time.Duration, err error) {
	h.storage(ctx, "load", driver, elements, d, err)
}

// OnSave implements observability.StorageHooks.
func (h *Hooks) OnSave(ctx context.Context, driver string, elements int, d time.Duration, err error) {
	h.storage(ctx, "save", driver, elements, d, err)
}

func (h *Hooks) storage(ctx context.Context, op, driver string, elements int, d time.Duration, err error) {
	h.storageDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("op", op),
		attribute.String("driver", driver),
		attribute.Bool("success", err == nil),
	))
	if err == nil {
		h.storageElements.Add(ctx, int64(elements), metric.WithAttributes(
			attribute.String("op", op),
			attribute.String("driver", driver),
		))
	}
}

// OnHydrate implements observability.StorageHooks.
func (h *Hooks) OnHydrate(ctx context.Context, driver string, found bool) {
	h.hydrateTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("driver", driver),
		attribute.Bool("found", found),
	))
}

// OnCacheHit implements observability.CacheHooks.
func (h *Hooks) OnCacheHit(ctx context.Context, keyType string) {
	h.cacheRequests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("key_type", keyType),
		attribute.String("result", "hit"),
	))
}

// OnCacheMiss implements observability.CacheHooks.
func (h *Hooks) OnCacheMiss(ctx context.Context, keyType string) {
	h.cacheRequests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("key_type", keyType),
		attribute.String("result", "miss"),
	))
}

// OnCacheSet implements observability.CacheHooks.
func (h *Hooks) OnCacheSet(ctx context.Context, keyType string, size int) {
	h.cacheBytes.Add(ctx, int64(size), metric.WithAttributes(attribute.String("key_type", keyType)))
}

// NewStdoutProvider returns a meter provider that writes every collected
// metric to w as indented JSON when it is shut down or its periodic reader
// fires. The returned function shuts the provider down and flushes it.
func NewStdoutProvider(w io.Writer, version string) (metric.MeterProvider, func(context.Context) error, error) {
	exporter, err := stdoutmetric.New(
		stdoutmetric.WithWriter(w),
		stdoutmetric.WithPrettyPrint(),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("create stdout exporter: %w", err)
	}

	res := resource.NewWithAttributes(
		"",
		attribute.String("service.name", "phrasetower"),
		attribute.String("service.version", version),
	)
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter)),
	)
	return mp, mp.Shutdown, nil
}

// registrar creates instruments and keeps the first error.
type registrar struct {
	meter metric.Meter
	err   error
}

func (r *registrar) counter(name, desc, unit string) metric.Int64Counter {
	opts := []metric.Int64CounterOption{metric.WithDescription(desc)}
	if unit != "" {
		opts = append(opts, metric.WithUnit(unit))
	}
	c, err := r.meter.Int64Counter(name, opts...)
	r.keep(err)
	return c
}

func (r *registrar) histogram(name, desc string) metric.Int64Histogram {
	hist, err := r.meter.Int64Histogram(name, metric.WithDescription(desc))
	r.keep(err)
	return hist
}

func (r *registrar) seconds(name, desc string) metric.Float64Histogram {
	hist, err := r.meter.Float64Histogram(name,
		metric.WithDescription(desc),
		metric.WithUnit("s"),
	)
	r.keep(err)
	return hist
}

func (r *registrar) keep(err error) {
	if err != nil && r.err == nil {
		r.err = err
	}
}
