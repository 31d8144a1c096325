// Package observability provides hooks for metrics and progress reporting.
//
// This package enables optional instrumentation without adding hard dependencies
// on specific observability backends. Consumers can register hooks at startup
// to receive events about build passes, storage access and cache operations.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// This approach:
//   - Avoids import cycles (hooks are registered by main, not by libraries)
//   - Keeps the graph engine free of observability frameworks
//   - Allows different backends; [otelhooks] ships an OpenTelemetry one
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    h, _ := otelhooks.New(meterProvider)
//	    observability.SetBuildHooks(h)
//	    observability.SetStorageHooks(h)
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Build().OnBuildStart(ctx, pending)
//	// ... run the pass ...
//	observability.Build().OnBuildComplete(ctx, stats, duration, err)
//
// [otelhooks]: github.com/matzehuels/phrasetower/pkg/observability/otelhooks
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Build Hooks
// =============================================================================

// BuildStats is the outcome of one build pass.
type BuildStats struct {
	Attempted int
	Attached  int
	Heads     int
	Absorbed  int
	Isolated  int
	Failed    int
}

// BuildHooks receives events from the build pipeline.
type BuildHooks interface {
	// Ingest events
	OnIngest(ctx context.Context, source string, items int, duration time.Duration, err error)

	// Build pass events
	OnBuildStart(ctx context.Context, pending int)
	OnBuildComplete(ctx context.Context, stats BuildStats, duration time.Duration, err error)

	// Render events
	OnRenderComplete(ctx context.Context, format string, duration time.Duration, err error)
}

// =============================================================================
// Storage Hooks
// =============================================================================

// StorageHooks receives events from persistence adapters.
type StorageHooks interface {
	// OnLoad records a bulk load of elements.
	OnLoad(ctx context.Context, driver string, elements int, duration time.Duration, err error)

	// OnSave records a bulk save of elements.
	OnSave(ctx context.Context, driver string, elements int, duration time.Duration, err error)

	// OnHydrate records a single lazy lookup of a missing element.
	OnHydrate(ctx context.Context, driver string, found bool)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopBuildHooks is a no-op implementation of BuildHooks.
type NoopBuildHooks struct{}

func (NoopBuildHooks) OnIngest(context.Context, string, int, time.Duration, error)       {}
func (NoopBuildHooks) OnBuildStart(context.Context, int)                                 {}
func (NoopBuildHooks) OnBuildComplete(context.Context, BuildStats, time.Duration, error) {}
func (NoopBuildHooks) OnRenderComplete(context.Context, string, time.Duration, error)    {}

// NoopStorageHooks is a no-op implementation of StorageHooks.
type NoopStorageHooks struct{}

func (NoopStorageHooks) OnLoad(context.Context, string, int, time.Duration, error) {}
func (NoopStorageHooks) OnSave(context.Context, string, int, time.Duration, error) {}
func (NoopStorageHooks) OnHydrate(context.Context, string, bool)                   {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	buildHooks   BuildHooks   = NoopBuildHooks{}
	storageHooks StorageHooks = NoopStorageHooks{}
	cacheHooks   CacheHooks   = NoopCacheHooks{}
	hooksMu      sync.RWMutex
)

// SetBuildHooks registers custom build hooks.
// This should be called once at application startup before any build runs.
func SetBuildHooks(h BuildHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		buildHooks = h
	}
}

// SetStorageHooks registers custom storage hooks.
// This should be called once at application startup before any store is opened.
func SetStorageHooks(h StorageHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		storageHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
// This should be called once at application startup before any cache operations.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// Build returns the registered build hooks.
func Build() BuildHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return buildHooks
}

// Storage returns the registered storage hooks.
func Storage() StorageHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return storageHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	buildHooks = NoopBuildHooks{}
	storageHooks = NoopStorageHooks{}
	cacheHooks = NoopCacheHooks{}
}
