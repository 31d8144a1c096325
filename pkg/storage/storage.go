// Package storage persists built hierarchies and serves elements back to
// the graph builder on demand.
//
// A [Repository] stores flat element records. [Save] and [Load] move a
// whole store in and out of a repository, and [NewHydrator] lets a builder
// fetch elements that an edge refers to but that were never loaded:
//
//	repo, err := storage.Open(cfg.Storage, logger)
//	if err != nil {
//	    return err
//	}
//	defer repo.Close()
//
//	store, err := storage.Load(ctx, repo)
//	b := graph.NewBuilder(store, opts)
//	b.SetHydrator(storage.NewHydrator(repo))
//
// Three drivers are available: an in-process [Memory] repository, SQLite
// (package sqlite) and BadgerDB (package badger). Every bulk operation and
// hydration is reported to observability.Storage().
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/phrasetower/pkg/config"
	"github.com/matzehuels/phrasetower/pkg/errors"
	"github.com/matzehuels/phrasetower/pkg/graph"
	"github.com/matzehuels/phrasetower/pkg/observability"
	"github.com/matzehuels/phrasetower/pkg/storage/badger"
	"github.com/matzehuels/phrasetower/pkg/storage/sqlite"
)

// Type aliases for the concrete hierarchy stored by every driver.
type (
	Store   = graph.Store[int64, string]
	Element = graph.Element[int64, string]
	Record  = graph.Record[int64, string]
)

// Repository stores element records keyed by ID.
type Repository interface {
	// Driver names the backend, e.g. "sqlite".
	Driver() string

	// Put inserts or replaces records.
	Put(ctx context.Context, recs []Record) error

	// Get returns one record. The boolean is false when id is not stored.
	Get(ctx context.Context, id int64) (Record, bool, error)

	// All returns every record in ID order.
	All(ctx context.Context) ([]Record, error)

	// Delete removes records. Unknown IDs are ignored.
	Delete(ctx context.Context, ids ...int64) error

	// Count returns the number of stored records.
	Count(ctx context.Context) (int, error)

	Close() error
}

var (
	_ Repository = (*Memory)(nil)
	_ Repository = (*sqlite.DB)(nil)
	_ Repository = (*badger.DB)(nil)
)

// Open opens the repository selected by cfg. logger receives driver
// diagnostics and may be nil.
func Open(cfg config.StorageConfig, logger *log.Logger) (Repository, error) {
	switch cfg.Driver {
	case "", config.DriverMemory:
		return NewMemory(), nil

	case config.DriverSQLite:
		sc := sqlite.DefaultConfig()
		sc.Path = cfg.Path
		sc.SyncWrites = cfg.SyncWrites
		db, err := sqlite.Open(sc)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeStorage, err, "open %s", cfg.Path)
		}
		return db, nil

	case config.DriverBadger:
		bc := badger.DefaultConfig()
		bc.Path = cfg.Path
		bc.SyncWrites = cfg.SyncWrites
		if logger != nil {
			bc.Logger = logger.WithPrefix("badger")
		}
		db, err := badger.Open(bc)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeStorage, err, "open %s", cfg.Path)
		}
		return db, nil

	default:
		return nil, errors.New(errors.ErrCodeInvalidConfig, "unknown storage driver %q", cfg.Driver)
	}
}

// Save writes every element of s to repo, absorbed ones included.
func Save(ctx context.Context, repo Repository, s *Store) error {
	start := time.Now()
	elems := s.Elements()
	recs := make([]Record, len(elems))
	for i, e := range elems {
		recs[i] = e.Record()
	}

	err := repo.Put(ctx, recs)
	observability.Storage().OnSave(ctx, repo.Driver(), len(recs), time.Since(start), err)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "save %d elements", len(recs))
	}
	return nil
}

// Load reads every record from repo into a new store and checks it with
// graph.Validate. A stored hierarchy that fails validation is reported as
// STORAGE_CORRUPT.
func Load(ctx context.Context, repo Repository) (*Store, error) {
	start := time.Now()
	s, n, err := load(ctx, repo)
	observability.Storage().OnLoad(ctx, repo.Driver(), n, time.Since(start), err)
	return s, err
}

func load(ctx context.Context, repo Repository) (*Store, int, error) {
	recs, err := repo.All(ctx)
	if err != nil {
		return nil, 0, errors.Wrap(errors.ErrCodeStorage, err, "load")
	}
	s := graph.NewStore[int64, string]()
	for _, r := range recs {
		s.Add(graph.FromRecord(r), true)
	}
	if err := graph.Validate(s); err != nil {
		return nil, len(recs), errors.Wrap(errors.ErrCodeStorageCorrupt, err, "stored hierarchy is inconsistent")
	}
	return s, len(recs), nil
}

// Remove deletes ids from repo.
func Remove(ctx context.Context, repo Repository, ids ...int64) error {
	if err := repo.Delete(ctx, ids...); err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "delete %d elements", len(ids))
	}
	return nil
}

// NewHydrator returns a graph.Hydrator that looks missing elements up in
// repo.
func NewHydrator(repo Repository) graph.Hydrator[int64, string] {
	return graph.HydratorFunc[int64, string](func(ctx context.Context, id int64) (*Element, error) {
		r, ok, err := repo.Get(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", repo.Driver(), err)
		}
		observability.Storage().OnHydrate(ctx, repo.Driver(), ok)
		if !ok {
			return nil, nil
		}
		return graph.FromRecord(r), nil
	})
}
