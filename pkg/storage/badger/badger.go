// Package badger persists hierarchy elements in a BadgerDB key-value store.
//
// Each element is one key, "el/" followed by the big-endian ID with its
// sign bit flipped so that keys iterate in ID order, holding the JSON form
// of its record.
package badger

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgraph-io/badger/v4"

	"github.com/matzehuels/phrasetower/pkg/graph"
	"github.com/matzehuels/phrasetower/pkg/retry"
)

// Driver is the name reported by [DB.Driver].
const Driver = "badger"

// Record is the stored form of one element.
type Record = graph.Record[int64, string]

var prefix = []byte("el/")

// Config configures a database.
type Config struct {
	// Path is the directory for BadgerDB files.
	// Ignored when InMemory is true.
	Path string

	// InMemory enables in-memory mode (no disk persistence).
	InMemory bool

	// SyncWrites enables synchronous writes for durability.
	SyncWrites bool

	// Logger receives BadgerDB's own log output.
	// If nil, BadgerDB's internal logging is disabled.
	Logger *log.Logger

	// GCInterval is how often to run value log garbage collection.
	// Set to 0 to disable.
	GCInterval time.Duration

	// GCDiscardRatio is the minimum ratio of discardable data before GC.
	GCDiscardRatio float64
}

// DefaultConfig returns the configuration for an on-disk database.
func DefaultConfig() Config {
	return Config{
		SyncWrites:     true,
		GCInterval:     5 * time.Minute,
		GCDiscardRatio: 0.5,
	}
}

// InMemoryConfig returns the configuration for a throwaway database.
func InMemoryConfig() Config {
	return Config{
		InMemory: true,
	}
}

// badgerLogger adapts a charmbracelet logger to badger.Logger.
type badgerLogger struct {
	logger *log.Logger
}

func (l *badgerLogger) Errorf(format string, args ...any)   { l.logger.Errorf(format, args...) }
func (l *badgerLogger) Warningf(format string, args ...any) { l.logger.Warnf(format, args...) }
func (l *badgerLogger) Infof(format string, args ...any)    { l.logger.Infof(format, args...) }
func (l *badgerLogger) Debugf(format string, args ...any)   { l.logger.Debugf(format, args...) }

// DB is a BadgerDB-backed element repository.
type DB struct {
	db       *badger.DB
	gcRunner *GCRunner
	path     string
	inMemory bool
}

// Open opens or creates the database described by cfg. A value log GC
// runner is started for on-disk databases when cfg.GCInterval is set.
func Open(cfg Config) (*DB, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent database")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}

	wrapped := &DB{db: db, path: cfg.Path, inMemory: cfg.InMemory}
	if cfg.GCInterval > 0 && !cfg.InMemory {
		runner, err := NewGCRunner(db, cfg.GCInterval, cfg.GCDiscardRatio, cfg.Logger)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("create GC runner: %w", err)
		}
		wrapped.gcRunner = runner
		runner.Start()
	}
	return wrapped, nil
}

// OpenWithPath opens an on-disk database with default settings.
func OpenWithPath(path string) (*DB, error) {
	cfg := DefaultConfig()
	cfg.Path = path
	return Open(cfg)
}

// OpenInMemory opens an in-memory database.
func OpenInMemory() (*DB, error) {
	return Open(InMemoryConfig())
}

// Driver returns "badger".
func (d *DB) Driver() string { return Driver }

// Path returns the database directory, or "" for an in-memory database.
func (d *DB) Path() string { return d.path }

// InMemory reports whether the database lives in memory only.
func (d *DB) InMemory() bool { return d.inMemory }

// Close stops the GC runner and closes the database.
func (d *DB) Close() error {
	if d.gcRunner != nil {
		d.gcRunner.Stop()
	}
	return d.db.Close()
}

// Put inserts or replaces recs. Large batches are split over several
// transactions, so a failing Put may leave a prefix of recs written.
func (d *DB) Put(ctx context.Context, recs []Record) error {
	return retry.WithBackoff(ctx, func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		txn := d.db.NewTransaction(true)
		defer func() { txn.Discard() }()

		for _, r := range recs {
			val, err := json.Marshal(r)
			if err != nil {
				return fmt.Errorf("element %d: encode: %w", r.ID, err)
			}
			err = txn.Set(key(r.ID), val)
			if errors.Is(err, badger.ErrTxnTooBig) {
				if err := txn.Commit(); err != nil {
					return classify(err)
				}
				txn = d.db.NewTransaction(true)
				err = txn.Set(key(r.ID), val)
			}
			if err != nil {
				return fmt.Errorf("element %d: %w", r.ID, err)
			}
		}
		return classify(txn.Commit())
	})
}

// Get returns the record for id. The boolean is false when id is not
// stored.
func (d *DB) Get(ctx context.Context, id int64) (Record, bool, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, false, err
	}
	var (
		r     Record
		found bool
	)
	err := d.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &r)
		})
	})
	if err != nil {
		return Record{}, false, fmt.Errorf("element %d: %w", id, err)
	}
	return r, found, nil
}

// All returns every stored record in ID order.
func (d *DB) All(ctx context.Context) ([]Record, error) {
	var recs []Record
	err := d.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var r Record
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &r)
			}); err != nil {
				return fmt.Errorf("key %x: %w", it.Item().Key(), err)
			}
			recs = append(recs, r)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return recs, nil
}

// Delete removes the given elements. Unknown IDs are ignored.
func (d *DB) Delete(ctx context.Context, ids ...int64) error {
	return retry.WithBackoff(ctx, func() error {
		return classify(d.withTxn(ctx, func(txn *badger.Txn) error {
			for _, id := range ids {
				if err := txn.Delete(key(id)); err != nil {
					return err
				}
			}
			return nil
		}))
	})
}

// Count returns the number of stored elements.
func (d *DB) Count(ctx context.Context) (int, error) {
	n := 0
	err := d.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return ctx.Err()
	})
	return n, err
}

func (d *DB) withTxn(ctx context.Context, fn func(txn *badger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled: %w", err)
	}
	txn := d.db.NewTransaction(true)
	defer txn.Discard()

	if err := fn(txn); err != nil {
		return err
	}
	return txn.Commit()
}

func key(id int64) []byte {
	k := make([]byte, len(prefix)+8)
	copy(k, prefix)
	binary.BigEndian.PutUint64(k[len(prefix):], uint64(id)^(1<<63))
	return k
}

// classify marks transaction conflicts as retryable.
func classify(err error) error {
	if errors.Is(err, badger.ErrConflict) {
		return retry.Retryable(fmt.Errorf("%w: %v", retry.ErrBusy, err))
	}
	return err
}
