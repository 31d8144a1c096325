// Package sqlite persists hierarchy elements in a SQLite database.
//
// Elements live in one table and their edges in another, one row per edge
// and edge kind, so a stored hierarchy can be queried with plain SQL:
//
//	SELECT e.id, e.tokens FROM elements e
//	JOIN edges g ON g.element_id = e.id
//	WHERE g.kind = 'parent' AND g.other_id = 42;
//
// Writes run in a transaction and are retried with backoff when the
// database file is locked by another process.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/matzehuels/phrasetower/pkg/graph"
	"github.com/matzehuels/phrasetower/pkg/retry"
)

// Driver is the name reported by [DB.Driver].
const Driver = "sqlite"

// Record is the stored form of one element.
type Record = graph.Record[int64, string]

const schema = `
CREATE TABLE IF NOT EXISTS elements (
	id           INTEGER PRIMARY KEY,
	tokens       TEXT    NOT NULL,
	pending      INTEGER NOT NULL DEFAULT 0,
	duplicate_of INTEGER
);
CREATE TABLE IF NOT EXISTS edges (
	element_id INTEGER NOT NULL REFERENCES elements(id) ON DELETE CASCADE,
	kind       TEXT    NOT NULL,
	other_id   INTEGER NOT NULL,
	PRIMARY KEY (element_id, kind, other_id)
);
CREATE INDEX IF NOT EXISTS edges_other ON edges(other_id, kind);
`

// Config configures a database.
type Config struct {
	// Path is the database file. Ignored when InMemory is true.
	Path string

	// InMemory keeps the database in memory for the lifetime of the DB.
	InMemory bool

	// SyncWrites selects synchronous=FULL instead of NORMAL.
	SyncWrites bool

	// BusyTimeout is how long SQLite itself waits on a locked file before
	// reporting SQLITE_BUSY.
	BusyTimeout time.Duration
}

// DefaultConfig returns the configuration for an on-disk database.
func DefaultConfig() Config {
	return Config{
		SyncWrites:  true,
		BusyTimeout: 5 * time.Second,
	}
}

// InMemoryConfig returns the configuration for a throwaway database.
func InMemoryConfig() Config {
	return Config{
		InMemory:    true,
		BusyTimeout: time.Second,
	}
}

// DB is a SQLite-backed element repository.
type DB struct {
	db   *sql.DB
	path string
}

// Open opens or creates the database described by cfg and applies the
// schema.
func Open(cfg Config) (*DB, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent database")
	}

	dsn, err := dataSource(cfg)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if cfg.InMemory {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &DB{db: db, path: cfg.Path}, nil
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

func dataSource(cfg Config) (string, error) {
	q := url.Values{}
	q.Set("_foreign_keys", "on")
	q.Set("_busy_timeout", fmt.Sprint(cfg.BusyTimeout.Milliseconds()))
	if cfg.SyncWrites {
		q.Set("_synchronous", "FULL")
	} else {
		q.Set("_synchronous", "NORMAL")
	}

	if cfg.InMemory {
		return "file::memory:?" + q.Encode(), nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0750); err != nil {
		return "", fmt.Errorf("create database directory: %w", err)
	}
	q.Set("_journal_mode", "WAL")
	return "file:" + cfg.Path + "?" + q.Encode(), nil
}

// Driver returns "sqlite".
func (d *DB) Driver() string { return Driver }

// Path returns the database file, or "" for an in-memory database.
func (d *DB) Path() string { return d.path }

// Close closes the database.
func (d *DB) Close() error { return d.db.Close() }

// Put inserts or replaces recs. An element's stored edges are replaced by
// the edges in its record.
func (d *DB) Put(ctx context.Context, recs []Record) error {
	return retry.WithBackoff(ctx, func() error {
		return d.withTx(ctx, func(tx *sql.Tx) error {
			upsert, err := tx.PrepareContext(ctx, `
				INSERT INTO elements (id, tokens, pending, duplicate_of) VALUES (?, ?, ?, ?)
				ON CONFLICT(id) DO UPDATE SET
					tokens = excluded.tokens,
					pending = excluded.pending,
					duplicate_of = excluded.duplicate_of`)
			if err != nil {
				return err
			}
			defer upsert.Close()

			clearEdges, err := tx.PrepareContext(ctx, `DELETE FROM edges WHERE element_id = ?`)
			if err != nil {
				return err
			}
			defer clearEdges.Close()

			edge, err := tx.PrepareContext(ctx, `INSERT INTO edges (element_id, kind, other_id) VALUES (?, ?, ?)`)
			if err != nil {
				return err
			}
			defer edge.Close()

			for _, r := range recs {
				toks, err := json.Marshal(r.Tokens)
				if err != nil {
					return fmt.Errorf("element %d: encode tokens: %w", r.ID, err)
				}
				var dup sql.NullInt64
				if r.DuplicateOf != nil {
					dup = sql.NullInt64{Int64: *r.DuplicateOf, Valid: true}
				}
				if _, err := upsert.ExecContext(ctx, r.ID, string(toks), r.Pending, dup); err != nil {
					return fmt.Errorf("element %d: %w", r.ID, err)
				}
				if _, err := clearEdges.ExecContext(ctx, r.ID); err != nil {
					return fmt.Errorf("element %d: %w", r.ID, err)
				}
				for kind, ids := range edgeLists(r) {
					for _, other := range ids {
						if _, err := edge.ExecContext(ctx, r.ID, kind.String(), other); err != nil {
							return fmt.Errorf("element %d: edge %s %d: %w", r.ID, kind, other, err)
						}
					}
				}
			}
			return nil
		})
	})
}

// Get returns the record for id. The boolean is false when id is not
// stored.
func (d *DB) Get(ctx context.Context, id int64) (Record, bool, error) {
	row := d.db.QueryRowContext(ctx,
		`SELECT id, tokens, pending, duplicate_of FROM elements WHERE id = ?`, id)
	r, err := scanElement(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, classify(err)
	}

	rows, err := d.db.QueryContext(ctx,
		`SELECT element_id, kind, other_id FROM edges WHERE element_id = ? ORDER BY kind, other_id`, id)
	if err != nil {
		return Record{}, false, classify(err)
	}
	byID := map[int64]*Record{id: &r}
	if err := scanEdges(rows, byID); err != nil {
		return Record{}, false, err
	}
	return r, true, nil
}

// All returns every stored record in ID order.
func (d *DB) All(ctx context.Context) ([]Record, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT id, tokens, pending, duplicate_of FROM elements ORDER BY id`)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var recs []Record
	for rows.Next() {
		r, err := scanElement(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}

	byID := make(map[int64]*Record, len(recs))
	for i := range recs {
		byID[recs[i].ID] = &recs[i]
	}
	edges, err := d.db.QueryContext(ctx,
		`SELECT element_id, kind, other_id FROM edges ORDER BY element_id, kind, other_id`)
	if err != nil {
		return nil, classify(err)
	}
	if err := scanEdges(edges, byID); err != nil {
		return nil, err
	}
	return recs, nil
}

// Delete removes the given elements and their edges. Unknown IDs are
// ignored.
func (d *DB) Delete(ctx context.Context, ids ...int64) error {
	return retry.WithBackoff(ctx, func() error {
		return d.withTx(ctx, func(tx *sql.Tx) error {
			for _, id := range ids {
				if _, err := tx.ExecContext(ctx, `DELETE FROM edges WHERE element_id = ?`, id); err != nil {
					return err
				}
				if _, err := tx.ExecContext(ctx, `DELETE FROM elements WHERE id = ?`, id); err != nil {
					return err
				}
			}
			return nil
		})
	})
}

// Count returns the number of stored elements.
func (d *DB) Count(ctx context.Context) (int, error) {
	var n int
	if err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM elements`).Scan(&n); err != nil {
		return 0, classify(err)
	}
	return n, nil
}

func (d *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return classify(err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return classify(err)
	}
	return classify(tx.Commit())
}

type scanner interface {
	Scan(dest ...any) error
}

func scanElement(s scanner) (Record, error) {
	var (
		r    Record
		toks string
		dup  sql.NullInt64
	)
	if err := s.Scan(&r.ID, &toks, &r.Pending, &dup); err != nil {
		return Record{}, err
	}
	if err := json.Unmarshal([]byte(toks), &r.Tokens); err != nil {
		return Record{}, fmt.Errorf("element %d: decode tokens: %w", r.ID, err)
	}
	if dup.Valid {
		of := dup.Int64
		r.DuplicateOf = &of
	}
	return r, nil
}

func scanEdges(rows *sql.Rows, byID map[int64]*Record) error {
	defer rows.Close()
	for rows.Next() {
		var (
			id, other int64
			kind      string
		)
		if err := rows.Scan(&id, &kind, &other); err != nil {
			return classify(err)
		}
		r, ok := byID[id]
		if !ok {
			continue
		}
		switch kind {
		case graph.EdgeParent.String():
			r.Parents = append(r.Parents, other)
		case graph.EdgeChild.String():
			r.Children = append(r.Children, other)
		case graph.EdgeDuplicate.String():
			r.Duplicates = append(r.Duplicates, other)
		default:
			return fmt.Errorf("element %d: unknown edge kind %q", id, kind)
		}
	}
	return classify(rows.Err())
}

func edgeLists(r Record) map[graph.EdgeKind][]int64 {
	return map[graph.EdgeKind][]int64{
		graph.EdgeParent:    r.Parents,
		graph.EdgeChild:     r.Children,
		graph.EdgeDuplicate: r.Duplicates,
	}
}

// classify marks lock contention as retryable.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var se sqlite3.Error
	if errors.As(err, &se) && (se.Code == sqlite3.ErrBusy || se.Code == sqlite3.ErrLocked) {
		return retry.Retryable(fmt.Errorf("%w: %v", retry.ErrBusy, err))
	}
	return err
}
