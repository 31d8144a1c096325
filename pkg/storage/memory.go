package storage

import (
	"context"
	"maps"
	"slices"
	"sync"
)

// Memory is a Repository held in process memory. It is safe for
// concurrent use.
type Memory struct {
	mu      sync.RWMutex
	records map[int64]Record
}

// NewMemory returns an empty in-memory repository.
func NewMemory() *Memory {
	return &Memory{records: make(map[int64]Record)}
}

// Driver returns "memory".
func (m *Memory) Driver() string { return "memory" }

// Put stores copies of recs.
func (m *Memory) Put(ctx context.Context, recs []Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range recs {
		m.records[r.ID] = clone(r)
	}
	return nil
}

// Get returns a copy of the record for id.
func (m *Memory) Get(ctx context.Context, id int64) (Record, bool, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.records[id]
	if !ok {
		return Record{}, false, nil
	}
	return clone(r), true, nil
}

// All returns copies of every record in ID order.
func (m *Memory) All(ctx context.Context) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Record, 0, len(m.records))
	for _, id := range slices.Sorted(maps.Keys(m.records)) {
		out = append(out, clone(m.records[id]))
	}
	return out, nil
}

// Delete removes ids.
func (m *Memory) Delete(ctx context.Context, ids ...int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		delete(m.records, id)
	}
	return nil
}

// Count returns the number of stored records.
func (m *Memory) Count(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records), ctx.Err()
}

// Close is a no-op.
func (m *Memory) Close() error { return nil }

func clone(r Record) Record {
	r.Tokens = slices.Clone(r.Tokens)
	r.Parents = slices.Clone(r.Parents)
	r.Children = slices.Clone(r.Children)
	r.Duplicates = slices.Clone(r.Duplicates)
	if r.DuplicateOf != nil {
		of := *r.DuplicateOf
		r.DuplicateOf = &of
	}
	return r
}

