package datasource

import (
	"context"
	"maps"
	"sync"
)

// MemorySource serves rows held in memory. Used by tests and demos.
type MemorySource struct {
	mu   sync.RWMutex
	rows map[Entity][]map[string]any
	err  error
}

// NewMemorySource copies the given rows.
func NewMemorySource(rows map[Entity][]map[string]any) *MemorySource {
	m := &MemorySource{rows: make(map[Entity][]map[string]any)}
	for entity, r := range rows {
		m.Set(entity, r)
	}
	return m
}

// Set replaces the rows of one entity.
func (m *MemorySource) Set(entity Entity, rows []map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[entity] = cloneRows(rows)
}

// Fail makes every fetch return err wrapped in ErrDataUnavailable; nil restores service.
func (m *MemorySource) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// FetchRecords implements Source.
func (m *MemorySource) FetchRecords(ctx context.Context, entity Entity) ([]map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.err != nil {
		return nil, unavailable("memory fetch", entity, m.err)
	}
	return cloneRows(m.rows[entity]), nil
}

func cloneRows(rows []map[string]any) []map[string]any {
	out := make([]map[string]any, len(rows))
	for i, r := range rows {
		out[i] = maps.Clone(r)
	}
	return out
}
