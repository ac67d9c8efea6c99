// Package datasource fetches raw EDP, project, cost and change-log rows from
// the systems of record.
package datasource

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Entity names a logical table.
type Entity string

const (
	EntityEDP     Entity = "edp"
	EntityProject Entity = "project"
	EntityCost    Entity = "cost"
	EntityLog     Entity = "log"
)

// Entities lists every entity a source can serve.
func Entities() []Entity {
	return []Entity{EntityEDP, EntityProject, EntityCost, EntityLog}
}

var (
	// ErrDataUnavailable is wrapped by every fetch failure caused by the backend.
	ErrDataUnavailable = errors.New("datasource: data unavailable")
	// ErrUnknownEntity is returned for entities without a configured table.
	ErrUnknownEntity = errors.New("datasource: unknown entity")
)

// Source returns untyped rows keyed by column header.
type Source interface {
	FetchRecords(ctx context.Context, entity Entity) ([]map[string]any, error)
}

func unavailable(op string, entity Entity, err error) error {
	return fmt.Errorf("datasource: %s %s: %w: %w", op, entity, ErrDataUnavailable, err)
}

// rowsFromGrid turns a header row plus data rows into maps. Blank rows are skipped
// and short rows padded with nil.
func rowsFromGrid(grid [][]any) []map[string]any {
	if len(grid) == 0 {
		return []map[string]any{}
	}
	headers := make([]string, len(grid[0]))
	for i, h := range grid[0] {
		headers[i] = strings.TrimSpace(fmt.Sprint(h))
	}
	out := make([]map[string]any, 0, len(grid)-1)
	for _, cells := range grid[1:] {
		if blankRow(cells) {
			continue
		}
		row := make(map[string]any, len(headers))
		for i, h := range headers {
			if h == "" {
				continue
			}
			var v any
			if i < len(cells) {
				v = cells[i]
			}
			row[h] = v
		}
		out = append(out, row)
	}
	return out
}

func blankRow(cells []any) bool {
	for _, c := range cells {
		if c == nil {
			continue
		}
		if s, ok := c.(string); ok && strings.TrimSpace(s) == "" {
			continue
		}
		return false
	}
	return true
}
