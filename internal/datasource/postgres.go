package datasource

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// DefaultTables maps entities onto the relational schema.
var DefaultTables = map[Entity]string{
	EntityEDP:     "edp_records",
	EntityProject: "projects",
	EntityCost:    "project_costs",
	EntityLog:     "edp_changelog",
}

// Querier is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresSource reads one table per entity.
type PostgresSource struct {
	db     Querier
	tables map[Entity]string
}

// NewPostgresSource uses DefaultTables when tables is empty.
func NewPostgresSource(db Querier, tables map[Entity]string) *PostgresSource {
	if len(tables) == 0 {
		tables = DefaultTables
	}
	return &PostgresSource{db: db, tables: tables}
}

// FetchRecords implements Source.
func (s *PostgresSource) FetchRecords(ctx context.Context, entity Entity) ([]map[string]any, error) {
	table, ok := s.tables[entity]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEntity, entity)
	}
	rows, err := s.db.Query(ctx, "SELECT * FROM "+pgx.Identifier{table}.Sanitize())
	if err != nil {
		return nil, unavailable("postgres query", entity, err)
	}
	out, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, unavailable("postgres scan", entity, err)
	}
	for _, row := range out {
		for k, v := range row {
			row[k] = plainValue(v)
		}
	}
	return out, nil
}

// plainValue unwraps pgtype values the normalizer does not know. Numerics
// become decimals so the currency-string stripping never sees a decimal point.
func plainValue(v any) any {
	switch val := v.(type) {
	case pgtype.Numeric:
		if !val.Valid || val.NaN || val.InfinityModifier != pgtype.Finite || val.Int == nil {
			return nil
		}
		return decimal.NewFromBigInt(val.Int, val.Exp)
	case int16:
		return int64(val)
	case int32:
		return int64(val)
	case float32:
		return float64(val)
	case [16]byte:
		return fmt.Sprintf("%x-%x-%x-%x-%x", val[0:4], val[4:6], val[6:8], val[8:10], val[10:16])
	default:
		return v
	}
}
