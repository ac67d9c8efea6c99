// Package snapshots persists computed KPI sets so the service can serve the
// last known dashboard while the data source is down.
package snapshots

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pagora/pagora-edp/internal/platform/db"
)

// ErrNotFound is returned by Latest when a scope has no snapshot yet.
var ErrNotFound = errors.New("snapshots: not found")

// DefaultKeep is how many snapshots are retained per scope.
const DefaultKeep = 48

const schema = `CREATE TABLE IF NOT EXISTS kpi_snapshots (
	id           uuid PRIMARY KEY,
	scope        text        NOT NULL,
	generated_at timestamptz NOT NULL,
	payload      jsonb       NOT NULL,
	created_at   timestamptz NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS kpi_snapshots_scope_generated_idx ON kpi_snapshots (scope, generated_at DESC)`

const insertSnapshot = `INSERT INTO kpi_snapshots (id, scope, generated_at, payload) VALUES ($1, $2, $3, $4)`

const pruneSnapshots = `DELETE FROM kpi_snapshots
WHERE scope = $1 AND id NOT IN (
	SELECT id FROM kpi_snapshots WHERE scope = $1 ORDER BY generated_at DESC LIMIT $2
)`

const latestSnapshot = `SELECT id, scope, generated_at, payload FROM kpi_snapshots
WHERE scope = $1 ORDER BY generated_at DESC LIMIT 1`

// Snapshot is one stored KPI payload.
type Snapshot struct {
	ID          uuid.UUID
	Scope       string
	GeneratedAt time.Time
	Payload     []byte
}

// DB is satisfied by *pgxpool.Pool.
type DB interface {
	db.TxBeginner
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store reads and writes kpi_snapshots.
type Store struct {
	db   DB
	keep int
}

// NewStore keeps DefaultKeep snapshots per scope when keep is not positive.
func NewStore(conn DB, keep int) *Store {
	if keep <= 0 {
		keep = DefaultKeep
	}
	return &Store{db: conn, keep: keep}
}

// Migrate creates the table when missing.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("snapshots: migrate: %w", err)
	}
	return nil
}

// Save inserts a snapshot and prunes older ones of the same scope.
func (s *Store) Save(ctx context.Context, scope string, generatedAt time.Time, payload []byte) (uuid.UUID, error) {
	id := uuid.New()
	err := db.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, insertSnapshot, id, scope, generatedAt.UTC(), payload); err != nil {
			return fmt.Errorf("snapshots: insert: %w", err)
		}
		if _, err := tx.Exec(ctx, pruneSnapshots, scope, s.keep); err != nil {
			return fmt.Errorf("snapshots: prune: %w", err)
		}
		return nil
	})
	if err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

// Latest returns the newest snapshot for scope.
func (s *Store) Latest(ctx context.Context, scope string) (Snapshot, error) {
	var (
		id   pgtype.UUID
		snap Snapshot
	)
	err := s.db.QueryRow(ctx, latestSnapshot, scope).Scan(&id, &snap.Scope, &snap.GeneratedAt, &snap.Payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return Snapshot{}, ErrNotFound
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("snapshots: latest: %w", err)
	}
	snap.ID = uuid.UUID(id.Bytes)
	return snap, nil
}
