package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/pagora/pagora-edp/internal/analytics"
	"github.com/pagora/pagora-edp/internal/datasource"
	"github.com/pagora/pagora-edp/internal/observability"
	"github.com/pagora/pagora-edp/internal/platform/cache"
	"github.com/pagora/pagora-edp/internal/platform/db"
	"github.com/pagora/pagora-edp/internal/snapshots"
)

// Runtime bundles the collaborators shared by the API server and the worker.
type Runtime struct {
	Pool      *pgxpool.Pool
	Redis     *redis.Client
	Cache     *analytics.Cache
	Snapshots *snapshots.Store
	Service   *analytics.Service
}

// Bootstrap connects the configured data source, Postgres and Redis, and
// wires the KPI service. Redis is optional: without it every request
// computes. Metrics may be nil.
func Bootstrap(ctx context.Context, cfg *Config, logger *slog.Logger, metrics *observability.Metrics) (*Runtime, error) {
	if cfg == nil {
		return nil, errors.New("app: bootstrap: config required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	rt := &Runtime{}

	if cfg.DataSource == SourcePostgres || cfg.SnapshotsEnabled {
		pool, err := db.New(ctx, cfg.PGDSN, db.PoolOptions{MaxConns: cfg.PGMaxConns})
		if err != nil {
			return nil, fmt.Errorf("app: bootstrap: %w", err)
		}
		rt.Pool = pool
	}

	source, err := NewSource(ctx, cfg, rt.Pool)
	if err != nil {
		rt.Close()
		return nil, err
	}

	client, err := cache.New(ctx, cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	if err != nil {
		logger.Warn("kpi cache disabled", slog.Any("error", err))
	} else {
		rt.Redis = client
		rt.Cache = analytics.NewCache(client, cfg.CacheTTL)
	}

	var pipelineOpts []analytics.PipelineOption
	serviceOpts := []analytics.ServiceOption{analytics.WithLogger(logger)}
	if metrics != nil {
		pipelineOpts = append(pipelineOpts, analytics.WithObserver(metrics))
		serviceOpts = append(serviceOpts, analytics.WithMetrics(metrics))
	}
	pipeline, err := NewPipeline(cfg, pipelineOpts...)
	if err != nil {
		rt.Close()
		return nil, err
	}

	if cfg.SnapshotsEnabled && rt.Pool != nil {
		rt.Snapshots = snapshots.NewStore(rt.Pool, cfg.SnapshotKeep)
		if err := rt.Snapshots.Migrate(ctx); err != nil {
			rt.Close()
			return nil, fmt.Errorf("app: bootstrap: %w", err)
		}
		serviceOpts = append(serviceOpts, analytics.WithSnapshots(rt.Snapshots))
	}

	rt.Service = analytics.NewService(source, pipeline, rt.Cache, serviceOpts...)
	return rt, nil
}

// NewPipeline builds the KPI pipeline with the configured status vocabulary.
func NewPipeline(cfg *Config, opts ...analytics.PipelineOption) (*analytics.Pipeline, error) {
	vocab, err := cfg.Vocabulary()
	if err != nil {
		return nil, fmt.Errorf("app: status aliases: %w", err)
	}
	return analytics.NewPipeline(cfg.KPI, append(opts, analytics.WithVocabulary(vocab))...)
}

// NewSource selects the data source named by PAGORA_DATA_SOURCE.
func NewSource(ctx context.Context, cfg *Config, pool *pgxpool.Pool) (datasource.Source, error) {
	switch cfg.DataSource {
	case SourceSheets:
		src, err := datasource.NewSheetsSource(ctx, datasource.SheetsConfig{
			SpreadsheetID:   cfg.SheetsSpreadsheetID,
			CredentialsFile: cfg.SheetsCredentialsFile,
		})
		if err != nil {
			return nil, fmt.Errorf("app: sheets source: %w", err)
		}
		return src, nil
	case SourcePostgres:
		if pool == nil {
			return nil, errors.New("app: postgres source: pool not configured")
		}
		return datasource.NewPostgresSource(pool, nil), nil
	case SourceXLSX:
		return datasource.NewXLSXSource(cfg.XLSXPath, nil), nil
	default:
		return nil, fmt.Errorf("app: unknown data source %q", cfg.DataSource)
	}
}

// Ready pings Postgres and Redis when they are configured.
func (rt *Runtime) Ready(ctx context.Context) error {
	if rt == nil {
		return nil
	}
	if rt.Pool != nil {
		if err := rt.Pool.Ping(ctx); err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
	}
	if rt.Redis != nil {
		if err := rt.Redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}

// Close releases the pool and Redis client.
func (rt *Runtime) Close() {
	if rt == nil {
		return
	}
	if rt.Redis != nil {
		_ = rt.Redis.Close()
	}
	if rt.Pool != nil {
		rt.Pool.Close()
	}
}
