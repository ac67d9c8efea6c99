package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/pagora/pagora-edp/internal/datasource"
	"github.com/pagora/pagora-edp/internal/snapshots"
)

// DataSource yields raw rows per entity.
type DataSource interface {
	FetchRecords(ctx context.Context, entity datasource.Entity) ([]map[string]any, error)
}

// SnapshotStore persists KPI sets per scope.
type SnapshotStore interface {
	Save(ctx context.Context, scope string, generatedAt time.Time, payload []byte) (uuid.UUID, error)
	Latest(ctx context.Context, scope string) (snapshots.Snapshot, error)
}

// ServiceMetrics receives service level events on top of stage timings.
type ServiceMetrics interface {
	Observer
	ObserveDataUnavailable(entity string)
	ObserveKPISet(set KPISet)
}

// ServiceOption customises a Service.
type ServiceOption func(*Service)

// WithSnapshots enables snapshot fallback and Warmup persistence.
func WithSnapshots(store SnapshotStore) ServiceOption {
	return func(s *Service) { s.snapshots = store }
}

// WithMetrics reports data-unavailable events and computed sets.
func WithMetrics(m ServiceMetrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// Service fetches rows, runs the pipeline and caches the result.
type Service struct {
	source    DataSource
	pipeline  *Pipeline
	cache     *Cache
	snapshots SnapshotStore
	metrics   ServiceMetrics
	logger    *slog.Logger
	now       func() time.Time
	group     singleflight.Group
}

// NewService wires a data source and pipeline with an optional cache.
func NewService(source DataSource, pipeline *Pipeline, cache *Cache, opts ...ServiceOption) *Service {
	s := &Service{
		source:   source,
		pipeline: pipeline,
		cache:    cache,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Config exposes the pipeline configuration.
func (s *Service) Config() Config {
	return s.pipeline.Config()
}

// Compute returns the KPI set for spec. Identical concurrent requests share
// one computation. When the source is down the latest snapshot or an empty
// set flagged DataUnavailable is returned, never an error.
func (s *Service) Compute(ctx context.Context, spec FilterSpec) (KPISet, error) {
	now := s.now()
	key, err := s.cache.BuildKey(ctx, keyKPI(spec, now))
	if err != nil {
		s.logger.Warn("kpi cache unavailable", slog.Any("error", err))
		return s.load(ctx, spec, now)
	}
	v, err, _ := s.group.Do(key, func() (any, error) {
		var set KPISet
		err := s.cache.FetchJSON(ctx, key, &set, func(ctx context.Context) (any, bool, error) {
			fresh, err := s.load(ctx, spec, now)
			return fresh, err == nil && !fresh.DataUnavailable, err
		})
		if err != nil && ctx.Err() == nil {
			s.logger.Warn("kpi cache bypassed", slog.String("key", key), slog.Any("error", err))
			return s.load(ctx, spec, now)
		}
		return set, err
	})
	if err != nil {
		return KPISet{}, err
	}
	return v.(KPISet), nil
}

// Bump invalidates every cached KPI set.
func (s *Service) Bump(ctx context.Context) (int64, error) {
	return s.cache.Bump(ctx)
}

// Refresh recomputes the unfiltered set once a bump announces version. It
// refills the cache and, through ObserveKPISet, moves the KPI gauges to the
// new data instead of waiting for the next dashboard request.
func (s *Service) Refresh(ctx context.Context, version int64) {
	set, err := s.Compute(ctx, FilterSpec{})
	if err != nil {
		s.logger.Warn("kpi refresh failed", slog.Int64("version", version), slog.Any("error", err))
		return
	}
	s.logger.Info("kpi cache refreshed",
		slog.Int64("version", version),
		slog.Int("records", set.TotalRecords),
		slog.Bool("data_unavailable", set.DataUnavailable),
	)
}

// WarmupResult summarises one Warmup run.
type WarmupResult struct {
	Scopes      int `json:"scopes"`
	Snapshots   int `json:"snapshots"`
	Unavailable int `json:"unavailable"`
}

// DefaultScopes are the filters the dashboard opens with.
func DefaultScopes() []FilterSpec {
	return []FilterSpec{{}, {QuickPeriod: 30}, {QuickPeriod: 90}}
}

// Warmup computes every scope, filling the cache, and snapshots the sets
// that came from live data.
func (s *Service) Warmup(ctx context.Context, scopes []FilterSpec) (WarmupResult, error) {
	var res WarmupResult
	for _, spec := range scopes {
		set, err := s.Compute(ctx, spec)
		if err != nil {
			return res, fmt.Errorf("analytics: warmup %q: %w", spec.CacheKey(), err)
		}
		res.Scopes++
		if set.DataUnavailable {
			res.Unavailable++
			continue
		}
		if s.snapshots == nil {
			continue
		}
		payload, err := json.Marshal(set)
		if err != nil {
			return res, fmt.Errorf("analytics: warmup encode: %w", err)
		}
		if _, err := s.snapshots.Save(ctx, snapshotScope(spec), set.GeneratedAt, payload); err != nil {
			return res, fmt.Errorf("analytics: warmup save: %w", err)
		}
		res.Snapshots++
	}
	return res, nil
}

func (s *Service) load(ctx context.Context, spec FilterSpec, now time.Time) (KPISet, error) {
	raw, err := s.fetch(ctx)
	if err != nil {
		if !errors.Is(err, datasource.ErrDataUnavailable) {
			return KPISet{}, err
		}
		s.logger.Warn("edp data unavailable", slog.Any("error", err))
		if s.metrics != nil {
			s.metrics.ObserveDataUnavailable(string(datasource.EntityEDP))
		}
		if set, ok := s.latestSnapshot(ctx, spec); ok {
			set.DataUnavailable = true
			return set, nil
		}
		set := s.pipeline.Compute(RawInput{}, spec, now)
		set.DataUnavailable = true
		return set, nil
	}
	set := s.pipeline.Compute(raw, spec, now)
	if s.metrics != nil {
		s.metrics.ObserveKPISet(set)
	}
	return set, nil
}

// fetch loads every entity concurrently. Only EDP rows are required; the
// other entities degrade to empty.
func (s *Service) fetch(ctx context.Context) (RawInput, error) {
	var raw RawInput
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := s.source.FetchRecords(gctx, datasource.EntityEDP)
		raw.EDP = rows
		return err
	})
	optional := func(entity datasource.Entity, dst *[]map[string]any) {
		g.Go(func() error {
			rows, err := s.source.FetchRecords(gctx, entity)
			if err == nil {
				*dst = rows
				return nil
			}
			if errors.Is(err, datasource.ErrDataUnavailable) || errors.Is(err, datasource.ErrUnknownEntity) {
				s.logger.Warn("optional entity skipped", slog.String("entity", string(entity)), slog.Any("error", err))
				if s.metrics != nil && errors.Is(err, datasource.ErrDataUnavailable) {
					s.metrics.ObserveDataUnavailable(string(entity))
				}
				return nil
			}
			return err
		})
	}
	optional(datasource.EntityProject, &raw.Projects)
	optional(datasource.EntityCost, &raw.Costs)
	optional(datasource.EntityLog, &raw.Log)
	if err := g.Wait(); err != nil {
		return RawInput{}, err
	}
	return raw, nil
}

func (s *Service) latestSnapshot(ctx context.Context, spec FilterSpec) (KPISet, bool) {
	if s.snapshots == nil {
		return KPISet{}, false
	}
	snap, err := s.snapshots.Latest(ctx, snapshotScope(spec))
	if err != nil {
		if !errors.Is(err, snapshots.ErrNotFound) {
			s.logger.Warn("snapshot lookup failed", slog.Any("error", err))
		}
		return KPISet{}, false
	}
	var set KPISet
	if err := json.Unmarshal(snap.Payload, &set); err != nil {
		s.logger.Warn("snapshot decode failed", slog.String("id", snap.ID.String()), slog.Any("error", err))
		return KPISet{}, false
	}
	return set, true
}

func snapshotScope(spec FilterSpec) string {
	if key := spec.CacheKey(); key != "" {
		return "kpi:" + key
	}
	return "kpi:all"
}
