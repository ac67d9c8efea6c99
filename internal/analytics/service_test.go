package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/pagora/pagora-edp/internal/datasource"
	"github.com/pagora/pagora-edp/internal/snapshots"
)

type countingSource struct {
	*datasource.MemorySource
	edpCalls atomic.Int32
	failCost bool
}

func (c *countingSource) FetchRecords(ctx context.Context, entity datasource.Entity) ([]map[string]any, error) {
	if entity == datasource.EntityEDP {
		c.edpCalls.Add(1)
	}
	if c.failCost && entity == datasource.EntityCost {
		return nil, fmt.Errorf("costs tab: %w", datasource.ErrDataUnavailable)
	}
	return c.MemorySource.FetchRecords(ctx, entity)
}

func newCountingSource() *countingSource {
	return &countingSource{MemorySource: datasource.NewMemorySource(map[datasource.Entity][]map[string]any{
		datasource.EntityEDP: {
			{"n_edp": "1", "jefe_proyecto": "Ana", "cliente": "Codelco", "estado": "pagado", "monto_aprobado": 1000,
				"fecha_emision": "2024-01-05", "fecha_envio_cliente": "2024-01-10", "fecha_conformidad": "2024-01-30"},
			{"n_edp": "2", "jefe_proyecto": "Bruno", "cliente": "Enel", "estado": "enviado", "monto_aprobado": 2500,
				"fecha_emision": "2024-02-01", "fecha_envio_cliente": "2024-02-05"},
		},
		datasource.EntityCost: {
			{"id": "c1", "proyecto_id": "Red", "tipo": "personal", "monto_neto": 300},
		},
	})}
}

func (c *countingSource) rows(t *testing.T) []map[string]any {
	t.Helper()
	rows, err := c.MemorySource.FetchRecords(context.Background(), datasource.EntityEDP)
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	return rows
}

type memorySnapshots struct {
	mu    sync.Mutex
	saved map[string][]byte
}

func (m *memorySnapshots) Save(_ context.Context, scope string, _ time.Time, payload []byte) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saved == nil {
		m.saved = make(map[string][]byte)
	}
	m.saved[scope] = payload
	return uuid.New(), nil
}

func (m *memorySnapshots) Latest(_ context.Context, scope string) (snapshots.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	payload, ok := m.saved[scope]
	if !ok {
		return snapshots.Snapshot{}, snapshots.ErrNotFound
	}
	return snapshots.Snapshot{ID: uuid.New(), Scope: scope, Payload: payload}, nil
}

func newTestService(t *testing.T, src DataSource, opts ...ServiceOption) (*Service, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	pipeline, err := NewPipeline(DefaultConfig())
	if err != nil {
		t.Fatalf("pipeline: %v", err)
	}
	opts = append(opts, WithClock(func() time.Time { return testNow }))
	return NewService(src, pipeline, NewCache(client, time.Minute), opts...), mr
}

func TestServiceComputeCachesUntilBump(t *testing.T) {
	src := newCountingSource()
	svc, mr := newTestService(t, src)
	ctx := context.Background()

	first, err := svc.Compute(ctx, FilterSpec{})
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if first.TotalRecords != 2 || first.DataUnavailable {
		t.Fatalf("unexpected set: total=%d unavailable=%v", first.TotalRecords, first.DataUnavailable)
	}
	second, err := svc.Compute(ctx, FilterSpec{})
	if err != nil {
		t.Fatalf("compute cached: %v", err)
	}
	if got := src.edpCalls.Load(); got != 1 {
		t.Fatalf("expected one fetch, got %d", got)
	}
	if !second.Financial.PendingAmount.Equal(first.Financial.PendingAmount) {
		t.Fatalf("cached set differs: %s vs %s", second.Financial.PendingAmount, first.Financial.PendingAmount)
	}
	if keys := mr.Keys(); len(keys) < 2 {
		t.Fatalf("expected version and kpi keys, got %v", keys)
	}

	ver, err := svc.Bump(ctx)
	if err != nil {
		t.Fatalf("bump: %v", err)
	}
	if ver != 2 {
		t.Fatalf("expected version 2, got %d", ver)
	}
	if _, err := svc.Compute(ctx, FilterSpec{}); err != nil {
		t.Fatalf("compute after bump: %v", err)
	}
	if got := src.edpCalls.Load(); got != 2 {
		t.Fatalf("expected refetch after bump, got %d fetches", got)
	}
}

func TestServiceDataUnavailableIsNotCached(t *testing.T) {
	src := newCountingSource()
	svc, _ := newTestService(t, src)
	ctx := context.Background()

	src.Fail(fmt.Errorf("sheets quota"))
	set, err := svc.Compute(ctx, FilterSpec{})
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if !set.DataUnavailable {
		t.Fatalf("expected DataUnavailable")
	}
	if len(set.Operational.Buckets) != 4 || len(set.Forecast.Buckets) != 3 {
		t.Fatalf("expected zero set of full shape")
	}

	src.Fail(nil)
	set, err = svc.Compute(ctx, FilterSpec{})
	if err != nil {
		t.Fatalf("compute recovered: %v", err)
	}
	if set.DataUnavailable || set.TotalRecords != 2 {
		t.Fatalf("expected live data after recovery, got %+v", set.TotalRecords)
	}
}

func TestServiceFallsBackToSnapshot(t *testing.T) {
	src := newCountingSource()
	store := &memorySnapshots{}
	svc, _ := newTestService(t, src, WithSnapshots(store))
	ctx := context.Background()

	res, err := svc.Warmup(ctx, DefaultScopes())
	if err != nil {
		t.Fatalf("warmup: %v", err)
	}
	if res.Scopes != 3 || res.Snapshots != 3 || res.Unavailable != 0 {
		t.Fatalf("unexpected warmup result %+v", res)
	}
	if _, ok := store.saved["kpi:all"]; !ok {
		t.Fatalf("expected snapshot for the unfiltered scope, got %v", store.saved)
	}

	src.Fail(fmt.Errorf("sheets down"))
	set, err := svc.Compute(ctx, FilterSpec{Manager: "ana"})
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if !set.DataUnavailable || set.TotalRecords != 0 {
		t.Fatalf("scope without snapshot should be empty and flagged, got %d", set.TotalRecords)
	}

	if _, err := svc.Bump(ctx); err != nil {
		t.Fatalf("bump: %v", err)
	}
	set, err = svc.Compute(ctx, FilterSpec{})
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if !set.DataUnavailable || set.TotalRecords != 2 {
		t.Fatalf("expected snapshot with 2 records flagged unavailable, got total=%d unavailable=%v", set.TotalRecords, set.DataUnavailable)
	}

	var stored KPISet
	if err := json.Unmarshal(store.saved["kpi:all"], &stored); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if stored.DataUnavailable {
		t.Fatalf("snapshots must hold live data only")
	}
}

func TestServiceOptionalEntitiesDegrade(t *testing.T) {
	src := newCountingSource()
	src.failCost = true
	svc, _ := newTestService(t, src)

	set, err := svc.Compute(context.Background(), FilterSpec{})
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if set.DataUnavailable {
		t.Fatalf("a missing cost tab must not flag the set")
	}
	if set.Costs.Count != 0 {
		t.Fatalf("expected empty costs, got %d", set.Costs.Count)
	}
}

func TestServiceWithoutCache(t *testing.T) {
	src := newCountingSource()
	pipeline, err := NewPipeline(DefaultConfig())
	if err != nil {
		t.Fatalf("pipeline: %v", err)
	}
	svc := NewService(src, pipeline, nil, WithClock(func() time.Time { return testNow }))
	for i := 0; i < 2; i++ {
		if _, err := svc.Compute(context.Background(), FilterSpec{}); err != nil {
			t.Fatalf("compute: %v", err)
		}
	}
	if got := src.edpCalls.Load(); got != 2 {
		t.Fatalf("expected a fetch per call without cache, got %d", got)
	}
	if ver, err := svc.Bump(context.Background()); err != nil || ver != 0 {
		t.Fatalf("bump without cache: %d %v", ver, err)
	}
}

type recordingMetrics struct {
	sets chan KPISet
}

func (m *recordingMetrics) ObserveStage(string, time.Duration) {}

func (m *recordingMetrics) ObserveDataUnavailable(string) {}

func (m *recordingMetrics) ObserveKPISet(set KPISet) {
	m.sets <- set
}

func TestServiceRefreshFollowsRemoteBump(t *testing.T) {
	src := newCountingSource()
	metrics := &recordingMetrics{sets: make(chan KPISet, 4)}
	svc, mr := newTestService(t, src, WithMetrics(metrics))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if _, err := svc.Compute(ctx, FilterSpec{}); err != nil {
		t.Fatalf("compute: %v", err)
	}
	<-metrics.sets

	if err := svc.cache.ListenForInvalidation(ctx, func(v int64) { svc.Refresh(ctx, v) }); err != nil {
		t.Fatalf("listen: %v", err)
	}

	// another process bumps through its own client
	other := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer other.Close()
	src.Set(datasource.EntityEDP, append(src.rows(t), map[string]any{
		"n_edp": "3", "jefe_proyecto": "Carla", "cliente": "Enel", "estado": "enviado", "monto_aprobado": 500,
	}))
	if _, err := NewCache(other, time.Minute).Bump(ctx); err != nil {
		t.Fatalf("bump: %v", err)
	}

	select {
	case set := <-metrics.sets:
		if set.TotalRecords != 3 {
			t.Fatalf("expected refreshed set with 3 records, got %d", set.TotalRecords)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no refresh after bump")
	}
	if got := src.edpCalls.Load(); got != 2 {
		t.Fatalf("expected one refetch after bump, got %d fetches", got)
	}
}

func TestCacheListenForInvalidation(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	cache := NewCache(client, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	got := make(chan int64, 1)
	if err := cache.ListenForInvalidation(ctx, func(v int64) { got <- v }); err != nil {
		t.Fatalf("listen: %v", err)
	}
	if _, err := cache.Version(ctx); err != nil {
		t.Fatalf("version: %v", err)
	}
	if _, err := cache.Bump(ctx); err != nil {
		t.Fatalf("bump: %v", err)
	}
	select {
	case v := <-got:
		if v != 2 {
			t.Fatalf("expected version 2, got %d", v)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no invalidation received")
	}
}
