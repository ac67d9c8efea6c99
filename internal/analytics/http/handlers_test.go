package analytichttp

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/pagora/pagora-edp/internal/analytics"
)

var fixedNow = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

type stubService struct {
	pipeline    *analytics.Pipeline
	raw         analytics.RawInput
	unavailable bool
	lastSpec    analytics.FilterSpec
	bumps       int64
	err         error
}

func (s *stubService) Compute(_ context.Context, spec analytics.FilterSpec) (analytics.KPISet, error) {
	s.lastSpec = spec
	if s.err != nil {
		return analytics.KPISet{}, s.err
	}
	set := s.pipeline.Compute(s.raw, spec, fixedNow)
	set.DataUnavailable = s.unavailable
	return set, nil
}

func (s *stubService) Bump(context.Context) (int64, error) {
	s.bumps++
	return s.bumps + 1, nil
}

func newStub(t *testing.T) *stubService {
	t.Helper()
	pipeline, err := analytics.NewPipeline(analytics.DefaultConfig())
	require.NoError(t, err)
	return &stubService{
		pipeline: pipeline,
		raw: analytics.RawInput{EDP: []map[string]any{
			{"n_edp": "1", "jefe_proyecto": "Ana", "cliente": "Codelco", "estado": "pagado", "monto_aprobado": 1000000,
				"fecha_emision": "2024-01-05", "fecha_envio_cliente": "2024-01-10", "fecha_conformidad": "2024-01-30"},
			{"n_edp": "2", "jefe_proyecto": "Bruno", "cliente": "Enel", "estado": "enviado", "monto_aprobado": 2500000,
				"fecha_emision": "2024-02-01", "fecha_envio_cliente": "2024-02-05"},
		}},
	}
}

func newRouter(t *testing.T, svc KPIService) http.Handler {
	t.Helper()
	h := NewHandler(nil, svc)
	h.WithNow(func() time.Time { return fixedNow })
	r := chi.NewRouter()
	h.MountRoutes(r)
	return r
}

func serve(h http.Handler, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	req.RemoteAddr = "10.0.0.1:5000"
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestKPIsEndpointReturnsFullSet(t *testing.T) {
	stub := newStub(t)
	rr := serve(newRouter(t, stub), http.MethodGet, "/api/kpis/")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	require.Contains(t, rr.Header().Get("Content-Type"), "application/json")

	var set analytics.KPISet
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &set))
	require.Equal(t, 2, set.TotalRecords)
	require.Len(t, set.Charts, len(analytics.ChartNames))
	require.Empty(t, rr.Header().Get("X-Data-Unavailable"))
}

func TestKPIsEndpointParsesFilter(t *testing.T) {
	stub := newStub(t)
	rr := serve(newRouter(t, stub), http.MethodGet, "/api/kpis/?client=enel&quick_period=30&min_amount=1000&q=red")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "enel", stub.lastSpec.Client)
	require.Equal(t, 30, stub.lastSpec.QuickPeriod)
	require.True(t, stub.lastSpec.MinAmount.Valid)
	require.Equal(t, "1000", stub.lastSpec.MinAmount.Decimal.String())
	require.Equal(t, "red", stub.lastSpec.Search)
}

func TestKPIsEndpointRejectsBadQuery(t *testing.T) {
	router := newRouter(t, newStub(t))
	cases := []string{
		"/api/kpis/?start=01-02-2024",
		"/api/kpis/?quick_period=45",
		"/api/kpis/?min_amount=abc",
		"/api/kpis/?start=2024-03-01&end=2024-02-01",
		"/api/kpis/?min_amount=500&max_amount=100",
	}
	for _, target := range cases {
		rr := serve(router, http.MethodGet, target)
		require.Equal(t, http.StatusBadRequest, rr.Code, target)
		require.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"), target)
	}
}

func TestKPIsEndpointFlagsUnavailableData(t *testing.T) {
	stub := newStub(t)
	stub.unavailable = true
	rr := serve(newRouter(t, stub), http.MethodGet, "/api/kpis/forecast")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "true", rr.Header().Get("X-Data-Unavailable"))

	var body forecastResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.True(t, body.DataUnavailable)
	require.Len(t, body.Forecast.Buckets, 3)
}

func TestKPIsEndpointServiceError(t *testing.T) {
	stub := newStub(t)
	stub.err = context.DeadlineExceeded
	rr := serve(newRouter(t, stub), http.MethodGet, "/api/kpis/ranking")
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestChartSVG(t *testing.T) {
	router := newRouter(t, newStub(t))

	rr := serve(router, http.MethodGet, "/api/kpis/charts/aging.svg")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "image/svg+xml", rr.Header().Get("Content-Type"))
	require.True(t, strings.HasPrefix(rr.Body.String(), "<svg"))

	rr = serve(router, http.MethodGet, "/api/kpis/charts/unknown.svg")
	require.Equal(t, http.StatusNotFound, rr.Code)

	rr = serve(router, http.MethodGet, "/api/kpis/charts/aging")
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestChartSVGEmptyFilterRendersPlaceholder(t *testing.T) {
	rr := serve(newRouter(t, newStub(t)), http.MethodGet, "/api/kpis/charts/trend.svg?client=nadie")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), "Sin datos")
}

func TestChartsJSON(t *testing.T) {
	rr := serve(newRouter(t, newStub(t)), http.MethodGet, "/api/kpis/charts")
	require.Equal(t, http.StatusOK, rr.Code)
	var body chartsResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	for _, name := range analytics.ChartNames {
		require.Contains(t, body.Charts, name)
	}
}

func TestExportCSV(t *testing.T) {
	h := NewHandler(nil, newStub(t))
	req := httptest.NewRequest(http.MethodGet, "/api/kpis/export.csv", nil)
	rr := httptest.NewRecorder()
	h.HandleCSVForTest(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "text/csv; charset=utf-8", rr.Header().Get("Content-Type"))
	require.Contains(t, rr.Header().Get("Content-Disposition"), "kpis-2024")
	require.Contains(t, rr.Body.String(), "financial.pending_amount")

	req = httptest.NewRequest(http.MethodGet, "/api/kpis/export.csv?table=nope", nil)
	rr = httptest.NewRecorder()
	h.HandleCSVForTest(rr, req)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestExportXLSX(t *testing.T) {
	rr := serve(newRouter(t, newStub(t)), http.MethodGet, "/api/kpis/export.xlsx")
	require.Equal(t, http.StatusOK, rr.Code)
	f, err := excelize.OpenReader(bytes.NewReader(rr.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	require.Len(t, f.GetSheetList(), 7)
}

func TestCacheBump(t *testing.T) {
	stub := newStub(t)
	rr := serve(newRouter(t, stub), http.MethodPost, "/api/kpis/cache/bump")
	require.Equal(t, http.StatusAccepted, rr.Code)
	var body map[string]int64
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, int64(2), body["version"])
}

func TestHandleKPIsForTest(t *testing.T) {
	h := NewHandler(nil, newStub(t))
	rr := httptest.NewRecorder()
	h.HandleKPIsForTest(rr, httptest.NewRequest(http.MethodGet, "/api/kpis?manager=ana", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var set analytics.KPISet
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &set))
	require.Equal(t, 1, set.FilteredRecords)
}
