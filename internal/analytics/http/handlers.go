package analytichttp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pagora/pagora-edp/internal/analytics"
	"github.com/pagora/pagora-edp/internal/analytics/export"
	"github.com/pagora/pagora-edp/internal/analytics/series"
	"github.com/pagora/pagora-edp/internal/analytics/svg"
	"github.com/pagora/pagora-edp/internal/platform/httpx"
)

const requestTimeout = 20 * time.Second

// KPIService is the contract the handlers need from analytics.Service.
type KPIService interface {
	Compute(ctx context.Context, spec analytics.FilterSpec) (analytics.KPISet, error)
	Bump(ctx context.Context) (int64, error)
}

// Handler serves the KPI API.
type Handler struct {
	logger  *slog.Logger
	service KPIService
	bufPool sync.Pool
	now     func() time.Time
}

// NewHandler constructs the KPI HTTP handler.
func NewHandler(logger *slog.Logger, service KPIService) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{logger: logger, service: service, now: time.Now}
	h.bufPool.New = func() any { return new(bytes.Buffer) }
	return h
}

// WithNow overrides the handler clock for testing.
func (h *Handler) WithNow(fn func() time.Time) {
	if fn != nil {
		h.now = fn
	}
}

type chartsResponse struct {
	GeneratedAt     time.Time               `json:"generated_at"`
	DataUnavailable bool                    `json:"data_unavailable"`
	Charts          map[string]series.Chart `json:"charts"`
}

type forecastResponse struct {
	GeneratedAt     time.Time                `json:"generated_at"`
	DataUnavailable bool                     `json:"data_unavailable"`
	Forecast        analytics.ForecastResult `json:"forecast"`
}

type rankingResponse struct {
	GeneratedAt     time.Time             `json:"generated_at"`
	DataUnavailable bool                  `json:"data_unavailable"`
	Ranking         []analytics.RankEntry `json:"ranking"`
}

func (h *Handler) handleKPIs(w http.ResponseWriter, r *http.Request) {
	set, ok := h.compute(w, r)
	if !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, set)
}

func (h *Handler) handleCharts(w http.ResponseWriter, r *http.Request) {
	set, ok := h.compute(w, r)
	if !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, chartsResponse{GeneratedAt: set.GeneratedAt, DataUnavailable: set.DataUnavailable, Charts: set.Charts})
}

func (h *Handler) handleForecast(w http.ResponseWriter, r *http.Request) {
	set, ok := h.compute(w, r)
	if !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, forecastResponse{GeneratedAt: set.GeneratedAt, DataUnavailable: set.DataUnavailable, Forecast: set.Forecast})
}

func (h *Handler) handleRanking(w http.ResponseWriter, r *http.Request) {
	set, ok := h.compute(w, r)
	if !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, rankingResponse{GeneratedAt: set.GeneratedAt, DataUnavailable: set.DataUnavailable, Ranking: set.Ranking})
}

var chartTitles = map[string]string{
	analytics.ChartAging:         "Antigüedad de EDPs pendientes",
	analytics.ChartForecast:      "Flujo de caja proyectado",
	analytics.ChartConcentration: "Concentración por cliente",
	analytics.ChartManagers:      "Comparativo de jefes de proyecto",
	analytics.ChartRanking:       "Ranking de jefes de proyecto",
	analytics.ChartTrend:         "Tendencia mensual",
	analytics.ChartQuality:       "Calidad y re-trabajo",
}

func (h *Handler) handleChartSVG(w http.ResponseWriter, r *http.Request) {
	name, ok := strings.CutSuffix(chi.URLParam(r, "name"), ".svg")
	title, known := chartTitles[name]
	if !ok || !known {
		httpx.RespondError(w, fmt.Errorf("chart %q: %w", name, httpx.ErrNotFound))
		return
	}
	set, ok := h.compute(w, r)
	if !ok {
		return
	}
	chart := set.Charts[name]
	var (
		out string
		err error
	)
	if name == analytics.ChartTrend {
		out, err = svg.Line(svg.DefaultWidth, svg.DefaultHeight, chart, svg.LineOpts{Title: title, ShowDots: true, Fill: true})
	} else {
		out, err = svg.Bars(svg.DefaultWidth, svg.DefaultHeight, chart, svg.BarOpts{Title: title})
	}
	if errors.Is(err, svg.ErrNoData) {
		out, err = svg.Empty(svg.DefaultWidth, svg.DefaultHeight, title), nil
	}
	if err != nil {
		h.handleServerError(w, "render svg", err)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "no-store")
	if _, err := w.Write([]byte(out)); err != nil {
		h.logError("stream svg", err)
	}
}

func (h *Handler) handleCSV(w http.ResponseWriter, r *http.Request) {
	set, ok := h.compute(w, r)
	if !ok {
		return
	}
	buf := h.bufPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer func() {
		buf.Reset()
		h.bufPool.Put(buf)
	}()
	table := strings.TrimSpace(r.URL.Query().Get("table"))
	if err := export.WriteNamedCSV(buf, set, table); err != nil {
		if errors.Is(err, export.ErrUnknownTable) {
			httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
			return
		}
		h.handleServerError(w, "write kpi csv", err)
		return
	}
	h.attachment(w, "text/csv; charset=utf-8", "csv", set)
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logError("stream csv", err)
	}
}

func (h *Handler) handleXLSX(w http.ResponseWriter, r *http.Request) {
	set, ok := h.compute(w, r)
	if !ok {
		return
	}
	buf := h.bufPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer func() {
		buf.Reset()
		h.bufPool.Put(buf)
	}()
	if err := export.WriteWorkbook(buf, set); err != nil {
		h.handleServerError(w, "write kpi workbook", err)
		return
	}
	h.attachment(w, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "xlsx", set)
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logError("stream xlsx", err)
	}
}

func (h *Handler) handleBump(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	version, err := h.service.Bump(ctx)
	if err != nil {
		h.handleServerError(w, "bump kpi cache", err)
		return
	}
	h.logger.Info("kpi cache bumped", slog.Int64("version", version))
	httpx.JSON(w, http.StatusAccepted, map[string]int64{"version": version})
}

func (h *Handler) compute(w http.ResponseWriter, r *http.Request) (analytics.KPISet, bool) {
	spec, err := ParseFilter(r)
	if err != nil {
		httpx.RespondError(w, err)
		return analytics.KPISet{}, false
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	set, err := h.service.Compute(ctx, spec)
	if err != nil {
		h.handleServerError(w, "compute kpis", err)
		return analytics.KPISet{}, false
	}
	if set.DataUnavailable {
		w.Header().Set("X-Data-Unavailable", "true")
	}
	return set, true
}

func (h *Handler) attachment(w http.ResponseWriter, contentType, ext string, set analytics.KPISet) {
	stamp := set.GeneratedAt
	if stamp.IsZero() {
		stamp = h.now()
	}
	filename := fmt.Sprintf("kpis-%s.%s", stamp.UTC().Format("20060102"), ext)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))
}

func (h *Handler) handleServerError(w http.ResponseWriter, op string, err error) {
	h.logError(op, err)
	if errors.Is(err, context.DeadlineExceeded) {
		httpx.RespondError(w, fmt.Errorf("%s: %w", op, httpx.ErrUnavailable))
		return
	}
	httpx.RespondError(w, err)
}

func (h *Handler) logError(op string, err error) {
	h.logger.Error(op, slog.Any("error", err))
}

// HandleKPIsForTest exposes the KPI handler for tests.
func (h *Handler) HandleKPIsForTest(w http.ResponseWriter, r *http.Request) { h.handleKPIs(w, r) }

// HandleCSVForTest exposes the CSV handler for tests.
func (h *Handler) HandleCSVForTest(w http.ResponseWriter, r *http.Request) { h.handleCSV(w, r) }
