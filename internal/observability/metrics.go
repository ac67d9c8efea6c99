package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pagora/pagora-edp/internal/analytics"
)

// Metrics mengumpulkan metrik Prometheus untuk API dan pipeline KPI.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	stageDuration   *prometheus.HistogramVec
	unavailable     *prometheus.CounterVec
	criticalEDPs    prometheus.Gauge
	pendingAmount   prometheus.Gauge
	dso             prometheus.Gauge
}

// NewMetrics menginisialisasi registry dan metrik dasar.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pagora_http_requests_total",
		Help: "Jumlah permintaan HTTP berdasarkan route dan status.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pagora_http_request_duration_seconds",
		Help:    "Durasi permintaan HTTP per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	stages := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pagora_kpi_stage_duration_seconds",
		Help:    "Durasi setiap tahap pipeline KPI.",
		Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1},
	}, []string{"stage"})
	unavailable := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pagora_kpi_data_unavailable_total",
		Help: "Jumlah kegagalan sumber data per entitas.",
	}, []string{"entity"})
	critical := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "pagora_kpi_critical_edps",
		Help: "Jumlah EDP tertunda di atas ambang kritis, tanpa filter.",
	})
	pending := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "pagora_kpi_pending_amount",
		Help: "Total nominal EDP tertunda, tanpa filter.",
	})
	dso := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "pagora_kpi_dso_days",
		Help: "DSO terakhir yang dihitung tanpa filter.",
	})
	registry.MustRegister(requests, duration, stages, unavailable, critical, pending, dso)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		stageDuration:   stages,
		unavailable:     unavailable,
		criticalEDPs:    critical,
		pendingAmount:   pending,
		dso:             dso,
	}
}

// Handler mengembalikan http.Handler untuk endpoint /metrics.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware mencatat metrik untuk setiap permintaan HTTP.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// ObserveStage mencatat durasi satu tahap pipeline.
func (m *Metrics) ObserveStage(stage string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage).Observe(elapsed.Seconds())
}

// ObserveDataUnavailable menghitung kegagalan sumber data.
func (m *Metrics) ObserveDataUnavailable(entity string) {
	if m == nil {
		return
	}
	m.unavailable.WithLabelValues(entity).Inc()
}

// ObserveKPISet memperbarui gauge dari set tanpa filter saja.
func (m *Metrics) ObserveKPISet(set analytics.KPISet) {
	if m == nil || set.Filter != "" || set.DataUnavailable {
		return
	}
	m.criticalEDPs.Set(float64(set.Financial.CriticalCount))
	m.pendingAmount.Set(set.Financial.PendingAmount.InexactFloat64())
	m.dso.Set(set.Financial.DSO)
}

// Registerer mengekspos registry untuk pendaftaran metrik khusus.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
