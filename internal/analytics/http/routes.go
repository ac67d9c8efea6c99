package analytichttp

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/pagora/pagora-edp/internal/platform/httpx"
)

// MountRoutes registers the KPI endpoints. Exports and cache bumps are rate
// limited per client IP.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	limiter := httprate.Limit(10, time.Minute,
		httprate.WithKeyFuncs(rateLimitKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			httpx.Problem(w, http.StatusTooManyRequests, "Too Many Requests", "export rate limit exceeded")
		}),
	)

	r.Route("/api/kpis", func(r chi.Router) {
		r.Get("/", h.handleKPIs)
		r.Get("/charts", h.handleCharts)
		r.Get("/charts/{name}", h.handleChartSVG)
		r.Get("/forecast", h.handleForecast)
		r.Get("/ranking", h.handleRanking)
		r.Group(func(gr chi.Router) {
			gr.Use(limiter)
			gr.Get("/export.csv", h.handleCSV)
			gr.Get("/export.xlsx", h.handleXLSX)
			gr.Post("/cache/bump", h.handleBump)
		})
	})
}

func rateLimitKey(r *http.Request) (string, error) {
	key, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + key, nil
}
