package analytics

import (
	"time"

	"github.com/pagora/pagora-edp/internal/analytics/series"
)

// KPISet is the complete dashboard payload for one filter.
type KPISet struct {
	GeneratedAt     time.Time `json:"generated_at"`
	Filter          string    `json:"filter"`
	TotalRecords    int       `json:"total_records"`
	FilteredRecords int       `json:"filtered_records"`
	FieldIssues     int       `json:"field_issues"`
	DataUnavailable bool      `json:"data_unavailable"`

	Financial     FinancialMetrics        `json:"financial"`
	Operational   OperationalMetrics      `json:"operational"`
	Profitability ProfitabilityMetrics    `json:"profitability"`
	Quality       QualityMetrics          `json:"quality"`
	Concentration ConcentrationMetrics    `json:"concentration"`
	Managers      ManagerMetrics          `json:"managers"`
	Ranking       []RankEntry             `json:"ranking"`
	Forecast      ForecastResult          `json:"forecast"`
	Trend         TrendMetrics            `json:"trend"`
	Costs         CostMetrics             `json:"costs"`
	Projects      ProjectMetrics          `json:"projects"`
	Charts        map[string]series.Chart `json:"charts"`
}

// Flat lists the scalar metrics under dotted names, for exports and snapshots.
func (k KPISet) Flat() map[string]float64 {
	f := k.Financial
	op := k.Operational
	p := k.Profitability
	q := k.Quality
	c := k.Concentration
	out := map[string]float64{
		"records.total":                     float64(k.TotalRecords),
		"records.filtered":                  float64(k.FilteredRecords),
		"financial.pending_amount":          money(f.PendingAmount),
		"financial.critical_pending_amount": money(f.CriticalPendingAmount),
		"financial.emitted_amount":          money(f.EmittedAmount),
		"financial.collected_amount":        money(f.CollectedAmount),
		"financial.delay_cost":              money(f.DelayCost),
		"financial.dso":                     f.DSO,
		"financial.collected_pct":           f.CollectedPct,
		"financial.pending_count":           float64(f.PendingCount),
		"financial.completed_count":         float64(f.CompletedCount),
		"financial.critical_count":          float64(f.CriticalCount),
		"financial.unknown_waiting":         float64(f.UnknownWaiting),
		"operational.pending_count":         float64(op.PendingCount),
		"operational.backlog_amount":        money(op.BacklogAmount),
		"operational.unknown_age":           float64(op.UnknownAge),
		"operational.mean_age":              op.MeanAge,
		"operational.oldest_age":            float64(op.OldestAge),
		"profitability.revenue":             money(p.Revenue),
		"profitability.total_cost":          money(p.Costs.Total),
		"profitability.margin":              money(p.Margin),
		"profitability.profitability_pct":   p.ProfitabilityPct,
		"profitability.roi_pct":             p.ROIPct,
		"quality.rework_rate_pct":           q.ReworkRatePct,
		"quality.conformance_rate_pct":      q.ConformanceRatePct,
		"quality.quality_index":             q.QualityIndex,
		"quality.rework_transitions":        float64(q.ReworkTransitions),
		"concentration.top_n_share_pct":     c.TopNSharePct,
		"concentration.clients_to_pareto":   float64(c.ClientsToPareto),
		"concentration.hhi":                 c.HHI,
		"forecast.weighted_total":           money(k.Forecast.WeightedTotal),
		"forecast.excluded":                 float64(k.Forecast.Excluded),
		"costs.net":                         money(k.Costs.Net),
		"costs.overdue_amount":              money(k.Costs.OverdueAmount),
		"projects.total":                    float64(k.Projects.Total),
		"projects.mean_elapsed_pct":         k.Projects.MeanElapsedPct,
	}
	for _, b := range op.Buckets {
		out["aging."+b.Label+".count"] = float64(b.Count)
		out["aging."+b.Label+".pct"] = b.Pct
	}
	for _, b := range k.Forecast.Buckets {
		out["forecast."+b.Label+".weighted"] = money(b.Weighted)
	}
	return out
}
