package analytics

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/pagora/pagora-edp/internal/edp"
)

// CostBreakdown is the modelled cost allocation for a revenue figure.
type CostBreakdown struct {
	Personnel          decimal.Decimal `json:"personnel"`
	Overhead           decimal.Decimal `json:"overhead"`
	Technology         decimal.Decimal `json:"technology"`
	DelayCost          decimal.Decimal `json:"delay_cost"`
	Total              decimal.Decimal `json:"total"`
	InefficiencyFactor float64         `json:"inefficiency_factor"`
}

// SegmentProfit applies the model to one manager or client.
type SegmentProfit struct {
	Name             string          `json:"name"`
	Revenue          decimal.Decimal `json:"revenue"`
	Margin           decimal.Decimal `json:"margin"`
	ProfitabilityPct float64         `json:"profitability_pct"`
}

// ProfitabilityMetrics is the cost-model view over approved revenue.
type ProfitabilityMetrics struct {
	Revenue          decimal.Decimal `json:"revenue"`
	AvgCycleDays     float64         `json:"avg_cycle_days"`
	Costs            CostBreakdown   `json:"costs"`
	Margin           decimal.Decimal `json:"margin"`
	ProfitabilityPct float64         `json:"profitability_pct"`
	ROIPct           float64         `json:"roi_pct"`
	ByManager        []SegmentProfit `json:"by_manager"`
	ByClient         []SegmentProfit `json:"by_client"`
}

// Profitability models margin from approved revenue. Personnel cost grows with
// the inefficiency factor max(avg cycle / target cycle, 1); the delay cost comes
// from the financial stage.
func Profitability(records []edp.Record, fin FinancialMetrics, cfg Config) ProfitabilityMetrics {
	revenue, avgDays := revenueAndCycle(records)
	costs := allocateCosts(revenue, avgDays, fin.DelayCost, cfg)
	margin := revenue.Sub(costs.Total)

	m := ProfitabilityMetrics{
		Revenue:          revenue,
		AvgCycleDays:     round1(avgDays),
		Costs:            costs,
		Margin:           margin,
		ProfitabilityPct: pct(margin, revenue),
		ROIPct:           pct(margin, costs.Total),
	}
	m.ByManager = segmentProfits(records, func(r edp.Record) string { return r.Manager }, cfg)
	m.ByClient = segmentProfits(records, func(r edp.Record) string { return r.Client }, cfg)
	return m
}

func revenueAndCycle(records []edp.Record) (decimal.Decimal, float64) {
	revenue := decimal.Zero
	var waits []int
	for _, r := range records {
		revenue = revenue.Add(r.Approved())
		if r.HasWaiting() {
			waits = append(waits, max(r.Waiting(), 0))
		}
	}
	return revenue, meanInts(waits)
}

func allocateCosts(revenue decimal.Decimal, avgDays float64, delay decimal.Decimal, cfg Config) CostBreakdown {
	factor := math.Max(avgDays/cfg.TargetCycleDays, 1)
	personnel := revenue.Mul(decimal.NewFromFloat(cfg.PersonnelWeight)).Mul(decimal.NewFromFloat(factor)).Round(2)
	overhead := revenue.Mul(decimal.NewFromFloat(cfg.OverheadWeight)).Round(2)
	technology := revenue.Mul(decimal.NewFromFloat(cfg.TechnologyWeight)).Round(2)
	return CostBreakdown{
		Personnel:          personnel,
		Overhead:           overhead,
		Technology:         technology,
		DelayCost:          delay,
		Total:              sumDecimals(personnel, overhead, technology, delay),
		InefficiencyFactor: round2(factor),
	}
}

func segmentProfits(records []edp.Record, key func(edp.Record) string, cfg Config) []SegmentProfit {
	groups := make(map[string][]edp.Record)
	for _, r := range records {
		name := segmentName(key(r))
		groups[name] = append(groups[name], r)
	}
	out := make([]SegmentProfit, 0, len(groups))
	for name, group := range groups {
		revenue, avgDays := revenueAndCycle(group)
		delay := Financial(group, cfg).DelayCost
		costs := allocateCosts(revenue, avgDays, delay, cfg)
		margin := revenue.Sub(costs.Total)
		out = append(out, SegmentProfit{
			Name:             name,
			Revenue:          revenue,
			Margin:           margin,
			ProfitabilityPct: pct(margin, revenue),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Revenue.Equal(out[j].Revenue) {
			return out[i].Revenue.GreaterThan(out[j].Revenue)
		}
		return out[i].Name < out[j].Name
	})
	return out
}

const unassigned = "Sin asignar"

func segmentName(s string) string {
	if s == "" {
		return unassigned
	}
	return s
}
