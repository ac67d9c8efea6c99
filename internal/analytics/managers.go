package analytics

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/pagora/pagora-edp/internal/edp"
)

// ManagerStats aggregates one project manager's portfolio. Paid means completed
// (validated or paid). DSOSamples counts the completed records with a known
// waiting time; DSO is meaningless when it is zero.
type ManagerStats struct {
	Manager       string          `json:"manager"`
	Records       int             `json:"records"`
	PaidCount     int             `json:"paid_count"`
	PaidAmount    decimal.Decimal `json:"paid_amount"`
	PendingAmount decimal.Decimal `json:"pending_amount"`
	DSO           float64         `json:"dso"`
	DSOSamples    int             `json:"dso_samples"`
	CriticalCount int             `json:"critical_count"`
	EfficiencyPct float64         `json:"efficiency_pct"`
}

// Spread holds the cross-manager mean, min and max of one metric. The DSO
// spread only covers managers with collected records.
type Spread struct {
	Mean float64 `json:"mean"`
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
}

// ManagerSummary compares managers metric by metric.
type ManagerSummary struct {
	Records       Spread `json:"records"`
	PaidAmount    Spread `json:"paid_amount"`
	PendingAmount Spread `json:"pending_amount"`
	DSO           Spread `json:"dso"`
	CriticalCount Spread `json:"critical_count"`
	EfficiencyPct Spread `json:"efficiency_pct"`
}

// ManagerMetrics is the comparative manager stage.
type ManagerMetrics struct {
	Managers []ManagerStats `json:"managers"`
	Summary  ManagerSummary `json:"summary"`
}

// Managers computes per-manager statistics sorted by name.
func Managers(records []edp.Record) ManagerMetrics {
	byName := make(map[string]*ManagerStats)
	waits := make(map[string][]int)
	for _, r := range records {
		name := segmentName(r.Manager)
		s, ok := byName[name]
		if !ok {
			s = &ManagerStats{Manager: name, PaidAmount: decimal.Zero, PendingAmount: decimal.Zero}
			byName[name] = s
		}
		s.Records++
		switch {
		case r.Status.IsCompleted():
			s.PaidCount++
			s.PaidAmount = s.PaidAmount.Add(r.Approved())
			if r.HasWaiting() {
				waits[name] = append(waits[name], max(r.Waiting(), 0))
			}
		case r.Status.IsPending():
			s.PendingAmount = s.PendingAmount.Add(r.Approved())
		}
		if r.Critical {
			s.CriticalCount++
		}
	}

	stats := make([]ManagerStats, 0, len(byName))
	for name, s := range byName {
		s.DSO = round1(meanInts(waits[name]))
		s.DSOSamples = len(waits[name])
		s.EfficiencyPct = countPct(s.PaidCount, s.Records)
		stats = append(stats, *s)
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Manager < stats[j].Manager })

	return ManagerMetrics{Managers: stats, Summary: summarize(stats)}
}

func summarize(stats []ManagerStats) ManagerSummary {
	var withDSO []ManagerStats
	for _, s := range stats {
		if s.DSOSamples > 0 {
			withDSO = append(withDSO, s)
		}
	}
	return ManagerSummary{
		Records:       spreadOf(stats, func(s ManagerStats) float64 { return float64(s.Records) }),
		PaidAmount:    spreadOf(stats, func(s ManagerStats) float64 { return s.PaidAmount.InexactFloat64() }),
		PendingAmount: spreadOf(stats, func(s ManagerStats) float64 { return s.PendingAmount.InexactFloat64() }),
		DSO:           spreadOf(withDSO, func(s ManagerStats) float64 { return s.DSO }),
		CriticalCount: spreadOf(stats, func(s ManagerStats) float64 { return float64(s.CriticalCount) }),
		EfficiencyPct: spreadOf(stats, func(s ManagerStats) float64 { return s.EfficiencyPct }),
	}
}

func spreadOf(stats []ManagerStats, f func(ManagerStats) float64) Spread {
	if len(stats) == 0 {
		return Spread{}
	}
	sp := Spread{Min: math.Inf(1), Max: math.Inf(-1)}
	total := 0.0
	for _, s := range stats {
		v := f(s)
		total += v
		sp.Min = math.Min(sp.Min, v)
		sp.Max = math.Max(sp.Max, v)
	}
	sp.Mean = round2(total / float64(len(stats)))
	return sp
}
