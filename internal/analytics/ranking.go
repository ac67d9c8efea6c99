package analytics

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"
)

// RankingWeights weighs the normalized sub-scores. They must sum to 1.
type RankingWeights struct {
	Revenue    float64 `json:"revenue"`
	Efficiency float64 `json:"efficiency"`
	DSO        float64 `json:"dso"`
}

func (w RankingWeights) validate() error {
	for name, v := range map[string]float64{"RankingRevenueWeight": w.Revenue, "RankingEfficiencyWeight": w.Efficiency, "RankingDSOWeight": w.DSO} {
		if v < 0 || math.IsNaN(v) {
			return &ConfigError{Field: name, Reason: "must be non-negative"}
		}
	}
	if !sumsToOne(w.Revenue, w.Efficiency, w.DSO) {
		return &ConfigError{Field: "RankingWeights", Reason: "must sum to 1, got " + formatWeights(w.Revenue, w.Efficiency, w.DSO)}
	}
	return nil
}

// RankEntry is one manager's position in the ranking.
type RankEntry struct {
	Manager         string  `json:"manager"`
	Score           float64 `json:"score"`
	Position        int     `json:"position"`
	RevenueScore    float64 `json:"revenue_score"`
	EfficiencyScore float64 `json:"efficiency_score"`
	DSOScore        float64 `json:"dso_score"`
}

// Ranker scores managers with fixed weights.
type Ranker struct {
	weights RankingWeights
}

// NewRanker validates the weights once so Rank never fails.
func NewRanker(weights RankingWeights) (*Ranker, error) {
	if err := weights.validate(); err != nil {
		return nil, err
	}
	return &Ranker{weights: weights}, nil
}

// Rank orders managers by score descending, then name ascending. A manager
// without collected records earns no DSO points.
func (rk *Ranker) Rank(stats []ManagerStats) []RankEntry {
	maxPaid := decimal.Zero
	for _, s := range stats {
		if s.PaidAmount.GreaterThan(maxPaid) {
			maxPaid = s.PaidAmount
		}
	}

	out := make([]RankEntry, 0, len(stats))
	for _, s := range stats {
		revenue := 0.0
		if !maxPaid.IsZero() {
			revenue = s.PaidAmount.Div(maxPaid).Mul(hundred).InexactFloat64()
		}
		dso := 0.0
		if s.DSOSamples > 0 {
			dso = math.Max(0, math.Min(100, 100-s.DSO))
		}
		score := rk.weights.Revenue*revenue + rk.weights.Efficiency*s.EfficiencyPct + rk.weights.DSO*dso
		out = append(out, RankEntry{
			Manager:         s.Manager,
			Score:           round2(score),
			RevenueScore:    round2(revenue),
			EfficiencyScore: round2(s.EfficiencyPct),
			DSOScore:        round2(dso),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Manager < out[j].Manager
	})
	for i := range out {
		out[i].Position = i + 1
	}
	return out
}
