package analytics

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pagora/pagora-edp/internal/edp"
)

// Tier is the collection probability class of a pending record.
type Tier string

const (
	TierHigh   Tier = "high"
	TierMedium Tier = "medium"
	TierLow    Tier = "low"
)

// TierWeights converts tier amounts into expected cash.
type TierWeights struct {
	High   float64 `json:"high"`
	Medium float64 `json:"medium"`
	Low    float64 `json:"low"`
}

// ForecastBucket holds expected inflows within one horizon window.
type ForecastBucket struct {
	Label    string          `json:"label"`
	FromDays int             `json:"from_days"`
	ToDays   int             `json:"to_days"`
	High     decimal.Decimal `json:"high"`
	Medium   decimal.Decimal `json:"medium"`
	Low      decimal.Decimal `json:"low"`
	Count    int             `json:"count"`
	Weighted decimal.Decimal `json:"weighted"`
}

// Total sums the three tiers.
func (b ForecastBucket) Total() decimal.Decimal {
	return sumDecimals(b.High, b.Medium, b.Low)
}

// ForecastResult is the cash-flow projection.
type ForecastResult struct {
	Buckets        []ForecastBucket `json:"buckets"`
	WeightedTotal  decimal.Decimal  `json:"weighted_total"`
	Excluded       int              `json:"excluded"`
	ExcludedAmount decimal.Decimal  `json:"excluded_amount"`
}

// Forecaster buckets pending records by estimated payment date.
type Forecaster struct {
	horizons   []int
	weights    TierWeights
	highDays   int
	mediumDays int
}

// NewForecaster builds a forecaster from a validated configuration.
func NewForecaster(cfg Config) (*Forecaster, error) {
	if len(cfg.ForecastHorizons) == 0 || !strictlyIncreasing(cfg.ForecastHorizons) || cfg.ForecastHorizons[0] <= 0 {
		return nil, &ConfigError{Field: "ForecastHorizons", Reason: "must be positive and strictly increasing"}
	}
	w := cfg.ForecastWeights()
	for _, v := range []float64{w.High, w.Medium, w.Low} {
		if v < 0 || v > 1 {
			return nil, &ConfigError{Field: "ForecastWeights", Reason: "must be within [0,1]"}
		}
	}
	horizons := append([]int(nil), cfg.ForecastHorizons...)
	return &Forecaster{horizons: horizons, weights: w, highDays: cfg.HighTierDays, mediumDays: cfg.MediumTierDays}, nil
}

// Tier classifies a record: sent and fresh is high, sent and aging or under
// revision is medium, anything else is low.
func (f *Forecaster) Tier(r edp.Record) Tier {
	sent := r.Status == edp.StatusSent
	switch {
	case sent && r.HasWaiting() && r.Waiting() < f.highDays:
		return TierHigh
	case (sent && r.HasWaiting() && r.Waiting() < f.mediumDays) || r.Status == edp.StatusRevision:
		return TierMedium
	default:
		return TierLow
	}
}

// Forecast projects pending records into the horizon buckets. Overdue
// estimates fall in the first bucket; records beyond the last horizon or
// without an estimate are excluded.
func (f *Forecaster) Forecast(records []edp.Record, today time.Time) ForecastResult {
	ref := civilDate(today)
	res := ForecastResult{
		Buckets:        make([]ForecastBucket, len(f.horizons)),
		WeightedTotal:  decimal.Zero,
		ExcludedAmount: decimal.Zero,
	}
	lower := 0
	for i, h := range f.horizons {
		res.Buckets[i] = ForecastBucket{
			Label:    fmt.Sprintf("%dd", h),
			FromDays: lower,
			ToDays:   h,
			High:     decimal.Zero,
			Medium:   decimal.Zero,
			Low:      decimal.Zero,
			Weighted: decimal.Zero,
		}
		lower = h
	}

	for _, r := range records {
		if !r.Status.IsPending() {
			continue
		}
		amount := r.Approved()
		idx := -1
		if !r.EstimatedPaymentAt.IsZero() {
			idx = f.bucketFor(edp.CalendarDays(ref, r.EstimatedPaymentAt))
		}
		if idx < 0 {
			res.Excluded++
			res.ExcludedAmount = res.ExcludedAmount.Add(amount)
			continue
		}
		b := &res.Buckets[idx]
		b.Count++
		switch f.Tier(r) {
		case TierHigh:
			b.High = b.High.Add(amount)
		case TierMedium:
			b.Medium = b.Medium.Add(amount)
		default:
			b.Low = b.Low.Add(amount)
		}
	}

	high := decimal.NewFromFloat(f.weights.High)
	medium := decimal.NewFromFloat(f.weights.Medium)
	low := decimal.NewFromFloat(f.weights.Low)
	for i := range res.Buckets {
		b := &res.Buckets[i]
		b.Weighted = sumDecimals(b.High.Mul(high), b.Medium.Mul(medium), b.Low.Mul(low)).Round(2)
		res.WeightedTotal = res.WeightedTotal.Add(b.Weighted)
	}
	return res
}

func (f *Forecaster) bucketFor(days int) int {
	for i, h := range f.horizons {
		if days <= h {
			return i
		}
	}
	return -1
}
