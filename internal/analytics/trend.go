package analytics

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pagora/pagora-edp/internal/edp"
)

// TrendPoint aggregates one calendar month of emissions.
type TrendPoint struct {
	Month     string          `json:"month"`
	Count     int             `json:"count"`
	Emitted   decimal.Decimal `json:"emitted"`
	Approved  decimal.Decimal `json:"approved"`
	Collected decimal.Decimal `json:"collected"`
	// Month-over-month change of the approved amount; nil for the first month
	// or when the previous month was zero.
	VariancePct *float64 `json:"variance_pct"`
}

// TrendMetrics is the monthly series, gaps filled with zero months.
type TrendMetrics struct {
	Points []TrendPoint `json:"points"`
}

const monthLayout = "2006-01"

// Trend groups records by emission month, falling back to the month label.
func Trend(records []edp.Record) TrendMetrics {
	byMonth := make(map[string]*TrendPoint)
	for _, r := range records {
		key := monthKey(r)
		if key == "" {
			continue
		}
		p, ok := byMonth[key]
		if !ok {
			p = &TrendPoint{Month: key, Emitted: decimal.Zero, Approved: decimal.Zero, Collected: decimal.Zero}
			byMonth[key] = p
		}
		p.Count++
		p.Emitted = p.Emitted.Add(r.Proposed())
		p.Approved = p.Approved.Add(r.Approved())
		if r.Status.IsCompleted() {
			p.Collected = p.Collected.Add(r.Approved())
		}
	}
	if len(byMonth) == 0 {
		return TrendMetrics{Points: []TrendPoint{}}
	}

	keys := make([]string, 0, len(byMonth))
	for k := range byMonth {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	months := enumerateMonths(keys[0], keys[len(keys)-1])
	points := make([]TrendPoint, 0, len(months))
	for i, month := range months {
		p := TrendPoint{Month: month, Emitted: decimal.Zero, Approved: decimal.Zero, Collected: decimal.Zero}
		if got, ok := byMonth[month]; ok {
			p = *got
		}
		if i > 0 {
			p.VariancePct = variancePct(points[i-1].Approved, p.Approved)
		}
		points = append(points, p)
	}
	return TrendMetrics{Points: points}
}

func monthKey(r edp.Record) string {
	if !r.EmittedAt.IsZero() {
		return r.EmittedAt.Format(monthLayout)
	}
	if t, err := time.Parse(monthLayout, r.Month); err == nil {
		return t.Format(monthLayout)
	}
	return ""
}

func enumerateMonths(from, to string) []string {
	start, err := time.Parse(monthLayout, from)
	if err != nil {
		return []string{from}
	}
	end, err := time.Parse(monthLayout, to)
	if err != nil || end.Before(start) {
		return []string{from}
	}
	var out []string
	for cur := start; !cur.After(end); cur = cur.AddDate(0, 1, 0) {
		out = append(out, cur.Format(monthLayout))
	}
	return out
}

func variancePct(prev, cur decimal.Decimal) *float64 {
	if prev.IsZero() {
		return nil
	}
	v := round1(cur.Sub(prev).Div(prev.Abs()).Mul(hundred).InexactFloat64())
	return &v
}
