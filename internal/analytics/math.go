package analytics

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func almostZero(v float64) bool {
	return math.Abs(v) < 1e-9
}

// pct returns part/total*100 rounded to one decimal, or 0 when total is zero.
func pct(part, total decimal.Decimal) float64 {
	if total.IsZero() {
		return 0
	}
	return round1(part.Div(total).Mul(hundred).InexactFloat64())
}

func countPct(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return round1(float64(part) / float64(total) * 100)
}

func meanInts(values []int) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0
	for _, v := range values {
		sum += v
	}
	return float64(sum) / float64(len(values))
}

// largestRemainder splits 100% across counts with one decimal so the parts
// sum to exactly 100. All zeros when total is zero.
func largestRemainder(counts []int) []float64 {
	out := make([]float64, len(counts))
	total := 0
	for _, c := range counts {
		total += c
	}
	if total == 0 {
		return out
	}
	const units = 1000
	type share struct {
		index     int
		floor     int
		remainder float64
	}
	shares := make([]share, len(counts))
	assigned := 0
	for i, c := range counts {
		exact := float64(c) * units / float64(total)
		floor := int(math.Floor(exact))
		shares[i] = share{index: i, floor: floor, remainder: exact - float64(floor)}
		assigned += floor
	}
	sort.SliceStable(shares, func(a, b int) bool {
		return shares[a].remainder > shares[b].remainder
	})
	for i := 0; assigned < units; i++ {
		shares[i%len(shares)].floor++
		assigned++
	}
	for _, s := range shares {
		out[s.index] = float64(s.floor) / 10
	}
	return out
}

func sumDecimals(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}
