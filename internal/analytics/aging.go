package analytics

import (
	"github.com/shopspring/decimal"

	"github.com/pagora/pagora-edp/internal/edp"
)

// AgingBucket groups pending records by waiting days. Max is -1 for the open bucket.
type AgingBucket struct {
	Label  string          `json:"label"`
	Min    int             `json:"min"`
	Max    int             `json:"max"`
	Count  int             `json:"count"`
	Amount decimal.Decimal `json:"amount"`
	Pct    float64         `json:"pct"`
}

// StageCount counts records per payment stage.
type StageCount struct {
	Stage edp.Stage `json:"stage"`
	Count int       `json:"count"`
}

// OperationalMetrics reports backlog and aging of pending records.
type OperationalMetrics struct {
	Buckets       []AgingBucket   `json:"buckets"`
	PendingCount  int             `json:"pending_count"`
	BacklogAmount decimal.Decimal `json:"backlog_amount"`
	UnknownAge    int             `json:"unknown_age"`
	MeanAge       float64         `json:"mean_age"`
	OldestAge     int             `json:"oldest_age"`
	Stages        []StageCount    `json:"stages"`
}

var stageOrder = []edp.Stage{edp.StageIssued, edp.StageInReview, edp.StageApproved, edp.StageConformed, edp.StageCollected}

// Operational buckets pending records by age. Percentages are over the pending
// records with a known age.
func Operational(records []edp.Record, cfg Config) OperationalMetrics {
	labels := cfg.AgingLabels()
	buckets := make([]AgingBucket, len(labels))
	lower := 0
	for i, label := range labels {
		buckets[i] = AgingBucket{Label: label, Min: lower, Max: -1, Amount: decimal.Zero}
		if i < len(cfg.AgingEdges) {
			buckets[i].Max = cfg.AgingEdges[i]
			lower = cfg.AgingEdges[i] + 1
		}
	}

	m := OperationalMetrics{BacklogAmount: decimal.Zero}
	stageCounts := make(map[edp.Stage]int, len(stageOrder))
	var ages []int
	for _, r := range records {
		stageCounts[r.Stage]++
		if !r.Status.IsPending() {
			continue
		}
		m.PendingCount++
		m.BacklogAmount = m.BacklogAmount.Add(r.Approved())
		if !r.HasWaiting() {
			m.UnknownAge++
			continue
		}
		age := r.Waiting()
		ages = append(ages, age)
		if age > m.OldestAge {
			m.OldestAge = age
		}
		idx := bucketIndex(age, cfg.AgingEdges)
		buckets[idx].Count++
		buckets[idx].Amount = buckets[idx].Amount.Add(r.Approved())
	}

	counts := make([]int, len(buckets))
	for i, b := range buckets {
		counts[i] = b.Count
	}
	for i, p := range largestRemainder(counts) {
		buckets[i].Pct = p
	}
	m.Buckets = buckets
	m.MeanAge = round1(meanInts(ages))
	m.Stages = make([]StageCount, 0, len(stageOrder))
	for _, s := range stageOrder {
		m.Stages = append(m.Stages, StageCount{Stage: s, Count: stageCounts[s]})
	}
	return m
}

func bucketIndex(age int, edges []int) int {
	for i, edge := range edges {
		if age <= edge {
			return i
		}
	}
	return len(edges)
}
