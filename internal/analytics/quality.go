package analytics

import (
	"sort"
	"strconv"

	"github.com/pagora/pagora-edp/internal/edp"
)

// CountItem is a labelled tally.
type CountItem struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// QualityMetrics covers rework and client conformance.
type QualityMetrics struct {
	TotalRecords        int         `json:"total_records"`
	ReworkCount         int         `json:"rework_count"`
	ReworkRatePct       float64     `json:"rework_rate_pct"`
	ConformanceCount    int         `json:"conformance_count"`
	ConformanceRatePct  float64     `json:"conformance_rate_pct"`
	QualityIndex        float64     `json:"quality_index"`
	ReworkTransitions   int         `json:"rework_transitions"`
	RecordsWithRework   int         `json:"records_with_rework"`
	TopFailureTypes     []CountItem `json:"top_failure_types"`
	TopRejectionReasons []CountItem `json:"top_rejection_reasons"`
}

// Quality computes rework and conformance rates and mines the change log for
// transitions into rework. Only log entries about records in the set count.
func Quality(records []edp.Record, log []edp.LogEntry, vocab *edp.Vocabulary, topN int) QualityMetrics {
	m := QualityMetrics{
		TotalRecords:        len(records),
		TopFailureTypes:     []CountItem{},
		TopRejectionReasons: []CountItem{},
	}
	known := make(map[string]struct{}, len(records)*2)
	reworked := make(map[string]struct{})
	failures := make(map[string]int)
	reasons := make(map[string]int)

	for i, r := range records {
		keys := recordKeys(r)
		for _, k := range keys {
			known[k] = struct{}{}
		}
		if r.Status == edp.StatusRework {
			m.ReworkCount++
			if len(keys) > 0 {
				reworked[keys[0]] = struct{}{}
			} else {
				reworked["#"+strconv.Itoa(i)] = struct{}{}
			}
		}
		if r.ConformanceSent {
			m.ConformanceCount++
		}
		if r.FailureType != "" {
			failures[edp.Lower(r.FailureType)]++
		}
		if r.RejectionReason != "" {
			reasons[edp.Lower(r.RejectionReason)]++
		}
	}

	aliases := canonicalKeys(records)
	for _, entry := range log {
		id := edp.Fold(entry.EntityID)
		if _, ok := known[id]; !ok || !entry.IsStatusChange() {
			continue
		}
		if vocab.Resolve(entry.NewValue) == edp.StatusRework && vocab.Resolve(entry.OldValue) != edp.StatusRework {
			m.ReworkTransitions++
			reworked[aliases[id]] = struct{}{}
		}
	}

	m.RecordsWithRework = len(reworked)
	if m.TotalRecords > 0 {
		rate := float64(m.ReworkCount) / float64(m.TotalRecords)
		m.ReworkRatePct = round1(rate * 100)
		m.ConformanceRatePct = countPct(m.ConformanceCount, m.TotalRecords)
		m.QualityIndex = round1(100 - rate*100)
	}
	m.TopFailureTypes = topCounts(failures, topN)
	m.TopRejectionReasons = topCounts(reasons, topN)
	return m
}

// recordKeys lists the identifiers a change-log entry may use for r, folded.
// The first key is canonical.
func recordKeys(r edp.Record) []string {
	var keys []string
	if r.Number != "" {
		keys = append(keys, edp.Fold(r.Number))
	}
	if r.ID != 0 {
		keys = append(keys, strconv.FormatInt(r.ID, 10))
	}
	return keys
}

func canonicalKeys(records []edp.Record) map[string]string {
	out := make(map[string]string, len(records)*2)
	for _, r := range records {
		keys := recordKeys(r)
		for _, k := range keys {
			out[k] = keys[0]
		}
	}
	return out
}

func topCounts(counts map[string]int, n int) []CountItem {
	out := make([]CountItem, 0, len(counts))
	for label, count := range counts {
		out = append(out, CountItem{Label: label, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Label < out[j].Label
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
