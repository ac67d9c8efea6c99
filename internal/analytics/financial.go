package analytics

import (
	"github.com/shopspring/decimal"

	"github.com/pagora/pagora-edp/internal/edp"
)

// FinancialMetrics summarises money in flight and collection speed.
type FinancialMetrics struct {
	PendingAmount         decimal.Decimal `json:"pending_amount"`
	CriticalPendingAmount decimal.Decimal `json:"critical_pending_amount"`
	EmittedAmount         decimal.Decimal `json:"emitted_amount"`
	CollectedAmount       decimal.Decimal `json:"collected_amount"`
	DelayCost             decimal.Decimal `json:"delay_cost"`
	DSO                   float64         `json:"dso"`
	CollectedPct          float64         `json:"collected_pct"`
	TotalRecords          int             `json:"total_records"`
	PendingCount          int             `json:"pending_count"`
	CompletedCount        int             `json:"completed_count"`
	CriticalCount         int             `json:"critical_count"`
	UnknownWaiting        int             `json:"unknown_waiting"`
}

// Financial computes the financial stage. Waiting days must already be derived.
func Financial(records []edp.Record, cfg Config) FinancialMetrics {
	m := FinancialMetrics{
		PendingAmount:         decimal.Zero,
		CriticalPendingAmount: decimal.Zero,
		EmittedAmount:         decimal.Zero,
		CollectedAmount:       decimal.Zero,
		DelayCost:             decimal.Zero,
		TotalRecords:          len(records),
	}
	dailyRate := decimal.NewFromFloat(cfg.AnnualRate).Div(decimal.NewFromInt(360))
	var completedWaits []int

	for _, r := range records {
		approved := r.Approved()
		m.EmittedAmount = m.EmittedAmount.Add(r.Proposed())
		if !r.HasWaiting() {
			m.UnknownWaiting++
		}
		switch {
		case r.Status.IsPending():
			m.PendingCount++
			m.PendingAmount = m.PendingAmount.Add(approved)
			if r.HasWaiting() && r.Waiting() >= cfg.CriticalPendingDays {
				m.CriticalPendingAmount = m.CriticalPendingAmount.Add(approved)
			}
		case r.Status.IsCompleted():
			m.CompletedCount++
			m.CollectedAmount = m.CollectedAmount.Add(approved)
			if r.HasWaiting() {
				completedWaits = append(completedWaits, max(r.Waiting(), 0))
			}
		}
		if r.Critical {
			m.CriticalCount++
			cost := approved.Mul(decimal.NewFromInt(int64(r.Waiting()))).Mul(dailyRate)
			m.DelayCost = m.DelayCost.Add(cost)
		}
	}

	m.DelayCost = m.DelayCost.Round(2)
	m.DSO = round1(meanInts(completedWaits))
	m.CollectedPct = pct(m.CollectedAmount, m.EmittedAmount)
	return m
}
