package analytics

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pagora/pagora-edp/internal/edp"
)

// CostTypeTotal sums supplier costs of one type.
type CostTypeTotal struct {
	Type   string          `json:"type"`
	Amount decimal.Decimal `json:"amount"`
	Count  int             `json:"count"`
}

// CostMetrics summarises supplier invoices.
type CostMetrics struct {
	Count         int             `json:"count"`
	Gross         decimal.Decimal `json:"gross"`
	Net           decimal.Decimal `json:"net"`
	PaidAmount    decimal.Decimal `json:"paid_amount"`
	PendingAmount decimal.Decimal `json:"pending_amount"`
	OverdueAmount decimal.Decimal `json:"overdue_amount"`
	OverdueCount  int             `json:"overdue_count"`
	ByType        []CostTypeTotal `json:"by_type"`
}

// Costs totals supplier invoices. Pending invoices past their due date are overdue.
func Costs(costs []edp.Cost, now time.Time) CostMetrics {
	today := civilDate(now)
	m := CostMetrics{
		Count:         len(costs),
		Gross:         decimal.Zero,
		Net:           decimal.Zero,
		PaidAmount:    decimal.Zero,
		PendingAmount: decimal.Zero,
		OverdueAmount: decimal.Zero,
	}
	byType := make(map[string]*CostTypeTotal)
	for _, c := range costs {
		amount := c.Amount()
		if c.Gross.Valid {
			m.Gross = m.Gross.Add(c.Gross.Decimal)
		}
		m.Net = m.Net.Add(amount)
		if c.Status == edp.CostPaid {
			m.PaidAmount = m.PaidAmount.Add(amount)
		} else {
			m.PendingAmount = m.PendingAmount.Add(amount)
			if !c.DueDate.IsZero() && c.DueDate.Before(today) {
				m.OverdueCount++
				m.OverdueAmount = m.OverdueAmount.Add(amount)
			}
		}
		name := segmentName(edp.Lower(c.Type))
		t, ok := byType[name]
		if !ok {
			t = &CostTypeTotal{Type: name, Amount: decimal.Zero}
			byType[name] = t
		}
		t.Count++
		t.Amount = t.Amount.Add(amount)
	}
	m.ByType = make([]CostTypeTotal, 0, len(byType))
	for _, t := range byType {
		m.ByType = append(m.ByType, *t)
	}
	sort.Slice(m.ByType, func(i, j int) bool {
		if !m.ByType[i].Amount.Equal(m.ByType[j].Amount) {
			return m.ByType[i].Amount.GreaterThan(m.ByType[j].Amount)
		}
		return m.ByType[i].Type < m.ByType[j].Type
	})
	return m
}
