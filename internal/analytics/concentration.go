package analytics

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/pagora/pagora-edp/internal/edp"
)

// ClientShare is one point of the Pareto curve.
type ClientShare struct {
	Client        string          `json:"client"`
	Amount        decimal.Decimal `json:"amount"`
	SharePct      float64         `json:"share_pct"`
	CumulativePct float64         `json:"cumulative_pct"`
}

// ConcentrationMetrics describes how revenue concentrates on few clients.
type ConcentrationMetrics struct {
	Clients         []ClientShare   `json:"clients"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	TopN            int             `json:"top_n"`
	TopNSharePct    float64         `json:"top_n_share_pct"`
	ClientsToPareto int             `json:"clients_to_pareto"`
	HHI             float64         `json:"hhi"`
}

// Concentration groups approved amounts by client, largest first.
func Concentration(records []edp.Record, cfg Config) ConcentrationMetrics {
	totals := make(map[string]decimal.Decimal)
	grand := decimal.Zero
	for _, r := range records {
		name := segmentName(r.Client)
		amount := r.Approved()
		totals[name] = totals[name].Add(amount)
		grand = grand.Add(amount)
	}

	clients := make([]ClientShare, 0, len(totals))
	for name, amount := range totals {
		clients = append(clients, ClientShare{Client: name, Amount: amount})
	}
	sort.Slice(clients, func(i, j int) bool {
		if !clients[i].Amount.Equal(clients[j].Amount) {
			return clients[i].Amount.GreaterThan(clients[j].Amount)
		}
		return clients[i].Client < clients[j].Client
	})

	m := ConcentrationMetrics{Clients: clients, TotalAmount: grand, TopN: cfg.TopClients}
	if grand.IsZero() {
		return m
	}
	cumulative := decimal.Zero
	topN := decimal.Zero
	hhi := 0.0
	for i := range clients {
		share := clients[i].Amount.Div(grand).Mul(hundred)
		cumulative = cumulative.Add(clients[i].Amount)
		clients[i].SharePct = round1(share.InexactFloat64())
		clients[i].CumulativePct = pct(cumulative, grand)
		if i < cfg.TopClients {
			topN = topN.Add(clients[i].Amount)
		}
		if m.ClientsToPareto == 0 && cumulative.Div(grand).Mul(hundred).InexactFloat64() >= cfg.ParetoThreshold {
			m.ClientsToPareto = i + 1
		}
		s := share.InexactFloat64()
		hhi += s * s
	}
	m.TopNSharePct = pct(topN, grand)
	m.HHI = round1(hhi)
	return m
}
