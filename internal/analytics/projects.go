package analytics

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pagora/pagora-edp/internal/edp"
)

// ProjectSummary joins a project with its billed revenue and supplier costs.
type ProjectSummary struct {
	ID             string           `json:"id"`
	Name           string           `json:"name"`
	State          edp.ProjectState `json:"state"`
	ElapsedPct     *float64         `json:"elapsed_pct"`
	ContractAmount decimal.Decimal  `json:"contract_amount"`
	Revenue        decimal.Decimal  `json:"revenue"`
	Cost           decimal.Decimal  `json:"cost"`
	Margin         decimal.Decimal  `json:"margin"`
	BilledPct      float64          `json:"billed_pct"`
}

// ProjectStateCount counts projects per schedule state.
type ProjectStateCount struct {
	State edp.ProjectState `json:"state"`
	Count int              `json:"count"`
}

// ProjectMetrics summarises the project portfolio.
type ProjectMetrics struct {
	Total          int                 `json:"total"`
	States         []ProjectStateCount `json:"states"`
	MeanElapsedPct float64             `json:"mean_elapsed_pct"`
	Projects       []ProjectSummary    `json:"projects"`
}

var projectStateOrder = []edp.ProjectState{edp.ProjectNotStarted, edp.ProjectInProgress, edp.ProjectOverdue, edp.ProjectUnknown}

// Projects derives schedule state and margin per project. Records match a
// project by name or id; costs match by project id.
func Projects(projects []edp.Project, records []edp.Record, costs []edp.Cost, now time.Time) ProjectMetrics {
	revenue := make(map[string]decimal.Decimal)
	for _, r := range records {
		key := edp.Fold(r.Project)
		revenue[key] = revenue[key].Add(r.Approved())
	}
	spent := make(map[string]decimal.Decimal)
	for _, c := range costs {
		key := edp.Fold(c.ProjectID)
		spent[key] = spent[key].Add(c.Amount())
	}

	m := ProjectMetrics{Total: len(projects), Projects: make([]ProjectSummary, 0, len(projects))}
	counts := make(map[edp.ProjectState]int)
	elapsedSum, elapsedN := 0.0, 0
	for _, p := range projects {
		p = edp.DeriveProject(p, now)
		counts[p.State]++
		if p.ElapsedPct != nil {
			elapsedSum += *p.ElapsedPct
			elapsedN++
		}
		billed := revenue[edp.Fold(p.Name)]
		if id := edp.Fold(p.ID); id != "" && id != edp.Fold(p.Name) {
			billed = billed.Add(revenue[id])
		}
		cost := spent[edp.Fold(p.ID)]
		contract := decimal.Zero
		if p.ContractAmount.Valid {
			contract = p.ContractAmount.Decimal
		}
		m.Projects = append(m.Projects, ProjectSummary{
			ID:             p.ID,
			Name:           p.Name,
			State:          p.State,
			ElapsedPct:     p.ElapsedPct,
			ContractAmount: contract,
			Revenue:        billed,
			Cost:           cost,
			Margin:         billed.Sub(cost),
			BilledPct:      pct(billed, contract),
		})
	}
	sort.Slice(m.Projects, func(i, j int) bool { return m.Projects[i].ID < m.Projects[j].ID })
	m.States = make([]ProjectStateCount, 0, len(projectStateOrder))
	for _, s := range projectStateOrder {
		m.States = append(m.States, ProjectStateCount{State: s, Count: counts[s]})
	}
	if elapsedN > 0 {
		m.MeanElapsedPct = round1(elapsedSum / float64(elapsedN))
	}
	return m
}
