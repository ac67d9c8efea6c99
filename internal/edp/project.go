package edp

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// ProjectState summarizes schedule progress.
type ProjectState string

const (
	ProjectNotStarted ProjectState = "not_started"
	ProjectInProgress ProjectState = "in_progress"
	ProjectOverdue    ProjectState = "overdue"
	ProjectUnknown    ProjectState = "unknown"
)

// Project is a contract the EDPs bill against.
type Project struct {
	ID             string              `json:"id"`
	Name           string              `json:"name"`
	Client         string              `json:"client"`
	Manager        string              `json:"manager"`
	ContractAmount decimal.NullDecimal `json:"contract_amount"`
	Currency       string              `json:"currency"`
	StartDate      time.Time           `json:"start_date"`
	ExpectedEnd    time.Time           `json:"expected_end"`
	ElapsedPct     *float64            `json:"elapsed_pct"`
	State          ProjectState        `json:"state"`
}

var projectColumns = map[string][]string{
	"id":       {"id", "id_proyecto", "project_id", "codigo"},
	"name":     {"proyecto", "nombre", "nombre_proyecto", "name"},
	"client":   {"cliente", "client", "mandante"},
	"manager":  {"jefe_proyecto", "jefe_de_proyecto", "manager"},
	"amount":   {"monto_contrato", "monto_contratado", "contract_amount", "monto"},
	"currency": {"moneda", "currency"},
	"start":    {"fecha_inicio", "inicio", "start_date"},
	"end":      {"fecha_fin_prevista", "fecha_termino", "fecha_fin", "expected_end"},
}

// NormalizeProjects converts project rows, collecting field issues.
func (n *Normalizer) NormalizeProjects(rows []map[string]any) ([]Project, []FieldError) {
	out := make([]Project, 0, len(rows))
	var issues []FieldError
	for i, row := range rows {
		f := foldRow(row)
		var p Project
		v, _, _ := f.lookup(projectColumns["id"])
		p.ID = parseText(v)
		v, _, _ = f.lookup(projectColumns["name"])
		p.Name = parseText(v)
		v, _, _ = f.lookup(projectColumns["client"])
		p.Client = parseText(v)
		v, _, _ = f.lookup(projectColumns["manager"])
		p.Manager = parseText(v)
		v, _, _ = f.lookup(projectColumns["currency"])
		p.Currency = parseText(v)

		v, _, _ = f.lookup(projectColumns["amount"])
		amount, err := parseMoney(v)
		if err != nil {
			issues = append(issues, FieldError{Row: i, Field: "monto_contrato", Value: v, Err: err})
		}
		p.ContractAmount = amount

		v, _, _ = f.lookup(projectColumns["start"])
		if p.StartDate, err = parseDate(v); err != nil {
			issues = append(issues, FieldError{Row: i, Field: "fecha_inicio", Value: v, Err: err})
		}
		v, _, _ = f.lookup(projectColumns["end"])
		if p.ExpectedEnd, err = parseDate(v); err != nil {
			issues = append(issues, FieldError{Row: i, Field: "fecha_fin_prevista", Value: v, Err: err})
		}
		out = append(out, p)
	}
	return out, issues
}

// DeriveProject fills schedule progress relative to now.
func DeriveProject(p Project, now time.Time) Project {
	ref := dateOnly(now)
	p.ElapsedPct = nil
	switch {
	case p.StartDate.IsZero():
		p.State = ProjectUnknown
	case ref.Before(p.StartDate):
		p.State = ProjectNotStarted
	case !p.ExpectedEnd.IsZero() && ref.After(p.ExpectedEnd):
		p.State = ProjectOverdue
	default:
		p.State = ProjectInProgress
	}
	if !p.StartDate.IsZero() && p.ExpectedEnd.After(p.StartDate) {
		total := p.ExpectedEnd.Sub(p.StartDate).Hours()
		elapsed := ref.Sub(p.StartDate).Hours()
		pct := math.Max(0, math.Min(100, elapsed/total*100))
		pct = math.Round(pct*10) / 10
		p.ElapsedPct = &pct
	}
	return p
}
