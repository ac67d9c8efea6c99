package analytics

import (
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pagora/pagora-edp/internal/edp"
)

// QuickPeriods lists the accepted quick-period lengths in days.
var QuickPeriods = []int{7, 30, 90, 365}

// ValidQuickPeriod reports whether days is one of QuickPeriods.
func ValidQuickPeriod(days int) bool {
	for _, p := range QuickPeriods {
		if p == days {
			return true
		}
	}
	return false
}

// FilterSpec narrows the record set. Zero fields impose no constraint.
type FilterSpec struct {
	Start       time.Time           `json:"start"`
	End         time.Time           `json:"end"`
	QuickPeriod int                 `json:"quick_period"`
	Manager     string              `json:"manager"`
	Client      string              `json:"client"`
	Project     string              `json:"project"`
	Status      string              `json:"status"`
	Month       string              `json:"month"`
	MinAmount   decimal.NullDecimal `json:"min_amount"`
	MaxAmount   decimal.NullDecimal `json:"max_amount"`
	Search      string              `json:"search"`
}

// IsZero reports whether the spec constrains nothing.
func (f FilterSpec) IsZero() bool {
	return f.CacheKey() == ""
}

// Range resolves the effective emission-date window. A quick period wins over
// explicit dates.
func (f FilterSpec) Range(now time.Time) (start, end time.Time) {
	if f.QuickPeriod > 0 {
		today := civilDate(now)
		return today.AddDate(0, 0, -f.QuickPeriod), today
	}
	return civilDate(f.Start), civilDate(f.End)
}

// CacheKey serializes the spec canonically: equal specs yield equal keys and
// the empty spec yields "".
func (f FilterSpec) CacheKey() string {
	v := url.Values{}
	set := func(key, value string) {
		if value != "" {
			v.Set(key, value)
		}
	}
	if f.QuickPeriod > 0 {
		set("quick_period", strconv.Itoa(f.QuickPeriod))
	} else {
		if !f.Start.IsZero() {
			set("start", f.Start.Format(time.DateOnly))
		}
		if !f.End.IsZero() {
			set("end", f.End.Format(time.DateOnly))
		}
	}
	set("manager", edp.Fold(f.Manager))
	set("client", edp.Fold(f.Client))
	set("project", edp.Fold(f.Project))
	set("status", edp.Fold(f.Status))
	set("month", edp.Fold(f.Month))
	set("q", edp.Fold(f.Search))
	if f.MinAmount.Valid {
		set("min_amount", f.MinAmount.Decimal.String())
	}
	if f.MaxAmount.Valid {
		set("max_amount", f.MaxAmount.Decimal.String())
	}
	return v.Encode()
}

// Apply returns the records matching every constraint of spec. The input is
// never modified.
func Apply(records []edp.Record, spec FilterSpec, now time.Time) []edp.Record {
	m := newMatcher(spec, now)
	out := make([]edp.Record, 0, len(records))
	for _, r := range records {
		if m.match(r) {
			out = append(out, r)
		}
	}
	return out
}

type matcher struct {
	start, end                       time.Time
	manager, client, project, search string
	status, month                    string
	minAmount, maxAmount             decimal.NullDecimal
}

func newMatcher(spec FilterSpec, now time.Time) matcher {
	start, end := spec.Range(now)
	return matcher{
		start:     start,
		end:       end,
		manager:   edp.Fold(spec.Manager),
		client:    edp.Fold(spec.Client),
		project:   edp.Fold(spec.Project),
		search:    edp.Fold(spec.Search),
		status:    edp.Fold(spec.Status),
		month:     edp.Fold(spec.Month),
		minAmount: spec.MinAmount,
		maxAmount: spec.MaxAmount,
	}
}

func (m matcher) match(r edp.Record) bool {
	if !m.start.IsZero() || !m.end.IsZero() {
		if r.EmittedAt.IsZero() {
			return false
		}
		if !m.start.IsZero() && r.EmittedAt.Before(m.start) {
			return false
		}
		if !m.end.IsZero() && r.EmittedAt.After(m.end) {
			return false
		}
	}
	if !containsFolded(r.Manager, m.manager) || !containsFolded(r.Client, m.client) || !containsFolded(r.Project, m.project) {
		return false
	}
	if m.search != "" {
		hit := false
		for _, field := range []string{r.Number, r.Project, r.Client, r.Manager} {
			if containsFolded(field, m.search) {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	if m.status != "" && !statusMatches(r, m.status) {
		return false
	}
	if m.month != "" && edp.Fold(r.Month) != m.month {
		return false
	}
	amount := r.Approved()
	if m.minAmount.Valid && amount.LessThan(m.minAmount.Decimal) {
		return false
	}
	if m.maxAmount.Valid && amount.GreaterThan(m.maxAmount.Decimal) {
		return false
	}
	return true
}

func containsFolded(value, foldedNeedle string) bool {
	if foldedNeedle == "" {
		return true
	}
	return edp.ContainsFold(value, foldedNeedle)
}

// statusMatches accepts the status code, its label or the raw spreadsheet text.
func statusMatches(r edp.Record, folded string) bool {
	return folded == edp.Fold(string(r.Status)) ||
		folded == edp.Fold(r.Status.Label()) ||
		folded == edp.Fold(r.StatusText)
}

func civilDate(t time.Time) time.Time {
	if t.IsZero() {
		return time.Time{}
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
