// Package export renders a KPI set as CSV or as an Excel workbook.
package export

import (
	"sort"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/pagora/pagora-edp/internal/analytics"
)

// Table is one sheet of an export: a header plus rows of strings, numbers or
// decimals.
type Table struct {
	Name   string
	Header []string
	Rows   [][]any
}

// Table names, also used as worksheet names.
const (
	TableSummary  = "Resumen"
	TableAging    = "Aging"
	TableForecast = "Flujo"
	TableManagers = "Jefes"
	TableRanking  = "Ranking"
	TableClients  = "Clientes"
	TableTrend    = "Tendencia"
)

// Tables lays the KPI set out as export tables, summary first.
func Tables(set analytics.KPISet) []Table {
	return []Table{
		Summary(set),
		agingTable(set.Operational),
		forecastTable(set.Forecast),
		managersTable(set.Managers),
		rankingTable(set.Ranking),
		clientsTable(set.Concentration),
		trendTable(set.Trend),
	}
}

// Summary lists every scalar metric sorted by name.
func Summary(set analytics.KPISet) Table {
	flat := set.Flat()
	names := make([]string, 0, len(flat))
	for name := range flat {
		names = append(names, name)
	}
	sort.Strings(names)
	t := Table{Name: TableSummary, Header: []string{"Métrica", "Valor"}}
	t.Rows = append(t.Rows,
		[]any{"generated_at", set.GeneratedAt.Format("2006-01-02T15:04:05Z07:00")},
		[]any{"filter", set.Filter},
		[]any{"data_unavailable", strconv.FormatBool(set.DataUnavailable)},
	)
	for _, name := range names {
		t.Rows = append(t.Rows, []any{name, flat[name]})
	}
	return t
}

func agingTable(op analytics.OperationalMetrics) Table {
	t := Table{Name: TableAging, Header: []string{"Tramo", "EDPs", "Monto", "%"}}
	for _, b := range op.Buckets {
		t.Rows = append(t.Rows, []any{b.Label, b.Count, b.Amount, b.Pct})
	}
	return t
}

func forecastTable(f analytics.ForecastResult) Table {
	t := Table{Name: TableForecast, Header: []string{"Horizonte", "Alta", "Media", "Baja", "EDPs", "Ponderado"}}
	for _, b := range f.Buckets {
		t.Rows = append(t.Rows, []any{b.Label, b.High, b.Medium, b.Low, b.Count, b.Weighted})
	}
	t.Rows = append(t.Rows, []any{"Excluidos", nil, nil, nil, f.Excluded, f.ExcludedAmount})
	return t
}

func managersTable(m analytics.ManagerMetrics) Table {
	t := Table{Name: TableManagers, Header: []string{"Jefe de proyecto", "EDPs", "Pagados", "Monto pagado", "Monto pendiente", "DSO", "Críticos", "Eficiencia %"}}
	for _, s := range m.Managers {
		t.Rows = append(t.Rows, []any{s.Manager, s.Records, s.PaidCount, s.PaidAmount, s.PendingAmount, s.DSO, s.CriticalCount, s.EfficiencyPct})
	}
	return t
}

func rankingTable(entries []analytics.RankEntry) Table {
	t := Table{Name: TableRanking, Header: []string{"Posición", "Jefe de proyecto", "Puntaje", "Ingresos", "Eficiencia", "DSO"}}
	for _, e := range entries {
		t.Rows = append(t.Rows, []any{e.Position, e.Manager, e.Score, e.RevenueScore, e.EfficiencyScore, e.DSOScore})
	}
	return t
}

func clientsTable(c analytics.ConcentrationMetrics) Table {
	t := Table{Name: TableClients, Header: []string{"Cliente", "Monto", "% participación", "% acumulado"}}
	for _, s := range c.Clients {
		t.Rows = append(t.Rows, []any{s.Client, s.Amount, s.SharePct, s.CumulativePct})
	}
	return t
}

func trendTable(tr analytics.TrendMetrics) Table {
	t := Table{Name: TableTrend, Header: []string{"Mes", "EDPs", "Emitido", "Aprobado", "Cobrado", "Variación %"}}
	for _, p := range tr.Points {
		var variance any
		if p.VariancePct != nil {
			variance = *p.VariancePct
		}
		t.Rows = append(t.Rows, []any{p.Month, p.Count, p.Emitted, p.Approved, p.Collected, variance})
	}
	return t
}

// FormatCell renders a table cell as text. Missing values become empty strings.
func FormatCell(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case int:
		return strconv.Itoa(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case decimal.Decimal:
		return val.StringFixed(2)
	default:
		return ""
	}
}
