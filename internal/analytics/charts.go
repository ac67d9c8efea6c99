package analytics

import (
	"github.com/shopspring/decimal"

	"github.com/pagora/pagora-edp/internal/analytics/series"
)

// Chart names exposed by BuildCharts.
const (
	ChartAging         = "aging"
	ChartForecast      = "forecast"
	ChartConcentration = "concentration"
	ChartManagers      = "managers"
	ChartRanking       = "ranking"
	ChartTrend         = "trend"
	ChartQuality       = "quality"
)

// ChartNames lists every chart in a stable order.
var ChartNames = []string{ChartAging, ChartForecast, ChartConcentration, ChartManagers, ChartRanking, ChartTrend, ChartQuality}

// BuildCharts reshapes the stage outputs into chart series. Every name in
// ChartNames is always present.
func BuildCharts(set KPISet) map[string]series.Chart {
	return map[string]series.Chart{
		ChartAging:         AgingChart(set.Operational),
		ChartForecast:      ForecastChart(set.Forecast),
		ChartConcentration: ConcentrationChart(set.Concentration),
		ChartManagers:      ManagersChart(set.Managers),
		ChartRanking:       RankingChart(set.Ranking),
		ChartTrend:         TrendChart(set.Trend),
		ChartQuality:       QualityChart(set.Quality),
	}
}

func money(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}

// AgingChart plots pending counts and amounts per aging bucket.
func AgingChart(op OperationalMetrics) series.Chart {
	labels := make([]string, len(op.Buckets))
	counts := make([]float64, len(op.Buckets))
	amounts := make([]float64, len(op.Buckets))
	for i, b := range op.Buckets {
		labels[i] = b.Label
		counts[i] = float64(b.Count)
		amounts[i] = money(b.Amount)
	}
	c := series.New(labels...)
	c.AddFloats("EDPs pendientes", counts)
	c.AddFloats("Monto pendiente", amounts)
	return c
}

// ForecastChart stacks tier amounts per horizon.
func ForecastChart(f ForecastResult) series.Chart {
	labels := make([]string, len(f.Buckets))
	high := make([]float64, len(f.Buckets))
	medium := make([]float64, len(f.Buckets))
	low := make([]float64, len(f.Buckets))
	for i, b := range f.Buckets {
		labels[i] = b.Label
		high[i] = money(b.High)
		medium[i] = money(b.Medium)
		low[i] = money(b.Low)
	}
	c := series.New(labels...)
	c.AddFloats("Probabilidad alta", high)
	c.AddFloats("Probabilidad media", medium)
	c.AddFloats("Probabilidad baja", low)
	return c
}

// ConcentrationChart is the Pareto view: amount bars plus the cumulative share.
func ConcentrationChart(m ConcentrationMetrics) series.Chart {
	labels := make([]string, len(m.Clients))
	amounts := make([]float64, len(m.Clients))
	cumulative := make([]float64, len(m.Clients))
	for i, cl := range m.Clients {
		labels[i] = cl.Client
		amounts[i] = money(cl.Amount)
		cumulative[i] = cl.CumulativePct
	}
	c := series.New(labels...)
	c.AddFloats("Monto aprobado", amounts)
	c.AddFloats("% acumulado", cumulative)
	return c
}

// ManagersChart compares paid and pending amounts per manager.
func ManagersChart(m ManagerMetrics) series.Chart {
	labels := make([]string, len(m.Managers))
	paid := make([]float64, len(m.Managers))
	pending := make([]float64, len(m.Managers))
	for i, s := range m.Managers {
		labels[i] = s.Manager
		paid[i] = money(s.PaidAmount)
		pending[i] = money(s.PendingAmount)
	}
	c := series.New(labels...)
	c.AddFloats("Pagado", paid)
	c.AddFloats("Pendiente", pending)
	return c
}

// RankingChart plots composite scores in ranking order.
func RankingChart(entries []RankEntry) series.Chart {
	points := make([]series.Point, len(entries))
	for i, e := range entries {
		points[i] = series.Point{Label: e.Manager, Value: series.Value(e.Score)}
	}
	return series.FromPoints("Puntaje", points)
}

// TrendChart plots monthly amounts; the variance line has gaps where undefined.
func TrendChart(t TrendMetrics) series.Chart {
	labels := make([]string, len(t.Points))
	emitted := make([]float64, len(t.Points))
	approved := make([]float64, len(t.Points))
	collected := make([]float64, len(t.Points))
	variance := make([]*float64, len(t.Points))
	for i, p := range t.Points {
		labels[i] = p.Month
		emitted[i] = money(p.Emitted)
		approved[i] = money(p.Approved)
		collected[i] = money(p.Collected)
		variance[i] = p.VariancePct
	}
	c := series.New(labels...)
	c.AddFloats("Emitido", emitted)
	c.AddFloats("Aprobado", approved)
	c.AddFloats("Cobrado", collected)
	c.Add("Variación %", variance)
	return c
}

// QualityChart tallies the most frequent failure types.
func QualityChart(q QualityMetrics) series.Chart {
	points := make([]series.Point, len(q.TopFailureTypes))
	for i, item := range q.TopFailureTypes {
		points[i] = series.Point{Label: item.Label, Value: series.Value(float64(item.Count))}
	}
	return series.FromPoints("Fallas", points)
}
