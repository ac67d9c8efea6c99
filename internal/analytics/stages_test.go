package analytics

import (
	"encoding/json"
	"maps"
	"slices"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/pagora/pagora-edp/internal/edp"
)

func requireAmount(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.Truef(t, got.Equal(decimal.RequireFromString(want)), "want %s, got %s", want, got)
}

func money64(v int64) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.NewFromInt(v))
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// qualityRecords adds a rework record from a third manager to the scenario.
func qualityRecords() []edp.Record {
	rework := rec("4", "Carla", "Falabella", edp.StatusRework, 400_000, intPtr(10))
	rework.ConformanceSent = true
	rework.FailureType = "Documentación"
	rework.RejectionReason = "Falta firma"
	return append(scenarioRecords(), rework)
}

func stageCosts() []edp.Cost {
	return []edp.Cost{
		{ID: "c1", ProjectID: "P1", Type: "Personal", Net: money64(300), Gross: money64(357), Status: edp.CostPaid},
		{ID: "c2", ProjectID: "P1", Type: "personal", Net: money64(200), Status: edp.CostPending, DueDate: day(2024, time.February, 15)},
		{ID: "c3", ProjectID: "P2", Gross: money64(100), Status: edp.CostPending, DueDate: day(2024, time.March, 10)},
	}
}

func stageProjects() []edp.Project {
	return []edp.Project{
		{ID: "P3", Name: "Puerto"},
		{ID: "P1", Name: "Mina", ContractAmount: money64(2000), StartDate: day(2024, time.January, 1), ExpectedEnd: day(2024, time.December, 31)},
		{ID: "P2", Name: "Red", StartDate: day(2023, time.January, 1), ExpectedEnd: day(2023, time.December, 31)},
	}
}

func TestQualityRatesAndTransitions(t *testing.T) {
	log := []edp.LogEntry{
		{EntityID: "4", Field: "Estado", OldValue: "enviado", NewValue: "re-trabajo"},
		{EntityID: "2", Field: "estado", OldValue: "enviado", NewValue: "re-trabajo solicitado"},
		{EntityID: "99", Field: "estado", OldValue: "enviado", NewValue: "re-trabajo"},
		{EntityID: "3", Field: "monto_aprobado", OldValue: "1", NewValue: "re-trabajo"},
		{EntityID: "1", Field: "estado", OldValue: "re-trabajo", NewValue: "retrabajo"},
	}
	q := Quality(qualityRecords(), log, edp.DefaultVocabulary(), 5)

	require.Equal(t, 4, q.TotalRecords)
	require.Equal(t, 1, q.ReworkCount)
	require.Equal(t, 25.0, q.ReworkRatePct)
	require.Equal(t, 1, q.ConformanceCount)
	require.Equal(t, 25.0, q.ConformanceRatePct)
	require.Equal(t, 75.0, q.QualityIndex)
	// unknown ids, other fields and rework-to-rework moves do not count
	require.Equal(t, 2, q.ReworkTransitions)
	require.Equal(t, 2, q.RecordsWithRework)
	require.Equal(t, []CountItem{{Label: "documentación", Count: 1}}, q.TopFailureTypes)
	require.Equal(t, []CountItem{{Label: "falta firma", Count: 1}}, q.TopRejectionReasons)

	empty := Quality(nil, log, edp.DefaultVocabulary(), 5)
	require.Zero(t, empty.ReworkTransitions)
	require.Zero(t, empty.QualityIndex)
	require.NotNil(t, empty.TopFailureTypes)
}

func TestTopCountsOrdersAndTruncates(t *testing.T) {
	got := topCounts(map[string]int{"b": 2, "a": 2, "c": 5, "d": 1}, 3)
	require.Equal(t, []CountItem{{"c", 5}, {"a", 2}, {"b", 2}}, got)
	require.Len(t, topCounts(map[string]int{"a": 1, "b": 1}, 0), 2)
}

func TestConcentrationPareto(t *testing.T) {
	cases := []struct {
		name      string
		topN      int
		wantShare float64
	}{
		{name: "top three", topN: 3, wantShare: 100},
		{name: "top one", topN: 1, wantShare: 51.3},
		{name: "top two", topN: 2, wantShare: 89.7},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.TopClients = tc.topN
			c := Concentration(qualityRecords(), cfg)

			requireAmount(t, "3900000", c.TotalAmount)
			require.Len(t, c.Clients, 3)
			wantClients := []string{"Enel", "Codelco", "Falabella"}
			wantShares := []float64{51.3, 38.5, 10.3}
			wantCumulative := []float64{51.3, 89.7, 100}
			for i, cl := range c.Clients {
				require.Equal(t, wantClients[i], cl.Client)
				require.Equal(t, wantShares[i], cl.SharePct, cl.Client)
				require.Equal(t, wantCumulative[i], cl.CumulativePct, cl.Client)
			}
			requireAmount(t, "1500000", c.Clients[1].Amount)
			require.Equal(t, tc.topN, c.TopN)
			require.Equal(t, tc.wantShare, c.TopNSharePct)
			require.Equal(t, 2, c.ClientsToPareto)
			// (2² + 1.5² + 0.4²) / 3.9² * 10000
			require.Equal(t, 4214.3, c.HHI)
		})
	}

	none := Concentration(nil, DefaultConfig())
	require.NotNil(t, none.Clients)
	require.Zero(t, none.TopNSharePct)
	require.Zero(t, none.ClientsToPareto)
}

func TestProfitabilityCostModel(t *testing.T) {
	cfg := DefaultConfig()
	cases := []struct {
		name           string
		records        []edp.Record
		revenue        string
		personnel      string
		overhead       string
		technology     string
		delay          string
		total          string
		margin         string
		factor         float64
		avgCycle       float64
		pct            float64
		roi            float64
		wantByManagers []SegmentProfit
	}{
		{
			name:    "within target cycle",
			records: scenarioRecords(),
			revenue: "3500000",
			// 0.35, 0.15 and 0.08 of revenue
			personnel:  "1225000",
			overhead:   "525000",
			technology: "280000",
			// 2.000.000 * 40 * 0.12 / 360 on the only critical record
			delay:    "26666.67",
			total:    "2056666.67",
			margin:   "1443333.33",
			factor:   1,
			avgCycle: 23.3,
			pct:      41.2,
			roi:      70.2,
			wantByManagers: []SegmentProfit{
				{Name: "Ana", Revenue: decimal.NewFromInt(3_000_000), Margin: decimal.RequireFromString("1233333.33"), ProfitabilityPct: 41.1},
				{Name: "Bruno", Revenue: decimal.NewFromInt(500_000), Margin: decimal.NewFromInt(210_000), ProfitabilityPct: 42},
			},
		},
		{
			name: "slow collection inflates personnel",
			records: []edp.Record{
				rec("1", "Ana", "Codelco", edp.StatusPaid, 1_000_000, intPtr(60)),
				rec("2", "Ana", "Codelco", edp.StatusPaid, 1_000_000, intPtr(30)),
			},
			revenue: "2000000",
			// 45 / 30 days
			personnel:  "1050000",
			overhead:   "300000",
			technology: "160000",
			delay:      "0",
			total:      "1510000",
			margin:     "490000",
			factor:     1.5,
			avgCycle:   45,
			pct:        24.5,
			roi:        32.5,
			wantByManagers: []SegmentProfit{
				{Name: "Ana", Revenue: decimal.NewFromInt(2_000_000), Margin: decimal.NewFromInt(490_000), ProfitabilityPct: 24.5},
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := Profitability(tc.records, Financial(tc.records, cfg), cfg)
			requireAmount(t, tc.revenue, p.Revenue)
			requireAmount(t, tc.personnel, p.Costs.Personnel)
			requireAmount(t, tc.overhead, p.Costs.Overhead)
			requireAmount(t, tc.technology, p.Costs.Technology)
			requireAmount(t, tc.delay, p.Costs.DelayCost)
			requireAmount(t, tc.total, p.Costs.Total)
			requireAmount(t, tc.margin, p.Margin)
			require.Equal(t, tc.factor, p.Costs.InefficiencyFactor)
			require.Equal(t, tc.avgCycle, p.AvgCycleDays)
			require.Equal(t, tc.pct, p.ProfitabilityPct)
			require.Equal(t, tc.roi, p.ROIPct)

			require.Len(t, p.ByManager, len(tc.wantByManagers))
			for i, want := range tc.wantByManagers {
				got := p.ByManager[i]
				require.Equal(t, want.Name, got.Name)
				requireAmount(t, want.Revenue.String(), got.Revenue)
				requireAmount(t, want.Margin.String(), got.Margin)
				require.Equal(t, want.ProfitabilityPct, got.ProfitabilityPct, want.Name)
			}
		})
	}

	empty := Profitability(nil, Financial(nil, cfg), cfg)
	require.Zero(t, empty.ProfitabilityPct)
	require.Zero(t, empty.ROIPct)
	require.Equal(t, 1.0, empty.Costs.InefficiencyFactor)
}

func TestManagersSummary(t *testing.T) {
	m := Managers(scenarioRecords())
	require.Len(t, m.Managers, 2)

	ana, bruno := m.Managers[0], m.Managers[1]
	require.Equal(t, "Ana", ana.Manager)
	require.Equal(t, 1, ana.DSOSamples)
	require.Equal(t, 20.0, ana.DSO)
	require.Equal(t, 50.0, ana.EfficiencyPct)
	require.Equal(t, "Bruno", bruno.Manager)
	require.Zero(t, bruno.DSOSamples)
	require.Zero(t, bruno.DSO)

	cases := []struct {
		name string
		got  Spread
		want Spread
	}{
		{"records", m.Summary.Records, Spread{Mean: 1.5, Min: 1, Max: 2}},
		{"paid amount", m.Summary.PaidAmount, Spread{Mean: 500_000, Min: 0, Max: 1_000_000}},
		{"pending amount", m.Summary.PendingAmount, Spread{Mean: 1_250_000, Min: 500_000, Max: 2_000_000}},
		// Bruno has nothing collected and stays out of the DSO spread
		{"dso", m.Summary.DSO, Spread{Mean: 20, Min: 20, Max: 20}},
		{"critical count", m.Summary.CriticalCount, Spread{Mean: 0.5, Min: 0, Max: 1}},
		{"efficiency", m.Summary.EfficiencyPct, Spread{Mean: 25, Min: 0, Max: 50}},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, tc.got, tc.name)
	}

	require.Equal(t, ManagerSummary{}, Managers(nil).Summary)
}

func TestRankingWithoutCollectedRecords(t *testing.T) {
	rk, err := NewRanker(DefaultConfig().RankingWeights())
	require.NoError(t, err)

	ranked := rk.Rank(Managers(scenarioRecords()).Managers)
	require.Len(t, ranked, 2)
	// 0.4*100 + 0.3*50 + 0.3*(100-20)
	require.Equal(t, RankEntry{Manager: "Ana", Score: 79, Position: 1, RevenueScore: 100, EfficiencyScore: 50, DSOScore: 80}, ranked[0])
	require.Equal(t, RankEntry{Manager: "Bruno", Score: 0, Position: 2}, ranked[1])
}

func TestCostsTotals(t *testing.T) {
	c := Costs(stageCosts(), testNow)

	require.Equal(t, 3, c.Count)
	requireAmount(t, "457", c.Gross)
	requireAmount(t, "600", c.Net)
	requireAmount(t, "300", c.PaidAmount)
	requireAmount(t, "300", c.PendingAmount)
	requireAmount(t, "200", c.OverdueAmount)
	require.Equal(t, 1, c.OverdueCount)

	require.Len(t, c.ByType, 2)
	require.Equal(t, "personal", c.ByType[0].Type)
	require.Equal(t, 2, c.ByType[0].Count)
	requireAmount(t, "500", c.ByType[0].Amount)
	require.Equal(t, "Sin asignar", c.ByType[1].Type)
	require.Equal(t, 1, c.ByType[1].Count)
	requireAmount(t, "100", c.ByType[1].Amount)

	// due today is not overdue yet
	dueToday := Costs([]edp.Cost{{Net: money64(10), Status: edp.CostPending, DueDate: day(2024, time.March, 1)}}, testNow)
	require.Zero(t, dueToday.OverdueCount)
}

func TestProjectsJoinRevenueAndCosts(t *testing.T) {
	mina := rec("1", "Ana", "Codelco", edp.StatusPaid, 1000, intPtr(20))
	mina.Project = "mina"
	byID := rec("2", "Ana", "Enel", edp.StatusSent, 500, intPtr(5))
	byID.Project = "P2"

	m := Projects(stageProjects(), []edp.Record{mina, byID}, stageCosts(), testNow)

	require.Equal(t, 3, m.Total)
	require.Equal(t, []ProjectStateCount{
		{State: edp.ProjectNotStarted, Count: 0},
		{State: edp.ProjectInProgress, Count: 1},
		{State: edp.ProjectOverdue, Count: 1},
		{State: edp.ProjectUnknown, Count: 1},
	}, m.States)
	// (16.4 + 100) / 2
	require.Equal(t, 58.2, m.MeanElapsedPct)

	cases := []struct {
		id, name   string
		state      edp.ProjectState
		elapsed    *float64
		revenue    string
		cost       string
		margin     string
		billedPct  float64
		contracted string
	}{
		{"P1", "Mina", edp.ProjectInProgress, ptrFloat(16.4), "1000", "500", "500", 50, "2000"},
		{"P2", "Red", edp.ProjectOverdue, ptrFloat(100), "500", "100", "400", 0, "0"},
		{"P3", "Puerto", edp.ProjectUnknown, nil, "0", "0", "0", 0, "0"},
	}
	require.Len(t, m.Projects, len(cases))
	for i, tc := range cases {
		got := m.Projects[i]
		require.Equal(t, tc.id, got.ID)
		require.Equal(t, tc.name, got.Name)
		require.Equal(t, tc.state, got.State, tc.id)
		require.Equal(t, tc.elapsed, got.ElapsedPct, tc.id)
		requireAmount(t, tc.revenue, got.Revenue)
		requireAmount(t, tc.cost, got.Cost)
		requireAmount(t, tc.margin, got.Margin)
		requireAmount(t, tc.contracted, got.ContractAmount)
		require.Equal(t, tc.billedPct, got.BilledPct, tc.id)
	}
}

func ptrFloat(v float64) *float64 { return &v }

// requireSameShape fails when got has a different key set than want at any
// object level. Arrays are compared through their first element.
func requireSameShape(t *testing.T, path string, want, got any) {
	t.Helper()
	switch w := want.(type) {
	case map[string]any:
		g, ok := got.(map[string]any)
		require.Truef(t, ok, "%s: object became %T", path, got)
		require.Equal(t, slices.Sorted(maps.Keys(w)), slices.Sorted(maps.Keys(g)), path)
		for k, v := range w {
			requireSameShape(t, path+"."+k, v, g[k])
		}
	case []any:
		g, ok := got.([]any)
		require.Truef(t, ok, "%s: array became %T", path, got)
		if len(w) > 0 && len(g) > 0 {
			requireSameShape(t, path+"[0]", w[0], g[0])
		}
	default:
		switch got.(type) {
		case map[string]any, []any:
			t.Fatalf("%s: %T became %T", path, want, got)
		}
	}
}

func decodeJSON(t *testing.T, v any) map[string]any {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestEmptyAndPopulatedSetsShareKeys(t *testing.T) {
	p, err := NewPipeline(DefaultConfig())
	require.NoError(t, err)

	empty := decodeJSON(t, p.Compute(RawInput{}, FilterSpec{}, testNow))
	full := decodeJSON(t, p.Run(Input{
		Records:  qualityRecords(),
		Projects: stageProjects(),
		Costs:    stageCosts(),
		Log:      []edp.LogEntry{{EntityID: "2", Field: "estado", OldValue: "enviado", NewValue: "re-trabajo"}},
	}, FilterSpec{}, testNow))

	stages := []string{"financial", "operational", "profitability", "quality", "concentration",
		"managers", "ranking", "forecast", "trend", "costs", "projects", "charts"}
	for _, stage := range stages {
		t.Run(stage, func(t *testing.T) {
			require.Contains(t, empty, stage)
			require.Contains(t, full, stage)
			requireSameShape(t, stage, empty[stage], full[stage])
		})
	}
	requireSameShape(t, "set", empty, full)
}
