package analytics

import (
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pagora/pagora-edp/internal/edp"
)

// Observer receives stage timings.
type Observer interface {
	ObserveStage(stage string, elapsed time.Duration)
}

// PipelineOption customises a Pipeline.
type PipelineOption func(*Pipeline)

// WithObserver reports stage timings to o.
func WithObserver(o Observer) PipelineOption {
	return func(p *Pipeline) { p.observer = o }
}

// WithVocabulary overrides the status vocabulary used for normalization and
// change-log analysis.
func WithVocabulary(v *edp.Vocabulary) PipelineOption {
	return func(p *Pipeline) {
		if v != nil {
			p.vocab = v
		}
	}
}

// RawInput holds untyped rows per entity as returned by a data source.
type RawInput struct {
	EDP      []map[string]any
	Projects []map[string]any
	Costs    []map[string]any
	Log      []map[string]any
}

// Input is the normalized and derived record set the stages consume.
type Input struct {
	Records  []edp.Record
	Projects []edp.Project
	Costs    []edp.Cost
	Log      []edp.LogEntry
	Issues   []edp.FieldError
}

// Pipeline runs every aggregation stage over one filtered record set.
type Pipeline struct {
	cfg        Config
	vocab      *edp.Vocabulary
	normalizer *edp.Normalizer
	deriver    *edp.Deriver
	ranker     *Ranker
	forecaster *Forecaster
	observer   Observer
}

// NewPipeline validates cfg once; a pipeline never fails afterwards.
func NewPipeline(cfg Config, opts ...PipelineOption) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	ranker, err := NewRanker(cfg.RankingWeights())
	if err != nil {
		return nil, err
	}
	forecaster, err := NewForecaster(cfg)
	if err != nil {
		return nil, err
	}
	p := &Pipeline{
		cfg:        cfg,
		vocab:      edp.DefaultVocabulary(),
		deriver:    edp.NewDeriver(cfg.CriticalDays),
		ranker:     ranker,
		forecaster: forecaster,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.normalizer = edp.NewNormalizer(p.vocab)
	return p, nil
}

// Config returns the validated configuration.
func (p *Pipeline) Config() Config {
	return p.cfg
}

// Prepare normalizes raw rows and derives per-record fields against now.
func (p *Pipeline) Prepare(raw RawInput, now time.Time) Input {
	records, issues := p.normalizer.NormalizeAll(raw.EDP)
	projects, projectIssues := p.normalizer.NormalizeProjects(raw.Projects)
	costs, costIssues := p.normalizer.NormalizeCosts(raw.Costs)
	log, logIssues := p.normalizer.NormalizeLog(raw.Log)
	issues = append(issues, projectIssues...)
	issues = append(issues, costIssues...)
	issues = append(issues, logIssues...)
	return Input{
		Records:  p.deriver.DeriveAll(records, now),
		Projects: projects,
		Costs:    costs,
		Log:      log,
		Issues:   issues,
	}
}

// Compute is Prepare followed by Run.
func (p *Pipeline) Compute(raw RawInput, spec FilterSpec, now time.Time) KPISet {
	return p.Run(p.Prepare(raw, now), spec, now)
}

// Run filters the records and evaluates every stage. Independent stages run
// concurrently over the same read-only slice.
func (p *Pipeline) Run(in Input, spec FilterSpec, now time.Time) KPISet {
	started := time.Now()
	filtered := Apply(in.Records, spec, now)
	projects, costs := scopeProjects(in.Projects, in.Costs, filtered, spec)

	set := KPISet{
		GeneratedAt:     now.UTC(),
		Filter:          spec.CacheKey(),
		TotalRecords:    len(in.Records),
		FilteredRecords: len(filtered),
		FieldIssues:     len(in.Issues),
	}

	var g errgroup.Group
	g.Go(p.stage("financial", func() { set.Financial = Financial(filtered, p.cfg) }))
	g.Go(p.stage("operational", func() { set.Operational = Operational(filtered, p.cfg) }))
	g.Go(p.stage("quality", func() { set.Quality = Quality(filtered, in.Log, p.vocab, p.cfg.TopIssues) }))
	g.Go(p.stage("concentration", func() { set.Concentration = Concentration(filtered, p.cfg) }))
	g.Go(p.stage("managers", func() { set.Managers = Managers(filtered) }))
	g.Go(p.stage("forecast", func() { set.Forecast = p.forecaster.Forecast(filtered, now) }))
	g.Go(p.stage("trend", func() { set.Trend = Trend(filtered) }))
	g.Go(p.stage("costs", func() { set.Costs = Costs(costs, now) }))
	g.Go(p.stage("projects", func() { set.Projects = Projects(projects, filtered, costs, now) }))
	_ = g.Wait()

	p.stage("profitability", func() { set.Profitability = Profitability(filtered, set.Financial, p.cfg) })()
	p.stage("ranking", func() { set.Ranking = p.ranker.Rank(set.Managers.Managers) })()
	p.stage("charts", func() { set.Charts = BuildCharts(set) })()

	if p.observer != nil {
		p.observer.ObserveStage("total", time.Since(started))
	}
	return set
}

func (p *Pipeline) stage(name string, fn func()) func() error {
	return func() error {
		started := time.Now()
		fn()
		if p.observer != nil {
			p.observer.ObserveStage(name, time.Since(started))
		}
		return nil
	}
}

// scopeProjects keeps the projects and costs referenced by the filtered
// records. An empty filter keeps everything.
func scopeProjects(projects []edp.Project, costs []edp.Cost, filtered []edp.Record, spec FilterSpec) ([]edp.Project, []edp.Cost) {
	if spec.IsZero() {
		return projects, costs
	}
	names := make(map[string]struct{}, len(filtered))
	for _, r := range filtered {
		names[edp.Fold(r.Project)] = struct{}{}
	}
	ids := make(map[string]struct{})
	scoped := make([]edp.Project, 0, len(projects))
	for _, pr := range projects {
		_, byName := names[edp.Fold(pr.Name)]
		_, byID := names[edp.Fold(pr.ID)]
		if byName || byID {
			scoped = append(scoped, pr)
			ids[edp.Fold(pr.ID)] = struct{}{}
		}
	}
	scopedCosts := make([]edp.Cost, 0, len(costs))
	for _, c := range costs {
		key := edp.Fold(c.ProjectID)
		_, byID := ids[key]
		_, byName := names[key]
		if byID || byName {
			scopedCosts = append(scopedCosts, c)
		}
	}
	return scoped, scopedCosts
}
