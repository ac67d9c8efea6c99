package analytics

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidConfig is wrapped by every configuration failure.
var ErrInvalidConfig = errors.New("analytics: invalid config")

// ConfigError names the offending setting.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("analytics: invalid config %s: %s", e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() error {
	return ErrInvalidConfig
}

// Config carries every tunable of the KPI engine. Loaded from the environment
// under the KPI_ prefix by app.LoadConfig.
type Config struct {
	CriticalDays        int     `envconfig:"CRITICAL_DAYS" default:"30" validate:"gt=0"`
	CriticalPendingDays int     `envconfig:"CRITICAL_PENDING_DAYS" default:"30" validate:"gt=0"`
	AnnualRate          float64 `envconfig:"ANNUAL_RATE" default:"0.12" validate:"gte=0,lte=1"`
	AgingEdges          []int   `envconfig:"AGING_EDGES" default:"15,30,60" validate:"min=1,dive,gt=0"`

	TargetCycleDays  float64 `envconfig:"TARGET_CYCLE_DAYS" default:"30" validate:"gt=0"`
	PersonnelWeight  float64 `envconfig:"PERSONNEL_WEIGHT" default:"0.35" validate:"gte=0,lte=1"`
	OverheadWeight   float64 `envconfig:"OVERHEAD_WEIGHT" default:"0.15" validate:"gte=0,lte=1"`
	TechnologyWeight float64 `envconfig:"TECHNOLOGY_WEIGHT" default:"0.08" validate:"gte=0,lte=1"`

	ForecastHorizons     []int   `envconfig:"FORECAST_HORIZONS" default:"30,60,90" validate:"min=1,dive,gt=0"`
	ForecastHighWeight   float64 `envconfig:"FORECAST_HIGH_WEIGHT" default:"0.9" validate:"gte=0,lte=1"`
	ForecastMediumWeight float64 `envconfig:"FORECAST_MEDIUM_WEIGHT" default:"0.7" validate:"gte=0,lte=1"`
	ForecastLowWeight    float64 `envconfig:"FORECAST_LOW_WEIGHT" default:"0.5" validate:"gte=0,lte=1"`
	HighTierDays         int     `envconfig:"HIGH_TIER_DAYS" default:"15" validate:"gt=0"`
	MediumTierDays       int     `envconfig:"MEDIUM_TIER_DAYS" default:"30" validate:"gt=0"`

	RankingRevenueWeight    float64 `envconfig:"RANKING_REVENUE_WEIGHT" default:"0.4" validate:"gte=0,lte=1"`
	RankingEfficiencyWeight float64 `envconfig:"RANKING_EFFICIENCY_WEIGHT" default:"0.3" validate:"gte=0,lte=1"`
	RankingDSOWeight        float64 `envconfig:"RANKING_DSO_WEIGHT" default:"0.3" validate:"gte=0,lte=1"`

	TopClients      int     `envconfig:"TOP_CLIENTS" default:"3" validate:"gt=0"`
	ParetoThreshold float64 `envconfig:"PARETO_THRESHOLD" default:"80" validate:"gt=0,lte=100"`
	TopIssues       int     `envconfig:"TOP_ISSUES" default:"5" validate:"gt=0"`
}

// DefaultConfig mirrors the envconfig defaults for callers that skip the environment.
func DefaultConfig() Config {
	return Config{
		CriticalDays:            30,
		CriticalPendingDays:     30,
		AnnualRate:              0.12,
		AgingEdges:              []int{15, 30, 60},
		TargetCycleDays:         30,
		PersonnelWeight:         0.35,
		OverheadWeight:          0.15,
		TechnologyWeight:        0.08,
		ForecastHorizons:        []int{30, 60, 90},
		ForecastHighWeight:      0.9,
		ForecastMediumWeight:    0.7,
		ForecastLowWeight:       0.5,
		HighTierDays:            15,
		MediumTierDays:          30,
		RankingRevenueWeight:    0.4,
		RankingEfficiencyWeight: 0.3,
		RankingDSOWeight:        0.3,
		TopClients:              3,
		ParetoThreshold:         80,
		TopIssues:               5,
	}
}

var configValidator = validator.New()

// Validate checks field ranges and the cross-field rules the tags cannot express.
func (c Config) Validate() error {
	if err := configValidator.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return &ConfigError{Field: fe.Field(), Reason: fmt.Sprintf("failed %q (%s)", fe.Tag(), fe.Param())}
		}
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if !strictlyIncreasing(c.AgingEdges) {
		return &ConfigError{Field: "AgingEdges", Reason: "must be strictly increasing"}
	}
	if !strictlyIncreasing(c.ForecastHorizons) {
		return &ConfigError{Field: "ForecastHorizons", Reason: "must be strictly increasing"}
	}
	if c.HighTierDays > c.MediumTierDays {
		return &ConfigError{Field: "HighTierDays", Reason: "must not exceed MediumTierDays"}
	}
	if err := c.RankingWeights().validate(); err != nil {
		return err
	}
	return nil
}

// RankingWeights extracts the ranker weights.
func (c Config) RankingWeights() RankingWeights {
	return RankingWeights{
		Revenue:    c.RankingRevenueWeight,
		Efficiency: c.RankingEfficiencyWeight,
		DSO:        c.RankingDSOWeight,
	}
}

// ForecastWeights extracts the per-tier probability weights.
func (c Config) ForecastWeights() TierWeights {
	return TierWeights{High: c.ForecastHighWeight, Medium: c.ForecastMediumWeight, Low: c.ForecastLowWeight}
}

// AgingLabels renders the bucket labels for the configured edges, e.g. "0-15", "16-30", "60+".
func (c Config) AgingLabels() []string {
	labels := make([]string, 0, len(c.AgingEdges)+1)
	lower := 0
	for _, edge := range c.AgingEdges {
		labels = append(labels, fmt.Sprintf("%d-%d", lower, edge))
		lower = edge + 1
	}
	if n := len(c.AgingEdges); n > 0 {
		labels = append(labels, fmt.Sprintf("%d+", c.AgingEdges[n-1]))
	}
	return labels
}

func strictlyIncreasing(values []int) bool {
	for i := 1; i < len(values); i++ {
		if values[i] <= values[i-1] {
			return false
		}
	}
	return true
}

const weightTolerance = 1e-6

func sumsToOne(values ...float64) bool {
	total := 0.0
	for _, v := range values {
		total += v
	}
	return math.Abs(total-1) <= weightTolerance
}

func formatWeights(values ...float64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf("%g", v)
	}
	return strings.Join(parts, "+")
}
