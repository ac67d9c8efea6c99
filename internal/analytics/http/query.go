package analytichttp

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/pagora/pagora-edp/internal/analytics"
	"github.com/pagora/pagora-edp/internal/platform/httpx"
)

var queryValidator = validator.New()

// kpiQuery mirrors the accepted query parameters before conversion.
type kpiQuery struct {
	Start       string `validate:"omitempty,datetime=2006-01-02"`
	End         string `validate:"omitempty,datetime=2006-01-02"`
	QuickPeriod string `validate:"omitempty,oneof=7 30 90 365"`
	Manager     string `validate:"max=120"`
	Client      string `validate:"max=120"`
	Project     string `validate:"max=120"`
	Status      string `validate:"max=60"`
	Month       string `validate:"max=20"`
	MinAmount   string `validate:"omitempty,numeric"`
	MaxAmount   string `validate:"omitempty,numeric"`
	Search      string `validate:"max=120"`
}

var queryParams = map[string]string{
	"Start":       "start",
	"End":         "end",
	"QuickPeriod": "quick_period",
	"Manager":     "manager",
	"Client":      "client",
	"Project":     "project",
	"Status":      "status",
	"Month":       "month",
	"MinAmount":   "min_amount",
	"MaxAmount":   "max_amount",
	"Search":      "q",
}

// ParseFilter converts query parameters into a FilterSpec. Invalid input
// yields an error wrapping httpx.ErrValidation.
func ParseFilter(r *http.Request) (analytics.FilterSpec, error) {
	q := r.URL.Query()
	get := func(name string) string { return strings.TrimSpace(q.Get(name)) }
	raw := kpiQuery{
		Start:       get("start"),
		End:         get("end"),
		QuickPeriod: get("quick_period"),
		Manager:     get("manager"),
		Client:      get("client"),
		Project:     get("project"),
		Status:      get("status"),
		Month:       get("month"),
		MinAmount:   get("min_amount"),
		MaxAmount:   get("max_amount"),
		Search:      get("q"),
	}
	if err := queryValidator.Struct(raw); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return analytics.FilterSpec{}, fmt.Errorf("%w: parameter %s failed %s", httpx.ErrValidation, queryParams[fieldErrs[0].Field()], fieldErrs[0].Tag())
		}
		return analytics.FilterSpec{}, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}

	spec := analytics.FilterSpec{
		Manager: raw.Manager,
		Client:  raw.Client,
		Project: raw.Project,
		Status:  raw.Status,
		Month:   raw.Month,
		Search:  raw.Search,
	}
	if raw.QuickPeriod != "" {
		spec.QuickPeriod, _ = strconv.Atoi(raw.QuickPeriod)
	}
	if raw.Start != "" {
		spec.Start, _ = time.Parse(time.DateOnly, raw.Start)
	}
	if raw.End != "" {
		spec.End, _ = time.Parse(time.DateOnly, raw.End)
	}
	if !spec.Start.IsZero() && !spec.End.IsZero() && spec.End.Before(spec.Start) {
		return analytics.FilterSpec{}, fmt.Errorf("%w: end before start", httpx.ErrValidation)
	}
	var err error
	if spec.MinAmount, err = parseAmount("min_amount", raw.MinAmount); err != nil {
		return analytics.FilterSpec{}, err
	}
	if spec.MaxAmount, err = parseAmount("max_amount", raw.MaxAmount); err != nil {
		return analytics.FilterSpec{}, err
	}
	if spec.MinAmount.Valid && spec.MaxAmount.Valid && spec.MaxAmount.Decimal.LessThan(spec.MinAmount.Decimal) {
		return analytics.FilterSpec{}, fmt.Errorf("%w: max_amount below min_amount", httpx.ErrValidation)
	}
	return spec, nil
}

func parseAmount(name, raw string) (decimal.NullDecimal, error) {
	if raw == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("%w: parameter %s: %v", httpx.ErrValidation, name, err)
	}
	return decimal.NewNullDecimal(d), nil
}
