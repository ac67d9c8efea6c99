package svg

import (
	"errors"
	"strings"
	"testing"

	"github.com/pagora/pagora-edp/internal/analytics/series"
)

func TestLineProducesSVG(t *testing.T) {
	c := series.New("2024-01", "2024-02", "2024-03")
	c.AddFloats("Emitido", []float64{100, 200, 150})
	out, err := Line(400, 200, c, LineOpts{Title: "Tendencia", Description: "Monto mensual", ShowDots: true, Fill: true})
	if err != nil {
		t.Fatalf("line renderer error: %v", err)
	}
	if !strings.HasPrefix(out, "<svg") {
		t.Fatalf("expected svg output, got %s", out)
	}
	if !strings.Contains(out, "<path") || !strings.Contains(out, "aria-labelledby") {
		t.Fatalf("expected path and accessibility attributes")
	}
	if got := strings.Count(out, "<circle"); got != 3 {
		t.Fatalf("expected 3 dots, got %d", got)
	}
}

func TestLineBreaksAtMissingPoints(t *testing.T) {
	c := series.New("a", "b", "c", "d")
	c.Add("Variación", []*float64{series.Value(1), nil, series.Value(3), series.Value(4)})
	out, err := Line(400, 200, c, LineOpts{})
	if err != nil {
		t.Fatalf("line: %v", err)
	}
	if got := strings.Count(out, "fill=\"none\" stroke="); got != 2 {
		t.Fatalf("expected two line segments around the gap, got %d", got)
	}
}

func TestLineRejectsEmpty(t *testing.T) {
	if _, err := Line(400, 200, series.New(), LineOpts{}); !errors.Is(err, ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
	c := series.New("a")
	c.Add("x", []*float64{nil})
	if _, err := Line(400, 200, c, LineOpts{}); !errors.Is(err, ErrNoData) {
		t.Fatalf("expected ErrNoData for all-nil data, got %v", err)
	}
	if out := Empty(0, 0, "Aging"); !strings.Contains(out, "Sin datos") {
		t.Fatalf("expected placeholder text")
	}
}
