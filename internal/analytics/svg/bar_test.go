package svg

import (
	"strings"
	"testing"

	"github.com/pagora/pagora-edp/internal/analytics/series"
)

func TestBarsProducesSVG(t *testing.T) {
	c := series.New("0-15", "16-30", "31-60", "60+")
	c.AddFloats("EDPs pendientes", []float64{3, 0, 1, 2})
	c.AddFloats("Monto pendiente", []float64{500, 0, 2000, -100})
	out, err := Bars(420, 220, c, BarOpts{Title: "Aging", Description: "Pendientes por antigüedad"})
	if err != nil {
		t.Fatalf("bars renderer error: %v", err)
	}
	if !strings.HasPrefix(out, "<svg") {
		t.Fatalf("expected svg output, got %s", out)
	}
	// 8 bars plus 2 legend swatches
	if got := strings.Count(out, "<rect"); got != 10 {
		t.Fatalf("expected 10 rects, got %d", got)
	}
	if !strings.Contains(out, "Monto pendiente") {
		t.Fatalf("expected legend label")
	}
	if !strings.Contains(out, series.Color(1)) {
		t.Fatalf("expected dataset colour")
	}
}

func TestBarsSkipsNilPoints(t *testing.T) {
	c := series.New("a", "b")
	c.Add("x", []*float64{series.Value(1), nil})
	out, err := Bars(0, 0, c, BarOpts{})
	if err != nil {
		t.Fatalf("bars: %v", err)
	}
	if got := strings.Count(out, "<rect"); got != 2 {
		t.Fatalf("expected one bar and one swatch, got %d", got)
	}
}
