package svg

import (
	"fmt"
	"html/template"
	"math"
	"strings"

	"github.com/pagora/pagora-edp/internal/analytics/series"
)

// Line renders every dataset of chart as a line. Nil points break the line
// instead of dropping to zero.
func Line(width, height int, chart series.Chart, opts LineOpts) (string, error) {
	if chart.Empty() {
		return "", ErrNoData
	}
	minVal, maxVal, ok := bounds(chart)
	if !ok {
		return "", ErrNoData
	}
	f, err := newFrame(width, height, opts.Padding, opts.TickCount)
	if err != nil {
		return "", err
	}
	axisColor := fallback(opts.AxisColor, "#475569")
	gridColor := fallback(opts.GridColor, "#cbd5f5")
	minVal, maxVal = widen(minVal, maxVal)
	scale := f.chartHeight / (maxVal - minVal)
	n := len(chart.Labels)
	xAt := func(i int) float64 {
		if n == 1 {
			return f.padding + f.chartWidth/2
		}
		return f.padding + float64(i)*f.chartWidth/float64(n-1)
	}
	yAt := func(v float64) float64 {
		return f.padding + f.chartHeight - (v-minVal)*scale
	}

	var b strings.Builder
	openSVG(&b, f, opts.Title, opts.Description, "line", "Line chart", "Trend data")
	grid(&b, f, minVal, maxVal, axisColor, gridColor)
	axes(&b, f, f.padding+f.chartHeight, axisColor)

	for di, ds := range chart.Datasets {
		segments := pathSegments(ds.Data, xAt, yAt)
		if len(segments) == 0 {
			continue
		}
		color := fallback(ds.Color, series.Color(di))
		if opts.Fill && di == 0 {
			base := f.padding + f.chartHeight
			for _, seg := range segments {
				area := fmt.Sprintf("%s L%.2f %.2f L%.2f %.2f Z", seg.d, seg.lastX, base, seg.firstX, base)
				fmt.Fprintf(&b, "<path d=\"%s\" fill=\"%s\" fill-opacity=\"0.12\" stroke=\"none\" aria-hidden=\"true\"></path>", area, color)
			}
		}
		for _, seg := range segments {
			fmt.Fprintf(&b, "<path d=\"%s\" fill=\"none\" stroke=\"%s\" stroke-width=\"2\" stroke-linejoin=\"round\" stroke-linecap=\"round\" aria-label=\"%s\"></path>", seg.d, color, template.HTMLEscapeString(ds.Label))
		}
		if opts.ShowDots {
			for i, v := range ds.Data {
				if v == nil || i >= n {
					continue
				}
				fmt.Fprintf(&b, "<circle cx=\"%.2f\" cy=\"%.2f\" r=\"3\" fill=\"%s\"></circle>", xAt(i), yAt(*v), color)
			}
		}
	}

	for i, label := range chart.Labels {
		fmt.Fprintf(&b, "<text x=\"%.2f\" y=\"%.2f\" fill=\"%s\" font-size=\"10\" text-anchor=\"middle\">%s</text>", xAt(i), f.padding+f.chartHeight+14, axisColor, template.HTMLEscapeString(label))
	}
	legend(&b, f, chart, axisColor)
	b.WriteString("</svg>")
	return b.String(), nil
}

type segment struct {
	d             string
	firstX, lastX float64
}

func pathSegments(data []*float64, xAt func(int) float64, yAt func(float64) float64) []segment {
	var (
		out []segment
		cur strings.Builder
		seg segment
		on  bool
	)
	flush := func() {
		if on {
			seg.d = cur.String()
			out = append(out, seg)
			cur.Reset()
			on = false
		}
	}
	for i, v := range data {
		if v == nil {
			flush()
			continue
		}
		x, y := xAt(i), yAt(*v)
		if !on {
			fmt.Fprintf(&cur, "M%.2f %.2f", x, y)
			seg = segment{firstX: x}
			on = true
		} else {
			fmt.Fprintf(&cur, " L%.2f %.2f", x, y)
		}
		seg.lastX = x
	}
	flush()
	return out
}

// Empty renders a framed placeholder for charts without data.
func Empty(width, height int, title string) string {
	f, err := newFrame(width, height, 0, 0)
	if err != nil {
		f, _ = newFrame(DefaultWidth, DefaultHeight, 0, 0)
	}
	var b strings.Builder
	openSVG(&b, f, title, "Sin datos para el filtro seleccionado", "empty", "Chart", "")
	fmt.Fprintf(&b, "<text x=\"%.2f\" y=\"%.2f\" fill=\"#475569\" font-size=\"12\" text-anchor=\"middle\">Sin datos</text>", float64(f.width)/2, float64(f.height)/2)
	b.WriteString("</svg>")
	return b.String()
}

func openSVG(b *strings.Builder, f frame, title, desc, kind, defaultTitle, defaultDesc string) {
	titleID := makeID(title, kind+"-title")
	descID := makeID(title, kind+"-desc")
	fmt.Fprintf(b, "<svg xmlns=\"http://www.w3.org/2000/svg\" viewBox=\"0 0 %d %d\" role=\"img\" aria-labelledby=\"%s %s\">", f.width, f.height, titleID, descID)
	fmt.Fprintf(b, "<title id=\"%s\">%s</title>", titleID, template.HTMLEscapeString(fallback(title, defaultTitle)))
	fmt.Fprintf(b, "<desc id=\"%s\">%s</desc>", descID, template.HTMLEscapeString(fallback(desc, defaultDesc)))
}

func grid(b *strings.Builder, f frame, minVal, maxVal float64, axisColor, gridColor string) {
	for i := 0; i <= f.ticks; i++ {
		ratio := float64(i) / float64(f.ticks)
		y := f.padding + f.chartHeight - ratio*f.chartHeight
		value := minVal + (maxVal-minVal)*ratio
		fmt.Fprintf(b, "<line x1=\"%.2f\" y1=\"%.2f\" x2=\"%.2f\" y2=\"%.2f\" stroke=\"%s\" stroke-width=\"0.5\" stroke-dasharray=\"2,4\" aria-hidden=\"true\"></line>", f.padding, y, f.padding+f.chartWidth, y, gridColor)
		fmt.Fprintf(b, "<text x=\"%.2f\" y=\"%.2f\" fill=\"%s\" font-size=\"10\" text-anchor=\"end\">%s</text>", f.padding-6, y+4, axisColor, template.HTMLEscapeString(formatTick(value)))
	}
}

func axes(b *strings.Builder, f frame, baseY float64, axisColor string) {
	fmt.Fprintf(b, "<g stroke=\"%s\" aria-label=\"Ejes\">", axisColor)
	fmt.Fprintf(b, "<line x1=\"%.2f\" y1=\"%.2f\" x2=\"%.2f\" y2=\"%.2f\" stroke-width=\"1\"></line>", f.padding, f.padding, f.padding, f.padding+f.chartHeight)
	fmt.Fprintf(b, "<line x1=\"%.2f\" y1=\"%.2f\" x2=\"%.2f\" y2=\"%.2f\" stroke-width=\"1\"></line>", f.padding, baseY, f.padding+f.chartWidth, baseY)
	b.WriteString("</g>")
}

func legend(b *strings.Builder, f frame, chart series.Chart, axisColor string) {
	y := math.Max(f.padding-12, 12)
	x := f.padding
	for i, ds := range chart.Datasets {
		color := fallback(ds.Color, series.Color(i))
		fmt.Fprintf(b, "<rect x=\"%.2f\" y=\"%.2f\" width=\"10\" height=\"10\" fill=\"%s\"></rect>", x, y-8, color)
		fmt.Fprintf(b, "<text x=\"%.2f\" y=\"%.2f\" fill=\"%s\" font-size=\"10\" text-anchor=\"start\">%s</text>", x+14, y, axisColor, template.HTMLEscapeString(ds.Label))
		x += 24 + 6*float64(len([]rune(ds.Label)))
	}
}

func fallback(value, defaultValue string) string {
	if strings.TrimSpace(value) == "" {
		return defaultValue
	}
	return value
}

// bounds scans every non-nil point; ok is false when there is none.
func bounds(chart series.Chart) (minVal, maxVal float64, ok bool) {
	for _, ds := range chart.Datasets {
		for _, v := range ds.Data {
			if v == nil {
				continue
			}
			if !ok {
				minVal, maxVal, ok = *v, *v, true
				continue
			}
			minVal = math.Min(minVal, *v)
			maxVal = math.Max(maxVal, *v)
		}
	}
	return minVal, maxVal, ok
}

// widen keeps zero on the axis and avoids a zero-height range.
func widen(minVal, maxVal float64) (float64, float64) {
	if minVal > 0 {
		minVal = 0
	}
	if maxVal < 0 {
		maxVal = 0
	}
	if almostEqual(maxVal, minVal) {
		maxVal = minVal + 1
	}
	return minVal, maxVal
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func makeID(base, suffix string) string {
	cleaned := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			return r
		}
		return '-'
	}, strings.ToLower(strings.TrimSpace(base)))
	cleaned = strings.Trim(cleaned, "-")
	if cleaned == "" {
		cleaned = "chart"
	}
	return cleaned + "-" + suffix
}

func formatTick(v float64) string {
	abs := math.Abs(v)
	switch {
	case abs >= 1_000_000_000:
		return fmt.Sprintf("%.1fMM", v/1_000_000_000)
	case abs >= 1_000_000:
		return fmt.Sprintf("%.1fM", v/1_000_000)
	case abs >= 1_000:
		return fmt.Sprintf("%.1fk", v/1_000)
	default:
		if almostEqual(v, math.Round(v)) {
			return fmt.Sprintf("%.0f", v)
		}
		return fmt.Sprintf("%.2f", v)
	}
}
