package svg

import (
	"fmt"
	"html/template"
	"math"
	"strings"

	"github.com/pagora/pagora-edp/internal/analytics/series"
)

// Bars renders a grouped bar chart with one bar per dataset and label. Nil
// points leave their slot empty.
func Bars(width, height int, chart series.Chart, opts BarOpts) (string, error) {
	if chart.Empty() || len(chart.Datasets) == 0 {
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
	zeroY := f.padding + f.chartHeight - (0-minVal)*scale
	chartBottom := f.padding + f.chartHeight

	groupWidth := f.chartWidth / float64(len(chart.Labels))
	barWidth := groupWidth * 0.8 / float64(len(chart.Datasets))
	inset := groupWidth * 0.1

	var b strings.Builder
	openSVG(&b, f, opts.Title, opts.Description, "bar", "Bar chart", "Grouped bar comparison")
	grid(&b, f, minVal, maxVal, axisColor, gridColor)
	axes(&b, f, zeroY, axisColor)

	for i, label := range chart.Labels {
		baseX := f.padding + float64(i)*groupWidth
		for di, ds := range chart.Datasets {
			if i >= len(ds.Data) || ds.Data[i] == nil {
				continue
			}
			y, h := barPosition(*ds.Data[i], scale, zeroY, f.padding, chartBottom)
			color := fallback(ds.Color, series.Color(di))
			fmt.Fprintf(&b, "<rect x=\"%.2f\" y=\"%.2f\" width=\"%.2f\" height=\"%.2f\" fill=\"%s\" aria-label=\"%s %s\"></rect>",
				baseX+inset+float64(di)*barWidth, y, barWidth, h, color, template.HTMLEscapeString(ds.Label), template.HTMLEscapeString(label))
		}
		center := baseX + groupWidth/2
		fmt.Fprintf(&b, "<text x=\"%.2f\" y=\"%.2f\" fill=\"%s\" font-size=\"10\" text-anchor=\"middle\">%s</text>", center, chartBottom+14, axisColor, template.HTMLEscapeString(label))
	}
	legend(&b, f, chart, axisColor)
	b.WriteString("</svg>")
	return b.String(), nil
}

func barPosition(value, scale, zeroY, padding, bottom float64) (float64, float64) {
	if value >= 0 {
		height := value * scale
		y := zeroY - height
		if y < padding {
			height -= padding - y
			y = padding
		}
		return y, math.Max(height, 0)
	}
	height := math.Abs(value * scale)
	y := zeroY
	if y+height > bottom {
		height = bottom - y
	}
	return y, math.Max(height, 0)
}
