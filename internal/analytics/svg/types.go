// Package svg renders chart series as standalone SVG documents.
package svg

import "errors"

// ErrNoData is returned when a chart has no labels or only nil points.
var ErrNoData = errors.New("svg: no data")

// LineOpts customises the line chart renderer.
type LineOpts struct {
	Title       string
	Description string
	AxisColor   string
	GridColor   string
	Padding     float64
	ShowDots    bool
	// Fill shades the area under the first dataset.
	Fill      bool
	TickCount int
}

// BarOpts customises the bar chart renderer.
type BarOpts struct {
	Title       string
	Description string
	AxisColor   string
	GridColor   string
	Padding     float64
	TickCount   int
}

// Defaults for the dashboard charts.
const (
	DefaultWidth   = 720
	DefaultHeight  = 240
	DefaultPadding = 32.0
	DefaultTicks   = 5
)

type frame struct {
	width, height int
	padding       float64
	chartWidth    float64
	chartHeight   float64
	ticks         int
}

func newFrame(width, height int, padding float64, ticks int) (frame, error) {
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	if padding <= 0 {
		padding = DefaultPadding
	}
	if ticks <= 0 {
		ticks = DefaultTicks
	}
	f := frame{
		width:       width,
		height:      height,
		padding:     padding,
		chartWidth:  float64(width) - 2*padding,
		chartHeight: float64(height) - 2*padding,
		ticks:       ticks,
	}
	if f.chartWidth <= 0 || f.chartHeight <= 0 {
		return frame{}, errors.New("svg: viewport too small")
	}
	return f, nil
}
