// Package series shapes metric outputs into labelled chart data.
//
// A nil data point means "no data" and marshals to JSON null; it is distinct
// from a zero value.
package series

// Palette assigns dataset colours by index.
var Palette = []string{
	"#2563eb",
	"#f97316",
	"#16a34a",
	"#dc2626",
	"#9333ea",
	"#0ea5e9",
	"#eab308",
	"#64748b",
}

// Color returns the palette colour for dataset index i, cycling.
func Color(i int) string {
	if i < 0 {
		i = -i
	}
	return Palette[i%len(Palette)]
}

// Dataset is one named series aligned with the chart labels.
type Dataset struct {
	Label string     `json:"label"`
	Data  []*float64 `json:"data"`
	Color string     `json:"color"`
}

// Chart is a label axis plus aligned datasets.
type Chart struct {
	Labels   []string  `json:"labels"`
	Datasets []Dataset `json:"datasets"`
}

// New starts a chart over the given labels.
func New(labels ...string) Chart {
	if labels == nil {
		labels = []string{}
	}
	return Chart{Labels: labels, Datasets: []Dataset{}}
}

// Add appends a dataset, padding with nil or truncating to the label count.
func (c *Chart) Add(label string, data []*float64) {
	aligned := make([]*float64, len(c.Labels))
	copy(aligned, data)
	c.Datasets = append(c.Datasets, Dataset{Label: label, Data: aligned, Color: Color(len(c.Datasets))})
}

// AddFloats appends a dataset of concrete values.
func (c *Chart) AddFloats(label string, values []float64) {
	c.Add(label, Floats(values))
}

// Empty reports whether the chart has no labels.
func (c Chart) Empty() bool {
	return len(c.Labels) == 0
}

// Values flattens dataset i, reading nil as zero. Out of range yields zeros.
func (c Chart) Values(i int) []float64 {
	out := make([]float64, len(c.Labels))
	if i < 0 || i >= len(c.Datasets) {
		return out
	}
	for j, v := range c.Datasets[i].Data {
		if v != nil && j < len(out) {
			out[j] = *v
		}
	}
	return out
}

// Value boxes v.
func Value(v float64) *float64 {
	return &v
}

// Floats boxes every value.
func Floats(values []float64) []*float64 {
	out := make([]*float64, len(values))
	for i, v := range values {
		out[i] = Value(v)
	}
	return out
}

// Zeros returns n boxed zeros.
func Zeros(n int) []*float64 {
	return Floats(make([]float64, n))
}

// Point is a single labelled value; a nil Value means no data.
type Point struct {
	Label string
	Value *float64
}

// FromPoints builds a one-dataset chart. With no points the fallback labels
// are used with zero-filled data.
func FromPoints(label string, points []Point, fallback ...string) Chart {
	if len(points) == 0 {
		c := New(append([]string(nil), fallback...)...)
		c.Add(label, Zeros(len(fallback)))
		return c
	}
	labels := make([]string, len(points))
	data := make([]*float64, len(points))
	for i, p := range points {
		labels[i] = p.Label
		data[i] = p.Value
	}
	c := New(labels...)
	c.Add(label, data)
	return c
}
