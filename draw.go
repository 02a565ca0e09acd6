package curveplot

import (
	"github.com/sirupsen/logrus"
)

// A single (label, value) pair of a dataset.
type Point struct {
	X float64
	Y float64
}

// Chart is the handle for a chart drawn onto a canvas.
type Chart struct {
	Canvas *Canvas
	Config ChartConfig
}

// NewChart hands the configuration to the renderer, which draws onto the
// canvas. Errors from the renderer are returned as a *RenderError.
func NewChart(canvas *Canvas, config ChartConfig, renderer ChartRenderer) (*Chart, error) {
	if err := renderer.Render(canvas, config); err != nil {
		return nil, &RenderError{CanvasID: canvas.ID, Err: err}
	}

	return &Chart{
		Canvas: canvas,
		Config: config,
	}, nil
}

// Labels returns the x values of the chart.
func (c *Chart) Labels() []float64 {
	return c.Config.Data.Labels
}

// Dataset returns the values plotted against the labels, or nil if the chart
// has no dataset.
func (c *Chart) Dataset() []float64 {
	if len(c.Config.Data.Datasets) == 0 {
		return nil
	}
	return c.Config.Data.Datasets[0].Data
}

// Points pairs each label with its value. Extra labels or values without a
// partner are dropped.
func (c *Chart) Points() []Point {
	labels := c.Labels()
	data := c.Dataset()
	n := Min(len(labels), len(data))

	points := make([]Point, 0, n)
	for i := 0; i < n; i++ {
		points = append(points, Point{X: labels[i], Y: data[i]})
	}
	return points
}

// Plotter draws reserve curves with a given renderer.
type Plotter struct {
	Renderer ChartRenderer

	logger logrus.FieldLogger
}

func NewPlotter(renderer ChartRenderer) *Plotter {
	return &Plotter{
		Renderer: renderer,
		logger:   logrus.WithField("tag", "Plotter"),
	}
}

// DrawLineChart looks up the canvas, fixes it to 400x400, maps fn over labels
// and draws the resulting line chart with both axes spanning [min, max].
//
// A missing canvas returns ErrCanvasNotFound. A nil fn panics. min and max
// are passed through unchecked.
func (p *Plotter) DrawLineChart(doc *Document, canvasID string, labels []float64, fn func(float64) float64, min, max float64) (*Chart, error) {
	canvas, err := doc.LookupCanvas(canvasID)
	if err != nil {
		return nil, err
	}

	canvas.SetSize(CanvasWidth, CanvasHeight)

	data := Map(labels, fn)
	config := NewLineChartConfig(labels, data, min, max)

	p.logger.WithFields(logrus.Fields{
		"canvasID": canvasID,
		"points":   len(data),
		"min":      min,
		"max":      max,
	}).Debug("drawing line chart")

	return NewChart(canvas, config, p.Renderer)
}

var defaultPlotter = NewPlotter(NewGoChartRenderer(FormatPNG))

// DrawLineChart draws the reserve curve as a PNG using the default go-chart
// renderer. See Plotter.DrawLineChart.
func DrawLineChart(doc *Document, canvasID string, labels []float64, fn func(float64) float64, min, max float64) (*Chart, error) {
	return defaultPlotter.DrawLineChart(doc, canvasID, labels, fn, min, max)
}
