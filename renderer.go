package curveplot

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// ChartRenderer draws a chart configuration onto a canvas.
type ChartRenderer interface {
	Render(canvas *Canvas, config ChartConfig) error
}

type OutputFormat string

const (
	FormatPNG OutputFormat = "png"
	FormatSVG OutputFormat = "svg"
)

func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(strings.TrimSpace(s))) {
	case FormatPNG:
		return FormatPNG, nil
	case FormatSVG:
		return FormatSVG, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
	}
}

func (f OutputFormat) ContentType() string {
	if f == FormatSVG {
		return "image/svg+xml"
	}
	return "image/png"
}

func (f OutputFormat) provider() (chart.RendererProvider, error) {
	switch f {
	case FormatPNG:
		return chart.PNG, nil
	case FormatSVG:
		return chart.SVG, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, string(f))
	}
}

const (
	// Chart.js default line width.
	defaultStrokeWidth = 3

	defaultSamplesPerSegment = 16

	// Above this many ticks the step size is ignored and go-chart picks ticks.
	maxStepTicks = 1000
)

// Non-zero so go-chart does not substitute its default series color.
var transparent = drawing.Color{R: 255, G: 255, B: 255, A: 0}

// GoChartRenderer renders line charts with go-chart.
type GoChartRenderer struct {
	Format            OutputFormat
	StrokeWidth       float64
	SamplesPerSegment int

	logger logrus.FieldLogger
}

func NewGoChartRenderer(format OutputFormat) *GoChartRenderer {
	return &GoChartRenderer{
		Format:            format,
		StrokeWidth:       defaultStrokeWidth,
		SamplesPerSegment: defaultSamplesPerSegment,
		logger:            logrus.WithField("tag", "GoChartRenderer"),
	}
}

func (r *GoChartRenderer) Render(canvas *Canvas, config ChartConfig) error {
	provider, err := r.Format.provider()
	if err != nil {
		return err
	}

	graph, err := r.buildChart(canvas, config)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := graph.Render(provider, &buf); err != nil {
		return err
	}

	canvas.Paint(r.Format.ContentType(), buf.Bytes())

	r.logger.WithFields(logrus.Fields{
		"canvasID": canvas.ID,
		"format":   r.Format,
		"bytes":    buf.Len(),
	}).Debug("rendered chart")

	return nil
}

func (r *GoChartRenderer) buildChart(canvas *Canvas, config ChartConfig) (chart.Chart, error) {
	if config.Type != ChartTypeLine {
		return chart.Chart{}, fmt.Errorf("unsupported chart type %q", config.Type)
	}

	width, height := canvas.Size()
	xScale := config.Options.Scales.X
	yScale := config.Options.Scales.Y
	yTicks := stepTicks(yScale.Min, yScale.Max, yScale.Ticks.StepSize)

	graph := chart.Chart{
		Width:  width,
		Height: height,
		XAxis: chart.XAxis{
			Name:  scaleName(xScale),
			Range: &chart.ContinuousRange{Min: xScale.Min, Max: xScale.Max},
			Ticks: stepTicks(xScale.Min, xScale.Max, xScale.Ticks.StepSize),
		},
		// go-chart draws its primary y axis on the right. Every series is
		// plotted against the secondary axis, which sits on the left, and the
		// primary one is hidden. go-chart reads the secondary tick bounds from
		// the primary axis, so both carry the same ticks.
		YAxis: chart.YAxis{
			Style: chart.Style{Hidden: true},
			Range: &chart.ContinuousRange{Min: yScale.Min, Max: yScale.Max},
			Ticks: yTicks,
		},
		YAxisSecondary: chart.YAxis{
			Name:  scaleName(yScale),
			Range: &chart.ContinuousRange{Min: yScale.Min, Max: yScale.Max},
			Ticks: yTicks,
		},
		// go-chart refuses to render without a visible series, so a transparent
		// one spanning the axes is always present. An empty dataset then draws
		// bare axes.
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    "anchor",
				Style:   chart.Style{StrokeColor: transparent, StrokeWidth: 1},
				YAxis:   chart.YAxisSecondary,
				XValues: []float64{xScale.Min, xScale.Max},
				YValues: []float64{yScale.Min, yScale.Max},
			},
		},
	}

	area := Area{Left: xScale.Min, Right: xScale.Max, Bottom: yScale.Min, Top: yScale.Max}
	labels := config.Data.Labels

	for i, dataset := range config.Data.Datasets {
		color, err := ParseCSSColor(dataset.BorderColor)
		if err != nil {
			return chart.Chart{}, fmt.Errorf("dataset %d: %w", i, err)
		}

		style := chart.Style{
			StrokeColor: color,
			StrokeWidth: r.StrokeWidth,
			DotColor:    color,
			DotWidth:    dataset.PointRadius,
		}

		j := 0
		for _, run := range finiteRuns(labels, dataset.Data) {
			curve := SmoothCurve(run, dataset.Tension, area, r.SamplesPerSegment)
			for _, piece := range clipPolyline(curve, area) {
				graph.Series = append(graph.Series, chart.ContinuousSeries{
					Name:    fmt.Sprintf("dataset %d.%d", i, j),
					Style:   style,
					YAxis:   chart.YAxisSecondary,
					XValues: Map(piece, func(p Point) float64 { return p.X }),
					YValues: Map(piece, func(p Point) float64 { return p.Y }),
				})
				j++
			}
		}
	}

	if config.Options.Plugins.Legend.Display {
		graph.Elements = []chart.Renderable{chart.Legend(&graph)}
	}

	return graph, nil
}

func scaleName(s Scale) string {
	if !s.Title.Display {
		return ""
	}
	return s.Title.Text
}

// finiteRuns splits the (label, value) pairs into runs of finite points. A
// non-finite label or value breaks the line.
func finiteRuns(labels, data []float64) [][]Point {
	n := Min(len(labels), len(data))

	var runs [][]Point
	var current []Point
	for i := 0; i < n; i++ {
		if !isFinite(labels[i]) || !isFinite(data[i]) {
			if len(current) > 0 {
				runs = append(runs, current)
				current = nil
			}
			continue
		}
		current = append(current, Point{X: labels[i], Y: data[i]})
	}
	if len(current) > 0 {
		runs = append(runs, current)
	}
	return runs
}

// stepTicks places a tick on every multiple of step within [min, max], plus
// min and max themselves. It
// returns nil, letting go-chart choose ticks, when step is unset or the range
// would need too many ticks.
func stepTicks(min, max, step float64) []chart.Tick {
	if step <= 0 || !isFinite(min) || !isFinite(max) || max < min {
		return nil
	}

	first := math.Ceil(min/step) * step
	if (max-first)/step+1 > maxStepTicks {
		return nil
	}

	tick := func(v float64) chart.Tick {
		return chart.Tick{Value: v, Label: strconv.FormatFloat(v, 'f', -1, 64)}
	}

	// go-chart takes the axis range from the outermost ticks, so min and max
	// are always ticks.
	var ticks []chart.Tick
	if first-min > step*1e-9 {
		ticks = append(ticks, tick(min))
	}
	last := min
	for i := 0; ; i++ {
		v := first + float64(i)*step
		if v > max+step*1e-9 {
			break
		}
		ticks = append(ticks, tick(v))
		last = v
	}
	if len(ticks) == 0 || max-last > step*1e-9 {
		ticks = append(ticks, tick(max))
	}
	return ticks
}

// ParseCSSColor parses rgb(), rgba() and hex color strings.
func ParseCSSColor(s string) (drawing.Color, error) {
	s = strings.TrimSpace(strings.ToLower(s))

	if strings.HasPrefix(s, "#") {
		hex := strings.TrimPrefix(s, "#")
		if len(hex) != 3 && len(hex) != 6 {
			return drawing.Color{}, fmt.Errorf("invalid hex color %q", s)
		}
		if _, err := strconv.ParseUint(hex, 16, 32); err != nil {
			return drawing.Color{}, fmt.Errorf("invalid hex color %q", s)
		}
		return drawing.ColorFromHex(hex), nil
	}

	var body string
	var wantAlpha bool
	switch {
	case strings.HasPrefix(s, "rgba(") && strings.HasSuffix(s, ")"):
		body = s[len("rgba(") : len(s)-1]
		wantAlpha = true
	case strings.HasPrefix(s, "rgb(") && strings.HasSuffix(s, ")"):
		body = s[len("rgb(") : len(s)-1]
	default:
		return drawing.Color{}, fmt.Errorf("unrecognized color %q", s)
	}

	parts := strings.Split(body, ",")
	if (wantAlpha && len(parts) != 4) || (!wantAlpha && len(parts) != 3) {
		return drawing.Color{}, fmt.Errorf("wrong number of components in %q", s)
	}

	var channels [3]uint8
	for i := 0; i < 3; i++ {
		v, err := strconv.ParseFloat(strings.TrimSpace(parts[i]), 64)
		if err != nil {
			return drawing.Color{}, fmt.Errorf("invalid color component in %q: %w", s, err)
		}
		channels[i] = uint8(Clamp(math.Round(v), 0, 255))
	}

	alpha := uint8(255)
	if wantAlpha {
		a, err := strconv.ParseFloat(strings.TrimSpace(parts[3]), 64)
		if err != nil {
			return drawing.Color{}, fmt.Errorf("invalid alpha in %q: %w", s, err)
		}
		alpha = uint8(math.Round(Clamp(a, 0, 1) * 255))
	}

	return drawing.Color{R: channels[0], G: channels[1], B: channels[2], A: alpha}, nil
}
