package curveplot

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingRenderer captures what it was asked to draw.
type recordingRenderer struct {
	calls  int
	canvas *Canvas
	config ChartConfig
	err    error
}

func (r *recordingRenderer) Render(canvas *Canvas, config ChartConfig) error {
	r.calls++
	r.canvas = canvas
	r.config = config
	return r.err
}

func square(x float64) float64 { return x * x }

func TestDrawLineChart(t *testing.T) {
	t.Run("square example", func(t *testing.T) {
		doc := NewDocument()
		doc.CreateCanvas("reserves")
		renderer := &recordingRenderer{}

		chart, err := NewPlotter(renderer).DrawLineChart(doc, "reserves", []float64{0, 1, 2, 3}, square, 0, 3)
		require.NoError(t, err)

		assert.Equal(t, []float64{0, 1, 4, 9}, chart.Dataset())
		assert.Equal(t, []float64{0, 1, 2, 3}, chart.Labels())

		scales := chart.Config.Options.Scales
		assert.Equal(t, 0.0, scales.X.Min)
		assert.Equal(t, 3.0, scales.X.Max)
		assert.Equal(t, 1.0, scales.X.Ticks.StepSize)
		assert.Equal(t, 0.0, scales.Y.Min)
		assert.Equal(t, 3.0, scales.Y.Max)

		assert.Equal(t, 1, renderer.calls)
		assert.Same(t, doc.GetElementByID("reserves"), renderer.canvas)
		assert.Equal(t, chart.Config, renderer.config)
	})

	t.Run("canvas is always 400x400", func(t *testing.T) {
		doc := NewDocument()
		canvas := doc.CreateCanvas("c")
		canvas.SetSize(10, 1234)

		_, err := NewPlotter(&recordingRenderer{}).DrawLineChart(doc, "c", []float64{5}, square, -100, 100)
		require.NoError(t, err)

		w, h := canvas.Size()
		assert.Equal(t, 400, w)
		assert.Equal(t, 400, h)
	})

	t.Run("dataset follows label order", func(t *testing.T) {
		doc := NewDocument()
		doc.CreateCanvas("c")
		labels := []float64{3, -1, 2, 2, 0.5}

		chart, err := NewPlotter(&recordingRenderer{}).DrawLineChart(doc, "c", labels, func(x float64) float64 { return 2*x + 1 }, 0, 1)
		require.NoError(t, err)

		require.Len(t, chart.Dataset(), len(labels))
		for i, label := range labels {
			assert.Equal(t, 2*label+1, chart.Dataset()[i], "index %d", i)
		}
		assert.Equal(t, []Point{{3, 7}, {-1, -1}, {2, 5}, {2, 5}, {0.5, 2}}, chart.Points())
	})

	t.Run("empty labels", func(t *testing.T) {
		doc := NewDocument()
		doc.CreateCanvas("c")

		chart, err := NewPlotter(&recordingRenderer{}).DrawLineChart(doc, "c", []float64{}, square, 0, 3)
		require.NoError(t, err)
		assert.Empty(t, chart.Dataset())
		assert.Empty(t, chart.Points())
	})

	t.Run("fixed styling", func(t *testing.T) {
		doc := NewDocument()
		doc.CreateCanvas("c")

		chart, err := NewPlotter(&recordingRenderer{}).DrawLineChart(doc, "c", []float64{1, 2}, square, 0, 10)
		require.NoError(t, err)

		cfg := chart.Config
		assert.Equal(t, "line", cfg.Type)
		assert.False(t, cfg.Options.Responsive)
		assert.False(t, cfg.Options.Plugins.Legend.Display)

		require.Len(t, cfg.Data.Datasets, 1)
		ds := cfg.Data.Datasets[0]
		assert.Equal(t, "rgba(0, 0, 0, 0.7)", ds.BorderColor)
		assert.Equal(t, 0.0, ds.PointRadius)
		assert.Equal(t, 0.5, ds.Tension)

		assert.Equal(t, "linear", cfg.Options.Scales.X.Type)
		assert.Equal(t, "linear", cfg.Options.Scales.Y.Type)
		assert.Equal(t, ScaleTitle{Display: true, Text: "reserve of X"}, cfg.Options.Scales.X.Title)
		assert.Equal(t, ScaleTitle{Display: true, Text: "reserve of Y"}, cfg.Options.Scales.Y.Title)
		assert.Zero(t, cfg.Options.Scales.Y.Ticks.StepSize)
	})

	t.Run("min greater than max is passed through", func(t *testing.T) {
		doc := NewDocument()
		doc.CreateCanvas("c")

		chart, err := NewPlotter(&recordingRenderer{}).DrawLineChart(doc, "c", []float64{1}, square, 5, 1)
		require.NoError(t, err)
		assert.Equal(t, 5.0, chart.Config.Options.Scales.X.Min)
		assert.Equal(t, 1.0, chart.Config.Options.Scales.X.Max)
	})

	t.Run("missing canvas", func(t *testing.T) {
		renderer := &recordingRenderer{}
		_, err := NewPlotter(renderer).DrawLineChart(NewDocument(), "nope", []float64{1}, square, 0, 1)
		require.ErrorIs(t, err, ErrCanvasNotFound)
		assert.Contains(t, err.Error(), "nope")
		assert.Zero(t, renderer.calls)
	})

	t.Run("renderer error propagates", func(t *testing.T) {
		doc := NewDocument()
		doc.CreateCanvas("c")
		boom := errors.New("boom")

		_, err := NewPlotter(&recordingRenderer{err: boom}).DrawLineChart(doc, "c", []float64{1}, square, 0, 1)
		require.ErrorIs(t, err, boom)

		var renderErr *RenderError
		require.ErrorAs(t, err, &renderErr)
		assert.Equal(t, "c", renderErr.CanvasID)
	})

	t.Run("nil function panics", func(t *testing.T) {
		doc := NewDocument()
		doc.CreateCanvas("c")
		assert.Panics(t, func() {
			_, _ = NewPlotter(&recordingRenderer{}).DrawLineChart(doc, "c", []float64{1}, nil, 0, 1)
		})
	})

	t.Run("non finite values are kept in the dataset", func(t *testing.T) {
		doc := NewDocument()
		doc.CreateCanvas("c")

		chart, err := NewPlotter(&recordingRenderer{}).DrawLineChart(doc, "c", []float64{0, 1}, func(x float64) float64 { return 1 / x }, 0, 1)
		require.NoError(t, err)
		assert.True(t, math.IsInf(chart.Dataset()[0], 1))
		assert.Equal(t, 1.0, chart.Dataset()[1])
	})
}

func TestDrawLineChartDefaultRenderer(t *testing.T) {
	doc := NewDocument()
	canvas := doc.CreateCanvas("chart")

	chart, err := DrawLineChart(doc, "chart", []float64{0, 1, 2, 3}, square, 0, 3)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1, 4, 9}, chart.Dataset())

	contentType, image := canvas.Snapshot()
	assert.Equal(t, "image/png", contentType)
	require.NotEmpty(t, image)
	assert.Equal(t, []byte("\x89PNG"), image[:4])
}
