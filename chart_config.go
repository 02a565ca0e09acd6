package curveplot

import (
	"encoding/json"
	"math"
)

// Fixed styling of the reserve curve chart.
const (
	CanvasWidth  = 400
	CanvasHeight = 400

	ChartTypeLine = "line"
	ScaleLinear   = "linear"

	DefaultBorderColor = "rgba(0, 0, 0, 0.7)"
	DefaultTension     = 0.5
	DefaultXStepSize   = 1

	XAxisTitle = "reserve of X"
	YAxisTitle = "reserve of Y"
)

// ChartConfig is the configuration handed to the charting library. Field
// names and JSON tags follow the Chart.js configuration object so the same
// document can be drawn by a browser.
type ChartConfig struct {
	Type    string       `json:"type"`
	Data    ChartData    `json:"data"`
	Options ChartOptions `json:"options"`
}

type ChartData struct {
	Labels   []float64 `json:"labels"`
	Datasets []Dataset `json:"datasets"`
}

type Dataset struct {
	Data        []float64 `json:"data"`
	BorderColor string    `json:"borderColor"`
	PointRadius float64   `json:"pointRadius"`
	Tension     float64   `json:"tension"`
}

type ChartOptions struct {
	Responsive bool    `json:"responsive"`
	Plugins    Plugins `json:"plugins"`
	Scales     Scales  `json:"scales"`
}

type Plugins struct {
	Legend Legend `json:"legend"`
}

type Legend struct {
	Display bool `json:"display"`
}

type Scales struct {
	X Scale `json:"x"`
	Y Scale `json:"y"`
}

type Scale struct {
	Type  string     `json:"type"`
	Min   float64    `json:"min"`
	Max   float64    `json:"max"`
	Ticks Ticks      `json:"ticks"`
	Title ScaleTitle `json:"title"`
}

type Ticks struct {
	// Zero means the library picks the tick spacing.
	StepSize float64 `json:"stepSize,omitempty"`
}

type ScaleTitle struct {
	Display bool   `json:"display"`
	Text    string `json:"text"`
}

// NewLineChartConfig builds the reserve curve configuration for the given
// labels and their mapped values. Both axes share [min, max]; the bounds are
// not checked against each other.
func NewLineChartConfig(labels []float64, data []float64, min, max float64) ChartConfig {
	return ChartConfig{
		Type: ChartTypeLine,
		Data: ChartData{
			Labels: labels,
			Datasets: []Dataset{
				{
					Data:        data,
					BorderColor: DefaultBorderColor,
					PointRadius: 0,
					Tension:     DefaultTension,
				},
			},
		},
		Options: ChartOptions{
			Responsive: false,
			Plugins: Plugins{
				Legend: Legend{Display: false},
			},
			Scales: Scales{
				X: Scale{
					Type:  ScaleLinear,
					Min:   min,
					Max:   max,
					Ticks: Ticks{StepSize: DefaultXStepSize},
					Title: ScaleTitle{Display: true, Text: XAxisTitle},
				},
				Y: Scale{
					Type:  ScaleLinear,
					Min:   min,
					Max:   max,
					Title: ScaleTitle{Display: true, Text: YAxisTitle},
				},
			},
		},
	}
}

// Non-finite values have no JSON form. They are written as null, which
// Chart.js draws as a gap, and read back as NaN.
func nullableFloats(values []float64) []*float64 {
	if values == nil {
		return nil
	}

	out := make([]*float64, len(values))
	for i := range values {
		if isFinite(values[i]) {
			out[i] = &values[i]
		}
	}
	return out
}

func denullFloats(values []*float64) []float64 {
	if values == nil {
		return nil
	}

	out := make([]float64, len(values))
	for i, v := range values {
		if v == nil {
			out[i] = math.NaN()
		} else {
			out[i] = *v
		}
	}
	return out
}

func (d ChartData) MarshalJSON() ([]byte, error) {
	type plain ChartData
	return json.Marshal(struct {
		plain
		Labels []*float64 `json:"labels"`
	}{plain(d), nullableFloats(d.Labels)})
}

func (d *ChartData) UnmarshalJSON(b []byte) error {
	type plain ChartData
	aux := struct {
		*plain
		Labels []*float64 `json:"labels"`
	}{plain: (*plain)(d)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	d.Labels = denullFloats(aux.Labels)
	return nil
}

func (d Dataset) MarshalJSON() ([]byte, error) {
	type plain Dataset
	return json.Marshal(struct {
		plain
		Data []*float64 `json:"data"`
	}{plain(d), nullableFloats(d.Data)})
}

func (d *Dataset) UnmarshalJSON(b []byte) error {
	type plain Dataset
	aux := struct {
		*plain
		Data []*float64 `json:"data"`
	}{plain: (*plain)(d)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	d.Data = denullFloats(aux.Data)
	return nil
}
