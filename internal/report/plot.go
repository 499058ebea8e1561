package report

import (
	"fmt"
	"io"
	"math"

	"plate-scanner/internal/calibration"

	"github.com/wcharczuk/go-chart/v2"
)

// Plot size in pixels.
const (
	PlotWidth  = 640
	PlotHeight = 480
)

// WriteCalibrationPlot renders the standards of a fit and the line of model
// as a PNG scatter plot: signal of the model's channel against concentration.
func WriteCalibrationPlot(w io.Writer, fit *calibration.FitResult, model calibration.Model) error {
	if fit == nil || len(fit.Samples) == 0 {
		return fmt.Errorf("no calibration samples to plot")
	}

	xs := make([]float64, len(fit.Samples))
	minX, maxX := math.Inf(1), math.Inf(-1)
	for i, s := range fit.Samples {
		xs[i] = s.Value(model.Channel)
		minX = math.Min(minX, xs[i])
		maxX = math.Max(maxX, xs[i])
	}
	if minX == maxX {
		minX, maxX = minX-1, maxX+1
	}

	graph := chart.Chart{
		Title:  model.String(),
		Width:  PlotWidth,
		Height: PlotHeight,
		XAxis: chart.XAxis{
			Name:  fmt.Sprintf("%s signal", model.Channel),
			Style: chart.Style{FontSize: 10.0},
		},
		YAxis: chart.YAxis{
			Name:  "concentration",
			Style: chart.Style{FontSize: 10.0},
		},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    "standards",
				XValues: xs,
				YValues: fit.Targets,
				Style: chart.Style{
					StrokeWidth: chart.Disabled,
					DotWidth:    4,
					DotColor:    chart.ColorBlue,
				},
			},
			chart.ContinuousSeries{
				Name:    "fit",
				XValues: []float64{minX, maxX},
				YValues: []float64{model.Predict(minX), model.Predict(maxX)},
				Style:   chart.Style{StrokeColor: chart.ColorRed, StrokeWidth: 2.0},
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	if err := graph.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("failed to render calibration plot: %w", err)
	}
	return nil
}
