package forecast

import (
	"errors"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// PlotForecast writes a PNG line chart of the known history followed by the
// predictions.
func PlotForecast(path string, history, predictions []float64) error {
	if len(history) == 0 && len(predictions) == 0 {
		return errors.New("nothing to plot")
	}

	p := plot.New()
	p.Title.Text = "Production forecast"
	p.X.Label.Text = "step"
	p.Y.Label.Text = "production"
	p.Add(plotter.NewGrid())

	if len(history) > 0 {
		xys := make(plotter.XYs, len(history))
		for i, v := range history {
			xys[i] = plotter.XY{X: float64(i), Y: v}
		}
		line, err := plotter.NewLine(xys)
		if err != nil {
			return err
		}
		line.Color = color.RGBA{R: 120, G: 120, B: 120, A: 255}
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add("history", line)
	}

	if len(predictions) > 0 {
		xys := make(plotter.XYs, len(predictions))
		for i, v := range predictions {
			xys[i] = plotter.XY{X: float64(len(history) + i), Y: v}
		}
		line, err := plotter.NewLine(xys)
		if err != nil {
			return err
		}
		line.Color = color.RGBA{R: 20, G: 80, B: 200, A: 255}
		line.Width = vg.Points(1.5)
		p.Add(line)
		p.Legend.Add("forecast", line)
	}

	return p.Save(8*vg.Inch, 4*vg.Inch, path)
}
