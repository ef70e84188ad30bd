package cli

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/openefs/prodforecast/internal/forecast"
	"github.com/openefs/prodforecast/internal/tensor"
	"github.com/openefs/prodforecast/internal/window"
)

// Config paths
const (
	PathProductionIndex = "production-index"
	PathSteps           = "steps"
	PathPlot            = "plot"
)

// NewForecastCommand creates the tool that forecasts iteratively, feeding
// every prediction back into the next input window.
func NewForecastCommand() *cobra.Command {
	cmd, cfg := newCommand("forecast <ModelPath> <SeedValues>... <ExogenousValues>...", "Forecast iteratively from a seed window and exogenous features", runForecast)
	cmd.Long = `forecast reads one seed example of timesteps x features values followed by
any number of exogenous vectors of features-1 values each. Every prediction is
inserted into the next exogenous vector at --production-index to form the
newest timestep of the following input window.

Models with a single feature have no exogenous values; --steps sets the number
of further predictions instead.`

	flags := cmd.Flags()
	flags.Int(PathProductionIndex, window.AppendIndex, "position of the predicted value within a timestep's features, -1 for the last")
	cfg.Bind(flags, PathProductionIndex)
	flags.Int(PathSteps, 0, "number of further predictions for single-feature models")
	cfg.Bind(flags, PathSteps)
	flags.String(PathPlot, "", "write a PNG chart of the seed production and the forecast to this file")
	cfg.Bind(flags, PathPlot)
	return cmd
}

func runForecast(ctx context.Context, t *tool, args []string) error {
	shape, err := t.cfg.Shape()
	if err != nil {
		return err
	}
	layout, err := t.cfg.Layout()
	if err != nil {
		return err
	}
	v := t.cfg.Viper
	idx := v.GetInt(PathProductionIndex)
	if idx < window.AppendIndex || idx >= shape.Features {
		return fmt.Errorf("production index %d out of range [-1, %d]", idx, shape.Features-1)
	}

	seedWidth := shape.InputWidth()
	if len(args) == 0 {
		return &tensor.CountError{Width: seedWidth, Got: -1, AtLeast: true}
	}
	path := args[0]
	values, err := t.cfg.Values(args[1:])
	if err != nil {
		return err
	}
	if len(values) < seedWidth {
		return &tensor.CountError{Width: seedWidth, Got: len(values), AtLeast: true}
	}

	seed, err := tensor.Decode(values[:seedWidth], shape, layout)
	if err != nil {
		return err
	}
	exog, err := exogenous(values[seedWidth:], shape.Features-1, v.GetInt(PathSteps))
	if err != nil {
		return err
	}

	printBatch(t.out, "Model input:", seed)

	model, err := forecast.Load(path)
	if err != nil {
		return err
	}
	predictions, err := forecast.Forecast(ctx, model, seed[0], exog, idx)
	if err != nil {
		return err
	}
	t.log.WithFields(logrus.Fields{
		"model": path,
		"steps": len(predictions),
	}).Debug("forecasted")

	fmt.Fprintln(t.out, "Model output:")
	for _, p := range predictions {
		fmt.Fprintln(t.out, formatRow([]float64{p}))
	}

	if plot := v.GetString(PathPlot); plot != "" {
		col := idx
		if col == window.AppendIndex {
			col = shape.Features - 1
		}
		history := make([]float64, len(seed[0]))
		for i, step := range seed[0] {
			history[i] = step[col]
		}
		if err := forecast.PlotForecast(plot, history, predictions); err != nil {
			return fmt.Errorf("could not plot forecast: %w", err)
		}
		t.log.WithField("file", plot).Info("saved forecast plot")
	}
	return nil
}

// exogenous splits values into vectors of width values. With width zero,
// steps empty vectors are returned.
func exogenous(values []float64, width, steps int) ([][]float64, error) {
	if width == 0 {
		if len(values) > 0 {
			return nil, fmt.Errorf("got %d exogenous values but the model has a single feature", len(values))
		}
		if steps < 0 {
			return nil, fmt.Errorf("invalid step count %d", steps)
		}
		return make([][]float64, steps), nil
	}
	if len(values)%width != 0 {
		return nil, fmt.Errorf("got %d exogenous values, expected a multiple of %d", len(values), width)
	}
	if steps > 0 && steps != len(values)/width {
		return nil, fmt.Errorf("got %d exogenous vectors for %d steps", len(values)/width, steps)
	}
	exog := make([][]float64, 0, len(values)/width)
	for i := 0; i < len(values); i += width {
		exog = append(exog, values[i:i+width])
	}
	return exog, nil
}
