package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/openefs/prodforecast/internal/forecast"
	"github.com/openefs/prodforecast/internal/tensor"
)

// NewInferenceCommand creates the tool that prints a saved model's
// predictions.
func NewInferenceCommand() *cobra.Command {
	cmd, _ := newCommand("inference <ModelPath> <InputValues>...", "Print a saved model's predictions for a batch of examples", runInference)
	return cmd
}

func runInference(_ context.Context, t *tool, args []string) error {
	shape, err := t.cfg.Shape()
	if err != nil {
		return err
	}
	layout, err := t.cfg.Layout()
	if err != nil {
		return err
	}
	path, values, err := t.values(args, shape.InputWidth(), false)
	if err != nil {
		return err
	}
	batch, err := tensor.Decode(values, shape, layout)
	if err != nil {
		return err
	}

	printBatch(t.out, "Model input:", batch)

	model, err := forecast.Load(path)
	if err != nil {
		return err
	}
	out, err := forecast.Predict(model, batch)
	if err != nil {
		return err
	}
	t.log.WithField("model", path).WithField("examples", len(batch)).Debug("predicted")

	printRows(t.out, "Model output:", out)
	return nil
}
