package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/openefs/prodforecast/internal/forecast"
)

// Config paths
const (
	PathUnits        = "units"
	PathLoss         = "loss"
	PathOptimizer    = "optimizer"
	PathLearningRate = "learning-rate"
	PathSummary      = "summary"
)

// NewBuildModelCommand creates the tool that saves an untrained model.
func NewBuildModelCommand() *cobra.Command {
	cmd, cfg := newCommand("buildmodel <OutputPath>", "Build an untrained production model and save it", runBuildModel)

	def := forecast.DefaultArchitecture()
	flags := cmd.Flags()
	flags.Int(PathUnits, def.Units, "number of LSTM units")
	cfg.Bind(flags, PathUnits)
	flags.String(PathLoss, def.Loss, "loss function (mae, mse or huber)")
	cfg.Bind(flags, PathLoss)
	flags.String(PathOptimizer, def.Optimizer, "optimizer (rmsprop, adam or sgd)")
	cfg.Bind(flags, PathOptimizer)
	flags.Float64(PathLearningRate, def.LearningRate, "optimizer learning rate")
	cfg.Bind(flags, PathLearningRate)
	flags.Bool(PathSummary, false, "print the layers and parameter counts of the model")
	cfg.Bind(flags, PathSummary)
	return cmd
}

func runBuildModel(_ context.Context, t *tool, args []string) error {
	if len(args) != 1 {
		return errors.New("Illegal number of arguments: expected <OutputPath>")
	}
	shape, err := t.cfg.Shape()
	if err != nil {
		return err
	}

	v := t.cfg.Viper
	arch := forecast.Architecture{
		Timesteps:    shape.Timesteps,
		Features:     shape.Features,
		Outputs:      shape.Outputs,
		Units:        v.GetInt(PathUnits),
		Loss:         v.GetString(PathLoss),
		Optimizer:    v.GetString(PathOptimizer),
		LearningRate: v.GetFloat64(PathLearningRate),
	}
	model, err := forecast.Build(arch)
	if err != nil {
		return err
	}
	if v.GetBool(PathSummary) {
		model.Summary(t.out)
	}
	if err := forecast.Save(model, args[0]); err != nil {
		return err
	}

	t.log.WithFields(t.cfg.Fields()).WithFields(logrus.Fields{
		"model":     args[0],
		"units":     arch.Units,
		"loss":      arch.Loss,
		"optimizer": arch.Optimizer,
	}).Debug("built model")
	fmt.Fprintf(t.out, "Saved production-model to %s !\n", args[0])
	return nil
}
