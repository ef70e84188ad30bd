package cli

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/openefs/prodforecast/internal/forecast"
	"github.com/openefs/prodforecast/internal/net"
	"github.com/openefs/prodforecast/internal/tensor"
)

// Config paths
const (
	PathOutput           = "output"
	PathEpochs           = "epochs"
	PathStepsPerEpoch    = "steps-per-epoch"
	PathBatchSize        = "batch-size"
	PathShuffle          = "shuffle"
	PathClipNorm         = "clip-norm"
	PathPatience         = "patience"
	PathMinDelta         = "min-delta"
	PathReduceLRPatience = "reduce-lr-patience"
	PathReduceLRFactor   = "reduce-lr-factor"
	PathHistory          = "history"
	PathCheckpoint       = "checkpoint"
	PathLogInterval      = "log-interval"
	PathHalfLife         = "halflife"
)

// NewTrainModelCommand creates the tool that fine-tunes a saved model.
func NewTrainModelCommand() *cobra.Command {
	cmd, cfg := newCommand("trainmodel <ModelPath> <InputValues>...", "Fine-tune a saved model on labeled examples and save it", runTrainModel)

	def := forecast.DefaultTrainOptions()
	flags := cmd.Flags()
	flags.StringP(PathOutput, "o", "", "save the trained model here instead of overwriting the input model")
	cfg.Bind(flags, PathOutput)
	flags.Int(PathEpochs, def.Epochs, "number of epochs")
	cfg.Bind(flags, PathEpochs)
	flags.Int(PathStepsPerEpoch, def.StepsPerEpoch, "batches per epoch, 0 for a full pass over the examples")
	cfg.Bind(flags, PathStepsPerEpoch)
	flags.Int(PathBatchSize, def.BatchSize, "examples per batch")
	cfg.Bind(flags, PathBatchSize)
	flags.Bool(PathShuffle, false, "shuffle the examples every epoch")
	cfg.Bind(flags, PathShuffle)
	flags.Float64(PathClipNorm, 0, "cap the gradient norm of every layer, 0 disables clipping")
	cfg.Bind(flags, PathClipNorm)
	flags.Int(PathPatience, 0, "stop after this many epochs without improvement, 0 disables early stopping")
	cfg.Bind(flags, PathPatience)
	flags.Float64(PathMinDelta, 0, "smallest loss decrease counted as an improvement")
	cfg.Bind(flags, PathMinDelta)
	flags.Int(PathReduceLRPatience, 0, "reduce the learning rate after this many epochs without improvement, 0 disables it")
	cfg.Bind(flags, PathReduceLRPatience)
	flags.Float64(PathReduceLRFactor, def.ReduceLRFactor, "factor applied to the learning rate on a plateau")
	cfg.Bind(flags, PathReduceLRFactor)
	flags.String(PathHistory, "", "write the loss of every epoch to this CSV file")
	cfg.Bind(flags, PathHistory)
	flags.String(PathCheckpoint, "", "save the best model seen during training to this file")
	cfg.Bind(flags, PathCheckpoint)
	flags.Int(PathLogInterval, def.LogInterval, "log the loss every this many epochs")
	cfg.Bind(flags, PathLogInterval)
	flags.Float64(PathHalfLife, 720, "number of examples after which an error weighs half in the weighted MAE")
	cfg.Bind(flags, PathHalfLife)
	return cmd
}

func runTrainModel(ctx context.Context, t *tool, args []string) error {
	shape, err := t.cfg.Shape()
	if err != nil {
		return err
	}
	layout, err := t.cfg.Layout()
	if err != nil {
		return err
	}
	path, values, err := t.values(args, shape.LabeledWidth(), true)
	if err != nil {
		return err
	}
	inputs, targets, err := tensor.DecodeLabeled(values, shape, layout)
	if err != nil {
		return err
	}

	printBatch(t.out, "Model input:", inputs)
	printRows(t.out, "Model target:", targets)

	model, err := forecast.Load(path)
	if err != nil {
		return err
	}

	v := t.cfg.Viper
	o := forecast.TrainOptions{
		Epochs:           v.GetInt(PathEpochs),
		StepsPerEpoch:    v.GetInt(PathStepsPerEpoch),
		BatchSize:        v.GetInt(PathBatchSize),
		Shuffle:          v.GetBool(PathShuffle),
		ClipNorm:         v.GetFloat64(PathClipNorm),
		Patience:         v.GetInt(PathPatience),
		MinDelta:         v.GetFloat64(PathMinDelta),
		ReduceLRPatience: v.GetInt(PathReduceLRPatience),
		ReduceLRFactor:   v.GetFloat64(PathReduceLRFactor),
		HistoryFile:      v.GetString(PathHistory),
		Checkpoint:       v.GetString(PathCheckpoint),
		LogInterval:      v.GetInt(PathLogInterval),
		Log:              t.log.WithField("model", path),
	}
	if _, err := forecast.Train(ctx, model, inputs, targets, o); err != nil {
		return err
	}

	if err := t.score(model, inputs, targets, path); err != nil {
		return err
	}

	out := v.GetString(PathOutput)
	if out == "" {
		out = path
	}
	if err := forecast.Save(model, out); err != nil {
		return err
	}
	fmt.Fprintf(t.out, "Saved production-model to %s !\n", out)
	return nil
}

// score logs how well the trained model fits the training examples.
func (t *tool) score(model *net.Sequential, inputs tensor.Batch, targets [][]float64, path string) error {
	pred, err := forecast.Predict(model, inputs)
	if err != nil {
		return err
	}
	var p, a []float64
	for i := range pred {
		p = append(p, pred[i]...)
		a = append(a, targets[i]...)
	}
	scores, err := forecast.Evaluate(p, a)
	if err != nil {
		return err
	}
	weighted, err := forecast.WeightedMAE(p, a, t.cfg.Viper.GetFloat64(PathHalfLife))
	if err != nil {
		return err
	}
	t.log.WithFields(logrus.Fields{
		"model":        path,
		"examples":     len(inputs),
		"mae":          scores.MAE,
		"rmse":         scores.RMSE,
		"r2":           scores.R2,
		"weighted_mae": weighted,
	}).Info("training scores")
	return nil
}
