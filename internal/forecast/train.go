package forecast

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/openefs/prodforecast/internal/net"
	"github.com/openefs/prodforecast/internal/opt"
	"github.com/openefs/prodforecast/internal/tensor"
)

// TrainOptions parametrizes Train.
type TrainOptions struct {
	Epochs int
	// StepsPerEpoch is the number of batches per epoch. Zero means one pass
	// over the examples.
	StepsPerEpoch int
	BatchSize     int
	Shuffle       bool
	// ClipNorm caps the L2 norm of each layer's gradient per step. Zero
	// leaves gradients untouched.
	ClipNorm float64

	// Patience enables early stopping after that many epochs without an
	// improvement larger than MinDelta.
	Patience int
	MinDelta float64

	// ReduceLRPatience enables multiplying the learning rate by
	// ReduceLRFactor whenever the loss plateaus for that many epochs.
	ReduceLRPatience int
	ReduceLRFactor   float64
	MinLearningRate  float64

	// HistoryFile receives one CSV row per epoch when set.
	HistoryFile string
	// Checkpoint receives the best model seen so far when set.
	Checkpoint string

	LogInterval int
	Log         logrus.FieldLogger
}

// DefaultTrainOptions runs 50 epochs of a single 32-example batch each.
func DefaultTrainOptions() TrainOptions {
	return TrainOptions{
		Epochs:         50,
		StepsPerEpoch:  1,
		BatchSize:      32,
		ReduceLRFactor: 0.5,
		LogInterval:    10,
	}
}

func (o TrainOptions) callbacks(model *net.Sequential) []net.Callback {
	var cbs []net.Callback
	if o.Log != nil && o.LogInterval > 0 {
		cbs = append(cbs, net.Logger{Interval: o.LogInterval, Log: o.Log})
	}
	if o.HistoryFile != "" {
		cbs = append(cbs, net.NewCSVLogger(o.HistoryFile, false, o.Log))
	}
	if o.Checkpoint != "" {
		cbs = append(cbs, net.NewModelCheckpoint(o.Checkpoint, o.Log))
	}
	if o.ReduceLRPatience > 0 && o.ReduceLRFactor > 0 {
		sched := opt.NewReduceLROnPlateau(model.Optimizer(), o.ReduceLRFactor, o.ReduceLRPatience, o.MinDelta, o.MinLearningRate)
		cbs = append(cbs, net.NewSchedulerCallback(sched))
	}
	if o.Patience > 0 {
		cbs = append(cbs, net.NewEarlyStopping(o.Patience, o.MinDelta, o.Log))
	}
	return cbs
}

// Train fine-tunes model on the labeled examples.
func Train(ctx context.Context, model *net.Sequential, inputs tensor.Batch, targets [][]float64, o TrainOptions) (net.History, error) {
	shape, err := ShapeOf(model)
	if err != nil {
		return net.History{}, err
	}
	if err := checkBatch(inputs, shape); err != nil {
		return net.History{}, err
	}
	if len(targets) != len(inputs) {
		return net.History{}, fmt.Errorf("got %d examples but %d targets", len(inputs), len(targets))
	}
	for i, t := range targets {
		if len(t) != shape.Outputs {
			return net.History{}, fmt.Errorf("target %d has %d values, model predicts %d", i, len(t), shape.Outputs)
		}
	}
	if o.Epochs <= 0 {
		return net.History{}, fmt.Errorf("invalid epoch count %d", o.Epochs)
	}

	if o.Log != nil {
		o.Log.WithFields(logrus.Fields{
			"examples":        len(inputs),
			"epochs":          o.Epochs,
			"steps_per_epoch": o.StepsPerEpoch,
			"batch_size":      o.BatchSize,
		}).Debug("training started")
	}

	model.ClipNorm = o.ClipNorm
	h, err := model.Fit(ctx, inputs.Flat(), targets, net.FitOptions{
		Epochs:        o.Epochs,
		BatchSize:     o.BatchSize,
		StepsPerEpoch: o.StepsPerEpoch,
		Shuffle:       o.Shuffle,
		Callbacks:     o.callbacks(model),
	})
	if err != nil {
		return h, fmt.Errorf("training stopped after %d epochs: %w", len(h.Loss), err)
	}

	if o.Log != nil && len(h.Loss) > 0 {
		o.Log.WithFields(logrus.Fields{
			"epochs": len(h.Loss),
			"loss":   h.Loss[len(h.Loss)-1],
		}).Info("training finished")
	}
	return h, nil
}

func checkBatch(batch tensor.Batch, shape tensor.Shape) error {
	if len(batch) == 0 {
		return fmt.Errorf("no examples")
	}
	for i, ex := range batch {
		if len(ex) != shape.Timesteps {
			return fmt.Errorf("example %d has %d timesteps, model expects %d", i, len(ex), shape.Timesteps)
		}
		for t, step := range ex {
			if len(step) != shape.Features {
				return fmt.Errorf("example %d timestep %d has %d features, model expects %d", i, t, len(step), shape.Features)
			}
		}
	}
	return nil
}
