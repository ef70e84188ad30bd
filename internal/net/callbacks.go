package net

import (
	"math"

	"github.com/sirupsen/logrus"

	"github.com/openefs/prodforecast/internal/opt"
)

// Callback defines the interface for training callbacks.
type Callback interface {
	OnTrainBegin(n *Network)
	OnTrainEnd(n *Network)
	OnEpochBegin(epoch int, n *Network)
	OnEpochEnd(epoch int, loss float64, n *Network)
	OnBatchBegin(batch int, n *Network)
	OnBatchEnd(batch int, loss float64, n *Network)
}

// Stopper is implemented by callbacks that can end training early.
type Stopper interface {
	ShouldStop() bool
}

// BaseCallback provides default empty implementations for Callback.
type BaseCallback struct{}

func (c BaseCallback) OnTrainBegin(n *Network)                        {}
func (c BaseCallback) OnTrainEnd(n *Network)                          {}
func (c BaseCallback) OnEpochBegin(epoch int, n *Network)             {}
func (c BaseCallback) OnEpochEnd(epoch int, loss float64, n *Network) {}
func (c BaseCallback) OnBatchBegin(batch int, n *Network)             {}
func (c BaseCallback) OnBatchEnd(batch int, loss float64, n *Network) {}

// SchedulerCallback is a callback that wraps a learning rate scheduler.
type SchedulerCallback struct {
	BaseCallback
	scheduler opt.Scheduler
}

func NewSchedulerCallback(scheduler opt.Scheduler) *SchedulerCallback {
	return &SchedulerCallback{scheduler: scheduler}
}

func (c *SchedulerCallback) OnEpochEnd(epoch int, loss float64, n *Network) {
	c.scheduler.Step()
	c.scheduler.StepWithLoss(loss)
}

// EarlyStopping stops training when the epoch loss has stopped improving.
type EarlyStopping struct {
	BaseCallback
	Patience  int
	Threshold float64
	Log       logrus.FieldLogger

	bestLoss     float64
	numBadEpochs int
	Stopped      bool
}

func NewEarlyStopping(patience int, threshold float64, log logrus.FieldLogger) *EarlyStopping {
	return &EarlyStopping{
		Patience:  patience,
		Threshold: threshold,
		Log:       log,
		bestLoss:  math.MaxFloat64,
	}
}

func (c *EarlyStopping) OnEpochEnd(epoch int, loss float64, n *Network) {
	if loss < c.bestLoss-c.Threshold {
		c.bestLoss = loss
		c.numBadEpochs = 0
	} else {
		c.numBadEpochs++
	}

	if c.numBadEpochs >= c.Patience {
		if c.Log != nil {
			c.Log.WithFields(logrus.Fields{
				"epoch":    epoch,
				"loss":     loss,
				"patience": c.Patience,
			}).Info("early stopping")
		}
		c.Stopped = true
	}
}

func (c *EarlyStopping) ShouldStop() bool { return c.Stopped }

// ModelCheckpoint saves the model after every epoch if it's the best so far.
type ModelCheckpoint struct {
	BaseCallback
	Filename string
	Log      logrus.FieldLogger

	bestLoss float64
}

func NewModelCheckpoint(filename string, log logrus.FieldLogger) *ModelCheckpoint {
	return &ModelCheckpoint{
		Filename: filename,
		Log:      log,
		bestLoss: math.MaxFloat64,
	}
}

func (c *ModelCheckpoint) OnEpochEnd(epoch int, loss float64, n *Network) {
	if loss >= c.bestLoss {
		return
	}
	c.bestLoss = loss
	err := n.Save(c.Filename)
	if c.Log == nil {
		return
	}
	if err != nil {
		c.Log.WithError(err).WithField("file", c.Filename).Error("could not save checkpoint")
		return
	}
	c.Log.WithFields(logrus.Fields{"file": c.Filename, "loss": loss}).Debug("checkpoint saved")
}

// Logger logs training progress every Interval epochs.
type Logger struct {
	BaseCallback
	Interval int
	Log      logrus.FieldLogger
}

func (c Logger) OnEpochEnd(epoch int, loss float64, n *Network) {
	if c.Log == nil || c.Interval <= 0 || epoch%c.Interval != 0 {
		return
	}
	c.Log.WithFields(logrus.Fields{
		"epoch":         epoch,
		"loss":          loss,
		"learning_rate": n.opt.LearningRate(),
	}).Info("epoch finished")
}
