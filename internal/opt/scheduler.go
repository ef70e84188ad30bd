package opt

import "math"

// Scheduler defines the interface for learning rate schedulers.
type Scheduler interface {
	Step()
	StepWithLoss(loss float64)
	GetLR() float64
}

// BaseScheduler provides default implementations for Scheduler.
type BaseScheduler struct{}

func (s BaseScheduler) Step()                     {}
func (s BaseScheduler) StepWithLoss(loss float64) {}

// ReduceLROnPlateau reduces learning rate when a metric has stopped improving.
type ReduceLROnPlateau struct {
	BaseScheduler
	optimizer Optimizer
	factor    float64
	patience  int
	threshold float64
	minLR     float64

	bestLoss     float64
	numBadEpochs int
}

// NewReduceLROnPlateau multiplies the learning rate by factor once the loss
// has not improved by more than threshold for patience epochs.
func NewReduceLROnPlateau(optimizer Optimizer, factor float64, patience int, threshold float64, minLR float64) *ReduceLROnPlateau {
	return &ReduceLROnPlateau{
		optimizer: optimizer,
		factor:    factor,
		patience:  patience,
		threshold: threshold,
		minLR:     minLR,
		bestLoss:  math.MaxFloat64,
	}
}

func (s *ReduceLROnPlateau) StepWithLoss(currentLoss float64) {
	if currentLoss < s.bestLoss-s.threshold {
		s.bestLoss = currentLoss
		s.numBadEpochs = 0
		return
	}

	s.numBadEpochs++
	if s.numBadEpochs < s.patience {
		return
	}
	s.numBadEpochs = 0
	s.optimizer.SetLearningRate(math.Max(s.optimizer.LearningRate()*s.factor, s.minLR))
}

func (s *ReduceLROnPlateau) GetLR() float64 {
	return s.optimizer.LearningRate()
}
