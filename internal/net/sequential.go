package net

import (
	"context"
	"fmt"
	"io"
	"math/rand"

	"github.com/openefs/prodforecast/internal/layer"
	"github.com/openefs/prodforecast/internal/loss"
	"github.com/openefs/prodforecast/internal/opt"
)

// Sequential is a high-level wrapper around Network to provide a Keras-like API.
type Sequential struct {
	*Network
}

// NewSequential creates a new Sequential model.
func NewSequential(layers ...layer.Layer) *Sequential {
	return &Sequential{
		Network: &Network{layers: layers},
	}
}

// LoadSequential loads a model saved with Save.
func LoadSequential(filename string) (*Sequential, error) {
	n, _, err := Load(filename)
	if err != nil {
		return nil, err
	}
	return &Sequential{Network: n}, nil
}

// Compile configures the model for training.
func (s *Sequential) Compile(optimizer opt.Optimizer, lossFn loss.Loss) {
	s.opt = optimizer
	s.loss = lossFn
}

// Compiled reports whether both a loss and an optimizer are set.
func (s *Sequential) Compiled() bool {
	return s.opt != nil && s.loss != nil
}

// Predict performs a forward pass and returns a copy of the output.
func (s *Sequential) Predict(x []float64) []float64 {
	return append([]float64(nil), s.Forward(x)...)
}

// PredictBatch performs forward pass on a batch of samples.
func (s *Sequential) PredictBatch(x [][]float64) [][]float64 {
	out := make([][]float64, len(x))
	for i := range x {
		out[i] = s.Predict(x[i])
	}
	return out
}

// Evaluate calculates the average loss on a dataset.
func (s *Sequential) Evaluate(x, y [][]float64) float64 {
	if len(x) == 0 {
		return 0
	}
	total := 0.0
	for i := range x {
		total += s.loss.Forward(s.Forward(x[i]), y[i])
	}
	return total / float64(len(x))
}

// FitOptions parametrizes Fit.
type FitOptions struct {
	Epochs int
	// BatchSize is the number of samples per optimization step.
	BatchSize int
	// StepsPerEpoch limits the number of batches per epoch. Zero means one
	// pass over the data. Batches are drawn cyclically across epochs.
	StepsPerEpoch int
	Shuffle       bool
	Callbacks     []Callback
}

// History records the mean training loss and learning rate of every epoch.
type History struct {
	Loss         []float64
	LearningRate []float64
}

// Fit trains the model on x and y. It returns the history of the epochs that
// ran, also when ctx is cancelled or a callback stops training early.
func (s *Sequential) Fit(ctx context.Context, x, y [][]float64, o FitOptions) (History, error) {
	var h History
	if !s.Compiled() {
		return h, fmt.Errorf("model is not compiled")
	}
	if len(x) == 0 {
		return h, fmt.Errorf("no training samples")
	}
	if len(x) != len(y) {
		return h, fmt.Errorf("got %d samples but %d targets", len(x), len(y))
	}

	batchSize := o.BatchSize
	if batchSize <= 0 || batchSize > len(x) {
		batchSize = len(x)
	}
	steps := o.StepsPerEpoch
	if steps <= 0 {
		steps = (len(x) + batchSize - 1) / batchSize
	}

	order := make([]int, len(x))
	for i := range order {
		order[i] = i
	}

	for _, c := range o.Callbacks {
		c.OnTrainBegin(s.Network)
	}
	defer func() {
		for _, c := range o.Callbacks {
			c.OnTrainEnd(s.Network)
		}
	}()

	cursor := 0
	batchX := make([][]float64, 0, batchSize)
	batchY := make([][]float64, 0, batchSize)
	for epoch := 0; epoch < o.Epochs; epoch++ {
		if o.Shuffle {
			rand.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
		}
		for _, c := range o.Callbacks {
			c.OnEpochBegin(epoch, s.Network)
		}

		epochLoss := 0.0
		for step := 0; step < steps; step++ {
			if err := ctx.Err(); err != nil {
				return h, err
			}
			batchX, batchY = batchX[:0], batchY[:0]
			for len(batchX) < batchSize {
				idx := order[cursor%len(order)]
				batchX = append(batchX, x[idx])
				batchY = append(batchY, y[idx])
				cursor++
			}

			for _, c := range o.Callbacks {
				c.OnBatchBegin(step, s.Network)
			}
			l := s.TrainBatch(batchX, batchY)
			epochLoss += l
			for _, c := range o.Callbacks {
				c.OnBatchEnd(step, l, s.Network)
			}
		}

		epochLoss /= float64(steps)
		h.Loss = append(h.Loss, epochLoss)
		h.LearningRate = append(h.LearningRate, s.opt.LearningRate())

		stop := false
		for _, c := range o.Callbacks {
			c.OnEpochEnd(epoch, epochLoss, s.Network)
			if st, ok := c.(Stopper); ok && st.ShouldStop() {
				stop = true
			}
		}
		if stop {
			break
		}
	}

	return h, nil
}

// Summary writes a summary of the network architecture.
func (s *Sequential) Summary(w io.Writer) {
	fmt.Fprintln(w, "Model: Sequential")
	fmt.Fprintln(w, "_________________________________________________________________")
	fmt.Fprintf(w, "%-25s %-20s %-10s\n", "Layer (type)", "Output Shape", "Param #")
	fmt.Fprintln(w, "=================================================================")

	totalParams := 0
	for i, l := range s.layers {
		lType := fmt.Sprintf("%T", l)
		// Extract simple type name
		for j := len(lType) - 1; j >= 0; j-- {
			if lType[j] == '.' {
				lType = lType[j+1:]
				break
			}
		}

		params := len(l.Params())
		totalParams += params

		fmt.Fprintf(w, "%-25s %-20s %-10d\n", fmt.Sprintf("%s_%d", lType, i), fmt.Sprintf("(%d)", l.OutSize()), params)
	}
	fmt.Fprintln(w, "=================================================================")
	fmt.Fprintf(w, "Total params: %d\n", totalParams)
	fmt.Fprintln(w, "_________________________________________________________________")
}
