// Package window implements the sliding input window used for
// autoregressive forecasting.
package window

import (
	"errors"
	"fmt"

	"github.com/openefs/prodforecast/internal/tensor"
)

// AppendIndex inserts the prediction after the exogenous values.
const AppendIndex = -1

// Window holds a fixed number of equally wide feature vectors, oldest first.
type Window struct {
	steps [][]float64
	width int
}

// New copies seed into a window. The seed must be non-empty and rectangular.
func New(seed [][]float64) (*Window, error) {
	if len(seed) == 0 {
		return nil, errors.New("window seed is empty")
	}
	width := len(seed[0])
	if width == 0 {
		return nil, errors.New("window seed has no features")
	}

	steps := make([][]float64, len(seed))
	for i, s := range seed {
		if len(s) != width {
			return nil, fmt.Errorf("seed step %d has %d features, expected %d", i, len(s), width)
		}
		steps[i] = append([]float64(nil), s...)
	}
	return &Window{steps: steps, width: width}, nil
}

// Advance drops the oldest vector and appends exog with prediction inserted
// at productionIndex. AppendIndex places it last.
func (w *Window) Advance(exog []float64, prediction float64, productionIndex int) error {
	if len(exog)+1 != w.width {
		return fmt.Errorf("exogenous vector has %d values, expected %d", len(exog), w.width-1)
	}
	if productionIndex == AppendIndex {
		productionIndex = len(exog)
	}
	if productionIndex < 0 || productionIndex > len(exog) {
		return fmt.Errorf("production index %d out of range [0, %d]", productionIndex, len(exog))
	}

	next := make([]float64, 0, w.width)
	next = append(next, exog[:productionIndex]...)
	next = append(next, prediction)
	next = append(next, exog[productionIndex:]...)

	copy(w.steps, w.steps[1:])
	w.steps[len(w.steps)-1] = next
	return nil
}

// Flat returns the window flattened timestep-major.
func (w *Window) Flat() []float64 {
	return tensor.Flatten(w.steps)
}

// Steps returns a copy of the window's vectors.
func (w *Window) Steps() [][]float64 {
	out := make([][]float64, len(w.steps))
	for i, s := range w.steps {
		out[i] = append([]float64(nil), s...)
	}
	return out
}

// Len is the number of vectors in the window.
func (w *Window) Len() int { return len(w.steps) }

// Width is the number of features per vector.
func (w *Window) Width() int { return w.width }
