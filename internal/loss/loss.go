// Package loss provides optimized loss functions.
package loss

import (
	"fmt"
	"math"
)

// BackwardInPlacer is an optional interface for loss functions that support
// in-place gradient computation to avoid allocations.
type BackwardInPlacer interface {
	BackwardInPlace(yPred, yTrue, grad []float64)
}

// Loss is a loss function with derivative.
type Loss interface {
	// Forward computes the loss between predicted and true values.
	Forward(yPred, yTrue []float64) float64

	// Backward computes the gradient of the loss w.r.t. prediction.
	// This creates a new slice and should be avoided in hot loops.
	Backward(yPred, yTrue []float64) []float64
}

func checkLen(name string, a, b []float64) {
	if len(a) != len(b) {
		panic(name + ": prediction and target must have same length")
	}
}

// MSE (Mean Squared Error) loss.
type MSE struct{}

// Forward computes mean squared error: (1/n) * sum((y_pred - y_true)^2)
func (m MSE) Forward(yPred, yTrue []float64) float64 {
	checkLen("MSE", yPred, yTrue)

	var sum float64
	for i := range yPred {
		diff := yPred[i] - yTrue[i]
		sum += diff * diff
	}
	return sum / float64(len(yPred))
}

// Backward computes gradient: dL/dy_pred = (2/n) * (y_pred - y_true)
func (m MSE) Backward(yPred, yTrue []float64) []float64 {
	grad := make([]float64, len(yPred))
	m.BackwardInPlace(yPred, yTrue, grad)
	return grad
}

// BackwardInPlace computes gradient and stores it in the grad slice.
func (m MSE) BackwardInPlace(yPred, yTrue, grad []float64) {
	checkLen("MSE", yPred, yTrue)
	checkLen("MSE", yPred, grad)

	factor := 2.0 / float64(len(yPred))
	for i := range yPred {
		grad[i] = factor * (yPred[i] - yTrue[i])
	}
}

// MAE (Mean Absolute Error) loss, also known as L1 loss.
type MAE struct{}

// Forward computes mean absolute error: (1/n) * sum(|y_pred - y_true|)
func (m MAE) Forward(yPred, yTrue []float64) float64 {
	checkLen("MAE", yPred, yTrue)

	var sum float64
	for i := range yPred {
		sum += math.Abs(yPred[i] - yTrue[i])
	}
	return sum / float64(len(yPred))
}

// Backward computes gradient: dL/dy_pred = sign(y_pred - y_true) / n
func (m MAE) Backward(yPred, yTrue []float64) []float64 {
	grad := make([]float64, len(yPred))
	m.BackwardInPlace(yPred, yTrue, grad)
	return grad
}

// BackwardInPlace computes gradient and stores it in the grad slice.
// The subgradient at zero difference is 0.
func (m MAE) BackwardInPlace(yPred, yTrue, grad []float64) {
	checkLen("MAE", yPred, yTrue)
	checkLen("MAE", yPred, grad)

	n := float64(len(yPred))
	for i := range yPred {
		diff := yPred[i] - yTrue[i]
		switch {
		case diff > 0:
			grad[i] = 1 / n
		case diff < 0:
			grad[i] = -1 / n
		default:
			grad[i] = 0
		}
	}
}

// Huber loss for robust regression.
type Huber struct {
	Delta float64 // Threshold for quadratic/linear transition
}

// NewHuber creates a Huber loss with the given delta.
func NewHuber(delta float64) *Huber {
	return &Huber{Delta: delta}
}

// Forward computes Huber loss.
func (h Huber) Forward(yPred, yTrue []float64) float64 {
	checkLen("Huber", yPred, yTrue)

	var sum float64
	for i := range yPred {
		diff := math.Abs(yPred[i] - yTrue[i])
		if diff <= h.Delta {
			sum += 0.5 * diff * diff
		} else {
			sum += h.Delta * (diff - 0.5*h.Delta)
		}
	}
	return sum / float64(len(yPred))
}

// Backward computes gradient for Huber loss.
func (h Huber) Backward(yPred, yTrue []float64) []float64 {
	grad := make([]float64, len(yPred))
	h.BackwardInPlace(yPred, yTrue, grad)
	return grad
}

// BackwardInPlace computes gradient and stores it in the grad slice.
func (h Huber) BackwardInPlace(yPred, yTrue, grad []float64) {
	checkLen("Huber", yPred, yTrue)
	checkLen("Huber", yPred, grad)

	n := float64(len(yPred))
	for i := range yPred {
		diff := yPred[i] - yTrue[i]
		if math.Abs(diff) <= h.Delta {
			grad[i] = diff / n
		} else {
			grad[i] = h.Delta * math.Copysign(1, diff) / n
		}
	}
}

// Name returns the serialization name of a known loss.
func Name(l Loss) string {
	switch l.(type) {
	case MSE:
		return "mse"
	case MAE:
		return "mae"
	case *Huber, Huber:
		return "huber"
	default:
		return "mse"
	}
}

// ByName returns the loss registered under name ("mse", "mae", "huber").
func ByName(name string) (Loss, error) {
	switch name {
	case "mse", "MSE", "mean_squared_error":
		return MSE{}, nil
	case "mae", "MAE", "mean_absolute_error", "l1":
		return MAE{}, nil
	case "huber", "Huber":
		return NewHuber(1.0), nil
	default:
		return nil, fmt.Errorf("unknown loss %q", name)
	}
}
