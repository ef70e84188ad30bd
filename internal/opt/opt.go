// Package opt provides optimization algorithms.
package opt

import (
	"fmt"
	"math"
)

// Optimizer updates network parameters based on gradients.
//
// slot identifies the parameter group (one per layer) so stateful
// optimizers can keep their moments apart.
type Optimizer interface {
	// StepInPlace updates params in-place from gradients.
	StepInPlace(slot int, params, gradients []float64)

	// LearningRate returns the current learning rate.
	LearningRate() float64

	// SetLearningRate changes the learning rate used by later steps.
	SetLearningRate(lr float64)
}

// SGD (Stochastic Gradient Descent) optimizer.
type SGD struct {
	LR float64
}

// NewSGD creates a plain gradient descent optimizer.
func NewSGD(learningRate float64) *SGD {
	return &SGD{LR: learningRate}
}

// StepInPlace updates params in-place: params = params - lr * gradients
func (s *SGD) StepInPlace(_ int, params, gradients []float64) {
	for i := range params {
		params[i] -= s.LR * gradients[i]
	}
}

func (s *SGD) LearningRate() float64      { return s.LR }
func (s *SGD) SetLearningRate(lr float64) { s.LR = lr }

// Adam optimizer for faster convergence.
type Adam struct {
	LR      float64
	Beta1   float64 // Exponential decay rate for first moment
	Beta2   float64 // Exponential decay rate for second moment
	Epsilon float64 // Small constant for numerical stability

	m map[int][]float64
	v map[int][]float64
	t map[int]int
}

// NewAdam creates a new Adam optimizer with default values.
func NewAdam(learningRate float64) *Adam {
	return &Adam{
		LR:      learningRate,
		Beta1:   0.9,
		Beta2:   0.999,
		Epsilon: 1e-8,
		m:       make(map[int][]float64),
		v:       make(map[int][]float64),
		t:       make(map[int]int),
	}
}

// StepInPlace applies one bias-corrected Adam update.
func (a *Adam) StepInPlace(slot int, params, gradients []float64) {
	m := moments(a.m, slot, len(params))
	v := moments(a.v, slot, len(params))
	a.t[slot]++
	t := float64(a.t[slot])

	c1 := 1 - math.Pow(a.Beta1, t)
	c2 := 1 - math.Pow(a.Beta2, t)
	for i := range params {
		g := gradients[i]
		m[i] = a.Beta1*m[i] + (1-a.Beta1)*g
		v[i] = a.Beta2*v[i] + (1-a.Beta2)*g*g
		mHat := m[i] / c1
		vHat := v[i] / c2
		params[i] -= a.LR * mHat / (math.Sqrt(vHat) + a.Epsilon)
	}
}

func (a *Adam) LearningRate() float64      { return a.LR }
func (a *Adam) SetLearningRate(lr float64) { a.LR = lr }

// RMSprop divides the gradient by a running average of its recent magnitude.
// Defaults follow the Keras optimizer: rho 0.9, epsilon 1e-7.
type RMSprop struct {
	LR      float64
	Rho     float64
	Epsilon float64

	cache map[int][]float64
}

// NewRMSprop creates an RMSprop optimizer.
func NewRMSprop(learningRate float64) *RMSprop {
	return &RMSprop{
		LR:      learningRate,
		Rho:     0.9,
		Epsilon: 1e-7,
		cache:   make(map[int][]float64),
	}
}

// StepInPlace applies one RMSprop update.
func (r *RMSprop) StepInPlace(slot int, params, gradients []float64) {
	c := moments(r.cache, slot, len(params))
	for i := range params {
		g := gradients[i]
		c[i] = r.Rho*c[i] + (1-r.Rho)*g*g
		params[i] -= r.LR * g / (math.Sqrt(c[i]) + r.Epsilon)
	}
}

func (r *RMSprop) LearningRate() float64      { return r.LR }
func (r *RMSprop) SetLearningRate(lr float64) { r.LR = lr }

func moments(store map[int][]float64, slot, size int) []float64 {
	buf := store[slot]
	if len(buf) != size {
		buf = make([]float64, size)
		store[slot] = buf
	}
	return buf
}

// Name returns the serialization name of a known optimizer.
func Name(o Optimizer) string {
	switch o.(type) {
	case *Adam:
		return "adam"
	case *RMSprop:
		return "rmsprop"
	default:
		return "sgd"
	}
}

// ByName creates the optimizer registered under name ("sgd", "adam", "rmsprop").
func ByName(name string, learningRate float64) (Optimizer, error) {
	switch name {
	case "sgd", "SGD":
		return NewSGD(learningRate), nil
	case "adam", "Adam":
		return NewAdam(learningRate), nil
	case "rmsprop", "RMSprop":
		return NewRMSprop(learningRate), nil
	default:
		return nil, fmt.Errorf("unknown optimizer %q", name)
	}
}
