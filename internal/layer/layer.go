// Package layer provides neural network layer implementations.
package layer

import (
	"math"
	"math/rand"

	"github.com/openefs/prodforecast/internal/activations"
)

// Layer is a neural network layer.
//
// Backward accumulates parameter gradients into the layer's buffers; the
// caller clears them with ClearGradients once an optimization step consumed
// them.
type Layer interface {
	Forward(x []float64) []float64
	Backward(grad []float64) []float64
	Params() []float64
	SetParams([]float64)
	Gradients() []float64
	ClearGradients()
	// Reset drops any per-sequence state.
	Reset()
	InSize() int
	OutSize() int
}

// Dense is a fully connected layer optimized for performance.
// Uses contiguous memory layout with pre-allocated buffers for minimal allocations.
type Dense struct {
	// Weights stored as row-major contiguous slice for cache efficiency
	// Shape: [out * in] where weight for output i, input j is at weights[i*in + j]
	weights []float64
	biases  []float64
	act     activations.Activation
	outSize int
	inSize  int

	// Reusable buffers for gradient computation
	inputBuf  []float64
	outputBuf []float64
	preActBuf []float64
	gradWBuf  []float64
	gradBBuf  []float64
	gradInBuf []float64
	dzBuf     []float64
}

// NewDense creates a new dense layer with pre-allocated buffers.
func NewDense(in, out int, act activations.Activation) *Dense {
	if act == nil {
		act = activations.Linear{}
	}
	weights := make([]float64, out*in)
	biases := make([]float64, out)

	// Xavier/Glorot initialization
	scale := math.Sqrt(2.0 / (float64(in) + float64(out)))
	for i := range weights {
		weights[i] = rand.Float64()*2*scale - scale
	}

	return &Dense{
		weights:   weights,
		biases:    biases,
		act:       act,
		outSize:   out,
		inSize:    in,
		inputBuf:  make([]float64, in),
		outputBuf: make([]float64, out),
		preActBuf: make([]float64, out),
		gradWBuf:  make([]float64, out*in),
		gradBBuf:  make([]float64, out),
		gradInBuf: make([]float64, in),
		dzBuf:     make([]float64, out),
	}
}

// Forward performs a forward pass through the dense layer.
func (d *Dense) Forward(x []float64) []float64 {
	copy(d.inputBuf, x)

	for o := 0; o < d.outSize; o++ {
		sum := d.biases[o]
		wBase := o * d.inSize
		for i := 0; i < d.inSize; i++ {
			sum += d.weights[wBase+i] * d.inputBuf[i]
		}
		d.preActBuf[o] = sum
		d.outputBuf[o] = d.act.Activate(sum)
	}

	return d.outputBuf
}

// Backward performs backpropagation through the dense layer.
// Weight and bias gradients are accumulated, the input gradient is returned.
func (d *Dense) Backward(grad []float64) []float64 {
	dz := d.dzBuf

	// dz = dL/d(output) * activation'(z)
	for o := 0; o < d.outSize; o++ {
		dz[o] = grad[o] * d.act.Derivative(d.preActBuf[o])
		d.gradBBuf[o] += dz[o]
	}

	// dL/dW[o, i] = dz[o] * input[i]
	for o := 0; o < d.outSize; o++ {
		wBase := o * d.inSize
		for i := 0; i < d.inSize; i++ {
			d.gradWBuf[wBase+i] += dz[o] * d.inputBuf[i]
		}
	}

	// dL/dx[i] = sum_o(dz[o] * W[o, i])
	for i := 0; i < d.inSize; i++ {
		sum := 0.0
		for o := 0; o < d.outSize; o++ {
			sum += dz[o] * d.weights[o*d.inSize+i]
		}
		d.gradInBuf[i] = sum
	}

	return d.gradInBuf
}

// Params returns all dense layer parameters flattened.
func (d *Dense) Params() []float64 {
	params := make([]float64, 0, len(d.weights)+len(d.biases))
	params = append(params, d.weights...)
	params = append(params, d.biases...)
	return params
}

// SetParams updates weights and biases from a flattened slice (in-place).
func (d *Dense) SetParams(params []float64) {
	copy(d.weights, params[:len(d.weights)])
	copy(d.biases, params[len(d.weights):])
}

// Gradients returns all dense layer gradients flattened.
func (d *Dense) Gradients() []float64 {
	gradients := make([]float64, 0, len(d.gradWBuf)+len(d.gradBBuf))
	gradients = append(gradients, d.gradWBuf...)
	gradients = append(gradients, d.gradBBuf...)
	return gradients
}

// ClearGradients zeroes out the accumulated gradients.
func (d *Dense) ClearGradients() {
	clear(d.gradWBuf)
	clear(d.gradBBuf)
}

// Reset is a no-op; dense layers keep no sequence state.
func (d *Dense) Reset() {}

// InSize returns the input size of the layer.
func (d *Dense) InSize() int {
	return d.inSize
}

// OutSize returns the output size of the layer.
func (d *Dense) OutSize() int {
	return d.outSize
}

// Activation returns the activation function used by this layer.
func (d *Dense) Activation() activations.Activation {
	return d.act
}
