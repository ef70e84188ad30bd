package activations

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReLU(t *testing.T) {
	relu := ReLU{}

	tests := []struct {
		input    float64
		expected float64
		deriv    float64
	}{
		{-1.0, 0.0, 0.0},
		{0.0, 0.0, 0.0},
		{1.0, 1.0, 1.0},
		{2.5, 2.5, 1.0},
	}

	for _, tt := range tests {
		assert.InDelta(t, tt.expected, relu.Activate(tt.input), 1e-12, "ReLU(%v)", tt.input)
		assert.InDelta(t, tt.deriv, relu.Derivative(tt.input), 1e-12, "ReLU'(%v)", tt.input)
	}
}

func TestSigmoid(t *testing.T) {
	s := Sigmoid{}
	assert.InDelta(t, 0.5, s.Activate(0), 1e-12)
	assert.InDelta(t, 0.25, s.Derivative(0), 1e-12)
	assert.InDelta(t, 1/(1+math.Exp(-2)), s.Activate(2), 1e-12)
}

func TestTanh(t *testing.T) {
	th := Tanh{}
	assert.InDelta(t, 0, th.Activate(0), 1e-12)
	assert.InDelta(t, 1, th.Derivative(0), 1e-12)
	assert.InDelta(t, math.Tanh(0.7), th.Activate(0.7), 1e-12)
}

func TestLinear(t *testing.T) {
	l := Linear{}
	for _, x := range []float64{-3, 0, 0.25, 42} {
		assert.Equal(t, x, l.Activate(x))
		assert.Equal(t, 1.0, l.Derivative(x))
	}
}

func TestLeakyReLU(t *testing.T) {
	l := NewLeakyReLU(0.1)
	assert.InDelta(t, -0.2, l.Activate(-2), 1e-12)
	assert.InDelta(t, 0.1, l.Derivative(-2), 1e-12)
	assert.InDelta(t, 3, l.Activate(3), 1e-12)
}

func TestNameRoundTrip(t *testing.T) {
	for _, act := range []Activation{Linear{}, ReLU{}, Sigmoid{}, Tanh{}, NewLeakyReLU(0.01)} {
		assert.IsType(t, act, ByName(Name(act)))
	}
	assert.IsType(t, Linear{}, ByName(""))
	assert.IsType(t, Linear{}, ByName("unknown"))
}
