// Package forecast builds, trains and runs the production forecasting model.
package forecast

import (
	"fmt"

	"github.com/openefs/prodforecast/internal/activations"
	"github.com/openefs/prodforecast/internal/layer"
	"github.com/openefs/prodforecast/internal/loss"
	"github.com/openefs/prodforecast/internal/net"
	"github.com/openefs/prodforecast/internal/opt"
	"github.com/openefs/prodforecast/internal/tensor"
)

// Architecture describes an LSTM regression model.
type Architecture struct {
	Timesteps    int
	Features     int
	Units        int
	Outputs      int
	Loss         string
	Optimizer    string
	LearningRate float64
}

// DefaultArchitecture is LSTM(32) over 13x1 inputs with a linear Dense(1)
// head, trained with MAE and RMSprop.
func DefaultArchitecture() Architecture {
	return Architecture{
		Timesteps:    tensor.DefaultShape.Timesteps,
		Features:     tensor.DefaultShape.Features,
		Units:        32,
		Outputs:      tensor.DefaultShape.Outputs,
		Loss:         "mae",
		Optimizer:    "rmsprop",
		LearningRate: 0.001,
	}
}

// Shape is the input and output shape of the architecture.
func (a Architecture) Shape() tensor.Shape {
	return tensor.Shape{Timesteps: a.Timesteps, Features: a.Features, Outputs: a.Outputs}
}

// Build creates an untrained, compiled model.
func Build(arch Architecture) (*net.Sequential, error) {
	if err := arch.Shape().Validate(); err != nil {
		return nil, err
	}
	if arch.Units < 1 {
		return nil, fmt.Errorf("invalid unit count %d", arch.Units)
	}
	if arch.LearningRate <= 0 {
		return nil, fmt.Errorf("invalid learning rate %g", arch.LearningRate)
	}

	lossFn, err := loss.ByName(arch.Loss)
	if err != nil {
		return nil, err
	}
	optimizer, err := opt.ByName(arch.Optimizer, arch.LearningRate)
	if err != nil {
		return nil, err
	}

	model := net.NewSequential(
		layer.NewSequenceUnroller(layer.NewLSTM(arch.Features, arch.Units), arch.Timesteps, false),
		layer.NewDense(arch.Units, arch.Outputs, activations.Linear{}),
	)
	model.Compile(optimizer, lossFn)
	return model, nil
}

// Describe recovers the architecture of a model created by Build.
func Describe(model *net.Sequential) (Architecture, error) {
	layers := model.Layers()
	if len(layers) != 2 {
		return Architecture{}, fmt.Errorf("expected 2 layers, model has %d", len(layers))
	}
	unroller, ok := layers[0].(*layer.SequenceUnroller)
	if !ok || unroller.ReturnSequences() {
		return Architecture{}, fmt.Errorf("first layer is %T, expected a last-step sequence unroller", layers[0])
	}
	if _, ok := layers[1].(*layer.Dense); !ok {
		return Architecture{}, fmt.Errorf("second layer is %T, expected dense", layers[1])
	}

	arch := Architecture{
		Timesteps: unroller.TimeSteps(),
		Features:  unroller.Base().InSize(),
		Units:     unroller.Base().OutSize(),
		Outputs:   layers[1].OutSize(),
	}
	if l := model.Loss(); l != nil {
		arch.Loss = loss.Name(l)
	}
	if o := model.Optimizer(); o != nil {
		arch.Optimizer = opt.Name(o)
		arch.LearningRate = o.LearningRate()
	}
	return arch, nil
}

// ShapeOf returns the input and output shape of a model created by Build.
func ShapeOf(model *net.Sequential) (tensor.Shape, error) {
	arch, err := Describe(model)
	if err != nil {
		return tensor.Shape{}, err
	}
	return arch.Shape(), nil
}

// Load reads a model file written by Save.
func Load(path string) (*net.Sequential, error) {
	model, err := net.LoadSequential(path)
	if err != nil {
		return nil, fmt.Errorf("could not load model %s: %w", path, err)
	}
	if _, err := Describe(model); err != nil {
		return nil, fmt.Errorf("model %s: %w", path, err)
	}
	return model, nil
}

// Save writes model to path.
func Save(model *net.Sequential, path string) error {
	if err := model.Save(path); err != nil {
		return fmt.Errorf("could not save model %s: %w", path, err)
	}
	return nil
}
