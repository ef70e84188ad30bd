// Package prodforecast exposes the production forecasting model and the
// engine it is built on.
package prodforecast

import (
	"context"
	"time"

	"github.com/openefs/prodforecast/internal/activations"
	"github.com/openefs/prodforecast/internal/features"
	"github.com/openefs/prodforecast/internal/forecast"
	"github.com/openefs/prodforecast/internal/layer"
	"github.com/openefs/prodforecast/internal/loss"
	"github.com/openefs/prodforecast/internal/net"
	"github.com/openefs/prodforecast/internal/opt"
	"github.com/openefs/prodforecast/internal/tensor"
	"github.com/openefs/prodforecast/internal/window"
)

// Re-export common types and functions for easier access
type (
	Model        = net.Sequential
	History      = net.History
	Layer        = layer.Layer
	Optimizer    = opt.Optimizer
	Loss         = loss.Loss
	Architecture = forecast.Architecture
	TrainOptions = forecast.TrainOptions
	Scores       = forecast.Scores
	Shape        = tensor.Shape
	Layout       = tensor.Layout
	Batch        = tensor.Batch
	CountError   = tensor.CountError
	Weather      = features.Weather
)

// Layouts
const (
	TimestepMajor = tensor.TimestepMajor
	FeatureMajor  = tensor.FeatureMajor
)

// AppendProduction places fed back predictions after the exogenous values.
const AppendProduction = window.AppendIndex

// DefaultShape is the production model's input and output shape.
var DefaultShape = tensor.DefaultShape

// Model lifecycle
func DefaultArchitecture() Architecture { return forecast.DefaultArchitecture() }

func DefaultTrainOptions() TrainOptions { return forecast.DefaultTrainOptions() }

func Build(arch Architecture) (*Model, error) { return forecast.Build(arch) }

func Load(path string) (*Model, error) { return forecast.Load(path) }

func Save(model *Model, path string) error { return forecast.Save(model, path) }

func Train(ctx context.Context, model *Model, inputs Batch, targets [][]float64, o TrainOptions) (History, error) {
	return forecast.Train(ctx, model, inputs, targets, o)
}

func Predict(model *Model, batch Batch) ([][]float64, error) {
	return forecast.Predict(model, batch)
}

func Forecast(ctx context.Context, model *Model, seed, exog [][]float64, productionIndex int) ([]float64, error) {
	return forecast.Forecast(ctx, model, seed, exog, productionIndex)
}

func Evaluate(predictions, actual []float64) (Scores, error) {
	return forecast.Evaluate(predictions, actual)
}

// Input decoding
func ParseFloats(tokens []string) ([]float64, error) { return tensor.ParseFloats(tokens) }

func Decode(values []float64, shape Shape, layout Layout) (Batch, error) {
	return tensor.Decode(values, shape, layout)
}

func DecodeLabeled(values []float64, shape Shape, layout Layout) (Batch, [][]float64, error) {
	return tensor.DecodeLabeled(values, shape, layout)
}

// Encode returns the feature vector of a weather observation at t.
func Encode(t time.Time, w Weather) []float64 { return features.Encode(t, w) }

// Engine
type FitOptions = net.FitOptions

// Epochs returns fit options for the given number of full passes.
func Epochs(n int) FitOptions { return FitOptions{Epochs: n} }

func NewSequential(layers ...Layer) *Model {
	return net.NewSequential(layers...)
}

var (
	ReLU    = activations.ReLU{}
	Sigmoid = activations.Sigmoid{}
	Tanh    = activations.Tanh{}
	Linear  = activations.Linear{}
)

func LeakyReLU(alpha float64) activations.Activation {
	return activations.NewLeakyReLU(alpha)
}

func Dense(in, out int, act activations.Activation) Layer {
	return layer.NewDense(in, out, act)
}

func LSTM(in, out int) Layer {
	return layer.NewLSTM(in, out)
}

func SequenceUnroller(l Layer, sequenceLength int, returnSequences bool) Layer {
	return layer.NewSequenceUnroller(l, sequenceLength, returnSequences)
}

// Optimizers
func SGD(lr float64) Optimizer { return opt.NewSGD(lr) }

func Adam(lr float64) Optimizer { return opt.NewAdam(lr) }

func RMSprop(lr float64) Optimizer { return opt.NewRMSprop(lr) }

// Losses
var (
	MSE = loss.MSE{}
	MAE = loss.MAE{}
)

func Huber(delta float64) Loss {
	return loss.NewHuber(delta)
}
