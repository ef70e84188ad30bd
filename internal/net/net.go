// Package net provides core neural network types.
package net

import (
	"encoding/gob"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/openefs/prodforecast/internal/activations"
	"github.com/openefs/prodforecast/internal/layer"
	"github.com/openefs/prodforecast/internal/loss"
	"github.com/openefs/prodforecast/internal/opt"
)

// Network is a collection of layers that can be forwarded and backwarded.
type Network struct {
	layers []layer.Layer
	loss   loss.Loss
	opt    opt.Optimizer

	// ClipNorm caps the per-layer gradient norm before each optimizer step.
	// Zero disables clipping.
	ClipNorm float64

	// Pre-allocated gradient buffer for training
	lossGradBuf []float64
}

// New creates a new neural network with the given layers.
func New(layers []layer.Layer, loss loss.Loss, optimizer opt.Optimizer) *Network {
	return &Network{
		layers: layers,
		loss:   loss,
		opt:    optimizer,
	}
}

// Forward performs a forward pass through all layers.
// The returned slice is owned by the last layer and is overwritten by the next pass.
func (n *Network) Forward(x []float64) []float64 {
	curr := x
	for i := range n.layers {
		curr = n.layers[i].Forward(curr)
	}
	return curr
}

// Backward performs a backward pass through all layers.
func (n *Network) Backward(grad []float64) []float64 {
	curr := grad
	for i := len(n.layers) - 1; i >= 0; i-- {
		curr = n.layers[i].Backward(curr)
	}
	return curr
}

// step applies one optimization step to the accumulated gradients,
// scaled by scale, and clears them.
func (n *Network) step(scale float64) {
	for i, l := range n.layers {
		gradients := l.Gradients()
		if len(gradients) == 0 {
			continue
		}
		var normSq float64
		for j := range gradients {
			gradients[j] *= scale
			normSq += gradients[j] * gradients[j]
		}
		if norm := math.Sqrt(normSq); n.ClipNorm > 0 && norm > n.ClipNorm {
			factor := n.ClipNorm / norm
			for j := range gradients {
				gradients[j] *= factor
			}
		}

		params := l.Params()
		n.opt.StepInPlace(i, params, gradients)
		l.SetParams(params)
		l.ClearGradients()
	}
}

// ClearGradients zeroes the gradient buffers of every layer.
func (n *Network) ClearGradients() {
	for _, l := range n.layers {
		l.ClearGradients()
	}
}

// accumulate runs forward and backward for one sample and returns its loss.
func (n *Network) accumulate(x, y []float64) float64 {
	yPred := n.Forward(x)
	l := n.loss.Forward(yPred, y)

	if cap(n.lossGradBuf) < len(yPred) {
		n.lossGradBuf = make([]float64, len(yPred))
	}
	grad := n.lossGradBuf[:len(yPred)]

	if backwardInPlace, ok := n.loss.(loss.BackwardInPlacer); ok {
		backwardInPlace.BackwardInPlace(yPred, y, grad)
	} else {
		grad = n.loss.Backward(yPred, y)
	}

	n.Backward(grad)
	return l
}

// Train performs a training step on a single sample.
func (n *Network) Train(x []float64, y []float64) float64 {
	n.ClearGradients()
	l := n.accumulate(x, y)
	n.step(1)
	return l
}

// TrainBatch performs training on a batch of samples.
// Gradients are accumulated over the batch and averaged before a single
// optimization step.
func (n *Network) TrainBatch(batchX [][]float64, batchY [][]float64) float64 {
	if len(batchX) == 0 {
		return 0
	}

	n.ClearGradients()
	var totalLoss float64
	for i := range batchX {
		totalLoss += n.accumulate(batchX[i], batchY[i])
	}

	batchSize := float64(len(batchX))
	n.step(1 / batchSize)
	return totalLoss / batchSize
}

// Params returns all network parameters flattened (copy).
func (n *Network) Params() []float64 {
	var params []float64
	for _, l := range n.layers {
		params = append(params, l.Params()...)
	}
	return params
}

// Layers returns the network's layers slice.
func (n *Network) Layers() []layer.Layer {
	return n.layers
}

// Loss returns the loss function used for training.
func (n *Network) Loss() loss.Loss {
	return n.loss
}

// Optimizer returns the optimizer used for training.
func (n *Network) Optimizer() opt.Optimizer {
	return n.opt
}

// InSize returns the flat input width expected by the first layer.
func (n *Network) InSize() int {
	if len(n.layers) == 0 {
		return 0
	}
	return n.layers[0].InSize()
}

// OutSize returns the output width of the last layer.
func (n *Network) OutSize() int {
	if len(n.layers) == 0 {
		return 0
	}
	return n.layers[len(n.layers)-1].OutSize()
}

// Save saves the network to a file using gob encoding.
// Optimizer moments are not saved; the optimizer type and learning rate are.
func (n *Network) Save(filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	if err := n.Encode(file); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// Load loads a network from a file.
// Returns the loaded network and its loss (for reconstruction).
func Load(filename string) (*Network, loss.Loss, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	n, err := Decode(file)
	if err != nil {
		return nil, nil, err
	}
	return n, n.loss, nil
}

// Decode reads a network written by Encode.
func Decode(r io.Reader) (*Network, error) {
	decoder := gob.NewDecoder(r)

	var numLayers int32
	if err := decoder.Decode(&numLayers); err != nil {
		return nil, fmt.Errorf("failed to read layer count: %w", err)
	}
	if numLayers < 0 {
		return nil, fmt.Errorf("invalid layer count %d", numLayers)
	}

	var lossType string
	if err := decoder.Decode(&lossType); err != nil {
		return nil, fmt.Errorf("failed to read loss type: %w", err)
	}

	var optType string
	if err := decoder.Decode(&optType); err != nil {
		return nil, fmt.Errorf("failed to read optimizer type: %w", err)
	}

	var learningRate float64
	if err := decoder.Decode(&learningRate); err != nil {
		return nil, fmt.Errorf("failed to read learning rate: %w", err)
	}

	layerConfigs := make([]LayerConfig, numLayers)
	for i := range layerConfigs {
		if err := decoder.Decode(&layerConfigs[i]); err != nil {
			return nil, fmt.Errorf("failed to read layer %d: %w", i, err)
		}
	}

	var params []float64
	if err := decoder.Decode(&params); err != nil {
		return nil, fmt.Errorf("failed to read parameters: %w", err)
	}

	var layers []layer.Layer
	offset := 0
	for i, cfg := range layerConfigs {
		l, err := cfg.CreateLayer()
		if err != nil {
			return nil, fmt.Errorf("failed to create layer %d: %w", i, err)
		}
		numParams := len(l.Params())
		if numParams != cfg.NumParams || offset+numParams > len(params) {
			return nil, fmt.Errorf("layer %d: parameter count mismatch", i)
		}
		l.SetParams(params[offset : offset+numParams])
		layers = append(layers, l)
		offset += numParams
	}
	if offset != len(params) {
		return nil, fmt.Errorf("%d trailing parameters", len(params)-offset)
	}

	l, err := loss.ByName(lossType)
	if err != nil {
		return nil, err
	}
	o, err := opt.ByName(optType, learningRate)
	if err != nil {
		return nil, err
	}

	return New(layers, l, o), nil
}

// Encode writes the network to an io.Writer using gob encoding.
func (n *Network) Encode(w io.Writer) error {
	encoder := gob.NewEncoder(w)

	if err := encoder.Encode(int32(len(n.layers))); err != nil {
		return fmt.Errorf("failed to encode layer count: %w", err)
	}

	if err := encoder.Encode(loss.Name(n.loss)); err != nil {
		return fmt.Errorf("failed to encode loss: %w", err)
	}

	optType, lr := "sgd", 0.0
	if n.opt != nil {
		optType, lr = opt.Name(n.opt), n.opt.LearningRate()
	}
	if err := encoder.Encode(optType); err != nil {
		return fmt.Errorf("failed to encode optimizer: %w", err)
	}
	if err := encoder.Encode(lr); err != nil {
		return fmt.Errorf("failed to encode learning rate: %w", err)
	}

	for _, l := range n.layers {
		cfg, err := ExtractLayerConfig(l)
		if err != nil {
			return err
		}
		if err := encoder.Encode(cfg); err != nil {
			return fmt.Errorf("failed to encode layer: %w", err)
		}
	}

	if err := encoder.Encode(n.Params()); err != nil {
		return fmt.Errorf("failed to encode params: %w", err)
	}

	return nil
}

// LayerConfig holds the configuration needed to reconstruct a layer.
type LayerConfig struct {
	Type      string
	InSize    int
	OutSize   int
	NumParams int
	// Activation type for Dense layers
	Activation string
	// SequenceUnroller settings
	TimeSteps       int
	ReturnSequences bool
	Base            *LayerConfig
}

// ExtractLayerConfig extracts the configuration from a layer.
func ExtractLayerConfig(l layer.Layer) (LayerConfig, error) {
	cfg := LayerConfig{
		InSize:    l.InSize(),
		OutSize:   l.OutSize(),
		NumParams: len(l.Params()),
	}

	switch v := l.(type) {
	case *layer.Dense:
		cfg.Type = "Dense"
		cfg.Activation = activations.Name(v.Activation())
	case *layer.LSTM:
		cfg.Type = "LSTM"
	case *layer.SequenceUnroller:
		base, err := ExtractLayerConfig(v.Base())
		if err != nil {
			return cfg, err
		}
		cfg.Type = "SequenceUnroller"
		cfg.TimeSteps = v.TimeSteps()
		cfg.ReturnSequences = v.ReturnSequences()
		cfg.Base = &base
	default:
		return cfg, fmt.Errorf("unsupported layer type: %T", l)
	}

	return cfg, nil
}

// CreateLayer creates a new layer from the configuration.
func (c *LayerConfig) CreateLayer() (layer.Layer, error) {
	switch c.Type {
	case "Dense":
		return layer.NewDense(c.InSize, c.OutSize, activations.ByName(c.Activation)), nil
	case "LSTM":
		return layer.NewLSTM(c.InSize, c.OutSize), nil
	case "SequenceUnroller":
		if c.Base == nil || c.TimeSteps <= 0 {
			return nil, fmt.Errorf("incomplete SequenceUnroller configuration")
		}
		base, err := c.Base.CreateLayer()
		if err != nil {
			return nil, err
		}
		return layer.NewSequenceUnroller(base, c.TimeSteps, c.ReturnSequences), nil
	default:
		return nil, fmt.Errorf("unsupported layer type: %s", c.Type)
	}
}
