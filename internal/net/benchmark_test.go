package net

import (
	"math/rand"
	"testing"

	"github.com/openefs/prodforecast/internal/activations"
	"github.com/openefs/prodforecast/internal/layer"
	"github.com/openefs/prodforecast/internal/loss"
	"github.com/openefs/prodforecast/internal/opt"
)

// fillRandom fills a slice with random values.
func fillRandom(slice []float64) {
	for i := range slice {
		slice[i] = rand.Float64()
	}
}

func productionNetwork() *Network {
	layers := []layer.Layer{
		layer.NewSequenceUnroller(layer.NewLSTM(1, 32), 13, false),
		layer.NewDense(32, 1, activations.Linear{}),
	}
	return New(layers, loss.MAE{}, opt.NewRMSprop(0.001))
}

// BenchmarkNetworkForward benchmarks one prediction of the production model.
func BenchmarkNetworkForward(b *testing.B) {
	network := productionNetwork()
	input := make([]float64, 13)
	fillRandom(input)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		network.Forward(input)
	}
}

// BenchmarkNetworkTrainBatch benchmarks one optimization step on 32 examples.
func BenchmarkNetworkTrainBatch(b *testing.B) {
	network := productionNetwork()
	batchX := make([][]float64, 32)
	batchY := make([][]float64, 32)
	for i := range batchX {
		batchX[i] = make([]float64, 13)
		batchY[i] = make([]float64, 1)
		fillRandom(batchX[i])
		fillRandom(batchY[i])
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		network.TrainBatch(batchX, batchY)
	}
}
