package forecast

import (
	"context"
	"fmt"

	"github.com/openefs/prodforecast/internal/net"
	"github.com/openefs/prodforecast/internal/tensor"
	"github.com/openefs/prodforecast/internal/window"
)

// Predict runs the model on every example of batch.
func Predict(model *net.Sequential, batch tensor.Batch) ([][]float64, error) {
	shape, err := ShapeOf(model)
	if err != nil {
		return nil, err
	}
	if err := checkBatch(batch, shape); err != nil {
		return nil, err
	}
	return model.PredictBatch(batch.Flat()), nil
}

// Forecast predicts iteratively. The first prediction is made from seed;
// each following one from the window advanced by the next exogenous vector
// with the previous prediction inserted at productionIndex. It returns
// len(exog)+1 predictions.
func Forecast(ctx context.Context, model *net.Sequential, seed [][]float64, exog [][]float64, productionIndex int) ([]float64, error) {
	shape, err := ShapeOf(model)
	if err != nil {
		return nil, err
	}
	if err := checkBatch(tensor.Batch{seed}, shape); err != nil {
		return nil, fmt.Errorf("seed: %w", err)
	}
	w, err := window.New(seed)
	if err != nil {
		return nil, err
	}

	predictions := make([]float64, 0, len(exog)+1)
	last := model.Predict(w.Flat())[0]
	predictions = append(predictions, last)
	for i, e := range exog {
		if err := ctx.Err(); err != nil {
			return predictions, err
		}
		if err := w.Advance(e, last, productionIndex); err != nil {
			return predictions, fmt.Errorf("step %d: %w", i+1, err)
		}
		last = model.Predict(w.Flat())[0]
		predictions = append(predictions, last)
	}
	return predictions, nil
}
