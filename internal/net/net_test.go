package net

import (
	"bytes"
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openefs/prodforecast/internal/activations"
	"github.com/openefs/prodforecast/internal/layer"
	"github.com/openefs/prodforecast/internal/loss"
	"github.com/openefs/prodforecast/internal/opt"
)

func linearData() ([][]float64, [][]float64) {
	x := [][]float64{{0}, {0.25}, {0.5}, {0.75}, {1}}
	y := make([][]float64, len(x))
	for i := range x {
		y[i] = []float64{2*x[i][0] + 1}
	}
	return x, y
}

func lstmModel() *Sequential {
	m := NewSequential(
		layer.NewSequenceUnroller(layer.NewLSTM(1, 4), 3, false),
		layer.NewDense(4, 1, activations.Linear{}),
	)
	m.Compile(opt.NewRMSprop(0.01), loss.MAE{})
	return m
}

func TestNetworkForward(t *testing.T) {
	network := New([]layer.Layer{
		layer.NewDense(2, 2, activations.Tanh{}),
		layer.NewDense(2, 1, activations.Sigmoid{}),
	}, loss.MSE{}, opt.NewSGD(0.1))

	output := network.Forward([]float64{1.0, 2.0})
	assert.Len(t, output, 1)
	assert.Equal(t, 2, network.InSize())
	assert.Equal(t, 1, network.OutSize())
}

func TestNetworkLearnsLinearFunction(t *testing.T) {
	network := New([]layer.Layer{layer.NewDense(1, 1, activations.Linear{})}, loss.MSE{}, opt.NewSGD(0.1))
	x, y := linearData()

	first := network.TrainBatch(x, y)
	var last float64
	for i := 0; i < 2000; i++ {
		last = network.TrainBatch(x, y)
	}

	assert.Less(t, last, first)
	assert.Less(t, last, 0.01)
}

func stepNorm(t *testing.T, clip float64) float64 {
	t.Helper()
	network := New([]layer.Layer{layer.NewDense(1, 1, activations.Linear{})}, loss.MSE{}, opt.NewSGD(1))
	network.ClipNorm = clip
	before := append([]float64(nil), network.Params()...)
	network.TrainBatch([][]float64{{1}}, [][]float64{{1000}})
	after := network.Params()
	require.Len(t, after, len(before))
	var sq float64
	for i := range before {
		d := after[i] - before[i]
		sq += d * d
	}
	return math.Sqrt(sq)
}

func TestGradientClipping(t *testing.T) {
	assert.Equal(t, 0.0, New(nil, loss.MSE{}, opt.NewSGD(1)).ClipNorm)
	assert.Equal(t, 0.0, NewSequential().ClipNorm)

	assert.Greater(t, stepNorm(t, 0), 100.0)
	assert.InDelta(t, 0.5, stepNorm(t, 0.5), 1e-9)
}

func TestTrainBatchEmpty(t *testing.T) {
	network := New([]layer.Layer{layer.NewDense(1, 1, nil)}, loss.MSE{}, opt.NewSGD(0.1))
	assert.Equal(t, 0.0, network.TrainBatch(nil, nil))
}

func TestSaveLoadRoundTrip(t *testing.T) {
	m := lstmModel()
	x := []float64{0.1, 0.5, 0.9}
	want := m.Predict(x)

	path := filepath.Join(t.TempDir(), "model.gob")
	require.NoError(t, m.Save(path))

	loaded, err := LoadSequential(path)
	require.NoError(t, err)

	assert.InDeltaSlice(t, want, loaded.Predict(x), 1e-12)
	assert.Equal(t, m.Params(), loaded.Params())
	assert.IsType(t, loss.MAE{}, loaded.Loss())
	require.IsType(t, &opt.RMSprop{}, loaded.Optimizer())
	assert.Equal(t, 0.01, loaded.Optimizer().LearningRate())
	require.Len(t, loaded.Layers(), 2)
	assert.IsType(t, &layer.SequenceUnroller{}, loaded.Layers()[0])
}

func TestEncodeDecode(t *testing.T) {
	m := lstmModel()
	var buf bytes.Buffer
	require.NoError(t, m.Encode(&buf))

	n, err := Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, m.Params(), n.Params())
}

func TestDecodeGarbage(t *testing.T) {
	_, err := Decode(strings.NewReader("not a model"))
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, _, err := Load(filepath.Join(t.TempDir(), "missing.gob"))
	assert.Error(t, err)
}

func TestFitReducesLoss(t *testing.T) {
	m := NewSequential(layer.NewDense(1, 1, activations.Linear{}))
	m.Compile(opt.NewSGD(0.1), loss.MSE{})
	x, y := linearData()

	h, err := m.Fit(context.Background(), x, y, FitOptions{Epochs: 300, BatchSize: 5})
	require.NoError(t, err)
	require.Len(t, h.Loss, 300)
	assert.Len(t, h.LearningRate, 300)
	assert.Less(t, h.Loss[len(h.Loss)-1], h.Loss[0])
}

func TestFitStepsPerEpochCyclesBatches(t *testing.T) {
	m := NewSequential(layer.NewDense(1, 1, activations.Linear{}))
	m.Compile(opt.NewSGD(0.0), loss.MSE{})
	x, y := linearData()

	var counter batchCounter
	_, err := m.Fit(context.Background(), x, y, FitOptions{
		Epochs:        4,
		BatchSize:     2,
		StepsPerEpoch: 1,
		Callbacks:     []Callback{&counter},
	})
	require.NoError(t, err)
	assert.Equal(t, 4, counter.batches)
	assert.Equal(t, 4, counter.epochs)
}

type batchCounter struct {
	BaseCallback
	batches int
	epochs  int
}

func (c *batchCounter) OnBatchEnd(int, float64, *Network) { c.batches++ }
func (c *batchCounter) OnEpochEnd(int, float64, *Network) { c.epochs++ }

func TestFitRequiresCompile(t *testing.T) {
	m := NewSequential(layer.NewDense(1, 1, nil))
	_, err := m.Fit(context.Background(), [][]float64{{1}}, [][]float64{{1}}, FitOptions{Epochs: 1})
	assert.Error(t, err)
}

func TestFitMismatchedTargets(t *testing.T) {
	m := NewSequential(layer.NewDense(1, 1, nil))
	m.Compile(opt.NewSGD(0.1), loss.MSE{})
	_, err := m.Fit(context.Background(), [][]float64{{1}, {2}}, [][]float64{{1}}, FitOptions{Epochs: 1})
	assert.Error(t, err)
}

func TestFitCancelled(t *testing.T) {
	m := NewSequential(layer.NewDense(1, 1, nil))
	m.Compile(opt.NewSGD(0.1), loss.MSE{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	h, err := m.Fit(ctx, [][]float64{{1}}, [][]float64{{1}}, FitOptions{Epochs: 10})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, h.Loss)
}

func TestEvaluate(t *testing.T) {
	m := NewSequential(layer.NewDense(1, 1, activations.Linear{}))
	m.Compile(opt.NewSGD(0.1), loss.MAE{})
	x, y := linearData()

	want := 0.0
	for i := range x {
		want += loss.MAE{}.Forward(m.Predict(x[i]), y[i])
	}
	assert.InDelta(t, want/float64(len(x)), m.Evaluate(x, y), 1e-12)
	assert.Equal(t, 0.0, m.Evaluate(nil, nil))
}

func TestEarlyStopping(t *testing.T) {
	m := NewSequential(layer.NewDense(1, 1, nil))
	m.Compile(opt.NewSGD(0), loss.MSE{})
	x, y := linearData()

	logger, hook := test.NewNullLogger()
	es := NewEarlyStopping(2, 0, logger)
	h, err := m.Fit(context.Background(), x, y, FitOptions{Epochs: 50, Callbacks: []Callback{es}})
	require.NoError(t, err)
	assert.Len(t, h.Loss, 3)
	assert.True(t, es.Stopped)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "early stopping", hook.LastEntry().Message)
}

func TestLoggerCallback(t *testing.T) {
	m := NewSequential(layer.NewDense(1, 1, nil))
	m.Compile(opt.NewSGD(0.01), loss.MSE{})
	x, y := linearData()

	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.InfoLevel)
	_, err := m.Fit(context.Background(), x, y, FitOptions{Epochs: 4, Callbacks: []Callback{Logger{Interval: 2, Log: logger}}})
	require.NoError(t, err)
	assert.Len(t, hook.AllEntries(), 2)
	assert.Equal(t, 2, hook.LastEntry().Data["epoch"])
}

func TestModelCheckpoint(t *testing.T) {
	m := NewSequential(layer.NewDense(1, 1, nil))
	m.Compile(opt.NewSGD(0.1), loss.MSE{})
	x, y := linearData()

	path := filepath.Join(t.TempDir(), "best.gob")
	_, err := m.Fit(context.Background(), x, y, FitOptions{Epochs: 3, Callbacks: []Callback{NewModelCheckpoint(path, nil)}})
	require.NoError(t, err)
	assert.FileExists(t, path)
}

func TestCSVLogger(t *testing.T) {
	m := NewSequential(layer.NewDense(1, 1, nil))
	m.Compile(opt.NewSGD(0.1), loss.MSE{})
	x, y := linearData()

	path := filepath.Join(t.TempDir(), "history.csv")
	_, err := m.Fit(context.Background(), x, y, FitOptions{Epochs: 3, Callbacks: []Callback{NewCSVLogger(path, false, nil)}})
	require.NoError(t, err)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "epoch,loss,learning_rate,time_seconds", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "0,"))
}

func TestSchedulerCallback(t *testing.T) {
	m := NewSequential(layer.NewDense(1, 1, nil))
	optimizer := opt.NewSGD(1e-9)
	m.Compile(optimizer, loss.MSE{})
	x, y := linearData()

	sched := opt.NewReduceLROnPlateau(optimizer, 0.5, 1, 1e-3, 0)
	h, err := m.Fit(context.Background(), x, y, FitOptions{Epochs: 3, Callbacks: []Callback{NewSchedulerCallback(sched)}})
	require.NoError(t, err)
	assert.InDelta(t, 2.5e-10, optimizer.LearningRate(), 1e-20)
	assert.InDelta(t, 1e-9, h.LearningRate[0], 1e-20)
}

func TestSummary(t *testing.T) {
	var buf bytes.Buffer
	lstmModel().Summary(&buf)
	out := buf.String()
	assert.Contains(t, out, "SequenceUnroller_0")
	assert.Contains(t, out, "Dense_1")
	assert.Contains(t, out, "Total params: 101")
}
