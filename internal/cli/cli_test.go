package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openefs/prodforecast/internal/forecast"
)

func run(t *testing.T, newCmd func() *cobra.Command, args ...string) (string, int) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	code := Execute(context.Background(), cmd)
	return out.String(), code
}

func numbers(n int) []string {
	s := make([]string, n)
	for i := range s {
		s[i] = strconv.FormatFloat(float64(i)/float64(n), 'f', 4, 64)
	}
	return s
}

func buildModel(t *testing.T, flags ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "production.model")
	out, code := run(t, NewBuildModelCommand, append(flags, path)...)
	require.Equal(t, 0, code, out)
	return path
}

func lines(s string) []string {
	return strings.Split(strings.TrimRight(s, "\n"), "\n")
}

func TestBuildModelUsage(t *testing.T) {
	out, code := run(t, NewBuildModelCommand)
	assert.Equal(t, 1, code)
	assert.Equal(t, "Illegal number of arguments: expected <OutputPath>\n", out)

	_, code = run(t, NewBuildModelCommand, "a", "b")
	assert.Equal(t, 1, code)
}

func TestBuildModel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "production.model")
	out, code := run(t, NewBuildModelCommand, "--units", "8", path)
	require.Equal(t, 0, code, out)
	assert.Equal(t, "Saved production-model to "+path+" !\n", out)

	model, err := forecast.Load(path)
	require.NoError(t, err)
	arch, err := forecast.Describe(model)
	require.NoError(t, err)
	assert.Equal(t, 8, arch.Units)
	assert.Equal(t, 13, arch.Timesteps)
	assert.Equal(t, "rmsprop", arch.Optimizer)
}

func TestBuildModelSummary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "production.model")
	out, code := run(t, NewBuildModelCommand, "--summary", path)
	require.Equal(t, 0, code, out)
	assert.Contains(t, out, "SequenceUnroller_0")
	assert.Contains(t, out, "Total params: 4385")
	assert.True(t, strings.HasSuffix(out, "Saved production-model to "+path+" !\n"))
}

func TestBuildModelInvalidOptions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m")
	_, code := run(t, NewBuildModelCommand, "--loss", "hinge", path)
	assert.Equal(t, 1, code)
	assert.NoFileExists(t, path)

	_, code = run(t, NewBuildModelCommand, "--logformatter", "xml", path)
	assert.Equal(t, 1, code)
}

func TestInference(t *testing.T) {
	path := buildModel(t)
	out, code := run(t, NewInferenceCommand, append([]string{path}, numbers(26)...)...)
	require.Equal(t, 0, code, out)

	l := lines(out)
	require.Len(t, l, 6)
	assert.Equal(t, "Model input:", l[0])
	assert.True(t, strings.HasPrefix(l[1], "[[0] [0.0385]"))
	assert.Equal(t, "Model output:", l[3])
	assert.True(t, strings.HasPrefix(l[4], "["))
}

func TestInferenceCountErrors(t *testing.T) {
	path := buildModel(t)

	out, code := run(t, NewInferenceCommand, append([]string{path}, numbers(5)...)...)
	assert.Equal(t, 1, code)
	assert.Equal(t, "Illegal number of arguments: expected <ModelPath> <InputValues>... (Number must be a multiple of INPUT_SHAPE: 13) got 5\n", out)

	out, code = run(t, NewInferenceCommand)
	assert.Equal(t, 1, code)
	assert.Contains(t, out, "got -1")

	out, code = run(t, NewInferenceCommand, path)
	assert.Equal(t, 1, code)
	assert.Contains(t, out, "got 0")
}

func TestInferenceNegativeValues(t *testing.T) {
	path := buildModel(t, "--timesteps", "2")
	out, code := run(t, NewInferenceCommand, "--timesteps", "2", path, "-1.5", "-2")
	require.Equal(t, 0, code, out)
	assert.Equal(t, "[[-1.5] [-2]]", lines(out)[1])
}

func TestInferenceBadValue(t *testing.T) {
	path := buildModel(t)
	args := append([]string{path}, numbers(12)...)
	out, code := run(t, NewInferenceCommand, append(args, "abc")...)
	assert.Equal(t, 1, code)
	assert.Contains(t, out, "abc")
}

func TestInferenceFromCSV(t *testing.T) {
	path := buildModel(t, "--timesteps", "2", "--features", "2")
	csv := filepath.Join(t.TempDir(), "in.csv")
	require.NoError(t, os.WriteFile(csv, []byte("a,b\n1,2\n3,4\n"), 0o644))

	out, code := run(t, NewInferenceCommand, "--timesteps", "2", "--features", "2", "--csv", csv, "--csv-header", path)
	require.Equal(t, 0, code, out)
	l := lines(out)
	require.Len(t, l, 4)
	assert.Equal(t, "[[1 2] [3 4]]", l[1])
}

func TestInferenceShapeMismatch(t *testing.T) {
	path := buildModel(t)
	out, code := run(t, NewInferenceCommand, append([]string{"--timesteps", "2", path}, numbers(2)...)...)
	assert.Equal(t, 1, code)
	assert.Contains(t, out, "timesteps")
}

func TestTrainModel(t *testing.T) {
	path := buildModel(t)
	before, err := forecast.Load(path)
	require.NoError(t, err)

	trained := filepath.Join(t.TempDir(), "trained.model")
	history := filepath.Join(t.TempDir(), "history.csv")
	args := []string{"--epochs", "3", "--output", trained, "--history", history, path}
	out, code := run(t, NewTrainModelCommand, append(args, numbers(28)...)...)
	require.Equal(t, 0, code, out)

	l := lines(out)
	require.Len(t, l, 7)
	assert.Equal(t, "Model input:", l[0])
	assert.Equal(t, "Model target:", l[3])
	assert.Equal(t, "[0.4643]", l[4])
	assert.Equal(t, "Saved production-model to "+trained+" !", l[6])

	after, err := forecast.Load(trained)
	require.NoError(t, err)
	assert.NotEqual(t, before.Params(), after.Params())
	assert.FileExists(t, history)
}

func TestTrainModelOverwritesInput(t *testing.T) {
	path := buildModel(t)
	out, code := run(t, NewTrainModelCommand, append([]string{"--epochs", "1", path}, numbers(14)...)...)
	require.Equal(t, 0, code, out)
	assert.Contains(t, out, "Saved production-model to "+path+" !")
}

func TestTrainModelCountError(t *testing.T) {
	path := buildModel(t)
	out, code := run(t, NewTrainModelCommand, append([]string{path}, numbers(13)...)...)
	assert.Equal(t, 1, code)
	assert.Equal(t, "Illegal number of arguments: expected <ModelPath> <InputValues>... (Number must be a multiple of INPUT_SHAPE + OUTPUT_SHAPE: 14) got 13\n", out)
}

func TestForecast(t *testing.T) {
	shape := []string{"--timesteps", "2", "--features", "3"}
	path := buildModel(t, shape...)
	plot := filepath.Join(t.TempDir(), "forecast.png")

	args := append(shape, "--plot", plot, path)
	args = append(args, numbers(6)...)
	args = append(args, "0.1", "0.2", "0.3", "0.4")
	out, code := run(t, NewForecastCommand, args...)
	require.Equal(t, 0, code, out)

	l := lines(out)
	require.Len(t, l, 6)
	assert.Equal(t, "Model input:", l[0])
	assert.Equal(t, "[[0 0.1667 0.3333] [0.5 0.6667 0.8333]]", l[1])
	assert.Equal(t, "Model output:", l[2])
	assert.FileExists(t, plot)
}

func TestForecastSingleFeature(t *testing.T) {
	path := buildModel(t)
	out, code := run(t, NewForecastCommand, append([]string{"--steps", "2", path}, numbers(13)...)...)
	require.Equal(t, 0, code, out)

	l := lines(out)
	require.Len(t, l, 3+3)
	assert.Equal(t, "Model input:", l[0])
	assert.Equal(t, "Model output:", l[2])
}

func TestForecastShortSeedMessage(t *testing.T) {
	path := buildModel(t)
	out, code := run(t, NewForecastCommand, append([]string{path}, numbers(5)...)...)
	assert.Equal(t, 1, code)
	assert.Equal(t, "Illegal number of arguments: expected <ModelPath> <InputValues>... (Number must be at least INPUT_SHAPE: 13) got 5\n", out)
}

func TestForecastErrors(t *testing.T) {
	shape := []string{"--timesteps", "2", "--features", "3"}
	path := buildModel(t, shape...)

	tests := []struct {
		name string
		args []string
	}{
		{"short seed", append(append(shape, path), numbers(5)...)},
		{"ragged exogenous", append(append(shape, path), numbers(7)...)},
		{"production index", append(append(shape, "--production-index", "3", path), numbers(6)...)},
		{"steps mismatch", append(append(shape, "--steps", "2", path), numbers(8)...)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, code := run(t, NewForecastCommand, tt.args...)
			assert.Equal(t, 1, code)
		})
	}
}

func TestExogenous(t *testing.T) {
	exog, err := exogenous(nil, 0, 3)
	require.NoError(t, err)
	assert.Len(t, exog, 3)

	exog, err = exogenous([]float64{1, 2, 3, 4}, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{1, 2}, {3, 4}}, exog)

	_, err = exogenous([]float64{1}, 0, 0)
	assert.Error(t, err)
	_, err = exogenous([]float64{1, 2, 3}, 2, 0)
	assert.Error(t, err)
}
