package window

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCopiesSeed(t *testing.T) {
	seed := [][]float64{{1, 2}, {3, 4}}
	w, err := New(seed)
	require.NoError(t, err)

	seed[0][0] = 99
	assert.Equal(t, [][]float64{{1, 2}, {3, 4}}, w.Steps())
	assert.Equal(t, 2, w.Len())
	assert.Equal(t, 2, w.Width())
}

func TestNewRejectsBadSeeds(t *testing.T) {
	tests := []struct {
		name string
		seed [][]float64
	}{
		{"nil", nil},
		{"no features", [][]float64{{}}},
		{"ragged", [][]float64{{1, 2}, {3}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.seed)
			assert.Error(t, err)
		})
	}
}

func TestAdvance(t *testing.T) {
	tests := []struct {
		name  string
		index int
		want  []float64
	}{
		{"append", AppendIndex, []float64{7, 8, 9}},
		{"front", 0, []float64{9, 7, 8}},
		{"middle", 1, []float64{7, 9, 8}},
		{"end", 2, []float64{7, 8, 9}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := New([][]float64{{1, 2, 3}, {4, 5, 6}})
			require.NoError(t, err)

			require.NoError(t, w.Advance([]float64{7, 8}, 9, tt.index))
			assert.Equal(t, [][]float64{{4, 5, 6}, tt.want}, w.Steps())
		})
	}
}

func TestAdvanceSlides(t *testing.T) {
	w, err := New([][]float64{{1}, {2}, {3}})
	require.NoError(t, err)

	for _, p := range []float64{4, 5} {
		require.NoError(t, w.Advance(nil, p, AppendIndex))
	}
	assert.Equal(t, []float64{3, 4, 5}, w.Flat())
	assert.Equal(t, 3, w.Len())
}

func TestAdvanceErrors(t *testing.T) {
	w, err := New([][]float64{{1, 2}})
	require.NoError(t, err)

	assert.Error(t, w.Advance([]float64{1, 2}, 0, AppendIndex))
	assert.Error(t, w.Advance([]float64{1}, 0, 2))
	assert.Error(t, w.Advance([]float64{1}, 0, -2))
	assert.Equal(t, []float64{1, 2}, w.Flat())
}

func TestStepsIsCopy(t *testing.T) {
	w, err := New([][]float64{{1}})
	require.NoError(t, err)
	w.Steps()[0][0] = 42
	assert.Equal(t, []float64{1}, w.Flat())
}
