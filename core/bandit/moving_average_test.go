package bandit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMovingAverages(t *testing.T) {
	t.Run("all ones is exactly one", func(t *testing.T) {
		rewards := make([]int, 250)
		for i := range rewards {
			rewards[i] = 1
		}
		avgs, err := MovingAverages(rewards, 100)
		require.NoError(t, err)
		require.Len(t, avgs, 151)
		for _, a := range avgs {
			assert.Equal(t, 1.0, a)
		}
	})

	t.Run("all zeros is exactly zero", func(t *testing.T) {
		avgs, err := MovingAverages(make([]int, 40), 7)
		require.NoError(t, err)
		require.Len(t, avgs, 34)
		for _, a := range avgs {
			assert.Equal(t, 0.0, a)
		}
	})

	t.Run("slides over the last window", func(t *testing.T) {
		avgs, err := MovingAverages([]int{1, 0, 1, 1, 0}, 2)
		require.NoError(t, err)
		assert.Equal(t, []float64{0.5, 0.5, 1, 0.5}, avgs)
	})

	t.Run("short history yields nothing", func(t *testing.T) {
		avgs, err := MovingAverages([]int{1, 1}, 3)
		require.NoError(t, err)
		assert.Empty(t, avgs)
	})

	t.Run("window must be positive", func(t *testing.T) {
		_, err := MovingAverages([]int{1}, 0)
		assert.ErrorIs(t, err, ErrInvalidParameter)
	})
}

func TestMovingWindowMatchesBatch(t *testing.T) {
	rewards := []int{1, 1, 0, 1, 0, 0, 0, 1, 1, 1, 0, 1}
	want, err := MovingAverages(rewards, 4)
	require.NoError(t, err)

	w := newMovingWindow(4)
	var got []float64
	for _, r := range rewards {
		if avg, ok := w.push(r); ok {
			got = append(got, avg)
		}
	}
	assert.Equal(t, want, got)
}
