package report

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/adalundhe/coinbandit/core/bandit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runBandit(t *testing.T, probs []float64, rounds, window int) (*bandit.ThompsonBandit, bandit.Result) {
	t.Helper()
	b, err := bandit.New(probs, bandit.WithSeed(21))
	require.NoError(t, err)
	res, err := b.RunSimulation(context.Background(), rounds, window, rounds)
	require.NoError(t, err)
	return b, res
}

func TestSelectionCounts(t *testing.T) {
	log := []bandit.Selection{
		{Round: 1, Arm: 0}, {Round: 2, Arm: 2}, {Round: 3, Arm: 2}, {Round: 4, Arm: 5},
	}
	assert.Equal(t, []int{1, 0, 2}, SelectionCounts(log, 3))
}

func TestBuild(t *testing.T) {
	b, res := runBandit(t, []float64{0.0, 1.0}, 100, 10)
	s := Build(b, res, 10)

	assert.Equal(t, 100, s.Rounds)
	assert.Equal(t, 10, s.MovingAverageWindow)
	assert.Equal(t, b.TotalReward(), s.TotalReward)
	require.NotNil(t, s.FinalMovingAverage)
	assert.Equal(t, res.MovingAverages[len(res.MovingAverages)-1], *s.FinalMovingAverage)
	assert.Equal(t, 1, s.BestCoin)

	require.Len(t, s.Coins, 2)
	total := 0
	for i, c := range s.Coins {
		assert.Equal(t, i, c.Index)
		assert.Equal(t, c.Trials, c.SelectionCount)
		assert.Equal(t, float64(c.Heads)+1, c.Alpha)
		total += c.SelectionCount
	}
	assert.Equal(t, 100, total)
	assert.Zero(t, s.Coins[0].Heads)
	assert.Equal(t, s.Coins[1].Trials, s.Coins[1].Heads)
}

func TestBuildWithoutMovingAverage(t *testing.T) {
	b, res := runBandit(t, []float64{0.5}, 5, 10)
	s := Build(b, res, 10)
	assert.Nil(t, s.FinalMovingAverage)

	var buf bytes.Buffer
	require.NoError(t, s.WriteText(&buf, false))
	assert.NotContains(t, buf.String(), "final moving average")
}

func TestWriteText(t *testing.T) {
	b, res := runBandit(t, []float64{0.3, 0.8}, 50, 10)
	s := Build(b, res, 10)
	s.RunID = "run-123"

	t.Run("plain", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, s.WriteText(&buf, false))

		out := buf.String()
		assert.Contains(t, out, "run-123")
		assert.Contains(t, out, "Coin 1")
		assert.Contains(t, out, "Coin 2")
		assert.Contains(t, out, "SELECTED")
		assert.Contains(t, out, "total reward")
		assert.NotContains(t, out, "\033[")
	})

	t.Run("colored", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, s.WriteText(&buf, true))
		assert.Contains(t, buf.String(), colorGreen)
		assert.True(t, strings.Count(buf.String(), colorReset) >= 2)
	})
}

func TestWriteJSON(t *testing.T) {
	b, res := runBandit(t, []float64{0.3, 0.8}, 50, 10)
	s := Build(b, res, 10)

	var buf bytes.Buffer
	require.NoError(t, s.WriteJSON(&buf))

	var decoded Summary
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, s.TotalReward, decoded.TotalReward)
	assert.Len(t, decoded.Coins, 2)
}
