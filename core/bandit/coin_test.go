package bandit

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCoin(t *testing.T) {
	for _, p := range []float64{0, 0.25, 1} {
		coin, err := NewCoin(p)
		require.NoError(t, err)
		assert.Equal(t, p, coin.P)
	}

	for _, p := range []float64{-0.01, 1.5, math.NaN(), math.Inf(1)} {
		_, err := NewCoin(p)
		assert.ErrorIs(t, err, ErrInvalidParameter, "p=%v", p)
	}
}

func TestArmSampleCounts(t *testing.T) {
	src := NewSource(17)
	for _, p := range []float64{0, 0.3, 0.5, 1} {
		arm := Arm{Coin: Coin{P: p}}
		for k := 1; k <= 200; k++ {
			outcome := arm.Sample(src)
			require.Contains(t, []int{0, 1}, outcome)
			require.Equal(t, k, arm.Trials)
			require.GreaterOrEqual(t, arm.Successes, 0)
			require.LessOrEqual(t, arm.Successes, arm.Trials)
		}
	}
}

func TestFlipCoinDegenerate(t *testing.T) {
	src := NewSource(5)
	for i := 0; i < 100; i++ {
		assert.Equal(t, 0, FlipCoin(src, 0))
		assert.Equal(t, 1, FlipCoin(src, 1))
	}
}

func TestSimulateCoin(t *testing.T) {
	counts, err := SimulateCoin(NewSource(99), 0.7, 10000)
	require.NoError(t, err)

	assert.Equal(t, 10000, counts.Trials)
	assert.InDelta(t, 0.7, counts.SuccessRate(), 0.03)

	_, err = SimulateCoin(NewSource(99), 0.7, 0)
	assert.ErrorIs(t, err, ErrInvalidParameter)

	_, err = SimulateCoin(NewSource(99), 2, 10)
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestArmCountsSuccessRate(t *testing.T) {
	var c ArmCounts
	assert.Zero(t, c.SuccessRate())

	c.Record(1)
	c.Record(0)
	c.Record(1)
	c.Record(1)
	assert.Equal(t, ArmCounts{Trials: 4, Successes: 3}, c)
	assert.Equal(t, 0.75, c.SuccessRate())
}
