package bandit

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBetaPosterior(t *testing.T) {
	t.Run("NewUniformPrior creates Beta(1,1)", func(t *testing.T) {
		p := NewUniformPrior()
		assert.Equal(t, 1.0, p.Alpha)
		assert.Equal(t, 1.0, p.Beta)
		assert.Equal(t, 0.5, p.Mean())
		assert.Zero(t, p.TotalObservations())
	})

	t.Run("Observe adds one unit of mass", func(t *testing.T) {
		p := NewUniformPrior()
		p.Observe(1)
		p.Observe(1)
		p.Observe(0)

		assert.Equal(t, BetaPosterior{Alpha: 3, Beta: 2}, p)
		assert.InDelta(t, 0.6, p.Mean(), 1e-12)
		assert.Equal(t, 3, p.TotalObservations())
	})

	t.Run("Variance matches closed form", func(t *testing.T) {
		cases := []struct{ alpha, beta float64 }{
			{1, 1}, {2, 3}, {10, 5}, {50, 50},
		}
		for _, tc := range cases {
			p := BetaPosterior{Alpha: tc.alpha, Beta: tc.beta}
			sum := tc.alpha + tc.beta
			want := (tc.alpha * tc.beta) / (sum * sum * (sum + 1))
			assert.InDelta(t, want, p.Variance(), 1e-12)
		}
	})

	t.Run("Density of uniform prior is flat", func(t *testing.T) {
		p := NewUniformPrior()
		for _, x := range []float64{0, 0.25, 0.5, 1} {
			assert.InDelta(t, 1.0, p.Density(x), 1e-9, "x=%v", x)
		}
		assert.Zero(t, p.Density(1.5))
	})

	t.Run("Sample stays in [0,1] and centres on the mean", func(t *testing.T) {
		src := NewSource(8)
		p := BetaPosterior{Alpha: 30, Beta: 10}

		const n = 5000
		sum := 0.0
		for i := 0; i < n; i++ {
			x := p.Sample(src)
			require.False(t, math.IsNaN(x))
			require.GreaterOrEqual(t, x, 0.0)
			require.LessOrEqual(t, x, 1.0)
			sum += x
		}
		assert.InDelta(t, p.Mean(), sum/n, 0.01)
	})

	t.Run("String formatting", func(t *testing.T) {
		s := BetaPosterior{Alpha: 5, Beta: 3}.String()
		assert.Contains(t, s, "Beta")
		assert.Contains(t, s, "5.0")
		assert.Contains(t, s, "3.0")
		assert.Contains(t, s, "mean")
	})
}
