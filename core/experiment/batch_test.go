package experiment

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adalundhe/coinbandit/core/bandit"
)

func baseSpec() Spec {
	return Spec{
		Probabilities:       []float64{0.3, 0.4, 0.5, 0.6, 0.7, 0.8},
		Runs:                8,
		Workers:             3,
		Rounds:              300,
		MovingAverageWindow: 50,
		BaseSeed:            100,
	}
}

func TestRun(t *testing.T) {
	rep, err := Run(context.Background(), baseSpec())
	require.NoError(t, err)

	assert.Equal(t, 5, rep.BestArm)
	require.Len(t, rep.Runs, 8)
	for i, o := range rep.Runs {
		assert.Equal(t, i, o.Run)
		assert.Equal(t, uint64(100+i), o.Seed)
		assert.GreaterOrEqual(t, o.BestArmRate, 0.0)
		assert.LessOrEqual(t, o.BestArmRate, 1.0)
		total := 0
		for _, c := range o.SelectionCounts {
			total += c
		}
		assert.Equal(t, 300, total)
	}
	assert.Greater(t, rep.MeanReward, 0.0)
	assert.GreaterOrEqual(t, rep.StdDevReward, 0.0)
}

func TestRunIndependentOfWorkerCount(t *testing.T) {
	spec := baseSpec()
	spec.Workers = 1
	serial, err := Run(context.Background(), spec)
	require.NoError(t, err)

	spec.Workers = 8
	parallel, err := Run(context.Background(), spec)
	require.NoError(t, err)

	assert.Equal(t, serial, parallel)
}

func TestRunMatchesSingleBandit(t *testing.T) {
	spec := baseSpec()
	spec.Runs = 1
	rep, err := Run(context.Background(), spec)
	require.NoError(t, err)

	b, err := bandit.New(spec.Probabilities, bandit.WithSeed(spec.BaseSeed))
	require.NoError(t, err)
	_, err = b.RunSimulation(context.Background(), spec.Rounds, spec.MovingAverageWindow, spec.Rounds)
	require.NoError(t, err)

	assert.Equal(t, b.TotalReward(), rep.Runs[0].TotalReward)
	assert.Equal(t, float64(b.TotalReward()), rep.MeanReward)
	assert.Zero(t, rep.StdDevReward)
}

func TestRunDegenerateArmsConverge(t *testing.T) {
	spec := baseSpec()
	spec.Probabilities = []float64{0.0, 1.0}
	spec.Runs = 20
	spec.Rounds = 200

	rep, err := Run(context.Background(), spec)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.BestArm)
	assert.Greater(t, rep.MeanBestArmRate, 0.95)
}

func TestRunValidation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Spec)
	}{
		{"runs", func(s *Spec) { s.Runs = 0 }},
		{"workers", func(s *Spec) { s.Workers = -1 }},
		{"num_rounds", func(s *Spec) { s.Rounds = 0 }},
		{"moving_average_window", func(s *Spec) { s.MovingAverageWindow = 0 }},
		{"success_probabilities", func(s *Spec) { s.Probabilities = nil }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			spec := baseSpec()
			tc.mutate(&spec)
			_, err := Run(context.Background(), spec)
			require.ErrorIs(t, err, bandit.ErrInvalidParameter)

			var pe *bandit.ParameterError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, tc.name, pe.Name)
		})
	}

	t.Run("bad probability surfaces from runs", func(t *testing.T) {
		spec := baseSpec()
		spec.Probabilities = []float64{0.5, 1.2}
		_, err := Run(context.Background(), spec)
		assert.ErrorIs(t, err, bandit.ErrInvalidParameter)
	})
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, baseSpec())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBestArmRate(t *testing.T) {
	log := make([]bandit.Selection, 0, 80)
	for i := 0; i < 80; i++ {
		arm := 0
		if i >= 40 {
			arm = 1
		}
		log = append(log, bandit.Selection{Round: i + 1, Arm: arm})
	}
	assert.Equal(t, 40.0/50.0, bestArmRate(log, 1))
	assert.Equal(t, 1.0, bestArmRate(log[:10], 0))
	assert.Zero(t, bestArmRate(nil, 0))
}
