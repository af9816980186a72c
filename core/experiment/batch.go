// Package experiment runs many independent bandits on the same coins and
// aggregates how well Thompson Sampling found the best one.
package experiment

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/adalundhe/coinbandit/core/bandit"
	"github.com/adalundhe/coinbandit/core/report"
)

// tailRounds is how many final rounds count towards the best-arm rate.
const tailRounds = 50

// Spec describes a batch: the coins, how many runs, and how to run each one.
type Spec struct {
	Probabilities       []float64
	Runs                int
	Workers             int
	Rounds              int
	MovingAverageWindow int
	BaseSeed            uint64
	Logger              *slog.Logger
}

// RunOutcome is the result of one bandit in the batch. Run i is seeded with
// BaseSeed+i so outcomes do not depend on scheduling order.
type RunOutcome struct {
	Run                int     `json:"run"`
	Seed               uint64  `json:"seed"`
	TotalReward        int     `json:"total_reward"`
	BestArmRate        float64 `json:"best_arm_rate"`
	FinalMovingAverage float64 `json:"final_moving_average"`
	SelectionCounts    []int   `json:"selection_counts"`
}

// Report aggregates a batch. BestArm is the coin with the highest true probability.
type Report struct {
	BestArm         int          `json:"best_arm"`
	MeanReward      float64      `json:"mean_reward"`
	StdDevReward    float64      `json:"stddev_reward"`
	MeanBestArmRate float64      `json:"mean_best_arm_rate"`
	Runs            []RunOutcome `json:"runs"`
}

func (s Spec) validate() error {
	if s.Runs <= 0 {
		return &bandit.ParameterError{Name: "runs", Value: s.Runs, Reason: "must be > 0"}
	}
	if s.Workers <= 0 {
		return &bandit.ParameterError{Name: "workers", Value: s.Workers, Reason: "must be > 0"}
	}
	if s.Rounds <= 0 {
		return &bandit.ParameterError{Name: "num_rounds", Value: s.Rounds, Reason: "must be > 0"}
	}
	if s.MovingAverageWindow <= 0 {
		return &bandit.ParameterError{Name: "moving_average_window", Value: s.MovingAverageWindow, Reason: "must be > 0"}
	}
	if len(s.Probabilities) == 0 {
		return &bandit.ParameterError{Name: "success_probabilities", Value: s.Probabilities, Reason: "must not be empty"}
	}
	return nil
}

// Run plays spec.Runs simulations on at most spec.Workers goroutines. The
// first failing run cancels the rest.
func Run(ctx context.Context, spec Spec) (Report, error) {
	if err := spec.validate(); err != nil {
		return Report{}, err
	}
	logger := spec.Logger
	if logger == nil {
		logger = slog.Default()
	}

	bestArm := floats.MaxIdx(spec.Probabilities)
	outcomes := make([]RunOutcome, spec.Runs)
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(spec.Workers)
	for i := 0; i < spec.Runs; i++ {
		g.Go(func() error {
			out, err := runOne(gctx, spec, i, bestArm, logger)
			if err != nil {
				return fmt.Errorf("run %d: %w", i, err)
			}
			outcomes[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Report{}, err
	}

	rep := summarize(outcomes, bestArm)
	logger.Info("batch completed",
		slog.Int("runs", spec.Runs),
		slog.Int("workers", spec.Workers),
		slog.Float64("mean_reward", rep.MeanReward),
		slog.Float64("mean_best_arm_rate", rep.MeanBestArmRate),
		slog.Duration("elapsed", time.Since(start)))
	return rep, nil
}

func runOne(ctx context.Context, spec Spec, i, bestArm int, logger *slog.Logger) (RunOutcome, error) {
	seed := spec.BaseSeed + uint64(i)
	b, err := bandit.New(spec.Probabilities, bandit.WithSeed(seed), bandit.WithLogger(logger))
	if err != nil {
		return RunOutcome{}, err
	}

	res, err := b.RunSimulation(ctx, spec.Rounds, spec.MovingAverageWindow, spec.Rounds)
	if err != nil {
		return RunOutcome{}, err
	}

	out := RunOutcome{
		Run:             i,
		Seed:            seed,
		TotalReward:     b.TotalReward(),
		BestArmRate:     bestArmRate(res.SelectionLog, bestArm),
		SelectionCounts: report.SelectionCounts(res.SelectionLog, b.NumArms()),
	}
	if n := len(res.MovingAverages); n > 0 {
		out.FinalMovingAverage = res.MovingAverages[n-1]
	}
	return out, nil
}

// bestArmRate is the share of the final tailRounds selections (or of all
// of them in shorter runs) that picked bestArm.
func bestArmRate(log []bandit.Selection, bestArm int) float64 {
	tail := log[max(0, len(log)-tailRounds):]
	if len(tail) == 0 {
		return 0
	}
	hits := 0
	for _, sel := range tail {
		if sel.Arm == bestArm {
			hits++
		}
	}
	return float64(hits) / float64(len(tail))
}

func summarize(outcomes []RunOutcome, bestArm int) Report {
	rewards := make([]float64, len(outcomes))
	rates := make([]float64, len(outcomes))
	for i, o := range outcomes {
		rewards[i] = float64(o.TotalReward)
		rates[i] = o.BestArmRate
	}

	rep := Report{
		BestArm:         bestArm,
		MeanBestArmRate: stat.Mean(rates, nil),
		Runs:            outcomes,
	}
	if len(rewards) > 1 {
		rep.MeanReward, rep.StdDevReward = stat.MeanStdDev(rewards, nil)
	} else {
		rep.MeanReward = rewards[0]
	}
	return rep
}
