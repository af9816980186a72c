package bandit

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// Coin is a biased coin with a fixed, hidden probability of heads.
type Coin struct {
	P float64
}

// NewCoin validates p and returns the coin.
func NewCoin(p float64) (Coin, error) {
	if math.IsNaN(p) || p < 0 || p > 1 {
		return Coin{}, invalidParam("success_probability", p, "must lie in [0, 1]")
	}
	return Coin{P: p}, nil
}

// FlipCoin draws one Bernoulli trial with success probability p.
// It returns 1 for heads and 0 for tails and has no other effect.
func FlipCoin(src rand.Source, p float64) int {
	return int(distuv.Bernoulli{P: p, Src: src}.Rand())
}

// ArmCounts accumulates trials and successes for one arm.
// Successes never exceeds Trials.
type ArmCounts struct {
	Trials    int
	Successes int
}

// Record counts one observed outcome.
func (c *ArmCounts) Record(outcome int) {
	c.Trials++
	if outcome == 1 {
		c.Successes++
	}
}

// SuccessRate is the empirical head rate, or 0 before the first trial.
func (c ArmCounts) SuccessRate() float64 {
	if c.Trials == 0 {
		return 0
	}
	return float64(c.Successes) / float64(c.Trials)
}

// Arm pairs a coin with the counters the bandit keeps for it.
type Arm struct {
	Coin
	ArmCounts
}

// Sample flips the arm's coin and records the outcome.
func (a *Arm) Sample(src rand.Source) int {
	outcome := FlipCoin(src, a.P)
	a.Record(outcome)
	return outcome
}

// SimulateCoin flips a single coin n times and returns the resulting counts.
func SimulateCoin(src rand.Source, p float64, n int) (ArmCounts, error) {
	coin, err := NewCoin(p)
	if err != nil {
		return ArmCounts{}, err
	}
	if err := requirePositive("flips", n); err != nil {
		return ArmCounts{}, err
	}

	arm := Arm{Coin: coin}
	for i := 0; i < n; i++ {
		arm.Sample(src)
	}
	return arm.ArmCounts, nil
}
