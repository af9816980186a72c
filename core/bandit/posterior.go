package bandit

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// BetaPosterior is the Beta(α, β) belief over one arm's head probability.
// Starting from Beta(1,1), α-1 counts heads and β-1 counts tails.
type BetaPosterior struct {
	Alpha float64
	Beta  float64
}

// NewUniformPrior returns Beta(1,1).
func NewUniformPrior() BetaPosterior {
	return BetaPosterior{Alpha: 1.0, Beta: 1.0}
}

// Observe applies the conjugate update for one Bernoulli outcome.
func (p *BetaPosterior) Observe(outcome int) {
	p.Alpha += float64(outcome)
	p.Beta += float64(1 - outcome)
}

// Sample draws a plausible head probability from the posterior.
func (p BetaPosterior) Sample(src rand.Source) float64 {
	return p.dist(src).Rand()
}

// Density evaluates the posterior pdf at x.
func (p BetaPosterior) Density(x float64) float64 {
	return p.dist(nil).Prob(x)
}

// Mean returns the expected value α/(α+β).
func (p BetaPosterior) Mean() float64 {
	return p.Alpha / (p.Alpha + p.Beta)
}

// Variance returns αβ/((α+β)²(α+β+1)).
func (p BetaPosterior) Variance() float64 {
	sum := p.Alpha + p.Beta
	return (p.Alpha * p.Beta) / (sum * sum * (sum + 1))
}

// TotalObservations is the number of updates applied since the uniform prior.
func (p BetaPosterior) TotalObservations() int {
	return int(math.Round(p.Alpha + p.Beta - 2))
}

// String returns a human-readable representation.
func (p BetaPosterior) String() string {
	return fmt.Sprintf("Beta(α=%.1f, β=%.1f, mean=%.3f)", p.Alpha, p.Beta, p.Mean())
}

func (p BetaPosterior) dist(src rand.Source) distuv.Beta {
	return distuv.Beta{Alpha: p.Alpha, Beta: p.Beta, Src: src}
}
