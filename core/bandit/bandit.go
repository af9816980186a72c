// Package bandit implements Thompson Sampling over a set of biased coins.
//
// Each coin (arm) carries a Beta(α, β) posterior over its head probability.
// Every round the bandit draws one sample from each posterior, flips the coin
// whose draw is highest, and folds the outcome back into that coin's
// posterior with the closed-form Beta-Bernoulli update.
package bandit

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"reflect"
	"time"

	"gonum.org/v1/gonum/floats"
)

// State is the lifecycle stage of a ThompsonBandit.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateCompleted
)

var stateNames = map[State]string{
	StateIdle:      "idle",
	StateRunning:   "running",
	StateCompleted: "completed",
}

// String returns the lowercase state name.
func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Selection records one round: which arm was flipped and what it returned.
// Round is 1-based and counts every round the bandit has played.
type Selection struct {
	Round   int `json:"round"`
	Arm     int `json:"arm"`
	Outcome int `json:"outcome"`
}

// Result is what RunSimulation returns for a single run.
type Result struct {
	SelectionLog   []Selection `json:"selection_log"`
	MovingAverages []float64   `json:"moving_averages"`
}

// RoundObserver is notified after every round.
type RoundObserver interface {
	OnRound(Selection)
}

// ThompsonBandit owns the arms, their posteriors and the reward history.
// It is not safe for concurrent use.
type ThompsonBandit struct {
	arms       []Arm
	posteriors []BetaPosterior
	thetas     []float64
	rewards    []int
	log        []Selection
	state      State

	src               rand.Source
	logger            *slog.Logger
	snapshotObservers []SnapshotObserver
	roundObservers    []RoundObserver
}

type options struct {
	src               rand.Source
	logger            *slog.Logger
	snapshotObservers []SnapshotObserver
	roundObservers    []RoundObserver
}

// Option configures a ThompsonBandit.
type Option func(*options)

// WithSource sets the random stream used for both coin flips and posterior
// draws. The bandit takes ownership of src.
func WithSource(src rand.Source) Option {
	return func(o *options) {
		o.src = src
	}
}

// WithSeed gives the bandit its own deterministic stream.
func WithSeed(seed uint64) Option {
	return WithSource(NewSource(seed))
}

// WithLogger sets the logger. slog.Default() is used otherwise.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithObserver registers a snapshot observer. If obs also implements
// RoundObserver it is notified after every round as well.
func WithObserver(obs SnapshotObserver) Option {
	return func(o *options) {
		o.snapshotObservers = append(o.snapshotObservers, obs)
		if ro, ok := obs.(RoundObserver); ok {
			o.addRoundObserver(ro)
		}
	}
}

// WithRoundObserver registers an observer that only wants per-round events.
// An observer already registered through WithObserver is not added twice.
func WithRoundObserver(obs RoundObserver) Option {
	return func(o *options) {
		o.addRoundObserver(obs)
	}
}

func (o *options) addRoundObserver(obs RoundObserver) {
	if obs == nil {
		return
	}
	// Non-comparable observers (func types, for one) cannot be matched.
	if reflect.TypeOf(obs).Comparable() {
		for _, existing := range o.roundObservers {
			if existing == obs {
				return
			}
		}
	}
	o.roundObservers = append(o.roundObservers, obs)
}

// NewSource returns a PCG stream for seed. Equal seeds give equal streams.
func NewSource(seed uint64) rand.Source {
	return rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)
}

// New builds a bandit with one arm per success probability. Every
// probability must lie in [0, 1] and at least one is required.
func New(successProbabilities []float64, opts ...Option) (*ThompsonBandit, error) {
	if len(successProbabilities) == 0 {
		return nil, invalidParam("success_probabilities", successProbabilities, "must not be empty")
	}

	arms := make([]Arm, len(successProbabilities))
	posteriors := make([]BetaPosterior, len(successProbabilities))
	for i, p := range successProbabilities {
		coin, err := NewCoin(p)
		if err != nil {
			return nil, err
		}
		arms[i] = Arm{Coin: coin}
		posteriors[i] = NewUniformPrior()
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.src == nil {
		o.src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	b := &ThompsonBandit{
		arms:              arms,
		posteriors:        posteriors,
		thetas:            make([]float64, len(arms)),
		state:             StateIdle,
		src:               o.src,
		logger:            o.logger,
		snapshotObservers: o.snapshotObservers,
		roundObservers:    o.roundObservers,
	}

	b.logger.Debug("thompson bandit created",
		slog.Int("arms", len(arms)),
		slog.Any("success_probabilities", successProbabilities))

	return b, nil
}

// SelectArm draws θ_i ~ Beta(α_i, β_i) for every arm and returns the index
// of the largest draw. Ties go to the lowest index.
func (b *ThompsonBandit) SelectArm() int {
	for i, p := range b.posteriors {
		b.thetas[i] = p.Sample(b.src)
	}
	return floats.MaxIdx(b.thetas)
}

// Update folds one observed outcome into the posterior of armIndex. No
// other state changes.
func (b *ThompsonBandit) Update(armIndex, outcome int) error {
	if armIndex < 0 || armIndex >= len(b.posteriors) {
		return invalidParam("arm_index", armIndex, "out of range")
	}
	if outcome != 0 && outcome != 1 {
		return invalidParam("outcome", outcome, "must be 0 or 1")
	}
	b.posteriors[armIndex].Observe(outcome)
	return nil
}

// Step plays one round: select, flip, update, record.
func (b *ThompsonBandit) Step() Selection {
	arm := b.SelectArm()
	outcome := b.arms[arm].Sample(b.src)
	b.posteriors[arm].Observe(outcome)

	sel := Selection{Round: len(b.log) + 1, Arm: arm, Outcome: outcome}
	b.rewards = append(b.rewards, outcome)
	b.log = append(b.log, sel)

	for _, obs := range b.roundObservers {
		obs.OnRound(sel)
	}
	return sel
}

// RunSimulation plays numRounds rounds. After each round in which at least
// movingAverageWindow rounds of this run have completed, it appends the mean
// of the last movingAverageWindow rewards to the result. Every plotInterval
// rounds of this run it sends a snapshot to the registered observers.
//
// ctx is checked before each round. On cancellation the rounds played so
// far are returned along with ctx.Err().
func (b *ThompsonBandit) RunSimulation(ctx context.Context, numRounds, movingAverageWindow, plotInterval int) (Result, error) {
	if err := requirePositive("num_rounds", numRounds); err != nil {
		return Result{}, err
	}
	if err := requirePositive("moving_average_window", movingAverageWindow); err != nil {
		return Result{}, err
	}
	if err := requirePositive("plot_interval", plotInterval); err != nil {
		return Result{}, err
	}

	res := Result{
		SelectionLog:   make([]Selection, 0, numRounds),
		MovingAverages: make([]float64, 0, max(0, numRounds-movingAverageWindow+1)),
	}
	window := newMovingWindow(movingAverageWindow)
	start := time.Now()
	b.state = StateRunning

	for r := 1; r <= numRounds; r++ {
		if err := ctx.Err(); err != nil {
			b.state = StateCompleted
			b.logger.Warn("simulation cancelled",
				slog.Int("rounds_played", r-1),
				slog.Int("rounds_requested", numRounds))
			return res, err
		}

		sel := b.Step()
		res.SelectionLog = append(res.SelectionLog, sel)

		if avg, ok := window.push(sel.Outcome); ok {
			res.MovingAverages = append(res.MovingAverages, avg)
		}

		if r%plotInterval == 0 {
			b.emitSnapshot(sel.Round)
		}
	}

	b.state = StateCompleted
	b.logger.Debug("simulation completed",
		slog.Int("rounds", numRounds),
		slog.Int("total_reward", b.TotalReward()),
		slog.Duration("elapsed", time.Since(start)))

	return res, nil
}

func (b *ThompsonBandit) emitSnapshot(round int) {
	if len(b.snapshotObservers) == 0 {
		return
	}
	snap := Snapshot{Round: round, Posteriors: b.Posteriors()}
	for _, obs := range b.snapshotObservers {
		obs.OnSnapshot(snap)
	}
}

// State returns the current lifecycle stage.
func (b *ThompsonBandit) State() State {
	return b.state
}

// NumArms returns the number of coins.
func (b *ThompsonBandit) NumArms() int {
	return len(b.arms)
}

// Arm returns a copy of arm i's coin and counters.
func (b *ThompsonBandit) Arm(i int) Arm {
	return b.arms[i]
}

// Arms returns a copy of every arm.
func (b *ThompsonBandit) Arms() []Arm {
	out := make([]Arm, len(b.arms))
	copy(out, b.arms)
	return out
}

// Posterior returns arm i's current Beta parameters.
func (b *ThompsonBandit) Posterior(i int) BetaPosterior {
	return b.posteriors[i]
}

// Posteriors returns a copy of all posteriors in arm order.
func (b *ThompsonBandit) Posteriors() []BetaPosterior {
	out := make([]BetaPosterior, len(b.posteriors))
	copy(out, b.posteriors)
	return out
}

// RewardHistory returns every outcome observed so far, across runs.
func (b *ThompsonBandit) RewardHistory() []int {
	out := make([]int, len(b.rewards))
	copy(out, b.rewards)
	return out
}

// SelectionLog returns every round played so far, across runs.
func (b *ThompsonBandit) SelectionLog() []Selection {
	out := make([]Selection, len(b.log))
	copy(out, b.log)
	return out
}

// Snapshot returns the current posteriors labelled with the last round played.
func (b *ThompsonBandit) Snapshot() Snapshot {
	return Snapshot{Round: len(b.log), Posteriors: b.Posteriors()}
}

// TotalReward returns the number of heads observed so far.
func (b *ThompsonBandit) TotalReward() int {
	total := 0
	for _, r := range b.rewards {
		total += r
	}
	return total
}
