// Package report summarises a finished simulation for humans and machines.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/adalundhe/coinbandit/core/bandit"
)

// CoinSummary is the end-of-run picture of one coin.
type CoinSummary struct {
	Index          int     `json:"index"`
	Probability    float64 `json:"probability"`
	Trials         int     `json:"trials"`
	Heads          int     `json:"heads"`
	Alpha          float64 `json:"alpha"`
	Beta           float64 `json:"beta"`
	PosteriorMean  float64 `json:"posterior_mean"`
	SelectionCount int     `json:"selection_count"`
}

// Summary is the end-of-run report for one simulation.
type Summary struct {
	RunID               string        `json:"run_id,omitempty"`
	Rounds              int           `json:"rounds"`
	MovingAverageWindow int           `json:"moving_average_window"`
	TotalReward         int           `json:"total_reward"`
	FinalMovingAverage  *float64      `json:"final_moving_average,omitempty"`
	BestCoin            int           `json:"best_coin"`
	Coins               []CoinSummary `json:"coins"`
}

// SelectionCounts tallies how often each arm appears in log.
func SelectionCounts(log []bandit.Selection, numArms int) []int {
	counts := make([]int, numArms)
	for _, sel := range log {
		if sel.Arm >= 0 && sel.Arm < numArms {
			counts[sel.Arm]++
		}
	}
	return counts
}

// Build combines the bandit's final state with the result of its last run.
func Build(b *bandit.ThompsonBandit, res bandit.Result, window int) Summary {
	counts := SelectionCounts(res.SelectionLog, b.NumArms())

	s := Summary{
		Rounds:              len(res.SelectionLog),
		MovingAverageWindow: window,
		Coins:               make([]CoinSummary, b.NumArms()),
	}
	for _, sel := range res.SelectionLog {
		s.TotalReward += sel.Outcome
	}
	if n := len(res.MovingAverages); n > 0 {
		last := res.MovingAverages[n-1]
		s.FinalMovingAverage = &last
	}

	for i, arm := range b.Arms() {
		p := b.Posterior(i)
		s.Coins[i] = CoinSummary{
			Index:          i,
			Probability:    arm.P,
			Trials:         arm.Trials,
			Heads:          arm.Successes,
			Alpha:          p.Alpha,
			Beta:           p.Beta,
			PosteriorMean:  p.Mean(),
			SelectionCount: counts[i],
		}
		if counts[i] > counts[s.BestCoin] {
			s.BestCoin = i
		}
	}
	return s
}

// ANSI color codes for terminal output.
const (
	colorReset = "\033[0m"
	colorGreen = "\033[32m"
	colorGray  = "\033[90m"
	colorBold  = "\033[1m"
)

// WriteText prints one row per coin. The most selected coin is highlighted
// when color is set.
func (s Summary) WriteText(w io.Writer, color bool) error {
	paint := func(code, text string) string {
		if !color {
			return text
		}
		return code + text + colorReset
	}

	if s.RunID != "" {
		fmt.Fprintf(w, "%s %s\n", paint(colorGray, "run"), s.RunID)
	}

	var table bytes.Buffer
	tw := tabwriter.NewWriter(&table, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "COIN\tP\tTRIALS\tHEADS\tALPHA\tBETA\tMEAN\tSELECTED")
	for _, c := range s.Coins {
		fmt.Fprintf(tw, "Coin %d\t%.2f\t%d\t%d\t%.0f\t%.0f\t%.3f\t%d\n",
			c.Index+1, c.Probability, c.Trials, c.Heads, c.Alpha, c.Beta, c.PosteriorMean, c.SelectionCount)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	lines := strings.Split(strings.TrimRight(table.String(), "\n"), "\n")
	for i, line := range lines {
		switch {
		case i == 0:
			line = paint(colorBold, line)
		case i-1 == s.BestCoin:
			line = paint(colorGreen, line)
		}
		fmt.Fprintln(w, line)
	}

	fmt.Fprintf(w, "\nrounds: %d  total reward: %d", s.Rounds, s.TotalReward)
	if s.FinalMovingAverage != nil {
		fmt.Fprintf(w, "  final moving average (window %d): %.3f", s.MovingAverageWindow, *s.FinalMovingAverage)
	}
	_, err := fmt.Fprintln(w)
	return err
}

// WriteJSON writes s as indented JSON.
func (s Summary) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}
