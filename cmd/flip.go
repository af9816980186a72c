package cmd

import (
	"fmt"
	"io"
	"math/rand/v2"

	"github.com/spf13/cobra"

	"github.com/adalundhe/coinbandit/core/bandit"
	"github.com/adalundhe/coinbandit/core/config"
)

// =============================================================================
// Flip Command Flags
// =============================================================================

var (
	flipProbs []float64
	flipCount int
	flipSeed  uint64
)

// =============================================================================
// Flip Command
// =============================================================================

var flipCmd = &cobra.Command{
	Use:   "flip",
	Short: "Flip each coin a fixed number of times",
	Long: `Flip every coin independently, without any bandit, and report the number of
trials and heads. Useful as a baseline for the simulate command.

Examples:
  coinbandit flip
  coinbandit flip --probs 0.25,0.75 --flips 10000 --seed 7`,
	Args: cobra.NoArgs,
	RunE: runFlip,
}

func init() {
	rootCmd.AddCommand(flipCmd)

	flipCmd.Flags().Float64SliceVarP(&flipProbs, "probs", "p", nil, "Head probability of each coin (default from config)")
	flipCmd.Flags().IntVarP(&flipCount, "flips", "n", 1000, "Flips per coin")
	flipCmd.Flags().Uint64Var(&flipSeed, "seed", 0, "Random seed; a fresh one is drawn when unset")
}

// =============================================================================
// Flip Execution
// =============================================================================

func runFlip(cmd *cobra.Command, args []string) error {
	probs := flipProbs
	if !cmd.Flags().Changed("probs") {
		cfg, err := config.Read(configPath)
		if err != nil {
			return err
		}
		probs = cfg.Simulation.CoinProbabilities
	}

	seed := rand.Uint64()
	if cmd.Flags().Changed("seed") {
		seed = flipSeed
	}
	return flipCoins(cmd.OutOrStdout(), probs, flipCount, seed)
}

// flipCoins flips each coin n times from one seeded stream and prints a block
// per coin.
func flipCoins(out io.Writer, probs []float64, n int, seed uint64) error {
	if len(probs) == 0 {
		return &bandit.ParameterError{Name: "success_probabilities", Value: probs, Reason: "must not be empty"}
	}
	src := bandit.NewSource(seed)

	for _, p := range probs {
		counts, err := bandit.SimulateCoin(src, p, n)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Simulation for coin with success probability %g\n", p)
		fmt.Fprintf(out, "  Trials: %d\n", counts.Trials)
		fmt.Fprintf(out, "  Heads:  %d (%.3f)\n", counts.Successes, counts.SuccessRate())
		fmt.Fprintln(out, "Simulation end")
	}
	return nil
}
