package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"os"
	"os/signal"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/adalundhe/coinbandit/core/config"
	"github.com/adalundhe/coinbandit/core/experiment"
)

// =============================================================================
// Batch Command Flags
// =============================================================================

var (
	batchProbs   []float64
	batchRuns    int
	batchWorkers int
	batchRounds  int
	batchWindow  int
	batchSeed    uint64
	batchJSON    bool
	batchVerbose bool
)

// =============================================================================
// Batch Command
// =============================================================================

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Run many independent simulations and aggregate the outcome",
	Long: `Run the same coins through many independently seeded bandits in parallel and
report the mean total reward and how often the best coin was chosen at the end.

Run i is seeded with seed+i, so results do not depend on --workers.

Examples:
  coinbandit batch --runs 200 --workers 8
  coinbandit batch --probs 0.45,0.55 --rounds 5000 --seed 1 --json`,
	Args: cobra.NoArgs,
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	flags := batchCmd.Flags()
	flags.Float64SliceVarP(&batchProbs, "probs", "p", nil, "Head probability of each coin (default from config)")
	flags.IntVar(&batchRuns, "runs", 0, "Number of simulations (default from config)")
	flags.IntVar(&batchWorkers, "workers", 0, "Simulations run in parallel (default from config)")
	flags.IntVarP(&batchRounds, "rounds", "n", 0, "Rounds per simulation (default from config)")
	flags.IntVarP(&batchWindow, "window", "w", 0, "Moving average window (default from config)")
	flags.Uint64Var(&batchSeed, "seed", 0, "Base seed; a fresh one is drawn when unset")
	flags.BoolVar(&batchJSON, "json", false, "Print the report as JSON")
	flags.BoolVarP(&batchVerbose, "verbose", "v", false, "List every run")
}

// =============================================================================
// Batch Execution
// =============================================================================

func runBatch(cmd *cobra.Command, args []string) error {
	cfg, err := config.Read(configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	spec := experiment.Spec{
		Probabilities:       cfg.Simulation.CoinProbabilities,
		Runs:                cfg.Batch.Runs,
		Workers:             cfg.Batch.Workers,
		Rounds:              cfg.Simulation.Rounds,
		MovingAverageWindow: cfg.Simulation.MovingAverageWindow,
		Logger:              slog.Default(),
	}
	if flags.Changed("probs") {
		spec.Probabilities = batchProbs
	}
	if flags.Changed("runs") {
		spec.Runs = batchRuns
	}
	if flags.Changed("workers") {
		spec.Workers = batchWorkers
	}
	if flags.Changed("rounds") {
		spec.Rounds = batchRounds
	}
	if flags.Changed("window") {
		spec.MovingAverageWindow = batchWindow
	}

	switch {
	case flags.Changed("seed"):
		spec.BaseSeed = batchSeed
	case cfg.Simulation.Seed != nil:
		spec.BaseSeed = *cfg.Simulation.Seed
	default:
		spec.BaseSeed = rand.Uint64()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	return batch(ctx, cmd.OutOrStdout(), spec, batchJSON || cfg.Output.JSON, batchVerbose)
}

func batch(ctx context.Context, out io.Writer, spec experiment.Spec, asJSON, verbose bool) error {
	rep, err := experiment.Run(ctx, spec)
	if err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	}
	return writeBatchText(out, spec, rep, verbose)
}

func writeBatchText(out io.Writer, spec experiment.Spec, rep experiment.Report, verbose bool) error {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Runs: %d  Rounds: %d  Base seed: %d\n", len(rep.Runs), spec.Rounds, spec.BaseSeed)
	fmt.Fprintf(&buf, "Best coin: %d (p=%g)\n", rep.BestArm, spec.Probabilities[rep.BestArm])
	fmt.Fprintf(&buf, "Total reward: mean %.2f, stddev %.2f\n", rep.MeanReward, rep.StdDevReward)
	fmt.Fprintf(&buf, "Best coin chosen in final rounds: %.1f%%\n", 100*rep.MeanBestArmRate)

	if verbose {
		buf.WriteString("\n")
		tw := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "RUN\tSEED\tREWARD\tBEST RATE\tFINAL AVG")
		for _, r := range rep.Runs {
			fmt.Fprintf(tw, "%d\t%d\t%d\t%.2f\t%.3f\n", r.Run, r.Seed, r.TotalReward, r.BestArmRate, r.FinalMovingAverage)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	_, err := out.Write(buf.Bytes())
	return err
}
