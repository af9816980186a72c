package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/adalundhe/coinbandit/core/bandit"
	"github.com/adalundhe/coinbandit/core/chart"
	"github.com/adalundhe/coinbandit/core/config"
	"github.com/adalundhe/coinbandit/core/history"
	"github.com/adalundhe/coinbandit/core/metrics"
	"github.com/adalundhe/coinbandit/core/report"
)

// =============================================================================
// Simulate Command Flags
// =============================================================================

var (
	simProbs        []float64
	simRounds       int
	simWindow       int
	simPlotInterval int
	simSeed         uint64
	simOutDir       string
	simNoPlots      bool
	simJSON         bool
	simHistoryDB    string
	simMetricsFile  string
)

// =============================================================================
// Simulate Command
// =============================================================================

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run Thompson Sampling on a set of biased coins",
	Long: `Run Thompson Sampling for a fixed number of rounds and report how often each
coin was chosen, its observed heads and its final Beta posterior.

Examples:
  coinbandit simulate
  coinbandit simulate --probs 0.2,0.5,0.9 --rounds 500 --seed 42
  coinbandit simulate --no-plots --json | jq '.coins'
  coinbandit simulate --db runs.db --metrics-file coinbandit.prom`,
	Args: cobra.NoArgs,
	RunE: runSimulate,
}

func init() {
	rootCmd.AddCommand(simulateCmd)

	flags := simulateCmd.Flags()
	flags.Float64SliceVarP(&simProbs, "probs", "p", nil, "Head probability of each coin (default from config)")
	flags.IntVarP(&simRounds, "rounds", "n", 0, "Number of rounds (default from config)")
	flags.IntVarP(&simWindow, "window", "w", 0, "Moving average window (default from config)")
	flags.IntVar(&simPlotInterval, "plot-interval", 0, "Rounds between posterior plots (default from config)")
	flags.Uint64Var(&simSeed, "seed", 0, "Random seed; a fresh one is drawn when unset")
	flags.StringVarP(&simOutDir, "out-dir", "o", "", "Directory for plot images (default from config)")
	flags.BoolVar(&simNoPlots, "no-plots", false, "Skip writing plot images")
	flags.BoolVar(&simJSON, "json", false, "Print the summary as JSON")
	flags.StringVar(&simHistoryDB, "db", "", "Record the run in this SQLite history database")
	flags.StringVar(&simMetricsFile, "metrics-file", "", "Write Prometheus metrics to this file after the run")
}

// =============================================================================
// Simulate Execution
// =============================================================================

func runSimulate(cmd *cobra.Command, args []string) error {
	cfg, err := simulateConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	return simulate(ctx, cmd.OutOrStdout(), cmd.ErrOrStderr(), cfg, slog.Default())
}

// simulateConfig loads the config file and overlays the flags that were set.
func simulateConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Read(configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	override := &config.Config{}
	if flags.Changed("probs") {
		override.Simulation.CoinProbabilities = simProbs
	}
	if flags.Changed("rounds") {
		override.Simulation.Rounds = simRounds
	}
	if flags.Changed("window") {
		override.Simulation.MovingAverageWindow = simWindow
	}
	if flags.Changed("plot-interval") {
		override.Simulation.PlotInterval = simPlotInterval
	}
	if flags.Changed("seed") {
		seed := simSeed
		override.Simulation.Seed = &seed
	}
	override.Output.Dir = simOutDir
	override.Output.JSON = simJSON
	override.Output.HistoryDB = simHistoryDB
	override.Output.MetricsFile = simMetricsFile
	cfg.Merge(override)

	// Merge ignores zero values, so explicit non-positive flags are applied
	// directly and left for Validate to reject.
	if flags.Changed("rounds") && simRounds <= 0 {
		cfg.Simulation.Rounds = simRounds
	}
	if flags.Changed("window") && simWindow <= 0 {
		cfg.Simulation.MovingAverageWindow = simWindow
	}
	if flags.Changed("plot-interval") && simPlotInterval <= 0 {
		cfg.Simulation.PlotInterval = simPlotInterval
	}
	if simNoPlots {
		cfg.Output.Plots = false
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// simulate runs one bandit as described by cfg and writes the summary to out.
// Progress notes such as saved file paths go to errOut.
func simulate(ctx context.Context, out, errOut io.Writer, cfg *config.Config, logger *slog.Logger) error {
	sim := cfg.Simulation

	seed := rand.Uint64()
	if sim.Seed != nil {
		seed = *sim.Seed
	}

	opts := []bandit.Option{bandit.WithSeed(seed), bandit.WithLogger(logger)}

	var renderer *chart.BetaRenderer
	if cfg.Output.Plots {
		if err := os.MkdirAll(cfg.Output.Dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
		renderer = chart.NewBetaRenderer(cfg.Output.Dir, logger)
		opts = append(opts, bandit.WithObserver(renderer))
	}

	var recorder *metrics.Recorder
	if cfg.Output.MetricsFile != "" {
		recorder = metrics.NewRecorder()
		opts = append(opts, bandit.WithObserver(recorder))
	}

	b, err := bandit.New(sim.CoinProbabilities, opts...)
	if err != nil {
		return err
	}

	runID := history.NewRunID()
	logger.Info("starting simulation",
		slog.String("run_id", runID),
		slog.Uint64("seed", seed),
		slog.Int("coins", b.NumArms()),
		slog.Int("rounds", sim.Rounds))

	startedAt := time.Now()
	res, err := b.RunSimulation(ctx, sim.Rounds, sim.MovingAverageWindow, sim.PlotInterval)
	if err != nil {
		return fmt.Errorf("simulation: %w", err)
	}

	summary := report.Build(b, res, sim.MovingAverageWindow)
	summary.RunID = runID

	if cfg.Output.JSON {
		err = summary.WriteJSON(out)
	} else {
		err = summary.WriteText(out, isTerminal(out))
	}
	if err != nil {
		return fmt.Errorf("write summary: %w", err)
	}

	if renderer != nil {
		path := filepath.Join(cfg.Output.Dir, chart.UniqueName("moving_average_plot", time.Now()))
		if err := chart.SaveMovingAverage(path, sim.MovingAverageWindow, res.MovingAverages); err != nil {
			return fmt.Errorf("save moving average plot: %w", err)
		}
		fmt.Fprintf(errOut, "Plot saved as %s\n", path)
		for _, f := range renderer.Files() {
			fmt.Fprintf(errOut, "Posterior plot saved as %s\n", f)
		}
	}

	if recorder != nil {
		if err := recorder.WriteTextfile(cfg.Output.MetricsFile); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}

	if cfg.Output.HistoryDB != "" {
		if err := recordRun(ctx, cfg.Output.HistoryDB, history.FromSummary(summary, startedAt, &seed)); err != nil {
			return err
		}
	}
	return nil
}

func recordRun(ctx context.Context, dbPath string, rec history.RunRecord) error {
	store, err := history.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer store.Close()

	if err := store.Record(ctx, rec); err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}
