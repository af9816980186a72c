package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/adalundhe/coinbandit/core/config"
	"github.com/adalundhe/coinbandit/core/history"
)

// =============================================================================
// History Command Flags
// =============================================================================

var (
	historyDB    string
	historyLimit int
	historyJSON  bool
)

// =============================================================================
// History Command
// =============================================================================

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "List recorded simulation runs",
	Long: `List runs recorded by "simulate --db", newest first. Pass a run ID to show the
per-coin results of that run.

Examples:
  coinbandit history --db runs.db
  coinbandit history --db runs.db --limit 5 --json
  coinbandit history --db runs.db 2f1c0b6e-7a9d-4d0e-8a53-0e3b1f5b9c11`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().StringVar(&historyDB, "db", "", "History database (default from config)")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 20, "Maximum runs to list; 0 lists all")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "Print runs as JSON")
}

// =============================================================================
// History Execution
// =============================================================================

func runHistory(cmd *cobra.Command, args []string) error {
	dbPath := historyDB
	if dbPath == "" {
		cfg, err := config.Read(configPath)
		if err != nil {
			return err
		}
		dbPath = cfg.Output.HistoryDB
	}
	if dbPath == "" {
		return fmt.Errorf("no history database: pass --db or set output.history_db")
	}

	store, err := history.Open(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if len(args) == 1 {
		rec, err := store.Get(ctx, args[0])
		if err != nil {
			return err
		}
		if historyJSON {
			return writeJSON(out, rec)
		}
		return writeRunDetail(out, rec)
	}

	runs, err := store.List(ctx, historyLimit)
	if err != nil {
		return err
	}
	if historyJSON {
		return writeJSON(out, runs)
	}
	return writeRunList(out, runs)
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeRunList(out io.Writer, runs []history.RunRecord) error {
	if len(runs) == 0 {
		_, err := fmt.Fprintln(out, "No runs recorded.")
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTARTED\tCOINS\tROUNDS\tREWARD\tFINAL AVG\tSEED")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%s\t%s\n",
			r.ID, r.StartedAt.Local().Format("2006-01-02 15:04:05"), len(r.Probabilities),
			r.Rounds, r.TotalReward, formatOptFloat(r.FinalMovingAverage), formatOptSeed(r.Seed))
	}
	return tw.Flush()
}

func writeRunDetail(out io.Writer, r history.RunRecord) error {
	fmt.Fprintf(out, "Run %s\n", r.ID)
	fmt.Fprintf(out, "  Started:       %s\n", r.StartedAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(out, "  Rounds:        %d (window %d)\n", r.Rounds, r.MovingAverageWindow)
	fmt.Fprintf(out, "  Seed:          %s\n", formatOptSeed(r.Seed))
	fmt.Fprintf(out, "  Total reward:  %d\n", r.TotalReward)
	fmt.Fprintf(out, "  Final average: %s\n\n", formatOptFloat(r.FinalMovingAverage))

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "COIN\tP\tTRIALS\tHEADS\tALPHA\tBETA")
	for _, a := range r.Arms {
		fmt.Fprintf(tw, "%d\t%.2f\t%d\t%d\t%.0f\t%.0f\n", a.Arm, a.Probability, a.Trials, a.Successes, a.Alpha, a.Beta)
	}
	return tw.Flush()
}

func formatOptFloat(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.3f", *v)
}

func formatOptSeed(v *uint64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *v)
}
