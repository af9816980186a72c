// Package cmd provides the coinbandit command-line interface.
package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/adalundhe/coinbandit/core/config"
)

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "coinbandit",
	Short: "Thompson Sampling over a set of biased coins",
	Long: `coinbandit simulates Thompson Sampling on a multi-armed bandit whose arms are
biased coins with unknown head probabilities. Each coin carries a Beta posterior
that is sampled to choose the next flip and updated with the outcome.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setupLogging(cmd.ErrOrStderr(), logLevel)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
}

// Execute runs the root command with a background context.
func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

// setupLogging installs a text handler on w. An empty level defers to the
// config file and environment, falling back to info.
func setupLogging(w io.Writer, level string) error {
	if level == "" {
		cfg, err := config.Read(configPath)
		if err != nil {
			return err
		}
		level = cfg.Logging.Level
	}

	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
		return fmt.Errorf("log level %q: %w", level, err)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})))
	return nil
}

// isTerminal reports whether w is an interactive terminal, which turns on
// colored output.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
