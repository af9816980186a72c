// Package config loads simulation settings from YAML with environment and
// command-line overrides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the complete coinbandit configuration.
type Config struct {
	Simulation SimulationConfig `yaml:"simulation"`
	Output     OutputConfig     `yaml:"output"`
	Batch      BatchConfig      `yaml:"batch"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// SimulationConfig holds the coins and the bandit run parameters.
type SimulationConfig struct {
	CoinProbabilities   []float64 `yaml:"coin_probabilities"`
	Rounds              int       `yaml:"rounds"`
	MovingAverageWindow int       `yaml:"moving_average_window"`
	PlotInterval        int       `yaml:"plot_interval"`
	Seed                *uint64   `yaml:"seed"` // nil draws a fresh seed per run
}

// OutputConfig controls where results are written.
type OutputConfig struct {
	Dir         string `yaml:"dir"`
	Plots       bool   `yaml:"plots"`
	JSON        bool   `yaml:"json"`
	HistoryDB   string `yaml:"history_db"`
	MetricsFile string `yaml:"metrics_file"`
}

// BatchConfig sizes the batch command.
type BatchConfig struct {
	Runs    int `yaml:"runs"`
	Workers int `yaml:"workers"`
}

// LoggingConfig holds logging options.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Simulation: SimulationConfig{
			CoinProbabilities:   []float64{0.3, 0.4, 0.5, 0.6, 0.7, 0.8},
			Rounds:              2000,
			MovingAverageWindow: 100,
			PlotInterval:        500,
		},
		Output: OutputConfig{
			Dir:   ".",
			Plots: true,
		},
		Batch: BatchConfig{
			Runs:    100,
			Workers: 4,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load is Read followed by Validate.
func Load(path string) (*Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read returns the defaults overlaid with the YAML file at path (if it
// exists) and then with COINBANDIT_* environment variables. An empty path
// skips the file. Values are not validated, so callers that apply further
// overrides call Validate once they are done.
func Read(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		if err := loadYAMLFile(path, cfg); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
	}

	applyEnvironment(cfg)
	return cfg, nil
}

func loadYAMLFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func applyEnvironment(cfg *Config) {
	if v := os.Getenv("COINBANDIT_ROUNDS"); v != "" {
		if n, err := parseInt(v); err == nil {
			cfg.Simulation.Rounds = n
		}
	}
	if v := os.Getenv("COINBANDIT_SEED"); v != "" {
		if n, err := parseUint(v); err == nil {
			cfg.Simulation.Seed = &n
		}
	}
	if v := os.Getenv("COINBANDIT_OUTPUT_DIR"); v != "" {
		cfg.Output.Dir = v
	}
	if v := os.Getenv("COINBANDIT_PLOTS"); v != "" {
		cfg.Output.Plots = strings.ToLower(v) == "true"
	}
	if v := os.Getenv("COINBANDIT_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
}

var logLevels = map[string]struct{}{
	"debug": {},
	"info":  {},
	"warn":  {},
	"error": {},
}

// Validate reports the first field that is out of range.
func (c *Config) Validate() error {
	sim := c.Simulation
	if len(sim.CoinProbabilities) == 0 {
		return invalid("simulation.coin_probabilities", "must not be empty")
	}
	for i, p := range sim.CoinProbabilities {
		if math.IsNaN(p) || p < 0 || p > 1 {
			return invalid(fmt.Sprintf("simulation.coin_probabilities[%d]", i), fmt.Sprintf("%v is outside [0, 1]", p))
		}
	}
	if sim.Rounds <= 0 {
		return invalid("simulation.rounds", "must be > 0")
	}
	if sim.MovingAverageWindow <= 0 {
		return invalid("simulation.moving_average_window", "must be > 0")
	}
	if sim.PlotInterval <= 0 {
		return invalid("simulation.plot_interval", "must be > 0")
	}
	if c.Batch.Runs <= 0 {
		return invalid("batch.runs", "must be > 0")
	}
	if c.Batch.Workers <= 0 {
		return invalid("batch.workers", "must be > 0")
	}
	if _, ok := logLevels[c.Logging.Level]; !ok {
		return invalid("logging.level", fmt.Sprintf("unknown level %q", c.Logging.Level))
	}
	return nil
}

func invalid(field, reason string) error {
	return fmt.Errorf("%w: %s %s", ErrInvalidConfig, field, reason)
}

func parseInt(s string) (int, error) {
	var n int
	_, err := fmt.Sscanf(s, "%d", &n)
	return n, err
}

func parseUint(s string) (uint64, error) {
	var n uint64
	_, err := fmt.Sscanf(s, "%d", &n)
	return n, err
}
