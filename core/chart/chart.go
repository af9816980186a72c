// Package chart renders simulation output as PNG images: the Beta posterior
// of every coin at a given round and the moving average of the reward.
package chart

import (
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/adalundhe/coinbandit/core/bandit"
)

const densityPoints = 100

// UniqueName returns prefix_YYYYmmdd_HHMMSS.png.
func UniqueName(prefix string, now time.Time) string {
	return fmt.Sprintf("%s_%s.png", prefix, now.Format("20060102_150405"))
}

// BetaDensities plots the posterior density of every arm in snap.
func BetaDensities(snap bandit.Snapshot) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Beta Distributions at Round %d", snap.Round)
	p.X.Label.Text = "Probability of Heads"
	p.Y.Label.Text = "Density"
	p.Legend.Top = true

	xs := floats.Span(make([]float64, densityPoints), 0, 1)
	for i, post := range snap.Posteriors {
		pts := make(plotter.XYs, len(xs))
		for j, x := range xs {
			y := post.Density(x)
			if math.IsInf(y, 0) || math.IsNaN(y) {
				y = 0
			}
			pts[j].X = x
			pts[j].Y = y
		}

		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, fmt.Errorf("coin %d: %w", i+1, err)
		}
		line.Color = plotutil.Color(i)
		line.Dashes = plotutil.Dashes(i)
		p.Add(line)
		p.Legend.Add(fmt.Sprintf("Coin %d (α=%.0f, β=%.0f)", i+1, post.Alpha, post.Beta), line)
	}
	return p, nil
}

// MovingAverage plots averages against the round at which each was taken,
// starting at round window.
func MovingAverage(window int, averages []float64) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Moving Average of Reward Over Time"
	p.X.Label.Text = "Round"
	p.Y.Label.Text = "Moving Average Reward"
	p.Legend.Top = true

	if len(averages) == 0 {
		return p, nil
	}

	pts := make(plotter.XYs, len(averages))
	for i, avg := range averages {
		pts[i].X = float64(window + i)
		pts[i].Y = avg
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, err
	}
	line.Color = plotutil.Color(0)
	p.Add(line)
	p.Legend.Add("Moving Average Reward", line)
	return p, nil
}

// SaveMovingAverage writes the moving-average chart to path.
func SaveMovingAverage(path string, window int, averages []float64) error {
	p, err := MovingAverage(window, averages)
	if err != nil {
		return fmt.Errorf("build moving average plot: %w", err)
	}
	return p.Save(10*vg.Inch, 5*vg.Inch, path)
}

// BetaRenderer writes a density chart for every snapshot it receives.
// Failures are logged and do not interrupt the simulation.
type BetaRenderer struct {
	dir    string
	logger *slog.Logger
	now    func() time.Time
	files  []string
}

// NewBetaRenderer writes snapshot plots into dir. A nil logger uses slog.Default().
func NewBetaRenderer(dir string, logger *slog.Logger) *BetaRenderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &BetaRenderer{dir: dir, logger: logger, now: time.Now}
}

// OnSnapshot renders snap. Failures are logged and the file is skipped.
func (r *BetaRenderer) OnSnapshot(snap bandit.Snapshot) {
	path := filepath.Join(r.dir, UniqueName(fmt.Sprintf("beta_round_%d", snap.Round), r.now()))

	p, err := BetaDensities(snap)
	if err == nil {
		err = p.Save(12*vg.Inch, 6*vg.Inch, path)
	}
	if err != nil {
		r.logger.Error("render beta distributions failed",
			slog.Int("round", snap.Round),
			slog.String("path", path),
			slog.String("error", err.Error()))
		return
	}

	r.files = append(r.files, path)
	r.logger.Debug("beta distributions rendered",
		slog.Int("round", snap.Round),
		slog.String("path", path))
}

// Files lists the charts written so far.
func (r *BetaRenderer) Files() []string {
	out := make([]string, len(r.files))
	copy(out, r.files)
	return out
}
