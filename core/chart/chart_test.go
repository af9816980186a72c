package chart

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/adalundhe/coinbandit/core/bandit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

func assertPNG(t *testing.T, path string) {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(data, pngMagic), "%s is not a PNG", path)
}

func TestUniqueName(t *testing.T) {
	now := time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)
	assert.Equal(t, "moving_average_plot_20240309_140507.png", UniqueName("moving_average_plot", now))
}

func TestBetaDensities(t *testing.T) {
	snap := bandit.Snapshot{
		Round: 500,
		Posteriors: []bandit.BetaPosterior{
			bandit.NewUniformPrior(),
			{Alpha: 40, Beta: 12},
			{Alpha: 1, Beta: 300},
		},
	}

	p, err := BetaDensities(snap)
	require.NoError(t, err)
	assert.Equal(t, "Beta Distributions at Round 500", p.Title.Text)

	path := filepath.Join(t.TempDir(), "beta.png")
	require.NoError(t, p.Save(400, 200, path))
	assertPNG(t, path)
}

func TestSaveMovingAverage(t *testing.T) {
	dir := t.TempDir()

	t.Run("with data", func(t *testing.T) {
		path := filepath.Join(dir, "ma.png")
		require.NoError(t, SaveMovingAverage(path, 3, []float64{0.3, 0.6, 0.9, 1}))
		assertPNG(t, path)
	})

	t.Run("empty series", func(t *testing.T) {
		p, err := MovingAverage(10, nil)
		require.NoError(t, err)
		assert.Equal(t, "Moving Average of Reward Over Time", p.Title.Text)
	})
}

func TestBetaRendererObservesSimulation(t *testing.T) {
	dir := t.TempDir()
	var logs bytes.Buffer
	r := NewBetaRenderer(dir, slog.New(slog.NewTextHandler(&logs, nil)))
	r.now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }

	b, err := bandit.New([]float64{0.2, 0.7}, bandit.WithSeed(3), bandit.WithObserver(r))
	require.NoError(t, err)
	_, err = b.RunSimulation(context.Background(), 40, 5, 20)
	require.NoError(t, err)

	files := r.Files()
	require.Len(t, files, 2)
	assert.Equal(t, filepath.Join(dir, "beta_round_20_20240101_000000.png"), files[0])
	assert.Equal(t, filepath.Join(dir, "beta_round_40_20240101_000000.png"), files[1])
	for _, f := range files {
		assertPNG(t, f)
	}
	assert.Empty(t, logs.String())
}

func TestBetaRendererLogsFailures(t *testing.T) {
	var logs bytes.Buffer
	r := NewBetaRenderer(filepath.Join(t.TempDir(), "missing", "dir"), slog.New(slog.NewTextHandler(&logs, nil)))

	r.OnSnapshot(bandit.Snapshot{Round: 1, Posteriors: []bandit.BetaPosterior{bandit.NewUniformPrior()}})

	assert.Empty(t, r.Files())
	assert.Contains(t, logs.String(), "render beta distributions failed")
}
