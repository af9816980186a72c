// Package metrics exposes simulation progress as Prometheus collectors.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/adalundhe/coinbandit/core/bandit"
)

const namespace = "coinbandit"

// Recorder observes a bandit and keeps its collectors on a private registry.
type Recorder struct {
	registry      *prometheus.Registry
	rounds        prometheus.Counter
	rewards       prometheus.Counter
	selections    *prometheus.CounterVec
	posteriorMean *prometheus.GaugeVec
	snapshotRound prometheus.Gauge
}

// NewRecorder creates a Recorder with its collectors registered on a private registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		rounds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rounds_total",
			Help:      "Rounds played.",
		}),
		rewards: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rewards_total",
			Help:      "Heads observed across all rounds.",
		}),
		selections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "arm_selections_total",
			Help:      "Rounds in which each arm was flipped.",
		}, []string{"arm"}),
		posteriorMean: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "posterior_mean",
			Help:      "Posterior mean head probability per arm at the last snapshot.",
		}, []string{"arm"}),
		snapshotRound: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snapshot_round",
			Help:      "Round of the most recent posterior snapshot.",
		}),
	}
	r.registry.MustRegister(r.rounds, r.rewards, r.selections, r.posteriorMean, r.snapshotRound)
	return r
}

// OnRound counts the round, the chosen arm and any reward.
func (r *Recorder) OnRound(sel bandit.Selection) {
	r.rounds.Inc()
	r.selections.WithLabelValues(strconv.Itoa(sel.Arm)).Inc()
	if sel.Outcome == 1 {
		r.rewards.Inc()
	}
}

// OnSnapshot records the snapshot round and each arm's posterior mean.
func (r *Recorder) OnSnapshot(snap bandit.Snapshot) {
	r.snapshotRound.Set(float64(snap.Round))
	for i, p := range snap.Posteriors {
		r.posteriorMean.WithLabelValues(strconv.Itoa(i)).Set(p.Mean())
	}
}

// Gatherer exposes the private registry.
func (r *Recorder) Gatherer() prometheus.Gatherer {
	return r.registry
}

// WriteTextfile writes the current values in the text exposition format,
// suitable for the node exporter's textfile collector.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}
