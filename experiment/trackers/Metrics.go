package trackers

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	ts "github.com/samuelfneumann/tilesarsa/timestep"
)

// Metrics exports the progress of an experiment as Prometheus metrics.
// Steps and episodes are counted, the return and length of the most
// recent episode are exposed as gauges, and episode lengths are
// recorded in a histogram. Episodes are counted separately by how
// they ended.
//
// Metrics has nothing to save; Save always returns nil.
type Metrics struct {
	steps         prometheus.Counter
	episodes      *prometheus.CounterVec
	lastReturn    prometheus.Gauge
	lastLength    prometheus.Gauge
	episodeLength prometheus.Histogram

	currentReturn float64
}

// NewMetrics creates a new Metrics tracker registering its collectors
// with reg. If occupancy is not nil, it is exported as the fraction of
// the agent's feature table in use.
func NewMetrics(reg prometheus.Registerer, occupancy func() float64) *Metrics {
	factory := promauto.With(reg)

	if occupancy != nil {
		factory.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "sarsa_feature_table_occupancy_ratio",
			Help: "Fraction of the tile coder feature table in use",
		}, occupancy)
	}

	return &Metrics{
		steps: factory.NewCounter(prometheus.CounterOpts{
			Name: "sarsa_steps_total",
			Help: "Total number of environment steps taken",
		}),
		episodes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sarsa_episodes_total",
			Help: "Total number of finished episodes by how they ended",
		}, []string{"end"}),
		lastReturn: factory.NewGauge(prometheus.GaugeOpts{
			Name: "sarsa_last_episode_return",
			Help: "Return of the most recently finished episode",
		}),
		lastLength: factory.NewGauge(prometheus.GaugeOpts{
			Name: "sarsa_last_episode_length",
			Help: "Length of the most recently finished episode",
		}),
		episodeLength: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "sarsa_episode_length_steps",
			Help:    "Lengths of finished episodes",
			Buckets: prometheus.ExponentialBuckets(50, 2, 8),
		}),
	}
}

// Track records a timestep
func (m *Metrics) Track(t ts.TimeStep) {
	if t.First() {
		m.currentReturn = 0
		return
	}

	m.steps.Inc()
	m.currentReturn += t.Reward

	if t.Last() {
		m.episodes.WithLabelValues(t.EndType.String()).Inc()
		m.lastReturn.Set(m.currentReturn)
		m.lastLength.Set(float64(t.Number))
		m.episodeLength.Observe(float64(t.Number))
		m.currentReturn = 0
	}
}

// Save implements the Tracker interface
func (m *Metrics) Save() error {
	return nil
}
