package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ScoresComputed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carpcast_scores_computed_total",
			Help: "Total hourly activity scores computed",
		},
		[]string{"species"},
	)

	ScoringFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carpcast_scoring_failures_total",
			Help: "Total hours that fell back to a neutral score",
		},
		[]string{"reason"},
	)

	ScoreOverall = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "carpcast_score_overall",
			Help:    "Distribution of overall activity scores",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		},
	)

	BatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "carpcast_batch_duration_seconds",
			Help:    "Time taken to score a full forecast series",
			Buckets: prometheus.DefBuckets,
		},
	)

	SnapshotsStored = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "carpcast_snapshots_stored_total",
			Help: "Total new snapshots written to the store",
		},
	)
)

// WriteTextfile dumps the default registry in the node_exporter textfile
// format, for one-shot CLI runs that have no scrape endpoint.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
