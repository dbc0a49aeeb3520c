package sync

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	syncOutcomeComplete = "complete"
	syncOutcomePartial  = "partial"
	syncOutcomeRejected = "rejected"
)

var (
	syncReposTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "saltci_sync_repos_total",
			Help: "Repos changed by account synchronization, by operation.",
		},
		[]string{"operation"},
	)

	syncsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "saltci_syncs_total",
			Help: "Account synchronizations, by outcome.",
		},
		[]string{"outcome"},
	)

	syncDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "saltci_sync_duration_seconds",
			Help:    "Duration of account synchronizations in seconds.",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func recordRepoChanges(result *scopeResult) {
	syncReposTotal.WithLabelValues("created").Add(float64(result.created))
	syncReposTotal.WithLabelValues("updated").Add(float64(result.updated))
	syncReposTotal.WithLabelValues("linked").Add(float64(result.linked))
	syncReposTotal.WithLabelValues("unlinked").Add(float64(result.unlinked))
}
