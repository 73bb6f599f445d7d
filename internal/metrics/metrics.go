// Package metrics declares the prometheus collectors shared by the checker,
// the oracle client and the ledger.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	OracleRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "puzzlecheck_oracle_requests_total",
		Help: "Tablebase lookups by outcome (ok, error).",
	}, []string{"outcome"})

	OracleRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "puzzlecheck_oracle_retries_total",
		Help: "Tablebase attempts retried after a transient failure.",
	})

	OracleCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "puzzlecheck_oracle_cache_hits_total",
		Help: "Tablebase lookups answered from the in-run cache.",
	})

	PuzzlesChecked = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "puzzlecheck_puzzles_total",
		Help: "Puzzles processed by result (correct, incorrect, failed).",
	}, []string{"result"})

	Findings = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "puzzlecheck_findings_total",
		Help: "Error kinds recorded in the ledger.",
	}, []string{"kind"})

	LedgerAnomalies = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "puzzlecheck_ledger_anomalies_total",
		Help: "Ledger integrity anomalies by type (duplicate, malformed, stale).",
	}, []string{"type"})

	PuzzleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "puzzlecheck_puzzle_duration_seconds",
		Help:    "Wall time to verify one puzzle, throttling included.",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
	})
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
