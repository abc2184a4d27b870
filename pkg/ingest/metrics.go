package ingest

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	rowsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "leadsheet",
		Subsystem: "ingest",
		Name:      "rows_total",
		Help:      "Rows handled by ingestion runs broken down by bucket and result (persisted, failed).",
	}, []string{"bucket", "result"})

	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "leadsheet",
		Subsystem: "ingest",
		Name:      "runs_total",
		Help:      "Ingestion runs broken down by bucket and result (ok, error).",
	}, []string{"bucket", "result"})

	collisionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "leadsheet",
		Subsystem: "ingest",
		Name:      "name_collisions_total",
		Help:      "Uploaded rows whose name already exists among fresh intake records.",
	})

	lookupFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "leadsheet",
		Subsystem: "ingest",
		Name:      "collision_lookup_failures_total",
		Help:      "Duplicate lookups that failed and were counted as zero collisions.",
	})
)

func recordRun(o *Outcome) {
	result := "ok"
	if o.Err != nil {
		result = "error"
		rowsTotal.WithLabelValues(o.Bucket, "failed").Add(float64(o.Attempted - o.Persisted))
	}
	rowsTotal.WithLabelValues(o.Bucket, "persisted").Add(float64(o.Persisted))
	runsTotal.WithLabelValues(o.Bucket, result).Inc()
	collisionsTotal.Add(float64(o.Duplicates))
}
