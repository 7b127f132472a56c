package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	rowsLoadedCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "churn_prep",
			Name:      "rows_loaded_total",
			Help:      "Total number of customer rows loaded.",
		},
		[]string{"source"}, // "database" | "cache"
	)

	rowsDroppedCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "churn_prep",
			Name:      "rows_dropped_total",
			Help:      "Total number of customer rows removed by the feature transform.",
		},
		[]string{"reason"},
	)

	unmappedValuesCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "churn_prep",
			Name:      "unmapped_values_total",
			Help:      "Categorical values outside the known category set, encoded as missing.",
		},
		[]string{"column"},
	)

	rowsWrittenCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "churn_prep",
			Name:      "rows_written_total",
			Help:      "Total number of prepared rows written to the output store.",
		},
		[]string{"partition", "format"},
	)

	stageDurationHist = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "churn_prep",
			Name:      "stage_duration_seconds",
			Help:      "Duration of pipeline stages.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"stage"}, // "load" | "transform" | "split" | "export"
	)
)
