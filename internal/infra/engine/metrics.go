package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	queryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "penguinbm_query_duration_seconds",
		Help:    "Wall time of submitted statements, including materialization.",
		Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
	}, []string{"mode", "status"})

	loadDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "penguinbm_table_load_duration_seconds",
		Help:    "Wall time of loading the observation and location-map tables.",
		Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
	})

	rowsReturned = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "penguinbm_rows_returned_total",
		Help: "Rows materialized from submitted statements.",
	}, []string{"mode"})
)
