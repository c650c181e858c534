package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CatalogRefreshesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "meteofill_catalog_refreshes_total",
			Help: "Total full re-downloads of the station catalog",
		},
	)

	DownloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meteofill_downloads_total",
			Help: "Total per-station bulk data downloads",
		},
		[]string{"station", "status"},
	)

	DownloadLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "meteofill_download_latency_seconds",
			Help:    "Bulk download latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"station"},
	)

	ObservationRowsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "meteofill_observation_rows_total",
			Help: "Total observation rows downloaded",
		},
	)

	ColumnsImputedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "meteofill_columns_imputed_total",
			Help: "Total columns that received imputed values",
		},
	)

	ColumnsSkippedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "meteofill_columns_skipped_total",
			Help: "Total columns skipped by the eligibility check",
		},
	)

	ValuesFilledTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "meteofill_values_filled_total",
			Help: "Total missing values replaced by model predictions",
		},
	)
)
