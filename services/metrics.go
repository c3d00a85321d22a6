package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	uploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "secureshare_uploads_total",
		Help: "Upload attempts by outcome.",
	}, []string{"status"})

	uploadBytesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "secureshare_upload_bytes_total",
		Help: "Bytes accepted by successful uploads.",
	})

	downloadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "secureshare_downloads_total",
		Help: "Download attempts by outcome; denied attempts carry the reason.",
	}, []string{"status", "reason"})

	downloadBytesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "secureshare_download_bytes_total",
		Help: "Bytes released by successful downloads.",
	})

	deletesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "secureshare_deletes_total",
		Help: "Delete attempts by outcome.",
	}, []string{"status"})

	sweepRunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "secureshare_sweep_runs_total",
		Help: "Completed expiry sweeps.",
	})

	sweepDeactivatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "secureshare_sweep_deactivated_total",
		Help: "Records deactivated by expiry sweeps.",
	})

	sweepDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "secureshare_sweep_duration_seconds",
		Help:    "Duration of expiry sweeps.",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
	})

	storageRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "secureshare_storage_retries_total",
		Help: "Retried idempotent reads by operation.",
	}, []string{"op"})

	consistencyErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "secureshare_consistency_errors_total",
		Help: "Active records whose blob could not be found.",
	})
)
