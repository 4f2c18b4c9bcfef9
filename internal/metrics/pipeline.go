// SPDX-License-Identifier: MIT

// Package metrics holds the Prometheus collectors for the extraction,
// conversion, download and cleanup stages.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	extractionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snapdown_extractions_total",
		Help: "Extraction attempts by outcome",
	}, []string{"outcome"}) // outcome=success|invalid_url|unavailable|unparseable|engine|empty|internal

	extractionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "snapdown_extraction_duration_seconds",
		Help:    "Wall-clock duration of extraction engine runs",
		Buckets: prometheus.ExponentialBuckets(0.25, 2, 8), // 250ms to ~32s
	})

	extractionVariants = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "snapdown_extraction_variants",
		Help:    "Number of variants returned per successful extraction",
		Buckets: []float64{0, 1, 2, 3, 4, 5},
	})

	conversionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snapdown_conversions_total",
		Help: "Conversion jobs by attempt and outcome",
	}, []string{"attempt", "outcome"}) // attempt=copy|reencode outcome=success|failure|timeout

	conversionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "snapdown_conversion_duration_seconds",
		Help:    "Wall-clock duration of encoder runs",
		Buckets: prometheus.ExponentialBuckets(1, 2, 10), // 1s to ~8.5m
	}, []string{"attempt"})

	conversionsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "snapdown_conversions_in_flight",
		Help: "Conversion jobs currently running",
	})

	downloadBytes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snapdown_download_bytes_total",
		Help: "Bytes relayed to clients",
	}, []string{"source"}) // source=remote|local

	downloadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snapdown_downloads_total",
		Help: "Download requests by source and outcome",
	}, []string{"source", "outcome"}) // outcome=success|not_found|upstream_error|aborted

	janitorRemoved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "snapdown_janitor_removed_files_total",
		Help: "Expired work files removed",
	})

	janitorErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "snapdown_janitor_errors_total",
		Help: "Work files the janitor failed to inspect or remove",
	})

	janitorLastSweep = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "snapdown_janitor_last_sweep_timestamp_seconds",
		Help: "Unix time of the last completed sweep",
	})

	encoderAvailable = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "snapdown_encoder_available",
		Help: "Whether the external encoder was found (1) or not (0)",
	})
)

// RecordExtraction records one extraction attempt. A zero duration means the
// engine never ran (for example an unsupported URL).
func RecordExtraction(outcome string, d time.Duration, variants int) {
	extractionsTotal.WithLabelValues(outcome).Inc()
	if d > 0 {
		extractionDuration.Observe(d.Seconds())
	}
	if outcome == "success" {
		extractionVariants.Observe(float64(variants))
	}
}

// RecordConversionAttempt records one encoder run.
func RecordConversionAttempt(attempt, outcome string, d time.Duration) {
	conversionsTotal.WithLabelValues(attempt, outcome).Inc()
	conversionDuration.WithLabelValues(attempt).Observe(d.Seconds())
}

// ConversionStarted increments the in-flight gauge and returns its release.
func ConversionStarted() func() {
	conversionsInFlight.Inc()
	return conversionsInFlight.Dec
}

// RecordDownload records one finished download response.
func RecordDownload(source, outcome string, bytes int64) {
	downloadsTotal.WithLabelValues(source, outcome).Inc()
	if bytes > 0 {
		downloadBytes.WithLabelValues(source).Add(float64(bytes))
	}
}

// RecordSweep records the result of one janitor pass.
func RecordSweep(removed, failed int, at time.Time) {
	janitorRemoved.Add(float64(removed))
	janitorErrors.Add(float64(failed))
	janitorLastSweep.Set(float64(at.Unix()))
}

// SetEncoderAvailable publishes encoder discovery.
func SetEncoderAvailable(ok bool) {
	if ok {
		encoderAvailable.Set(1)
		return
	}
	encoderAvailable.Set(0)
}
