// Package metrics exposes Prometheus metrics for the pipeline
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// processExecutionsTotal counts external process runs.
	// Labels: binary (ffmpeg, whisper-cli), status (success, failed, cancelled)
	processExecutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chapterflow_process_executions_total",
			Help: "Total number of external process executions",
		},
		[]string{"binary", "status"},
	)

	processDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chapterflow_process_duration_seconds",
			Help:    "Duration of external process executions in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 300, 900, 1800, 3600, 10800},
		},
		[]string{"binary"},
	)

	// jobsTotal counts finished jobs by kind (transcription, chapters, sections, metadata)
	// and terminal state (completed, failed, cancelled)
	jobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chapterflow_jobs_total",
			Help: "Total number of finished jobs by kind and outcome",
		},
		[]string{"kind", "state"},
	)

	activeJobs = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "chapterflow_active_jobs",
			Help: "Jobs currently running by kind",
		},
		[]string{"kind"},
	)

	queueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "chapterflow_generation_queue_depth",
			Help: "Generation requests waiting behind the running one",
		},
	)

	matchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chapterflow_phrase_matches_total",
			Help: "Phrase lookups by resolving tier (exact, normalized, fuzzy, none)",
		},
		[]string{"tier"},
	)

	modelRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chapterflow_model_requests_total",
			Help: "Language model requests by provider and status",
		},
		[]string{"provider", "status"},
	)
)

func init() {
	prometheus.MustRegister(processExecutionsTotal)
	prometheus.MustRegister(processDuration)
	prometheus.MustRegister(jobsTotal)
	prometheus.MustRegister(activeJobs)
	prometheus.MustRegister(queueDepth)
	prometheus.MustRegister(matchTotal)
	prometheus.MustRegister(modelRequestsTotal)
}

func RecordProcess(binary, status string) {
	processExecutionsTotal.WithLabelValues(binary, status).Inc()
}

func ObserveProcessDuration(binary string, seconds float64) {
	processDuration.WithLabelValues(binary).Observe(seconds)
}

func RecordJob(kind, state string) {
	jobsTotal.WithLabelValues(kind, state).Inc()
}

func JobStarted(kind string) {
	activeJobs.WithLabelValues(kind).Inc()
}

func JobEnded(kind string) {
	activeJobs.WithLabelValues(kind).Dec()
}

func SetQueueDepth(n int) {
	queueDepth.Set(float64(n))
}

func RecordMatch(tier string) {
	matchTotal.WithLabelValues(tier).Inc()
}

func RecordModelRequest(provider, status string) {
	modelRequestsTotal.WithLabelValues(provider, status).Inc()
}

// Handler serves the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}
