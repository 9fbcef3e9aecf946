package worker

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type metrics struct {
	registry           *prometheus.Registry
	jobsTotal          *prometheus.CounterVec
	jobDuration        *prometheus.HistogramVec
	activeJobs         prometheus.Gauge
	coversTotal        prometheus.Counter
	ratioOutOfSpec     prometheus.Counter
	sourcePixelsTotal  prometheus.Counter
	outputPixelsTotal  prometheus.Counter
	outputBytesTotal   prometheus.Counter
	computeTimeMSTotal prometheus.Counter
}

func newMetrics() *metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &metrics{
		registry: registry,
		jobsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "coverflow_worker_jobs_total",
			Help: "Total worker jobs by source type and final status.",
		}, []string{"source_type", "status"}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "coverflow_worker_job_duration_seconds",
			Help:    "Total processing duration for each worker job.",
			Buckets: prometheus.DefBuckets,
		}, []string{"source_type", "status"}),
		activeJobs: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "coverflow_worker_active_jobs",
			Help: "Current number of active preparation jobs in the worker.",
		}),
		coversTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "coverflow_worker_covers_prepared_total",
			Help: "Total prepared covers emitted by the worker.",
		}),
		ratioOutOfSpec: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "coverflow_worker_ratio_out_of_spec_total",
			Help: "Total jobs whose source ratio missed the expected prefix.",
		}),
		sourcePixelsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "coverflow_usage_source_pixels_total",
			Help: "Total source pixels read across all successful jobs.",
		}),
		outputPixelsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "coverflow_usage_output_pixels_total",
			Help: "Total output pixels written across all successful jobs.",
		}),
		outputBytesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "coverflow_usage_output_bytes_total",
			Help: "Total output bytes written across all successful jobs.",
		}),
		computeTimeMSTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "coverflow_usage_compute_time_ms_total",
			Help: "Total compute time in milliseconds across successful jobs.",
		}),
	}

	registry.MustRegister(
		m.jobsTotal,
		m.jobDuration,
		m.activeJobs,
		m.coversTotal,
		m.ratioOutOfSpec,
		m.sourcePixelsTotal,
		m.outputPixelsTotal,
		m.outputBytesTotal,
		m.computeTimeMSTotal,
	)
	return m
}

func (m *metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
