package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"route", "method", "status"},
	)

	// Audit trail
	AuditEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audit_events_total",
			Help: "Audit events written",
		},
		[]string{"entity_type", "action"},
	)
	AuditBatchSkipped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "audit_batch_events_skipped_total",
			Help: "Batch items skipped because the event failed to persist",
		},
	)
	AuditRollbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audit_rollbacks_total",
			Help: "Rollback attempts by outcome",
		},
		[]string{"outcome"}, // success|failure
	)

	// Worker queue
	WorkerQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "worker_queue_depth",
			Help: "Current worker queue depth",
		},
	)
)

var Handler = promhttp.Handler

func Init() {
	prometheus.MustRegister(RequestsTotal)
	prometheus.MustRegister(AuditEventsTotal)
	prometheus.MustRegister(AuditBatchSkipped)
	prometheus.MustRegister(AuditRollbacksTotal)
	prometheus.MustRegister(WorkerQueueDepth)
}
