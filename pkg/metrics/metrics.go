package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "jsonstash"

var (
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)

	// DocumentOps counts service operations by outcome.
	// op: create|get|delete|diff; result: ok|invalid|not_found|error
	DocumentOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "document_operations_total", Help: "Document operations by type and result."},
		[]string{"op", "result"},
	)
	DocumentsStored = prometheus.NewGauge(
		prometheus.GaugeOpts{Namespace: namespace, Name: "documents_stored", Help: "Number of documents currently held by the store."},
	)
	LoadSkipped = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: namespace, Name: "load_skipped_files_total", Help: "Backing files skipped at startup because they could not be read or parsed."},
	)
	MirrorErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "mirror_errors_total", Help: "Failed mirror calls by mirror name."},
		[]string{"mirror"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
	reg.MustRegister(DocumentOps)
	reg.MustRegister(DocumentsStored)
	reg.MustRegister(LoadSkipped)
	reg.MustRegister(MirrorErrors)
}
