package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Mutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "syncd_mutations_total",
		Help: "Optimistic mutations started, by kind and intent.",
	}, []string{"kind", "intent"})

	MutationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "syncd_mutation_failures_total",
		Help: "Mutations whose upstream call failed and were rolled back.",
	}, []string{"kind"})

	DuplicateTriggers = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "syncd_duplicate_triggers_total",
		Help: "Mutation triggers dropped because the same (entity, kind) was already in flight.",
	}, []string{"kind"})

	StaleIntents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "syncd_stale_intents_total",
		Help: "Toggle-offs against an unconfirmed optimistic marker, resolved as local no-ops.",
	}, []string{"kind"})

	Reconciliations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "syncd_reconciliations_total",
		Help: "View families marked stale and scheduled for refetch.",
	}, []string{"family"})

	UpstreamRequests = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "syncd_upstream_request_seconds",
		Help:    "Upstream XRPC request latency by endpoint.",
		Buckets: prometheus.DefBuckets,
	}, []string{"nsid"})

	RetryJobs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "syncd_retry_jobs_total",
		Help: "Durable retry queue transitions.",
	}, []string{"status"})
)
