package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ActionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hyperliquid_actions_total",
		Help: "Exchange actions submitted, by action type and outcome",
	}, []string{"action", "outcome"})

	SubmitLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hyperliquid_submit_latency_seconds",
		Help:    "Time from signing to a classified exchange response",
		Buckets: prometheus.DefBuckets,
	}, []string{"action"})

	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hyperliquid_cache_lookups_total",
		Help: "Market metadata cache lookups, by store and result",
	}, []string{"store", "result"})
)

// Action outcomes
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)
