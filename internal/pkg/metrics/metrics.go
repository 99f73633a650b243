package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	LatencyBucket = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "lottogate_latency_bucket",
		Help:    "Request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})

	Requests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lottogate_requests_total",
		Help: "HTTP requests by route, method and status",
	}, []string{"route", "method", "status"})

	ExcessItems = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "lottogate_excess_items",
		Help:    "Number of excess items per excess computation",
		Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250},
	}, []string{"variant"})

	TransferOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lottogate_transfer_ops_total",
		Help: "Transfer ledger operations by op and result",
	}, []string{"op", "result"})

	MirrorFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lottogate_mirror_failures_total",
		Help: "Best-effort mirrored wager writes that failed",
	}, []string{"stage"})

	CreditChecks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lottogate_credit_checks_total",
		Help: "Pre-acceptance credit checks by result",
	}, []string{"result"})

	Recomputes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lottogate_pending_recomputes_total",
		Help: "Pending deduction recomputations by result",
	}, []string{"result"})
)
