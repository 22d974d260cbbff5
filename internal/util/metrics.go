package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CheckoutsBegunTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "checkouts_begun_total",
		Help: "Total number of checkout attempts begun",
	})

	CheckoutsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "checkouts_failed_total",
		Help: "Total number of failed checkout begins",
	}, []string{"reason"})

	PaymentsVerifiedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payments_verified_total",
		Help: "Total number of payment confirmations that passed verification",
	})

	PaymentsRejectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payments_rejected_total",
		Help: "Total number of payment confirmations rejected by verification",
	})

	OrdersCommittedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_committed_total",
		Help: "Total number of orders committed",
	})

	DuplicateConfirmsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "duplicate_confirms_total",
		Help: "Total number of confirm calls answered from an already-committed attempt",
	})

	AttemptsExpiredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "attempts_expired_total",
		Help: "Total number of attempts expired past the payment window",
	})

	StockDiscrepanciesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_discrepancies_total",
		Help: "Total number of inventory anomalies recorded during commit",
	}, []string{"reason"})

	StockDecrementsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stock_decrements_total",
		Help: "Total number of per-item stock decrements applied",
	})

	GatewayRequestLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "gateway_request_latency_seconds",
		Help:    "Latency of payment gateway order creation",
		Buckets: prometheus.DefBuckets,
	})

	GatewayErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_errors_total",
		Help: "Total number of payment gateway call failures",
	}, []string{"kind"})

	CommitLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "commit_latency_seconds",
		Help:    "Latency of order and inventory commit",
		Buckets: prometheus.DefBuckets,
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
