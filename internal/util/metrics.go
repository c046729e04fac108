package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CartAddsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cart_adds_total",
		Help: "Total number of units added to carts",
	})

	CartAddsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_adds_failed_total",
		Help: "Total number of failed cart additions",
	}, []string{"reason"})

	CartRemovalsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cart_removals_total",
		Help: "Total number of cart lines removed",
	})

	CheckoutsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "checkouts_total",
		Help: "Total number of completed checkouts",
	})

	CheckoutsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "checkouts_failed_total",
		Help: "Total number of failed checkouts",
	}, []string{"reason"})

	CheckoutLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "checkout_latency_seconds",
		Help:    "Latency of checkout transactions",
		Buckets: prometheus.DefBuckets,
	})

	RestocksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "restocks_total",
		Help: "Total number of product restocks",
	})

	StockAlertsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_alerts_total",
		Help: "Total number of stock alerts emitted",
	}, []string{"type"})

	NotificationsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "notifications_created_total",
		Help: "Total number of notifications persisted",
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
