package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CartOperations tracks cart mutations by operation name.
	CartOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_cart_operations_total",
			Help: "Total number of cart mutations",
		},
		[]string{"operation"},
	)

	// PromoRejections tracks invalid promo code attempts.
	PromoRejections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "storefront_promo_rejections_total",
			Help: "Total number of rejected promo codes",
		},
	)

	// OrdersPlaced tracks completed checkouts.
	OrdersPlaced = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "storefront_orders_placed_total",
			Help: "Total number of orders placed",
		},
	)

	// StatusTransitions tracks lifecycle transitions by target status.
	StatusTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_order_status_transitions_total",
			Help: "Total number of order status transitions",
		},
		[]string{"to"},
	)

	// OrderValue observes the frozen total of each placed order.
	OrderValue = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "storefront_order_value",
			Help:    "Order totals at checkout, in currency units",
			Buckets: []float64{50, 100, 250, 500, 1000, 2500, 5000},
		},
	)

	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "storefront_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)
