package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// StorefrontMetrics records request timings and the business counters the
// storefront cares about: completed checkouts and flattened designs.
type StorefrontMetrics struct {
	requestDuration *prometheus.HistogramVec
	checkoutSuccess *prometheus.CounterVec
	checkoutFailure *prometheus.CounterVec
	ordersPlaced    prometheus.Counter
	designsFlat     prometheus.Counter
}

// NewStorefrontMetrics registers the storefront metrics on the provided registerer.
func NewStorefrontMetrics(reg prometheus.Registerer) *StorefrontMetrics {
	if reg == nil {
		return &StorefrontMetrics{}
	}
	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method", "status"})
	checkoutSuccess := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_submission_success",
		Help: "Successful checkout submissions.",
	}, []string{"carrier"})
	checkoutFailure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_submission_failure",
		Help: "Failed checkout submissions.",
	}, []string{"stage"})
	ordersPlaced := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orders_placed_total",
		Help: "Orders persisted after successful payment.",
	})
	designsFlat := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "designs_flattened_total",
		Help: "Custom designs rendered and added to carts.",
	})
	reg.MustRegister(requestDuration, checkoutSuccess, checkoutFailure, ordersPlaced, designsFlat)
	return &StorefrontMetrics{
		requestDuration: requestDuration,
		checkoutSuccess: checkoutSuccess,
		checkoutFailure: checkoutFailure,
		ordersPlaced:    ordersPlaced,
		designsFlat:     designsFlat,
	}
}

// ObserveRequest records the duration for a handled HTTP request.
func (m *StorefrontMetrics) ObserveRequest(route, method, status string, duration time.Duration) {
	if m == nil || m.requestDuration == nil {
		return
	}
	m.requestDuration.WithLabelValues(normalizeLabel(route), normalizeLabel(method), normalizeLabel(status)).Observe(duration.Seconds())
}

// IncCheckoutSuccess increments the submission success counter for the carrier.
func (m *StorefrontMetrics) IncCheckoutSuccess(carrier string) {
	if m == nil || m.checkoutSuccess == nil {
		return
	}
	m.checkoutSuccess.WithLabelValues(normalizeLabel(carrier)).Inc()
}

// IncCheckoutFailure increments the submission failure counter for the stage that failed.
func (m *StorefrontMetrics) IncCheckoutFailure(stage string) {
	if m == nil || m.checkoutFailure == nil {
		return
	}
	m.checkoutFailure.WithLabelValues(normalizeLabel(stage)).Inc()
}

// IncOrderPlaced increments the persisted order counter.
func (m *StorefrontMetrics) IncOrderPlaced() {
	if m == nil || m.ordersPlaced == nil {
		return
	}
	m.ordersPlaced.Inc()
}

// IncDesignFlattened increments the flattened design counter.
func (m *StorefrontMetrics) IncDesignFlattened() {
	if m == nil || m.designsFlat == nil {
		return
	}
	m.designsFlat.Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
