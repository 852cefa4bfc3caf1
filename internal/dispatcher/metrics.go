package dispatcher

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	dispatchRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "payment",
			Name:      "dispatch_requests_total",
			Help:      "Charge dispatches by provider and terminal status.",
		},
		[]string{"provider", "status"},
	)

	dispatchDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "payment",
			Name:      "dispatch_duration_seconds",
			Help:      "Wall time of a charge dispatch, including the provider call.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"provider"},
	)
)

func observeDispatch(provider, status string, seconds float64) {
	dispatchRequestsTotal.WithLabelValues(provider, status).Inc()
	dispatchDurationSeconds.WithLabelValues(provider).Observe(seconds)
}

// GetDispatchRequestsTotal exposes the counter for metric assertions.
func GetDispatchRequestsTotal() *prometheus.CounterVec { return dispatchRequestsTotal }

// GetDispatchDurationSeconds exposes the histogram for metric assertions.
func GetDispatchDurationSeconds() *prometheus.HistogramVec { return dispatchDurationSeconds }
