package service

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Monitor checkout metrics, registered once on the default registry and
// scraped from the admin server's /metrics endpoint.
type Monitor struct {
	CheckoutInitiated *prometheus.CounterVec
	CheckoutConfirmed *prometheus.CounterVec
	CheckoutFailed    *prometheus.CounterVec
	GatewayRequests   *prometheus.CounterVec
	ReconcileEvents   prometheus.Counter
	OrdersExpired     prometheus.Counter
	CheckoutDuration  *prometheus.HistogramVec
}

var (
	globalMonitor *Monitor
	monitorOnce   sync.Once
)

// GetMonitor returns the process-wide monitor.
func GetMonitor() *Monitor {
	monitorOnce.Do(func() {
		m := &Monitor{
			CheckoutInitiated: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "kinbech",
				Subsystem: "checkout",
				Name:      "initiated_total",
				Help:      "Checkout initiations by payment method.",
			}, []string{"method"}),
			CheckoutConfirmed: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "kinbech",
				Subsystem: "checkout",
				Name:      "confirmed_total",
				Help:      "Orders confirmed by payment method.",
			}, []string{"method"}),
			CheckoutFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "kinbech",
				Subsystem: "checkout",
				Name:      "failed_total",
				Help:      "Checkout failures by method and reason.",
			}, []string{"method", "reason"}),
			GatewayRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "kinbech",
				Subsystem: "gateway",
				Name:      "requests_total",
				Help:      "Outbound gateway calls by provider, op and outcome.",
			}, []string{"provider", "op", "outcome"}),
			ReconcileEvents: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "kinbech",
				Subsystem: "checkout",
				Name:      "reconcile_events_total",
				Help:      "Paid-but-out-of-stock cases queued for operators.",
			}),
			OrdersExpired: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "kinbech",
				Subsystem: "checkout",
				Name:      "orders_expired_total",
				Help:      "Pending orders cancelled by the expiry sweeper.",
			}),
			CheckoutDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "kinbech",
				Subsystem: "checkout",
				Name:      "step_duration_ms",
				Help:      "Checkout step latency in milliseconds.",
				Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
			}, []string{"step"}),
		}
		prometheus.MustRegister(
			m.CheckoutInitiated,
			m.CheckoutConfirmed,
			m.CheckoutFailed,
			m.GatewayRequests,
			m.ReconcileEvents,
			m.OrdersExpired,
			m.CheckoutDuration,
		)
		globalMonitor = m
	})
	return globalMonitor
}
