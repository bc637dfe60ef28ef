package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "guesthouse"

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	emailJobs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "email_jobs_total",
			Help:      "Email job outcomes by template kind.",
		},
		[]string{"kind", "outcome"},
	)

	emailQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "email_queue_depth",
			Help:      "Email jobs waiting for delivery.",
		},
	)

	webhookEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_events_total",
			Help:      "Payment gateway webhook deliveries by event and outcome.",
		},
		[]string{"event", "outcome"},
	)

	paymentsReconciled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payments_reconciled_total",
			Help:      "Booking reconciliations by resulting payment status.",
		},
		[]string{"payment_status"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, emailJobs, emailQueueDepth, webhookEvents, paymentsReconciled)
	})
}

// IncHTTP increments the counter for an endpoint label.
func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

// IncEmailJob records a delivered, retried or abandoned email job.
func IncEmailJob(kind, outcome string) {
	emailJobs.WithLabelValues(kind, outcome).Inc()
}

func SetEmailQueueDepth(n int) {
	emailQueueDepth.Set(float64(n))
}

func IncWebhook(event, outcome string) {
	webhookEvents.WithLabelValues(event, outcome).Inc()
}

func IncReconciled(paymentStatus string) {
	paymentsReconciled.WithLabelValues(paymentStatus).Inc()
}
