package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder owns its own registry so several instances can coexist in tests.
// A nil *Recorder records nothing.
type Recorder struct {
	registry *prometheus.Registry

	Requests  *prometheus.CounterVec
	LatencyMS *prometheus.HistogramVec

	OrdersCreated      *prometheus.CounterVec
	PaymentsInitiated  *prometheus.CounterVec
	WebhooksReceived   *prometheus.CounterVec
	NotificationErrors prometheus.Counter
}

func New(namespace string) *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"handler", "status"}),
		LatencyMS: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_ms",
			Help:      "HTTP request latency in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"handler"}),
		OrdersCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_created_total",
			Help:      "Orders persisted, by payment type.",
		}, []string{"payment_type"}),
		PaymentsInitiated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payments_initiated_total",
			Help:      "Payment initiation attempts, by outcome.",
		}, []string{"result"}),
		WebhooksReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_webhooks_total",
			Help:      "Payment webhooks processed, by gateway status.",
		}, []string{"payment_status"}),
		NotificationErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notification_errors_total",
			Help:      "Operator notifications that could not be handed off.",
		}),
	}

	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.Requests, r.LatencyMS,
		r.OrdersCreated, r.PaymentsInitiated, r.WebhooksReceived, r.NotificationErrors,
	)
	return r
}

func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func (r *Recorder) ObserveRequest(handler, status string, ms float64) {
	if r == nil {
		return
	}
	r.Requests.WithLabelValues(handler, status).Inc()
	r.LatencyMS.WithLabelValues(handler).Observe(ms)
}

func (r *Recorder) OrderCreated(paymentType string) {
	if r == nil {
		return
	}
	r.OrdersCreated.WithLabelValues(paymentType).Inc()
}

func (r *Recorder) PaymentInitiated(result string) {
	if r == nil {
		return
	}
	r.PaymentsInitiated.WithLabelValues(result).Inc()
}

func (r *Recorder) WebhookReceived(paymentStatus string) {
	if r == nil {
		return
	}
	r.WebhooksReceived.WithLabelValues(paymentStatus).Inc()
}

func (r *Recorder) NotificationFailed() {
	if r == nil {
		return
	}
	r.NotificationErrors.Inc()
}
