package metrics

import (
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder owns the gateway's Prometheus collectors.
type Recorder struct {
	providerRequests *prometheus.CounterVec
	providerLatency  *prometheus.HistogramVec
	webhookBatches   *prometheus.CounterVec
	flows            *prometheus.CounterVec
	refunds          *prometheus.CounterVec
}

func NewRecorder(namespace string, reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	r := &Recorder{
		providerRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_requests_total",
			Help:      "GoCardless API calls by resource, method and status code.",
		}, []string{"resource", "method", "status"}),
		providerLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_request_duration_seconds",
			Help:      "GoCardless API call latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"resource", "method"}),
		webhookBatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_batches_total",
			Help:      "Inbound webhook batches by outcome and resulting transaction status.",
		}, []string{"result", "status"}),
		flows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flows_total",
			Help:      "Authorization flow phases by pay type and outcome.",
		}, []string{"phase", "pay_type", "result"}),
		refunds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refunds_total",
			Help:      "Refund and void requests by operation and outcome.",
		}, []string{"operation", "result"}),
	}

	r.providerRequests = register(reg, r.providerRequests)
	r.providerLatency = register(reg, r.providerLatency)
	r.webhookBatches = register(reg, r.webhookBatches)
	r.flows = register(reg, r.flows)
	r.refunds = register(reg, r.refunds)

	return r
}

// ObserveProviderRequest matches gocardless.RequestObserver.
func (r *Recorder) ObserveProviderRequest(resource, method string, status int, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.providerRequests.WithLabelValues(resource, method, statusLabel(status)).Inc()
	r.providerLatency.WithLabelValues(resource, method).Observe(elapsed.Seconds())
}

func (r *Recorder) WebhookBatch(result, status string) {
	if r == nil {
		return
	}
	r.webhookBatches.WithLabelValues(result, status).Inc()
}

func (r *Recorder) Flow(phase, payType string, err error) {
	if r == nil {
		return
	}
	r.flows.WithLabelValues(phase, payType, resultLabel(err)).Inc()
}

func (r *Recorder) Refund(operation string, err error) {
	if r == nil {
		return
	}
	r.refunds.WithLabelValues(operation, resultLabel(err)).Inc()
}

func register[C prometheus.Collector](reg prometheus.Registerer, collector C) C {
	if err := reg.Register(collector); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(err)
	}
	return collector
}

func statusLabel(status int) string {
	if status == 0 {
		return "transport_error"
	}
	return strconv.Itoa(status)
}

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
