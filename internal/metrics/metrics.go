package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Registry struct {
	reg *prometheus.Registry

	OrdersReserved        prometheus.Counter
	OrdersConfirmed       prometheus.Counter
	ConfirmationsSkipped  prometheus.Counter
	DuplicateDeliveries   prometheus.Counter
	DeadLettered          prometheus.Counter
	HandlerFailures       prometheus.Counter
	OutboxPublished       prometheus.Counter
	OutboxPublishFailures prometheus.Counter
	HandleLatencySec      prometheus.Histogram
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()

	reserved := prometheus.NewCounter(prometheus.CounterOpts{Name: "fulfillment_orders_reserved_total"})
	confirmed := prometheus.NewCounter(prometheus.CounterOpts{Name: "fulfillment_orders_confirmed_total"})
	skipped := prometheus.NewCounter(prometheus.CounterOpts{Name: "fulfillment_confirmations_skipped_total"})
	duplicates := prometheus.NewCounter(prometheus.CounterOpts{Name: "fulfillment_duplicate_deliveries_total"})
	deadLettered := prometheus.NewCounter(prometheus.CounterOpts{Name: "fulfillment_dead_lettered_total"})
	failures := prometheus.NewCounter(prometheus.CounterOpts{Name: "fulfillment_handler_failures_total"})
	outboxPublished := prometheus.NewCounter(prometheus.CounterOpts{Name: "fulfillment_outbox_published_total"})
	outboxFailures := prometheus.NewCounter(prometheus.CounterOpts{Name: "fulfillment_outbox_publish_failures_total"})
	latency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "fulfillment_handle_latency_seconds",
		Buckets: prometheus.DefBuckets,
	})

	r.MustRegister(reserved, confirmed, skipped, duplicates, deadLettered, failures, outboxPublished, outboxFailures, latency)
	return &Registry{
		reg:                   r,
		OrdersReserved:        reserved,
		OrdersConfirmed:       confirmed,
		ConfirmationsSkipped:  skipped,
		DuplicateDeliveries:   duplicates,
		DeadLettered:          deadLettered,
		HandlerFailures:       failures,
		OutboxPublished:       outboxPublished,
		OutboxPublishFailures: outboxFailures,
		HandleLatencySec:      latency,
	}
}

func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }
