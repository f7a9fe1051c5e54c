// Package metrics exposes Prometheus counters for the delivery pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	PostsPublished = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "posts_published_total",
		Help: "Scheduled posts successfully delivered to channels",
	})
	DeliveryFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "post_delivery_failures_total",
		Help: "Delivery attempts that failed at the transport",
	})
	PostsAbandoned = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "posts_abandoned_total",
		Help: "Delivery attempts skipped because the channel was deactivated",
	})
	SweepRuns = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "catchup_sweep_runs_total",
		Help: "Executions of the catch-up sweep",
	})
	BroadcastsSent = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "broadcast_messages_sent_total",
		Help: "Messages delivered during broadcast fan-outs",
	})
)

// MustRegister registers all pipeline metrics with the given registerer.
func MustRegister(registerer prometheus.Registerer) {
	registerer.MustRegister(
		PostsPublished,
		DeliveryFailures,
		PostsAbandoned,
		SweepRuns,
		BroadcastsSent,
	)
}
