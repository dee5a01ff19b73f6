// Package metrics exposes the pipeline's Prometheus instrumentation.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	OrdersProcessed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orders_processed_total",
		Help: "Total number of orders processed successfully",
	})
	OrdersDeadLettered = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orders_dead_lettered_total",
		Help: "Total number of orders moved to the failure queue",
	})
	OrdersRecovered = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orders_recovered_total",
		Help: "Total number of orders repaired and replayed out of the failure queue",
	})
	OrdersUnrepairable = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orders_unrepairable_total",
		Help: "Total number of dead-lettered orders left for manual intervention",
	})
	ProcessingDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "order_processing_duration_seconds",
		Help:    "Time spent settling an order (persist, status, notify)",
		Buckets: prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(OrdersProcessed, OrdersDeadLettered, OrdersRecovered, OrdersUnrepairable, ProcessingDuration)
}

// Serve starts a /metrics endpoint on the given address in the background.
func Serve(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		_ = http.ListenAndServe(addr, mux)
	}()
}
