package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	OrdersPlaced    prometheus.Counter
	OrdersCancelled prometheus.Counter
	StockRejections prometheus.Counter
	CheckoutSeconds prometheus.Histogram
}

func New(service string) *Metrics {
	m := &Metrics{
		OrdersPlaced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pranjay", Subsystem: service,
			Name: "orders_placed_total", Help: "Orders successfully placed.",
		}),
		OrdersCancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pranjay", Subsystem: service,
			Name: "orders_cancelled_total", Help: "Orders cancelled and stock restored.",
		}),
		StockRejections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pranjay", Subsystem: service,
			Name: "stock_rejections_total", Help: "Checkouts rejected for insufficient stock.",
		}),
		CheckoutSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "pranjay", Subsystem: service,
			Name: "checkout_duration_seconds", Help: "Checkout latency.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	prometheus.MustRegister(m.OrdersPlaced, m.OrdersCancelled, m.StockRejections, m.CheckoutSeconds)
	return m
}

func Handler() http.Handler {
	return promhttp.Handler()
}
