package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "market"

// Metrics owns its registry so tests and the two binaries never collide on
// the global one.
type Metrics struct {
	reg *prometheus.Registry

	Requests         *prometheus.CounterVec
	LatencyMS        *prometheus.HistogramVec
	CheckoutOutcomes *prometheus.CounterVec
	SettledLines     prometheus.Counter
	StockUnderflow   *prometheus.CounterVec
	OutboxPublished  *prometheus.CounterVec
}

func New(service string) *Metrics {
	m := &Metrics{reg: prometheus.NewRegistry()}
	m.Requests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: service,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests.",
	}, []string{"handler", "status"})
	m.LatencyMS = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: service,
		Name:      "http_request_duration_ms",
		Help:      "HTTP request latency in milliseconds.",
		Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	}, []string{"handler"})
	m.CheckoutOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "checkout_total",
		Help:      "Checkouts by outcome.",
	}, []string{"outcome"})
	m.SettledLines = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "settled_lines_total",
		Help:      "Order lines moved from Pending to Paid.",
	})
	m.StockUnderflow = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "stock_underflow_total",
		Help:      "Stock adjustments rejected for going below zero. Any increase is a consistency alarm.",
	}, []string{"item"})
	m.OutboxPublished = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "outbox_events_total",
		Help:      "Outbox events handled by the relay.",
	}, []string{"result"})

	m.reg.MustRegister(
		m.Requests, m.LatencyMS, m.CheckoutOutcomes, m.SettledLines, m.StockUnderflow, m.OutboxPublished,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) ObserveRequest(handler string, status int, dur time.Duration) {
	m.Requests.WithLabelValues(handler, strconv.Itoa(status)).Inc()
	m.LatencyMS.WithLabelValues(handler).Observe(float64(dur.Milliseconds()))
}

func (m *Metrics) ObserveCheckout(outcome string, lines int) {
	m.CheckoutOutcomes.WithLabelValues(outcome).Inc()
	if outcome == "settled" {
		m.SettledLines.Add(float64(lines))
	}
}

// StockAlarm is the inventory underflow hook.
func (m *Metrics) StockAlarm(itemID string) {
	m.StockUnderflow.WithLabelValues(itemID).Inc()
}

func (m *Metrics) ObserveOutbox(result string, n int) {
	m.OutboxPublished.WithLabelValues(result).Add(float64(n))
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}
