// Package metrics exposes the bot's state to Prometheus and a health endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/samgozman/tvs-bot/scavenger/tvs"
)

const namespace = "tvs"

// Collector records fetch and publish outcomes. A nil *Collector is valid and records nothing.
type Collector struct {
	registry    *prometheus.Registry
	value       prometheus.Gauge
	lastSuccess prometheus.Gauge
	fetches     *prometheus.CounterVec
	publishes   *prometheus.CounterVec
	stale       prometheus.Counter
}

// NewCollector creates a Collector with its own registry.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		value: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "value_usd",
			Help:      "Last successfully fetched Total Value Secured in USD.",
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful fetch.",
		}),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_total",
			Help:      "TVS fetch attempts by fetcher and result.",
		}, []string{"source", "result"}),
		publishes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_total",
			Help:      "Presence updates by result.",
		}, []string{"result"}),
		stale: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stale_publishes_total",
			Help:      "Cycles that fell back to the cached value.",
		}),
	}

	c.registry.MustRegister(c.value, c.lastSuccess, c.fetches, c.publishes, c.stale)
	return c
}

// Registry returns the registry holding the collector's metrics.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collector) ObserveFetch(source string, err error) {
	if c == nil {
		return
	}
	c.fetches.WithLabelValues(source, result(err)).Inc()
}

func (c *Collector) ObservePublish(err error) {
	if c == nil {
		return
	}
	c.publishes.WithLabelValues(result(err)).Inc()
}

func (c *Collector) ObserveStale() {
	if c == nil {
		return
	}
	c.stale.Inc()
}

// SetSnapshot records a successful fetch.
func (c *Collector) SetSnapshot(s tvs.Snapshot) {
	if c == nil {
		return
	}
	c.value.Set(s.Value)
	c.lastSuccess.Set(float64(s.FetchedAt.Unix()))
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
