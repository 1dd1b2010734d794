// ABOUTME: Prometheus metrics for relayed station feeds
// ABOUTME: Counts updates and errors and exposes live connection state per station
package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	namespace = "npfeed"
	subsystem = "station"
)

// StationStats is the live state a tracked station exposes.
type StationStats interface {
	ID() string
	Reconnects() uint64
	Connected() bool
}

type Collector struct {
	registry *prometheus.Registry
	updates  *prometheus.CounterVec
	errors   *prometheus.CounterVec
}

// New creates a collector on its own registry, including the Go runtime and
// process collectors.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		updates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "updates_total",
			Help:      "Validated now-playing payloads received",
		}, []string{"station"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "errors_total",
			Help:      "Feed errors by kind",
		}, []string{"station", "kind"}), // kind: network, response, connection, payload, other
	}

	c.registry.MustRegister(
		c.updates,
		c.errors,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

func (c *Collector) ObserveUpdate(stationID string) {
	c.updates.WithLabelValues(stationID).Inc()
}

func (c *Collector) ObserveError(stationID, kind string) {
	c.errors.WithLabelValues(stationID, kind).Inc()
}

// Track registers the reconnect counter and connection gauge of st.
func (c *Collector) Track(st StationStats) error {
	labels := prometheus.Labels{"station": st.ID()}

	reconnects := prometheus.NewCounterFunc(prometheus.CounterOpts{
		Namespace:   namespace,
		Subsystem:   subsystem,
		Name:        "reconnects_total",
		Help:        "Reconnects scheduled after the feed connection closed",
		ConstLabels: labels,
	}, func() float64 { return float64(st.Reconnects()) })

	connected := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace:   namespace,
		Subsystem:   subsystem,
		Name:        "connected",
		Help:        "1 while the feed connection is open",
		ConstLabels: labels,
	}, func() float64 {
		if st.Connected() {
			return 1
		}
		return 0
	})

	if err := c.registry.Register(reconnects); err != nil {
		return fmt.Errorf("register reconnects for %s: %w", st.ID(), err)
	}
	if err := c.registry.Register(connected); err != nil {
		c.registry.Unregister(reconnects)
		return fmt.Errorf("register connected for %s: %w", st.ID(), err)
	}
	return nil
}

func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
