// Package metrics exposes the daemon's Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors shared across services. Collectors live in a
// private registry so tests can construct isolated instances.
type Metrics struct {
	registry *prometheus.Registry

	FramesRendered     *prometheus.CounterVec
	RenderDuration     prometheus.Histogram
	ConfigSaves        prometheus.Counter
	ConfigSaveFailures prometheus.Counter
	OverAllocations    prometheus.Counter
	ActiveProtocol     *prometheus.GaugeVec
	InputPackets       prometheus.Counter
	InputDropped       prometheus.Counter
}

// New creates the collector set on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		FramesRendered: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pixelnode_output_frames_total",
			Help: "Frames rendered per output channel.",
		}, []string{"channel", "type"}),
		RenderDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "pixelnode_render_duration_seconds",
			Help:    "Duration of one full render pass across all channels.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 12),
		}),
		ConfigSaves: factory.NewCounter(prometheus.CounterOpts{
			Name: "pixelnode_config_saves_total",
			Help: "Successful deferred configuration flushes.",
		}),
		ConfigSaveFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "pixelnode_config_save_failures_total",
			Help: "Failed deferred configuration flushes.",
		}),
		OverAllocations: factory.NewCounter(prometheus.CounterOpts{
			Name: "pixelnode_buffer_overallocations_total",
			Help: "Channels whose declared need exceeded remaining buffer capacity.",
		}),
		ActiveProtocol: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "pixelnode_channel_protocol",
			Help: "Active protocol type id per channel.",
		}, []string{"channel"}),
		InputPackets: factory.NewCounter(prometheus.CounterOpts{
			Name: "pixelnode_input_packets_total",
			Help: "sACN data packets accepted.",
		}),
		InputDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "pixelnode_input_packets_dropped_total",
			Help: "sACN packets dropped (malformed, stale sequence, non-zero start code).",
		}),
	}
}

// Handler returns the HTTP handler serving the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
