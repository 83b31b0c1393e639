// Package metrics exposes Prometheus collectors for the dev loop.
//
// Metrics collected (default namespace "tio"):
//   - tio_rebuilds_total: rebuild passes by result (ok, error, skipped)
//   - tio_rebuild_duration_seconds: rebuild pass duration
//   - tio_compiles_total: component compiles by result (ok, error)
//   - tio_notifications_total: live update notifications by kind (hot, reload, dropped)
//   - tio_fs_events_total: filesystem events by watch root and action
//   - tio_live_clients: 1 while a browser holds the live reload slot
//
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Config configures the collectors.
type Config struct {
	// Namespace is the metrics namespace (default: "tio").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for rebuild duration.
	Buckets []float64

	// Registry is the registry collectors are registered with.
	// Default: a fresh registry owned by the Metrics value.
	Registry *prometheus.Registry
}

// Option configures the collectors.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the rebuild duration histogram buckets.
func WithBuckets(buckets []float64) Option {
	return func(c *Config) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry *prometheus.Registry) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

func defaultConfig() Config {
	return Config{
		Namespace: "tio",
		Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	}
}

// Metrics holds the dev loop collectors.
type Metrics struct {
	registry        *prometheus.Registry
	rebuilds        *prometheus.CounterVec
	rebuildDuration prometheus.Histogram
	compiles        *prometheus.CounterVec
	notifications   *prometheus.CounterVec
	fsEvents        *prometheus.CounterVec
	liveClients     prometheus.Gauge
}

// New creates and registers the collectors.
func New(opts ...Option) *Metrics {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	if config.Registry == nil {
		config.Registry = prometheus.NewRegistry()
	}

	factory := promauto.With(config.Registry)

	return &Metrics{
		registry: config.Registry,

		rebuilds: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "rebuilds_total",
			Help:        "Total number of rebuild passes",
			ConstLabels: config.ConstLabels,
		}, []string{"result"}),

		rebuildDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "rebuild_duration_seconds",
			Help:        "Rebuild pass duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),

		compiles: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "compiles_total",
			Help:        "Total number of component compiles",
			ConstLabels: config.ConstLabels,
		}, []string{"result"}),

		notifications: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "notifications_total",
			Help:        "Total number of live update notifications",
			ConstLabels: config.ConstLabels,
		}, []string{"kind"}),

		fsEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "fs_events_total",
			Help:        "Total number of filesystem events by watch root and action",
			ConstLabels: config.ConstLabels,
		}, []string{"root", "action"}),

		liveClients: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "live_clients",
			Help:        "Whether a browser currently holds the live reload connection",
			ConstLabels: config.ConstLabels,
		}),
	}
}

// ObserveRebuild records one rebuild pass.
func (m *Metrics) ObserveRebuild(result string, d time.Duration) {
	if m == nil {
		return
	}
	m.rebuilds.WithLabelValues(result).Inc()
	if d > 0 {
		m.rebuildDuration.Observe(d.Seconds())
	}
}

// ObserveCompile records one component compile.
func (m *Metrics) ObserveCompile(ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	m.compiles.WithLabelValues(result).Inc()
}

// ObserveNotification records one notification attempt.
func (m *Metrics) ObserveNotification(kind string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(kind).Inc()
}

// ObserveFSEvent records one classified filesystem event.
func (m *Metrics) ObserveFSEvent(root, action string) {
	if m == nil {
		return
	}
	m.fsEvents.WithLabelValues(root, action).Inc()
}

// SetLiveClient records whether a live reload client is connected.
func (m *Metrics) SetLiveClient(connected bool) {
	if m == nil {
		return
	}
	if connected {
		m.liveClients.Set(1)
	} else {
		m.liveClients.Set(0)
	}
}

// Registry returns the registry the collectors live in.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the collectors in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
