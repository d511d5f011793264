package hublink

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsConfig configures the Prometheus instrumentation.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "hublink").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer.
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus instrumentation.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "hublink",
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics instruments a Client. A nil *Metrics disables every recorder,
// so callers never need to guard.
type Metrics struct {
	connects       prometheus.Counter
	disconnects    prometheus.Counter
	reconnects     prometheus.Counter
	framesReceived *prometheus.CounterVec
	calls          prometheus.Counter
	callTimeouts   prometheus.Counter
	callDuration   prometheus.Histogram
	errors         *prometheus.CounterVec
}

// NewMetrics builds and registers the client metrics.
func NewMetrics(opts ...MetricsOption) *Metrics {
	cfg := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	factory := promauto.With(cfg.Registry)

	return &Metrics{
		connects: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "connects_total",
			Help:        "Successful handshakes (initial and after recovery).",
			ConstLabels: cfg.ConstLabels,
		}),
		disconnects: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "disconnects_total",
			Help:        "Transport drops observed mid-session.",
			ConstLabels: cfg.ConstLabels,
		}),
		reconnects: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "reconnect_attempts_total",
			Help:        "Recovery attempts started.",
			ConstLabels: cfg.ConstLabels,
		}),
		framesReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "frames_received_total",
			Help:        "Inbound frames by kind.",
			ConstLabels: cfg.ConstLabels,
		}, []string{"kind"}),
		calls: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "calls_total",
			Help:        "Client invocations with a tracked response.",
			ConstLabels: cfg.ConstLabels,
		}),
		callTimeouts: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "call_timeouts_total",
			Help:        "Calls settled by their timeout.",
			ConstLabels: cfg.ConstLabels,
		}),
		callDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "call_duration_seconds",
			Help:        "Latency of settled calls.",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: cfg.ConstLabels,
		}),
		errors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "errors_total",
			Help:        "Surfaced engine errors by code.",
			ConstLabels: cfg.ConstLabels,
		}, []string{"code"}),
	}
}

func (m *Metrics) recordConnect() {
	if m == nil {
		return
	}
	m.connects.Inc()
}

func (m *Metrics) recordDisconnect() {
	if m == nil {
		return
	}
	m.disconnects.Inc()
}

func (m *Metrics) recordReconnectAttempt() {
	if m == nil {
		return
	}
	m.reconnects.Inc()
}

func (m *Metrics) recordFrame(kind string) {
	if m == nil {
		return
	}
	m.framesReceived.WithLabelValues(kind).Inc()
}

func (m *Metrics) recordCall(duration time.Duration, timedOut bool) {
	if m == nil {
		return
	}
	m.calls.Inc()
	m.callDuration.Observe(duration.Seconds())
	if timedOut {
		m.callTimeouts.Inc()
	}
}

func (m *Metrics) recordError(code Code) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(string(code)).Inc()
}
