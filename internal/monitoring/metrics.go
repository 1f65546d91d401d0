package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors for the bridge.
type Metrics struct {
	// Device-interface metrics
	DeviceOps *prometheus.CounterVec

	// Session metrics
	SessionsActive prometheus.Gauge
	ConnectWait    prometheus.Histogram

	// Transport metrics
	ViewerConnections prometheus.Gauge
	UpdatesSent       *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		DeviceOps: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fbridge_device_ops_total",
				Help: "Device-interface operations by operation and result",
			},
			[]string{"op", "result"},
		),
		SessionsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "fbridge_sessions_active",
				Help: "Sessions currently in the scanning state",
			},
		),
		ConnectWait: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "fbridge_connect_wait_seconds",
				Help:    "Time initialize spent waiting for a session to start scanning",
				Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
		),
		ViewerConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "fbridge_viewer_connections",
				Help: "Attached remote viewers",
			},
		),
		UpdatesSent: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fbridge_updates_sent_total",
				Help: "Update records streamed to viewers by kind",
			},
			[]string{"kind"},
		),
	}
}

// ObserveOp records the outcome of one device operation.
func (m *Metrics) ObserveOp(op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.DeviceOps.WithLabelValues(op, result).Inc()
}
