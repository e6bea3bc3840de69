// Package metrics exports live connection activity to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/liuscraft/voxlink/pkg/live"
)

// Collector implements live.Hooks.
type Collector struct {
	transitions     *prometheus.CounterVec
	open            prometheus.Gauge
	framesSent      *prometheus.CounterVec
	bytesSent       *prometheus.CounterVec
	framesReceived  *prometheus.CounterVec
	bytesReceived   *prometheus.CounterVec
	keepAlives      prometheus.Counter
	handlerFailures *prometheus.CounterVec

	logger *zap.Logger
}

var _ live.Hooks = (*Collector)(nil)

// NewCollector registers the connection metrics with reg.
func NewCollector(reg prometheus.Registerer, namespace string, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	factory := promauto.With(reg)
	return &Collector{
		transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "live_state_transitions_total",
			Help:      "Connection state transitions",
		}, []string{"from", "to"}),
		open: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "live_connections_open",
			Help:      "Connections currently open",
		}),
		framesSent: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "live_frames_sent_total",
			Help:      "Frames written to the socket",
		}, []string{"kind"}),
		bytesSent: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "live_bytes_sent_total",
			Help:      "Payload bytes written to the socket",
		}, []string{"kind"}),
		framesReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "live_frames_received_total",
			Help:      "Frames read from the socket, by decoded event kind",
		}, []string{"kind"}),
		bytesReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "live_bytes_received_total",
			Help:      "Payload bytes read from the socket",
		}, []string{"kind"}),
		keepAlives: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "live_keepalives_sent_total",
			Help:      "Keepalive messages sent",
		}),
		handlerFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "live_handler_failures_total",
			Help:      "Event handlers that returned an error or panicked",
		}, []string{"kind"}),
		logger: logger.With(zap.String("component", "metrics")),
	}
}

func (c *Collector) StateChanged(connID string, from, to live.State) {
	c.transitions.WithLabelValues(from.String(), to.String()).Inc()
	switch {
	case to == live.StateOpen:
		c.open.Inc()
	case from == live.StateOpen:
		c.open.Dec()
	}
}

func (c *Collector) FrameSent(connID string, kind live.MessageKind, size int) {
	c.framesSent.WithLabelValues(kind.String()).Inc()
	c.bytesSent.WithLabelValues(kind.String()).Add(float64(size))
}

func (c *Collector) FrameReceived(connID string, kind live.EventKind, size int) {
	c.framesReceived.WithLabelValues(kind.String()).Inc()
	c.bytesReceived.WithLabelValues(kind.String()).Add(float64(size))
}

func (c *Collector) KeepAliveSent(connID string) {
	c.keepAlives.Inc()
}

func (c *Collector) HandlerFailed(connID string, kind live.EventKind, err error) {
	c.handlerFailures.WithLabelValues(kind.String()).Inc()
	c.logger.Debug("handler failure recorded", zap.String("conn_id", connID), zap.Error(err))
}
