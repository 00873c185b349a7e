// internal/realtime/metrics.go
package realtime

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricsOnce sync.Once

	connectedSessions prometheus.Gauge
	messagesAccepted  prometheus.Counter
	messagesDenied    prometheus.Counter
	signalsRelayed    prometheus.Counter
	droppedFrames     prometheus.Counter
	eventsReceived    *prometheus.CounterVec
)

// initMetrics registers realtime metrics (idempotent).
func initMetrics() {
	metricsOnce.Do(func() {
		connectedSessions = promauto.NewGauge(prometheus.GaugeOpts{
			Name: "realtime_connected_sessions",
			Help: "Currently connected WebSocket sessions",
		})
		messagesAccepted = promauto.NewCounter(prometheus.CounterOpts{
			Name: "realtime_messages_accepted_total",
			Help: "Chat messages persisted and broadcast",
		})
		messagesDenied = promauto.NewCounter(prometheus.CounterOpts{
			Name: "realtime_messages_denied_total",
			Help: "Chat messages silently dropped by access control",
		})
		signalsRelayed = promauto.NewCounter(prometheus.CounterOpts{
			Name: "realtime_signals_relayed_total",
			Help: "WebRTC signaling payloads forwarded",
		})
		droppedFrames = promauto.NewCounter(prometheus.CounterOpts{
			Name: "realtime_dropped_frames_total",
			Help: "Outbound frames dropped on full client buffers",
		})
		eventsReceived = promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "realtime_events_received_total",
			Help: "Inbound events by type",
		}, []string{"event"})
	})
}
