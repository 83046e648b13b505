// Package metrics exposes the process-wide prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	MessagesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "murmur_messages_sent_total",
		Help: "Messages appended to conversation logs.",
	})

	ReadResets = promauto.NewCounter(prometheus.CounterOpts{
		Name: "murmur_read_resets_total",
		Help: "Read-receipt ledger resets that cleared at least one unread message.",
	})

	NotificationsPushed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "murmur_notifications_pushed_total",
		Help: "Real-time events pushed to connected clients.",
	})

	ActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "murmur_ws_active_connections",
		Help: "Currently connected WebSocket clients.",
	})
)

// Handler serves the default registry on /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
