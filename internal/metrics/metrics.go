package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Realtime gateway metrics
	ConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chatr_ws_connections_active",
			Help: "Currently open websocket connections",
		},
	)

	ConnectionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chatr_ws_connections_total",
			Help: "Total accepted websocket connections",
		},
	)

	ConnectionAuthFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatr_ws_auth_failures_total",
			Help: "Rejected websocket connection attempts",
		},
		[]string{"reason"},
	)

	EventsInbound = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatr_ws_events_inbound_total",
			Help: "Inbound realtime events by name",
		},
		[]string{"event"},
	)

	EventsMalformed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chatr_ws_events_malformed_total",
			Help: "Inbound events rejected for missing fields",
		},
	)

	// Business metrics
	MessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chatr_messages_sent_total",
			Help: "Messages persisted through the REST API",
		},
	)

	MessagesDeleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chatr_messages_deleted_total",
			Help: "Messages deleted by their author",
		},
	)
)
