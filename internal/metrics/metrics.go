package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "support_chat_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "support_chat_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Чат
	RoomsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "support_chat_rooms_created_total",
			Help: "Total chat rooms created",
		},
	)

	RoomsClosed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "support_chat_rooms_closed_total",
			Help: "Total chat rooms closed",
		},
	)

	AdminAssignments = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "support_chat_admin_assignments_total",
			Help: "Total admin assignments",
		},
		[]string{"kind"}, // "initial" или "reassign"
	)

	MessagesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "support_chat_messages_sent_total",
			Help: "Total chat messages stored",
		},
		[]string{"type"},
	)

	NotificationsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "support_chat_notifications_created_total",
			Help: "Total notifications persisted",
		},
		[]string{"type"},
	)

	NotificationsPurged = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "support_chat_notifications_purged_total",
			Help: "Total notifications removed by retention cleanup",
		},
	)

	// Доставка
	DeliveriesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "support_chat_delivery_published_total",
			Help: "Total push events handed to the delivery channel",
		},
		[]string{"scope"}, // "room", "user", "broadcast"
	)

	DeliveriesDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "support_chat_delivery_dropped_total",
			Help: "Total push events dropped because a queue was full",
		},
		[]string{"stage"}, // "dispatcher", "subscriber"
	)

	DeliveryFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "support_chat_delivery_failures_total",
			Help: "Total push events the transport failed to send",
		},
	)

	WebSocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "support_chat_websocket_connections",
			Help: "Open websocket connections",
		},
	)

	RateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "support_chat_rate_limit_hits_total",
			Help: "Total rate limit hits",
		},
		[]string{"endpoint"},
	)
)
