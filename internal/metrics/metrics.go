// Package metrics provides Prometheus instrumentation for the
// presence core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Session metrics.
var (
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "nautilus_active_sessions",
		Help: "Number of live client sessions.",
	})

	OnlineUsers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "nautilus_online_users",
		Help: "Number of distinct users with at least one live session.",
	})
)

// Presence metrics.
var (
	PresenceNotifications = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nautilus_presence_notifications_total",
		Help: "Total presence notifications fanned out to sessions.",
	})

	ChatInvites = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nautilus_chat_invites_total",
		Help: "Total switchboard invitations delivered.",
	})
)

// Persistence metrics.
var (
	DirtyUsers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "nautilus_dirty_users",
		Help: "Users whose roster detail awaits a database flush.",
	})

	PumpFlushes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nautilus_pump_flushes_total",
		Help: "Total persistence pump flushes that saved at least one user.",
	})

	PumpErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nautilus_pump_errors_total",
		Help: "Total persistence pump flushes that failed after retries.",
	})
)
