package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	OutcomeDelivered = "delivered"
	OutcomeOffline   = "offline"
	OutcomeFailed    = "failed"
)

var (
	// Presence metrics
	ConnectedUsers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "friendlink_presence_connected",
			Help: "Number of users with an active live connection",
		},
	)

	LivePushTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "friendlink_live_push_total",
			Help: "Live push attempts by event and outcome",
		},
		[]string{"event", "outcome"},
	)

	// Relationship metrics
	RelationshipTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "friendlink_relationship_transitions_total",
			Help: "Relationship operations by operation and result",
		},
		[]string{"operation", "result"},
	)

	NotificationsCreatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "friendlink_notifications_created_total",
			Help: "Persisted notifications by type",
		},
		[]string{"type"},
	)
)

func init() {
	prometheus.MustRegister(
		ConnectedUsers,
		LivePushTotal,
		RelationshipTransitionsTotal,
		NotificationsCreatedTotal,
	)
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
