// Package presence tracks which users currently hold a live connection and
// pushes events to them on a best-effort basis.
package presence

import (
	"log/slog"
	"sync"

	"github.com/friendlink/backend/internal/metrics"
)

// Conn is a live connection handle capable of delivering a named event.
// Implementations must be comparable (typically a pointer).
type Conn interface {
	Send(event string, payload any) error
}

// Registry maps user identities to their single active connection.
type Registry interface {
	Register(userID string, conn Conn) Conn
	Deregister(userID string, conn Conn) bool
	IsConnected(userID string) bool
	SendTo(userID, event string, payload any) bool
}

// Hub is the in-memory Registry. The map is guarded by a mutex and no I/O
// happens while it is held.
type Hub struct {
	mu     sync.RWMutex
	conns  map[string]Conn
	logger *slog.Logger
}

// NewHub constructs an empty registry.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		conns:  make(map[string]Conn),
		logger: logger,
	}
}

// Register installs conn as the active handle for userID and returns the
// handle it replaced, if any. The last writer wins.
func (h *Hub) Register(userID string, conn Conn) Conn {
	if userID == "" || conn == nil {
		return nil
	}

	h.mu.Lock()
	previous := h.conns[userID]
	h.conns[userID] = conn
	metrics.ConnectedUsers.Set(float64(len(h.conns)))
	h.mu.Unlock()

	if previous == conn {
		return nil
	}
	return previous
}

// Deregister removes the entry for userID only while it still points at conn.
// A disconnect arriving after a newer connect leaves the newer handle alone.
func (h *Hub) Deregister(userID string, conn Conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	current, ok := h.conns[userID]
	if !ok || current != conn {
		return false
	}
	delete(h.conns, userID)
	metrics.ConnectedUsers.Set(float64(len(h.conns)))
	return true
}

// IsConnected reports whether userID currently has a live connection.
func (h *Hub) IsConnected(userID string) bool {
	h.mu.RLock()
	_, ok := h.conns[userID]
	h.mu.RUnlock()
	return ok
}

// Count returns the number of users with a live connection.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// SendTo delivers the event through the user's active handle. It reports
// false when the user is offline or the handle rejected the write; delivery
// is never queued or retried.
func (h *Hub) SendTo(userID, event string, payload any) bool {
	h.mu.RLock()
	conn, ok := h.conns[userID]
	h.mu.RUnlock()

	if !ok {
		metrics.LivePushTotal.WithLabelValues(event, metrics.OutcomeOffline).Inc()
		return false
	}

	if err := conn.Send(event, payload); err != nil {
		h.logger.Warn("live push failed", "userId", userID, "event", event, "error", err)
		metrics.LivePushTotal.WithLabelValues(event, metrics.OutcomeFailed).Inc()
		return false
	}

	metrics.LivePushTotal.WithLabelValues(event, metrics.OutcomeDelivered).Inc()
	return true
}

var _ Registry = (*Hub)(nil)
