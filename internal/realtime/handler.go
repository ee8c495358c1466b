package realtime

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/friendlink/backend/internal/auth"
	"github.com/friendlink/backend/internal/config"
	"github.com/friendlink/backend/internal/keylock"
	"github.com/friendlink/backend/internal/logging"
	"github.com/friendlink/backend/internal/presence"
)

const (
	maxInboundMessage = 4096
	presenceTimeout   = 3 * time.Second
)

// Identifier resolves a credential to a user id.
type Identifier interface {
	ResolveIdentity(ctx context.Context, credential string) (string, error)
}

// PresenceStore persists the online flag and last-seen time of a user.
type PresenceStore interface {
	SetPresence(ctx context.Context, id string, online bool, lastSeen *time.Time) error
}

// Handler upgrades authenticated requests to websockets and registers them
// with the presence registry for the lifetime of the socket.
type Handler struct {
	identity     Identifier
	registry     presence.Registry
	store        PresenceStore
	upgrader     websocket.Upgrader
	writeTimeout time.Duration
	pongWait     time.Duration
	NowFunc      func() time.Time

	// presenceLocks orders the presence writes of one user.
	presenceLocks *keylock.Set

	mu       sync.Mutex
	active   map[*Conn]struct{}
	draining bool
	wg       sync.WaitGroup
}

// NewHandler constructs a Handler.
func NewHandler(identity Identifier, registry presence.Registry, store PresenceStore, cfg config.RealtimeConfig) *Handler {
	return &Handler{
		identity: identity,
		registry: registry,
		store:    store,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		writeTimeout:  cfg.WriteTimeout,
		pongWait:      cfg.PongWait,
		presenceLocks: keylock.New(),
		active:        make(map[*Conn]struct{}),
	}
}

// ServeHTTP authenticates before the upgrade so unauthenticated sockets never
// reach the registry.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	userID, err := h.identity.ResolveIdentity(ctx, auth.CredentialFromRequest(r))
	if err != nil {
		status := http.StatusUnauthorized
		if !errors.Is(err, auth.ErrUnauthorized) && !errors.Is(err, auth.ErrInvalidToken) && !errors.Is(err, auth.ErrUserNotFound) {
			status = http.StatusInternalServerError
		}
		logger.Warn("websocket authentication failed", "error", err)
		http.Error(w, http.StatusText(status), status)
		return
	}

	if !h.begin() {
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}
	defer h.wg.Done()

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed", "userId", userID, "error", err)
		return
	}

	ctx = logging.WithUserID(context.WithoutCancel(ctx), userID)
	logger = logging.FromContext(ctx)

	conn := newConn(ws, h.writeTimeout)
	if !h.track(conn) {
		_ = conn.Close()
		return
	}
	defer h.untrack(conn)

	if replaced := h.registry.Register(userID, conn); replaced != nil {
		if previous, ok := replaced.(*Conn); ok {
			_ = previous.Close()
		}
		logger.Info("websocket replaced previous connection")
	}
	logger.Info("websocket connected")
	h.markOnline(ctx, userID)

	done := make(chan struct{})
	go h.keepAlive(conn, done)

	h.readLoop(ctx, conn)

	close(done)
	_ = conn.Close()

	if h.registry.Deregister(userID, conn) {
		h.markOffline(ctx, userID)
		logger.Info("websocket disconnected")
		return
	}
	logger.Debug("websocket closed after being replaced")
}

// Shutdown refuses new sockets, closes the open ones and waits until their
// handlers have written the final presence state.
func (h *Handler) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	h.draining = true
	conns := make([]*Conn, 0, len(h.active))
	for conn := range h.active {
		conns = append(conns, conn)
	}
	h.mu.Unlock()

	for _, conn := range conns {
		_ = conn.Close()
	}

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Handler) begin() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.draining {
		return false
	}
	h.wg.Add(1)
	return true
}

func (h *Handler) track(conn *Conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.draining {
		return false
	}
	h.active[conn] = struct{}{}
	return true
}

func (h *Handler) untrack(conn *Conn) {
	h.mu.Lock()
	delete(h.active, conn)
	h.mu.Unlock()
}

func (h *Handler) readLoop(ctx context.Context, conn *Conn) {
	ws := conn.ws
	ws.SetReadLimit(maxInboundMessage)
	_ = ws.SetReadDeadline(time.Now().Add(h.pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(h.pongWait))
	})

	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				logging.FromContext(ctx).Warn("websocket closed unexpectedly", "error", err)
			}
			return
		}
	}
}

func (h *Handler) keepAlive(conn *Conn, done <-chan struct{}) {
	ticker := time.NewTicker(h.pongWait * 9 / 10)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.ping(); err != nil {
				return
			}
		}
	}
}

func (h *Handler) markOnline(ctx context.Context, userID string) {
	defer h.presenceLocks.Lock(userID)()
	h.setPresence(ctx, userID, true, nil)
}

// markOffline skips the write when a newer socket registered after this one
// left, so a late disconnect cannot overwrite the newer online state.
func (h *Handler) markOffline(ctx context.Context, userID string) {
	defer h.presenceLocks.Lock(userID)()
	if h.registry.IsConnected(userID) {
		logging.FromContext(ctx).Debug("skip offline write, user reconnected")
		return
	}
	lastSeen := h.now()
	h.setPresence(ctx, userID, false, &lastSeen)
}

func (h *Handler) setPresence(ctx context.Context, userID string, online bool, lastSeen *time.Time) {
	ctx, cancel := context.WithTimeout(ctx, presenceTimeout)
	defer cancel()

	if err := h.store.SetPresence(ctx, userID, online, lastSeen); err != nil {
		logging.FromContext(ctx).Error("persist presence", "online", online, "error", err)
	}
}

func (h *Handler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}
