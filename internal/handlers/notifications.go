package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/friendlink/backend/internal/logging"
	"github.com/friendlink/backend/internal/models"
	"github.com/friendlink/backend/internal/notifications"
)

// NotificationHandler exposes a user's notifications and read tracking.
type NotificationHandler struct {
	Notifications NotificationService
}

type notificationListResponse struct {
	Notifications []models.Notification `json:"notifications"`
}

type markAllResponse struct {
	Message string `json:"message"`
	Updated int    `json:"updated"`
}

type unreadCountResponse struct {
	Count int `json:"count"`
}

// List handles GET /api/v1/notifications/getall.
func (h NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.caller(w, r, http.MethodGet)
	if !ok {
		return
	}

	list, err := h.Notifications.ListForUser(r.Context(), userID)
	if err != nil {
		respondNotificationError(r.Context(), w, err)
		return
	}
	if list == nil {
		list = []models.Notification{}
	}
	respondJSON(r.Context(), w, http.StatusOK, notificationListResponse{Notifications: list})
}

// MarkRead handles PATCH /api/v1/notifications/markasread/{id}.
func (h NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.caller(w, r, http.MethodPatch)
	if !ok {
		return
	}

	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		respondError(r.Context(), w, http.StatusBadRequest, "notification id is required")
		return
	}

	if err := h.Notifications.MarkRead(r.Context(), id, userID); err != nil {
		respondNotificationError(r.Context(), w, err)
		return
	}
	respondMessage(r.Context(), w, http.StatusOK, "Notification marked as read")
}

// MarkAllRead handles PATCH /api/v1/notifications/markallasread.
func (h NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.caller(w, r, http.MethodPatch)
	if !ok {
		return
	}

	updated, err := h.Notifications.MarkAllRead(r.Context(), userID)
	if err != nil {
		respondNotificationError(r.Context(), w, err)
		return
	}
	respondJSON(r.Context(), w, http.StatusOK, markAllResponse{Message: "All notifications marked as read", Updated: updated})
}

// UnreadCount handles GET /api/v1/notifications/unreadcount.
func (h NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.caller(w, r, http.MethodGet)
	if !ok {
		return
	}

	count, err := h.Notifications.UnreadCount(r.Context(), userID)
	if err != nil {
		respondNotificationError(r.Context(), w, err)
		return
	}
	respondJSON(r.Context(), w, http.StatusOK, unreadCountResponse{Count: count})
}

func (h NotificationHandler) caller(w http.ResponseWriter, r *http.Request, method string) (string, bool) {
	if r.Method != method {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return "", false
	}

	ctx := r.Context()
	if h.Notifications == nil {
		logging.FromContext(ctx).Error("notification service unavailable")
		respondError(ctx, w, http.StatusInternalServerError, "notification service unavailable")
		return "", false
	}

	userID := logging.UserIDFromContext(ctx)
	if userID == "" {
		respondError(ctx, w, http.StatusUnauthorized, "Unauthorized")
		return "", false
	}
	return userID, true
}

func respondNotificationError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, notifications.ErrNotFound):
		respondError(ctx, w, http.StatusNotFound, "Notification not found")
	case errors.Is(err, notifications.ErrForbidden):
		respondError(ctx, w, http.StatusForbidden, "Not authorized")
	case errors.Is(err, notifications.ErrStoreUnavailable):
		logging.FromContext(ctx).Error("notification store failure", "error", err)
		respondError(ctx, w, http.StatusServiceUnavailable, "notification store unavailable")
	default:
		logging.FromContext(ctx).Error("unexpected failure", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "internal server error")
	}
}
