package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/friendlink/backend/internal/friends"
	"github.com/friendlink/backend/internal/logging"
	"github.com/friendlink/backend/internal/models"
)

// FriendHandler exposes the relationship state machine.
type FriendHandler struct {
	Friends FriendService
	Limiter RateLimiter
}

type friendListResponse struct {
	Friends []models.UserSummary `json:"friends"`
}

type candidateListResponse struct {
	Users []models.UserSummary `json:"users"`
}

type requestListResponse struct {
	Requests []models.UserSummary `json:"requests"`
}

type relationshipResponse struct {
	UserID string            `json:"userId"`
	State  friends.PairState `json:"state"`
}

// SendRequest handles POST /api/v1/friend/request/{id}.
func (h FriendHandler) SendRequest(w http.ResponseWriter, r *http.Request) {
	userID, targetID, ok := h.pair(w, r, http.MethodPost)
	if !ok {
		return
	}

	if !allowUser(h.Limiter, userID, "friend-request") {
		respondError(r.Context(), w, http.StatusTooManyRequests, "too many friend requests")
		return
	}

	if err := h.Friends.SendRequest(r.Context(), userID, targetID); err != nil {
		respondFriendError(r.Context(), w, err)
		return
	}
	respondMessage(r.Context(), w, http.StatusOK, "Friend request sent")
}

// AcceptRequest handles POST /api/v1/friend/accept/{id}.
func (h FriendHandler) AcceptRequest(w http.ResponseWriter, r *http.Request) {
	userID, senderID, ok := h.pair(w, r, http.MethodPost)
	if !ok {
		return
	}

	if err := h.Friends.AcceptRequest(r.Context(), userID, senderID); err != nil {
		respondFriendError(r.Context(), w, err)
		return
	}
	respondMessage(r.Context(), w, http.StatusOK, "Friend request accepted")
}

// DeclineRequest handles DELETE /api/v1/friend/declinefriend/{id}.
func (h FriendHandler) DeclineRequest(w http.ResponseWriter, r *http.Request) {
	userID, senderID, ok := h.pair(w, r, http.MethodDelete)
	if !ok {
		return
	}

	if err := h.Friends.DeclineRequest(r.Context(), userID, senderID); err != nil {
		respondFriendError(r.Context(), w, err)
		return
	}
	respondMessage(r.Context(), w, http.StatusOK, "Friend request declined")
}

// CancelRequest handles DELETE /api/v1/friend/cancel/{id}.
func (h FriendHandler) CancelRequest(w http.ResponseWriter, r *http.Request) {
	userID, receiverID, ok := h.pair(w, r, http.MethodDelete)
	if !ok {
		return
	}

	if err := h.Friends.CancelRequest(r.Context(), userID, receiverID); err != nil {
		respondFriendError(r.Context(), w, err)
		return
	}
	respondMessage(r.Context(), w, http.StatusOK, "Friend request cancelled")
}

// RemoveFriend handles DELETE /api/v1/friend/remove/{id}.
func (h FriendHandler) RemoveFriend(w http.ResponseWriter, r *http.Request) {
	userID, friendID, ok := h.pair(w, r, http.MethodDelete)
	if !ok {
		return
	}

	if err := h.Friends.RemoveFriend(r.Context(), userID, friendID); err != nil {
		respondFriendError(r.Context(), w, err)
		return
	}
	respondMessage(r.Context(), w, http.StatusOK, "Friend removed")
}

// Status handles GET /api/v1/friend/status/{id}.
func (h FriendHandler) Status(w http.ResponseWriter, r *http.Request) {
	userID, otherID, ok := h.pair(w, r, http.MethodGet)
	if !ok {
		return
	}

	state, err := h.Friends.Relationship(r.Context(), userID, otherID)
	if err != nil {
		respondFriendError(r.Context(), w, err)
		return
	}
	respondJSON(r.Context(), w, http.StatusOK, relationshipResponse{UserID: otherID, State: state})
}

// ListFriends handles GET /api/v1/friend/getallfriends.
func (h FriendHandler) ListFriends(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.caller(w, r, http.MethodGet)
	if !ok {
		return
	}

	list, err := h.Friends.ListFriends(r.Context(), userID)
	if err != nil {
		respondFriendError(r.Context(), w, err)
		return
	}
	respondJSON(r.Context(), w, http.StatusOK, friendListResponse{Friends: summaries(list)})
}

// ListCandidates handles GET /api/v1/friend/addfriendLists.
func (h FriendHandler) ListCandidates(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.caller(w, r, http.MethodGet)
	if !ok {
		return
	}

	list, err := h.Friends.ListCandidates(r.Context(), userID)
	if err != nil {
		respondFriendError(r.Context(), w, err)
		return
	}
	respondJSON(r.Context(), w, http.StatusOK, candidateListResponse{Users: summaries(list)})
}

// ListRequests handles GET /api/v1/friend/getfriendrequests.
func (h FriendHandler) ListRequests(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.caller(w, r, http.MethodGet)
	if !ok {
		return
	}

	list, err := h.Friends.ListIncomingRequests(r.Context(), userID)
	if err != nil {
		respondFriendError(r.Context(), w, err)
		return
	}
	respondJSON(r.Context(), w, http.StatusOK, requestListResponse{Requests: summaries(list)})
}

// caller validates the method and returns the authenticated user id.
func (h FriendHandler) caller(w http.ResponseWriter, r *http.Request, method string) (string, bool) {
	if r.Method != method {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return "", false
	}

	ctx := r.Context()
	if h.Friends == nil {
		logging.FromContext(ctx).Error("friend service unavailable")
		respondError(ctx, w, http.StatusInternalServerError, "friend service unavailable")
		return "", false
	}

	userID := logging.UserIDFromContext(ctx)
	if userID == "" {
		respondError(ctx, w, http.StatusUnauthorized, "Unauthorized")
		return "", false
	}
	return userID, true
}

// pair returns the caller and the user named by the {id} path segment.
func (h FriendHandler) pair(w http.ResponseWriter, r *http.Request, method string) (string, string, bool) {
	userID, ok := h.caller(w, r, method)
	if !ok {
		return "", "", false
	}

	targetID := strings.TrimSpace(r.PathValue("id"))
	if targetID == "" {
		respondError(r.Context(), w, http.StatusBadRequest, "user id is required")
		return "", "", false
	}
	return userID, targetID, true
}

func respondFriendError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, friends.ErrSelfTarget),
		errors.Is(err, friends.ErrAlreadyRequested),
		errors.Is(err, friends.ErrAlreadyFriends),
		errors.Is(err, friends.ErrNoPendingRequest):
		respondError(ctx, w, http.StatusBadRequest, err.Error())
	case errors.Is(err, friends.ErrUserNotFound), errors.Is(err, friends.ErrRequestNotFound):
		respondError(ctx, w, http.StatusNotFound, err.Error())
	case errors.Is(err, friends.ErrStoreUnavailable):
		logging.FromContext(ctx).Error("relationship store failure", "error", err)
		respondError(ctx, w, http.StatusServiceUnavailable, "relationship store unavailable")
	default:
		respondNotificationError(ctx, w, err)
	}
}

func summaries(list []models.UserSummary) []models.UserSummary {
	if list == nil {
		return []models.UserSummary{}
	}
	return list
}
