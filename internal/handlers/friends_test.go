package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/friendlink/backend/internal/friends"
	"github.com/friendlink/backend/internal/logging"
	"github.com/friendlink/backend/internal/models"
	"github.com/friendlink/backend/internal/notifications"
)

type stubFriendService struct {
	err   error
	calls []string
}

func (s *stubFriendService) record(op, a, b string) error {
	s.calls = append(s.calls, fmt.Sprintf("%s:%s:%s", op, a, b))
	return s.err
}

func (s *stubFriendService) SendRequest(_ context.Context, a, b string) error {
	return s.record("send", a, b)
}

func (s *stubFriendService) AcceptRequest(_ context.Context, a, b string) error {
	return s.record("accept", a, b)
}

func (s *stubFriendService) DeclineRequest(_ context.Context, a, b string) error {
	return s.record("decline", a, b)
}

func (s *stubFriendService) CancelRequest(_ context.Context, a, b string) error {
	return s.record("cancel", a, b)
}

func (s *stubFriendService) RemoveFriend(_ context.Context, a, b string) error {
	return s.record("remove", a, b)
}

func (s *stubFriendService) ListCandidates(context.Context, string) ([]models.UserSummary, error) {
	return nil, s.err
}

func (s *stubFriendService) ListFriends(context.Context, string) ([]models.UserSummary, error) {
	return nil, s.err
}

func (s *stubFriendService) ListIncomingRequests(context.Context, string) ([]models.UserSummary, error) {
	return nil, s.err
}

func (s *stubFriendService) Relationship(context.Context, string, string) (friends.PairState, error) {
	return friends.StateUnrelated, s.err
}

func authenticatedRequest(method, target, userID, pathID string) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	if pathID != "" {
		req.SetPathValue("id", pathID)
	}
	return req.WithContext(logging.WithUserID(req.Context(), userID))
}

func TestFriendHandlerErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{name: "self", err: friends.ErrSelfTarget, status: http.StatusBadRequest},
		{name: "already requested", err: friends.ErrAlreadyRequested, status: http.StatusBadRequest},
		{name: "already friends", err: friends.ErrAlreadyFriends, status: http.StatusBadRequest},
		{name: "no pending", err: friends.ErrNoPendingRequest, status: http.StatusBadRequest},
		{name: "unknown user", err: friends.ErrUserNotFound, status: http.StatusNotFound},
		{name: "unknown request", err: friends.ErrRequestNotFound, status: http.StatusNotFound},
		{name: "store", err: fmt.Errorf("%w: save user: %w", friends.ErrStoreUnavailable, errors.New("timeout")), status: http.StatusServiceUnavailable},
		{name: "notification store", err: fmt.Errorf("notify: %w", notifications.ErrStoreUnavailable), status: http.StatusServiceUnavailable},
		{name: "unexpected", err: errors.New("boom"), status: http.StatusInternalServerError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			handler := FriendHandler{Friends: &stubFriendService{err: tc.err}}
			rec := httptest.NewRecorder()

			handler.SendRequest(rec, authenticatedRequest(http.MethodPost, "/api/v1/friend/request/bob", "alice", "bob"))

			if rec.Code != tc.status {
				t.Fatalf("expected status %d got %d", tc.status, rec.Code)
			}
		})
	}
}

func TestFriendHandlerArgumentOrder(t *testing.T) {
	service := &stubFriendService{}
	handler := FriendHandler{Friends: service}

	calls := []struct {
		fn     http.HandlerFunc
		method string
	}{
		{fn: handler.SendRequest, method: http.MethodPost},
		{fn: handler.AcceptRequest, method: http.MethodPost},
		{fn: handler.DeclineRequest, method: http.MethodDelete},
		{fn: handler.CancelRequest, method: http.MethodDelete},
		{fn: handler.RemoveFriend, method: http.MethodDelete},
	}
	for _, c := range calls {
		rec := httptest.NewRecorder()
		c.fn(rec, authenticatedRequest(c.method, "/", "alice", "bob"))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200 got %d", rec.Code)
		}
	}

	want := []string{"send:alice:bob", "accept:alice:bob", "decline:alice:bob", "cancel:alice:bob", "remove:alice:bob"}
	if fmt.Sprint(service.calls) != fmt.Sprint(want) {
		t.Fatalf("expected calls %v got %v", want, service.calls)
	}
}

func TestFriendHandlerRateLimitsRequests(t *testing.T) {
	service := &stubFriendService{}
	handler := FriendHandler{Friends: service, Limiter: denyAll{}}
	rec := httptest.NewRecorder()

	handler.SendRequest(rec, authenticatedRequest(http.MethodPost, "/", "alice", "bob"))

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected status %d got %d", http.StatusTooManyRequests, rec.Code)
	}
	if len(service.calls) != 0 {
		t.Fatal("rate-limited requests must not reach the service")
	}
}

func TestFriendHandlerRequiresIdentityAndTarget(t *testing.T) {
	handler := FriendHandler{Friends: &stubFriendService{}}

	rec := httptest.NewRecorder()
	handler.ListFriends(rec, httptest.NewRequest(http.MethodGet, "/api/v1/friend/getallfriends", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401 got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.SendRequest(rec, authenticatedRequest(http.MethodPost, "/", "alice", ""))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ListFriends(rec, authenticatedRequest(http.MethodGet, "/", "alice", ""))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 got %d", rec.Code)
	}
	if body := rec.Body.String(); body != "{\"friends\":[]}\n" {
		t.Fatalf("expected empty friends array, got %s", body)
	}
}
