package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/friendlink/backend/internal/auth"
	"github.com/friendlink/backend/internal/config"
	"github.com/friendlink/backend/internal/logging"
)

type identityFunc func(ctx context.Context, credential string) (string, error)

func (f identityFunc) ResolveIdentity(ctx context.Context, credential string) (string, error) {
	return f(ctx, credential)
}

func TestRequireUser(t *testing.T) {
	identity := identityFunc(func(_ context.Context, credential string) (string, error) {
		switch credential {
		case "":
			return "", auth.ErrUnauthorized
		case "good":
			return "user-1", nil
		case "orphan":
			return "", auth.ErrUserNotFound
		case "broken":
			return "", errors.New("store offline")
		default:
			return "", auth.ErrInvalidToken
		}
	})

	var seen string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = logging.UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	handler := RequireUser(identity)(next)

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantError  string
	}{
		{name: "missing credential", wantStatus: http.StatusUnauthorized, wantError: "Unauthorized"},
		{name: "forged token", header: "Bearer forged", wantStatus: http.StatusUnauthorized, wantError: "Invalid token"},
		{name: "deleted user", header: "Bearer orphan", wantStatus: http.StatusNotFound, wantError: "User not found"},
		{name: "directory failure", header: "Bearer broken", wantStatus: http.StatusInternalServerError, wantError: "Authentication unavailable"},
		{name: "valid", header: "Bearer good", wantStatus: http.StatusNoContent},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			seen = ""
			req := httptest.NewRequest(http.MethodGet, "/api/v1/friend/getallfriends", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			if rec.Code != tc.wantStatus {
				t.Fatalf("expected status %d, got %d", tc.wantStatus, rec.Code)
			}
			if tc.wantError == "" {
				if seen != "user-1" {
					t.Fatalf("expected user id on context, got %q", seen)
				}
				return
			}
			if seen != "" {
				t.Fatal("next handler must not run on rejected requests")
			}
			var body map[string]string
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if body["error"] != tc.wantError {
				t.Fatalf("expected error %q, got %q", tc.wantError, body["error"])
			}
		})
	}
}

func TestRequestLoggerPropagatesRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	var ctxRequestID string
	handler := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctxRequestID = logging.RequestIDFromContext(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if ctxRequestID != "req-123" {
		t.Fatalf("expected request id on context, got %q", ctxRequestID)
	}
	if got := rec.Header().Get(RequestIDHeader); got != "req-123" {
		t.Fatalf("expected request id header, got %q", got)
	}

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("decode log entry: %v", err)
	}
	if entry["status"] != float64(http.StatusTeapot) {
		t.Fatalf("expected logged status 418, got %v", entry["status"])
	}
}

func TestRequestLoggerRecoversPanics(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(&bytes.Buffer{}, nil))
	handler := RequestLogger(logger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if rec.Header().Get(RequestIDHeader) == "" {
		t.Fatal("expected a generated request id")
	}
}

func TestKeyedRateLimiter(t *testing.T) {
	limiter := NewKeyedRateLimiter(config.RateLimitConfig{Requests: 1, Window: time.Minute, Burst: 2, TTL: time.Minute})
	now := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	limiter.WithNowFunc(func() time.Time { return now })

	if !limiter.Allow("user-1") || !limiter.Allow("user-1") {
		t.Fatal("expected burst to be allowed")
	}
	if limiter.Allow("user-1") {
		t.Fatal("expected third request to be limited")
	}
	if !limiter.Allow("user-2") {
		t.Fatal("expected separate keys to have separate buckets")
	}

	now = now.Add(time.Minute)
	if !limiter.Allow("user-1") {
		t.Fatal("expected token to be replenished after the window")
	}

	now = now.Add(2 * time.Minute)
	limiter.Allow("user-3")
	if got := limiter.Len(); got != 1 {
		t.Fatalf("expected idle keys to expire, %d tracked", got)
	}
}
