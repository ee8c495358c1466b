package auth

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestInMemorySessionStorePrunesExpired(t *testing.T) {
	store := NewInMemorySessionStore()
	now := time.Date(2024, time.January, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	ctx := context.Background()
	if err := store.Save(ctx, Session{RefreshToken: "old", UserID: "user-1", ExpiresAt: now.Add(time.Minute)}); err != nil {
		t.Fatalf("save: %v", err)
	}

	now = now.Add(time.Hour)
	if err := store.Save(ctx, Session{RefreshToken: "new", UserID: "user-1", ExpiresAt: now.Add(time.Minute)}); err != nil {
		t.Fatalf("save: %v", err)
	}

	if store.Has("old") {
		t.Fatal("expected expired session to be pruned")
	}
	if _, err := store.Take(ctx, "old"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound got %v", err)
	}
	session, err := store.Take(ctx, "new")
	if err != nil || session.UserID != "user-1" {
		t.Fatalf("take: %+v %v", session, err)
	}
	if store.Has("new") {
		t.Fatal("expected take to remove the session")
	}
}
