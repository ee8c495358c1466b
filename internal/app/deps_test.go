package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/friendlink/backend/internal/config"
)

type fakePool struct {
	closed bool
}

func (*fakePool) Acquire(context.Context) (*pgxpool.Conn, error) {
	return nil, errors.New("not implemented")
}

func (p *fakePool) Close() { p.closed = true }

func testConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		StoreDriver: config.StoreDriverBolt,
		BoltPath:    filepath.Join(t.TempDir(), "friendlink.db"),
		Auth: config.AuthConfig{
			JWTSecret:  "test-secret",
			JWTIssuer:  "friendlink",
			AccessTTL:  time.Minute,
			RefreshTTL: time.Hour,
		},
		Realtime:  config.RealtimeConfig{WriteTimeout: time.Second, PongWait: time.Minute},
		RateLimit: config.RateLimitConfig{Requests: 10, Window: time.Minute, Burst: 2, TTL: time.Minute},
	}
}

func TestBuildDependencies(t *testing.T) {
	pool := &fakePool{}
	s := postgresStores(pool)
	deps, rt := buildDependencies(s, testConfig(t), slog.New(slog.NewTextHandler(io.Discard, nil)))

	if deps.Users == nil {
		t.Fatal("expected user repository to be configured")
	}
	if deps.Sessions == nil {
		t.Fatal("expected session manager to be configured")
	}
	if deps.Identity == nil {
		t.Fatal("expected identity gate to be configured")
	}
	if deps.Friends == nil {
		t.Fatal("expected friend service to be configured")
	}
	if deps.Notifications == nil {
		t.Fatal("expected notification dispatcher to be configured")
	}
	if deps.Presence == nil || deps.Realtime == nil {
		t.Fatal("expected presence registry and realtime transport to be configured")
	}
	if deps.Metrics == nil {
		t.Fatal("expected metrics handler to be configured")
	}
	if rt == nil || deps.Realtime != http.Handler(rt) {
		t.Fatal("expected the drained realtime handler to be the routed one")
	}
	if err := rt.Shutdown(context.Background()); err != nil {
		t.Fatalf("drain idle realtime handler: %v", err)
	}
	if deps.LoginLimiter == nil || deps.FriendRequestLimiter == nil {
		t.Fatal("expected rate limiters to be configured")
	}

	s.close()
	if !pool.closed {
		t.Fatal("expected close to release the pool")
	}
}

func TestOpenStores(t *testing.T) {
	cfg := testConfig(t)

	s, err := openStores(context.Background(), cfg)
	if err != nil {
		t.Fatalf("open bolt stores: %v", err)
	}
	defer s.close()

	if s.users == nil || s.notifications == nil || s.sessions == nil {
		t.Fatal("expected every bolt store to be configured")
	}

	cfg.StoreDriver = "sqlite"
	if _, err := openStores(context.Background(), cfg); err == nil {
		t.Fatal("expected unknown driver to be rejected")
	}
}

func TestSeedBolt(t *testing.T) {
	cfg := testConfig(t)
	s, err := openStores(context.Background(), cfg)
	if err != nil {
		t.Fatalf("open bolt stores: %v", err)
	}
	defer s.close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if err := seedUsers(context.Background(), s.users, logger); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := seedUsers(context.Background(), s.users, logger); err != nil {
		t.Fatalf("seeding twice must be a no-op: %v", err)
	}

	for _, u := range devUsers {
		if _, err := s.users.FindByEmail(context.Background(), u.email); err != nil {
			t.Fatalf("expected %s to be seeded: %v", u.email, err)
		}
	}
}
