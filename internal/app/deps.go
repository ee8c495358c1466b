package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/friendlink/backend/internal/auth"
	"github.com/friendlink/backend/internal/config"
	"github.com/friendlink/backend/internal/db"
	"github.com/friendlink/backend/internal/friends"
	"github.com/friendlink/backend/internal/handlers"
	"github.com/friendlink/backend/internal/metrics"
	"github.com/friendlink/backend/internal/middleware"
	"github.com/friendlink/backend/internal/notifications"
	"github.com/friendlink/backend/internal/presence"
	"github.com/friendlink/backend/internal/realtime"
	"github.com/friendlink/backend/internal/repositories"
)

// stores groups the persistence implementations selected by the store driver.
type stores struct {
	users         repositories.UserRepository
	notifications repositories.NotificationRepository
	sessions      auth.SessionStore
	close         func()
}

// openStores connects to the configured store driver.
func openStores(ctx context.Context, cfg config.Config) (stores, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverBolt:
		store, err := repositories.OpenBolt(cfg.BoltPath)
		if err != nil {
			return stores{}, err
		}
		return boltStores(store), nil
	case config.StoreDriverPostgres:
		pool, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return stores{}, err
		}
		return postgresStores(pool), nil
	default:
		return stores{}, fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
	}
}

func postgresStores(pool db.Pool) stores {
	return stores{
		users:         repositories.NewPostgresUserRepository(pool),
		notifications: repositories.NewPostgresNotificationRepository(pool),
		sessions:      repositories.NewPostgresSessionStore(pool),
		close:         pool.Close,
	}
}

func boltStores(store *repositories.BoltDB) stores {
	return stores{
		users:         repositories.NewBoltUserRepository(store),
		notifications: repositories.NewBoltNotificationRepository(store),
		sessions:      repositories.NewBoltSessionStore(store),
		close:         func() { _ = store.Close() },
	}
}

// buildDependencies wires together concrete implementations used by the HTTP
// handlers. The realtime handler is returned separately so serve can drain it
// before the stores close.
func buildDependencies(s stores, cfg config.Config, logger *slog.Logger) (handlers.Dependencies, *realtime.Handler) {
	codec := auth.NewTokenCodec(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer)
	gate := auth.NewGate(codec, auth.NewCachingDirectory(s.users, cfg.Auth.IdentityCacheTTL))

	hub := presence.NewHub(logger)
	dispatcher := notifications.NewDispatcher(s.notifications, hub)
	rt := realtime.NewHandler(gate, hub, s.users, cfg.Realtime)

	deps := handlers.Dependencies{
		Users:                s.users,
		Sessions:             auth.NewManager(codec, cfg.Auth.AccessTTL, cfg.Auth.RefreshTTL, s.sessions),
		Identity:             gate,
		Friends:              friends.NewService(s.users, dispatcher, hub),
		Notifications:        dispatcher,
		Presence:             hub,
		Realtime:             rt,
		Metrics:              metrics.Handler(),
		LoginLimiter:         middleware.NewKeyedRateLimiter(cfg.RateLimit),
		FriendRequestLimiter: middleware.NewKeyedRateLimiter(cfg.RateLimit),
	}
	return deps, rt
}
