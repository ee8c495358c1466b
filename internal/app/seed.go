package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/friendlink/backend/internal/config"
	"github.com/friendlink/backend/internal/db"
	"github.com/friendlink/backend/internal/logging"
	"github.com/friendlink/backend/internal/models"
	"github.com/friendlink/backend/internal/repositories"
)

// devPassword is the login password of every user created by seedUsers.
const devPassword = "friendlink-dev"

var devUsers = []struct {
	name  string
	email string
}{
	{name: "Alice", email: "alice@friendlink.dev"},
	{name: "Bob", email: "bob@friendlink.dev"},
	{name: "Carol", email: "carol@friendlink.dev"},
}

func runSeed(ctx context.Context, cfg config.Config, args []string) error {
	if len(args) == 0 {
		return errors.New("expected seed name (e.g. dev)")
	}

	if cfg.StoreDriver == config.StoreDriverBolt {
		s, err := openStores(ctx, cfg)
		if err != nil {
			return err
		}
		defer s.close()
		return seedUsers(ctx, s.users, logging.FromContext(ctx))
	}

	seedDir, err := resolveDir(cfg.SeedDir)
	if err != nil {
		return err
	}

	seedName := args[0]
	if !strings.HasSuffix(seedName, ".sql") {
		seedName = fmt.Sprintf("%s_seed.sql", seedName)
	}

	contents, err := os.ReadFile(filepath.Join(seedDir, seedName))
	if err != nil {
		return fmt.Errorf("read seed %s: %w", seedName, err)
	}

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, string(contents)); err != nil {
		return fmt.Errorf("apply seed %s: %w", seedName, err)
	}

	logging.FromContext(ctx).Info("applied seed", "seed", seedName)
	return nil
}

// seedUsers creates the sample accounts through the repository, skipping any
// that already exist.
func seedUsers(ctx context.Context, users repositories.UserRepository, logger *slog.Logger) error {
	hashed, err := bcrypt.GenerateFromPassword([]byte(devPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash seed password: %w", err)
	}

	now := time.Now().UTC()
	for _, u := range devUsers {
		err := users.Create(ctx, models.User{
			ID:             uuid.NewString(),
			Name:           u.name,
			Email:          u.email,
			Password:       string(hashed),
			Friends:        []string{},
			FriendRequests: []string{},
			CreatedAt:      now,
			UpdatedAt:      now,
		})
		switch {
		case errors.Is(err, repositories.ErrConflict):
			logger.Info("seed user already exists", "email", u.email)
		case err != nil:
			return fmt.Errorf("seed user %s: %w", u.email, err)
		default:
			logger.Info("seeded user", "email", u.email)
		}
	}
	return nil
}
