package repositories

import (
	"context"
	"time"

	"github.com/friendlink/backend/internal/models"
)

// UserRepository is the relationship store adapter: it persists user records,
// including the friends and pending-request lists, through whole-record
// load/save cycles.
type UserRepository interface {
	Create(ctx context.Context, user models.User) error
	FindByEmail(ctx context.Context, email string) (models.User, error)
	Load(ctx context.Context, id string) (models.User, error)
	Exists(ctx context.Context, id string) (bool, error)
	// Save overwrites the stored record. Presence fields are left untouched so
	// a concurrent connect/disconnect is not clobbered by a relationship write.
	Save(ctx context.Context, user models.User) error
	FindExcluding(ctx context.Context, excludeIDs []string) ([]models.UserSummary, error)
	// FindByIDs resolves ids in the order given, skipping ids that no longer exist.
	FindByIDs(ctx context.Context, ids []string) ([]models.UserSummary, error)
	SetPresence(ctx context.Context, id string, online bool, lastSeen *time.Time) error
}
