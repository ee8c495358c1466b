package repositories

import (
	"context"

	"github.com/friendlink/backend/internal/models"
)

// NotificationRepository persists notification records.
type NotificationRepository interface {
	Create(ctx context.Context, notification models.Notification) error
	FindByID(ctx context.Context, id string) (models.Notification, error)
	// ListForUser returns the recipient's notifications newest first.
	ListForUser(ctx context.Context, userID string) ([]models.Notification, error)
	MarkRead(ctx context.Context, id string) error
	MarkAllRead(ctx context.Context, userID string) (int, error)
	CountUnread(ctx context.Context, userID string) (int, error)
}
