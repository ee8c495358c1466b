// Package notifications persists relationship notifications and pushes them
// live to recipients that are currently connected.
package notifications

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/friendlink/backend/internal/logging"
	"github.com/friendlink/backend/internal/metrics"
	"github.com/friendlink/backend/internal/models"
	"github.com/friendlink/backend/internal/repositories"
)

// Store captures the persistence required by the dispatcher.
type Store interface {
	Create(ctx context.Context, notification models.Notification) error
	FindByID(ctx context.Context, id string) (models.Notification, error)
	ListForUser(ctx context.Context, userID string) ([]models.Notification, error)
	MarkRead(ctx context.Context, id string) error
	MarkAllRead(ctx context.Context, userID string) (int, error)
	CountUnread(ctx context.Context, userID string) (int, error)
}

// Pusher delivers live events; presence.Registry satisfies it.
type Pusher interface {
	SendTo(userID, event string, payload any) bool
}

// Push describes the live event that accompanies a new notification.
type Push struct {
	Event   string
	Payload Payload
}

// Dispatcher writes notifications durably, then attempts a best-effort push.
type Dispatcher struct {
	store   Store
	pusher  Pusher
	NowFunc func() time.Time
	NewID   func() string
}

// NewDispatcher constructs a Dispatcher.
func NewDispatcher(store Store, pusher Pusher) *Dispatcher {
	return &Dispatcher{store: store, pusher: pusher}
}

// CreateAndPush persists a notification for recipient and only then pushes
// it. The push outcome is never reported to the caller.
func (d *Dispatcher) CreateAndPush(ctx context.Context, recipient string, typ models.NotificationType, content string, push Push) (models.Notification, error) {
	notification := models.Notification{
		ID:        d.newID(),
		Recipient: recipient,
		Type:      typ,
		Content:   content,
		IsRead:    false,
		CreatedAt: d.now(),
	}

	if err := d.store.Create(ctx, notification); err != nil {
		return models.Notification{}, fmt.Errorf("%w: create notification: %w", ErrStoreUnavailable, err)
	}
	metrics.NotificationsCreatedTotal.WithLabelValues(string(typ)).Inc()

	if push.Event != "" {
		payload := push.Payload
		payload.Notification = Summarize(notification)
		delivered := d.pusher.SendTo(recipient, push.Event, payload)
		logging.FromContext(ctx).Debug("notification push attempted",
			"notificationId", notification.ID,
			"recipient", recipient,
			"event", push.Event,
			"delivered", delivered,
		)
	}

	return notification, nil
}

// ListForUser returns every notification of the user, newest first.
func (d *Dispatcher) ListForUser(ctx context.Context, userID string) ([]models.Notification, error) {
	list, err := d.store.ListForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: list notifications: %w", ErrStoreUnavailable, err)
	}
	return list, nil
}

// MarkRead marks a notification owned by requesterID as read. Repeating the
// call is a no-op; the flag never goes back to unread.
func (d *Dispatcher) MarkRead(ctx context.Context, notificationID, requesterID string) error {
	notification, err := d.store.FindByID(ctx, notificationID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("%w: find notification: %w", ErrStoreUnavailable, err)
	}

	if notification.Recipient != requesterID {
		return ErrForbidden
	}

	if notification.IsRead {
		return nil
	}

	if err := d.store.MarkRead(ctx, notificationID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("%w: mark notification read: %w", ErrStoreUnavailable, err)
	}
	return nil
}

// MarkAllRead marks every unread notification of the user as read and
// returns how many changed.
func (d *Dispatcher) MarkAllRead(ctx context.Context, userID string) (int, error) {
	changed, err := d.store.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("%w: mark all notifications read: %w", ErrStoreUnavailable, err)
	}
	return changed, nil
}

// UnreadCount returns the number of unread notifications for the user.
func (d *Dispatcher) UnreadCount(ctx context.Context, userID string) (int, error) {
	count, err := d.store.CountUnread(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("%w: count unread notifications: %w", ErrStoreUnavailable, err)
	}
	return count, nil
}

func (d *Dispatcher) now() time.Time {
	if d.NowFunc != nil {
		return d.NowFunc()
	}
	return time.Now().UTC()
}

func (d *Dispatcher) newID() string {
	if d.NewID != nil {
		return d.NewID()
	}
	return uuid.NewString()
}
