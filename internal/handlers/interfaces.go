package handlers

import (
	"context"

	"github.com/friendlink/backend/internal/friends"
	"github.com/friendlink/backend/internal/models"
)

// UserStore captures the persistence operations required by the auth handlers.
type UserStore interface {
	Create(ctx context.Context, user models.User) error
	FindByEmail(ctx context.Context, email string) (models.User, error)
}

// SessionManager issues, refreshes and revokes authentication tokens for users.
type SessionManager interface {
	Issue(ctx context.Context, userID string) (models.SessionTokens, error)
	Refresh(ctx context.Context, refreshToken string) (models.SessionTokens, error)
	Revoke(ctx context.Context, refreshToken string)
}

// FriendService captures the relationship transitions and listings exposed over HTTP.
type FriendService interface {
	SendRequest(ctx context.Context, senderID, receiverID string) error
	AcceptRequest(ctx context.Context, receiverID, senderID string) error
	DeclineRequest(ctx context.Context, receiverID, senderID string) error
	CancelRequest(ctx context.Context, senderID, receiverID string) error
	RemoveFriend(ctx context.Context, userID, friendID string) error
	ListCandidates(ctx context.Context, userID string) ([]models.UserSummary, error)
	ListFriends(ctx context.Context, userID string) ([]models.UserSummary, error)
	ListIncomingRequests(ctx context.Context, userID string) ([]models.UserSummary, error)
	Relationship(ctx context.Context, userID, otherID string) (friends.PairState, error)
}

// NotificationService captures notification retrieval and read tracking.
type NotificationService interface {
	ListForUser(ctx context.Context, userID string) ([]models.Notification, error)
	MarkRead(ctx context.Context, notificationID, requesterID string) error
	MarkAllRead(ctx context.Context, userID string) (int, error)
	UnreadCount(ctx context.Context, userID string) (int, error)
}

// PresenceCounter reports how many users hold a live connection.
type PresenceCounter interface {
	Count() int
}
