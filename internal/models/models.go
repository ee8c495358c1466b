package models

import "time"

// User represents an account together with its relationship lists.
type User struct {
	ID             string
	Name           string
	Email          string
	Password       string
	Avatar         string
	Friends        []string
	FriendRequests []string
	IsOnline       bool
	LastSeen       *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// UserSummary is the public projection of a user returned by listings.
type UserSummary struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Avatar   string `json:"avatar"`
	IsOnline bool   `json:"isOnline"`
}

// Summary projects the user onto its display attributes.
func (u User) Summary() UserSummary {
	return UserSummary{
		ID:       u.ID,
		Name:     u.Name,
		Email:    u.Email,
		Avatar:   u.Avatar,
		IsOnline: u.IsOnline,
	}
}

// NotificationType enumerates the relationship events that produce a persisted notification.
type NotificationType string

const (
	NotificationFriendRequest  NotificationType = "FRIEND_REQUEST"
	NotificationFriendAccepted NotificationType = "FRIEND_ACCEPTED"
)

// Notification is a durable record of a relationship event addressed to a single recipient.
type Notification struct {
	ID        string           `json:"id"`
	Recipient string           `json:"recipient"`
	Type      NotificationType `json:"type"`
	Content   string           `json:"content"`
	IsRead    bool             `json:"isRead"`
	CreatedAt time.Time        `json:"createdAt"`
}

// SessionTokens groups the bearer credentials issued to authenticated users.
type SessionTokens struct {
	AccessToken      string    `json:"accessToken"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshToken     string    `json:"refreshToken"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
}
