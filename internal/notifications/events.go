package notifications

import (
	"time"

	"github.com/friendlink/backend/internal/models"
)

// Live event names pushed to connected clients.
const (
	EventFriendRequest   = "receive_friend_request"
	EventRequestAccepted = "friend_request_accepted"
	EventRequestDeclined = "friend_request_declined"
	EventRequestCanceled = "friend_request_cancelled"
	EventFriendRemoved   = "friend_removed"
)

// Payload is the body of every live relationship event.
type Payload struct {
	From         string   `json:"from"`
	FromName     string   `json:"fromName"`
	FromAvatar   string   `json:"fromAvatar,omitempty"`
	Message      string   `json:"message,omitempty"`
	Notification *Summary `json:"notification,omitempty"`
}

// Summary is the notification embedded in notification-backed events.
type Summary struct {
	ID        string                  `json:"id"`
	Type      models.NotificationType `json:"type"`
	Content   string                  `json:"content"`
	CreatedAt time.Time               `json:"createdAt"`
	IsRead    bool                    `json:"isRead"`
}

// NewPayload builds the payload for an event originating from actor.
func NewPayload(actor models.UserSummary) Payload {
	return Payload{
		From:       actor.ID,
		FromName:   actor.Name,
		FromAvatar: actor.Avatar,
	}
}

// Summarize projects a persisted notification into its push form.
func Summarize(n models.Notification) *Summary {
	return &Summary{
		ID:        n.ID,
		Type:      n.Type,
		Content:   n.Content,
		CreatedAt: n.CreatedAt,
		IsRead:    n.IsRead,
	}
}
