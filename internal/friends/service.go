// Package friends implements the friend relationship state machine: requests,
// acceptance, decline, cancellation and removal between pairs of users.
package friends

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/friendlink/backend/internal/keylock"
	"github.com/friendlink/backend/internal/logging"
	"github.com/friendlink/backend/internal/metrics"
	"github.com/friendlink/backend/internal/models"
	"github.com/friendlink/backend/internal/notifications"
	"github.com/friendlink/backend/internal/repositories"
)

// UserStore loads and saves whole user records, including both relationship lists.
type UserStore interface {
	Load(ctx context.Context, id string) (models.User, error)
	Save(ctx context.Context, user models.User) error
	FindExcluding(ctx context.Context, excludeIDs []string) ([]models.UserSummary, error)
	FindByIDs(ctx context.Context, ids []string) ([]models.UserSummary, error)
}

// Notifier persists a notification and pushes it to a connected recipient.
type Notifier interface {
	CreateAndPush(ctx context.Context, recipient string, typ models.NotificationType, content string, push notifications.Push) (models.Notification, error)
}

// Pusher sends live-only events that carry no notification record.
type Pusher interface {
	SendTo(userID, event string, payload any) bool
}

const (
	opSendRequest    = "send_request"
	opAcceptRequest  = "accept_request"
	opDeclineRequest = "decline_request"
	opCancelRequest  = "cancel_request"
	opRemoveFriend   = "remove_friend"
)

// Service coordinates relationship transitions between two user records.
// Every transition holds the locks of both users from load to notification,
// so transitions touching a shared user run one at a time.
type Service struct {
	users    UserStore
	notifier Notifier
	pusher   Pusher
	locks    *keylock.Set
	NowFunc  func() time.Time
}

// NewService constructs a Service.
func NewService(users UserStore, notifier Notifier, pusher Pusher) *Service {
	return &Service{users: users, notifier: notifier, pusher: pusher, locks: keylock.New()}
}

// SendRequest records a pending request from sender to receiver and notifies
// the receiver.
func (s *Service) SendRequest(ctx context.Context, senderID, receiverID string) (err error) {
	ctx, span := logging.StartSpan(ctx, "friends.send_request",
		slog.String("sender", senderID), slog.String("receiver", receiverID))
	defer func() { finish(span, opSendRequest, err) }()

	if senderID == receiverID {
		return ErrSelfTarget
	}

	defer s.locks.Lock(senderID, receiverID)()

	sender, receiver, err := s.loadPair(ctx, senderID, receiverID)
	if err != nil {
		return err
	}

	switch {
	case slices.Contains(receiver.FriendRequests, senderID):
		return ErrAlreadyRequested
	case slices.Contains(receiver.Friends, senderID):
		return ErrAlreadyFriends
	case slices.Contains(sender.FriendRequests, receiverID):
		// The receiver already asked the sender; the pair stays a single pending request.
		return ErrAlreadyRequested
	}

	receiver.FriendRequests = append(receiver.FriendRequests, senderID)
	if err := s.save(ctx, receiver); err != nil {
		return err
	}

	_, err = s.notifier.CreateAndPush(ctx, receiverID, models.NotificationFriendRequest,
		fmt.Sprintf("%s sent you a friend request", sender.Name),
		notifications.Push{Event: notifications.EventFriendRequest, Payload: notifications.NewPayload(sender.Summary())},
	)
	if err != nil {
		return fmt.Errorf("notify friend request: %w", err)
	}
	return nil
}

// AcceptRequest turns the pending request from sender into a friendship and
// notifies the sender.
func (s *Service) AcceptRequest(ctx context.Context, receiverID, senderID string) (err error) {
	ctx, span := logging.StartSpan(ctx, "friends.accept_request",
		slog.String("receiver", receiverID), slog.String("sender", senderID))
	defer func() { finish(span, opAcceptRequest, err) }()

	defer s.locks.Lock(receiverID, senderID)()

	receiver, sender, err := s.loadPair(ctx, receiverID, senderID)
	if err != nil {
		return err
	}

	if !slices.Contains(receiver.FriendRequests, senderID) {
		return ErrRequestNotFound
	}

	receiver.FriendRequests = without(receiver.FriendRequests, senderID)
	receiver.Friends = addUnique(receiver.Friends, senderID)
	sender.Friends = addUnique(sender.Friends, receiverID)

	if err := s.save(ctx, receiver); err != nil {
		return err
	}
	if err := s.save(ctx, sender); err != nil {
		return err
	}

	_, err = s.notifier.CreateAndPush(ctx, senderID, models.NotificationFriendAccepted,
		fmt.Sprintf("%s accepted your friend request.", receiver.Name),
		notifications.Push{Event: notifications.EventRequestAccepted, Payload: notifications.NewPayload(receiver.Summary())},
	)
	if err != nil {
		return fmt.Errorf("notify friend accepted: %w", err)
	}
	return nil
}

// DeclineRequest discards the pending request from sender.
func (s *Service) DeclineRequest(ctx context.Context, receiverID, senderID string) (err error) {
	ctx, span := logging.StartSpan(ctx, "friends.decline_request",
		slog.String("receiver", receiverID), slog.String("sender", senderID))
	defer func() { finish(span, opDeclineRequest, err) }()

	if receiverID == senderID {
		return ErrSelfTarget
	}

	defer s.locks.Lock(receiverID, senderID)()

	receiver, _, err := s.loadPair(ctx, receiverID, senderID)
	if err != nil {
		return err
	}

	if !slices.Contains(receiver.FriendRequests, senderID) {
		return ErrRequestNotFound
	}

	receiver.FriendRequests = without(receiver.FriendRequests, senderID)
	if err := s.save(ctx, receiver); err != nil {
		return err
	}

	payload := notifications.NewPayload(receiver.Summary())
	payload.Message = "Your friend request was declined"
	s.pusher.SendTo(senderID, notifications.EventRequestDeclined, payload)
	return nil
}

// CancelRequest withdraws the sender's pending request to receiver.
func (s *Service) CancelRequest(ctx context.Context, senderID, receiverID string) (err error) {
	ctx, span := logging.StartSpan(ctx, "friends.cancel_request",
		slog.String("sender", senderID), slog.String("receiver", receiverID))
	defer func() { finish(span, opCancelRequest, err) }()

	if senderID == receiverID {
		return ErrSelfTarget
	}

	defer s.locks.Lock(senderID, receiverID)()

	sender, receiver, err := s.loadPair(ctx, senderID, receiverID)
	if err != nil {
		return err
	}

	if !slices.Contains(receiver.FriendRequests, senderID) {
		return ErrNoPendingRequest
	}

	receiver.FriendRequests = without(receiver.FriendRequests, senderID)
	if err := s.save(ctx, receiver); err != nil {
		return err
	}

	payload := notifications.NewPayload(sender.Summary())
	payload.Message = "Friend request was cancelled"
	s.pusher.SendTo(receiverID, notifications.EventRequestCanceled, payload)
	return nil
}

// RemoveFriend dissolves the friendship between a and b. Removing a pair that
// is not connected succeeds and leaves both lists unchanged.
func (s *Service) RemoveFriend(ctx context.Context, userID, friendID string) (err error) {
	ctx, span := logging.StartSpan(ctx, "friends.remove_friend",
		slog.String("user", userID), slog.String("friend", friendID))
	defer func() { finish(span, opRemoveFriend, err) }()

	if userID == friendID {
		return ErrSelfTarget
	}

	defer s.locks.Lock(userID, friendID)()

	user, friend, err := s.loadPair(ctx, userID, friendID)
	if err != nil {
		return err
	}

	user.Friends = without(user.Friends, friendID)
	friend.Friends = without(friend.Friends, userID)

	if err := s.save(ctx, user); err != nil {
		return err
	}
	if err := s.save(ctx, friend); err != nil {
		return err
	}

	payload := notifications.NewPayload(user.Summary())
	payload.Message = "You have been removed from friends list"
	s.pusher.SendTo(friendID, notifications.EventFriendRemoved, payload)
	return nil
}

// ListCandidates returns every user that is neither the caller nor one of
// the caller's friends.
func (s *Service) ListCandidates(ctx context.Context, userID string) ([]models.UserSummary, error) {
	user, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	exclude := append([]string{userID}, user.Friends...)
	candidates, err := s.users.FindExcluding(ctx, exclude)
	if err != nil {
		return nil, fmt.Errorf("%w: list candidates: %w", ErrStoreUnavailable, err)
	}
	return candidates, nil
}

// ListFriends expands the caller's friends into display summaries.
func (s *Service) ListFriends(ctx context.Context, userID string) ([]models.UserSummary, error) {
	user, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.resolve(ctx, user.Friends)
}

// ListIncomingRequests expands the caller's pending requests in arrival order.
func (s *Service) ListIncomingRequests(ctx context.Context, userID string) ([]models.UserSummary, error) {
	user, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.resolve(ctx, user.FriendRequests)
}

// Relationship reports the pair state of (userID, otherID) from userID's side.
func (s *Service) Relationship(ctx context.Context, userID, otherID string) (PairState, error) {
	if userID == otherID {
		return "", ErrSelfTarget
	}
	user, other, err := s.loadPair(ctx, userID, otherID)
	if err != nil {
		return "", err
	}
	return derivePairState(user, other), nil
}

func (s *Service) resolve(ctx context.Context, ids []string) ([]models.UserSummary, error) {
	if len(ids) == 0 {
		return []models.UserSummary{}, nil
	}
	summaries, err := s.users.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("%w: resolve users: %w", ErrStoreUnavailable, err)
	}
	return summaries, nil
}

func (s *Service) loadPair(ctx context.Context, firstID, secondID string) (models.User, models.User, error) {
	first, err := s.load(ctx, firstID)
	if err != nil {
		return models.User{}, models.User{}, err
	}
	second, err := s.load(ctx, secondID)
	if err != nil {
		return models.User{}, models.User{}, err
	}
	return first, second, nil
}

func (s *Service) load(ctx context.Context, id string) (models.User, error) {
	user, err := s.users.Load(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, fmt.Errorf("%w: load user: %w", ErrStoreUnavailable, err)
	}
	return user, nil
}

func (s *Service) save(ctx context.Context, user models.User) error {
	user.UpdatedAt = s.now()
	if err := s.users.Save(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("%w: save user: %w", ErrStoreUnavailable, err)
	}
	return nil
}

func (s *Service) now() time.Time {
	if s.NowFunc != nil {
		return s.NowFunc()
	}
	return time.Now().UTC()
}

func finish(span *logging.Span, operation string, err error) {
	result := "ok"
	switch {
	case err == nil:
	case errors.Is(err, ErrStoreUnavailable), errors.Is(err, notifications.ErrStoreUnavailable):
		result = "error"
	default:
		result = "rejected"
	}
	metrics.RelationshipTransitionsTotal.WithLabelValues(operation, result).Inc()
	span.Fail(err)
	span.End()
}
