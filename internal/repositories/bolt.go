package repositories

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/friendlink/backend/internal/auth"
	"github.com/friendlink/backend/internal/models"
)

var (
	bucketUsers          = []byte("users")
	bucketUsersByEmail   = []byte("users_by_email")
	bucketNotifications  = []byte("notifications")
	bucketRecipientIndex = []byte("notifications_by_recipient")
	bucketSessions       = []byte("sessions")
)

// BoltDB is an embedded key-value store holding JSON documents keyed by id.
// Every Update runs in a single serialized transaction, so each record save
// is atomic.
type BoltDB struct {
	db *bolt.DB
}

// OpenBolt opens (or creates) the database file and its buckets.
func OpenBolt(path string) (*BoltDB, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketUsers, bucketUsersByEmail, bucketNotifications, bucketRecipientIndex, bucketSessions} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltDB{db: db}, nil
}

// Close releases the database file.
func (b *BoltDB) Close() error {
	return b.db.Close()
}

// BoltUserRepository stores users in the users bucket.
type BoltUserRepository struct {
	store *BoltDB
}

// NewBoltUserRepository constructs a user repository over an open BoltDB.
func NewBoltUserRepository(store *BoltDB) *BoltUserRepository {
	return &BoltUserRepository{store: store}
}

// Create persists a new user record.
func (r *BoltUserRepository) Create(_ context.Context, user models.User) error {
	return r.store.db.Update(func(tx *bolt.Tx) error {
		users := tx.Bucket(bucketUsers)
		emails := tx.Bucket(bucketUsersByEmail)

		if users.Get([]byte(user.ID)) != nil || emails.Get([]byte(user.Email)) != nil {
			return ErrConflict
		}

		if err := putJSON(users, user.ID, user); err != nil {
			return fmt.Errorf("insert user: %w", err)
		}
		return emails.Put([]byte(user.Email), []byte(user.ID))
	})
}

// FindByEmail fetches a user by their email address.
func (r *BoltUserRepository) FindByEmail(_ context.Context, email string) (models.User, error) {
	var user models.User
	err := r.store.db.View(func(tx *bolt.Tx) error {
		id := tx.Bucket(bucketUsersByEmail).Get([]byte(email))
		if id == nil {
			return ErrNotFound
		}
		return getJSON(tx.Bucket(bucketUsers), string(id), &user)
	})
	return user, err
}

// Load fetches a user by id.
func (r *BoltUserRepository) Load(_ context.Context, id string) (models.User, error) {
	var user models.User
	err := r.store.db.View(func(tx *bolt.Tx) error {
		return getJSON(tx.Bucket(bucketUsers), id, &user)
	})
	return user, err
}

// Exists reports whether a user with the given id is stored.
func (r *BoltUserRepository) Exists(_ context.Context, id string) (bool, error) {
	var exists bool
	err := r.store.db.View(func(tx *bolt.Tx) error {
		exists = tx.Bucket(bucketUsers).Get([]byte(id)) != nil
		return nil
	})
	return exists, err
}

// Save overwrites an existing user while keeping the stored presence fields.
func (r *BoltUserRepository) Save(_ context.Context, user models.User) error {
	return r.store.db.Update(func(tx *bolt.Tx) error {
		users := tx.Bucket(bucketUsers)
		emails := tx.Bucket(bucketUsersByEmail)

		var existing models.User
		if err := getJSON(users, user.ID, &existing); err != nil {
			return err
		}

		if user.Email != existing.Email {
			if owner := emails.Get([]byte(user.Email)); owner != nil && string(owner) != user.ID {
				return ErrConflict
			}
			if err := emails.Delete([]byte(existing.Email)); err != nil {
				return fmt.Errorf("drop email index: %w", err)
			}
			if err := emails.Put([]byte(user.Email), []byte(user.ID)); err != nil {
				return fmt.Errorf("write email index: %w", err)
			}
		}

		user.Password = existing.Password
		user.IsOnline = existing.IsOnline
		user.LastSeen = existing.LastSeen
		user.CreatedAt = existing.CreatedAt
		return putJSON(users, user.ID, user)
	})
}

// FindExcluding lists every user whose id is not in excludeIDs, ordered by name.
func (r *BoltUserRepository) FindExcluding(_ context.Context, excludeIDs []string) ([]models.UserSummary, error) {
	excluded := make(map[string]struct{}, len(excludeIDs))
	for _, id := range excludeIDs {
		excluded[id] = struct{}{}
	}

	summaries := []models.UserSummary{}
	err := r.store.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketUsers).ForEach(func(k, v []byte) error {
			if _, skip := excluded[string(k)]; skip {
				return nil
			}
			var user models.User
			if err := json.Unmarshal(v, &user); err != nil {
				return fmt.Errorf("decode user %s: %w", k, err)
			}
			summaries = append(summaries, user.Summary())
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].Name == summaries[j].Name {
			return summaries[i].ID < summaries[j].ID
		}
		return summaries[i].Name < summaries[j].Name
	})
	return summaries, nil
}

// FindByIDs resolves ids to summaries, preserving the order of ids.
func (r *BoltUserRepository) FindByIDs(_ context.Context, ids []string) ([]models.UserSummary, error) {
	found := make([]models.UserSummary, 0, len(ids))
	err := r.store.db.View(func(tx *bolt.Tx) error {
		users := tx.Bucket(bucketUsers)
		for _, id := range ids {
			var user models.User
			err := getJSON(users, id, &user)
			if errors.Is(err, ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			found = append(found, user.Summary())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return orderSummaries(ids, found), nil
}

// SetPresence records whether the user currently holds a live connection.
func (r *BoltUserRepository) SetPresence(_ context.Context, id string, online bool, lastSeen *time.Time) error {
	return r.store.db.Update(func(tx *bolt.Tx) error {
		users := tx.Bucket(bucketUsers)
		var user models.User
		if err := getJSON(users, id, &user); err != nil {
			return err
		}
		user.IsOnline = online
		user.LastSeen = lastSeen
		return putJSON(users, id, user)
	})
}

// BoltNotificationRepository stores notifications plus a per-recipient index.
type BoltNotificationRepository struct {
	store *BoltDB
}

// NewBoltNotificationRepository constructs a notification repository over an open BoltDB.
func NewBoltNotificationRepository(store *BoltDB) *BoltNotificationRepository {
	return &BoltNotificationRepository{store: store}
}

// Create persists a new notification. The recipient must exist.
func (r *BoltNotificationRepository) Create(_ context.Context, n models.Notification) error {
	return r.store.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket(bucketUsers).Get([]byte(n.Recipient)) == nil {
			return ErrNotFound
		}

		notifications := tx.Bucket(bucketNotifications)
		if notifications.Get([]byte(n.ID)) != nil {
			return ErrConflict
		}
		if err := putJSON(notifications, n.ID, n); err != nil {
			return fmt.Errorf("insert notification: %w", err)
		}
		return tx.Bucket(bucketRecipientIndex).Put(recipientKey(n.Recipient, n.ID), nil)
	})
}

// FindByID loads a single notification.
func (r *BoltNotificationRepository) FindByID(_ context.Context, id string) (models.Notification, error) {
	var n models.Notification
	err := r.store.db.View(func(tx *bolt.Tx) error {
		return getJSON(tx.Bucket(bucketNotifications), id, &n)
	})
	return n, err
}

// ListForUser returns a reverse chronological list of the user's notifications.
func (r *BoltNotificationRepository) ListForUser(_ context.Context, userID string) ([]models.Notification, error) {
	notifications := []models.Notification{}
	err := r.store.db.View(func(tx *bolt.Tx) error {
		return r.eachForRecipient(tx, userID, func(n models.Notification) error {
			notifications = append(notifications, n)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(notifications, func(i, j int) bool {
		if notifications[i].CreatedAt.Equal(notifications[j].CreatedAt) {
			return notifications[i].ID > notifications[j].ID
		}
		return notifications[i].CreatedAt.After(notifications[j].CreatedAt)
	})
	return notifications, nil
}

// MarkRead sets the read flag. Marking an already-read notification succeeds.
func (r *BoltNotificationRepository) MarkRead(_ context.Context, id string) error {
	return r.store.db.Update(func(tx *bolt.Tx) error {
		notifications := tx.Bucket(bucketNotifications)
		var n models.Notification
		if err := getJSON(notifications, id, &n); err != nil {
			return err
		}
		if n.IsRead {
			return nil
		}
		n.IsRead = true
		return putJSON(notifications, id, n)
	})
}

// MarkAllRead flips every unread notification of the user and returns how many changed.
func (r *BoltNotificationRepository) MarkAllRead(_ context.Context, userID string) (int, error) {
	var changed int
	err := r.store.db.Update(func(tx *bolt.Tx) error {
		var unread []models.Notification
		err := r.eachForRecipient(tx, userID, func(n models.Notification) error {
			if !n.IsRead {
				unread = append(unread, n)
			}
			return nil
		})
		if err != nil {
			return err
		}

		notifications := tx.Bucket(bucketNotifications)
		for _, n := range unread {
			n.IsRead = true
			if err := putJSON(notifications, n.ID, n); err != nil {
				return fmt.Errorf("mark notification %s read: %w", n.ID, err)
			}
		}
		changed = len(unread)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return changed, nil
}

// CountUnread returns the number of unread notifications for the user.
func (r *BoltNotificationRepository) CountUnread(_ context.Context, userID string) (int, error) {
	var count int
	err := r.store.db.View(func(tx *bolt.Tx) error {
		return r.eachForRecipient(tx, userID, func(n models.Notification) error {
			if !n.IsRead {
				count++
			}
			return nil
		})
	})
	return count, err
}

func (r *BoltNotificationRepository) eachForRecipient(tx *bolt.Tx, userID string, fn func(models.Notification) error) error {
	notifications := tx.Bucket(bucketNotifications)
	prefix := recipientPrefix(userID)

	c := tx.Bucket(bucketRecipientIndex).Cursor()
	for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
		id := string(k[len(prefix):])
		var n models.Notification
		if err := getJSON(notifications, id, &n); err != nil {
			return fmt.Errorf("load indexed notification %s: %w", id, err)
		}
		if err := fn(n); err != nil {
			return err
		}
	}
	return nil
}

// BoltSessionStore persists refresh sessions in the sessions bucket.
type BoltSessionStore struct {
	store *BoltDB
}

// NewBoltSessionStore constructs a session store over an open BoltDB.
func NewBoltSessionStore(store *BoltDB) *BoltSessionStore {
	return &BoltSessionStore{store: store}
}

// Save stores or rotates a refresh session.
func (s *BoltSessionStore) Save(_ context.Context, session auth.Session) error {
	return s.store.db.Update(func(tx *bolt.Tx) error {
		return putJSON(tx.Bucket(bucketSessions), session.RefreshToken, session)
	})
}

// Take removes the session stored under refreshToken and returns it.
func (s *BoltSessionStore) Take(_ context.Context, refreshToken string) (auth.Session, error) {
	var session auth.Session
	err := s.store.db.Update(func(tx *bolt.Tx) error {
		sessions := tx.Bucket(bucketSessions)
		if err := getJSON(sessions, refreshToken, &session); err != nil {
			return err
		}
		return sessions.Delete([]byte(refreshToken))
	})
	if errors.Is(err, ErrNotFound) {
		return auth.Session{}, auth.ErrSessionNotFound
	}
	if err != nil {
		return auth.Session{}, err
	}
	return session, nil
}

var _ auth.SessionStore = (*BoltSessionStore)(nil)

// recipientPrefix encodes the user id behind its length, so no id is a key
// prefix of another.
func recipientPrefix(userID string) []byte {
	prefix := make([]byte, 0, 4+len(userID))
	prefix = binary.BigEndian.AppendUint32(prefix, uint32(len(userID)))
	return append(prefix, userID...)
}

func recipientKey(userID, notificationID string) []byte {
	return append(recipientPrefix(userID), notificationID...)
}

func putJSON(b *bolt.Bucket, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return b.Put([]byte(key), data)
}

func getJSON(b *bolt.Bucket, key string, out any) error {
	data := b.Get([]byte(key))
	if data == nil {
		return ErrNotFound
	}
	return json.Unmarshal(data, out)
}

var _ UserRepository = (*BoltUserRepository)(nil)
var _ NotificationRepository = (*BoltNotificationRepository)(nil)
var _ auth.SessionStore = (*BoltSessionStore)(nil)
