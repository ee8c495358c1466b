package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/friendlink/backend/internal/db"
	"github.com/friendlink/backend/internal/models"
)

const userColumns = `id, name, email, password_hash, avatar, friends, friend_requests, is_online, last_seen, created_at, updated_at`

// PostgresUserRepository provides PostgreSQL-backed persistence for users.
type PostgresUserRepository struct {
	pool db.Pool
}

// NewPostgresUserRepository constructs a user repository backed by PostgreSQL.
func NewPostgresUserRepository(pool db.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

// Create persists a new user record.
func (r *PostgresUserRepository) Create(ctx context.Context, user models.User) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO users (`+userColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
    `, user.ID, user.Name, user.Email, user.Password, user.Avatar,
		nonNil(user.Friends), nonNil(user.FriendRequests), user.IsOnline, user.LastSeen,
		user.CreatedAt, user.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrConflict
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// FindByEmail fetches a user by their email address.
func (r *PostgresUserRepository) FindByEmail(ctx context.Context, email string) (models.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

// Load fetches a user by id.
func (r *PostgresUserRepository) Load(ctx context.Context, id string) (models.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

// Exists reports whether a user with the given id is stored.
func (r *PostgresUserRepository) Exists(ctx context.Context, id string) (bool, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var exists bool
	if err := conn.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("check user exists: %w", err)
	}
	return exists, nil
}

// Save overwrites the profile and relationship lists of an existing user.
func (r *PostgresUserRepository) Save(ctx context.Context, user models.User) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE users
        SET name = $2, email = $3, avatar = $4, friends = $5, friend_requests = $6, updated_at = $7
        WHERE id = $1
    `, user.ID, user.Name, user.Email, user.Avatar, nonNil(user.Friends), nonNil(user.FriendRequests), user.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrConflict
		}
		return fmt.Errorf("update user: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// FindExcluding lists every user whose id is not in excludeIDs, ordered by name.
func (r *PostgresUserRepository) FindExcluding(ctx context.Context, excludeIDs []string) ([]models.UserSummary, error) {
	return r.findSummaries(ctx, `
        SELECT id, name, email, avatar, is_online
        FROM users
        WHERE NOT (id = ANY($1))
        ORDER BY name, id
    `, nonNil(excludeIDs))
}

// FindByIDs resolves ids to summaries, preserving the order of ids.
func (r *PostgresUserRepository) FindByIDs(ctx context.Context, ids []string) ([]models.UserSummary, error) {
	if len(ids) == 0 {
		return []models.UserSummary{}, nil
	}

	found, err := r.findSummaries(ctx, `
        SELECT id, name, email, avatar, is_online
        FROM users
        WHERE id = ANY($1)
    `, ids)
	if err != nil {
		return nil, err
	}
	return orderSummaries(ids, found), nil
}

// SetPresence records whether the user currently holds a live connection.
func (r *PostgresUserRepository) SetPresence(ctx context.Context, id string, online bool, lastSeen *time.Time) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE users
        SET is_online = $2, last_seen = $3
        WHERE id = $1
    `, id, online, lastSeen)
	if err != nil {
		return fmt.Errorf("update user presence: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *PostgresUserRepository) findOne(ctx context.Context, query string, arg any) (models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var (
		user     models.User
		lastSeen sql.NullTime
	)
	err = conn.QueryRow(ctx, query, arg).Scan(
		&user.ID, &user.Name, &user.Email, &user.Password, &user.Avatar,
		&user.Friends, &user.FriendRequests, &user.IsOnline, &lastSeen,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, fmt.Errorf("select user: %w", err)
	}

	if lastSeen.Valid {
		t := lastSeen.Time.UTC()
		user.LastSeen = &t
	}

	return user, nil
}

func (r *PostgresUserRepository) findSummaries(ctx context.Context, query string, ids []string) ([]models.UserSummary, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	summaries := []models.UserSummary{}
	for rows.Next() {
		var s models.UserSummary
		if err := rows.Scan(&s.ID, &s.Name, &s.Email, &s.Avatar, &s.IsOnline); err != nil {
			return nil, fmt.Errorf("scan user summary: %w", err)
		}
		summaries = append(summaries, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}

	return summaries, nil
}

// PostgresNotificationRepository provides PostgreSQL-backed persistence for notifications.
type PostgresNotificationRepository struct {
	pool db.Pool
}

// NewPostgresNotificationRepository constructs a notification repository backed by PostgreSQL.
func NewPostgresNotificationRepository(pool db.Pool) *PostgresNotificationRepository {
	return &PostgresNotificationRepository{pool: pool}
}

// Create persists a new notification.
func (r *PostgresNotificationRepository) Create(ctx context.Context, n models.Notification) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO notifications (id, recipient_id, type, content, is_read, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)
    `, n.ID, n.Recipient, string(n.Type), n.Content, n.IsRead, n.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return ErrConflict
			case "23503":
				return ErrNotFound
			}
		}
		return fmt.Errorf("insert notification: %w", err)
	}

	return nil
}

// FindByID loads a single notification.
func (r *PostgresNotificationRepository) FindByID(ctx context.Context, id string) (models.Notification, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Notification{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var (
		n   models.Notification
		typ string
	)
	err = conn.QueryRow(ctx, `
        SELECT id, recipient_id, type, content, is_read, created_at
        FROM notifications
        WHERE id = $1
    `, id).Scan(&n.ID, &n.Recipient, &typ, &n.Content, &n.IsRead, &n.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Notification{}, ErrNotFound
		}
		return models.Notification{}, fmt.Errorf("select notification: %w", err)
	}

	n.Type = models.NotificationType(typ)
	n.CreatedAt = n.CreatedAt.UTC()
	return n, nil
}

// ListForUser returns a reverse chronological list of the user's notifications.
func (r *PostgresNotificationRepository) ListForUser(ctx context.Context, userID string) ([]models.Notification, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT id, recipient_id, type, content, is_read, created_at
        FROM notifications
        WHERE recipient_id = $1
        ORDER BY created_at DESC, id DESC
    `, userID)
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	notifications := []models.Notification{}
	for rows.Next() {
		var (
			n   models.Notification
			typ string
		)
		if err := rows.Scan(&n.ID, &n.Recipient, &typ, &n.Content, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		n.Type = models.NotificationType(typ)
		n.CreatedAt = n.CreatedAt.UTC()
		notifications = append(notifications, n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notifications: %w", err)
	}

	return notifications, nil
}

// MarkRead sets the read flag. Marking an already-read notification succeeds.
func (r *PostgresNotificationRepository) MarkRead(ctx context.Context, id string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `UPDATE notifications SET is_read = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// MarkAllRead flips every unread notification of the user and returns how many changed.
func (r *PostgresNotificationRepository) MarkAllRead(ctx context.Context, userID string) (int, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return 0, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE notifications
        SET is_read = TRUE
        WHERE recipient_id = $1 AND is_read = FALSE
    `, userID)
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", err)
	}

	return int(tag.RowsAffected()), nil
}

// CountUnread returns the number of unread notifications for the user.
func (r *PostgresNotificationRepository) CountUnread(ctx context.Context, userID string) (int, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return 0, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var count int
	if err := conn.QueryRow(ctx, `
        SELECT COUNT(*)
        FROM notifications
        WHERE recipient_id = $1 AND is_read = FALSE
    `, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}

	return count, nil
}

var _ UserRepository = (*PostgresUserRepository)(nil)
var _ NotificationRepository = (*PostgresNotificationRepository)(nil)
