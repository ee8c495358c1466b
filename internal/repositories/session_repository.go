package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/friendlink/backend/internal/auth"
	"github.com/friendlink/backend/internal/db"
)

// PostgresSessionStore keeps refresh sessions in the sessions table.
type PostgresSessionStore struct {
	pool db.Pool
}

// NewPostgresSessionStore constructs a PostgresSessionStore.
func NewPostgresSessionStore(pool db.Pool) *PostgresSessionStore {
	return &PostgresSessionStore{pool: pool}
}

// Save inserts the session, replacing a row with the same token.
func (s *PostgresSessionStore) Save(ctx context.Context, session auth.Session) error {
	return s.withConn(ctx, func(conn *pgxpool.Conn) error {
		_, err := conn.Exec(ctx, `
            INSERT INTO sessions (refresh_token, user_id, expires_at)
            VALUES ($1, $2, $3)
            ON CONFLICT (refresh_token)
            DO UPDATE SET user_id = EXCLUDED.user_id, expires_at = EXCLUDED.expires_at
        `, session.RefreshToken, session.UserID, session.ExpiresAt.UTC())
		if err != nil {
			return fmt.Errorf("upsert session: %w", err)
		}
		return nil
	})
}

// Take deletes the session row and returns what it held. The delete and read
// are one statement, so concurrent callers cannot both receive the row.
func (s *PostgresSessionStore) Take(ctx context.Context, refreshToken string) (auth.Session, error) {
	session := auth.Session{RefreshToken: refreshToken}
	err := s.withConn(ctx, func(conn *pgxpool.Conn) error {
		err := conn.QueryRow(ctx, `
            DELETE FROM sessions
            WHERE refresh_token = $1
            RETURNING user_id, expires_at
        `, refreshToken).Scan(&session.UserID, &session.ExpiresAt)
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return auth.ErrSessionNotFound
		case err != nil:
			return fmt.Errorf("take session: %w", err)
		}
		return nil
	})
	if err != nil {
		return auth.Session{}, err
	}
	session.ExpiresAt = session.ExpiresAt.UTC()
	return session, nil
}

func (s *PostgresSessionStore) withConn(ctx context.Context, fn func(conn *pgxpool.Conn) error) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()
	return fn(conn)
}

var _ auth.SessionStore = (*PostgresSessionStore)(nil)
