package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/friendlink/backend/internal/models"
)

// SessionStore keeps the refresh sessions issued at login.
type SessionStore interface {
	Save(ctx context.Context, session Session) error
	// Take removes the session and returns it. Of several concurrent calls
	// with one token, only one gets the session; the rest see ErrSessionNotFound.
	Take(ctx context.Context, refreshToken string) (Session, error)
}

// Session binds a refresh token to a user until ExpiresAt.
type Session struct {
	RefreshToken string
	UserID       string
	ExpiresAt    time.Time
}

func (s Session) expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

const refreshTokenBytes = 32

// Manager hands out an access JWT together with a single-use refresh token.
type Manager struct {
	tokens     *TokenCodec
	store      SessionStore
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewManager constructs a Manager.
func NewManager(tokens *TokenCodec, accessTTL, refreshTTL time.Duration, store SessionStore) *Manager {
	if tokens == nil || store == nil {
		panic("auth: token codec and session store must not be nil")
	}
	return &Manager{
		tokens:     tokens,
		store:      store,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Issue signs an access token for userID and opens a refresh session.
func (m *Manager) Issue(ctx context.Context, userID string) (models.SessionTokens, error) {
	if userID == "" {
		return models.SessionTokens{}, errors.New("issue session: empty user id")
	}

	now := m.now()
	pair := models.SessionTokens{
		AccessExpiresAt:  now.Add(m.accessTTL),
		RefreshExpiresAt: now.Add(m.refreshTTL),
	}

	var err error
	if pair.AccessToken, err = m.tokens.Sign(userID, pair.AccessExpiresAt); err != nil {
		return models.SessionTokens{}, err
	}
	if pair.RefreshToken, err = newRefreshToken(); err != nil {
		return models.SessionTokens{}, err
	}

	session := Session{RefreshToken: pair.RefreshToken, UserID: userID, ExpiresAt: pair.RefreshExpiresAt}
	if err := m.store.Save(ctx, session); err != nil {
		return models.SessionTokens{}, fmt.Errorf("save session: %w", err)
	}
	return pair, nil
}

// Refresh consumes refreshToken and issues a fresh pair for its user. A token
// is accepted once; an expired one is consumed and rejected.
func (m *Manager) Refresh(ctx context.Context, refreshToken string) (models.SessionTokens, error) {
	if refreshToken == "" {
		return models.SessionTokens{}, ErrSessionNotFound
	}

	session, err := m.store.Take(ctx, refreshToken)
	if err != nil {
		return models.SessionTokens{}, err
	}
	if session.expired(m.now()) {
		return models.SessionTokens{}, ErrRefreshTokenExpired
	}
	return m.Issue(ctx, session.UserID)
}

// Revoke ends the session behind refreshToken. Unknown tokens are ignored.
func (m *Manager) Revoke(ctx context.Context, refreshToken string) {
	if refreshToken != "" {
		_, _ = m.store.Take(ctx, refreshToken)
	}
}

func newRefreshToken() (string, error) {
	buf := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate refresh token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
