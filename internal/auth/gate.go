package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// UserDirectory reports whether a user id still resolves to an account.
type UserDirectory interface {
	Exists(ctx context.Context, id string) (bool, error)
}

// Gate resolves a credential to a verified user identity. Every failure must
// stop the caller before any relationship or presence work happens.
type Gate struct {
	tokens *TokenCodec
	users  UserDirectory
}

// NewGate constructs a Gate.
func NewGate(tokens *TokenCodec, users UserDirectory) *Gate {
	return &Gate{tokens: tokens, users: users}
}

// ResolveIdentity verifies credential and returns the user id it names.
func (g *Gate) ResolveIdentity(ctx context.Context, credential string) (string, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return "", ErrUnauthorized
	}

	userID, err := g.tokens.Parse(credential)
	if err != nil {
		return "", err
	}

	exists, err := g.users.Exists(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("look up authenticated user: %w", err)
	}
	if !exists {
		return "", ErrUserNotFound
	}

	return userID, nil
}

// CredentialFromRequest extracts a bearer token from the Authorization header,
// then the token cookie, then the token query parameter used by websocket
// handshakes.
func CredentialFromRequest(r *http.Request) string {
	if header := strings.TrimSpace(r.Header.Get("Authorization")); header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}

	if cookie, err := r.Cookie("token"); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	return r.URL.Query().Get("token")
}
