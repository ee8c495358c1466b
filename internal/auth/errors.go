package auth

import "errors"

var (
	// ErrUnauthorized indicates no credential accompanied the request.
	ErrUnauthorized = errors.New("credential required")
	// ErrInvalidToken indicates the credential is malformed, expired, or not signed by us.
	ErrInvalidToken = errors.New("invalid or expired token")
	// ErrUserNotFound indicates a valid token names a user that no longer exists.
	ErrUserNotFound = errors.New("authenticated user not found")
	// ErrSessionNotFound indicates the provided refresh token does not map to an active session.
	ErrSessionNotFound = errors.New("session not found")
	// ErrRefreshTokenExpired indicates the refresh token has expired and cannot be used.
	ErrRefreshTokenExpired = errors.New("refresh token expired")
)
