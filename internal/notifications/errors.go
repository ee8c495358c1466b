package notifications

import "errors"

var (
	// ErrNotFound indicates the notification does not exist.
	ErrNotFound = errors.New("notification not found")
	// ErrForbidden indicates the notification belongs to another user.
	ErrForbidden = errors.New("notification belongs to another user")
	// ErrStoreUnavailable wraps failures of the underlying notification store.
	ErrStoreUnavailable = errors.New("notification store unavailable")
)
