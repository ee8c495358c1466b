package friends

import "errors"

var (
	// ErrSelfTarget indicates an operation that names the caller as its own counterpart.
	ErrSelfTarget = errors.New("cannot target yourself")
	// ErrUserNotFound indicates that one of the two user ids does not resolve.
	ErrUserNotFound = errors.New("user not found")
	// ErrAlreadyRequested indicates that a request between the pair is already pending.
	ErrAlreadyRequested = errors.New("friend request already sent")
	// ErrAlreadyFriends indicates that the pair is already connected.
	ErrAlreadyFriends = errors.New("already friends")
	// ErrRequestNotFound indicates that there is no pending request to accept or decline.
	ErrRequestNotFound = errors.New("friend request not found")
	// ErrNoPendingRequest indicates that there is no pending request to cancel.
	ErrNoPendingRequest = errors.New("no pending request to cancel")
	// ErrStoreUnavailable indicates a persistence failure.
	ErrStoreUnavailable = errors.New("relationship store unavailable")
)
