package friends

import (
	"slices"

	"github.com/friendlink/backend/internal/models"
)

// PairState is the relationship between two users as seen from the first one.
type PairState string

const (
	StateUnrelated       PairState = "UNRELATED"
	StatePendingOutgoing PairState = "PENDING_OUTGOING"
	StatePendingIncoming PairState = "PENDING_INCOMING"
	StateFriends         PairState = "FRIENDS"
)

// derivePairState computes the state of the pair (a, b) from both records.
func derivePairState(a, b models.User) PairState {
	switch {
	case slices.Contains(a.Friends, b.ID) || slices.Contains(b.Friends, a.ID):
		return StateFriends
	case slices.Contains(b.FriendRequests, a.ID):
		return StatePendingOutgoing
	case slices.Contains(a.FriendRequests, b.ID):
		return StatePendingIncoming
	default:
		return StateUnrelated
	}
}

// addUnique appends id unless it is already present.
func addUnique(ids []string, id string) []string {
	if slices.Contains(ids, id) {
		return ids
	}
	return append(ids, id)
}

// without returns ids with every occurrence of id removed, preserving order.
func without(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, existing := range ids {
		if existing != id {
			out = append(out, existing)
		}
	}
	return out
}
