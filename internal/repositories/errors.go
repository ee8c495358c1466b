package repositories

import (
	"errors"

	"github.com/friendlink/backend/internal/models"
)

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConflict indicates the attempted write would violate a uniqueness constraint.
	ErrConflict = errors.New("record conflict")
)

// orderSummaries arranges found users in the order of ids, dropping ids that
// had no match.
func orderSummaries(ids []string, found []models.UserSummary) []models.UserSummary {
	byID := make(map[string]models.UserSummary, len(found))
	for _, summary := range found {
		byID[summary.ID] = summary
	}
	out := make([]models.UserSummary, 0, len(ids))
	for _, id := range ids {
		if summary, ok := byID[id]; ok {
			out = append(out, summary)
		}
	}
	return out
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
