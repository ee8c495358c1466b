package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/friendlink/backend/internal/auth"
	"github.com/friendlink/backend/internal/logging"
)

// Identifier resolves a request credential to a user id.
type Identifier interface {
	ResolveIdentity(ctx context.Context, credential string) (string, error)
}

// RequireUser rejects requests without a verified identity and stores the
// resolved user id on the request context.
func RequireUser(identity Identifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			userID, err := identity.ResolveIdentity(ctx, auth.CredentialFromRequest(r))
			if err != nil {
				status, message := http.StatusUnauthorized, "Unauthorized"
				switch {
				case errors.Is(err, auth.ErrInvalidToken):
					message = "Invalid token"
				case errors.Is(err, auth.ErrUserNotFound):
					status, message = http.StatusNotFound, "User not found"
				case !errors.Is(err, auth.ErrUnauthorized):
					status, message = http.StatusInternalServerError, "Authentication unavailable"
				}

				logging.FromContext(ctx).Warn("authentication rejected", "status", status, "error", err)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(status)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
				return
			}

			next.ServeHTTP(w, r.WithContext(logging.WithUserID(ctx, userID)))
		})
	}
}
