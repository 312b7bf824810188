package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/openride/rideshare-api/internal/auth"
	"github.com/openride/rideshare-api/internal/models"
)

type ctxKey string

const identityKey ctxKey = "identity"

// Identity is the resolved identity attached to the request context after a
// successful pass through RequireAuth.
type Identity struct {
	ID       int
	Username string
	Admin    bool
}

// UserSource resolves a username to a live user record. A (nil, nil) return
// means the user does not exist.
type UserSource interface {
	GetByUsername(ctx context.Context, username string) (*models.User, error)
}

// GetIdentity returns the identity attached by RequireAuth, if any.
func GetIdentity(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}

// WithIdentity returns a context carrying the identity. Exported for tests
// that exercise handlers without the full middleware chain.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// RequireAuth guards a route with bearer-token authentication plus a
// predicate over the resolved identity.
//
// Missing header, unparseable or expired token, or a token whose subject no
// longer exists in storage all yield 401. A verified identity that fails the
// predicate yields 403. message overrides the generic denial text in both
// cases; pass "" for the default. On success the identity is attached to the
// request context and the request proceeds.
//
// Re-checking user existence on every request (not just at issuance) makes
// deleted accounts lose access immediately even though their outstanding
// tokens remain structurally valid until expiration.
func RequireAuth(users UserSource, tokens *auth.TokenService, pred func(Identity) bool, message string) func(http.Handler) http.Handler {
	if message == "" {
		message = "Authentication failed"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
				denied(w, http.StatusUnauthorized, message)
				return
			}

			claims, err := tokens.Parse(strings.TrimPrefix(authHeader, "Bearer "))
			if err != nil {
				denied(w, http.StatusUnauthorized, message)
				return
			}

			// Freshness check against storage.
			user, err := users.GetByUsername(r.Context(), claims.Username)
			if err != nil || user == nil {
				denied(w, http.StatusUnauthorized, message)
				return
			}

			identity := Identity{ID: user.ID, Username: user.Username, Admin: user.Admin}
			if !pred(identity) {
				denied(w, http.StatusForbidden, message)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

// RequireLogin admits any authenticated identity.
func RequireLogin(users UserSource, tokens *auth.TokenService) func(http.Handler) http.Handler {
	return RequireAuth(users, tokens, func(Identity) bool { return true }, "")
}

// RequireAdmin admits only identities with the admin flag set.
func RequireAdmin(users UserSource, tokens *auth.TokenService) func(http.Handler) http.Handler {
	return RequireAuth(users, tokens, func(id Identity) bool { return id.Admin }, "needs admin permissions")
}

func denied(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"message": message})
}
