package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/hlog"

	"github.com/tilqural/levels/internal/store"
)

type ctxKey struct{}

// UserLookup confirms a token's user still exists.
type UserLookup interface {
	UserByID(ctx context.Context, id string) (*store.User, error)
}

// RequireAuth enforces a valid token whose user still exists, and puts
// the Identity into the request context. Admin status is taken from the
// stored user, not the token.
func (m *Manager) RequireAuth(users UserLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr := m.TokenFromRequest(r)
			if tokenStr == "" {
				deny(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
			id, err := m.Parse(tokenStr)
			if err != nil {
				deny(w, http.StatusUnauthorized, "Invalid token")
				return
			}
			u, err := users.UserByID(r.Context(), id.ID)
			if errors.Is(err, store.ErrNotFound) {
				deny(w, http.StatusUnauthorized, "Invalid token")
				return
			}
			if err != nil {
				hlog.FromRequest(r).Error().Err(err).Str("user", id.ID).Msg("user lookup")
				deny(w, http.StatusInternalServerError, "Error loading user")
				return
			}
			id.Username, id.Admin = u.Username, u.IsAdmin
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// RequireAdmin must run after RequireAuth.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := FromContext(r.Context())
		if !ok {
			deny(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		if !id.Admin {
			deny(w, http.StatusForbidden, "Forbidden")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok
}

func deny(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": msg})
}
