package auth

import (
	"chatsphere/domain"
	"chatsphere/errors"
	"context"
	"log/slog"
	"net/http"
	"strings"
)

type contextKey string

const UserIDKey contextKey = "user_id"

// TokenFromRequest reads the standard "Bearer <token>" header and falls back
// on the token query parameter, which browsers need for websocket upgrades.
func TokenFromRequest(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return r.URL.Query().Get("token")
}

func WithUser(ctx context.Context, user domain.UserID) context.Context {
	return context.WithValue(ctx, UserIDKey, user)
}

func UserFromContext(ctx context.Context) (domain.UserID, bool) {
	user, ok := ctx.Value(UserIDKey).(domain.UserID)
	return user, ok && user != ""
}

// RequireUser rejects requests without a valid token and injects the
// user identity into the request context for downstream handlers.
func RequireUser(log *slog.Logger, verifier *Verifier, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := TokenFromRequest(r)
		if token == "" {
			http.Error(w, "authorization token is missing", errors.MapToHTTPStatus(errors.ErrUnauthorized))
			return
		}
		user, err := verifier.Verify(token)
		if err != nil {
			log.Debug("Token refused", "path", r.URL.Path, "error", err)
			http.Error(w, "invalid or expired token", errors.MapToHTTPStatus(err))
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}
