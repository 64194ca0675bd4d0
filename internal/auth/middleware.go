package auth

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
)

type contextKey struct{}

// Verifier resolves a bearer token to a user id.
type Verifier interface {
	Verify(token string) (string, error)
}

// WithCaller returns a copy of ctx carrying the authenticated user id.
func WithCaller(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, contextKey{}, userID)
}

// CallerID returns the user id set by Middleware, or "" if there is none.
func CallerID(ctx context.Context) string {
	id, _ := ctx.Value(contextKey{}).(string)
	return id
}

// TokenFromHeader extracts the token from an Authorization header value. Both
// "Bearer <token>" and a bare token are accepted.
func TokenFromHeader(h string) string {
	h = strings.TrimSpace(h)
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return h
}

// Middleware rejects requests without a valid Authorization token with 401
// and stores the caller id in the request context.
func Middleware(v Verifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := TokenFromHeader(r.Header.Get("Authorization"))
			if token == "" {
				unauthorized(w)
				return
			}
			userID, err := v.Verify(token)
			if err != nil {
				logger.WarnContext(r.Context(), "rejected token", slog.Any("error", err))
				unauthorized(w)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), userID)))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]any{"status": false, "msg": "Unauthorized"})
}
