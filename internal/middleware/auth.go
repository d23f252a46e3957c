package middleware

import (
	"context"
	"net/http"
	"strings"

	"studio/internal/account"
)

type sessionContextKey struct{}

var sessionKey = sessionContextKey{}

// SessionResolver validates a bearer token and resolves its login session.
type SessionResolver interface {
	VerifySessionToken(token string) (*account.Session, error)
}

// Auth requires a valid bearer token on every request it wraps and stores the
// resolved session in the request context. Tokens for signed-out sessions are
// rejected even when their signature is still valid.
func Auth(resolver SessionResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				http.Error(w, "missing authorization", http.StatusUnauthorized)
				return
			}
			scheme, token, ok := strings.Cut(header, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") {
				http.Error(w, "invalid authorization", http.StatusUnauthorized)
				return
			}
			session, err := resolver.VerifySessionToken(token)
			if err != nil {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithSession(r.Context(), session)))
		})
	}
}

// ContextWithSession stores a resolved session in the context.
func ContextWithSession(ctx context.Context, session *account.Session) context.Context {
	return context.WithValue(ctx, sessionKey, session)
}

// SessionFromContext returns the session resolved by Auth, if any.
func SessionFromContext(ctx context.Context) (*account.Session, bool) {
	v, ok := ctx.Value(sessionKey).(*account.Session)
	return v, ok
}
