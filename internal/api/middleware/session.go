package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/eddigital/lti-blogs/internal/session"
)

const sessionKey contextKey = "session"

// Session is middleware that resolves the session cookie to server-side
// session state and attaches it to the request context. Requests without a
// live session pass through with no state attached.
func Session(store session.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token, ok := session.TokenFromRequest(r); ok {
				st, err := store.Get(r.Context(), token)
				switch {
				case err == nil:
					ctx := context.WithValue(r.Context(), sessionKey, st)
					r = r.WithContext(ctx)
				case !errors.Is(err, session.ErrSessionNotFound):
					slog.Error("session lookup failed", "error", err)
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetSession retrieves the session state from the request context, nil when
// the request presented no live session.
func GetSession(ctx context.Context) *session.State {
	if st, ok := ctx.Value(sessionKey).(*session.State); ok {
		return st
	}
	return nil
}
