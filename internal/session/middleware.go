package session

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

type contextKey struct{}

// NewContext returns a copy of ctx carrying sess.
func NewContext(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, contextKey{}, sess)
}

// FromContext returns the session stored by Middleware, or nil.
func FromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(contextKey{}).(*Session)
	return sess
}

// Middleware resolves an optional bearer token into a session. Requests
// without a token pass through anonymously; handlers decide whether a
// session is required. A token that does not resolve is rejected.
func (p *Provider) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			next.ServeHTTP(w, r)
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			writeUnauthorized(w, "invalid authorization header format")
			return
		}

		sess, err := p.Resolve(r.Context(), parts[1])
		if err != nil {
			writeUnauthorized(w, err.Error())
			return
		}
		next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), sess)))
	})
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
