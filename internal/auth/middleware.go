package auth

import (
	"net/http"
	"strings"
)

// Middleware resolves the acting user for each request. Identity is
// informational: it tags orders with their creator but never rejects a
// request. A bearer token wins over the X-User header; with neither the
// request proceeds as AnonymousUser.
type Middleware struct {
	secret []byte
}

// NewMiddleware constructs the identity middleware. An empty secret
// disables JWT parsing and leaves only the header fallback.
func NewMiddleware(secret []byte) *Middleware {
	return &Middleware{secret: secret}
}

// Wrap attaches the resolved user to the request context.
func (m *Middleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := AnonymousUser

		if header := r.Header.Get("X-User"); header != "" {
			user = header
		}
		if token := bearerToken(r); token != "" && len(m.secret) > 0 {
			if subject, err := SubjectFromJWT(token, m.secret); err == nil {
				user = subject
			}
		}

		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
