package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// Middleware provides authentication middleware for HTTP handlers
type Middleware struct {
	token string
}

// NewMiddleware creates a new auth middleware for the given token.
// An empty token rejects every request.
func NewMiddleware(token string) *Middleware {
	return &Middleware{
		token: token,
	}
}

// RequireAuth wraps an http.Handler and requires valid authentication
func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.isAuthenticated(r) {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAuthFunc wraps an http.HandlerFunc and requires valid authentication
func (m *Middleware) RequireAuthFunc(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !m.isAuthenticated(r) {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

// isAuthenticated checks if the request has valid authentication
func (m *Middleware) isAuthenticated(r *http.Request) bool {
	// If no token is configured, reject all requests (fail secure)
	if m.token == "" {
		return false
	}

	// Check X-Internal-Token header first (for internal service-to-service calls)
	if token := r.Header.Get("X-Internal-Token"); token != "" {
		return m.matches(token)
	}

	// Check Authorization header (Bearer token)
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		// Must be "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			return false
		}
		return m.matches(parts[1])
	}

	// Browsers cannot set headers on a WebSocket upgrade
	if token := r.URL.Query().Get("token"); token != "" {
		return m.matches(token)
	}

	return false
}

func (m *Middleware) matches(token string) bool {
	return subtle.ConstantTimeCompare([]byte(token), []byte(m.token)) == 1
}

// IsEnabled returns true if authentication is configured
func (m *Middleware) IsEnabled() bool {
	return m.token != ""
}
