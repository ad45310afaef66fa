package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func okHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func TestRequireAuth(t *testing.T) {
	m := NewMiddleware("secret")
	handler := m.RequireAuth(http.HandlerFunc(okHandler))

	tests := []struct {
		name   string
		setup  func(r *http.Request)
		target string
		want   int
	}{
		{"no credentials", func(r *http.Request) {}, "/", http.StatusUnauthorized},
		{"internal header", func(r *http.Request) { r.Header.Set("X-Internal-Token", "secret") }, "/", http.StatusOK},
		{"wrong internal header", func(r *http.Request) { r.Header.Set("X-Internal-Token", "nope") }, "/", http.StatusUnauthorized},
		{"bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer secret") }, "/", http.StatusOK},
		{"basic scheme", func(r *http.Request) { r.Header.Set("Authorization", "Basic secret") }, "/", http.StatusUnauthorized},
		{"bearer without token", func(r *http.Request) { r.Header.Set("Authorization", "Bearer") }, "/", http.StatusUnauthorized},
		{"query token", func(r *http.Request) {}, "/?token=secret", http.StatusOK},
		{"wrong query token", func(r *http.Request) {}, "/?token=nope", http.StatusUnauthorized},
		{"wrong header beats query", func(r *http.Request) { r.Header.Set("X-Internal-Token", "nope") }, "/?token=secret", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			tt.setup(req)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestRequireAuthFailsSecureWithoutToken(t *testing.T) {
	m := NewMiddleware("")
	assert.False(t, m.IsEnabled())

	handler := m.RequireAuthFunc(okHandler)
	req := httptest.NewRequest(http.MethodGet, "/?token=", nil)
	req.Header.Set("X-Internal-Token", "")
	rec := httptest.NewRecorder()
	handler(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
