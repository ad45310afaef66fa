package ws

import (
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/hyper-ai-inc/terminal-backend/internal/terminal"
)

// Router upgrades terminal requests and hands each connection to the
// supervisor for the lifetime of its session.
type Router struct {
	supervisor *terminal.Supervisor
	upgrader   websocket.Upgrader
	logger     *zap.Logger
}

// NewRouter creates a new WebSocket router. Browser origins must match
// one of allowedOrigins.
func NewRouter(sup *terminal.Supervisor, allowedOrigins []string, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	origins := make([]string, 0, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}

	return &Router{
		supervisor: sup,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return checkOrigin(r, origins)
			},
		},
		logger: logger.Named("ws"),
	}
}

// HandleTerminal upgrades HTTP to WebSocket and serves a terminal session
// on it. It returns once the session has closed.
func (r *Router) HandleTerminal(w http.ResponseWriter, req *http.Request) {
	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.logger.Warn("websocket upgrade failed",
			zap.String("remote_addr", req.RemoteAddr),
			zap.Error(err),
		)
		return
	}

	r.logger.Debug("terminal connection accepted", zap.String("remote_addr", req.RemoteAddr))
	if err := r.supervisor.Serve(req.Context(), NewConn(conn)); err != nil {
		r.logger.Warn("terminal session failed",
			zap.String("remote_addr", req.RemoteAddr),
			zap.Error(err),
		)
	}
}

// checkOrigin validates the Origin header against allowed origins.
// Requests without an Origin header come from non-browser clients and
// are left to token auth.
func checkOrigin(r *http.Request, allowed []string) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	// No allowed origins configured - reject all browsers (fail secure)
	if len(allowed) == 0 {
		return false
	}

	for _, a := range allowed {
		if a == origin || a == "*" {
			return true
		}
		// Support wildcard port matching (e.g., "http://localhost:*")
		if strings.HasSuffix(a, ":*") {
			prefix := strings.TrimSuffix(a, "*")
			if remainder, ok := strings.CutPrefix(origin, prefix); ok && isNumeric(remainder) {
				return true
			}
		}
	}
	return false
}

// isNumeric checks if a non-empty string contains only digits
func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
