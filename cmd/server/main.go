package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/hyper-ai-inc/terminal-backend/internal/auth"
	"github.com/hyper-ai-inc/terminal-backend/internal/config"
	"github.com/hyper-ai-inc/terminal-backend/internal/logging"
	"github.com/hyper-ai-inc/terminal-backend/internal/metrics"
	"github.com/hyper-ai-inc/terminal-backend/internal/sessions"
	"github.com/hyper-ai-inc/terminal-backend/internal/terminal"
	"github.com/hyper-ai-inc/terminal-backend/internal/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server := NewServer(cfg, logger)
	httpServer := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server",
			zap.String("addr", httpServer.Addr),
			zap.String("shell", cfg.Terminal.Shell),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down", zap.Int("sessions", server.sessions.Count()))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	// Terminal connections are hijacked, so http.Server.Shutdown does not
	// wait for them; the session manager does.
	return errors.Join(
		httpServer.Shutdown(shutdownCtx),
		server.Shutdown(shutdownCtx),
	)
}

type Server struct {
	sessions   *sessions.Manager
	supervisor *terminal.Supervisor
	wsRouter   *ws.Router
	auth       *auth.Middleware
	registry   *prometheus.Registry
	logger     *zap.Logger
}

func NewServer(cfg *config.Config, logger *zap.Logger) *Server {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	sm := sessions.NewManager()
	sup := terminal.NewSupervisor(cfg.Terminal, sm, metrics.New(registry), logger)

	return &Server{
		sessions:   sm,
		supervisor: sup,
		wsRouter:   ws.NewRouter(sup, cfg.Security.AllowedOrigins, logger),
		auth:       auth.NewMiddleware(cfg.Security.APIToken),
		registry:   registry,
		logger:     logger,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{Registry: s.registry}))

	// Terminal
	mux.HandleFunc("GET /api/v1/terminal", s.auth.RequireAuthFunc(s.wsRouter.HandleTerminal))
	mux.HandleFunc("GET /api/v1/terminal/sessions", s.auth.RequireAuthFunc(s.handleListSessions))
	mux.HandleFunc("DELETE /api/v1/terminal/sessions/{sessionId}", s.auth.RequireAuthFunc(s.handleTerminateSession))

	return mux
}

// Shutdown terminates every live terminal session and waits for each to close
func (s *Server) Shutdown(ctx context.Context) error {
	return s.sessions.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"sessions": s.sessions.List(),
	})
}

func (s *Server) handleTerminateSession(w http.ResponseWriter, r *http.Request) {
	sessionId := r.PathValue("sessionId")
	if err := s.sessions.Terminate(sessionId); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	s.logger.Info("session termination requested", zap.String("session_id", sessionId))
	w.WriteHeader(http.StatusNoContent)
}
