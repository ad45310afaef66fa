// Package terminal bridges an interactive shell on a pseudo-terminal to a
// remote duplex text channel.
//
// Each accepted channel gets its own Session: a sandbox directory, a
// terminal pair and a shell in its own process group. Output and input are
// pumped by two independent goroutines. The first condition that ends
// either of them (shell exit, terminal hangup, client disconnect, a panic
// or server shutdown) starts a single teardown that releases every
// resource in reverse order of acquisition.
package terminal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hyper-ai-inc/terminal-backend/internal/config"
	"github.com/hyper-ai-inc/terminal-backend/internal/metrics"
	"github.com/hyper-ai-inc/terminal-backend/internal/sandbox"
	"github.com/hyper-ai-inc/terminal-backend/internal/sessions"
)

const (
	defaultPollInterval   = 10 * time.Millisecond
	defaultReadBufferSize = 10240
)

// Supervisor serves terminal sessions over accepted channels.
type Supervisor struct {
	cfg       config.TerminalConfig
	sandboxes *sandbox.Provisioner
	registry  *sessions.Manager
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// NewSupervisor creates a supervisor. A nil registry, metrics or logger is
// replaced with a private or no-op one.
func NewSupervisor(cfg config.TerminalConfig, registry *sessions.Manager, m *metrics.Metrics, logger *zap.Logger) *Supervisor {
	if registry == nil {
		registry = sessions.NewManager()
	}
	if m == nil {
		m = metrics.New(nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.ReadBufferSize <= 0 {
		cfg.ReadBufferSize = defaultReadBufferSize
	}

	return &Supervisor{
		cfg: cfg,
		sandboxes: sandbox.NewProvisioner(sandbox.Config{
			Root:   cfg.ScratchRoot,
			Prefix: cfg.SandboxPrefix,
			Term:   cfg.Term,
			Lang:   cfg.Lang,
		}),
		registry: registry,
		metrics:  m,
		logger:   logger.Named("terminal"),
	}
}

// Registry returns the manager tracking this supervisor's sessions
func (sv *Supervisor) Registry() *sessions.Manager {
	return sv.registry
}

// Serve runs one session over ch and returns once it is Closed. The
// channel is always closed on return.
//
// A startup failure is returned wrapped in ErrResource or ErrLaunch.
// Every steady-state ending, including client disconnect, returns nil.
// Cancelling ctx terminates the session.
func (sv *Supervisor) Serve(ctx context.Context, ch Channel) error {
	sess := newSession(sv, ch)

	release, err := sv.registry.Track(sess)
	if err != nil {
		ch.Close()
		return fmt.Errorf("%w: %v", ErrShuttingDown, err)
	}
	defer release()

	sv.metrics.SessionsActive.Inc()
	defer sv.metrics.SessionsActive.Dec()

	err = sess.run(ctx)
	sv.metrics.SessionsTotal.WithLabelValues(resultLabel(err)).Inc()
	return err
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return metrics.ResultOK
	case errors.Is(err, ErrLaunch):
		return metrics.ResultLaunchError
	default:
		return metrics.ResultResourceError
	}
}
