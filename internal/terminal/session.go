package terminal

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyper-ai-inc/terminal-backend/internal/config"
	"github.com/hyper-ai-inc/terminal-backend/internal/metrics"
	"github.com/hyper-ai-inc/terminal-backend/internal/pty"
	"github.com/hyper-ai-inc/terminal-backend/internal/sandbox"
	"github.com/hyper-ai-inc/terminal-backend/internal/sessions"
)

// State is a session's lifecycle stage. It only moves forward.
type State int32

const (
	StateProvisioning State = iota
	StateRunning
	StateTerminating
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateProvisioning:
		return "provisioning"
	case StateRunning:
		return "running"
	case StateTerminating:
		return "terminating"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Trigger names the condition that moved a session to Terminating.
type Trigger string

const (
	TriggerOutputClosed  Trigger = "output_closed"  // terminal returned EOF or an error
	TriggerInputClosed   Trigger = "input_closed"   // terminal rejected a keystroke write
	TriggerChannelClosed Trigger = "channel_closed" // remote disconnect or send failure
	TriggerProcessExited Trigger = "process_exited"
	TriggerFlowPanic     Trigger = "flow_panic"
	TriggerShutdown      Trigger = "shutdown"
	TriggerStartupFailed Trigger = "startup_failed"
)

// Session is one shell bridged to one channel. It is created by
// Supervisor.Serve and never reused.
type Session struct {
	id        string
	startedAt time.Time
	cfg       config.TerminalConfig
	channel   Channel
	sandboxes *sandbox.Provisioner
	metrics   *metrics.Metrics
	logger    *zap.Logger

	// Owned by the goroutine running Serve. Set before the flows start.
	sandbox *sandbox.Sandbox
	pair    *pty.Pair
	proc    *pty.Process

	state       atomic.Int32
	terminating atomic.Bool
	trigger     Trigger // written once by the winning requestTermination
	terminate   chan struct{}
	closed      chan struct{}

	cancelFlows  context.CancelFunc
	flows        sync.WaitGroup
	teardownOnce sync.Once

	mu       sync.Mutex
	info     sessions.Info
	geometry Resize
}

func newSession(sup *Supervisor, ch Channel) *Session {
	id := uuid.NewString()
	now := time.Now()
	return &Session{
		id:        id,
		startedAt: now,
		cfg:       sup.cfg,
		channel:   ch,
		sandboxes: sup.sandboxes,
		metrics:   sup.metrics,
		logger:    sup.logger.With(zap.String("session_id", id)),
		terminate: make(chan struct{}),
		closed:    make(chan struct{}),
		info:      sessions.Info{ID: id, StartedAt: now},
	}
}

// ID returns the session's unique id
func (s *Session) ID() string {
	return s.id
}

// State returns the current lifecycle state
func (s *Session) State() State {
	return State(s.state.Load())
}

// Info returns a snapshot for the session registry
func (s *Session) Info() sessions.Info {
	s.mu.Lock()
	info := s.info
	info.Cols, info.Rows = s.geometry.Cols, s.geometry.Rows
	s.mu.Unlock()
	info.State = s.State().String()
	return info
}

// Terminate asks the session to shut down. It returns immediately;
// wait on Closed for teardown to finish.
func (s *Session) Terminate() {
	s.requestTermination(TriggerShutdown)
}

// Closed is closed once every session resource has been released
func (s *Session) Closed() <-chan struct{} {
	return s.closed
}

// requestTermination moves the session to Terminating. Only the first
// caller wins and it reports true; later calls are no-ops.
func (s *Session) requestTermination(trigger Trigger) bool {
	if !s.terminating.CompareAndSwap(false, true) {
		return false
	}
	s.trigger = trigger
	s.state.Store(int32(StateTerminating))
	s.metrics.Triggers.WithLabelValues(string(trigger)).Inc()
	s.logger.Info("session terminating", zap.String("trigger", string(trigger)))
	close(s.terminate)
	return true
}

// run drives the session from Provisioning to Closed.
func (s *Session) run(ctx context.Context) error {
	s.logger.Info("session provisioning")

	if err := s.start(); err != nil {
		s.requestTermination(TriggerStartupFailed)
		<-s.terminate
		s.logger.Error("session startup failed", zap.Error(err))
		if errors.Is(err, ErrLaunch) {
			s.sendDiagnostic(err)
		}
		s.teardown()
		return err
	}

	flowCtx, cancel := context.WithCancel(context.Background())
	s.cancelFlows = cancel
	s.flows.Add(2)
	go s.guard(flowCtx, "output", s.pumpOutput)
	go s.guard(flowCtx, "input", s.pumpInput)

	s.state.CompareAndSwap(int32(StateProvisioning), int32(StateRunning))
	s.logger.Info("session running",
		zap.Int("pid", s.proc.Pid()),
		zap.String("sandbox", s.sandbox.Path),
		zap.String("tty", s.pair.Name()),
	)

	stop := context.AfterFunc(ctx, func() {
		s.requestTermination(TriggerShutdown)
	})
	defer stop()

	<-s.terminate
	s.teardown()
	return nil
}

// start acquires the sandbox, the terminal pair and the shell, in that
// order. Whatever was acquired before a failure is left for teardown.
func (s *Session) start() error {
	sb, err := s.sandboxes.Provision()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrResource, err)
	}
	s.sandbox = sb
	s.mu.Lock()
	s.info.SandboxPath = sb.Path
	s.mu.Unlock()

	pair, err := pty.Allocate()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrResource, err)
	}
	s.pair = pair

	proc, err := pty.Launch(pair, pty.Command{
		Path: s.cfg.Shell,
		Args: s.cfg.ShellArgs,
		Dir:  sb.Path,
		Env:  sb.Env,
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrLaunch, err)
	}
	s.proc = proc
	s.mu.Lock()
	s.info.PID = proc.Pid()
	s.mu.Unlock()

	return nil
}

// sendDiagnostic writes one best-effort error line to the client before
// the channel is closed.
func (s *Session) sendDiagnostic(err error) {
	msg := fmt.Sprintf("failed to start shell %q: %v\r\n", s.cfg.Shell, err)
	if werr := s.channel.WriteMessage(msg); werr != nil {
		s.logger.Debug("diagnostic not delivered", zap.Error(werr))
	}
}

// teardown releases everything the session holds, newest first. Each step
// runs even when an earlier one fails.
func (s *Session) teardown() {
	s.teardownOnce.Do(func() {
		started := time.Now()

		if s.cancelFlows != nil {
			s.cancelFlows()
		}
		s.release("terminate shell", s.stopProcess)
		s.release("close terminal", s.closePair)
		s.release("dispose sandbox", s.disposeSandbox)
		s.release("close channel", s.channel.Close)
		s.flows.Wait()

		s.state.Store(int32(StateClosed))
		close(s.closed)

		elapsed := time.Since(started)
		s.metrics.TeardownSeconds.Observe(elapsed.Seconds())
		s.logger.Info("session closed",
			zap.String("trigger", string(s.trigger)),
			zap.Duration("teardown", elapsed),
			zap.Duration("lifetime", time.Since(s.startedAt)),
		)
	})
}

func (s *Session) release(step string, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("release panicked", zap.String("step", step), zap.Any("panic", r))
		}
	}()
	if err := fn(); err != nil {
		s.logger.Warn("release failed", zap.String("step", step), zap.Error(err))
	}
}

func (s *Session) stopProcess() error {
	if s.proc == nil {
		return nil
	}
	forced, err := s.proc.Terminate(s.cfg.GracePeriod)
	if forced {
		s.metrics.ForceKills.Inc()
		s.logger.Warn("shell outlived grace period, killed",
			zap.Int("pid", s.proc.Pid()),
			zap.Duration("grace", s.cfg.GracePeriod),
		)
	}
	return err
}

func (s *Session) closePair() error {
	if s.pair == nil {
		return nil
	}
	return s.pair.Close()
}

func (s *Session) disposeSandbox() error {
	if s.sandbox == nil {
		return nil
	}
	return s.sandboxes.Dispose(s.sandbox)
}
