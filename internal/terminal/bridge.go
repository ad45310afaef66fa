package terminal

import (
	"context"

	"go.uber.org/zap"

	"github.com/hyper-ai-inc/terminal-backend/internal/metrics"
)

// guard runs one flow, converting a panic into a termination trigger
// instead of letting it take the process down.
func (s *Session) guard(ctx context.Context, flow string, fn func(context.Context)) {
	defer s.flows.Done()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("flow panicked",
				zap.String("flow", flow),
				zap.Any("panic", r),
				zap.Stack("stack"),
			)
			s.requestTermination(TriggerFlowPanic)
		}
	}()
	fn(ctx)
}

// pumpOutput relays terminal output to the channel, one message per read.
// It waits for readiness in short slices so cancellation is seen promptly.
func (s *Session) pumpOutput(ctx context.Context) {
	buf := make([]byte, s.cfg.ReadBufferSize)
	var dec textDecoder

	for ctx.Err() == nil {
		ready, err := s.pair.WaitReadable(s.cfg.PollInterval)
		if err != nil {
			s.endFlow(ctx, TriggerOutputClosed, err)
			return
		}
		if !ready {
			if s.proc.Exited() {
				s.endFlow(ctx, TriggerProcessExited, nil)
				return
			}
			continue
		}

		n, err := s.pair.Read(buf)
		if n > 0 {
			s.metrics.Bytes.WithLabelValues(metrics.DirectionOutput).Add(float64(n))
			if text := dec.Decode(buf[:n]); text != "" {
				if werr := s.channel.WriteMessage(text); werr != nil {
					s.endFlow(ctx, TriggerChannelClosed, werr)
					return
				}
			}
		}
		if err != nil || n == 0 {
			if tail := dec.Flush(); tail != "" {
				_ = s.channel.WriteMessage(tail)
			}
			s.endFlow(ctx, TriggerOutputClosed, err)
			return
		}
	}
}

// pumpInput relays channel messages to the terminal. Control frames are
// consumed here and never reach the shell.
func (s *Session) pumpInput(ctx context.Context) {
	for {
		msg, err := s.channel.ReadMessage(ctx)
		if err != nil {
			s.endFlow(ctx, TriggerChannelClosed, err)
			return
		}

		if IsControlFrame(msg) {
			s.applyControlFrame(msg)
			continue
		}

		n, err := s.pair.Write([]byte(msg))
		s.metrics.Bytes.WithLabelValues(metrics.DirectionInput).Add(float64(n))
		if err != nil {
			s.endFlow(ctx, TriggerInputClosed, err)
			return
		}
	}
}

// applyControlFrame handles a resize frame. Failures are logged and
// otherwise ignored.
func (s *Session) applyControlFrame(msg string) {
	r, err := ParseResize(msg)
	if err != nil {
		s.metrics.ControlFrames.WithLabelValues("malformed").Inc()
		s.logger.Warn("ignoring control frame", zap.Error(err))
		return
	}
	if err := s.pair.Resize(r.Cols, r.Rows); err != nil {
		s.metrics.ControlFrames.WithLabelValues("failed").Inc()
		s.logger.Warn("resize failed", zap.Stringer("size", r), zap.Error(err))
		return
	}

	s.mu.Lock()
	s.geometry = r
	s.mu.Unlock()
	s.metrics.ControlFrames.WithLabelValues("applied").Inc()
	s.logger.Debug("terminal resized", zap.Stringer("size", r))
}

// endFlow reports a flow's end. Errors seen after teardown has begun are
// expected and not logged.
func (s *Session) endFlow(ctx context.Context, trigger Trigger, err error) {
	if err != nil && ctx.Err() == nil {
		s.logger.Debug("flow ended", zap.String("trigger", string(trigger)), zap.Error(err))
	}
	s.requestTermination(trigger)
}
