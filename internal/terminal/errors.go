package terminal

import "errors"

var (
	// ErrResource means a terminal pair, sandbox directory or descriptor
	// could not be allocated. The session is abandoned before launch.
	ErrResource = errors.New("resource error")
	// ErrLaunch means the shell executable is missing or would not start.
	ErrLaunch = errors.New("launch error")
	// ErrChannel means the remote channel disconnected or a send failed.
	// Sessions treat it as a normal termination trigger.
	ErrChannel = errors.New("channel error")
	// ErrControlFrame means an inbound control frame was malformed.
	// It is always absorbed.
	ErrControlFrame = errors.New("malformed control frame")
	// ErrShuttingDown is returned by Serve once the server has begun
	// shutting down and no longer accepts sessions.
	ErrShuttingDown = errors.New("server shutting down")
)
