package terminal

import "context"

// Channel is the long-lived duplex text channel a session is served over.
//
// ReadMessage blocks until the next inbound message arrives, the channel
// closes, or ctx is done. WriteMessage is only ever called from one
// goroutine at a time. Close must be safe to call more than once and must
// unblock a pending ReadMessage.
type Channel interface {
	ReadMessage(ctx context.Context) (string, error)
	WriteMessage(msg string) error
	Close() error
}
