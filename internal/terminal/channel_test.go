package terminal

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"
)

var errChannelClosed = errors.New("channel closed")

// fakeChannel is an in-memory Channel. Tests push inbound messages with
// Send and inspect everything the session wrote with Output.
type fakeChannel struct {
	in     chan string
	gone   chan struct{} // remote side hung up
	closed chan struct{} // local Close

	goneOnce  sync.Once
	closeOnce sync.Once

	mu      sync.Mutex
	out     []string
	closes  int
	panicOn string
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{
		in:     make(chan string, 64),
		gone:   make(chan struct{}),
		closed: make(chan struct{}),
	}
}

func (c *fakeChannel) ReadMessage(ctx context.Context) (string, error) {
	select {
	case msg := <-c.in:
		c.mu.Lock()
		trap := c.panicOn
		c.mu.Unlock()
		if trap != "" && msg == trap {
			panic("inbound trap: " + msg)
		}
		return msg, nil
	case <-c.gone:
		return "", io.EOF
	case <-c.closed:
		return "", errChannelClosed
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (c *fakeChannel) WriteMessage(msg string) error {
	select {
	case <-c.closed:
		return errChannelClosed
	case <-c.gone:
		return io.ErrClosedPipe
	default:
	}
	c.mu.Lock()
	c.out = append(c.out, msg)
	c.mu.Unlock()
	return nil
}

func (c *fakeChannel) Close() error {
	c.mu.Lock()
	c.closes++
	c.mu.Unlock()
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

// Send queues an inbound message
func (c *fakeChannel) Send(msg string) {
	c.in <- msg
}

// Disconnect simulates the remote side going away
func (c *fakeChannel) Disconnect() {
	c.goneOnce.Do(func() { close(c.gone) })
}

func (c *fakeChannel) Output() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return strings.Join(c.out, "")
}

func (c *fakeChannel) Messages() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.out...)
}

func (c *fakeChannel) IsClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

// waitForOutput waits until the collected output contains want
func (c *fakeChannel) waitForOutput(t *testing.T, want string, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if strings.Contains(c.Output(), want) {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %q, got %q", want, c.Output())
}
