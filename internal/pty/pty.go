package pty

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/creack/pty"
	"golang.org/x/sys/unix"
)

var (
	ErrResource = errors.New("terminal pair unavailable")
	ErrLaunch   = errors.New("shell launch failed")
)

// Pair is a controller/subordinate pseudo-terminal pair.
// The subordinate end is handed to the shell by Launch and closed here
// once the child owns it.
type Pair struct {
	controller  *os.File
	subordinate *os.File

	mu                sync.Mutex
	closed            bool
	subordinateClosed bool
}

// Allocate opens a new terminal pair with local echo disabled on the
// subordinate side. The shell's own line editor does the echoing.
func Allocate() (*Pair, error) {
	controller, subordinate, err := pty.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: open pty: %v", ErrResource, err)
	}
	if err := disableEcho(subordinate); err != nil {
		subordinate.Close()
		controller.Close()
		return nil, fmt.Errorf("%w: disable echo: %v", ErrResource, err)
	}
	return &Pair{
		controller:  controller,
		subordinate: subordinate,
	}, nil
}

// Name returns the subordinate device path
func (p *Pair) Name() string {
	return p.subordinate.Name()
}

// WaitReadable waits up to timeout for output on the controller side.
// It reports true when a Read will not block, including hangup and error
// conditions, which the following Read surfaces.
func (p *Pair) WaitReadable(timeout time.Duration) (bool, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return false, os.ErrClosed
	}
	file := p.controller
	p.mu.Unlock()

	ms := int(timeout / time.Millisecond)
	if ms < 1 {
		ms = 1
	}

	var ready bool
	var pollErr error
	err := withFd(file, func(fd int) {
		fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
		n, err := unix.Poll(fds, ms)
		if err != nil {
			if err != unix.EINTR {
				pollErr = err
			}
			return
		}
		ready = n > 0 && fds[0].Revents != 0
	})
	if err != nil {
		return false, err
	}
	return ready, pollErr
}

// Read reads from the controller side
func (p *Pair) Read(buf []byte) (int, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return 0, os.ErrClosed
	}
	file := p.controller
	p.mu.Unlock()

	return file.Read(buf)
}

// Write writes keystrokes to the controller side
func (p *Pair) Write(data []byte) (int, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return 0, os.ErrClosed
	}
	file := p.controller
	p.mu.Unlock()

	return file.Write(data)
}

// Resize changes the terminal window size
func (p *Pair) Resize(cols, rows uint16) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return os.ErrClosed
	}

	return pty.Setsize(p.controller, &pty.Winsize{
		Cols: cols,
		Rows: rows,
	})
}

// Size returns the current window size as (cols, rows)
func (p *Pair) Size() (uint16, uint16, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return 0, 0, os.ErrClosed
	}

	ws, err := pty.GetsizeFull(p.controller)
	if err != nil {
		return 0, 0, err
	}
	return ws.Cols, ws.Rows, nil
}

// CloseSubordinate releases this process's copy of the subordinate end.
func (p *Pair) CloseSubordinate() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.subordinateClosed {
		return nil
	}
	p.subordinateClosed = true
	return p.subordinate.Close()
}

// Close closes both ends if still open. Safe to call more than once.
func (p *Pair) Close() error {
	subErr := p.CloseSubordinate()

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return subErr
	}
	p.closed = true

	return errors.Join(p.controller.Close(), subErr)
}

// Closed reports whether the controller side has been closed
func (p *Pair) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}
