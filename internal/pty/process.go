package pty

import (
	"errors"
	"fmt"
	"os/exec"
	"slices"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// sessionPollInterval bounds how often lingering session members are checked
// after the shell has been reaped.
const sessionPollInterval = 10 * time.Millisecond

// Command describes the shell to start.
type Command struct {
	Path string
	Args []string
	Dir  string
	Env  []string
}

// Process is a shell running on the subordinate end of a Pair,
// leading its own session and process group.
type Process struct {
	cmd  *exec.Cmd
	pid  int
	done chan struct{}

	mu      sync.Mutex
	waitErr error
}

// Launch starts c attached to the pair's subordinate end as stdin, stdout
// and stderr. The child becomes a session leader with the terminal as its
// controlling tty. The launcher's copy of the subordinate end is closed
// once the child owns it.
func Launch(p *Pair, c Command) (*Process, error) {
	path, err := exec.LookPath(c.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLaunch, err)
	}

	cmd := exec.Command(path, c.Args...)
	cmd.Dir = c.Dir
	cmd.Env = c.Env
	cmd.Stdin = p.subordinate
	cmd.Stdout = p.subordinate
	cmd.Stderr = p.subordinate
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setsid:  true,
		Setctty: true,
		Ctty:    0, // fd 0 in child = subordinate
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: start %s: %v", ErrLaunch, path, err)
	}

	proc := &Process{
		cmd:  cmd,
		pid:  cmd.Process.Pid,
		done: make(chan struct{}),
	}
	go proc.wait()

	// The child has its own copies via fd 0/1/2. Keeping ours open would
	// stop the controller from ever seeing hangup when the shell exits.
	p.CloseSubordinate()

	return proc, nil
}

func (p *Process) wait() {
	err := p.cmd.Wait()
	p.mu.Lock()
	p.waitErr = err
	p.mu.Unlock()
	close(p.done)
}

// Pid returns the shell's process id, which is also its process group id.
func (p *Process) Pid() int {
	return p.pid
}

// Done returns a channel that closes when the shell has exited and been reaped
func (p *Process) Done() <-chan struct{} {
	return p.done
}

// Exited reports whether the shell has exited
func (p *Process) Exited() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// Err returns the wait error once the shell has exited
func (p *Process) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.waitErr
}

// Signal sends sig to every process group in the shell's session. With
// job control on, each background job has a group of its own.
func (p *Process) Signal(sig syscall.Signal) error {
	var errs []error
	for _, pgid := range p.groups() {
		err := unix.Kill(-pgid, sig)
		if err != nil && !errors.Is(err, unix.ESRCH) {
			errs = append(errs, fmt.Errorf("signal process group %d: %w", pgid, err))
		}
	}
	return errors.Join(errs...)
}

// groups returns the shell's own group followed by any other group found
// in its session.
func (p *Process) groups() []int {
	groups := []int{p.pid}
	members, _ := sessionMembers(p.pid)
	for _, m := range members {
		if !slices.Contains(groups, m.pgid) {
			groups = append(groups, m.pgid)
		}
	}
	return groups
}

// Terminate sends SIGHUP and SIGTERM to the session, waits up to grace for
// it to go away, then sends SIGKILL. Interactive shells ignore SIGTERM, so
// the hangup a real terminal disconnect would deliver goes first. It
// reports whether SIGKILL was needed. A failed signal is reported but does
// not stop the sequence.
func (p *Process) Terminate(grace time.Duration) (bool, error) {
	var errs []error
	for _, sig := range []syscall.Signal{syscall.SIGHUP, syscall.SIGTERM} {
		if err := p.Signal(sig); err != nil {
			errs = append(errs, err)
		}
	}
	if p.waitSession(grace) {
		return false, errors.Join(errs...)
	}

	if err := p.Signal(syscall.SIGKILL); err != nil {
		errs = append(errs, err)
	}
	if !p.waitSession(grace) {
		errs = append(errs, fmt.Errorf("session %d still running after SIGKILL", p.pid))
	}
	return true, errors.Join(errs...)
}

// waitSession waits for the shell to be reaped and every other process in
// its session to disappear, up to timeout.
func (p *Process) waitSession(timeout time.Duration) bool {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	select {
	case <-p.done:
	case <-deadline.C:
		return false
	}

	ticker := time.NewTicker(sessionPollInterval)
	defer ticker.Stop()
	for {
		if !p.SessionAlive() {
			return true
		}
		select {
		case <-ticker.C:
		case <-deadline.C:
			return false
		}
	}
}

// SessionAlive reports whether any live process remains in the shell's
// session. Where the session cannot be listed, only the shell's own group
// is checked.
func (p *Process) SessionAlive() bool {
	members, ok := sessionMembers(p.pid)
	if !ok {
		return unix.Kill(-p.pid, 0) == nil
	}
	return len(members) > 0
}
