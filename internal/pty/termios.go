//go:build linux || darwin || freebsd || netbsd || openbsd || dragonfly

package pty

import (
	"os"

	"golang.org/x/sys/unix"
)

func disableEcho(tty *os.File) error {
	var opErr error
	err := withFd(tty, func(fd int) {
		termios, err := unix.IoctlGetTermios(fd, ioctlGetTermios)
		if err != nil {
			opErr = err
			return
		}
		termios.Lflag &^= unix.ECHO
		opErr = unix.IoctlSetTermios(fd, ioctlSetTermios, termios)
	})
	if err != nil {
		return err
	}
	return opErr
}

func echoEnabled(tty *os.File) (bool, error) {
	var enabled bool
	var opErr error
	err := withFd(tty, func(fd int) {
		termios, err := unix.IoctlGetTermios(fd, ioctlGetTermios)
		if err != nil {
			opErr = err
			return
		}
		enabled = termios.Lflag&unix.ECHO != 0
	})
	if err != nil {
		return false, err
	}
	return enabled, opErr
}

// withFd borrows the raw descriptor through SyscallConn. Unlike Fd(), this
// leaves the file in non-blocking mode so it stays on the runtime poller.
func withFd(f *os.File, fn func(fd int)) error {
	rc, err := f.SyscallConn()
	if err != nil {
		return err
	}
	return rc.Control(func(fd uintptr) {
		fn(int(fd))
	})
}
