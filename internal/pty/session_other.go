//go:build !linux

package pty

type member struct {
	pid  int
	pgid int
}

// sessionMembers cannot list a session without /proc; callers fall back
// to the shell's own process group.
func sessionMembers(sid int) ([]member, bool) {
	return nil, false
}
