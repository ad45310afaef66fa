package terminal

import (
	"strings"

	"github.com/prometheus/procfs"
)

// processGone reports whether pid has exited. Zombies count as gone;
// orphaned jobs are reaped by init, not by us.
func processGone(pid int) bool {
	proc, err := procfs.NewProc(pid)
	if err != nil {
		return true
	}
	stat, err := proc.Stat()
	if err != nil {
		return true
	}
	return stat.State == "Z"
}

// openControllers counts the terminal controller fds held by this process
func openControllers() (int, bool) {
	self, err := procfs.Self()
	if err != nil {
		return 0, false
	}
	targets, err := self.FileDescriptorTargets()
	if err != nil {
		return 0, false
	}
	n := 0
	for _, target := range targets {
		if strings.Contains(target, "ptmx") {
			n++
		}
	}
	return n, true
}
