package pty

import "github.com/prometheus/procfs"

type member struct {
	pid  int
	pgid int
}

// sessionMembers lists the live processes whose session id is sid.
// Zombies are left out: they are already dead and only wait to be reaped.
func sessionMembers(sid int) ([]member, bool) {
	procs, err := procfs.AllProcs()
	if err != nil {
		return nil, false
	}

	var members []member
	for _, proc := range procs {
		stat, err := proc.Stat()
		if err != nil {
			// exited between listing and reading
			continue
		}
		if stat.Session != sid || stat.State == "Z" {
			continue
		}
		members = append(members, member{pid: stat.PID, pgid: stat.PGRP})
	}
	return members, true
}
