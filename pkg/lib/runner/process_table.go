//go:build unix

package runner

import (
	"errors"
	"syscall"

	"golang.org/x/sys/unix"
)

type processInfo struct {
	PID         int
	CommandLine string
}

// alive reports whether a process with the given PID exists. EPERM means it
// exists but belongs to another user.
func alive(pid int) bool {
	err := unix.Kill(pid, 0)
	return err == nil || errors.Is(err, unix.EPERM)
}

// detachedSysProcAttr puts the child in a new session so it survives the
// controller and its terminal, and so its PID doubles as its process group ID.
func detachedSysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setsid: true}
}

// signal delivers sig to the process group led by pid when pid leads one,
// otherwise to pid alone.
func signal(pid int, sig syscall.Signal) error {
	if pgid, err := unix.Getpgid(pid); err == nil && pgid == pid {
		if err := unix.Kill(-pid, sig); err == nil || !errors.Is(err, unix.ESRCH) {
			return err
		}
	}
	return unix.Kill(pid, sig)
}
