//go:build darwin || linux

package proc

import (
	"errors"
	"os"
	"syscall"
)

// detachAttr puts the child in its own session so it is not killed when the
// bootstrap's controlling terminal goes away.
func detachAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setsid: true}
}

// IsAlive reports whether pid refers to a live process. The probe sends
// signal 0, which performs permission and existence checks without delivering
// anything. EPERM means the process exists but belongs to another user, so it
// counts as alive.
func IsAlive(pid int) bool {
	if pid <= 0 {
		return false
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		// On unix FindProcess always succeeds, but keep the check.
		return false
	}

	err = process.Signal(syscall.Signal(0))
	if err == nil {
		return true
	}
	if errors.Is(err, syscall.EPERM) {
		return true
	}
	return false
}
