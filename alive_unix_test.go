//go:build unix

package sidecar

import "golang.org/x/sys/unix"

// processAlive reports whether pid still names a process (zombies included).
func processAlive(pid int) bool {
	return unix.Kill(pid, 0) == nil
}
