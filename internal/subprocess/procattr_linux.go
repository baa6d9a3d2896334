//go:build linux

package subprocess

import (
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// setProcAttr asks the kernel to SIGKILL the worker when the host dies.
// The signal is tied to the spawning OS thread, so it is a backstop for
// Close, not a replacement.
func setProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Pdeathsig: unix.SIGKILL}
}
