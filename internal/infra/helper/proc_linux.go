//go:build linux

package helper

import (
	"os/exec"
	"syscall"
)

// configureSysProcAttr makes the kernel deliver SIGTERM to the helper
// when the launcher dies, so a crashed launcher cannot orphan it.
func configureSysProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Pdeathsig: syscall.SIGTERM}
}
