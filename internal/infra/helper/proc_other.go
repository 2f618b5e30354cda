//go:build !linux && !windows

package helper

import "os/exec"

// configureSysProcAttr is a no-op outside Linux; the parent-death
// signal is a Linux-only kernel feature.
func configureSysProcAttr(_ *exec.Cmd) {}
