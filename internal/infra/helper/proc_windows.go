//go:build windows

package helper

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

// configureSysProcAttr is a no-op on Windows.
func configureSysProcAttr(_ *exec.Cmd) {}

// ForceKill terminates the helper by image name, taking any child
// processes it spawned down with it.
func (p *realProc) ForceKill() error {
	if p.cmd == nil || p.cmd.Process == nil {
		return nil
	}
	image := filepath.Base(p.binary)
	out, err := exec.Command("taskkill", "/F", "/T", "/IM", image).CombinedOutput()
	if err != nil {
		return fmt.Errorf("taskkill %s: %s: %w", image, strings.TrimSpace(string(out)), err)
	}
	return nil
}
