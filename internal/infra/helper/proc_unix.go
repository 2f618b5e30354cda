//go:build !windows

package helper

// ForceKill delivers an uncatchable kill signal to the spawned
// process.
func (p *realProc) ForceKill() error {
	if p.cmd == nil || p.cmd.Process == nil {
		return nil
	}
	return p.cmd.Process.Kill()
}
