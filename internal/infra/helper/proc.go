package helper

import (
	"log/slog"
	"os/exec"

	"github.com/vietddude/launcher/internal/core/sentinel"
)

// ErrAlreadyStarted is returned when Start is called while the previous
// process is still running.
const ErrAlreadyStarted = sentinel.Error("helper already started")

// ErrNoBinary is returned when no helper binary is configured.
const ErrNoBinary = sentinel.Error("helper binary not configured")

// realProc runs the helper as a child process. Exactly one Wait
// goroutine is started per spawn; the exited channel is the broadcast
// signal everyone else selects on.
type realProc struct {
	binary string
	args   []string
	log    *slog.Logger

	cmd    *exec.Cmd
	exited chan struct{}
}

func newRealProc(binary string, args ...string) *realProc {
	return &realProc{binary: binary, args: args, log: slog.Default()}
}

// Start spawns a fresh helper process. A previous run that has already
// exited does not block a respawn.
func (p *realProc) Start() error {
	if p.binary == "" {
		return ErrNoBinary
	}
	if p.cmd != nil {
		select {
		case <-p.exited:
			// previous run is gone, spawn a fresh one
		default:
			return ErrAlreadyStarted
		}
	}

	cmd := exec.Command(p.binary, p.args...)
	configureSysProcAttr(cmd)
	if err := cmd.Start(); err != nil {
		return err
	}

	exited := make(chan struct{})
	go func() {
		if err := cmd.Wait(); err != nil {
			p.log.Info("Helper process exited", "reason", err)
		} else {
			p.log.Info("Helper process exited cleanly")
		}
		close(exited)
	}()

	p.cmd = cmd
	p.exited = exited
	return nil
}

func (p *realProc) Started() bool {
	return p.cmd != nil
}

func (p *realProc) Exited() <-chan struct{} {
	return p.exited
}
