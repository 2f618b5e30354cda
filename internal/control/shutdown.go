package control

import (
	"context"
	"fmt"

	"github.com/vietddude/launcher/internal/metrics"
)

// Shutdown tears the launcher down: stop transfers, close the realtime
// socket, take the helper down, release the instance lock. It runs at
// most once regardless of how startup went; later calls return
// immediately. A failed step is logged and reported, then the process
// is forced out with a non-zero status so nothing half-stopped lingers.
func (s *Shell) Shutdown(ctx context.Context) {
	s.shutdownOnce.Do(func() {
		s.shutdown(ctx)
	})
}

func (s *Shell) shutdown(ctx context.Context) {
	s.log.Info("Shutting down")

	steps := []struct {
		name string
		run  func() error
	}{
		{"downloads", func() error {
			if s.deps.Downloads == nil {
				return nil
			}
			return s.deps.Downloads.StopAll(ctx)
		}},
		{"realtime", func() error {
			if s.deps.Realtime == nil {
				return nil
			}
			return s.deps.Realtime.Close()
		}},
		{"helper", func() error {
			if s.deps.Helper == nil {
				return nil
			}
			return s.deps.Helper.Kill(ctx)
		}},
		{"lock", func() error {
			return s.deps.Lock.Release()
		}},
	}

	for _, step := range steps {
		if err := step.run(); err != nil {
			metrics.ShutdownStepErrors.WithLabelValues(step.name).Inc()
			s.log.Error("Shutdown step failed, forcing exit", "step", step.name, "error", err)
			if s.deps.Reporter != nil {
				if _, recErr := s.deps.Reporter.Record(string(s.State()), fmt.Errorf("shutdown step %s: %w", step.name, err), s.Errors()); recErr != nil {
					s.log.Error("Failed to write failure report", "error", recErr)
				}
			}
			s.exit(1)
			return
		}
		s.log.Debug("Shutdown step complete", "step", step.name)
	}

	s.log.Info("Shutdown complete")
}
