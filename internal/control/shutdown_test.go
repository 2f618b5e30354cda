package control

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/jonboulle/clockwork"

	"github.com/vietddude/launcher/internal/infra/storage/memory"
)

// teardownLog records shutdown step invocations across fakes.
type teardownLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *teardownLog) add(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, name)
}

func (l *teardownLog) seen() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

type fakeDownloads struct {
	log *teardownLog
	err error
}

func (f *fakeDownloads) StopAll(ctx context.Context) error {
	f.log.add("downloads")
	return f.err
}

type fakeRealtime struct {
	log *teardownLog
	err error
}

func (f *fakeRealtime) Close() error {
	f.log.add("realtime")
	return f.err
}

type fakeHelper struct {
	log *teardownLog
	err error
}

func (f *fakeHelper) Kill(ctx context.Context) error {
	f.log.add("helper")
	return f.err
}

type loggingLock struct {
	fakeLock
	log *teardownLog
}

func (l *loggingLock) Release() error {
	l.log.add("lock")
	return l.fakeLock.Release()
}

func shutdownShell(log *teardownLog, downloads *fakeDownloads, rt *fakeRealtime, h *fakeHelper, reporter *fakeReporter) (*Shell, *[]int) {
	deps := Deps{
		Lock:     &loggingLock{log: log},
		Records:  memory.NewMemoryStorage(),
		Paths:    &fakePaths{},
		Prompter: &scriptPrompter{},
		Reporter: reporter,
	}
	if downloads != nil {
		deps.Downloads = downloads
	}
	if rt != nil {
		deps.Realtime = rt
	}
	if h != nil {
		deps.Helper = h
	}

	shell := NewShell(deps, clockwork.NewFakeClock())
	exits := &[]int{}
	shell.exit = func(code int) { *exits = append(*exits, code) }
	return shell, exits
}

func TestShutdownRunsStepsInOrder(t *testing.T) {
	log := &teardownLog{}
	shell, exits := shutdownShell(log,
		&fakeDownloads{log: log},
		&fakeRealtime{log: log},
		&fakeHelper{log: log},
		&fakeReporter{})

	shell.Shutdown(context.Background())

	want := []string{"downloads", "realtime", "helper", "lock"}
	got := log.seen()
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("step %d: expected %q, got %q", i, want[i], got[i])
		}
	}
	if len(*exits) != 0 {
		t.Errorf("clean shutdown must not force exit, got %v", *exits)
	}
}

func TestShutdownRunsOnce(t *testing.T) {
	log := &teardownLog{}
	shell, _ := shutdownShell(log,
		&fakeDownloads{log: log},
		&fakeRealtime{log: log},
		&fakeHelper{log: log},
		&fakeReporter{})

	shell.Shutdown(context.Background())
	shell.Shutdown(context.Background())

	if got := log.seen(); len(got) != 4 {
		t.Errorf("second shutdown must be a no-op, got %v", got)
	}
}

func TestShutdownStepFailureForcesExit(t *testing.T) {
	log := &teardownLog{}
	reporter := &fakeReporter{}
	shell, exits := shutdownShell(log,
		&fakeDownloads{log: log},
		&fakeRealtime{log: log, err: errors.New("socket wedged")},
		&fakeHelper{log: log},
		reporter)

	shell.Shutdown(context.Background())

	if len(*exits) != 1 || (*exits)[0] != 1 {
		t.Fatalf("expected forced exit(1), got %v", *exits)
	}
	got := log.seen()
	if len(got) != 2 || got[0] != "downloads" || got[1] != "realtime" {
		t.Errorf("later steps must not run after a failure, got %v", got)
	}

	calls := reporter.recorded()
	if len(calls) != 1 {
		t.Fatalf("expected failure report, got %d", len(calls))
	}
	if !strings.Contains(calls[0].trigger.Error(), "shutdown step realtime") {
		t.Errorf("expected failing step in report, got %v", calls[0].trigger)
	}
}

func TestShutdownSkipsAbsentComponents(t *testing.T) {
	log := &teardownLog{}
	shell, exits := shutdownShell(log, nil, nil, nil, &fakeReporter{})

	shell.Shutdown(context.Background())

	got := log.seen()
	if len(got) != 1 || got[0] != "lock" {
		t.Errorf("expected only the lock release, got %v", got)
	}
	if len(*exits) != 0 {
		t.Errorf("absent components are not failures, got %v", *exits)
	}
}

func TestShutdownAfterFailedStartup(t *testing.T) {
	log := &teardownLog{}
	shell, exits := shutdownShell(log,
		&fakeDownloads{log: log},
		&fakeRealtime{log: log},
		&fakeHelper{log: log},
		&fakeReporter{})

	// A startup that never reached Ready still shuts down fully.
	shell.setState(StateFailed)

	shell.Shutdown(context.Background())

	if got := log.seen(); len(got) != 4 {
		t.Errorf("expected full teardown regardless of state, got %v", got)
	}
	if len(*exits) != 0 {
		t.Errorf("unexpected forced exit: %v", *exits)
	}
}
