package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

type countingReports struct {
	calls chan struct{}
	err   error
}

func (c *countingReports) Prune() (int, error) {
	c.calls <- struct{}{}
	return 1, c.err
}

func waitPrune(t *testing.T, calls chan struct{}) {
	t.Helper()
	select {
	case <-calls:
	case <-time.After(5 * time.Second):
		t.Fatal("expected a prune call")
	}
}

func TestPrunerRunsImmediatelyThenOnCadence(t *testing.T) {
	clock := clockwork.NewFakeClock()
	reports := &countingReports{calls: make(chan struct{}, 10)}
	p := NewPruner(reports, time.Hour, clock)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Start(ctx)

	waitPrune(t, reports.calls)

	// Retention 1h prunes every 6m.
	clock.BlockUntil(1)
	clock.Advance(6 * time.Minute)
	waitPrune(t, reports.calls)
}

func TestPrunerDisabledWithoutRetention(t *testing.T) {
	clock := clockwork.NewFakeClock()
	reports := &countingReports{calls: make(chan struct{}, 1)}
	p := NewPruner(reports, 0, clock)

	p.Start(context.Background())

	select {
	case <-reports.calls:
		t.Error("disabled pruner must not prune")
	default:
	}
}

func TestPrunerSurvivesErrors(t *testing.T) {
	clock := clockwork.NewFakeClock()
	reports := &countingReports{calls: make(chan struct{}, 10), err: errors.New("disk gone")}
	p := NewPruner(reports, time.Hour, clock)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Start(ctx)

	waitPrune(t, reports.calls)

	// The loop keeps going after a failed prune.
	clock.BlockUntil(1)
	clock.Advance(6 * time.Minute)
	waitPrune(t, reports.calls)
}
