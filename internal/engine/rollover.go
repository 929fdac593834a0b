package engine

import (
	"context"
	"time"

	"pennywise/internal/metrics"
)

// rolloverLoop is the armed/idle state machine for the midnight fold. One
// timer is armed to the next local midnight; a daily-limit change cancels
// and re-arms it, since both the delay and the eventual unused-amount
// computation depend on the limit. Session end cancels the pending timer
// with no partial effect; a midnight missed while no session was running
// is not caught up.
func (e *Engine) rolloverLoop(ctx context.Context) {
	for {
		now := e.clock.Now()
		boundary := nextMidnight(now)
		t := e.clock.NewTimer(boundary.Sub(now))

		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-e.rearmRollover:
			t.Stop()
		case <-t.C():
			e.foldRollover(boundary)
		}
	}
}

// signalRearm nudges the rollover loop to recompute its timer.
func (e *Engine) signalRearm() {
	select {
	case e.rearmRollover <- struct{}{}:
	default:
	}
}

// foldRollover folds the expiring day's unused allowance into the rollover
// pool, capped at three days of budget. The spend total is evaluated
// against the instant just before the boundary so the fold always sees the
// day that is ending, never the fresh one.
func (e *Engine) foldRollover(boundary time.Time) {
	asOf := boundary.Add(-time.Nanosecond)

	e.mu.Lock()
	unused := e.snap.DailyLimit - metrics.TodaySpent(e.snap, asOf)
	if unused > 0 {
		rollover := e.snap.RolloverBudget + unused
		if limit := e.snap.RolloverCap(); rollover > limit {
			rollover = limit
		}
		e.snap.RolloverBudget = rollover
	}
	e.mu.Unlock()

	e.persist()
}

// nextMidnight returns the first local midnight strictly after now.
func nextMidnight(now time.Time) time.Time {
	now = now.Local()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, 1)
}
