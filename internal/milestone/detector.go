// Package milestone detects one-shot celebration events from counter
// thresholds.
package milestone

import (
	"math"
	"sync"

	"pennywise/internal/model"
)

// triggerKey identifies one distinct trigger state. A key that has fired
// once never fires again, which keeps the periodic refresh from replaying
// the same celebration every tick.
type triggerKey struct {
	streakDays      int
	impulsesAvoided int
	savedBucket     int
}

// Detector re-evaluates the milestone table against counter values and
// remembers which trigger states already fired. State lives only for the
// session; nothing is persisted.
type Detector struct {
	mu    sync.Mutex
	fired map[triggerKey]struct{}
}

// NewDetector returns a detector with no fired milestones.
func NewDetector() *Detector {
	return &Detector{fired: make(map[triggerKey]struct{})}
}

// Evaluate selects the highest-priority matching milestone for the given
// counters. It returns false if no milestone matches, or if this exact
// trigger state fired before. The dollar milestones intentionally match a
// one-unit window only; a jump from 99 straight to 105 skips the $100
// milestone, matching the upstream behavior.
func (d *Detector) Evaluate(streakDays int, totalSaved float64, impulsesAvoided int) (model.Milestone, bool) {
	m, ok := match(streakDays, totalSaved, impulsesAvoided)
	if !ok {
		return model.Milestone{}, false
	}

	key := triggerKey{
		streakDays:      streakDays,
		impulsesAvoided: impulsesAvoided,
		savedBucket:     int(math.Floor(totalSaved / 100)),
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, seen := d.fired[key]; seen {
		return model.Milestone{}, false
	}
	d.fired[key] = struct{}{}
	return m, true
}

// Reset forgets all fired milestones. Used at logout.
func (d *Detector) Reset() {
	d.mu.Lock()
	d.fired = make(map[triggerKey]struct{})
	d.mu.Unlock()
}

func match(streakDays int, totalSaved float64, impulsesAvoided int) (model.Milestone, bool) {
	switch {
	case streakDays == 7:
		return model.Milestone{
			ID:      "streak-7",
			Title:   "First Week Streak!",
			Message: "7 days of mindful spending. You're building great habits!",
		}, true
	case streakDays == 30:
		return model.Milestone{
			ID:      "streak-30",
			Title:   "30-Day Champion!",
			Message: "A full month of consistent progress. You're unstoppable!",
		}, true
	case totalSaved >= 100 && totalSaved < 101:
		return model.Milestone{
			ID:      "saved-100",
			Title:   "$100 Saved!",
			Message: "Your first hundred dollars saved. Keep the momentum going!",
		}, true
	case totalSaved >= 500 && totalSaved < 501:
		return model.Milestone{
			ID:      "saved-500",
			Title:   "$500 Milestone!",
			Message: "Halfway to $1,000. Your goals are within reach!",
		}, true
	case impulsesAvoided == 5:
		return model.Milestone{
			ID:      "impulses-5",
			Title:   "5 Impulses Resisted!",
			Message: "You're gaining control over impulse spending. Well done!",
		}, true
	case impulsesAvoided == 20:
		return model.Milestone{
			ID:      "impulses-20",
			Title:   "20 Impulses Avoided!",
			Message: "Your self-control is impressive. Keep it up!",
		}, true
	}
	return model.Milestone{}, false
}
