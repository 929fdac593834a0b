// Package metrics computes read-only projections over a budget snapshot.
// Every function is pure: deterministic given the same snapshot and clock
// reading, no I/O, no mutation.
package metrics

import (
	"time"

	"pennywise/internal/model"
)

// sameLocalDay reports whether a and b fall on the same calendar date in
// local time. Comparing date components keeps the check invariant to
// timezone representations that preserve the calendar date.
func sameLocalDay(a, b time.Time) bool {
	ay, am, ad := a.Local().Date()
	by, bm, bd := b.Local().Date()
	return ay == by && am == bm && ad == bd
}

// TodaySpent sums transaction amounts whose local calendar date is today.
func TodaySpent(snap model.Snapshot, now time.Time) float64 {
	var sum float64
	for _, t := range snap.Transactions {
		if sameLocalDay(t.Date, now) {
			sum += t.Amount
		}
	}
	return sum
}

// WeekSpent sums transaction amounts with timestamp >= now-7d. The lower
// bound is inclusive and rolls with the clock; it is deliberately NOT
// truncated to a day boundary, unlike TodaySpent.
func WeekSpent(snap model.Snapshot, now time.Time) float64 {
	weekAgo := now.AddDate(0, 0, -7)
	var sum float64
	for _, t := range snap.Transactions {
		if !t.Date.Before(weekAgo) {
			sum += t.Amount
		}
	}
	return sum
}

// HasReflectedToday reports whether any reflection's local calendar date
// equals today's.
func HasReflectedToday(snap model.Snapshot, now time.Time) bool {
	for _, r := range snap.Reflections {
		if sameLocalDay(r.Date, now) {
			return true
		}
	}
	return false
}

// AvailableToday is the daily limit plus the rollover pool. No clamp
// against zero: a negative disposable income shows as negative headroom.
func AvailableToday(snap model.Snapshot) float64 {
	return snap.DailyLimit + snap.RolloverBudget
}

// CategoryRemaining returns max(0, limit-spent) for the category, or 0
// when no limit is configured. Callers that need to tell "over limit"
// apart from "no limit" should check HasCategoryLimit.
func CategoryRemaining(snap model.Snapshot, category string) float64 {
	cl, ok := snap.CategoryLimits[category]
	if !ok {
		return 0
	}
	remaining := cl.MonthlyLimit - cl.Spent
	if remaining < 0 {
		return 0
	}
	return remaining
}

// HasCategoryLimit reports whether a monthly limit is configured for the
// category.
func HasCategoryLimit(snap model.Snapshot, category string) bool {
	_, ok := snap.CategoryLimits[category]
	return ok
}

// TotalSaved sums the current amount across all goals.
func TotalSaved(snap model.Snapshot) float64 {
	var sum float64
	for _, g := range snap.Goals {
		sum += g.Current
	}
	return sum
}

// CooldownRemaining returns how long until a waiting wishlist item's
// cooldown elapses. Zero or negative means the item is ready.
func CooldownRemaining(item model.WishlistItem, now time.Time) time.Duration {
	ready := item.AddedDate.AddDate(0, 0, item.CooldownDays)
	return ready.Sub(now)
}
