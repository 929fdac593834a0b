package metrics

import (
	"math"
	"testing"
	"time"

	"pennywise/internal/model"
)

func snapWithTxs(txs ...model.Transaction) model.Snapshot {
	return model.Snapshot{Transactions: txs}
}

func TestTodaySpentLocalCalendarDate(t *testing.T) {
	now := time.Date(2025, 6, 15, 14, 0, 0, 0, time.Local)

	snap := snapWithTxs(
		model.Transaction{ID: "a", Amount: 12.50, Date: time.Date(2025, 6, 15, 0, 30, 0, 0, time.Local)},
		model.Transaction{ID: "b", Amount: 7.25, Date: time.Date(2025, 6, 15, 23, 59, 0, 0, time.Local)},
		model.Transaction{ID: "c", Amount: 100, Date: time.Date(2025, 6, 14, 23, 59, 0, 0, time.Local)},
		model.Transaction{ID: "d", Amount: 100, Date: time.Date(2025, 6, 16, 0, 0, 1, 0, time.Local)},
	)

	got := TodaySpent(snap, now)
	if math.Abs(got-19.75) > 1e-9 {
		t.Fatalf("TodaySpent = %.2f, want 19.75", got)
	}
}

func TestTodaySpentTimezoneRepresentation(t *testing.T) {
	// A timestamp stored in a non-local zone still counts as today when
	// its local calendar date matches.
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.Local)
	sameInstant := time.Date(2025, 6, 15, 10, 0, 0, 0, time.Local).UTC()

	snap := snapWithTxs(model.Transaction{ID: "a", Amount: 5, Date: sameInstant})
	if got := TodaySpent(snap, now); got != 5 {
		t.Fatalf("TodaySpent = %.2f, want 5.00", got)
	}
}

func TestWeekSpentInclusiveRollingWindow(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.Local)

	snap := snapWithTxs(
		// Exactly on the boundary: included.
		model.Transaction{ID: "a", Amount: 10, Date: now.AddDate(0, 0, -7)},
		// One second older: excluded. The window rolls with the clock,
		// it is not truncated to a day boundary.
		model.Transaction{ID: "b", Amount: 100, Date: now.AddDate(0, 0, -7).Add(-time.Second)},
		model.Transaction{ID: "c", Amount: 3, Date: now.Add(-time.Hour)},
	)

	if got := WeekSpent(snap, now); got != 13 {
		t.Fatalf("WeekSpent = %.2f, want 13.00", got)
	}
}

func TestAvailableTodayNoClamp(t *testing.T) {
	snap := model.Snapshot{MonthlyIncome: 3000, FixedExpenses: 900, RolloverBudget: 25}
	snap.RecomputeDailyLimit()

	if snap.DailyLimit != 70 {
		t.Fatalf("DailyLimit = %.2f, want 70.00", snap.DailyLimit)
	}
	if got := AvailableToday(snap); got != 95 {
		t.Fatalf("AvailableToday = %.2f, want 95.00", got)
	}

	// Negative disposable income flows straight through.
	snap.MonthlyIncome = 0
	snap.FixedExpenses = 300
	snap.RolloverBudget = 0
	snap.RecomputeDailyLimit()
	if got := AvailableToday(snap); got != -10 {
		t.Fatalf("AvailableToday = %.2f, want -10.00", got)
	}
}

func TestCategoryRemaining(t *testing.T) {
	snap := model.Snapshot{
		CategoryLimits: map[string]model.CategoryLimit{
			"food":      {Category: "food", MonthlyLimit: 400, Spent: 150},
			"transport": {Category: "transport", MonthlyLimit: 100, Spent: 130},
		},
	}

	if got := CategoryRemaining(snap, "food"); got != 250 {
		t.Fatalf("food remaining = %.2f, want 250.00", got)
	}
	// Overspent clamps to zero.
	if got := CategoryRemaining(snap, "transport"); got != 0 {
		t.Fatalf("transport remaining = %.2f, want 0.00", got)
	}
	// Unconfigured reads as zero too; HasCategoryLimit tells them apart.
	if got := CategoryRemaining(snap, "tech"); got != 0 {
		t.Fatalf("tech remaining = %.2f, want 0.00", got)
	}
	if HasCategoryLimit(snap, "tech") {
		t.Fatal("tech unexpectedly has a configured limit")
	}
	if !HasCategoryLimit(snap, "transport") {
		t.Fatal("transport should have a configured limit")
	}
}

func TestHasReflectedToday(t *testing.T) {
	now := time.Date(2025, 6, 15, 22, 0, 0, 0, time.Local)
	snap := model.Snapshot{
		Reflections: []model.Reflection{
			{ID: "r1", Date: time.Date(2025, 6, 14, 21, 0, 0, 0, time.Local)},
		},
	}

	if HasReflectedToday(snap, now) {
		t.Fatal("yesterday's reflection counted as today")
	}

	snap.Reflections = append(snap.Reflections, model.Reflection{
		ID: "r2", Date: time.Date(2025, 6, 15, 8, 0, 0, 0, time.Local),
	})
	if !HasReflectedToday(snap, now) {
		t.Fatal("today's reflection not detected")
	}
}

func TestTotalSaved(t *testing.T) {
	snap := model.Snapshot{
		Goals: []model.Goal{
			{ID: "g1", Current: 40, Target: 100},
			{ID: "g2", Current: 60.5, Target: 500},
		},
	}
	if got := TotalSaved(snap); math.Abs(got-100.5) > 1e-9 {
		t.Fatalf("TotalSaved = %.2f, want 100.50", got)
	}
}

func TestCooldownRemaining(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.Local)
	item := model.WishlistItem{
		AddedDate:    now.AddDate(0, 0, -10),
		CooldownDays: 30,
	}

	got := CooldownRemaining(item, now)
	if got != 20*24*time.Hour {
		t.Fatalf("CooldownRemaining = %v, want 480h", got)
	}

	item.AddedDate = now.AddDate(0, 0, -31)
	if got := CooldownRemaining(item, now); got > 0 {
		t.Fatalf("elapsed cooldown = %v, want <= 0", got)
	}
}
