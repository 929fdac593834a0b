// Package model defines domain types for the pennywise budget engine.
package model

import "time"

// Transaction is a single logged spend. Immutable once created; the id and
// date always come from the server, never generated locally.
type Transaction struct {
	ID        string    `json:"id"`
	Amount    float64   `json:"amount"`
	Category  string    `json:"category"`
	Date      time.Time `json:"date"`
	IsImpulse bool      `json:"is_impulse"`
	Note      string    `json:"note,omitempty"`
}

// Reflection is an end-of-day check-in. The one-per-day rule is enforced by
// query (metrics.HasReflectedToday), not by this type.
type Reflection struct {
	ID             string    `json:"id"`
	Date           time.Time `json:"date"`
	RegretPurchase string    `json:"regret_purchase,omitempty"`
	GoodPurchase   string    `json:"good_purchase,omitempty"`
	Notes          string    `json:"notes,omitempty"`
}

// Goal is a savings goal. Current may transiently exceed Target; no clamp.
type Goal struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Current  float64    `json:"current"`
	Target   float64    `json:"target"`
	Color    string     `json:"color"`
	Deadline *time.Time `json:"deadline,omitempty"`
}

// CategoryLimit tracks a monthly spending cap for one category. Spent is
// monotonically non-decreasing within a billing cycle; resets are owned by
// the remote service.
type CategoryLimit struct {
	Category     string  `json:"category"`
	MonthlyLimit float64 `json:"monthly_limit"`
	Spent        float64 `json:"spent"`
}

// Wishlist item statuses.
const (
	WishlistWaiting   = "waiting"
	WishlistReady     = "ready"
	WishlistPurchased = "purchased"
	WishlistRemoved   = "removed"
)

// WishlistItem is a deferred purchase under a price-based cooldown.
// Removing an item counts as a resisted impulse on the server side.
type WishlistItem struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Price         float64    `json:"price"`
	ImageURL      string     `json:"image_url,omitempty"`
	CooldownDays  int        `json:"cooldown_days"`
	Status        string     `json:"status"`
	AddedDate     time.Time  `json:"added_date"`
	PurchasedDate *time.Time `json:"purchased_date,omitempty"`
	RemovedDate   *time.Time `json:"removed_date,omitempty"`
}

// BudgetFacts are the cross-cutting aggregates the remote service computes
// authoritatively: rollover pool, streak, impulses avoided, category limits.
type BudgetFacts struct {
	RolloverAmount  float64         `json:"rollover_amount"`
	StreakDays      int             `json:"streak_days"`
	ImpulsesAvoided int             `json:"impulses_avoided"`
	CategoryLimits  []CategoryLimit `json:"category_limits"`
}

// User carries the income figures the daily limit derives from.
type User struct {
	Name          string  `json:"name,omitempty"`
	MonthlyIncome float64 `json:"monthly_income"`
	FixedExpenses float64 `json:"fixed_expenses"`
}

// Milestone is a one-shot celebration event.
type Milestone struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

// DaysInMonth is the fixed divisor for the daily limit computation.
const DaysInMonth = 30

// RolloverCapDays caps the rollover pool at this many days of budget.
const RolloverCapDays = 3

// Snapshot is the full in-memory picture of a user's budgeting state.
// The engine owns exactly one of these and replaces or mutates it under
// its own lock; everything else receives copies.
type Snapshot struct {
	MonthlyIncome   float64                  `json:"monthly_income"`
	FixedExpenses   float64                  `json:"fixed_expenses"`
	DailyLimit      float64                  `json:"daily_limit"`
	StreakDays      int                      `json:"streak_days"`
	ImpulsesAvoided int                      `json:"impulses_avoided"`
	RolloverBudget  float64                  `json:"rollover_budget"`
	Transactions    []Transaction            `json:"transactions"`
	Reflections     []Reflection             `json:"reflections"`
	Goals           []Goal                   `json:"goals"`
	CategoryLimits  map[string]CategoryLimit `json:"category_limits"`
	Wishlist        []WishlistItem           `json:"wishlist"`
	FetchedAt       time.Time                `json:"fetched_at"`
}

// RecomputeDailyLimit derives the daily limit from income and fixed
// expenses. Must be called whenever either input changes so the limit is
// never observed stale.
func (s *Snapshot) RecomputeDailyLimit() {
	s.DailyLimit = (s.MonthlyIncome - s.FixedExpenses) / DaysInMonth
}

// RolloverCap returns the upper bound for the rollover pool.
func (s *Snapshot) RolloverCap() float64 {
	return s.DailyLimit * RolloverCapDays
}

// Clone returns a deep copy safe to hand outside the engine's lock.
func (s Snapshot) Clone() Snapshot {
	out := s
	out.Transactions = append([]Transaction(nil), s.Transactions...)
	out.Reflections = append([]Reflection(nil), s.Reflections...)
	out.Goals = append([]Goal(nil), s.Goals...)
	out.Wishlist = append([]WishlistItem(nil), s.Wishlist...)
	out.CategoryLimits = make(map[string]CategoryLimit, len(s.CategoryLimits))
	for k, v := range s.CategoryLimits {
		out.CategoryLimits[k] = v
	}
	return out
}
