package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"pennywise/internal/api"
	"pennywise/internal/model"
)

// fakeClock hands out timers that only fire when the test says so.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(now time.Time) {
	c.mu.Lock()
	c.now = now
	c.mu.Unlock()
}

func (c *fakeClock) NewTimer(time.Duration) Timer {
	return &fakeTimer{ch: make(chan time.Time, 1)}
}

type fakeTimer struct{ ch chan time.Time }

func (t *fakeTimer) C() <-chan time.Time { return t.ch }
func (t *fakeTimer) Stop() bool          { return true }

// fakeRemote is an in-memory budget service.
type fakeRemote struct {
	mu       sync.Mutex
	txs      []model.Transaction
	goals    []model.Goal
	refs     []model.Reflection
	items    []model.WishlistItem
	facts    model.BudgetFacts
	user     model.User
	nextID   int
	txErr    error
	goalErr  error
	factsErr error
}

func (r *fakeRemote) Transactions(context.Context) ([]model.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.txErr != nil {
		return nil, r.txErr
	}
	return append([]model.Transaction(nil), r.txs...), nil
}

func (r *fakeRemote) CreateTransaction(_ context.Context, req api.CreateTransactionRequest) (model.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.txErr != nil {
		return model.Transaction{}, r.txErr
	}
	r.nextID++
	date, _ := time.ParseInLocation("2006-01-02", req.Date, time.Local)
	tx := model.Transaction{
		ID:        fmt.Sprintf("tx-%d", r.nextID),
		Amount:    req.Amount,
		Category:  req.Category,
		Date:      date,
		IsImpulse: req.IsImpulse,
		Note:      req.Note,
	}
	r.txs = append(r.txs, tx)
	return tx, nil
}

func (r *fakeRemote) Goals(context.Context) ([]model.Goal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.goalErr != nil {
		return nil, r.goalErr
	}
	return append([]model.Goal(nil), r.goals...), nil
}

func (r *fakeRemote) CreateGoal(_ context.Context, req api.CreateGoalRequest) (model.Goal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	g := model.Goal{ID: "g1", Name: req.Name, Current: req.CurrentAmount, Target: req.TargetAmount, Color: req.Color}
	r.goals = append(r.goals, g)
	return g, nil
}

func (r *fakeRemote) UpdateGoal(_ context.Context, id string, req api.UpdateGoalRequest) (model.Goal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.goals {
		if r.goals[i].ID == id {
			if req.CurrentAmount != nil {
				r.goals[i].Current = *req.CurrentAmount
			}
			if req.TargetAmount != nil {
				r.goals[i].Target = *req.TargetAmount
			}
			return r.goals[i], nil
		}
	}
	return model.Goal{}, errors.New("goal not found")
}

func (r *fakeRemote) Reflections(context.Context) ([]model.Reflection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.Reflection(nil), r.refs...), nil
}

func (r *fakeRemote) CreateReflection(_ context.Context, req api.CreateReflectionRequest) (model.Reflection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ref := model.Reflection{ID: "r1", Date: time.Now(), RegretPurchase: req.RegretPurchase, GoodPurchase: req.GoodPurchase, Notes: req.Notes}
	r.refs = append(r.refs, ref)
	return ref, nil
}

func (r *fakeRemote) BudgetFacts(context.Context) (model.BudgetFacts, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.factsErr != nil {
		return model.BudgetFacts{}, r.factsErr
	}
	return r.facts, nil
}

func (r *fakeRemote) CurrentUser(context.Context) (model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.user, nil
}

func (r *fakeRemote) UpdateUser(_ context.Context, req api.UpdateUserRequest) (model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if req.MonthlyIncome != nil {
		r.user.MonthlyIncome = *req.MonthlyIncome
	}
	if req.FixedExpenses != nil {
		r.user.FixedExpenses = *req.FixedExpenses
	}
	return r.user, nil
}

func (r *fakeRemote) Wishlist(context.Context) ([]model.WishlistItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.WishlistItem(nil), r.items...), nil
}

func (r *fakeRemote) CreateWishlistItem(_ context.Context, req api.CreateWishlistItemRequest) (model.WishlistItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item := model.WishlistItem{ID: "w1", Name: req.Name, Price: req.Price, CooldownDays: 30, Status: model.WishlistWaiting}
	r.items = append(r.items, item)
	return item, nil
}

func (r *fakeRemote) UpdateWishlistItem(_ context.Context, id string, req api.UpdateWishlistItemRequest) (model.WishlistItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.items {
		if r.items[i].ID == id {
			r.items[i].Status = req.Status
			return r.items[i], nil
		}
	}
	return model.WishlistItem{}, errors.New("item not found")
}

// fakeCache is an in-memory snapshot mirror.
type fakeCache struct {
	mu     sync.Mutex
	snap   model.Snapshot
	ok     bool
	writes int
}

func (c *fakeCache) WriteSnapshot(snap model.Snapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snap = snap
	c.ok = true
	c.writes++
	return nil
}

func (c *fakeCache) ReadSnapshot() (model.Snapshot, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap, c.ok, nil
}

func testRemote() *fakeRemote {
	return &fakeRemote{
		user: model.User{MonthlyIncome: 3000, FixedExpenses: 900},
		facts: model.BudgetFacts{
			RolloverAmount: 25,
			StreakDays:     3,
			CategoryLimits: []model.CategoryLimit{
				{Category: "food", MonthlyLimit: 400, Spent: 50},
			},
		},
	}
}

func TestStartLoadsAndCloseZeroes(t *testing.T) {
	remote := testRemote()
	remote.txs = []model.Transaction{{ID: "t0", Amount: 12, Category: "food", Date: time.Now()}}
	cache := &fakeCache{}
	clock := newFakeClock(time.Date(2025, 6, 15, 12, 0, 0, 0, time.Local))

	e := New(remote, cache, WithClock(clock))
	if err := e.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	snap := e.Snapshot()
	if snap.DailyLimit != 70 {
		t.Fatalf("DailyLimit = %.2f, want 70.00", snap.DailyLimit)
	}
	if len(snap.Transactions) != 1 || snap.Transactions[0].ID != "t0" {
		t.Fatalf("Transactions = %+v, want [t0]", snap.Transactions)
	}
	if snap.RolloverBudget != 25 || snap.StreakDays != 3 {
		t.Fatalf("facts = rollover %.2f streak %d, want 25/3", snap.RolloverBudget, snap.StreakDays)
	}
	if cache.writes == 0 {
		t.Fatal("snapshot never mirrored")
	}

	e.Close()
	snap = e.Snapshot()
	if len(snap.Transactions) != 0 || snap.DailyLimit != 0 {
		t.Fatalf("snapshot not zeroed after Close: %+v", snap)
	}
}

func TestLoadSnapshotPartialFailureDegrades(t *testing.T) {
	remote := testRemote()
	remote.txs = []model.Transaction{{ID: "t0", Amount: 10, Category: "food", Date: time.Now()}}
	remote.goalErr = errors.New("goals down")
	clock := newFakeClock(time.Date(2025, 6, 15, 12, 0, 0, 0, time.Local))

	e := New(remote, nil, WithClock(clock))

	// Initial load: the failed feed starts empty, the rest land.
	e.LoadSnapshot(context.Background())
	snap := e.Snapshot()
	if len(snap.Transactions) != 1 {
		t.Fatalf("transactions = %d, want 1", len(snap.Transactions))
	}
	if len(snap.Goals) != 0 {
		t.Fatalf("goals = %d, want 0 on degraded initial load", len(snap.Goals))
	}

	// Next refresh: goals recover, transactions fail. The previous
	// transactions are retained, not blanked.
	remote.mu.Lock()
	remote.goalErr = nil
	remote.goals = []model.Goal{{ID: "g1", Name: "Trip", Current: 40, Target: 500}}
	remote.txErr = errors.New("transactions down")
	remote.mu.Unlock()

	e.LoadSnapshot(context.Background())
	snap = e.Snapshot()
	if len(snap.Transactions) != 1 {
		t.Fatalf("transactions = %d after failed refresh, want 1 retained", len(snap.Transactions))
	}
	if len(snap.Goals) != 1 {
		t.Fatalf("goals = %d, want 1", len(snap.Goals))
	}
}

func TestRecordTransactionValidation(t *testing.T) {
	e := New(testRemote(), nil, WithClock(newFakeClock(time.Now())))

	if _, err := e.RecordTransaction(context.Background(), 0, "food", false, ""); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("zero amount: err = %v, want ErrInvalidAmount", err)
	}
	if _, err := e.RecordTransaction(context.Background(), -5, "food", false, ""); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("negative amount: err = %v, want ErrInvalidAmount", err)
	}
	if _, err := e.RecordTransaction(context.Background(), 10, "crypto", false, ""); !errors.Is(err, ErrUnknownCategory) {
		t.Fatalf("bad category: err = %v, want ErrUnknownCategory", err)
	}
}

func TestRecordTransactionOptimisticAndRemoteFailure(t *testing.T) {
	remote := testRemote()
	clock := newFakeClock(time.Date(2025, 6, 15, 12, 0, 0, 0, time.Local))
	e := New(remote, nil, WithClock(clock))
	e.LoadSnapshot(context.Background())

	tx, err := e.RecordTransaction(context.Background(), 30, "food", true, "lunch")
	if err != nil {
		t.Fatalf("RecordTransaction: %v", err)
	}
	if tx.ID == "" {
		t.Fatal("transaction id not assigned by remote")
	}

	snap := e.Snapshot()
	if len(snap.Transactions) != 1 {
		t.Fatalf("transactions = %d, want 1", len(snap.Transactions))
	}
	if got := snap.CategoryLimits["food"].Spent; got != 80 {
		t.Fatalf("food spent = %.2f, want 80.00 (50 server + 30 optimistic)", got)
	}

	// A remote failure changes nothing locally.
	remote.mu.Lock()
	remote.txErr = errors.New("service down")
	remote.mu.Unlock()
	if _, err := e.RecordTransaction(context.Background(), 10, "food", false, ""); err == nil {
		t.Fatal("expected error from remote failure")
	}
	snap = e.Snapshot()
	if len(snap.Transactions) != 1 || snap.CategoryLimits["food"].Spent != 80 {
		t.Fatalf("failed create leaked into snapshot: %+v", snap.CategoryLimits["food"])
	}
}

func TestPendingDeltaReappliedThenSettled(t *testing.T) {
	remote := testRemote()
	clock := newFakeClock(time.Date(2025, 6, 15, 12, 0, 0, 0, time.Local))
	e := New(remote, nil, WithClock(clock))
	e.LoadSnapshot(context.Background())

	if _, err := e.RecordTransaction(context.Background(), 30, "food", false, ""); err != nil {
		t.Fatalf("RecordTransaction: %v", err)
	}

	// The server's facts have not caught up; hide the new transaction from
	// the feed so the delta stays pending across the refresh.
	remote.mu.Lock()
	created := remote.txs[len(remote.txs)-1]
	remote.txs = remote.txs[:len(remote.txs)-1]
	remote.mu.Unlock()

	e.LoadSnapshot(context.Background())
	if got := e.Snapshot().CategoryLimits["food"].Spent; got != 80 {
		t.Fatalf("food spent = %.2f after refresh, want 80.00 with pending delta reapplied", got)
	}

	// The transaction shows up in the feed: the delta settles and the
	// server's facts become authoritative.
	remote.mu.Lock()
	remote.txs = append(remote.txs, created)
	remote.facts.CategoryLimits[0].Spent = 80
	remote.mu.Unlock()

	e.LoadSnapshot(context.Background())
	e.mu.RLock()
	pendingLen := len(e.pending)
	e.mu.RUnlock()
	if pendingLen != 0 {
		t.Fatalf("pending deltas = %d after confirmation, want 0", pendingLen)
	}
	if got := e.Snapshot().CategoryLimits["food"].Spent; got != 80 {
		t.Fatalf("food spent = %.2f after settle, want 80.00", got)
	}
}

func TestImpulseDeltaSurvivesFactsFailure(t *testing.T) {
	remote := testRemote()
	clock := newFakeClock(time.Date(2025, 6, 15, 12, 0, 0, 0, time.Local))
	e := New(remote, nil, WithClock(clock))
	e.LoadSnapshot(context.Background())

	e.IncrementImpulsesAvoided()
	if got := e.Snapshot().ImpulsesAvoided; got != 1 {
		t.Fatalf("ImpulsesAvoided = %d, want 1", got)
	}

	// Facts fetch fails on refresh: the retained value is not doubled.
	remote.mu.Lock()
	remote.factsErr = errors.New("facts down")
	remote.mu.Unlock()
	e.LoadSnapshot(context.Background())
	if got := e.Snapshot().ImpulsesAvoided; got != 1 {
		t.Fatalf("ImpulsesAvoided = %d after failed facts refresh, want 1", got)
	}

	// Facts recover: the server's count supersedes the local increment.
	remote.mu.Lock()
	remote.factsErr = nil
	remote.mu.Unlock()
	e.LoadSnapshot(context.Background())
	if got := e.Snapshot().ImpulsesAvoided; got != 0 {
		t.Fatalf("ImpulsesAvoided = %d after facts recovery, want server value 0", got)
	}
}

func TestUpdateUserRecomputesLimitSynchronously(t *testing.T) {
	remote := testRemote()
	clock := newFakeClock(time.Date(2025, 6, 15, 12, 0, 0, 0, time.Local))
	e := New(remote, nil, WithClock(clock))
	e.LoadSnapshot(context.Background())

	income := 4500.0
	if _, err := e.UpdateUser(context.Background(), &income, nil); err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}

	snap := e.Snapshot()
	if snap.DailyLimit != 120 {
		t.Fatalf("DailyLimit = %.2f, want 120.00 ((4500-900)/30)", snap.DailyLimit)
	}
}

func TestMilestoneFiresOnceAcrossRefreshes(t *testing.T) {
	remote := testRemote()
	remote.facts.StreakDays = 7
	clock := newFakeClock(time.Date(2025, 6, 15, 12, 0, 0, 0, time.Local))

	var fired []model.Milestone
	e := New(remote, nil,
		WithClock(clock),
		WithMilestoneHandler(func(m model.Milestone) { fired = append(fired, m) }),
	)

	e.LoadSnapshot(context.Background())
	e.LoadSnapshot(context.Background())
	e.LoadSnapshot(context.Background())

	if len(fired) != 1 {
		t.Fatalf("milestones fired = %d, want 1", len(fired))
	}
	if fired[0].ID != "streak-7" {
		t.Fatalf("milestone = %s, want streak-7", fired[0].ID)
	}
}

func TestColdStartFromCache(t *testing.T) {
	cache := &fakeCache{}
	cache.snap = model.Snapshot{
		DailyLimit:     70,
		RolloverBudget: 10,
		Transactions:   []model.Transaction{{ID: "cached", Amount: 5, Category: "food", Date: time.Now()}},
		CategoryLimits: map[string]model.CategoryLimit{},
	}
	cache.ok = true

	remote := testRemote()
	remote.txs = []model.Transaction{{ID: "fresh", Amount: 9, Category: "food", Date: time.Now()}}
	clock := newFakeClock(time.Date(2025, 6, 15, 12, 0, 0, 0, time.Local))

	e := New(remote, cache, WithClock(clock))
	if err := e.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer e.Close()

	// After Start the remote load has superseded the cached copy.
	snap := e.Snapshot()
	if len(snap.Transactions) != 1 || snap.Transactions[0].ID != "fresh" {
		t.Fatalf("Transactions = %+v, want the remote feed", snap.Transactions)
	}
}
