// Package engine owns the canonical in-memory budget snapshot. It applies
// optimistic mutations, reconciles against the remote budget service on an
// interval, folds unused budget across midnight, and mirrors settled state
// to the local cache.
package engine

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"pennywise/internal/api"
	"pennywise/internal/metrics"
	"pennywise/internal/milestone"
	"pennywise/internal/model"
)

var (
	// ErrInvalidAmount is returned for non-positive transaction amounts.
	ErrInvalidAmount = errors.New("engine: amount must be positive")
	// ErrUnknownCategory is returned for categories outside the fixed set.
	ErrUnknownCategory = errors.New("engine: unknown category")
	// ErrNotStarted is returned when a session-scoped call races Close.
	ErrNotStarted = errors.New("engine: no active session")
)

// Remote is the fixed contract the engine consumes from the budget service.
// *api.Client satisfies it; tests substitute fakes.
type Remote interface {
	Transactions(ctx context.Context) ([]model.Transaction, error)
	CreateTransaction(ctx context.Context, req api.CreateTransactionRequest) (model.Transaction, error)
	Goals(ctx context.Context) ([]model.Goal, error)
	CreateGoal(ctx context.Context, req api.CreateGoalRequest) (model.Goal, error)
	UpdateGoal(ctx context.Context, id string, req api.UpdateGoalRequest) (model.Goal, error)
	Reflections(ctx context.Context) ([]model.Reflection, error)
	CreateReflection(ctx context.Context, req api.CreateReflectionRequest) (model.Reflection, error)
	BudgetFacts(ctx context.Context) (model.BudgetFacts, error)
	CurrentUser(ctx context.Context) (model.User, error)
	UpdateUser(ctx context.Context, req api.UpdateUserRequest) (model.User, error)
	Wishlist(ctx context.Context) ([]model.WishlistItem, error)
	CreateWishlistItem(ctx context.Context, req api.CreateWishlistItemRequest) (model.WishlistItem, error)
	UpdateWishlistItem(ctx context.Context, id string, req api.UpdateWishlistItemRequest) (model.WishlistItem, error)
}

// Cache mirrors settled snapshots for offline resilience. *store.Mirror
// satisfies it.
type Cache interface {
	WriteSnapshot(snap model.Snapshot) error
	ReadSnapshot() (model.Snapshot, bool, error)
}

// delta is a pending optimistic adjustment layered on top of each
// authoritative refresh until the server's view supersedes it.
type delta struct {
	id       uuid.UUID
	txID     string // non-empty for category-spent deltas
	category string
	amount   float64
	impulses int // non-zero for impulses-avoided increments
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock injects a clock, usually a fake in tests.
func WithClock(c Clock) Option { return func(e *Engine) { e.clock = c } }

// WithLogger injects a logger for swallowed refresh failures.
func WithLogger(l *log.Logger) Option { return func(e *Engine) { e.logger = l } }

// WithRefreshInterval overrides the 30s background refresh cadence.
func WithRefreshInterval(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.refreshEvery = d
		}
	}
}

// WithMilestoneHandler registers a callback for fired milestones. The
// callback runs on the engine's goroutine and must not block.
func WithMilestoneHandler(fn func(model.Milestone)) Option {
	return func(e *Engine) { e.onMilestone = fn }
}

// WithRefreshHandler registers a callback invoked with a snapshot copy
// after every settled load or refresh.
func WithRefreshHandler(fn func(model.Snapshot)) Option {
	return func(e *Engine) { e.onRefresh = fn }
}

// Engine is the budget state orchestrator. Construct with New, drive the
// session with Start/Close; all methods are safe for concurrent use.
type Engine struct {
	remote Remote
	cache  Cache
	clock  Clock
	logger *log.Logger

	refreshEvery time.Duration
	onMilestone  func(model.Milestone)
	onRefresh    func(model.Snapshot)

	mu      sync.RWMutex
	snap    model.Snapshot
	loaded  bool // true after the first successful remote load
	pending []delta

	detector *milestone.Detector

	rearmRollover chan struct{}
	cancel        context.CancelFunc
	done          chan struct{}
}

// New constructs an engine around an injected remote client and cache.
func New(remote Remote, cache Cache, opts ...Option) *Engine {
	e := &Engine{
		remote:        remote,
		cache:         cache,
		clock:         RealClock(),
		logger:        log.Default(),
		refreshEvery:  30 * time.Second,
		detector:      milestone.NewDetector(),
		rearmRollover: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.snap.CategoryLimits = make(map[string]model.CategoryLimit)
	return e
}

// Start begins a session: reads the cache once for a warm cold-start,
// fetches the user profile and the full snapshot, then launches the
// background refresh loop and the rollover scheduler. The session runs
// until ctx is cancelled or Close is called.
func (e *Engine) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.done = make(chan struct{})

	// Cold start: the mirror is read exactly once, and only while no
	// live snapshot exists yet.
	if e.cache != nil {
		if cached, ok, err := e.cache.ReadSnapshot(); err != nil {
			e.logger.Printf("pennywise engine: reading cached snapshot: %v", err)
		} else if ok {
			e.mu.Lock()
			if !e.loaded {
				e.snap = cached
			}
			e.mu.Unlock()
		}
	}

	if err := e.fetchUser(ctx); err != nil {
		e.logger.Printf("pennywise engine: fetching user: %v", err)
	}
	e.LoadSnapshot(ctx)

	go e.refreshLoop(ctx)
	go e.rolloverLoop(ctx)
	return nil
}

// Close ends the session: cancels both timers and discards the snapshot.
// In-flight remote calls are abandoned, not awaited; the server remains
// authoritative.
func (e *Engine) Close() {
	if e.cancel != nil {
		e.cancel()
		<-e.done
	}

	e.mu.Lock()
	e.snap = model.Snapshot{CategoryLimits: make(map[string]model.CategoryLimit)}
	e.loaded = false
	e.pending = nil
	e.mu.Unlock()

	e.detector.Reset()
}

// Snapshot returns a deep copy of the current snapshot.
func (e *Engine) Snapshot() model.Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.snap.Clone()
}

// Loaded reports whether at least one remote load settled.
func (e *Engine) Loaded() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.loaded
}

// LoadSnapshot fetches all feeds in parallel and replaces the snapshot
// atomically. A failed feed degrades instead of aborting the load: on the
// initial load it becomes empty, on later refreshes the previous values
// for that feed are retained. Pending optimistic deltas are reapplied on
// top of the authoritative result.
func (e *Engine) LoadSnapshot(ctx context.Context) {
	var (
		wg    sync.WaitGroup
		txs   []model.Transaction
		goals []model.Goal
		refs  []model.Reflection
		items []model.WishlistItem
		facts model.BudgetFacts

		txErr, goalErr, refErr, wishErr, factsErr error
	)

	wg.Add(5)
	go func() { defer wg.Done(); txs, txErr = e.remote.Transactions(ctx) }()
	go func() { defer wg.Done(); goals, goalErr = e.remote.Goals(ctx) }()
	go func() { defer wg.Done(); refs, refErr = e.remote.Reflections(ctx) }()
	go func() { defer wg.Done(); items, wishErr = e.remote.Wishlist(ctx) }()
	go func() { defer wg.Done(); facts, factsErr = e.remote.BudgetFacts(ctx) }()
	wg.Wait()

	for _, fe := range []struct {
		feed string
		err  error
	}{
		{"transactions", txErr},
		{"goals", goalErr},
		{"reflections", refErr},
		{"wishlist", wishErr},
		{"budget facts", factsErr},
	} {
		if fe.err != nil {
			e.logger.Printf("pennywise engine: %s feed failed: %v", fe.feed, fe.err)
		}
	}

	now := e.clock.Now()

	e.mu.Lock()
	next := e.snap.Clone()

	if txErr == nil {
		next.Transactions = txs
	} else if !e.loaded {
		next.Transactions = nil
	}
	if goalErr == nil {
		next.Goals = goals
	} else if !e.loaded {
		next.Goals = nil
	}
	if refErr == nil {
		next.Reflections = refs
	} else if !e.loaded {
		next.Reflections = nil
	}
	if wishErr == nil {
		next.Wishlist = items
	} else if !e.loaded {
		next.Wishlist = nil
	}
	if factsErr == nil {
		next.RolloverBudget = facts.RolloverAmount
		next.StreakDays = facts.StreakDays
		next.ImpulsesAvoided = facts.ImpulsesAvoided
		next.CategoryLimits = make(map[string]model.CategoryLimit, len(facts.CategoryLimits))
		for _, cl := range facts.CategoryLimits {
			next.CategoryLimits[cl.Category] = cl
		}
	} else if !e.loaded {
		next.RolloverBudget = 0
		next.StreakDays = 0
		next.ImpulsesAvoided = 0
		next.CategoryLimits = make(map[string]model.CategoryLimit)
	}

	next.RecomputeDailyLimit()
	next.FetchedAt = now

	e.pending = e.settleDeltas(e.pending, txErr == nil, factsErr == nil, next.Transactions)
	// Deltas adjust facts-derived fields only. When the facts fetch failed
	// the retained values already carry the optimistic adjustments, so
	// reapplying them would double-count.
	if factsErr == nil {
		applyDeltas(&next, e.pending)
	}

	limitChanged := next.DailyLimit != e.snap.DailyLimit
	e.snap = next
	e.loaded = true
	e.mu.Unlock()

	if limitChanged {
		e.signalRearm()
	}
	e.persist()
	e.notifyRefresh()
	e.checkMilestones()
}

// RecordTransaction validates and creates a transaction remotely, then
// appends the server's copy and optimistically bumps the category's spent
// counter. Nothing changes locally on failure.
func (e *Engine) RecordTransaction(ctx context.Context, amount float64, category string, isImpulse bool, note string) (model.Transaction, error) {
	if amount <= 0 {
		return model.Transaction{}, ErrInvalidAmount
	}
	if !model.ValidCategory(category) {
		return model.Transaction{}, ErrUnknownCategory
	}

	tx, err := e.remote.CreateTransaction(ctx, api.CreateTransactionRequest{
		Amount:    amount,
		Category:  category,
		IsImpulse: isImpulse,
		Note:      note,
		Date:      e.clock.Now().Format("2006-01-02"),
	})
	if err != nil {
		return model.Transaction{}, err
	}

	e.mu.Lock()
	e.snap.Transactions = append(e.snap.Transactions, tx)
	e.pending = append(e.pending, delta{
		id:       uuid.New(),
		txID:     tx.ID,
		category: category,
		amount:   amount,
	})
	if cl, ok := e.snap.CategoryLimits[category]; ok {
		cl.Spent += amount
		e.snap.CategoryLimits[category] = cl
	}
	e.mu.Unlock()

	// Re-fetch only the aggregates so the server-side rollover and streak
	// recomputation shows up promptly. The transaction itself already
	// settled; a facts failure here is logged, not surfaced.
	if facts, factsErr := e.remote.BudgetFacts(ctx); factsErr != nil {
		e.logger.Printf("pennywise engine: budget facts after transaction: %v", factsErr)
	} else {
		e.mu.Lock()
		e.snap.RolloverBudget = facts.RolloverAmount
		e.snap.StreakDays = facts.StreakDays
		e.mu.Unlock()
	}

	e.persist()
	e.checkMilestones()
	return tx, nil
}

// RecordReflection creates a reflection remotely and appends the server's
// copy.
func (e *Engine) RecordReflection(ctx context.Context, regret, good, notes string) (model.Reflection, error) {
	ref, err := e.remote.CreateReflection(ctx, api.CreateReflectionRequest{
		RegretPurchase: regret,
		GoodPurchase:   good,
		Notes:          notes,
	})
	if err != nil {
		return model.Reflection{}, err
	}

	e.mu.Lock()
	e.snap.Reflections = append(e.snap.Reflections, ref)
	e.mu.Unlock()

	e.persist()
	return ref, nil
}

// RecordGoal creates a goal remotely and appends the server's copy.
func (e *Engine) RecordGoal(ctx context.Context, name string, target, current float64, color string, deadline *time.Time) (model.Goal, error) {
	req := api.CreateGoalRequest{
		Name:          name,
		TargetAmount:  target,
		CurrentAmount: current,
		Color:         color,
	}
	if deadline != nil {
		req.TargetDate = deadline.Format("2006-01-02")
	}

	goal, err := e.remote.CreateGoal(ctx, req)
	if err != nil {
		return model.Goal{}, err
	}

	e.mu.Lock()
	e.snap.Goals = append(e.snap.Goals, goal)
	e.mu.Unlock()

	e.persist()
	e.checkMilestones()
	return goal, nil
}

// GoalPatch is a partial goal update; nil fields are left unchanged.
type GoalPatch struct {
	Name     *string
	Current  *float64
	Target   *float64
	Color    *string
	Deadline *time.Time
}

// UpdateGoal applies a partial update remotely and merges the server's
// copy into the snapshot.
func (e *Engine) UpdateGoal(ctx context.Context, id string, patch GoalPatch) (model.Goal, error) {
	req := api.UpdateGoalRequest{
		Name:          patch.Name,
		CurrentAmount: patch.Current,
		TargetAmount:  patch.Target,
		Color:         patch.Color,
	}
	if patch.Deadline != nil {
		d := patch.Deadline.Format("2006-01-02")
		req.TargetDate = &d
	}

	goal, err := e.remote.UpdateGoal(ctx, id, req)
	if err != nil {
		return model.Goal{}, err
	}

	e.mu.Lock()
	for i := range e.snap.Goals {
		if e.snap.Goals[i].ID == id {
			e.snap.Goals[i] = goal
			break
		}
	}
	e.mu.Unlock()

	e.persist()
	e.checkMilestones()
	return goal, nil
}

// IncrementImpulsesAvoided bumps the counter locally. There is no backing
// remote call; the increment rides as a pending delta until the next full
// refresh supersedes it.
func (e *Engine) IncrementImpulsesAvoided() {
	e.mu.Lock()
	e.snap.ImpulsesAvoided++
	e.pending = append(e.pending, delta{id: uuid.New(), impulses: 1})
	e.mu.Unlock()

	e.persist()
	e.checkMilestones()
}

// UpdateUser pushes new income figures and recomputes the daily limit
// synchronously so no read ever observes a stale limit.
func (e *Engine) UpdateUser(ctx context.Context, monthlyIncome, fixedExpenses *float64) (model.User, error) {
	user, err := e.remote.UpdateUser(ctx, api.UpdateUserRequest{
		MonthlyIncome: monthlyIncome,
		FixedExpenses: fixedExpenses,
	})
	if err != nil {
		return model.User{}, err
	}

	e.mu.Lock()
	e.snap.MonthlyIncome = user.MonthlyIncome
	e.snap.FixedExpenses = user.FixedExpenses
	e.snap.RecomputeDailyLimit()
	e.mu.Unlock()

	e.signalRearm()
	e.persist()
	return user, nil
}

// AddWishlistItem adds an item; the server assigns the cooldown window.
func (e *Engine) AddWishlistItem(ctx context.Context, name string, price float64, imageURL string) (model.WishlistItem, error) {
	item, err := e.remote.CreateWishlistItem(ctx, api.CreateWishlistItemRequest{
		Name:     name,
		Price:    price,
		ImageURL: imageURL,
	})
	if err != nil {
		return model.WishlistItem{}, err
	}

	e.mu.Lock()
	e.snap.Wishlist = append(e.snap.Wishlist, item)
	e.mu.Unlock()

	e.persist()
	return item, nil
}

// MarkWishlistItem updates an item's status remotely and merges the
// server's copy.
func (e *Engine) MarkWishlistItem(ctx context.Context, id, status string) (model.WishlistItem, error) {
	item, err := e.remote.UpdateWishlistItem(ctx, id, api.UpdateWishlistItemRequest{Status: status})
	if err != nil {
		return model.WishlistItem{}, err
	}

	e.mu.Lock()
	for i := range e.snap.Wishlist {
		if e.snap.Wishlist[i].ID == id {
			e.snap.Wishlist[i] = item
			break
		}
	}
	e.mu.Unlock()

	e.persist()
	return item, nil
}

// TodaySpent sums today's transactions in local time.
func (e *Engine) TodaySpent() float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return metrics.TodaySpent(e.snap, e.clock.Now())
}

// WeekSpent sums transactions in the rolling 7-day window.
func (e *Engine) WeekSpent() float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return metrics.WeekSpent(e.snap, e.clock.Now())
}

// HasReflectedToday reports whether a reflection was logged today.
func (e *Engine) HasReflectedToday() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return metrics.HasReflectedToday(e.snap, e.clock.Now())
}

// AvailableToday is the daily limit plus rollover.
func (e *Engine) AvailableToday() float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return metrics.AvailableToday(e.snap)
}

// CategoryRemaining is the unspent portion of a category's monthly limit.
func (e *Engine) CategoryRemaining(category string) float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return metrics.CategoryRemaining(e.snap, category)
}

func (e *Engine) fetchUser(ctx context.Context) error {
	user, err := e.remote.CurrentUser(ctx)
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.snap.MonthlyIncome = user.MonthlyIncome
	e.snap.FixedExpenses = user.FixedExpenses
	e.snap.RecomputeDailyLimit()
	e.mu.Unlock()
	return nil
}

func (e *Engine) refreshLoop(ctx context.Context) {
	defer close(e.done)
	for {
		t := e.clock.NewTimer(e.refreshEvery)
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C():
			// Background refresh must never hard-fail the session;
			// feed errors are logged inside LoadSnapshot.
			e.LoadSnapshot(ctx)
		}
	}
}

// settleDeltas drops deltas the server's view now covers: category-spent
// deltas whose transaction appears in the refreshed feed, and impulse
// deltas once a facts fetch settles. Must be called with e.mu held.
func (e *Engine) settleDeltas(pending []delta, txFeedOK, factsOK bool, txs []model.Transaction) []delta {
	if len(pending) == 0 {
		return pending
	}

	known := make(map[string]struct{}, len(txs))
	for _, t := range txs {
		known[t.ID] = struct{}{}
	}

	kept := pending[:0]
	for _, d := range pending {
		if d.impulses != 0 {
			if factsOK {
				continue
			}
			kept = append(kept, d)
			continue
		}
		if txFeedOK {
			if _, confirmed := known[d.txID]; confirmed {
				continue
			}
		}
		kept = append(kept, d)
	}
	return kept
}

func applyDeltas(snap *model.Snapshot, pending []delta) {
	for _, d := range pending {
		if d.impulses != 0 {
			snap.ImpulsesAvoided += d.impulses
			continue
		}
		if cl, ok := snap.CategoryLimits[d.category]; ok {
			cl.Spent += d.amount
			snap.CategoryLimits[d.category] = cl
		}
	}
}

func (e *Engine) persist() {
	if e.cache == nil {
		return
	}
	snap := e.Snapshot()
	if err := e.cache.WriteSnapshot(snap); err != nil {
		e.logger.Printf("pennywise engine: writing snapshot mirror: %v", err)
	}
}

func (e *Engine) notifyRefresh() {
	if e.onRefresh == nil {
		return
	}
	e.onRefresh(e.Snapshot())
}

func (e *Engine) checkMilestones() {
	e.mu.RLock()
	streak := e.snap.StreakDays
	impulses := e.snap.ImpulsesAvoided
	saved := metrics.TotalSaved(e.snap)
	e.mu.RUnlock()

	if m, fired := e.detector.Evaluate(streak, saved, impulses); fired && e.onMilestone != nil {
		e.onMilestone(m)
	}
}
