package api

import (
	"time"

	"pennywise/internal/model"
)

// Wire shapes for the remote budget service (snake_case JSON).

type transactionWire struct {
	ID        string  `json:"id"`
	Amount    float64 `json:"amount"`
	Category  string  `json:"category"`
	Date      string  `json:"date"`
	IsImpulse bool    `json:"is_impulse"`
	Note      string  `json:"note,omitempty"`
	CreatedAt string  `json:"created_at,omitempty"`
}

// CreateTransactionRequest is the payload for creating a transaction.
type CreateTransactionRequest struct {
	Amount    float64 `json:"amount"`
	Category  string  `json:"category"`
	IsImpulse bool    `json:"is_impulse"`
	Note      string  `json:"note,omitempty"`
	Date      string  `json:"date"`
}

type goalWire struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	CurrentAmount float64 `json:"current_amount"`
	TargetAmount  float64 `json:"target_amount"`
	Color         string  `json:"color,omitempty"`
	TargetDate    string  `json:"target_date,omitempty"`
}

// CreateGoalRequest is the payload for creating a goal.
type CreateGoalRequest struct {
	Name          string  `json:"name"`
	TargetAmount  float64 `json:"target_amount"`
	CurrentAmount float64 `json:"current_amount"`
	Color         string  `json:"color,omitempty"`
	TargetDate    string  `json:"target_date,omitempty"`
}

// UpdateGoalRequest carries a partial goal update. Nil fields are omitted.
type UpdateGoalRequest struct {
	Name          *string  `json:"name,omitempty"`
	TargetAmount  *float64 `json:"target_amount,omitempty"`
	CurrentAmount *float64 `json:"current_amount,omitempty"`
	Color         *string  `json:"color,omitempty"`
	TargetDate    *string  `json:"target_date,omitempty"`
}

type reflectionWire struct {
	ID             string `json:"id"`
	RegretPurchase string `json:"regret_purchase,omitempty"`
	GoodPurchase   string `json:"good_purchase,omitempty"`
	Notes          string `json:"notes,omitempty"`
	CreatedAt      string `json:"created_at"`
}

// CreateReflectionRequest is the payload for creating a reflection.
type CreateReflectionRequest struct {
	RegretPurchase string `json:"regret_purchase,omitempty"`
	GoodPurchase   string `json:"good_purchase,omitempty"`
	Notes          string `json:"notes,omitempty"`
}

type categoryLimitWire struct {
	Category     string  `json:"category"`
	MonthlyLimit float64 `json:"monthlyLimit"`
	Spent        float64 `json:"spent"`
}

type budgetFactsWire struct {
	RolloverAmount  float64             `json:"rollover_amount"`
	StreakDays      int                 `json:"streak_days"`
	ImpulsesAvoided int                 `json:"impulses_avoided"`
	CategoryLimits  []categoryLimitWire `json:"category_limits"`
}

type userWire struct {
	Name          string  `json:"name,omitempty"`
	MonthlyIncome float64 `json:"monthly_income"`
	FixedExpenses float64 `json:"fixed_expenses"`
}

// UpdateUserRequest carries a partial user update.
type UpdateUserRequest struct {
	Name          *string  `json:"name,omitempty"`
	MonthlyIncome *float64 `json:"monthly_income,omitempty"`
	FixedExpenses *float64 `json:"fixed_expenses,omitempty"`
}

type wishlistItemWire struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Price         float64 `json:"price"`
	ImageURL      string  `json:"image_url,omitempty"`
	CooldownDays  int     `json:"cooldown_days"`
	Status        string  `json:"status"`
	AddedDate     string  `json:"added_date"`
	PurchasedDate string  `json:"purchased_date,omitempty"`
	RemovedDate   string  `json:"removed_date,omitempty"`
}

// CreateWishlistItemRequest is the payload for adding a wishlist item.
// The server assigns the cooldown based on price.
type CreateWishlistItemRequest struct {
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	ImageURL string  `json:"image_url,omitempty"`
}

// UpdateWishlistItemRequest carries a wishlist status change.
type UpdateWishlistItemRequest struct {
	Status string `json:"status"`
}

func parseWireTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	if t, err := time.ParseInLocation("2006-01-02", s, time.Local); err == nil {
		return t
	}
	return time.Time{}
}

func (w transactionWire) toModel() model.Transaction {
	date := parseWireTime(w.Date)
	if date.IsZero() {
		date = parseWireTime(w.CreatedAt)
	}
	return model.Transaction{
		ID:        w.ID,
		Amount:    w.Amount,
		Category:  w.Category,
		Date:      date,
		IsImpulse: w.IsImpulse,
		Note:      w.Note,
	}
}

func (w goalWire) toModel() model.Goal {
	g := model.Goal{
		ID:      w.ID,
		Name:    w.Name,
		Current: w.CurrentAmount,
		Target:  w.TargetAmount,
		Color:   w.Color,
	}
	if t := parseWireTime(w.TargetDate); !t.IsZero() {
		g.Deadline = &t
	}
	return g
}

func (w reflectionWire) toModel() model.Reflection {
	return model.Reflection{
		ID:             w.ID,
		Date:           parseWireTime(w.CreatedAt),
		RegretPurchase: w.RegretPurchase,
		GoodPurchase:   w.GoodPurchase,
		Notes:          w.Notes,
	}
}

func (w budgetFactsWire) toModel() model.BudgetFacts {
	facts := model.BudgetFacts{
		RolloverAmount:  w.RolloverAmount,
		StreakDays:      w.StreakDays,
		ImpulsesAvoided: w.ImpulsesAvoided,
	}
	for _, cl := range w.CategoryLimits {
		facts.CategoryLimits = append(facts.CategoryLimits, model.CategoryLimit{
			Category:     cl.Category,
			MonthlyLimit: cl.MonthlyLimit,
			Spent:        cl.Spent,
		})
	}
	return facts
}

func (w userWire) toModel() model.User {
	return model.User{
		Name:          w.Name,
		MonthlyIncome: w.MonthlyIncome,
		FixedExpenses: w.FixedExpenses,
	}
}

func (w wishlistItemWire) toModel() model.WishlistItem {
	item := model.WishlistItem{
		ID:           w.ID,
		Name:         w.Name,
		Price:        w.Price,
		ImageURL:     w.ImageURL,
		CooldownDays: w.CooldownDays,
		Status:       w.Status,
		AddedDate:    parseWireTime(w.AddedDate),
	}
	if t := parseWireTime(w.PurchasedDate); !t.IsZero() {
		item.PurchasedDate = &t
	}
	if t := parseWireTime(w.RemovedDate); !t.IsZero() {
		item.RemovedDate = &t
	}
	return item
}
