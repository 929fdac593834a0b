// Package api provides a client for the remote budget service.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"pennywise/internal/model"
)

const (
	requestTimeout = 10 * time.Second
	maxBodySize    = 1 << 20 // 1 MB
	apiPrefix      = "/api/v1"
)

var (
	// ErrUnauthorized indicates the access token is expired or invalid.
	ErrUnauthorized = errors.New("api: unauthorized (token expired or invalid)")
	// ErrRateLimited indicates the service rate limit was hit.
	ErrRateLimited = errors.New("api: rate limited")
)

// Client talks to the remote budget service over HTTP.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient creates a client for the given base URL and bearer token.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{},
	}
}

// Transactions returns all transactions for the current user.
func (c *Client) Transactions(ctx context.Context) ([]model.Transaction, error) {
	body, err := c.do(ctx, http.MethodGet, "/transactions", nil)
	if err != nil {
		return nil, err
	}

	var wires []transactionWire
	if err := json.Unmarshal(body, &wires); err != nil {
		return nil, fmt.Errorf("api: parsing transactions: %w", err)
	}

	out := make([]model.Transaction, 0, len(wires))
	for _, w := range wires {
		out = append(out, w.toModel())
	}
	return out, nil
}

// CreateTransaction creates a transaction and returns the server's copy,
// including the assigned id and timestamp.
func (c *Client) CreateTransaction(ctx context.Context, req CreateTransactionRequest) (model.Transaction, error) {
	body, err := c.do(ctx, http.MethodPost, "/transactions", req)
	if err != nil {
		return model.Transaction{}, err
	}

	var w transactionWire
	if err := json.Unmarshal(body, &w); err != nil {
		return model.Transaction{}, fmt.Errorf("api: parsing transaction: %w", err)
	}
	return w.toModel(), nil
}

// Goals returns all savings goals.
func (c *Client) Goals(ctx context.Context) ([]model.Goal, error) {
	body, err := c.do(ctx, http.MethodGet, "/goals", nil)
	if err != nil {
		return nil, err
	}

	var wires []goalWire
	if err := json.Unmarshal(body, &wires); err != nil {
		return nil, fmt.Errorf("api: parsing goals: %w", err)
	}

	out := make([]model.Goal, 0, len(wires))
	for _, w := range wires {
		out = append(out, w.toModel())
	}
	return out, nil
}

// CreateGoal creates a goal and returns the server's copy.
func (c *Client) CreateGoal(ctx context.Context, req CreateGoalRequest) (model.Goal, error) {
	body, err := c.do(ctx, http.MethodPost, "/goals", req)
	if err != nil {
		return model.Goal{}, err
	}

	var w goalWire
	if err := json.Unmarshal(body, &w); err != nil {
		return model.Goal{}, fmt.Errorf("api: parsing goal: %w", err)
	}
	return w.toModel(), nil
}

// UpdateGoal applies a partial update and returns the server's copy.
func (c *Client) UpdateGoal(ctx context.Context, id string, req UpdateGoalRequest) (model.Goal, error) {
	body, err := c.do(ctx, http.MethodPut, "/goals/"+id, req)
	if err != nil {
		return model.Goal{}, err
	}

	var w goalWire
	if err := json.Unmarshal(body, &w); err != nil {
		return model.Goal{}, fmt.Errorf("api: parsing goal: %w", err)
	}
	return w.toModel(), nil
}

// Reflections returns all reflections.
func (c *Client) Reflections(ctx context.Context) ([]model.Reflection, error) {
	body, err := c.do(ctx, http.MethodGet, "/reflections", nil)
	if err != nil {
		return nil, err
	}

	var wires []reflectionWire
	if err := json.Unmarshal(body, &wires); err != nil {
		return nil, fmt.Errorf("api: parsing reflections: %w", err)
	}

	out := make([]model.Reflection, 0, len(wires))
	for _, w := range wires {
		out = append(out, w.toModel())
	}
	return out, nil
}

// CreateReflection creates a reflection and returns the server's copy.
func (c *Client) CreateReflection(ctx context.Context, req CreateReflectionRequest) (model.Reflection, error) {
	body, err := c.do(ctx, http.MethodPost, "/reflections", req)
	if err != nil {
		return model.Reflection{}, err
	}

	var w reflectionWire
	if err := json.Unmarshal(body, &w); err != nil {
		return model.Reflection{}, fmt.Errorf("api: parsing reflection: %w", err)
	}
	return w.toModel(), nil
}

// BudgetFacts returns the server-computed aggregates: rollover, streak,
// impulses avoided, and category limits.
func (c *Client) BudgetFacts(ctx context.Context) (model.BudgetFacts, error) {
	body, err := c.do(ctx, http.MethodGet, "/budget", nil)
	if err != nil {
		return model.BudgetFacts{}, err
	}

	var w budgetFactsWire
	if err := json.Unmarshal(body, &w); err != nil {
		return model.BudgetFacts{}, fmt.Errorf("api: parsing budget facts: %w", err)
	}
	return w.toModel(), nil
}

// CurrentUser returns the authenticated user's profile.
func (c *Client) CurrentUser(ctx context.Context) (model.User, error) {
	body, err := c.do(ctx, http.MethodGet, "/auth/me", nil)
	if err != nil {
		return model.User{}, err
	}

	var w userWire
	if err := json.Unmarshal(body, &w); err != nil {
		return model.User{}, fmt.Errorf("api: parsing user: %w", err)
	}
	return w.toModel(), nil
}

// UpdateUser applies a partial profile update and returns the server's copy.
func (c *Client) UpdateUser(ctx context.Context, req UpdateUserRequest) (model.User, error) {
	body, err := c.do(ctx, http.MethodPut, "/auth/me", req)
	if err != nil {
		return model.User{}, err
	}

	var w userWire
	if err := json.Unmarshal(body, &w); err != nil {
		return model.User{}, fmt.Errorf("api: parsing user: %w", err)
	}
	return w.toModel(), nil
}

// Wishlist returns all wishlist items.
func (c *Client) Wishlist(ctx context.Context) ([]model.WishlistItem, error) {
	body, err := c.do(ctx, http.MethodGet, "/wishlist", nil)
	if err != nil {
		return nil, err
	}

	var wires []wishlistItemWire
	if err := json.Unmarshal(body, &wires); err != nil {
		return nil, fmt.Errorf("api: parsing wishlist: %w", err)
	}

	out := make([]model.WishlistItem, 0, len(wires))
	for _, w := range wires {
		out = append(out, w.toModel())
	}
	return out, nil
}

// CreateWishlistItem adds an item; the server assigns the cooldown.
func (c *Client) CreateWishlistItem(ctx context.Context, req CreateWishlistItemRequest) (model.WishlistItem, error) {
	body, err := c.do(ctx, http.MethodPost, "/wishlist", req)
	if err != nil {
		return model.WishlistItem{}, err
	}

	var w wishlistItemWire
	if err := json.Unmarshal(body, &w); err != nil {
		return model.WishlistItem{}, fmt.Errorf("api: parsing wishlist item: %w", err)
	}
	return w.toModel(), nil
}

// UpdateWishlistItem changes an item's status and returns the server's copy.
func (c *Client) UpdateWishlistItem(ctx context.Context, id string, req UpdateWishlistItemRequest) (model.WishlistItem, error) {
	body, err := c.do(ctx, http.MethodPut, "/wishlist/"+id, req)
	if err != nil {
		return model.WishlistItem{}, err
	}

	var w wishlistItemWire
	if err := json.Unmarshal(body, &w); err != nil {
		return model.WishlistItem{}, fmt.Errorf("api: parsing wishlist item: %w", err)
	}
	return w.toModel(), nil
}

// do performs an authenticated request and returns the response body.
func (c *Client) do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("api: encoding request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+apiPrefix+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("api: creating request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, ErrUnauthorized
	case http.StatusTooManyRequests:
		return nil, ErrRateLimited
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("api: unexpected status %d for %s %s", resp.StatusCode, method, path)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("api: reading response: %w", err)
	}
	return body, nil
}
