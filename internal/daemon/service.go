// Package daemon provides the long-running background budget monitor
// service: it keeps the engine refreshing and serves its state over a
// small local HTTP API.
package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"pennywise/internal/engine"
	"pennywise/internal/metrics"
	"pennywise/internal/model"
)

// Config controls the daemon runtime behavior.
type Config struct {
	Addr         string
	EventsBuffer int
}

// Summary is a compact budget state for status/event payloads.
type Summary struct {
	At              time.Time `json:"at"`
	TodaySpent      float64   `json:"today_spent"`
	WeekSpent       float64   `json:"week_spent"`
	DailyLimit      float64   `json:"daily_limit"`
	RolloverBudget  float64   `json:"rollover_budget"`
	AvailableToday  float64   `json:"available_today"`
	StreakDays      int       `json:"streak_days"`
	ImpulsesAvoided int       `json:"impulses_avoided"`
	TotalSaved      float64   `json:"total_saved"`
	Transactions    int       `json:"transactions"`
	Goals           int       `json:"goals"`
}

// Event is emitted on every settled refresh and every fired milestone.
type Event struct {
	ID        string           `json:"id"`
	Type      string           `json:"type"` // "refresh" or "milestone"
	Timestamp time.Time        `json:"timestamp"`
	Summary   Summary          `json:"summary"`
	Milestone *model.Milestone `json:"milestone,omitempty"`
}

// Status is served at /v1/status.
type Status struct {
	StartedAt       time.Time `json:"started_at"`
	LastRefreshAt   time.Time `json:"last_refresh_at"`
	RefreshCount    int64     `json:"refresh_count"`
	Summary         Summary   `json:"summary"`
	EventCount      int       `json:"event_count"`
	SubscriberCount int       `json:"subscriber_count"`
}

// Service wires an engine to the HTTP/SSE API.
type Service struct {
	cfg Config
	eng *engine.Engine

	mu            sync.RWMutex
	startedAt     time.Time
	lastRefreshAt time.Time
	refreshCount  int64
	summary       Summary
	events        []Event

	nextSubID int
	subs      map[int]chan Event
}

// New returns a daemon service around the given engine factory. The
// engine must be constructed with the service's handlers; use Build.
func New(cfg Config) *Service {
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8177"
	}
	if cfg.EventsBuffer < 1 {
		cfg.EventsBuffer = 200
	}

	return &Service{
		cfg:       cfg,
		startedAt: time.Now(),
		subs:      make(map[int]chan Event),
	}
}

// Handlers returns the engine options that route refresh and milestone
// notifications into this service.
func (s *Service) Handlers() []engine.Option {
	return []engine.Option{
		engine.WithRefreshHandler(s.onRefresh),
		engine.WithMilestoneHandler(s.onMilestone),
	}
}

// Run starts the engine session and the HTTP server until ctx is canceled.
func (s *Service) Run(ctx context.Context, eng *engine.Engine) error {
	s.eng = eng

	if err := eng.Start(ctx); err != nil {
		return fmt.Errorf("daemon engine start: %w", err)
	}
	defer eng.Close()

	r := chi.NewRouter()
	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/snapshot", s.handleSnapshot)
		r.Get("/events", s.handleEvents)
		r.Get("/stream", s.handleStream)
	})

	server := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return fmt.Errorf("daemon http server: %w", err)
	}
}

func summarize(snap model.Snapshot, at time.Time) Summary {
	return Summary{
		At:              at,
		TodaySpent:      metrics.TodaySpent(snap, at),
		WeekSpent:       metrics.WeekSpent(snap, at),
		DailyLimit:      snap.DailyLimit,
		RolloverBudget:  snap.RolloverBudget,
		AvailableToday:  metrics.AvailableToday(snap),
		StreakDays:      snap.StreakDays,
		ImpulsesAvoided: snap.ImpulsesAvoided,
		TotalSaved:      metrics.TotalSaved(snap),
		Transactions:    len(snap.Transactions),
		Goals:           len(snap.Goals),
	}
}

func (s *Service) onRefresh(snap model.Snapshot) {
	now := time.Now()
	summary := summarize(snap, now)

	s.mu.Lock()
	s.summary = summary
	s.lastRefreshAt = now
	s.refreshCount++
	s.mu.Unlock()

	s.publishEvent(Event{
		ID:        uuid.NewString(),
		Type:      "refresh",
		Timestamp: now,
		Summary:   summary,
	})
}

func (s *Service) onMilestone(m model.Milestone) {
	now := time.Now()

	s.mu.RLock()
	summary := s.summary
	s.mu.RUnlock()

	milestone := m
	s.publishEvent(Event{
		ID:        uuid.NewString(),
		Type:      "milestone",
		Timestamp: now,
		Summary:   summary,
		Milestone: &milestone,
	})
}

func (s *Service) publishEvent(ev Event) {
	s.mu.Lock()
	s.events = append(s.events, ev)
	if len(s.events) > s.cfg.EventsBuffer {
		s.events = s.events[len(s.events)-s.cfg.EventsBuffer:]
	}

	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	s.mu.Unlock()
}

func (s *Service) snapshotStatus() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Status{
		StartedAt:       s.startedAt,
		LastRefreshAt:   s.lastRefreshAt,
		RefreshCount:    s.refreshCount,
		Summary:         s.summary,
		EventCount:      len(s.events),
		SubscriberCount: len(s.subs),
	}
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Service) handleStatus(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.snapshotStatus())
}

func (s *Service) handleSnapshot(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.eng.Snapshot())
}

func (s *Service) handleEvents(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	events := make([]Event, len(s.events))
	copy(events, s.events)
	s.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(events)
}

func (s *Service) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := make(chan Event, 16)
	id := s.addSubscriber(ch)
	defer s.removeSubscriber(id)

	// Send current state immediately.
	s.mu.RLock()
	current := Event{
		ID:        uuid.NewString(),
		Type:      "refresh",
		Timestamp: time.Now(),
		Summary:   s.summary,
	}
	s.mu.RUnlock()
	writeSSE(w, current)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-ch:
			writeSSE(w, ev)
			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	_, _ = fmt.Fprintf(w, "event: %s\n", ev.Type)
	_, _ = fmt.Fprintf(w, "data: %s\n\n", data)
}

func (s *Service) addSubscriber(ch chan Event) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSubID++
	id := s.nextSubID
	s.subs[id] = ch
	return id
}

func (s *Service) removeSubscriber(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, id)
}
