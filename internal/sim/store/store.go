// Package store is an in-memory authoritative implementation of the site/worker domain.
// It answers snapshot reads, applies the ten mutating commands under the game's business
// rules, and advances the economy one turn at a time. The dev server and tests run the
// bot against it.
package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"tycoon.ai/internal/protocol"
	"tycoon.ai/internal/sim/command"
	"tycoon.ai/internal/sim/state"
)

// Rules are the economy constants of the simulated game.
type Rules struct {
	MaxTier      int
	WorkTurns    int // turns a productive task takes before it is done
	EnergyDrain  int // per working turn
	EnergyRegen  int // per vacation turn
	BillingEvery int // turns between hosting invoices

	// A site may level up when its traffic reaches (level+1)*LevelTraffic and it has no
	// outstanding work.
	LevelTraffic int

	MarketingTraffic int   // traffic gained when a marketing task completes
	ScorePerTask     int64 // person score per completed task
	ScorePerLevel    int64
	AdSlots          int
}

func DefaultRules() Rules {
	return Rules{
		MaxTier:          8,
		WorkTurns:        3,
		EnergyDrain:      10,
		EnergyRegen:      25,
		BillingEvery:     5,
		LevelTraffic:     100,
		MarketingTraffic: 150,
		ScorePerTask:     10,
		ScorePerLevel:    50,
		AdSlots:          3,
	}
}

type Store struct {
	mu    sync.Mutex
	rules Rules
	cur   *state.Snapshot

	// Bookkeeping not visible in snapshots.
	remaining map[string]int // task id -> turns left
	billing   map[string]int // domain -> turns since last invoice
	overdue   map[string]int // domain -> turns an invoice has been unpaid

	newID func() string
}

func New(initial *state.Snapshot, rules Rules) (*Store, error) {
	if err := initial.Validate(); err != nil {
		return nil, fmt.Errorf("initial state: %w", err)
	}
	s := &Store{
		rules:     rules,
		cur:       initial.Clone(),
		remaining: map[string]int{},
		billing:   map[string]int{},
		overdue:   map[string]int{},
		newID:     uuid.NewString,
	}
	s.recompute()
	return s, nil
}

// Snapshot returns a private copy of the current state.
func (s *Store) Snapshot(ctx context.Context) (*state.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur.Clone(), nil
}

// Tick reports the current turn counter.
func (s *Store) Tick() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur.Tick
}

// Execute applies one command. Rejections are *protocol.Error values; state is left
// untouched when a command is rejected.
func (s *Store) Execute(ctx context.Context, c command.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := c.Validate(); err != nil {
		return &protocol.Error{Code: protocol.ErrBadRequest, Message: err.Error()}
	}
	h := handlers[c.Kind]
	if h == nil {
		return protocol.Errorf(protocol.ErrBadRequest, "unknown command %q", c.Kind)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := h(s, c); err != nil {
		return err
	}
	s.recompute()
	return nil
}

func (s *Store) site(domain string) (*state.Site, error) {
	site := s.cur.Site(domain)
	if site == nil {
		return nil, protocol.Errorf(protocol.ErrInvalidTarget, "unknown site %q", domain)
	}
	return site, nil
}

func (s *Store) worker(name string) (*state.Worker, error) {
	w := s.cur.Worker(name)
	if w == nil {
		return nil, protocol.Errorf(protocol.ErrInvalidTarget, "unknown worker %q", name)
	}
	return w, nil
}

// recompute refreshes the derived eligibility flags.
func (s *Store) recompute() {
	for i := range s.cur.Sites {
		site := &s.cur.Sites[i]
		site.CanLevelUp = site.Traffic >= (site.Level+1)*s.rules.LevelTraffic && !hasOutstandingWork(site)
	}
}

func hasOutstandingWork(site *state.Site) bool {
	for _, n := range site.Work {
		if n > 0 {
			return true
		}
	}
	return false
}
