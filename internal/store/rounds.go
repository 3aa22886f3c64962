package store

import (
	"context"
	"sync"
	"time"

	"github.com/tilqural/levels/internal/game"
)

// Rounds holds ephemeral word-game rounds. A user has at most one round;
// saving a new one discards the previous.
type Rounds interface {
	Save(ctx context.Context, r *game.Round) error
	// Get returns a copy of the round.
	Get(ctx context.Context, id string) (*game.Round, error)
	// Update runs fn on the stored round under the store lock and returns
	// a copy of the result. fn's error aborts nothing already mutated, so
	// fn must validate before it mutates.
	Update(ctx context.Context, id string, fn func(*game.Round) error) (*game.Round, error)
	// Sweep drops finished rounds and playing rounds idle since before
	// staleBefore. It returns how many were dropped.
	Sweep(ctx context.Context, staleBefore time.Time) int
	Len() int
}

// memoryRounds is a map-based Rounds implementation.
type memoryRounds struct {
	mu     sync.Mutex
	rounds map[string]*game.Round // keyed by Round.ID
	byUser map[string]string      // userID → round ID
}

// NewMemoryRounds constructs an empty in-memory round store.
func NewMemoryRounds() Rounds {
	return &memoryRounds{
		rounds: make(map[string]*game.Round),
		byUser: make(map[string]string),
	}
}

func (m *memoryRounds) Save(_ context.Context, r *game.Round) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.byUser[r.UserID]; ok && old != r.ID {
		delete(m.rounds, old)
	}
	m.rounds[r.ID] = r.Clone()
	m.byUser[r.UserID] = r.ID
	return nil
}

func (m *memoryRounds) Get(_ context.Context, id string) (*game.Round, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rounds[id]
	if !ok {
		return nil, ErrNotFound
	}
	return r.Clone(), nil
}

func (m *memoryRounds) Update(_ context.Context, id string, fn func(*game.Round) error) (*game.Round, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rounds[id]
	if !ok {
		return nil, ErrNotFound
	}
	if err := fn(r); err != nil {
		return r.Clone(), err
	}
	return r.Clone(), nil
}

func (m *memoryRounds) Sweep(_ context.Context, staleBefore time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, r := range m.rounds {
		if r.Finished() || r.UpdatedAt.Before(staleBefore) {
			delete(m.rounds, id)
			if m.byUser[r.UserID] == id {
				delete(m.byUser, r.UserID)
			}
			n++
		}
	}
	return n
}

func (m *memoryRounds) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rounds)
}
