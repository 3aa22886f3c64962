// internal/store/memory.go
//
// In-memory implementation of Store.
// Used by tests and by DATABASE_URL=memory:// for throwaway local runs.
//
// Characteristics:
//   - Puzzles keyed by (game, level); users keyed by ID.
//   - Concurrency-safe via RWMutex; CompareAndAdvance holds the write lock
//     for its whole read-check-write.
//   - Returned values are copies; callers cannot mutate stored state.
//   - State is lost when the process restarts.

package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tilqural/levels/internal/catalog"
)

type puzzleKey struct {
	game  catalog.GameID
	level int
}

// Memory is a map-backed Store.
type Memory struct {
	mu      sync.RWMutex
	puzzles map[puzzleKey]catalog.Puzzle
	users   map[string]*User
	touched map[string]map[catalog.GameID]time.Time // cursor update times, for leaderboard ties
	nextID  int64
	now     func() time.Time
}

var _ Store = (*Memory)(nil)

// NewMemory constructs an empty in-memory Store.
func NewMemory() *Memory {
	return &Memory{
		puzzles: make(map[puzzleKey]catalog.Puzzle),
		users:   make(map[string]*User),
		touched: make(map[string]map[catalog.GameID]time.Time),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (m *Memory) Close() error { return nil }

/* ------------------------------- puzzles -------------------------------- */

func (m *Memory) GetPuzzle(_ context.Context, game catalog.GameID, level int) (*catalog.Puzzle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.puzzles[puzzleKey{game, level}]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (m *Memory) PuzzleExists(_ context.Context, game catalog.GameID, level int) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.puzzles[puzzleKey{game, level}]
	return ok, nil
}

func (m *Memory) ListPuzzles(_ context.Context, game catalog.GameID, maxLevel int) ([]catalog.Puzzle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []catalog.Puzzle{}
	for k, p := range m.puzzles {
		if k.game == game && (maxLevel <= 0 || k.level <= maxLevel) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Level > out[j].Level })
	return out, nil
}

func (m *Memory) MaxLevel(_ context.Context, game catalog.GameID) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	max := 0
	for k := range m.puzzles {
		if k.game == game && k.level > max {
			max = k.level
		}
	}
	return max, nil
}

func (m *Memory) CreatePuzzle(_ context.Context, p *catalog.Puzzle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := puzzleKey{p.Game, p.Level}
	if _, ok := m.puzzles[k]; ok {
		return ErrConflict
	}
	m.nextID++
	p.ID, p.CreatedAt = m.nextID, m.now()
	m.puzzles[k] = clonePuzzle(*p)
	return nil
}

func (m *Memory) UpdatePuzzle(_ context.Context, p *catalog.Puzzle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := puzzleKey{p.Game, p.Level}
	old, ok := m.puzzles[k]
	if !ok {
		return ErrNotFound
	}
	p.ID, p.CreatedAt = old.ID, old.CreatedAt
	m.puzzles[k] = clonePuzzle(*p)
	return nil
}

func (m *Memory) UpsertPuzzle(_ context.Context, p *catalog.Puzzle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := puzzleKey{p.Game, p.Level}
	if old, ok := m.puzzles[k]; ok {
		p.ID, p.CreatedAt = old.ID, old.CreatedAt
	} else {
		m.nextID++
		p.ID, p.CreatedAt = m.nextID, m.now()
	}
	m.puzzles[k] = clonePuzzle(*p)
	return nil
}

func (m *Memory) DeletePuzzle(_ context.Context, game catalog.GameID, level int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := puzzleKey{game, level}
	if _, ok := m.puzzles[k]; !ok {
		return ErrNotFound
	}
	delete(m.puzzles, k)
	return nil
}

func clonePuzzle(p catalog.Puzzle) catalog.Puzzle {
	p.Options = append(catalog.Options(nil), p.Options...)
	return p
}

/* -------------------------------- users --------------------------------- */

func (m *Memory) CreateUser(_ context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.usernameTaken(u.Username, "") {
		return ErrConflict
	}
	if _, ok := m.users[u.ID]; ok {
		return ErrConflict
	}
	u.CreatedAt = m.now()
	u.Levels = make(map[catalog.GameID]int)
	for _, g := range catalog.All() {
		u.Levels[g.ID] = 1
	}
	m.users[u.ID] = cloneUser(u)
	m.touched[u.ID] = make(map[catalog.GameID]time.Time)
	return nil
}

// usernameTaken must be called with mu held.
func (m *Memory) usernameTaken(username, exceptID string) bool {
	for id, u := range m.users {
		if id != exceptID && strings.EqualFold(u.Username, username) {
			return true
		}
	}
	return false
}

func (m *Memory) UserByID(_ context.Context, id string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneUser(u), nil
}

func (m *Memory) UserByUsername(_ context.Context, username string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	username = strings.TrimSpace(username)
	for _, u := range m.users {
		if strings.EqualFold(u.Username, username) {
			return cloneUser(u), nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) UpdateProfile(_ context.Context, id string, upd ProfileUpdate) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	if upd.Username != "" {
		if m.usernameTaken(upd.Username, id) {
			return nil, ErrConflict
		}
		u.Username = upd.Username
	}
	if upd.Email != "" {
		u.Email = upd.Email
	}
	if upd.Avatar != "" {
		u.Avatar = upd.Avatar
	}
	return cloneUser(u), nil
}

func (m *Memory) Cursor(_ context.Context, userID string, game catalog.GameID) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[userID]
	if !ok {
		return 0, ErrNotFound
	}
	return u.Level(game), nil
}

func (m *Memory) CompareAndAdvance(_ context.Context, userID string, game catalog.GameID, from int) (Advance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return Advance{}, ErrNotFound
	}
	cur := u.Level(game)
	if cur != from {
		return Advance{Status: StatusBlocked, Level: cur}, nil
	}
	if _, ok := m.puzzles[puzzleKey{game, from + 1}]; !ok {
		return Advance{Status: StatusExhausted, Level: cur}, nil
	}
	u.Levels[game] = from + 1
	m.touched[userID][game] = m.now()
	return Advance{Status: StatusAdvanced, Level: from + 1}, nil
}

func (m *Memory) Leaderboard(_ context.Context, game catalog.GameID, limit int) ([]LeaderRow, error) {
	if limit <= 0 {
		limit = 20
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	type row struct {
		LeaderRow
		at time.Time
	}
	rows := make([]row, 0, len(m.users))
	for id, u := range m.users {
		at := m.touched[id][game]
		if at.IsZero() {
			at = u.CreatedAt
		}
		rows = append(rows, row{LeaderRow{Username: u.Username, Level: u.Level(game)}, at})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Level != rows[j].Level {
			return rows[i].Level > rows[j].Level
		}
		if !rows[i].at.Equal(rows[j].at) {
			return rows[i].at.Before(rows[j].at)
		}
		return rows[i].Username < rows[j].Username
	})
	out := make([]LeaderRow, 0, limit)
	for i := 0; i < len(rows) && i < limit; i++ {
		out = append(out, rows[i].LeaderRow)
	}
	return out, nil
}

func cloneUser(u *User) *User {
	c := *u
	c.Levels = make(map[catalog.GameID]int, len(u.Levels))
	for k, v := range u.Levels {
		c.Levels[k] = v
	}
	return &c
}
