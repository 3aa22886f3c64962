// internal/store/store.go
//
// Persistence interfaces for puzzles, users/cursors and word rounds.
//
// Implementations:
//   - SQL (sql.go):       SQLite (default) or PostgreSQL via sqlx.
//   - Memory (memory.go): map-backed, for tests and DATABASE_URL=memory://.
//   - Rounds (rounds.go): in-memory ephemeral word rounds.

package store

import (
	"context"
	"errors"
	"time"

	"github.com/tilqural/levels/internal/catalog"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("already exists")
)

// User is an account with its per-game level cursors.
type User struct {
	ID           string                 `json:"id" db:"id"`
	Username     string                 `json:"username" db:"username"`
	Email        string                 `json:"email" db:"email"`
	Avatar       string                 `json:"avatar" db:"avatar"`
	PasswordHash string                 `json:"-" db:"password_hash"`
	IsAdmin      bool                   `json:"isAdmin" db:"is_admin"`
	CreatedAt    time.Time              `json:"createdAt" db:"created_at"`
	Levels       map[catalog.GameID]int `json:"-" db:"-"`
}

// Level returns the cursor for g, defaulting to 1.
func (u *User) Level(g catalog.GameID) int {
	if n := u.Levels[g]; n >= 1 {
		return n
	}
	return 1
}

// ProfileUpdate carries optional profile changes; empty fields are kept.
type ProfileUpdate struct {
	Username string
	Email    string
	Avatar   string
}

// AdvanceStatus is the outcome of a compare-and-advance attempt.
type AdvanceStatus string

const (
	StatusAdvanced  AdvanceStatus = "advanced"  // cursor moved to from+1
	StatusBlocked   AdvanceStatus = "blocked"   // from != cursor; nothing written
	StatusExhausted AdvanceStatus = "exhausted" // no puzzle at from+1; nothing written
)

// Advance reports the status and the cursor after the attempt.
type Advance struct {
	Status AdvanceStatus `json:"status"`
	Level  int           `json:"level"`
}

// LeaderRow is one leaderboard entry.
type LeaderRow struct {
	Username string `json:"username" db:"username"`
	Level    int    `json:"level" db:"level"`
}

// Puzzles is the level store.
type Puzzles interface {
	GetPuzzle(ctx context.Context, game catalog.GameID, level int) (*catalog.Puzzle, error)
	PuzzleExists(ctx context.Context, game catalog.GameID, level int) (bool, error)
	// ListPuzzles returns puzzles with level <= maxLevel, highest first.
	// maxLevel <= 0 lists every level.
	ListPuzzles(ctx context.Context, game catalog.GameID, maxLevel int) ([]catalog.Puzzle, error)
	MaxLevel(ctx context.Context, game catalog.GameID) (int, error)
	CreatePuzzle(ctx context.Context, p *catalog.Puzzle) error
	UpdatePuzzle(ctx context.Context, p *catalog.Puzzle) error
	UpsertPuzzle(ctx context.Context, p *catalog.Puzzle) error
	DeletePuzzle(ctx context.Context, game catalog.GameID, level int) error
}

// Users is the account and progress store.
type Users interface {
	// CreateUser inserts u with cursor 1 for every game.
	// Usernames are unique case-insensitively (ErrConflict).
	CreateUser(ctx context.Context, u *User) error
	UserByID(ctx context.Context, id string) (*User, error)
	UserByUsername(ctx context.Context, username string) (*User, error)
	UpdateProfile(ctx context.Context, id string, upd ProfileUpdate) (*User, error)
	Cursor(ctx context.Context, userID string, game catalog.GameID) (int, error)
	// CompareAndAdvance moves the cursor from `from` to from+1 iff the
	// cursor equals from and a puzzle exists at from+1, as one atomic
	// read-modify-write.
	CompareAndAdvance(ctx context.Context, userID string, game catalog.GameID, from int) (Advance, error)
	Leaderboard(ctx context.Context, game catalog.GameID, limit int) ([]LeaderRow, error)
}

// Store bundles the durable stores.
type Store interface {
	Puzzles
	Users
	Close() error
}
