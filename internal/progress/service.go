// internal/progress/service.go
//
// Level progression for every game, parameterized by catalog.GameID.
// Responsibilities:
//   - Serving the puzzle at a user's cursor, at an explicit level, and the
//     list of puzzles the user has reached.
//   - Advancing the cursor through the store's compare-and-advance.
//
// One Service backs all games; per-game differences live in catalog.Game.

package progress

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/tilqural/levels/internal/catalog"
	"github.com/tilqural/levels/internal/store"
)

var ErrInvalidLevel = errors.New("level must be a positive integer")

const (
	MsgBlocked   = "You can only advance from your current highest level"
	MsgExhausted = "No more levels"
)

// Outcome is the result of an Advance call. Blocked and exhausted are
// normal outcomes, not errors.
type Outcome struct {
	store.Advance
}

// Advanced reports whether the cursor moved.
func (o Outcome) Advanced() bool { return o.Status == store.StatusAdvanced }

// Message is the user-facing note for a non-advancing outcome, or "".
func (o Outcome) Message() string {
	switch o.Status {
	case store.StatusBlocked:
		return MsgBlocked
	case store.StatusExhausted:
		return MsgExhausted
	}
	return ""
}

// Service implements level progression over the puzzle and user stores.
type Service struct {
	puzzles store.Puzzles
	users   store.Users
}

func NewService(puzzles store.Puzzles, users store.Users) *Service {
	return &Service{puzzles: puzzles, users: users}
}

// Cursor returns the user's current level in game.
func (s *Service) Cursor(ctx context.Context, userID string, game catalog.GameID) (int, error) {
	return s.users.Cursor(ctx, userID, game)
}

// Current returns the puzzle at the user's cursor.
func (s *Service) Current(ctx context.Context, userID string, game catalog.GameID) (*catalog.Puzzle, error) {
	cur, err := s.users.Cursor(ctx, userID, game)
	if err != nil {
		return nil, err
	}
	p, err := s.puzzles.GetPuzzle(ctx, game, cur)
	if err != nil {
		return nil, fmt.Errorf("current %s level %d: %w", game, cur, err)
	}
	return p, nil
}

// ByLevel returns the puzzle at an explicit level.
func (s *Service) ByLevel(ctx context.Context, game catalog.GameID, level int) (*catalog.Puzzle, error) {
	if level < 1 {
		return nil, ErrInvalidLevel
	}
	p, err := s.puzzles.GetPuzzle(ctx, game, level)
	if err != nil {
		return nil, fmt.Errorf("%s level %d: %w", game, level, err)
	}
	return p, nil
}

// Completed returns every puzzle at or below the user's cursor, highest first.
func (s *Service) Completed(ctx context.Context, userID string, game catalog.GameID) ([]catalog.Puzzle, error) {
	cur, err := s.users.Cursor(ctx, userID, game)
	if err != nil {
		return nil, err
	}
	return s.puzzles.ListPuzzles(ctx, game, cur)
}

// Advance moves the cursor from submitted to submitted+1 when submitted is
// the current cursor and the next level exists.
func (s *Service) Advance(ctx context.Context, userID string, game catalog.GameID, submitted int) (Outcome, error) {
	if submitted < 1 {
		return Outcome{}, ErrInvalidLevel
	}
	adv, err := s.users.CompareAndAdvance(ctx, userID, game, submitted)
	if err != nil {
		return Outcome{}, err
	}
	ev := log.Debug()
	if adv.Status == store.StatusAdvanced {
		ev = log.Info()
	}
	ev.Str("user", userID).
		Str("game", string(game)).
		Int("submitted", submitted).
		Int("puzzle_level", adv.Level).
		Str("status", string(adv.Status)).
		Msg("advance")
	return Outcome{adv}, nil
}
