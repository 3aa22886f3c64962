// internal/play/service.go
//
// Server-side word rounds for the sozdly game.
// Responsibilities:
//   - Starting a round at the user's cursor or at a lower (replayed) level.
//   - Scoring guesses against the round's target with game.Round.
//   - Advancing the cursor once a round is completed. A revealed round
//     (attempts exhausted) never advances.
//
// Rounds are ephemeral; they live in a store.Rounds and are evicted by the
// scheduler.

package play

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/tilqural/levels/internal/catalog"
	"github.com/tilqural/levels/internal/game"
	"github.com/tilqural/levels/internal/progress"
	"github.com/tilqural/levels/internal/store"
	"github.com/tilqural/levels/internal/words"
)

var ErrLevelLocked = errors.New("level is not unlocked yet")

// Levels is the slice of progress.Service that rounds depend on.
type Levels interface {
	Cursor(ctx context.Context, userID string, game catalog.GameID) (int, error)
	ByLevel(ctx context.Context, game catalog.GameID, level int) (*catalog.Puzzle, error)
	Advance(ctx context.Context, userID string, game catalog.GameID, submitted int) (progress.Outcome, error)
}

// Started describes a new round. The target is not included.
type Started struct {
	RoundID  string `json:"roundId"`
	Level    int    `json:"level"`
	Attempts int    `json:"attempts"`
	Length   int    `json:"length"`
}

// Result is the outcome of one guess.
type Result struct {
	Marks        []game.Mark       `json:"marks"`
	State        game.State        `json:"state"`
	AttemptsLeft int               `json:"attemptsLeft"`
	Answer       string            `json:"answer,omitempty"`
	Progress     *progress.Outcome `json:"progress,omitempty"`
}

type Service struct {
	rounds store.Rounds
	levels Levels
	now    func() time.Time
	newID  func() string
}

func NewService(rounds store.Rounds, levels Levels) *Service {
	return &Service{
		rounds: rounds,
		levels: levels,
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
	}
}

// Start opens a round at the user's cursor.
func (s *Service) Start(ctx context.Context, userID string) (Started, error) {
	cur, err := s.levels.Cursor(ctx, userID, catalog.Sozdly)
	if err != nil {
		return Started{}, err
	}
	return s.open(ctx, userID, cur)
}

// StartLevel opens a round at level. Levels above the cursor are locked.
func (s *Service) StartLevel(ctx context.Context, userID string, level int) (Started, error) {
	if level < 1 {
		return Started{}, progress.ErrInvalidLevel
	}
	cur, err := s.levels.Cursor(ctx, userID, catalog.Sozdly)
	if err != nil {
		return Started{}, err
	}
	if level > cur {
		return Started{}, ErrLevelLocked
	}
	return s.open(ctx, userID, level)
}

func (s *Service) open(ctx context.Context, userID string, level int) (Started, error) {
	p, err := s.levels.ByLevel(ctx, catalog.Sozdly, level)
	if err != nil {
		return Started{}, err
	}

	r := game.NewRound(s.newID(), userID, level, p.Answer, s.now())
	if err := s.rounds.Save(ctx, r); err != nil {
		return Started{}, err
	}
	log.Debug().Str("user", userID).Str("round", r.ID).Int("puzzle_level", level).Msg("round started")
	return Started{RoundID: r.ID, Level: level, Attempts: r.MaxAttempts, Length: words.Length}, nil
}

// Guess scores guess in the user's round. Rounds of other users are
// reported as store.ErrNotFound. If the win cannot be recorded the round
// is put back as it was before the guess, so the guess can be retried.
func (s *Service) Guess(ctx context.Context, userID, roundID, guess string) (Result, error) {
	var (
		marks  []game.Mark
		before *game.Round
	)
	r, err := s.rounds.Update(ctx, roundID, func(r *game.Round) error {
		if r.UserID != userID {
			return store.ErrNotFound
		}
		before = r.Clone()
		m, err := r.ApplyGuess(guess, s.now())
		marks = m
		return err
	})
	if err != nil {
		return Result{}, err
	}

	res := Result{Marks: marks, State: r.State, AttemptsLeft: r.AttemptsLeft(), Answer: r.Answer()}
	if r.State == game.StateCompleted {
		out, err := s.levels.Advance(ctx, userID, catalog.Sozdly, r.Level)
		if err != nil {
			s.restore(ctx, before)
			return Result{}, err
		}
		res.Progress = &out
	}
	if r.Finished() {
		log.Info().Str("user", userID).Str("round", r.ID).Int("puzzle_level", r.Level).
			Str("state", string(r.State)).Int("guesses", len(r.Guesses)).Msg("round finished")
	}
	return res, nil
}

// restore rolls a round back to snap. A round swept or replaced in the
// meantime is left alone.
func (s *Service) restore(ctx context.Context, snap *game.Round) {
	_, err := s.rounds.Update(ctx, snap.ID, func(r *game.Round) error {
		*r = *snap
		return nil
	})
	if err != nil {
		log.Warn().Err(err).Str("round", snap.ID).Msg("round not restored")
	}
}
