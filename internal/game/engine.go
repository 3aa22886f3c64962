// internal/game/engine.go
//
// Guess evaluation and round rules for the word game.
// Responsibilities:
//   - Score guesses with count-limited two-pass matching.
//   - Validate guesses (exact letter count, letters only).
//   - Track the attempt budget and terminal states.
//
// Notes:
//   - Comparison is case-insensitive; both sides go through words.Normalize.
//   - Letters are compared as runes so multi-byte letters score correctly.
package game

import (
	"errors"
	"time"

	"github.com/tilqural/levels/internal/words"
)

// DefaultAttempts is the guess budget of a round.
const DefaultAttempts = 6

var (
	ErrGuessLength  = errors.New("the word must be exactly 5 letters long")
	ErrGuessLetters = errors.New("the word must contain letters only")
	ErrTargetLength = errors.New("target length does not match guess length")
	ErrRoundOver    = errors.New("round is over")
)

// Evaluate scores guess against target.
//
// Pass 1 marks exact positional matches and counts the target letters that
// were not matched exactly. Pass 2 walks the remaining guess letters left to
// right: a letter is partial while its unmatched count is positive (and the
// count is spent), otherwise absent. Repeated guess letters therefore never
// claim the same target occurrence twice.
func Evaluate(guess, target string) ([]Mark, error) {
	g := []rune(words.Normalize(guess))
	t := []rune(words.Normalize(target))
	if len(g) != words.Length {
		return nil, ErrGuessLength
	}
	if len(t) != len(g) {
		return nil, ErrTargetLength
	}

	marks := make([]Mark, len(g))
	remaining := make(map[rune]int, len(t))

	for i := range g {
		if g[i] == t[i] {
			marks[i] = MarkExact
		} else {
			remaining[t[i]]++
		}
	}

	for i := range g {
		if marks[i] == MarkExact {
			continue
		}
		if remaining[g[i]] > 0 {
			marks[i] = MarkPartial
			remaining[g[i]]--
		} else {
			marks[i] = MarkAbsent
		}
	}
	return marks, nil
}

// NewRound starts a round for userID at level with the given target word.
func NewRound(id, userID string, level int, target string, now time.Time) *Round {
	return &Round{
		ID:          id,
		UserID:      userID,
		Level:       level,
		Target:      words.Normalize(target),
		MaxAttempts: DefaultAttempts,
		Guesses:     []string{},
		Marks:       [][]Mark{},
		State:       StatePlaying,
		StartedAt:   now,
		UpdatedAt:   now,
	}
}

// ApplyGuess validates and scores a guess, mutating the round.
// Invalid guesses are rejected without consuming an attempt.
//
// State transitions:
//   - all marks exact                       → StateCompleted
//   - otherwise, on the MaxAttempts-th guess → StateRevealed
func (r *Round) ApplyGuess(guess string, now time.Time) ([]Mark, error) {
	if r.State != StatePlaying {
		return nil, ErrRoundOver
	}
	guess = words.Normalize(guess)
	if words.Len(guess) != words.Length {
		return nil, ErrGuessLength
	}
	if !words.IsLetters(guess) {
		return nil, ErrGuessLetters
	}

	marks, err := Evaluate(guess, r.Target)
	if err != nil {
		return nil, err
	}
	r.Guesses = append(r.Guesses, guess)
	r.Marks = append(r.Marks, marks)
	r.UpdatedAt = now

	if allExact(marks) {
		r.State = StateCompleted
	} else if len(r.Guesses) >= r.MaxAttempts {
		r.State = StateRevealed
	}
	return marks, nil
}

// AttemptsLeft is the number of guesses still allowed.
func (r *Round) AttemptsLeft() int {
	if r.State != StatePlaying {
		return 0
	}
	return r.MaxAttempts - len(r.Guesses)
}

// Finished reports whether the round reached a terminal state.
func (r *Round) Finished() bool { return r.State != StatePlaying }

// Answer returns the target once it may be shown, i.e. after the round
// ended in either terminal state; empty while playing.
func (r *Round) Answer() string {
	if r.State == StatePlaying {
		return ""
	}
	return r.Target
}

// Clone returns a deep copy, safe to hand out of a store.
func (r *Round) Clone() *Round {
	c := *r
	c.Guesses = append([]string(nil), r.Guesses...)
	c.Marks = make([][]Mark, len(r.Marks))
	for i, m := range r.Marks {
		c.Marks[i] = append([]Mark(nil), m...)
	}
	return &c
}

func allExact(m []Mark) bool {
	for _, x := range m {
		if x != MarkExact {
			return false
		}
	}
	return true
}
