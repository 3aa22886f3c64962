// internal/game/types.go
//
// Core type definitions for the word-game engine.
// Defines:
//   - Mark: per-letter verdict for a guess (exact/partial/absent).
//   - State: lifecycle of a round (playing → completed | revealed).
//   - Round: one attempt at a level, bounded by MaxAttempts guesses.

package game

import "time"

// Mark is the verdict for a single letter of a guess.
//   - "exact":   right letter, right position.
//   - "partial": letter occurs in the target at another, unclaimed position.
//   - "absent":  no unclaimed occurrence left in the target.
type Mark string

const (
	MarkExact   Mark = "exact"
	MarkPartial Mark = "partial"
	MarkAbsent  Mark = "absent"
)

// State is the lifecycle state of a Round.
type State string

const (
	StatePlaying   State = "playing"
	StateCompleted State = "completed" // guessed; the level counts as won
	StateRevealed  State = "revealed"  // attempts exhausted; target shown
)

// Round holds the state of a single word-game attempt at one level.
type Round struct {
	ID          string    // Unique round identifier.
	UserID      string    // Owner; only the owner may guess.
	Level       int       // Puzzle level being played.
	Target      string    // Normalized target word.
	MaxAttempts int       // Guess budget (DefaultAttempts).
	Guesses     []string  // Normalized guesses, in order.
	Marks       [][]Mark  // Verdicts, parallel to Guesses.
	State       State     // Current lifecycle state.
	StartedAt   time.Time // Creation time.
	UpdatedAt   time.Time // Last guess (or creation) time.
}
