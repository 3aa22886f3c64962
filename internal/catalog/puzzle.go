package catalog

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tilqural/levels/internal/words"
)

// Puzzle is one numbered level of a game. Unique per (Game, Level).
type Puzzle struct {
	ID        int64     `json:"id" db:"id"`
	Game      GameID    `json:"game" db:"game"`
	Level     int       `json:"level" db:"level"`
	Prompt    string    `json:"prompt,omitempty" db:"prompt"`
	Answer    string    `json:"answer" db:"answer"`
	Options   Options   `json:"options,omitempty" db:"options"`
	Hint      string    `json:"hint,omitempty" db:"hint"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// MarshalJSON adds "word" for word-game puzzles, the field clients of the
// word game read the target from.
func (p Puzzle) MarshalJSON() ([]byte, error) {
	type plain Puzzle
	if p.Game != Sozdly {
		return json.Marshal(plain(p))
	}
	return json.Marshal(struct {
		plain
		Word string `json:"word"`
	}{plain(p), p.Answer})
}

// ErrInvalidPuzzle wraps every validation failure from Validate.
var ErrInvalidPuzzle = errors.New("invalid puzzle")

// Validate checks p against the rules of its game and normalizes the
// word-game answer in place.
func (p *Puzzle) Validate() error {
	g, err := Lookup(string(p.Game))
	if err != nil {
		return err
	}
	if p.Level < 1 {
		return fmt.Errorf("%w: level must be >= 1", ErrInvalidPuzzle)
	}
	p.Prompt = strings.TrimSpace(p.Prompt)
	p.Answer = strings.TrimSpace(p.Answer)
	p.Hint = strings.TrimSpace(p.Hint)
	if p.Answer == "" {
		return fmt.Errorf("%w: answer is required", ErrInvalidPuzzle)
	}
	switch g.Kind {
	case KindWord:
		if !words.Valid(p.Answer) {
			return fmt.Errorf("%w: word must be exactly %d letters", ErrInvalidPuzzle, words.Length)
		}
		p.Answer = words.Normalize(p.Answer)
	case KindQuiz, KindProverb:
		if p.Prompt == "" {
			return fmt.Errorf("%w: prompt is required", ErrInvalidPuzzle)
		}
		if len(p.Options) > 0 && !p.Options.Contains(p.Answer) {
			return fmt.Errorf("%w: answer must be one of the options", ErrInvalidPuzzle)
		}
	}
	return nil
}

// Options are answer choices, persisted as a JSON array.
type Options []string

// Contains reports whether s is one of the options (case-insensitive).
func (o Options) Contains(s string) bool {
	for _, v := range o {
		if strings.EqualFold(strings.TrimSpace(v), strings.TrimSpace(s)) {
			return true
		}
	}
	return false
}

// Value implements driver.Valuer.
func (o Options) Value() (driver.Value, error) {
	if o == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(o))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (o *Options) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*o = nil
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("options: unsupported type %T", src)
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err != nil {
		return fmt.Errorf("options: %w", err)
	}
	if len(list) == 0 {
		list = nil
	}
	*o = list
	return nil
}

// ParseOptions splits a "a|b|c" cell into options, dropping blanks.
func ParseOptions(s string) Options {
	var out Options
	for _, part := range strings.Split(s, "|") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
