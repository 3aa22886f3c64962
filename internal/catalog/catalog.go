// internal/catalog/catalog.go
//
// Game catalog: the level-based mini-games served by this backend.
//
// Every game shares one progression flow (current / level / completed /
// updateLevel); a Game descriptor carries the per-game names so routes and
// responses are produced from a single generic implementation.

package catalog

import (
	"errors"
	"fmt"
)

// GameID is the stable identifier stored alongside puzzles and cursors.
type GameID string

const (
	Talda      GameID = "talda"  // proverb game
	SuraqJauap GameID = "sj"     // question/answer quiz
	Sozdly     GameID = "sozdly" // 5-letter word game
)

// Kind is the kind of content a game serves.
type Kind string

const (
	KindProverb Kind = "proverb"
	KindQuiz    Kind = "quiz"
	KindWord    Kind = "word"
)

// Game describes one mini-game.
type Game struct {
	ID    GameID
	Kind  Kind
	Title string

	// RoutePrefix is prepended to the per-game profile routes,
	// e.g. "sj" gives /profile/sjcurrent. Talda has none.
	RoutePrefix string

	// LevelKey names the cursor in updateLevel responses.
	LevelKey string

	// ProfileKey names the cursor in GET /profile.
	ProfileKey string
}

// ErrUnknownGame is returned by Lookup for ids outside the catalog.
var ErrUnknownGame = errors.New("unknown game")

var games = []Game{
	{ID: Talda, Kind: KindProverb, Title: "Talda", RoutePrefix: "", LevelKey: "taldaLevel", ProfileKey: "taldaLevel"},
	{ID: SuraqJauap, Kind: KindQuiz, Title: "Suraq-Jauap", RoutePrefix: "sj", LevelKey: "SJLevel", ProfileKey: "SJlevel"},
	{ID: Sozdly, Kind: KindWord, Title: "Sozdly", RoutePrefix: "sozdly", LevelKey: "sozdlyLevel", ProfileKey: "sozdlyLevel"},
}

// All returns every game in display order.
func All() []Game {
	out := make([]Game, len(games))
	copy(out, games)
	return out
}

// Lookup resolves a game by id.
func Lookup(id string) (Game, error) {
	for _, g := range games {
		if string(g.ID) == id {
			return g, nil
		}
	}
	return Game{}, fmt.Errorf("%w: %q", ErrUnknownGame, id)
}

// MustLookup is Lookup for ids known at compile time.
func MustLookup(id GameID) Game {
	g, err := Lookup(string(id))
	if err != nil {
		panic(err)
	}
	return g
}
