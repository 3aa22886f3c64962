package httpserver

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tilqural/levels/internal/auth"
	"github.com/tilqural/levels/internal/game"
	"github.com/tilqural/levels/internal/play"
	"github.com/tilqural/levels/internal/progress"
	"github.com/tilqural/levels/internal/store"
)

type startRoundReq struct {
	Level *int `json:"level"`
}

type guessReq struct {
	Guess string `json:"guess"`
}

// handleStartRound opens a sozdly round at {level} (default: the cursor).
func (s *Server) handleStartRound(w http.ResponseWriter, r *http.Request) {
	me, _ := auth.FromContext(r.Context())
	var body startRoundReq
	if err := decodeOptionalJSON(r, &body); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	var (
		st  play.Started
		err error
	)
	if body.Level == nil {
		st, err = s.play.Start(r.Context(), me.ID)
	} else {
		st, err = s.play.StartLevel(r.Context(), me.ID, *body.Level)
	}
	switch {
	case errors.Is(err, progress.ErrInvalidLevel):
		writeMessage(w, http.StatusBadRequest, "Invalid level parameter")
	case errors.Is(err, play.ErrLevelLocked):
		writeMessage(w, http.StatusForbidden, "Level is not unlocked yet")
	case errors.Is(err, store.ErrNotFound):
		writeMessage(w, http.StatusNotFound, "Level not found")
	case err != nil:
		serverError(w, r, err, "Error starting round")
	default:
		writeJSON(w, http.StatusCreated, st)
	}
}

// handleGuess scores one guess; a winning guess also advances the cursor.
func (s *Server) handleGuess(w http.ResponseWriter, r *http.Request) {
	me, _ := auth.FromContext(r.Context())
	var body guessReq
	if err := decodeJSON(r, &body); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := s.play.Guess(r.Context(), me.ID, chi.URLParam(r, "id"), body.Guess)
	switch {
	case errors.Is(err, game.ErrGuessLength), errors.Is(err, game.ErrGuessLetters):
		writeMessage(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, game.ErrRoundOver):
		writeMessage(w, http.StatusConflict, "Round is over")
	case errors.Is(err, store.ErrNotFound):
		writeMessage(w, http.StatusNotFound, "Round not found")
	case err != nil:
		serverError(w, r, err, "Error scoring guess")
	default:
		writeJSON(w, http.StatusOK, res)
	}
}
