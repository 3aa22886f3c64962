// internal/httpserver/routes_profile.go
//
// Profile surface and the per-game progression routes.
//
// For each game g (RoutePrefix p, "" for talda) under /profile:
//   GET  /<p>current      puzzle at the user's cursor
//   GET  /<p>level?level=N puzzle at level N
//   GET  /<p>completed    puzzles at levels <= cursor, highest first
//   POST /<p>updateLevel  {level} → advance from the cursor

package httpserver

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"

	"github.com/tilqural/levels/internal/auth"
	"github.com/tilqural/levels/internal/catalog"
	"github.com/tilqural/levels/internal/progress"
	"github.com/tilqural/levels/internal/store"
)

func (s *Server) mountProfileRoutes(r chi.Router) {
	r.Get("/", s.handleProfile)
	r.Post("/updateProfile", s.handleUpdateProfile)

	for _, g := range catalog.All() {
		h := gameRoutes{s: s, game: g}
		p := "/" + g.RoutePrefix
		r.Get(p+"current", h.current)
		r.Get(p+"level", h.level)
		r.Get(p+"completed", h.completed)
		r.Post(p+"updateLevel", h.updateLevel)
	}

	r.Post("/sozdly/rounds", s.handleStartRound)
	r.Post("/sozdly/rounds/{id}/guess", s.handleGuess)
}

// handleProfile returns the user's profile fields and every game cursor.
func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	me, _ := auth.FromContext(r.Context())
	u, err := s.store.UserByID(r.Context(), me.ID)
	if errors.Is(err, store.ErrNotFound) {
		writeMsg(w, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Str("user", me.ID).Msg("fetch profile")
		writeMsg(w, http.StatusInternalServerError, "An error occurred while retrieving the profile")
		return
	}
	writeJSON(w, http.StatusOK, profileBody(u))
}

func profileBody(u *store.User) map[string]any {
	body := map[string]any{
		"username": u.Username,
		"email":    u.Email,
		"avatar":   u.Avatar,
	}
	for _, g := range catalog.All() {
		body[g.ProfileKey] = u.Level(g.ID)
	}
	return body
}

// gameRoutes serves the progression routes of one game.
type gameRoutes struct {
	s    *Server
	game catalog.Game
}

func (h gameRoutes) current(w http.ResponseWriter, r *http.Request) {
	me, _ := auth.FromContext(r.Context())
	p, err := h.s.progress.Current(r.Context(), me.ID, h.game.ID)
	if errors.Is(err, store.ErrNotFound) {
		writeMessage(w, http.StatusNotFound, fmt.Sprintf("Current %s level not found", h.game.Title))
		return
	}
	if err != nil {
		serverError(w, r, err, fmt.Sprintf("Error fetching current %s level", h.game.Title))
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h gameRoutes) level(w http.ResponseWriter, r *http.Request) {
	level, err := strconv.Atoi(strings.TrimSpace(r.URL.Query().Get("level")))
	if err != nil || level < 1 {
		writeMessage(w, http.StatusBadRequest, "Invalid level parameter")
		return
	}
	p, err := h.s.progress.ByLevel(r.Context(), h.game.ID, level)
	if errors.Is(err, store.ErrNotFound) {
		writeMessage(w, http.StatusNotFound, "Level not found")
		return
	}
	if err != nil {
		serverError(w, r, err, fmt.Sprintf("Error fetching %s level", h.game.Title))
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h gameRoutes) completed(w http.ResponseWriter, r *http.Request) {
	me, _ := auth.FromContext(r.Context())
	list, err := h.s.progress.Completed(r.Context(), me.ID, h.game.ID)
	if errors.Is(err, store.ErrNotFound) {
		writeMessage(w, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		serverError(w, r, err, fmt.Sprintf("Error fetching completed %s levels", h.game.Title))
		return
	}
	writeJSON(w, http.StatusOK, list)
}

type updateLevelReq struct {
	Level *int `json:"level"`
}

// updateLevel answers 200 for all three advance outcomes; only the
// presence of "message" tells them apart.
func (h gameRoutes) updateLevel(w http.ResponseWriter, r *http.Request) {
	me, _ := auth.FromContext(r.Context())
	var body updateLevelReq
	if err := decodeJSON(r, &body); err != nil || body.Level == nil {
		writeMessage(w, http.StatusBadRequest, "Invalid level parameter")
		return
	}
	out, err := h.s.progress.Advance(r.Context(), me.ID, h.game.ID, *body.Level)
	switch {
	case errors.Is(err, progress.ErrInvalidLevel):
		writeMessage(w, http.StatusBadRequest, "Invalid level parameter")
		return
	case errors.Is(err, store.ErrNotFound):
		writeMessage(w, http.StatusNotFound, "User not found")
		return
	case err != nil:
		serverError(w, r, err, fmt.Sprintf("Error updating %s level", h.game.Title))
		return
	}
	writeJSON(w, http.StatusOK, advanceBody(h.game, out))
}

func advanceBody(g catalog.Game, out progress.Outcome) map[string]any {
	body := map[string]any{g.LevelKey: out.Level}
	if msg := out.Message(); msg != "" {
		body["message"] = msg
	}
	return body
}
