// internal/httpserver/routes_admin.go
//
// Content management (admin only) and the public leaderboard.
//
//   GET    /admin/{game}/puzzles          every level, highest first
//   POST   /admin/{game}/puzzles          create a level
//   PUT    /admin/{game}/puzzles/{level}  replace a level's content
//   DELETE /admin/{game}/puzzles/{level}
//   POST   /admin/{game}/import           multipart "file" (.xlsx or .csv)
//   GET    /leaderboard/{game}?limit=N

package httpserver

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"

	"github.com/tilqural/levels/internal/auth"
	"github.com/tilqural/levels/internal/catalog"
	"github.com/tilqural/levels/internal/importer"
	"github.com/tilqural/levels/internal/store"
)

const (
	defaultLeaderLimit = 20
	maxLeaderLimit     = 100
	maxImportBytes     = 10 << 20
)

type puzzleReq struct {
	Level   int      `json:"level"`
	Prompt  string   `json:"prompt"`
	Answer  string   `json:"answer"`
	Word    string   `json:"word"` // alias of answer for the word game
	Options []string `json:"options"`
	Hint    string   `json:"hint"`
}

func (p puzzleReq) puzzle(g catalog.GameID) *catalog.Puzzle {
	answer := p.Answer
	if answer == "" {
		answer = p.Word
	}
	return &catalog.Puzzle{
		Game:    g,
		Level:   p.Level,
		Prompt:  p.Prompt,
		Answer:  answer,
		Options: catalog.Options(p.Options),
		Hint:    p.Hint,
	}
}

func (s *Server) mountAdminRoutes(r chi.Router) {
	r.Get("/puzzles", s.handleListPuzzles)
	r.Post("/puzzles", s.handleCreatePuzzle)
	r.Put("/puzzles/{level}", s.handleUpdatePuzzle)
	r.Delete("/puzzles/{level}", s.handleDeletePuzzle)
	r.Post("/import", s.handleImport)
}

// gameParam resolves {game}; it writes a 404 and returns false when unknown.
func gameParam(w http.ResponseWriter, r *http.Request) (catalog.Game, bool) {
	g, err := catalog.Lookup(chi.URLParam(r, "game"))
	if err != nil {
		writeMessage(w, http.StatusNotFound, "Unknown game")
		return catalog.Game{}, false
	}
	return g, true
}

func (s *Server) handleListPuzzles(w http.ResponseWriter, r *http.Request) {
	g, ok := gameParam(w, r)
	if !ok {
		return
	}
	list, err := s.store.ListPuzzles(r.Context(), g.ID, 0)
	if err != nil {
		serverError(w, r, err, "Error listing puzzles")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleCreatePuzzle(w http.ResponseWriter, r *http.Request) {
	g, ok := gameParam(w, r)
	if !ok {
		return
	}
	var body puzzleReq
	if err := decodeJSON(r, &body); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	p := body.puzzle(g.ID)
	if err := p.Validate(); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.store.CreatePuzzle(r.Context(), p); err != nil {
		if errors.Is(err, store.ErrConflict) {
			writeMessage(w, http.StatusConflict, "Level already exists")
			return
		}
		serverError(w, r, err, "Error creating puzzle")
		return
	}
	s.logAdmin(r, "puzzle created", g.ID, p.Level)
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleUpdatePuzzle(w http.ResponseWriter, r *http.Request) {
	g, ok := gameParam(w, r)
	if !ok {
		return
	}
	level, err := strconv.Atoi(chi.URLParam(r, "level"))
	if err != nil || level < 1 {
		writeMessage(w, http.StatusBadRequest, "Invalid level parameter")
		return
	}
	var body puzzleReq
	if err := decodeJSON(r, &body); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	body.Level = level
	p := body.puzzle(g.ID)
	if err := p.Validate(); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.store.UpdatePuzzle(r.Context(), p); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeMessage(w, http.StatusNotFound, "Level not found")
			return
		}
		serverError(w, r, err, "Error updating puzzle")
		return
	}
	s.logAdmin(r, "puzzle updated", g.ID, level)
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleDeletePuzzle(w http.ResponseWriter, r *http.Request) {
	g, ok := gameParam(w, r)
	if !ok {
		return
	}
	level, err := strconv.Atoi(chi.URLParam(r, "level"))
	if err != nil || level < 1 {
		writeMessage(w, http.StatusBadRequest, "Invalid level parameter")
		return
	}
	if err := s.store.DeletePuzzle(r.Context(), g.ID, level); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeMessage(w, http.StatusNotFound, "Level not found")
			return
		}
		serverError(w, r, err, "Error deleting puzzle")
		return
	}
	s.logAdmin(r, "puzzle deleted", g.ID, level)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// handleImport bulk-loads puzzles from an uploaded spreadsheet.
// Optional form fields: sheet, startRow.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	g, ok := gameParam(w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxImportBytes)
	file, hdr, err := r.FormFile("file")
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "A .xlsx or .csv file is required in field \"file\"")
		return
	}
	defer file.Close()

	cfg := importer.DefaultConfig(g.ID)
	if cfg.Format, err = importer.FormatFromName(hdr.Filename); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	cfg.SheetName = r.FormValue("sheet")
	if v := r.FormValue("startRow"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeMessage(w, http.StatusBadRequest, "Invalid startRow")
			return
		}
		cfg.StartRow = n
	}

	res, err := importer.Import(r.Context(), s.store, file, cfg)
	if err != nil {
		hlog.FromRequest(r).Warn().Err(err).Str("game", string(g.ID)).Str("file", hdr.Filename).Msg("import failed")
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) logAdmin(r *http.Request, msg string, g catalog.GameID, level int) {
	me, _ := auth.FromContext(r.Context())
	hlog.FromRequest(r).Info().Str("admin", me.Username).Str("game", string(g)).Int("puzzle_level", level).Msg(msg)
}

// handleLeaderboard lists the users with the highest cursor in {game}.
func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	g, ok := gameParam(w, r)
	if !ok {
		return
	}
	limit := defaultLeaderLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeMessage(w, http.StatusBadRequest, "Invalid limit parameter")
			return
		}
		limit = min(n, maxLeaderLimit)
	}
	rows, err := s.store.Leaderboard(r.Context(), g.ID, limit)
	if err != nil {
		serverError(w, r, err, "Error fetching leaderboard")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"game": g.ID, "levelKey": g.LevelKey, "entries": rows})
}
