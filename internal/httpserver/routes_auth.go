package httpserver

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/hlog"

	"github.com/tilqural/levels/internal/auth"
	"github.com/tilqural/levels/internal/store"
)

type credentials struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) mountAuthRoutes(r chi.Router) {
	r.Post("/auth/signup", s.handleSignup)
	r.Post("/auth/login", s.handleLogin)
	r.Post("/auth/logout", s.handleLogout)
}

// handleSignup creates a user (cursor 1 in every game), signs a JWT and
// sets the auth cookie. The token is also returned for bearer clients.
func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var body credentials
	if err := decodeJSON(r, &body); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	username := auth.NormalizeUsername(body.Username)
	if err := auth.ValidateSignup(username, body.Password); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	hash, err := auth.HashPassword(body.Password)
	if err != nil {
		serverError(w, r, err, "Error creating account")
		return
	}
	u := &store.User{ID: uuid.NewString(), Username: username, Email: body.Email, PasswordHash: hash}
	if err := s.store.CreateUser(r.Context(), u); err != nil {
		if errors.Is(err, store.ErrConflict) {
			writeMessage(w, http.StatusConflict, "Username taken")
			return
		}
		serverError(w, r, err, "Error creating account")
		return
	}
	hlog.FromRequest(r).Info().Str("user", u.ID).Str("username", u.Username).Msg("signup")
	s.issueSession(w, r, u, http.StatusCreated)
}

// handleLogin authenticates a user and sets the auth cookie.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body credentials
	if err := decodeJSON(r, &body); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	u, err := s.store.UserByUsername(r.Context(), auth.NormalizeUsername(body.Username))
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		serverError(w, r, err, "Error logging in")
		return
	}
	if u == nil || !auth.CheckPassword(u.PasswordHash, body.Password) {
		writeMessage(w, http.StatusUnauthorized, "Invalid username or password")
		return
	}
	s.issueSession(w, r, u, http.StatusOK)
}

func (s *Server) issueSession(w http.ResponseWriter, r *http.Request, u *store.User, status int) {
	tok, exp, err := s.auth.Sign(auth.Identity{ID: u.ID, Username: u.Username, Admin: u.IsAdmin})
	if err != nil {
		serverError(w, r, err, "Error signing token")
		return
	}
	s.auth.SetCookie(w, tok, exp)
	writeJSON(w, status, map[string]any{
		"id":       u.ID,
		"username": u.Username,
		"isAdmin":  u.IsAdmin,
		"token":    tok,
	})
}

// handleLogout clears the auth cookie.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.auth.ClearCookie(w)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	me, _ := auth.FromContext(r.Context())
	writeJSON(w, http.StatusOK, me)
}
