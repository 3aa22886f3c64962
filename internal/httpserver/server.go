// internal/httpserver/server.go
//
// HTTP server wiring for the levels backend.
// Responsibilities:
//   - Router + middleware (request IDs, access log, panic recovery,
//     timeouts, CORS, JSON content type).
//   - Public endpoints: "/", "/health", /auth/signup|login|logout.
//   - Authenticated endpoints: /auth/me, /profile/*, word rounds,
//     /leaderboard/{game}.
//   - Admin endpoints: /admin/{game}/puzzles, /admin/{game}/import.
//   - Static avatars under /uploads/*.
//
// Notes:
//   - CORS is origin-aware and credentials-enabled (so cookies work).
//   - Every game's profile routes come from one generic handler set,
//     parameterized by catalog.Game (see routes_profile.go).

package httpserver

import (
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"

	"github.com/tilqural/levels/internal/auth"
	"github.com/tilqural/levels/internal/play"
	"github.com/tilqural/levels/internal/progress"
	"github.com/tilqural/levels/internal/store"
)

// Deps are the collaborators a Server routes to.
type Deps struct {
	Store        store.Store
	Progress     *progress.Service
	Play         *play.Service
	Auth         *auth.Manager
	UploadDir    string
	ClientOrigin string
}

// Server bundles the router and its collaborators.
type Server struct {
	r         *chi.Mux
	store     store.Store
	progress  *progress.Service
	play      *play.Service
	auth      *auth.Manager
	uploadDir string
	origin    string
	now       func() time.Time
}

// New constructs a Server, installs middleware, and registers routes.
func New(d Deps) *Server {
	s := &Server{
		r:         chi.NewRouter(),
		store:     d.Store,
		progress:  d.Progress,
		play:      d.Play,
		auth:      d.Auth,
		uploadDir: d.UploadDir,
		origin:    d.ClientOrigin,
		now:       time.Now,
	}
	if s.uploadDir == "" {
		s.uploadDir = "./uploads"
	}
	if s.origin == "" {
		s.origin = "http://localhost:5173"
	}

	// --- middleware ---
	s.r.Use(chimw.RequestID)                 // add X-Request-ID
	s.r.Use(chimw.RealIP)                    // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(hlog.NewHandler(log.Logger))     // request-scoped logger
	s.r.Use(accessLog)                       // one line per request
	s.r.Use(chimw.Recoverer)                 // recover from panics
	s.r.Use(chimw.Timeout(15 * time.Second)) // bound handler time
	s.r.Use(s.cors)                          // credentials-friendly CORS

	// avatars are served with their own content type
	s.r.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(http.Dir(s.uploadDir))))

	s.r.Group(func(r chi.Router) {
		r.Use(jsonContentType)

		// --- diagnostics ---
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{
				"service":   "levels",
				"endpoints": []string{"/health", "/auth/*", "/profile/*", "/leaderboard/{game}", "/admin/{game}/*"},
			})
		})
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
		})

		s.mountAuthRoutes(r)

		r.Group(func(r chi.Router) {
			r.Use(s.auth.RequireAuth(s.store))
			r.Get("/auth/me", s.handleMe)
			r.Route("/profile", s.mountProfileRoutes)
			r.Get("/leaderboard/{game}", s.handleLeaderboard)

			r.Route("/admin/{game}", func(r chi.Router) {
				r.Use(auth.RequireAdmin)
				s.mountAdminRoutes(r)
			})
		})

		// JSON 404 for easier debugging
		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusNotFound, map[string]string{"message": "not found", "path": r.URL.Path})
		})
	})

	return s
}

// Start begins serving HTTP on addr.
func (s *Server) Start(addr string) error { return http.ListenAndServe(addr, s.r) }

// Handler exposes the router (for http.Server and tests).
func (s *Server) Handler() http.Handler { return s.r }

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// cors enables credentialed CORS for a single origin.
func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Origin", s.origin)
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

var accessLog = hlog.AccessHandler(func(r *http.Request, status, size int, d time.Duration) {
	ev := hlog.FromRequest(r).Info()
	if status >= 500 {
		ev = hlog.FromRequest(r).Warn()
	}
	ev.Str("req_id", chimw.GetReqID(r.Context())).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Int("status", status).
		Int("size", size).
		Dur("took", d).
		Msg("request")
})

// ensureUploadDir creates the avatar directory on first use.
func (s *Server) ensureUploadDir() error {
	return os.MkdirAll(s.uploadDir, 0o755)
}
