// internal/auth/auth.go
//
// Accounts and session tokens.
// Responsibilities:
//   - Username/password rules and bcrypt hashing.
//   - HS256 JWT signing/parsing (claims: id, username, admin, exp, iat).
//   - Auth cookie handling; tokens accepted from "Authorization: Bearer"
//     or the cookie.
//
// Middleware lives in middleware.go.

package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUsernameTaken = errors.New("username taken")
	ErrInvalidToken  = errors.New("invalid token")
)

// Config holds token and cookie settings.
type Config struct {
	Secret     string
	TTL        time.Duration
	CookieName string
	Secure     bool // Secure + SameSite=None cookies (production)
}

// Identity is what a valid token says about its bearer.
type Identity struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Admin    bool   `json:"isAdmin"`
}

// Manager signs and verifies tokens and manages the auth cookie.
type Manager struct {
	cfg Config
	now func() time.Time
}

func NewManager(cfg Config) *Manager {
	if cfg.TTL <= 0 {
		cfg.TTL = 14 * 24 * time.Hour
	}
	if cfg.CookieName == "" {
		cfg.CookieName = "levels_token"
	}
	return &Manager{cfg: cfg, now: time.Now}
}

// Sign creates a token for id with the configured expiry.
func (m *Manager) Sign(id Identity) (string, time.Time, error) {
	now := m.now()
	exp := now.Add(m.cfg.TTL)
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":       id.ID,
		"username": id.Username,
		"admin":    id.Admin,
		"exp":      exp.Unix(),
		"iat":      now.Unix(),
	})
	ss, err := t.SignedString([]byte(m.cfg.Secret))
	return ss, exp, err
}

// Parse verifies tokenStr and returns its identity.
func (m *Manager) Parse(tokenStr string) (Identity, error) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(m.cfg.Secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(m.now))
	if err != nil || !token.Valid {
		return Identity{}, ErrInvalidToken
	}
	id, _ := claims["id"].(string)
	username, _ := claims["username"].(string)
	admin, _ := claims["admin"].(bool)
	if id == "" || username == "" {
		return Identity{}, ErrInvalidToken
	}
	return Identity{ID: id, Username: username, Admin: admin}, nil
}

// SetCookie writes the auth token cookie.
func (m *Manager) SetCookie(w http.ResponseWriter, token string, exp time.Time) {
	http.SetCookie(w, m.cookie(token, exp, 0))
}

// ClearCookie deletes the auth token cookie.
func (m *Manager) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, m.cookie("", time.Time{}, -1))
}

func (m *Manager) cookie(value string, exp time.Time, maxAge int) *http.Cookie {
	sameSite := http.SameSiteLaxMode
	if m.cfg.Secure {
		sameSite = http.SameSiteNoneMode // required for cross-site cookies when Secure
	}
	return &http.Cookie{
		Name:     m.cfg.CookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.cfg.Secure,
		SameSite: sameSite,
		Expires:  exp,
		MaxAge:   maxAge,
	}
}

// TokenFromRequest extracts a bearer token from the Authorization header
// or the auth cookie.
func (m *Manager) TokenFromRequest(r *http.Request) string {
	if a := r.Header.Get("Authorization"); strings.HasPrefix(strings.ToLower(a), "bearer ") {
		return strings.TrimSpace(a[7:])
	}
	if c, err := r.Cookie(m.cfg.CookieName); err == nil {
		return c.Value
	}
	return ""
}

/* ------------------------------ passwords ------------------------------- */

func HashPassword(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	return string(b), err
}

func CheckPassword(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

func NormalizeUsername(u string) string {
	return strings.TrimSpace(u)
}

// ValidateUsername allows 3-24 letters, digits or underscores.
func ValidateUsername(u string) error {
	if len(u) < 3 || len(u) > 24 {
		return errors.New("username must be 3-24 chars")
	}
	for _, r := range u {
		if !(r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return errors.New("username: letters, numbers, underscore only")
		}
	}
	return nil
}

// ValidateSignup enforces basic username/password rules.
func ValidateSignup(u, p string) error {
	if err := ValidateUsername(u); err != nil {
		return err
	}
	if len(p) < 8 || len(p) > 100 {
		return errors.New("password must be 8-100 chars")
	}
	return nil
}
