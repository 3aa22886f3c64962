// internal/store/sql.go
//
// SQL implementation of Store over sqlx.
// Responsibilities:
//   - Opening SQLite (default) or PostgreSQL from a DATABASE_URL.
//   - Puzzle CRUD keyed by (game, level).
//   - User accounts and per-game cursors, including the atomic
//     compare-and-advance used by the progression service.
//
// Queries are written with `?` bind vars and rebound per driver.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"

	"github.com/tilqural/levels/internal/catalog"
)

const (
	driverSQLite   = "sqlite3"
	driverPostgres = "postgres"
)

// SQL is a Store backed by database/sql.
type SQL struct {
	db     *sqlx.DB
	driver string
	now    func() time.Time
}

var _ Store = (*SQL)(nil)

// sqliteOptions: busy timeout + WAL; _txlock=immediate takes the write lock
// at BEGIN so read-then-write transactions do not deadlock on upgrade.
const sqliteOptions = "_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on&_txlock=immediate"

// sqliteDSN splits the file path off dsn and appends sqliteOptions to any
// query the caller already set. Caller options come first and win.
func sqliteDSN(dsn string) (file, full string) {
	file, query, _ := strings.Cut(dsn, "?")
	if query == "" {
		return file, file + "?" + sqliteOptions
	}
	return file, dsn + "&" + sqliteOptions
}

// Open connects to databaseURL:
//   - postgres://… or postgresql://… → lib/pq
//   - sqlite://path, or a bare path   → go-sqlite3 (directory created if missing)
func Open(ctx context.Context, databaseURL string) (*SQL, error) {
	driver, dsn := parseURL(databaseURL)
	if driver == driverSQLite {
		var file string
		file, dsn = sqliteDSN(dsn)
		if dir := filepath.Dir(file); dir != "." && dir != "" && file != ":memory:" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("mkdir %s: %w", dir, err)
			}
		}
	}

	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", driver, err)
	}
	if driver == driverSQLite {
		// SQLite has a single writer.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}
	return &SQL{db: db, driver: driver, now: func() time.Time { return time.Now().UTC() }}, nil
}

func parseURL(u string) (driver, dsn string) {
	switch {
	case strings.HasPrefix(u, "postgres://"), strings.HasPrefix(u, "postgresql://"):
		return driverPostgres, u
	case strings.HasPrefix(u, "sqlite://"):
		return driverSQLite, strings.TrimPrefix(u, "sqlite://")
	case strings.HasPrefix(u, "sqlite3://"):
		return driverSQLite, strings.TrimPrefix(u, "sqlite3://")
	default:
		return driverSQLite, u
	}
}

// Dialect names the migration set for this connection.
func (s *SQL) Dialect() string {
	if s.driver == driverPostgres {
		return "postgres"
	}
	return "sqlite"
}

// Close closes the underlying pool.
func (s *SQL) Close() error { return s.db.Close() }

func (s *SQL) q(query string) string { return s.db.Rebind(query) }

// isUniqueViolation matches unique/primary-key violations of either driver.
func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintUnique || se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	var pe *pq.Error
	if errors.As(err, &pe) {
		return pe.Code == "23505"
	}
	return false
}

/* ------------------------------- puzzles -------------------------------- */

const puzzleCols = `id, game, level, prompt, answer, options, hint, created_at`

func (s *SQL) GetPuzzle(ctx context.Context, game catalog.GameID, level int) (*catalog.Puzzle, error) {
	var p catalog.Puzzle
	err := s.db.GetContext(ctx, &p, s.q(`SELECT `+puzzleCols+` FROM puzzles WHERE game=? AND level=?`), game, level)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get puzzle %s/%d: %w", game, level, err)
	}
	return &p, nil
}

func (s *SQL) PuzzleExists(ctx context.Context, game catalog.GameID, level int) (bool, error) {
	return puzzleExists(ctx, s.db, s.q, game, level)
}

func puzzleExists(ctx context.Context, q sqlx.QueryerContext, rebind func(string) string, game catalog.GameID, level int) (bool, error) {
	var n int
	if err := sqlx.GetContext(ctx, q, &n, rebind(`SELECT COUNT(1) FROM puzzles WHERE game=? AND level=?`), game, level); err != nil {
		return false, fmt.Errorf("puzzle exists %s/%d: %w", game, level, err)
	}
	return n > 0, nil
}

func (s *SQL) ListPuzzles(ctx context.Context, game catalog.GameID, maxLevel int) ([]catalog.Puzzle, error) {
	out := []catalog.Puzzle{}
	var err error
	if maxLevel > 0 {
		err = s.db.SelectContext(ctx, &out, s.q(`SELECT `+puzzleCols+` FROM puzzles WHERE game=? AND level<=? ORDER BY level DESC`), game, maxLevel)
	} else {
		err = s.db.SelectContext(ctx, &out, s.q(`SELECT `+puzzleCols+` FROM puzzles WHERE game=? ORDER BY level DESC`), game)
	}
	if err != nil {
		return nil, fmt.Errorf("list puzzles %s: %w", game, err)
	}
	return out, nil
}

func (s *SQL) MaxLevel(ctx context.Context, game catalog.GameID) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, s.q(`SELECT COALESCE(MAX(level), 0) FROM puzzles WHERE game=?`), game); err != nil {
		return 0, fmt.Errorf("max level %s: %w", game, err)
	}
	return n, nil
}

func (s *SQL) CreatePuzzle(ctx context.Context, p *catalog.Puzzle) error {
	p.CreatedAt = s.now()
	err := s.db.QueryRowxContext(ctx, s.q(`
		INSERT INTO puzzles (game, level, prompt, answer, options, hint, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id`),
		p.Game, p.Level, p.Prompt, p.Answer, p.Options, p.Hint, p.CreatedAt,
	).Scan(&p.ID)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	if err != nil {
		return fmt.Errorf("create puzzle %s/%d: %w", p.Game, p.Level, err)
	}
	return nil
}

func (s *SQL) UpdatePuzzle(ctx context.Context, p *catalog.Puzzle) error {
	res, err := s.db.ExecContext(ctx, s.q(`
		UPDATE puzzles SET prompt=?, answer=?, options=?, hint=?
		WHERE game=? AND level=?`),
		p.Prompt, p.Answer, p.Options, p.Hint, p.Game, p.Level,
	)
	if err != nil {
		return fmt.Errorf("update puzzle %s/%d: %w", p.Game, p.Level, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQL) UpsertPuzzle(ctx context.Context, p *catalog.Puzzle) error {
	p.CreatedAt = s.now()
	err := s.db.QueryRowxContext(ctx, s.q(`
		INSERT INTO puzzles (game, level, prompt, answer, options, hint, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (game, level) DO UPDATE SET
			prompt = excluded.prompt,
			answer = excluded.answer,
			options = excluded.options,
			hint = excluded.hint
		RETURNING id`),
		p.Game, p.Level, p.Prompt, p.Answer, p.Options, p.Hint, p.CreatedAt,
	).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("upsert puzzle %s/%d: %w", p.Game, p.Level, err)
	}
	return nil
}

func (s *SQL) DeletePuzzle(ctx context.Context, game catalog.GameID, level int) error {
	res, err := s.db.ExecContext(ctx, s.q(`DELETE FROM puzzles WHERE game=? AND level=?`), game, level)
	if err != nil {
		return fmt.Errorf("delete puzzle %s/%d: %w", game, level, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

/* -------------------------------- users --------------------------------- */

const userCols = `id, username, email, avatar, password_hash, is_admin, created_at`

func (s *SQL) CreateUser(ctx context.Context, u *User) error {
	u.CreatedAt = s.now()
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, s.q(`
		INSERT INTO users (id, username, email, avatar, password_hash, is_admin, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`),
		u.ID, u.Username, u.Email, u.Avatar, u.PasswordHash, u.IsAdmin, u.CreatedAt,
	); err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("insert user: %w", err)
	}

	u.Levels = make(map[catalog.GameID]int)
	for _, g := range catalog.All() {
		if _, err := tx.ExecContext(ctx, s.q(`
			INSERT INTO user_levels (user_id, game, level, updated_at) VALUES (?, ?, 1, ?)`),
			u.ID, g.ID, u.CreatedAt,
		); err != nil {
			return fmt.Errorf("insert user level %s: %w", g.ID, err)
		}
		u.Levels[g.ID] = 1
	}
	return tx.Commit()
}

func (s *SQL) UserByID(ctx context.Context, id string) (*User, error) {
	return s.loadUser(ctx, `SELECT `+userCols+` FROM users WHERE id=?`, id)
}

func (s *SQL) UserByUsername(ctx context.Context, username string) (*User, error) {
	return s.loadUser(ctx, `SELECT `+userCols+` FROM users WHERE lower(username)=lower(?)`, strings.TrimSpace(username))
}

func (s *SQL) loadUser(ctx context.Context, query string, arg any) (*User, error) {
	var u User
	err := s.db.GetContext(ctx, &u, s.q(query), arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}

	rows := []struct {
		Game  catalog.GameID `db:"game"`
		Level int            `db:"level"`
	}{}
	if err := s.db.SelectContext(ctx, &rows, s.q(`SELECT game, level FROM user_levels WHERE user_id=?`), u.ID); err != nil {
		return nil, fmt.Errorf("load user levels: %w", err)
	}
	u.Levels = make(map[catalog.GameID]int, len(rows))
	for _, r := range rows {
		u.Levels[r.Game] = r.Level
	}
	return &u, nil
}

func (s *SQL) UpdateProfile(ctx context.Context, id string, upd ProfileUpdate) (*User, error) {
	res, err := s.db.ExecContext(ctx, s.q(`
		UPDATE users SET
			username = COALESCE(NULLIF(?, ''), username),
			email    = COALESCE(NULLIF(?, ''), email),
			avatar   = COALESCE(NULLIF(?, ''), avatar)
		WHERE id=?`),
		upd.Username, upd.Email, upd.Avatar, id,
	)
	if isUniqueViolation(err) {
		return nil, ErrConflict
	}
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return s.UserByID(ctx, id)
}

func (s *SQL) Cursor(ctx context.Context, userID string, game catalog.GameID) (int, error) {
	return s.cursor(ctx, s.db, userID, game)
}

// cursor reads the level of (userID, game); a missing row means 1 as long
// as the user exists.
func (s *SQL) cursor(ctx context.Context, q sqlx.QueryerContext, userID string, game catalog.GameID) (int, error) {
	var level int
	err := sqlx.GetContext(ctx, q, &level, s.q(`SELECT level FROM user_levels WHERE user_id=? AND game=?`), userID, game)
	if err == nil {
		return level, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("cursor %s/%s: %w", userID, game, err)
	}
	var n int
	if err := sqlx.GetContext(ctx, q, &n, s.q(`SELECT COUNT(1) FROM users WHERE id=?`), userID); err != nil {
		return 0, fmt.Errorf("user exists %s: %w", userID, err)
	}
	if n == 0 {
		return 0, ErrNotFound
	}
	return 1, nil
}

func (s *SQL) CompareAndAdvance(ctx context.Context, userID string, game catalog.GameID, from int) (Advance, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return Advance{}, err
	}
	defer func() { _ = tx.Rollback() }()

	cur, err := s.cursor(ctx, tx, userID, game)
	if err != nil {
		return Advance{}, err
	}
	if cur != from {
		return Advance{Status: StatusBlocked, Level: cur}, nil
	}

	ok, err := puzzleExists(ctx, tx, s.q, game, from+1)
	if err != nil {
		return Advance{}, err
	}
	if !ok {
		return Advance{Status: StatusExhausted, Level: cur}, nil
	}

	// Guarded write: only moves the cursor if it still equals `from`.
	res, err := tx.ExecContext(ctx, s.q(`
		INSERT INTO user_levels (user_id, game, level, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id, game) DO UPDATE SET level = excluded.level, updated_at = excluded.updated_at
		WHERE user_levels.level = ?`),
		userID, game, from+1, s.now(), from,
	)
	if err != nil {
		return Advance{}, fmt.Errorf("advance %s/%s: %w", userID, game, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		cur, err := s.cursor(ctx, tx, userID, game)
		if err != nil {
			return Advance{}, err
		}
		return Advance{Status: StatusBlocked, Level: cur}, tx.Commit()
	}
	if err := tx.Commit(); err != nil {
		return Advance{}, fmt.Errorf("commit advance: %w", err)
	}
	return Advance{Status: StatusAdvanced, Level: from + 1}, nil
}

func (s *SQL) Leaderboard(ctx context.Context, game catalog.GameID, limit int) ([]LeaderRow, error) {
	if limit <= 0 {
		limit = 20
	}
	out := []LeaderRow{}
	err := s.db.SelectContext(ctx, &out, s.q(`
		SELECT u.username AS username, l.level AS level
		FROM user_levels l
		JOIN users u ON u.id = l.user_id
		WHERE l.game=?
		ORDER BY l.level DESC, l.updated_at ASC, u.username ASC
		LIMIT ?`), game, limit)
	if err != nil {
		return nil, fmt.Errorf("leaderboard %s: %w", game, err)
	}
	return out, nil
}
