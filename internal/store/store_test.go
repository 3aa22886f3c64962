package store

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tilqural/levels/internal/catalog"
	"github.com/tilqural/levels/internal/game"
)

// eachStore runs fn against a fresh Memory store and a fresh migrated
// SQLite store.
func eachStore(t *testing.T, fn func(t *testing.T, st Store)) {
	t.Run("memory", func(t *testing.T) {
		fn(t, NewMemory())
	})
	t.Run("sqlite", func(t *testing.T) {
		ctx := context.Background()
		st, err := Open(ctx, "sqlite://"+filepath.Join(t.TempDir(), "test.db"))
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		t.Cleanup(func() { _ = st.Close() })
		if err := st.Migrate(ctx); err != nil {
			t.Fatalf("Migrate: %v", err)
		}
		fn(t, st)
	})
}

func seedWords(t *testing.T, st Store, levels ...int) {
	t.Helper()
	for _, l := range levels {
		p := &catalog.Puzzle{Game: catalog.Sozdly, Level: l, Answer: "SHARE"}
		if err := st.CreatePuzzle(context.Background(), p); err != nil {
			t.Fatalf("CreatePuzzle(%d): %v", l, err)
		}
	}
}

func newUser(t *testing.T, st Store, name string) *User {
	t.Helper()
	u := &User{ID: uuid.NewString(), Username: name, Email: name + "@example.com", PasswordHash: "x"}
	if err := st.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("CreateUser(%s): %v", name, err)
	}
	return u
}

func TestPuzzles(t *testing.T) {
	eachStore(t, func(t *testing.T, st Store) {
		ctx := context.Background()
		seedWords(t, st, 1, 2, 3)

		if err := st.CreatePuzzle(ctx, &catalog.Puzzle{Game: catalog.Sozdly, Level: 2, Answer: "CRANE"}); !errors.Is(err, ErrConflict) {
			t.Fatalf("duplicate CreatePuzzle err = %v, want ErrConflict", err)
		}

		p, err := st.GetPuzzle(ctx, catalog.Sozdly, 2)
		if err != nil || p.Answer != "SHARE" || p.Level != 2 || p.ID == 0 {
			t.Fatalf("GetPuzzle = %+v, %v", p, err)
		}
		if _, err := st.GetPuzzle(ctx, catalog.SuraqJauap, 2); !errors.Is(err, ErrNotFound) {
			t.Fatalf("GetPuzzle other game err = %v", err)
		}

		list, err := st.ListPuzzles(ctx, catalog.Sozdly, 2)
		if err != nil || len(list) != 2 || list[0].Level != 2 || list[1].Level != 1 {
			t.Fatalf("ListPuzzles(<=2) = %+v, %v", list, err)
		}
		all, _ := st.ListPuzzles(ctx, catalog.Sozdly, 0)
		if len(all) != 3 {
			t.Fatalf("ListPuzzles(all) len = %d", len(all))
		}

		if max, _ := st.MaxLevel(ctx, catalog.Sozdly); max != 3 {
			t.Fatalf("MaxLevel = %d", max)
		}
		if max, _ := st.MaxLevel(ctx, catalog.Talda); max != 0 {
			t.Fatalf("MaxLevel(empty) = %d", max)
		}

		q := &catalog.Puzzle{Game: catalog.SuraqJauap, Level: 1, Prompt: "2+2?", Answer: "4", Options: catalog.Options{"3", "4"}}
		if err := st.UpsertPuzzle(ctx, q); err != nil {
			t.Fatal(err)
		}
		q.Answer = "3"
		if err := st.UpsertPuzzle(ctx, q); err != nil {
			t.Fatal(err)
		}
		got, err := st.GetPuzzle(ctx, catalog.SuraqJauap, 1)
		if err != nil || got.Answer != "3" || len(got.Options) != 2 {
			t.Fatalf("after upsert = %+v, %v", got, err)
		}

		if err := st.UpdatePuzzle(ctx, &catalog.Puzzle{Game: catalog.Talda, Level: 9, Answer: "x"}); !errors.Is(err, ErrNotFound) {
			t.Fatalf("UpdatePuzzle missing err = %v", err)
		}
		if err := st.DeletePuzzle(ctx, catalog.Sozdly, 3); err != nil {
			t.Fatal(err)
		}
		if ok, _ := st.PuzzleExists(ctx, catalog.Sozdly, 3); ok {
			t.Fatal("puzzle 3 still exists")
		}
		if err := st.DeletePuzzle(ctx, catalog.Sozdly, 3); !errors.Is(err, ErrNotFound) {
			t.Fatalf("second delete err = %v", err)
		}
	})
}

func TestUsers(t *testing.T) {
	eachStore(t, func(t *testing.T, st Store) {
		ctx := context.Background()
		u := newUser(t, st, "aigerim")

		dup := &User{ID: uuid.NewString(), Username: "AIGERIM", PasswordHash: "x"}
		if err := st.CreateUser(ctx, dup); !errors.Is(err, ErrConflict) {
			t.Fatalf("duplicate username err = %v", err)
		}

		got, err := st.UserByUsername(ctx, "Aigerim")
		if err != nil || got.ID != u.ID {
			t.Fatalf("UserByUsername = %+v, %v", got, err)
		}
		for _, g := range catalog.All() {
			if got.Level(g.ID) != 1 {
				t.Fatalf("default level %s = %d", g.ID, got.Level(g.ID))
			}
		}

		upd, err := st.UpdateProfile(ctx, u.ID, ProfileUpdate{Email: "new@example.com"})
		if err != nil || upd.Email != "new@example.com" || upd.Username != "aigerim" {
			t.Fatalf("UpdateProfile = %+v, %v", upd, err)
		}
		newUser(t, st, "daulet")
		if _, err := st.UpdateProfile(ctx, u.ID, ProfileUpdate{Username: "Daulet"}); !errors.Is(err, ErrConflict) {
			t.Fatalf("rename to taken err = %v", err)
		}
		if _, err := st.UpdateProfile(ctx, "missing", ProfileUpdate{Email: "a@b"}); !errors.Is(err, ErrNotFound) {
			t.Fatalf("update missing err = %v", err)
		}
		if _, err := st.Cursor(ctx, "missing", catalog.Sozdly); !errors.Is(err, ErrNotFound) {
			t.Fatalf("Cursor missing err = %v", err)
		}
	})
}

func TestCompareAndAdvance(t *testing.T) {
	eachStore(t, func(t *testing.T, st Store) {
		ctx := context.Background()
		seedWords(t, st, 1, 2, 3)
		u := newUser(t, st, "aigerim")

		adv, err := st.CompareAndAdvance(ctx, u.ID, catalog.Sozdly, 2)
		if err != nil || adv != (Advance{StatusBlocked, 1}) {
			t.Fatalf("advance from wrong level = %+v, %v", adv, err)
		}

		for want := 2; want <= 3; want++ {
			adv, err = st.CompareAndAdvance(ctx, u.ID, catalog.Sozdly, want-1)
			if err != nil || adv != (Advance{StatusAdvanced, want}) {
				t.Fatalf("advance to %d = %+v, %v", want, adv, err)
			}
		}

		for i := 0; i < 2; i++ {
			adv, err = st.CompareAndAdvance(ctx, u.ID, catalog.Sozdly, 3)
			if err != nil || adv != (Advance{StatusExhausted, 3}) {
				t.Fatalf("advance past last level = %+v, %v", adv, err)
			}
		}
		if cur, _ := st.Cursor(ctx, u.ID, catalog.Sozdly); cur != 3 {
			t.Fatalf("cursor = %d, want 3", cur)
		}
		if cur, _ := st.Cursor(ctx, u.ID, catalog.Talda); cur != 1 {
			t.Fatalf("other game cursor = %d, want 1", cur)
		}
		if _, err := st.CompareAndAdvance(ctx, "missing", catalog.Sozdly, 1); !errors.Is(err, ErrNotFound) {
			t.Fatalf("advance missing user err = %v", err)
		}
	})
}

func TestCompareAndAdvanceConcurrent(t *testing.T) {
	eachStore(t, func(t *testing.T, st Store) {
		ctx := context.Background()
		seedWords(t, st, 1, 2, 3)
		u := newUser(t, st, "aigerim")

		const n = 16
		var wg sync.WaitGroup
		results := make(chan Advance, n)
		errs := make(chan error, n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				adv, err := st.CompareAndAdvance(ctx, u.ID, catalog.Sozdly, 1)
				if err != nil {
					errs <- err
					return
				}
				results <- adv
			}()
		}
		wg.Wait()
		close(results)
		close(errs)
		for err := range errs {
			t.Fatalf("concurrent advance: %v", err)
		}

		advanced := 0
		for adv := range results {
			switch adv.Status {
			case StatusAdvanced:
				advanced++
			case StatusBlocked:
				if adv.Level != 2 {
					t.Errorf("blocked with level %d, want 2", adv.Level)
				}
			default:
				t.Errorf("unexpected status %s", adv.Status)
			}
		}
		if advanced != 1 {
			t.Fatalf("advanced %d times, want exactly 1", advanced)
		}
		if cur, _ := st.Cursor(ctx, u.ID, catalog.Sozdly); cur != 2 {
			t.Fatalf("cursor = %d, want 2", cur)
		}
	})
}

func TestLeaderboard(t *testing.T) {
	eachStore(t, func(t *testing.T, st Store) {
		ctx := context.Background()
		seedWords(t, st, 1, 2, 3)
		a := newUser(t, st, "aigerim")
		b := newUser(t, st, "bolat")
		newUser(t, st, "daulet")

		mustAdvance := func(id string, from int) {
			if _, err := st.CompareAndAdvance(ctx, id, catalog.Sozdly, from); err != nil {
				t.Fatal(err)
			}
		}
		mustAdvance(b.ID, 1)
		mustAdvance(b.ID, 2)
		mustAdvance(a.ID, 1)

		rows, err := st.Leaderboard(ctx, catalog.Sozdly, 2)
		if err != nil {
			t.Fatal(err)
		}
		if len(rows) != 2 || rows[0].Username != "bolat" || rows[0].Level != 3 || rows[1].Username != "aigerim" {
			t.Fatalf("Leaderboard = %+v", rows)
		}
	})
}

func TestMemoryRounds(t *testing.T) {
	ctx := context.Background()
	rs := NewMemoryRounds()
	now := time.Now()

	r1 := game.NewRound("r1", "u1", 1, "SHARE", now)
	if err := rs.Save(ctx, r1); err != nil {
		t.Fatal(err)
	}
	got, err := rs.Update(ctx, "r1", func(r *game.Round) error {
		_, err := r.ApplyGuess("CRANE", now)
		return err
	})
	if err != nil || len(got.Guesses) != 1 {
		t.Fatalf("Update = %+v, %v", got, err)
	}

	// a second round for the same user replaces the first
	if err := rs.Save(ctx, game.NewRound("r2", "u1", 2, "CRANE", now)); err != nil {
		t.Fatal(err)
	}
	if _, err := rs.Get(ctx, "r1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("old round err = %v", err)
	}

	stale := game.NewRound("r3", "u2", 1, "SHARE", now.Add(-time.Hour))
	done := game.NewRound("r4", "u3", 1, "SHARE", now)
	_, _ = done.ApplyGuess("SHARE", now)
	_ = rs.Save(ctx, stale)
	_ = rs.Save(ctx, done)

	if n := rs.Sweep(ctx, now.Add(-30*time.Minute)); n != 2 {
		t.Fatalf("Sweep dropped %d, want 2", n)
	}
	if rs.Len() != 1 {
		t.Fatalf("Len = %d, want 1", rs.Len())
	}
	if _, err := rs.Get(ctx, "r2"); err != nil {
		t.Fatalf("active round swept: %v", err)
	}
}

func TestSQLiteDSN(t *testing.T) {
	tests := []struct {
		in, file, full string
	}{
		{"./data/app.db", "./data/app.db", "./data/app.db?" + sqliteOptions},
		{"app.db?cache=shared", "app.db", "app.db?cache=shared&" + sqliteOptions},
		{":memory:", ":memory:", ":memory:?" + sqliteOptions},
	}
	for _, tt := range tests {
		file, full := sqliteDSN(tt.in)
		if file != tt.file || full != tt.full {
			t.Fatalf("sqliteDSN(%q) = %q, %q", tt.in, file, full)
		}
	}

	ctx := context.Background()
	st, err := Open(ctx, "sqlite://"+filepath.Join(t.TempDir(), "nested", "q.db")+"?cache=shared")
	if err != nil {
		t.Fatalf("Open with query: %v", err)
	}
	defer st.Close()
	if err := st.Migrate(ctx); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
}

func TestUpsertPuzzleConcurrent(t *testing.T) {
	eachStore(t, func(t *testing.T, st Store) {
		ctx := context.Background()
		var wg sync.WaitGroup
		errs := make(chan error, 8)
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs <- st.UpsertPuzzle(ctx, &catalog.Puzzle{Game: catalog.Sozdly, Level: 1, Answer: "SHARE"})
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			if err != nil {
				t.Fatalf("UpsertPuzzle: %v", err)
			}
		}
		if max, _ := st.MaxLevel(ctx, catalog.Sozdly); max != 1 {
			t.Fatalf("MaxLevel = %d", max)
		}
	})
}
