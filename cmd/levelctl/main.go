// Command levelctl administers the levels database.
//
//	levelctl migrate
//	levelctl seed
//	levelctl import -game sozdly -file words.xlsx [-sheet Sheet1] [-start 2]
//	levelctl create-admin -username admin [-email admin@example.com]
//
// DATABASE_URL selects the database, as for the server.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"

	"github.com/tilqural/levels/internal/auth"
	"github.com/tilqural/levels/internal/catalog"
	"github.com/tilqural/levels/internal/config"
	"github.com/tilqural/levels/internal/importer"
	"github.com/tilqural/levels/internal/store"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	cfg := config.Load()
	ctx := context.Background()

	var err error
	switch os.Args[1] {
	case "migrate":
		err = withStore(ctx, cfg, func(*store.SQL) error { return nil })
	case "seed":
		err = withStore(ctx, cfg, func(st *store.SQL) error { return importer.SeedDefaults(ctx, st) })
	case "import":
		err = runImport(ctx, cfg, os.Args[2:])
	case "create-admin":
		err = runCreateAdmin(ctx, cfg, os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatal().Err(err).Str("command", os.Args[1]).Msg("failed")
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: levelctl <migrate|seed|import|create-admin> [flags]")
}

// withStore opens and migrates the configured database, then runs fn.
func withStore(ctx context.Context, cfg *config.Config, fn func(*store.SQL) error) error {
	if strings.HasPrefix(cfg.DatabaseURL, "memory://") {
		return errors.New("levelctl needs a persistent DATABASE_URL")
	}
	st, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer st.Close()
	if err := st.Migrate(ctx); err != nil {
		return err
	}
	return fn(st)
}

func runImport(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	game := fs.String("game", "", "game id: "+gameIDs())
	file := fs.String("file", "", "path to a .xlsx or .csv file")
	sheet := fs.String("sheet", "", "sheet name (xlsx; default first sheet)")
	start := fs.Int("start", 2, "first data row (1-based)")
	_ = fs.Parse(args)
	if *game == "" || *file == "" {
		fs.Usage()
		return errors.New("-game and -file are required")
	}

	icfg := importer.DefaultConfig(catalog.GameID(*game))
	icfg.SheetName = *sheet
	icfg.StartRow = *start
	return withStore(ctx, cfg, func(st *store.SQL) error {
		res, err := importer.ImportFile(ctx, st, *file, icfg)
		if err != nil {
			return err
		}
		fmt.Printf("processed %d, imported %d, skipped %d\n", res.Processed, res.Imported, res.Skipped)
		for _, e := range res.Errors {
			fmt.Println("  " + e)
		}
		return nil
	})
}

func runCreateAdmin(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("create-admin", flag.ExitOnError)
	username := fs.String("username", "", "admin username")
	email := fs.String("email", "", "admin email")
	_ = fs.Parse(args)

	name := auth.NormalizeUsername(*username)
	pw, err := readPassword("Password: ")
	if err != nil {
		return err
	}
	if err := auth.ValidateSignup(name, pw); err != nil {
		return err
	}
	hash, err := auth.HashPassword(pw)
	if err != nil {
		return err
	}

	return withStore(ctx, cfg, func(st *store.SQL) error {
		u := &store.User{ID: uuid.NewString(), Username: name, Email: *email, PasswordHash: hash, IsAdmin: true}
		if err := st.CreateUser(ctx, u); err != nil {
			if errors.Is(err, store.ErrConflict) {
				return auth.ErrUsernameTaken
			}
			return err
		}
		fmt.Printf("created admin %s (%s)\n", u.Username, u.ID)
		return nil
	})
}

// readPassword prompts without echo on a terminal and reads a line
// from piped stdin otherwise.
func readPassword(prompt string) (string, error) {
	fd := int(syscall.Stdin)
	if !term.IsTerminal(fd) {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return "", err
		}
		return strings.TrimRight(line, "\r\n"), nil
	}
	fmt.Print(prompt)
	b, err := term.ReadPassword(fd)
	fmt.Println()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func gameIDs() string {
	var ids []string
	for _, g := range catalog.All() {
		ids = append(ids, string(g.ID))
	}
	return strings.Join(ids, ", ")
}
