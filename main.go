package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tilqural/levels/internal/auth"
	"github.com/tilqural/levels/internal/config"
	"github.com/tilqural/levels/internal/httpserver"
	"github.com/tilqural/levels/internal/importer"
	"github.com/tilqural/levels/internal/play"
	"github.com/tilqural/levels/internal/progress"
	"github.com/tilqural/levels/internal/scheduler"
	"github.com/tilqural/levels/internal/store"
)

func main() {
	cfg := config.Load()
	setupLogging(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open store")
	}
	defer st.Close()

	if cfg.SeedPuzzles {
		if err := importer.SeedDefaults(ctx, st); err != nil {
			log.Fatal().Err(err).Msg("failed to seed puzzles")
		}
	}

	rounds := store.NewMemoryRounds()
	sweeper := scheduler.New(rounds, cfg.RoundTTL, cfg.SweepEvery)
	if err := sweeper.Start(); err != nil {
		log.Fatal().Err(err).Msg("failed to start scheduler")
	}
	defer sweeper.Stop()

	prog := progress.NewService(st, st)
	srv := httpserver.New(httpserver.Deps{
		Store:    st,
		Progress: prog,
		Play:     play.NewService(rounds, prog),
		Auth: auth.NewManager(auth.Config{
			Secret:     cfg.JWTSecret,
			TTL:        cfg.JWTTTL,
			CookieName: cfg.CookieName,
			Secure:     cfg.Production,
		}),
		UploadDir:    cfg.UploadDir,
		ClientOrigin: cfg.ClientOrigin,
	})

	hs := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := hs.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutdown")
		}
	}()

	log.Info().Str("port", cfg.Port).Msg("starting levels server")
	if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("server exited")
	}
	log.Info().Msg("server stopped")
}

func setupLogging(cfg *config.Config) {
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}

// openStore returns the in-memory store for memory:// and a migrated SQL
// store otherwise.
func openStore(ctx context.Context, url string) (store.Store, error) {
	if strings.HasPrefix(url, "memory://") {
		log.Warn().Msg("using in-memory store; data is lost on restart")
		return store.NewMemory(), nil
	}
	db, err := store.Open(ctx, url)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	log.Info().Str("dialect", db.Dialect()).Msg("database ready")
	return db, nil
}
