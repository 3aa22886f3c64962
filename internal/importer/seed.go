package importer

import (
	"bytes"
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/tilqural/levels/assets"
	"github.com/tilqural/levels/internal/catalog"
)

// SeedTarget is a level store that can report whether a game is empty.
type SeedTarget interface {
	Upserter
	MaxLevel(ctx context.Context, game catalog.GameID) (int, error)
}

// SeedDefaults loads the embedded starter puzzles into every game that
// has no levels yet. Games with content are left alone.
func SeedDefaults(ctx context.Context, dst SeedTarget) error {
	for _, g := range catalog.All() {
		max, err := dst.MaxLevel(ctx, g.ID)
		if err != nil {
			return err
		}
		if max > 0 {
			continue
		}
		data, err := assets.Seed(string(g.ID))
		if err != nil {
			return fmt.Errorf("seed %s: %w", g.ID, err)
		}
		cfg := DefaultConfig(g.ID)
		cfg.Format = FormatCSV
		res, err := Import(ctx, dst, bytes.NewReader(data), cfg)
		if err != nil {
			return fmt.Errorf("seed %s: %w", g.ID, err)
		}
		if len(res.Errors) > 0 {
			log.Warn().Str("game", string(g.ID)).Strs("errors", res.Errors).Msg("seed rows skipped")
		}
	}
	return nil
}
