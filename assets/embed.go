// Package assets embeds SQL migrations and the starter puzzle set.
package assets

import (
	"embed"
	"io/fs"
	"path"
)

//go:embed migrations seed
var FS embed.FS

// Migrations returns the migration directory for a dialect ("sqlite" or "postgres").
func Migrations(dialect string) (fs.FS, error) {
	return fs.Sub(FS, path.Join("migrations", dialect))
}

// Seed returns the starter puzzles of a game as CSV
// (level,prompt,answer,options,hint with a header row).
func Seed(game string) ([]byte, error) {
	return FS.ReadFile(path.Join("seed", game+".csv"))
}
