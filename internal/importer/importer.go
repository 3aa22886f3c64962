// internal/importer/importer.go
//
// Bulk puzzle import from .xlsx or .csv.
//
// Expected layout (default columns, header in row 1):
//
//	A level | B prompt | C answer | D options ("a|b|c") | E hint
//
// Every row is validated against its game's rules and upserted by
// (game, level); bad rows are reported and skipped, the rest still import.

package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"

	"github.com/tilqural/levels/internal/catalog"
)

type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

var ErrUnsupportedFormat = errors.New("unsupported file format (want .xlsx or .csv)")

// Upserter is the part of the level store an import writes to.
type Upserter interface {
	UpsertPuzzle(ctx context.Context, p *catalog.Puzzle) error
}

// Config defines which game, sheet and columns to read.
type Config struct {
	Game          catalog.GameID
	Format        Format
	SheetName     string // xlsx only; first sheet when empty
	StartRow      int    // 1-based; rows before it are headers
	LevelColumn   string
	PromptColumn  string
	AnswerColumn  string
	OptionsColumn string
	HintColumn    string
}

// DefaultConfig returns the default layout for game.
func DefaultConfig(game catalog.GameID) Config {
	return Config{
		Game:          game,
		StartRow:      2,
		LevelColumn:   "A",
		PromptColumn:  "B",
		AnswerColumn:  "C",
		OptionsColumn: "D",
		HintColumn:    "E",
	}
}

// Result holds the outcome of an import.
type Result struct {
	Processed int      `json:"processed"`
	Imported  int      `json:"imported"`
	Skipped   int      `json:"skipped"`
	Errors    []string `json:"errors"`
}

// FormatFromName picks the format from a file name's extension.
func FormatFromName(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	case ".csv":
		return FormatCSV, nil
	}
	return "", ErrUnsupportedFormat
}

// ImportFile imports the file at path; the format follows its extension
// unless cfg.Format is set.
func ImportFile(ctx context.Context, dst Upserter, path string, cfg Config) (*Result, error) {
	if cfg.Format == "" {
		f, err := FormatFromName(path)
		if err != nil {
			return nil, err
		}
		cfg.Format = f
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()
	return Import(ctx, dst, file, cfg)
}

// Import reads rows from src in cfg.Format and upserts them into dst.
func Import(ctx context.Context, dst Upserter, src io.Reader, cfg Config) (*Result, error) {
	if _, err := catalog.Lookup(string(cfg.Game)); err != nil {
		return nil, err
	}
	cols, err := cfg.columns()
	if err != nil {
		return nil, err
	}

	var rows [][]string
	switch cfg.Format {
	case FormatXLSX:
		rows, err = readXLSX(src, cfg.SheetName)
	case FormatCSV:
		rows, err = readCSV(src)
	default:
		return nil, ErrUnsupportedFormat
	}
	if err != nil {
		return nil, err
	}

	start := cfg.StartRow
	if start < 1 {
		start = 1
	}
	res := &Result{Errors: []string{}}
	for i, row := range rows {
		rowNum := i + 1
		if rowNum < start {
			continue
		}
		if blank(row) {
			continue
		}
		res.Processed++
		if err := importRow(ctx, dst, cfg.Game, row, cols); err != nil {
			res.Skipped++
			res.Errors = append(res.Errors, fmt.Sprintf("row %d: %v", rowNum, err))
			continue
		}
		res.Imported++
	}
	log.Info().
		Str("game", string(cfg.Game)).
		Int("processed", res.Processed).
		Int("imported", res.Imported).
		Int("skipped", res.Skipped).
		Msg("puzzle import finished")
	return res, nil
}

type columns struct{ level, prompt, answer, options, hint int }

// columns resolves column letters to 0-based indexes; -1 means unused.
func (c Config) columns() (columns, error) {
	idx := func(name string) (int, error) {
		if name == "" {
			return -1, nil
		}
		n, err := excelize.ColumnNameToNumber(name)
		if err != nil {
			return 0, fmt.Errorf("column %q: %w", name, err)
		}
		return n - 1, nil
	}
	var out columns
	var err error
	for _, f := range []struct {
		dst  *int
		name string
	}{
		{&out.level, c.LevelColumn},
		{&out.prompt, c.PromptColumn},
		{&out.answer, c.AnswerColumn},
		{&out.options, c.OptionsColumn},
		{&out.hint, c.HintColumn},
	} {
		if *f.dst, err = idx(f.name); err != nil {
			return columns{}, err
		}
	}
	if out.level < 0 || out.answer < 0 {
		return columns{}, errors.New("level and answer columns are required")
	}
	return out, nil
}

func importRow(ctx context.Context, dst Upserter, game catalog.GameID, row []string, cols columns) error {
	level, err := strconv.Atoi(cell(row, cols.level))
	if err != nil {
		return fmt.Errorf("invalid level %q", cell(row, cols.level))
	}
	p := &catalog.Puzzle{
		Game:    game,
		Level:   level,
		Prompt:  cell(row, cols.prompt),
		Answer:  cell(row, cols.answer),
		Options: catalog.ParseOptions(cell(row, cols.options)),
		Hint:    cell(row, cols.hint),
	}
	if err := p.Validate(); err != nil {
		return err
	}
	return dst.UpsertPuzzle(ctx, p)
}

func readXLSX(src io.Reader, sheet string) ([][]string, error) {
	f, err := excelize.OpenReader(src)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, errors.New("workbook has no sheets")
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %w", err)
	}
	return rows, nil
}

func readCSV(src io.Reader) ([][]string, error) {
	reader := csv.NewReader(src)
	reader.FieldsPerRecord = -1 // allow ragged rows
	reader.LazyQuotes = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("error reading CSV: %w", err)
	}
	return rows, nil
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
