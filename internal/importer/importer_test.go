package importer

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/tilqural/levels/internal/catalog"
	"github.com/tilqural/levels/internal/store"
)

func TestImportCSV(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	src := strings.NewReader(`level,prompt,answer,options,hint
1,,кітап,,book
2,,abc,,too short
x,,ҚАЛАМ,,
,,,,
3,,аспан,,
`)
	cfg := DefaultConfig(catalog.Sozdly)
	cfg.Format = FormatCSV
	res, err := Import(ctx, mem, src, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if res.Processed != 4 || res.Imported != 2 || res.Skipped != 2 || len(res.Errors) != 2 {
		t.Fatalf("result = %+v", res)
	}
	if !strings.HasPrefix(res.Errors[0], "row 3:") || !strings.HasPrefix(res.Errors[1], "row 4:") {
		t.Fatalf("errors = %v", res.Errors)
	}
	p, err := mem.GetPuzzle(ctx, catalog.Sozdly, 1)
	if err != nil || p.Answer != "КІТАП" || p.Hint != "book" {
		t.Fatalf("level 1 = %+v, %v", p, err)
	}
}

func TestImportXLSX(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()

	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	rows := [][]interface{}{
		{"level", "prompt", "answer", "options", "hint"},
		{1, "2+2?", "4", "3|4|5", ""},
		{2, "Capital?", "Astana", "Astana|Almaty", "north"},
		{3, "No options", "yes", "", ""},
		{4, "Answer missing from options", "c", "a|b", ""},
	}
	for i, r := range rows {
		cellName, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(sheet, cellName, &r); err != nil {
			t.Fatal(err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatal(err)
	}

	cfg := DefaultConfig(catalog.SuraqJauap)
	cfg.Format = FormatXLSX
	res, err := Import(ctx, mem, bytes.NewReader(buf.Bytes()), cfg)
	if err != nil {
		t.Fatal(err)
	}
	if res.Imported != 3 || res.Skipped != 1 {
		t.Fatalf("result = %+v", res)
	}
	p, _ := mem.GetPuzzle(ctx, catalog.SuraqJauap, 2)
	if p == nil || len(p.Options) != 2 || p.Hint != "north" {
		t.Fatalf("level 2 = %+v", p)
	}

	// re-import overwrites in place
	res, err = Import(ctx, mem, bytes.NewReader(buf.Bytes()), cfg)
	if err != nil || res.Imported != 3 {
		t.Fatalf("re-import = %+v, %v", res, err)
	}
	if max, _ := mem.MaxLevel(ctx, catalog.SuraqJauap); max != 3 {
		t.Fatalf("MaxLevel = %d", max)
	}
}

func TestImportFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "talda.csv")
	data := "level,prompt,answer,options,hint\n1,\"Отан - ___ да ыстық\",оттан,оттан|судан,\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	mem := store.NewMemory()
	res, err := ImportFile(context.Background(), mem, path, DefaultConfig(catalog.Talda))
	if err != nil || res.Imported != 1 {
		t.Fatalf("ImportFile = %+v, %v", res, err)
	}

	if _, err := ImportFile(context.Background(), mem, filepath.Join(dir, "x.txt"), DefaultConfig(catalog.Talda)); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("txt err = %v", err)
	}
}

func TestImportUnknownGame(t *testing.T) {
	cfg := DefaultConfig("maqal")
	cfg.Format = FormatCSV
	if _, err := Import(context.Background(), store.NewMemory(), strings.NewReader(""), cfg); !errors.Is(err, catalog.ErrUnknownGame) {
		t.Fatalf("err = %v", err)
	}
}

func TestSeedDefaults(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	custom := &catalog.Puzzle{Game: catalog.Talda, Level: 1, Prompt: "custom ___", Answer: "x"}
	if err := mem.CreatePuzzle(ctx, custom); err != nil {
		t.Fatal(err)
	}

	if err := SeedDefaults(ctx, mem); err != nil {
		t.Fatal(err)
	}
	if max, _ := mem.MaxLevel(ctx, catalog.Sozdly); max != 5 {
		t.Fatalf("sozdly max = %d, want 5", max)
	}
	if max, _ := mem.MaxLevel(ctx, catalog.SuraqJauap); max != 3 {
		t.Fatalf("sj max = %d, want 3", max)
	}
	p, _ := mem.GetPuzzle(ctx, catalog.Talda, 1)
	if p == nil || p.Prompt != "custom ___" {
		t.Fatalf("existing game reseeded: %+v", p)
	}
	if max, _ := mem.MaxLevel(ctx, catalog.Talda); max != 1 {
		t.Fatalf("talda max = %d, want 1", max)
	}
}
