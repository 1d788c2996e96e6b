package export

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/anidataset/anidataset/pkg/dataset"
	"github.com/xuri/excelize/v2"
)

func intp(v int) *int       { return &v }
func strp(v string) *string { return &v }
func boolp(v bool) *bool    { return &v }

func sampleRows() []dataset.Row {
	return []dataset.Row{
		{ID: intp(1), TitleRomaji: strp("Cowboy Bebop"), Episodes: intp(26), IsAdult: boolp(false), Genres: strp(`["Action","Sci-Fi"]`)},
		{ID: intp(42), Description: strp("line one\nline \"two\", with comma")},
	}
}

func columnIndex(t *testing.T, name string) int {
	t.Helper()
	for i, c := range dataset.Columns() {
		if c == name {
			return i
		}
	}
	t.Fatalf("no column %s", name)
	return -1
}

func TestExportAllEncodings(t *testing.T) {
	dir := t.TempDir()
	results := Export(sampleRows(), Options{Dir: dir})
	if len(results) != 3 || Succeeded(results) != 3 {
		t.Fatalf("results = %+v", results)
	}

	// CSV
	fh, err := os.Open(filepath.Join(dir, "anilist_anime_data_complete.csv"))
	if err != nil {
		t.Fatal(err)
	}
	defer fh.Close()
	records, err := csv.NewReader(fh).ReadAll()
	if err != nil {
		t.Fatalf("csv: %v", err)
	}
	if len(records) != 3 || !reflect.DeepEqual(records[0], dataset.Columns()) {
		t.Fatalf("unexpected csv header or length: %d", len(records))
	}
	if records[1][columnIndex(t, "title_romaji")] != "Cowboy Bebop" ||
		records[1][columnIndex(t, "isAdult")] != "false" ||
		records[1][columnIndex(t, "idMal")] != "" {
		t.Fatalf("unexpected csv row: %v", records[1])
	}
	if records[2][columnIndex(t, "description")] != "line one\nline \"two\", with comma" {
		t.Fatalf("description not preserved: %q", records[2][columnIndex(t, "description")])
	}

	// XLSX
	f, err := excelize.OpenFile(filepath.Join(dir, "anilist_anime_data_complete.xlsx"))
	if err != nil {
		t.Fatalf("xlsx: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows(SheetName)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 || !reflect.DeepEqual(rows[0], dataset.Columns()) {
		t.Fatalf("unexpected xlsx content: %d rows", len(rows))
	}
	if rows[1][columnIndex(t, "genres")] != `["Action","Sci-Fi"]` {
		t.Fatalf("genres cell = %q", rows[1][columnIndex(t, "genres")])
	}
	if rows[2][0] != "42" {
		t.Fatalf("id cell = %q", rows[2][0])
	}

	// Gob
	g, err := ReadGob(filepath.Join(dir, "anilist_anime_data_complete.gob"))
	if err != nil {
		t.Fatalf("gob: %v", err)
	}
	if !reflect.DeepEqual(g.Columns, dataset.Columns()) || len(g.Rows) != 2 {
		t.Fatalf("unexpected gob content")
	}
	if g.Rows[0][0] != 1 || g.Rows[0][columnIndex(t, "episodes")] != 26 || g.Rows[0][columnIndex(t, "idMal")] != nil {
		t.Fatalf("gob row = %v", g.Rows[0][:3])
	}
}

func TestExportEmptyDataset(t *testing.T) {
	dir := t.TempDir()
	results := Export(nil, Options{Dir: dir})
	if Succeeded(results) != 3 {
		t.Fatalf("results = %+v", results)
	}

	b, err := os.ReadFile(filepath.Join(dir, "anilist_anime_data_complete.csv"))
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.TrimSuffix(string(b), "\n"); got != strings.Join(dataset.Columns(), ",") {
		t.Fatalf("csv should hold only the header, got %q", got)
	}

	f, err := excelize.OpenFile(filepath.Join(dir, "anilist_anime_data_complete.xlsx"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := f.GetRows(SheetName)
	if err != nil || len(rows) != 1 {
		t.Fatalf("xlsx rows=%d err=%v", len(rows), err)
	}

	g, err := ReadGob(filepath.Join(dir, "anilist_anime_data_complete.gob"))
	if err != nil {
		t.Fatal(err)
	}
	if len(g.Columns) != len(dataset.Columns()) || len(g.Rows) != 0 {
		t.Fatalf("gob columns=%d rows=%d", len(g.Columns), len(g.Rows))
	}
}

func TestExportFailureIsPerEncoding(t *testing.T) {
	dir := t.TempDir()
	// A directory where the spreadsheet should go makes only that write fail.
	if err := os.Mkdir(filepath.Join(dir, "anilist_anime_data_complete.xlsx"), 0o755); err != nil {
		t.Fatal(err)
	}

	results := Export(sampleRows(), Options{Dir: dir})
	if Succeeded(results) != 2 {
		t.Fatalf("results = %+v", results)
	}
	for _, r := range results {
		if (r.Encoding == XLSX) != (r.Err != nil) {
			t.Fatalf("unexpected result for %s: %v", r.Encoding, r.Err)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "anilist_anime_data_complete.csv")); err != nil {
		t.Fatalf("csv missing: %v", err)
	}
}

func TestWriteXLSXTruncatesOversizedCells(t *testing.T) {
	dir := t.TempDir()
	long := strings.Repeat("a", excelize.TotalCellChars+10)
	rows := []dataset.Row{{ID: intp(1), Description: strp(long)}}

	results := Export(rows, Options{Dir: dir, Encodings: []Encoding{XLSX, CSV}})
	if Succeeded(results) != 2 {
		t.Fatalf("results = %+v", results)
	}
	if results[0].Truncated != 1 {
		t.Fatalf("truncated = %d", results[0].Truncated)
	}
	b, _ := os.ReadFile(filepath.Join(dir, "anilist_anime_data_complete.csv"))
	if !strings.Contains(string(b), long) {
		t.Fatal("csv must keep the full value")
	}
}

func TestParseEncoding(t *testing.T) {
	if e, err := ParseEncoding("xlsx"); err != nil || e != XLSX {
		t.Fatalf("got %v %v", e, err)
	}
	if _, err := ParseEncoding("pickle"); err == nil {
		t.Fatal("expected error")
	}
}
