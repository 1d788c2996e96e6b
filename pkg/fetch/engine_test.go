package fetch

import (
	"context"
	"errors"
	"testing"

	"github.com/anidataset/anidataset/pkg/anilist"
	"github.com/anidataset/anidataset/pkg/dataset"
	"github.com/anidataset/anidataset/pkg/windows"
)

func titled(id int, title string) anilist.Media {
	return anilist.Media{ID: intp(id), Title: &anilist.MediaTitle{Romaji: &title}}
}

func TestRunKeepsEarlierWindowOnDuplicate(t *testing.T) {
	src := pageFunc(func(w windows.Window, page int) (*anilist.Page, error) {
		switch w.Label() {
		case "2021":
			return newPage([]anilist.Media{titled(42, "seen in 2021"), titled(1, "a")}, 1, 1, 2, false), nil
		case "2020":
			return newPage([]anilist.Media{titled(42, "seen in 2020"), titled(2, "b")}, 1, 1, 2, false), nil
		}
		return newPage(nil, 1, 1, 0, false), nil
	})

	var reports []WindowReport
	ds, sum, err := Run(context.Background(), Config{
		Source:  src,
		Windows: []windows.Window{windows.Bounded(2021, 2021), windows.Bounded(2020, 2020)},
		OnWindowDone: func(r WindowReport, rows []dataset.Row) {
			if len(rows) != r.Added {
				t.Errorf("window %s: %d rows passed, %d added", r.Window, len(rows), r.Added)
			}
			reports = append(reports, r)
		},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	row, ok := ds.Get(42)
	if !ok || *row.TitleRomaji != "seen in 2021" {
		t.Fatalf("expected id 42 from the 2021 window, got %+v", row)
	}
	if ds.Len() != 3 || sum.Unique != 3 || sum.Duplicates != 1 {
		t.Fatalf("len=%d unique=%d duplicates=%d", ds.Len(), sum.Unique, sum.Duplicates)
	}
	if len(reports) != 2 || reports[1].Duplicates != 1 || reports[1].Added != 1 {
		t.Fatalf("reports = %+v", reports)
	}
}

func TestRunContinuesAfterWindowFailures(t *testing.T) {
	src := pageFunc(func(w windows.Window, page int) (*anilist.Page, error) {
		switch w.Label() {
		case "2021":
			return newPage(mediaRange(page*1000, 50), page, 200, 10000, true), nil
		case "2020":
			return &anilist.Page{
				Info:    anilist.PageInfo{HasNextPage: false},
				Media:   []anilist.Media{{ID: intp(7)}, {Title: &anilist.MediaTitle{}}},
				Invalid: []anilist.InvalidRecord{{ID: 9, Err: errors.New("bad episodes")}},
			}, nil
		}
		return newPage(nil, 1, 1, 0, false), nil
	})

	ds, sum, err := Run(context.Background(), Config{
		Source:   src,
		Windows:  []windows.Window{windows.Bounded(2021, 2021), windows.Bounded(2020, 2020)},
		MaxPages: 3,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Processed != 2 || sum.Failed != 1 || len(sum.Errors) != 1 {
		t.Fatalf("processed=%d failed=%d errors=%d", sum.Processed, sum.Failed, len(sum.Errors))
	}
	if sum.Windows[0].Status != WindowExhausted {
		t.Fatalf("status = %s", sum.Windows[0].Status)
	}
	if sum.Skipped != 2 {
		t.Fatalf("skipped = %d, want 2", sum.Skipped)
	}
	if ds.Len() != 151 {
		t.Fatalf("dataset has %d rows, want 151", ds.Len())
	}
}

func TestRunStopsBeforeNextWindow(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var fetched []string
	src := pageFunc(func(w windows.Window, page int) (*anilist.Page, error) {
		fetched = append(fetched, w.Label())
		return newPage([]anilist.Media{{ID: intp(len(fetched))}}, 1, 1, 1, false), nil
	})

	ds, sum, err := Run(ctx, Config{
		Source:  src,
		Windows: []windows.Window{windows.Bounded(2022, 2022), windows.Bounded(2021, 2021), windows.Bounded(2020, 2020)},
		OnWindowDone: func(WindowReport, []dataset.Row) {
			cancel()
		},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !sum.Stopped || sum.Processed != 1 || len(fetched) != 1 {
		t.Fatalf("stopped=%v processed=%d fetched=%v", sum.Stopped, sum.Processed, fetched)
	}
	if ds.Len() != 1 {
		t.Fatalf("partial dataset should hold 1 row, got %d", ds.Len())
	}
}

func TestRunPlanningError(t *testing.T) {
	called := false
	src := pageFunc(func(windows.Window, int) (*anilist.Page, error) {
		called = true
		return nil, nil
	})
	_, _, err := Run(context.Background(), Config{Source: src, ReferenceYear: 0})
	if !errors.Is(err, windows.ErrInvalidReferenceYear) {
		t.Fatalf("expected planning error, got %v", err)
	}
	if called {
		t.Fatal("source must not be called when planning fails")
	}
}

func TestPlanWindowsLimit(t *testing.T) {
	ws, err := Config{ReferenceYear: 2025, WindowLimit: 3}.PlanWindows()
	if err != nil {
		t.Fatal(err)
	}
	if len(ws) != 3 || ws[0].Label() != "2025" || ws[2].Label() != "2023" {
		t.Fatalf("windows = %v", ws)
	}
}
