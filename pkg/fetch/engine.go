package fetch

import (
	"context"
	"errors"
	"time"

	"github.com/anidataset/anidataset/pkg/dataset"
	"github.com/anidataset/anidataset/pkg/retry"
	"github.com/anidataset/anidataset/pkg/windows"
)

type WindowStatus string

const (
	WindowOK        WindowStatus = "ok"
	WindowSampled   WindowStatus = "sampled"
	WindowExhausted WindowStatus = "exhausted"
	WindowFailed    WindowStatus = "failed"
)

// WindowReport summarizes one processed window.
type WindowReport struct {
	Window     windows.Window
	Status     WindowStatus
	Pages      int
	Fetched    int // records returned by the API
	Added      int // records that were new to the dataset
	Duplicates int
	Skipped    int // undecodable or unnormalizable records
	Retries    int
	Duration   time.Duration
	Err        error
}

// Config holds everything Run needs.
type Config struct {
	Source PageSource

	// ReferenceYear and Plan drive the window planner. Windows, when set,
	// replaces the planned list.
	ReferenceYear int
	Plan          windows.Options
	Windows       []windows.Window
	// WindowLimit keeps only the first N windows. Zero keeps all.
	WindowLimit int

	Policy      retry.Policy
	Sleep       retry.SleepFunc
	PerPage     int
	MaxPages    int
	SamplePages int

	Log        Logger         // optional; nil = no logging
	OnProgress func(Progress) // optional, called after every page

	// OnWindowDone is called after each window with the rows it added.
	OnWindowDone func(report WindowReport, rows []dataset.Row)
}

// Summary is the outcome of a whole run.
type Summary struct {
	Windows    []WindowReport
	Planned    int
	Processed  int
	Failed     int
	Unique     int
	Duplicates int
	Skipped    int
	// Stopped is set when the context ended the run before every planned
	// window was processed.
	Stopped bool
	Errors  []error // non-fatal errors
}

// PlanWindows returns the windows a run with cfg would process.
func (cfg Config) PlanWindows() ([]windows.Window, error) {
	ws := cfg.Windows
	if ws == nil {
		var err error
		ws, err = windows.Plan(cfg.ReferenceYear, cfg.Plan)
		if err != nil {
			return nil, err
		}
	}
	if cfg.WindowLimit > 0 && cfg.WindowLimit < len(ws) {
		ws = ws[:cfg.WindowLimit]
	}
	return ws, nil
}

// Run plans the windows, fetches them one after the other, normalizes every
// record and merges the rows into one Dataset. Only a planning failure is
// returned as an error; window failures are collected in the summary and the
// dataset built so far is always returned.
//
// ctx is checked before each window. A window that already started runs to
// completion so the dataset is never left half merged.
func Run(ctx context.Context, cfg Config) (*dataset.Dataset, *Summary, error) {
	log := cfg.Log
	if log == nil {
		log = nopLogger{}
	}

	ws, err := cfg.PlanWindows()
	if err != nil {
		return nil, nil, err
	}

	retriever := &Retriever{
		Source:      cfg.Source,
		Policy:      cfg.Policy,
		Sleep:       cfg.Sleep,
		PerPage:     cfg.PerPage,
		MaxPages:    cfg.MaxPages,
		SamplePages: cfg.SamplePages,
		Log:         log,
		OnPage:      cfg.OnProgress,
	}

	ds := dataset.New()
	summary := &Summary{Planned: len(ws)}

	for i, w := range ws {
		if ctx.Err() != nil {
			log.Warnf("Stop requested, skipping %d remaining window(s)", len(ws)-i)
			summary.Stopped = true
			break
		}

		log.Infof("Processing window %d/%d: %s", i+1, len(ws), w)
		report, rows := processWindow(context.WithoutCancel(ctx), retriever, w, ds, log)

		summary.Windows = append(summary.Windows, report)
		summary.Processed++
		summary.Duplicates += report.Duplicates
		summary.Skipped += report.Skipped
		if report.Err != nil {
			summary.Failed++
			summary.Errors = append(summary.Errors, report.Err)
		}

		if cfg.OnWindowDone != nil {
			cfg.OnWindowDone(report, rows)
		}
	}

	summary.Unique = ds.Len()
	return ds, summary, nil
}

func processWindow(ctx context.Context, r *Retriever, w windows.Window, ds *dataset.Dataset, log Logger) (WindowReport, []dataset.Row) {
	start := time.Now()
	res, err := r.FetchWindow(ctx, w)

	report := WindowReport{
		Window:  w,
		Status:  WindowOK,
		Pages:   res.Pages,
		Fetched: len(res.Media) + len(res.Invalid),
		Retries: res.Retries,
		Err:     err,
	}

	var exhausted *WindowExhaustionError
	switch {
	case errors.As(err, &exhausted):
		report.Status = WindowExhausted
		log.Errorf("%v", err)
	case err != nil:
		report.Status = WindowFailed
		log.Errorf("Window %s failed, keeping %d records fetched before the failure: %v", w, len(res.Media), err)
	case res.Sampled:
		report.Status = WindowSampled
	}

	for _, inv := range res.Invalid {
		report.Skipped++
		if inv.ID != 0 {
			log.Warnf("Skipping record %d in window %s: %v", inv.ID, w, inv.Err)
		} else {
			log.Warnf("Skipping record without id in window %s: %v", w, inv.Err)
		}
	}

	var added []dataset.Row
	for _, m := range res.Media {
		row, err := dataset.Normalize(m)
		if err != nil {
			report.Skipped++
			log.Warnf("Skipping record in window %s: %v", w, err)
			continue
		}
		if ds.Add(row) {
			added = append(added, row)
		} else {
			report.Duplicates++
		}
	}
	report.Added = len(added)
	report.Duration = time.Since(start)

	log.Infof("Window %s: %d fetched, %d new, %d duplicate, %d skipped", w, report.Fetched, report.Added, report.Duplicates, report.Skipped)
	return report, added
}
