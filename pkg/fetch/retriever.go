package fetch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/anidataset/anidataset/pkg/anilist"
	"github.com/anidataset/anidataset/pkg/retry"
	"github.com/anidataset/anidataset/pkg/windows"
)

const (
	DefaultPerPage  = anilist.MaxPerPage
	DefaultMaxPages = 100
)

// Logger abstracts logging so callers can use logrus, stdlib log, or any
// other logger that satisfies this interface.
type Logger interface {
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Debugf(format string, args ...interface{})
}

// nopLogger silently discards all messages.
type nopLogger struct{}

func (nopLogger) Infof(string, ...interface{})  {}
func (nopLogger) Warnf(string, ...interface{})  {}
func (nopLogger) Errorf(string, ...interface{}) {}
func (nopLogger) Debugf(string, ...interface{}) {}

// PageSource returns one page of a window. *anilist.Client implements it.
type PageSource interface {
	FetchPage(ctx context.Context, w windows.Window, page, perPage int) (*anilist.Page, error)
}

// PageCursor tracks pagination inside one window. LastPage is 0 until the
// first response arrives. Page never exceeds MaxPages.
type PageCursor struct {
	Page     int
	LastPage int
	MaxPages int
}

// Next advances to the following page, or reports false at the cap.
func (c *PageCursor) Next() bool {
	if c.Page >= c.MaxPages {
		return false
	}
	c.Page++
	return true
}

// Progress is reported after every page.
type Progress struct {
	Window   windows.Window
	Page     int
	LastPage int
	Records  int
}

// WindowExhaustionError means the window holds more records than pagination
// can reach. The records fetched before the cap are kept in the result.
type WindowExhaustionError struct {
	Window  windows.Window
	Pages   int
	Fetched int
	Total   int
}

func (e *WindowExhaustionError) Error() string {
	return fmt.Sprintf("window %s still has more pages after %d (%d of %d records fetched); narrow the window", e.Window, e.Pages, e.Fetched, e.Total)
}

// TransientFetchError means a page could not be fetched within the retry budget.
type TransientFetchError struct {
	Window   windows.Window
	Page     int
	Attempts int
	Err      error
}

func (e *TransientFetchError) Error() string {
	return fmt.Sprintf("window %s page %d failed after %d attempts: %v", e.Window, e.Page, e.Attempts, e.Err)
}

func (e *TransientFetchError) Unwrap() error { return e.Err }

// WindowResult is what one window produced, complete or not.
type WindowResult struct {
	Window  windows.Window
	Media   []anilist.Media
	Invalid []anilist.InvalidRecord
	Pages   int
	// Total is the record count AniList reported for the window.
	Total   int
	Retries int
	// Sampled is set when SamplePages stopped the window early.
	Sampled bool
}

// Retriever pages through a single window.
type Retriever struct {
	Source PageSource
	Policy retry.Policy
	Sleep  retry.SleepFunc // defaults to retry.Sleep

	PerPage  int // defaults to 50
	MaxPages int // defaults to 100
	// SamplePages stops every window after this many pages without error.
	// Zero fetches everything.
	SamplePages int

	Log    Logger
	OnPage func(Progress)
}

func (r *Retriever) withDefaults() Retriever {
	out := *r
	if out.PerPage <= 0 {
		out.PerPage = DefaultPerPage
	}
	if out.MaxPages <= 0 {
		out.MaxPages = DefaultMaxPages
	}
	if out.Sleep == nil {
		out.Sleep = retry.Sleep
	}
	if out.Log == nil {
		out.Log = nopLogger{}
	}
	return out
}

// FetchWindow requests pages of w in order until the window is done. The
// returned result is never nil and holds every record fetched, including
// when the error is a *WindowExhaustionError or *TransientFetchError.
func (r *Retriever) FetchWindow(ctx context.Context, w windows.Window) (*WindowResult, error) {
	rr := r.withDefaults()
	res := &WindowResult{Window: w}
	cur := PageCursor{MaxPages: rr.MaxPages}

	for cur.Next() {
		page, retries, err := rr.fetchPage(ctx, w, cur.Page)
		res.Retries += retries
		if err != nil {
			return res, err
		}

		res.Pages = cur.Page
		res.Media = append(res.Media, page.Media...)
		res.Invalid = append(res.Invalid, page.Invalid...)
		if page.Info.LastPage != nil {
			cur.LastPage = *page.Info.LastPage
		}
		if page.Info.Total != nil {
			res.Total = *page.Info.Total
		}
		rr.Log.Debugf("Window %s: page %d/%d, %d records so far", w, cur.Page, cur.LastPage, len(res.Media))
		if rr.OnPage != nil {
			rr.OnPage(Progress{Window: w, Page: cur.Page, LastPage: cur.LastPage, Records: len(res.Media)})
		}

		if !page.Info.HasNextPage {
			return res, nil
		}
		if rr.SamplePages > 0 && cur.Page >= rr.SamplePages {
			res.Sampled = true
			return res, nil
		}
	}

	return res, &WindowExhaustionError{
		Window:  w,
		Pages:   res.Pages,
		Fetched: len(res.Media),
		Total:   res.Total,
	}
}

// fetchPage fetches one page under the retry policy. Rate limits, network
// failures and bad responses all draw from the same attempt budget.
func (r Retriever) fetchPage(ctx context.Context, w windows.Window, page int) (*anilist.Page, int, error) {
	var (
		p       *anilist.Page
		retries int
	)
	err := retry.Do(ctx, r.Policy, r.Sleep, func(int) error {
		var err error
		p, err = r.Source.FetchPage(ctx, w, page, r.PerPage)
		return err
	}, func(attempt int, delay time.Duration, err error) {
		retries++
		if errors.Is(err, anilist.ErrRateLimited) {
			r.Log.Warnf("Rate limited on window %s page %d, waiting %s (attempt %d/%d)", w, page, delay, attempt, r.Policy.Attempts())
		} else {
			r.Log.Warnf("Window %s page %d failed: %v. Retrying in %s (attempt %d/%d)", w, page, err, delay, attempt, r.Policy.Attempts())
		}
	})
	if err != nil {
		attempts := retries + 1
		var ex *retry.ExhaustedError
		if errors.As(err, &ex) {
			attempts, err = ex.Attempts, ex.Last
		}
		return nil, retries, &TransientFetchError{Window: w, Page: page, Attempts: attempts, Err: err}
	}
	return p, retries, nil
}
