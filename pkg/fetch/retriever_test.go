package fetch

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/anidataset/anidataset/pkg/anilist"
	"github.com/anidataset/anidataset/pkg/retry"
	"github.com/anidataset/anidataset/pkg/windows"
)

func intp(v int) *int { return &v }

// pageFunc adapts a function to PageSource.
type pageFunc func(w windows.Window, page int) (*anilist.Page, error)

func (f pageFunc) FetchPage(_ context.Context, w windows.Window, page, _ int) (*anilist.Page, error) {
	return f(w, page)
}

func mediaRange(from, n int) []anilist.Media {
	out := make([]anilist.Media, n)
	for i := range out {
		out[i] = anilist.Media{ID: intp(from + i)}
	}
	return out
}

func newPage(media []anilist.Media, page, lastPage, total int, hasNext bool) *anilist.Page {
	return &anilist.Page{
		Info: anilist.PageInfo{
			Total:       intp(total),
			CurrentPage: intp(page),
			LastPage:    intp(lastPage),
			HasNextPage: hasNext,
		},
		Media: media,
	}
}

type sleepRecorder struct {
	delays []time.Duration
}

func (s *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	return nil
}

func TestFetchWindowExhaustion(t *testing.T) {
	calls := 0
	src := pageFunc(func(_ windows.Window, page int) (*anilist.Page, error) {
		calls++
		return newPage(mediaRange((page-1)*50, 50), page, 130, 6500, true), nil
	})
	r := &Retriever{Source: src}

	res, err := r.FetchWindow(context.Background(), windows.Bounded(2020, 2020))
	var exhausted *WindowExhaustionError
	if !errors.As(err, &exhausted) {
		t.Fatalf("expected WindowExhaustionError, got %v", err)
	}
	if calls != 100 || res.Pages != 100 {
		t.Fatalf("calls=%d pages=%d, want 100", calls, res.Pages)
	}
	if len(res.Media) != 5000 || exhausted.Fetched != 5000 || exhausted.Total != 6500 {
		t.Fatalf("records=%d fetched=%d total=%d", len(res.Media), exhausted.Fetched, exhausted.Total)
	}
}

func TestFetchWindowRecoversFromRateLimits(t *testing.T) {
	var requested []int
	limited := 0
	src := pageFunc(func(_ windows.Window, page int) (*anilist.Page, error) {
		requested = append(requested, page)
		if page == 2 && limited < 3 {
			limited++
			return nil, &anilist.RateLimitError{Wait: 4 * time.Second}
		}
		return newPage(mediaRange((page-1)*50, 50), page, 3, 150, page < 3), nil
	})
	rec := &sleepRecorder{}
	r := &Retriever{Source: src, Sleep: rec.sleep}

	res, err := r.FetchWindow(context.Background(), windows.Bounded(2020, 2020))
	if err != nil {
		t.Fatalf("FetchWindow: %v", err)
	}
	if !reflect.DeepEqual(requested, []int{1, 2, 2, 2, 2, 3}) {
		t.Fatalf("requested pages = %v", requested)
	}
	if !reflect.DeepEqual(rec.delays, []time.Duration{4 * time.Second, 4 * time.Second, 4 * time.Second}) {
		t.Fatalf("delays = %v", rec.delays)
	}
	if res.Retries != 3 {
		t.Fatalf("retries = %d", res.Retries)
	}

	seen := map[int]bool{}
	for _, m := range res.Media {
		if seen[*m.ID] {
			t.Fatalf("record %d fetched twice", *m.ID)
		}
		seen[*m.ID] = true
	}
	if len(seen) != 150 {
		t.Fatalf("got %d records, want 150", len(seen))
	}
}

func TestFetchWindowTransientFailure(t *testing.T) {
	calls := 0
	upstream := &anilist.StatusError{StatusCode: 502}
	src := pageFunc(func(_ windows.Window, page int) (*anilist.Page, error) {
		calls++
		if page == 1 {
			return newPage(mediaRange(0, 50), 1, 2, 100, true), nil
		}
		return nil, upstream
	})
	rec := &sleepRecorder{}
	r := &Retriever{Source: src, Sleep: rec.sleep, Policy: retry.Policy{MaxAttempts: 4, BaseDelay: time.Second, MaxDelay: time.Minute}}

	res, err := r.FetchWindow(context.Background(), windows.Bounded(2019, 2019))
	var tfe *TransientFetchError
	if !errors.As(err, &tfe) {
		t.Fatalf("expected TransientFetchError, got %v", err)
	}
	if tfe.Page != 2 || tfe.Attempts != 4 || !errors.Is(err, upstream) {
		t.Fatalf("unexpected error detail: %+v", tfe)
	}
	if calls != 5 {
		t.Fatalf("calls = %d, want 5", calls)
	}
	if !reflect.DeepEqual(rec.delays, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}) {
		t.Fatalf("delays = %v", rec.delays)
	}
	if len(res.Media) != 50 {
		t.Fatalf("records from page 1 should be kept, got %d", len(res.Media))
	}
}

func TestFetchWindowSampleLimit(t *testing.T) {
	src := pageFunc(func(_ windows.Window, page int) (*anilist.Page, error) {
		return newPage(mediaRange((page-1)*50, 50), page, 40, 2000, true), nil
	})
	var progress []Progress
	r := &Retriever{Source: src, SamplePages: 2, OnPage: func(p Progress) { progress = append(progress, p) }}

	res, err := r.FetchWindow(context.Background(), windows.Bounded(2024, 2024))
	if err != nil {
		t.Fatalf("FetchWindow: %v", err)
	}
	if !res.Sampled || res.Pages != 2 || len(res.Media) != 100 {
		t.Fatalf("sampled=%v pages=%d records=%d", res.Sampled, res.Pages, len(res.Media))
	}
	if len(progress) != 2 || progress[1].Records != 100 || progress[1].LastPage != 40 {
		t.Fatalf("progress = %+v", progress)
	}
}

func TestPageCursorStopsAtCap(t *testing.T) {
	c := PageCursor{MaxPages: 3}
	n := 0
	for c.Next() {
		n++
	}
	if n != 3 || c.Page != 3 {
		t.Fatalf("advanced %d times, page %d", n, c.Page)
	}
}
