package windows

import (
	"errors"
	"fmt"
	"strconv"
)

const (
	// DefaultFloorYear is the oldest year that still gets bounded windows.
	DefaultFloorYear = 1940

	singleYearSpan = 10
	twoYearSpan    = 10
	fiveYearWidth  = 5
)

var (
	ErrInvalidReferenceYear = errors.New("reference year must be positive")
	ErrInvalidFloor         = errors.New("floor year must be positive and older than the last two decades")
)

// Window is a release-year filter. A nil bound is unbounded in that direction.
type Window struct {
	Start *int
	End   *int
}

// Options tunes the planner.
type Options struct {
	Floor int
	// Overlap moves the start of every bounded window this many years earlier.
	// Core ranges stay disjoint; the Dataset drops the resulting duplicates.
	Overlap int
}

// Bounded builds a window covering [start, end].
func Bounded(start, end int) Window {
	return Window{Start: &start, End: &end}
}

// Before builds the unbounded window covering every year up to and including end.
func Before(end int) Window {
	return Window{End: &end}
}

// Label is a short human readable name, also used as a checkpoint key.
func (w Window) Label() string {
	switch {
	case w.Start == nil && w.End == nil:
		return "all"
	case w.Start == nil:
		return "..-" + strconv.Itoa(*w.End)
	case w.End == nil:
		return strconv.Itoa(*w.Start) + "-.."
	case *w.Start == *w.End:
		return strconv.Itoa(*w.Start)
	default:
		return fmt.Sprintf("%d-%d", *w.Start, *w.End)
	}
}

func (w Window) String() string { return w.Label() }

// Contains reports whether year falls inside the window bounds.
func (w Window) Contains(year int) bool {
	if w.Start != nil && year < *w.Start {
		return false
	}
	if w.End != nil && year > *w.End {
		return false
	}
	return true
}

// Plan computes the ordered windows for the given reference year, newest first.
// The last window is always the unbounded one ending right before the floor.
func Plan(referenceYear int, opts Options) ([]Window, error) {
	if referenceYear <= 0 {
		return nil, ErrInvalidReferenceYear
	}
	floor := opts.Floor
	if floor == 0 {
		floor = DefaultFloorYear
	}
	oldestTwoYear := referenceYear - singleYearSpan - twoYearSpan + 1
	if floor <= 0 || floor > oldestTwoYear {
		return nil, ErrInvalidFloor
	}

	var out []Window
	add := func(start, end int) {
		start -= opts.Overlap
		out = append(out, Bounded(start, end))
	}

	year := referenceYear
	for ; year > referenceYear-singleYearSpan; year-- {
		add(year, year)
	}
	for ; year > referenceYear-singleYearSpan-twoYearSpan; year -= 2 {
		add(year-1, year)
	}
	for ; year >= floor; year -= fiveYearWidth {
		start := year - fiveYearWidth + 1
		if start < floor {
			start = floor
		}
		add(start, year)
	}

	out = append(out, Before(floor-1))
	return out, nil
}
