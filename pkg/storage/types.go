package storage

import "time"

// Run is one fetch pass.
type Run struct {
	ID            int64
	StartedAt     time.Time
	FinishedAt    time.Time // zero while the run is in progress or if it crashed
	ReferenceYear int
	TestMode      bool
}

// RunTotals is written when a run ends.
type RunTotals struct {
	Unique     int
	Duplicates int
	Skipped    int
	Stopped    bool
}

// WindowBatch is the checkpoint of one processed window.
type WindowBatch struct {
	ID         int64
	RunID      int64
	Label      string
	StartYear  *int
	EndYear    *int
	Status     string // ok | sampled | exhausted | failed
	Pages      int
	Fetched    int
	Added      int
	Duplicates int
	Skipped    int
	Retries    int
	Error      string
	RecordedAt time.Time
}

// RunStats aggregates the checkpoints of one run.
type RunStats struct {
	Run
	Windows       int
	FailedWindows int
	Rows          int
	Unique        *int // nil until the run finished
	Duplicates    *int
}
