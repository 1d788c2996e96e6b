package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/anidataset/anidataset/pkg/dataset"
	"github.com/goccy/go-json"
	_ "modernc.org/sqlite"
)

type DB struct {
	sql *sql.DB
}

func Open(path string) (*DB, error) {
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	// Ensure schema exists for convenience.
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS runs (
  id             INTEGER PRIMARY KEY,
  started_at     TEXT NOT NULL,
  finished_at    TEXT,
  reference_year INTEGER NOT NULL,
  test_mode      INTEGER NOT NULL CHECK (test_mode IN (0,1)),
  unique_records INTEGER,
  duplicates     INTEGER,
  skipped        INTEGER,
  stopped        INTEGER CHECK (stopped IN (0,1))
);
CREATE TABLE IF NOT EXISTS window_batches (
  id          INTEGER PRIMARY KEY,
  run_id      INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
  label       TEXT NOT NULL,
  start_year  INTEGER,
  end_year    INTEGER,
  status      TEXT NOT NULL CHECK (status IN ('ok','sampled','exhausted','failed')),
  pages       INTEGER NOT NULL,
  fetched     INTEGER NOT NULL,
  added       INTEGER NOT NULL,
  duplicates  INTEGER NOT NULL,
  skipped     INTEGER NOT NULL,
  retries     INTEGER NOT NULL,
  error       TEXT,
  recorded_at TEXT NOT NULL,
  UNIQUE(run_id, label)
);
CREATE INDEX IF NOT EXISTS idx_batches_run ON window_batches(run_id);
CREATE TABLE IF NOT EXISTS batch_rows (
  batch_id INTEGER NOT NULL REFERENCES window_batches(id) ON DELETE CASCADE,
  media_id INTEGER NOT NULL,
  data     TEXT NOT NULL,
  PRIMARY KEY(batch_id, media_id)
);
    `); err != nil {
		return nil, err
	}
	return &DB{sql: db}, nil
}

func (d *DB) Close() error {
	if d == nil || d.sql == nil {
		return nil
	}
	return d.sql.Close()
}

// StartRun registers a new run and returns its id.
func (d *DB) StartRun(ctx context.Context, referenceYear int, testMode bool) (int64, error) {
	res, err := d.sql.ExecContext(ctx, `INSERT INTO runs(started_at, reference_year, test_mode) VALUES(?,?,?)`, now(), referenceYear, boolToInt(testMode))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// FinishRun stores the final totals of a run.
func (d *DB) FinishRun(ctx context.Context, runID int64, t RunTotals) error {
	_, err := d.sql.ExecContext(ctx, `UPDATE runs SET finished_at = ?, unique_records = ?, duplicates = ?, skipped = ?, stopped = ? WHERE id = ?`, now(), t.Unique, t.Duplicates, t.Skipped, boolToInt(t.Stopped), runID)
	return err
}

// RecordWindow stores a window checkpoint together with the rows it added,
// one JSON object per row keyed by column name.
func (d *DB) RecordWindow(ctx context.Context, b WindowBatch, rows []dataset.Row) (err error) {
	tx, err := d.sql.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `INSERT INTO window_batches(run_id, label, start_year, end_year, status, pages, fetched, added, duplicates, skipped, retries, error, recorded_at) VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		b.RunID, b.Label, nullableInt(b.StartYear), nullableInt(b.EndYear), b.Status, b.Pages, b.Fetched, b.Added, b.Duplicates, b.Skipped, b.Retries, nullIfEmpty(b.Error), now())
	if err != nil {
		return err
	}
	batchID, err := res.LastInsertId()
	if err != nil {
		return err
	}

	if len(rows) > 0 {
		stmt, perr := tx.PrepareContext(ctx, `INSERT INTO batch_rows(batch_id, media_id, data) VALUES(?,?,?)`)
		if perr != nil {
			return perr
		}
		defer stmt.Close()

		cols := dataset.Columns()
		for _, r := range rows {
			id, ok := r.Key()
			if !ok {
				continue
			}
			data, merr := rowJSON(cols, r)
			if merr != nil {
				return merr
			}
			if _, err = stmt.ExecContext(ctx, batchID, id, data); err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}

// ListWindows returns the checkpoints of a run in the order they were recorded.
func (d *DB) ListWindows(ctx context.Context, runID int64) ([]WindowBatch, error) {
	rows, err := d.sql.QueryContext(ctx, `SELECT id, run_id, label, start_year, end_year, status, pages, fetched, added, duplicates, skipped, retries, error, recorded_at FROM window_batches WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []WindowBatch
	for rows.Next() {
		var (
			b          WindowBatch
			start, end sql.NullInt64
			errText    sql.NullString
			recordedAt string
		)
		if err := rows.Scan(&b.ID, &b.RunID, &b.Label, &start, &end, &b.Status, &b.Pages, &b.Fetched, &b.Added, &b.Duplicates, &b.Skipped, &b.Retries, &errText, &recordedAt); err != nil {
			return nil, err
		}
		b.StartYear = intFromNull(start)
		b.EndYear = intFromNull(end)
		b.Error = errText.String
		b.RecordedAt = parseTime(recordedAt)
		out = append(out, b)
	}
	return out, rows.Err()
}

// CountRows returns how many row snapshots a batch holds.
func (d *DB) CountRows(ctx context.Context, batchID int64) (int, error) {
	var n int
	err := d.sql.QueryRowContext(ctx, `SELECT COUNT(*) FROM batch_rows WHERE batch_id = ?`, batchID).Scan(&n)
	return n, err
}

// GetStats aggregates every run, newest first.
func (d *DB) GetStats(ctx context.Context) ([]RunStats, error) {
	query := `
		SELECT
			r.id,
			r.started_at,
			r.finished_at,
			r.reference_year,
			r.test_mode,
			r.unique_records,
			r.duplicates,
			COUNT(b.id),
			COALESCE(SUM(CASE WHEN b.status IN ('exhausted','failed') THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(b.added), 0)
		FROM
			runs r
			LEFT JOIN window_batches b ON b.run_id = r.id
		GROUP BY
			r.id
		ORDER BY
			r.id DESC;
	`
	rows, err := d.sql.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []RunStats
	for rows.Next() {
		var (
			s                  RunStats
			startedAt          string
			finishedAt         sql.NullString
			testMode           int
			unique, duplicates sql.NullInt64
		)
		if err := rows.Scan(&s.ID, &startedAt, &finishedAt, &s.ReferenceYear, &testMode, &unique, &duplicates, &s.Windows, &s.FailedWindows, &s.Rows); err != nil {
			return nil, err
		}
		s.StartedAt = parseTime(startedAt)
		if finishedAt.Valid {
			s.FinishedAt = parseTime(finishedAt.String)
		}
		s.TestMode = testMode == 1
		s.Unique = intFromNull(unique)
		s.Duplicates = intFromNull(duplicates)
		stats = append(stats, s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return stats, nil
}

func rowJSON(cols []string, r dataset.Row) (string, error) {
	values := r.Values()
	obj := make(map[string]any, len(cols))
	for i, c := range cols {
		obj[c] = values[i]
	}
	b, err := json.Marshal(obj)
	return string(b), err
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// parseTime accepts RFC3339 and the SQLite CURRENT_TIMESTAMP format.
func parseTime(s string) time.Time {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	if t, err := time.Parse("2006-01-02 15:04:05", s); err == nil {
		return t
	}
	return time.Time{}
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullableInt(v *int) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func intFromNull(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
