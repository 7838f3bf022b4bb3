package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/diaryscope/diaryscope/pkg/app"
	"github.com/diaryscope/diaryscope/pkg/archive"
	"github.com/diaryscope/diaryscope/pkg/datekey"
	"github.com/diaryscope/diaryscope/pkg/diary"
	_ "modernc.org/sqlite"
)

type DB struct {
	sql *sql.DB
}

// macroColumn maps a macro field name to its column.
func macroColumn(name string) string {
	return strings.ReplaceAll(name, " ", "_")
}

func macroColumns() []string {
	cols := make([]string, 0, len(app.MacroFields))
	for _, f := range app.MacroFields {
		cols = append(cols, macroColumn(f.Name))
	}
	return cols
}

func schema() string {
	var macro strings.Builder
	for _, c := range macroColumns() {
		fmt.Fprintf(&macro, "  %s TEXT,\n", c)
	}
	return `
CREATE TABLE IF NOT EXISTS daily_summaries (
  date          TEXT PRIMARY KEY,
  goal          TEXT NOT NULL,
  calories      TEXT NOT NULL,
  run_id        INTEGER NOT NULL DEFAULT 0,
  first_seen_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
  last_seen_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE IF NOT EXISTS diary_entries (
  id       INTEGER PRIMARY KEY,
  date     TEXT NOT NULL,
  position INTEGER NOT NULL,
  meal     TEXT NOT NULL,
  time     TEXT NOT NULL,
  name     TEXT NOT NULL,
  calories TEXT NOT NULL,
  UNIQUE(date, position)
);
CREATE INDEX IF NOT EXISTS idx_diary_date ON diary_entries(date);
CREATE TABLE IF NOT EXISTS macro_batches (
  id        INTEGER PRIMARY KEY,
  seq       INTEGER NOT NULL UNIQUE,
  date      TEXT NOT NULL,
  synced_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE IF NOT EXISTS macro_items (
  id       INTEGER PRIMARY KEY,
  batch_id INTEGER NOT NULL REFERENCES macro_batches(id) ON DELETE CASCADE,
  position INTEGER NOT NULL,
` + macro.String() + `  UNIQUE(batch_id, position)
);
CREATE INDEX IF NOT EXISTS idx_macro_batch_date ON macro_batches(date);
`
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
	if _, err := db.Exec(schema()); err != nil {
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

// SyncArchive makes the mirror match a. Summaries follow the archive date for
// date and days missing from it are removed; diary entries and macro batches
// are rewritten from the archive.
func (d *DB) SyncArchive(ctx context.Context, a archive.Archive) (res SyncResult, err error) {
	runID := time.Now().UnixNano()

	tx, err := d.sql.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return res, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	existing := make(map[string]diary.CalorieTally)
	rows, err := tx.QueryContext(ctx, "SELECT date, goal, calories FROM daily_summaries")
	if err != nil {
		return res, err
	}
	for rows.Next() {
		var date string
		var t diary.CalorieTally
		if err = rows.Scan(&date, &t.Goal, &t.Calories); err != nil {
			rows.Close()
			return res, err
		}
		existing[date] = t
	}
	if err = rows.Close(); err != nil {
		return res, err
	}

	for _, s := range a.DailySummary {
		date := s.Date.String()
		old, existed := existing[date]
		switch {
		case !existed:
			_, err = tx.ExecContext(ctx, `INSERT INTO daily_summaries(date, goal, calories, run_id) VALUES(?,?,?,?)`, date, s.Contents.Goal, s.Contents.Calories, runID)
			res.Added++
		case old != s.Contents:
			_, err = tx.ExecContext(ctx, `UPDATE daily_summaries SET goal = ?, calories = ?, run_id = ?, last_seen_at = CURRENT_TIMESTAMP WHERE date = ?`, s.Contents.Goal, s.Contents.Calories, runID, date)
			res.Updated++
		default:
			_, err = tx.ExecContext(ctx, `UPDATE daily_summaries SET run_id = ? WHERE date = ?`, runID, date)
		}
		if err != nil {
			return res, err
		}
	}

	// Sweep: days no longer in the archive
	var removed sql.Result
	removed, err = tx.ExecContext(ctx, `DELETE FROM daily_summaries WHERE run_id != ?`, runID)
	if err != nil {
		return res, err
	}
	if n, rerr := removed.RowsAffected(); rerr == nil {
		res.Removed = int(n)
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM diary_entries`); err != nil {
		return res, err
	}
	for _, rec := range a.Diary {
		for i, e := range rec.Contents {
			_, err = tx.ExecContext(ctx, `INSERT INTO diary_entries(date, position, meal, time, name, calories) VALUES(?,?,?,?,?,?)`, rec.Date.String(), i, e.Meal, e.Time, e.Name, e.Calories)
			if err != nil {
				return res, err
			}
			res.Entries++
		}
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM macro_items`); err != nil {
		return res, err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM macro_batches`); err != nil {
		return res, err
	}
	cols := macroColumns()
	insertItem := `INSERT INTO macro_items(batch_id, position, ` + strings.Join(cols, ", ") + `) VALUES(?, ?` + strings.Repeat(", ?", len(cols)) + `)`
	for seq, batch := range a.Macro {
		var r sql.Result
		r, err = tx.ExecContext(ctx, `INSERT INTO macro_batches(seq, date) VALUES(?, ?)`, seq, batch.Date.String())
		if err != nil {
			return res, err
		}
		var batchID int64
		if batchID, err = r.LastInsertId(); err != nil {
			return res, err
		}
		for i, m := range batch.Contents {
			args := []interface{}{batchID, i}
			for _, f := range app.MacroFields {
				args = append(args, m.Get(f.Name))
			}
			if _, err = tx.ExecContext(ctx, insertItem, args...); err != nil {
				return res, err
			}
		}
		res.MacroBatches++
	}

	if err = tx.Commit(); err != nil {
		return res, err
	}
	return res, nil
}

// ListDays returns the mirrored days between from and to inclusive. Zero
// bounds are open.
func (d *DB) ListDays(ctx context.Context, from, to datekey.Key) ([]Day, error) {
	where := "WHERE 1=1"
	args := []interface{}{}
	if !from.IsZero() {
		where += " AND s.date >= ?"
		args = append(args, from.String())
	}
	if !to.IsZero() {
		where += " AND s.date <= ?"
		args = append(args, to.String())
	}

	q := `SELECT s.date, s.goal, s.calories, COUNT(e.id)
FROM daily_summaries s LEFT JOIN diary_entries e ON e.date = s.date
` + where + ` GROUP BY s.date ORDER BY s.date`
	rows, err := d.sql.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Day
	for rows.Next() {
		var day Day
		var date string
		if err := rows.Scan(&date, &day.Goal, &day.Calories, &day.Entries); err != nil {
			return nil, err
		}
		if day.Date, err = datekey.Parse(date); err != nil {
			return nil, err
		}
		out = append(out, day)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListEntries returns the diary entries of one day in screen order.
func (d *DB) ListEntries(ctx context.Context, date datekey.Key) ([]diary.FlatDiaryEntry, error) {
	rows, err := d.sql.QueryContext(ctx, "SELECT meal, time, name, calories FROM diary_entries WHERE date = ? ORDER BY position", date.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []diary.FlatDiaryEntry
	for rows.Next() {
		var e diary.FlatDiaryEntry
		if err := rows.Scan(&e.Meal, &e.Time, &e.Name, &e.Calories); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (d *DB) GetStats(ctx context.Context) (Stats, error) {
	var st Stats
	var first, last sql.NullString
	err := d.sql.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM daily_summaries),
			(SELECT COUNT(*) FROM diary_entries),
			(SELECT COUNT(*) FROM macro_batches),
			(SELECT COUNT(*) FROM macro_items),
			(SELECT MIN(date) FROM daily_summaries),
			(SELECT MAX(date) FROM daily_summaries)
	`).Scan(&st.Days, &st.Entries, &st.MacroBatches, &st.MacroItems, &first, &last)
	if err != nil {
		return st, err
	}
	if first.Valid {
		if st.First, err = datekey.Parse(first.String); err != nil {
			return st, err
		}
	}
	if last.Valid {
		if st.Last, err = datekey.Parse(last.String); err != nil {
			return st, err
		}
	}
	return st, nil
}
