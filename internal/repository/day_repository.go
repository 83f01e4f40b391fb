package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/kartmania/track-reservation/internal/model"
)

// DayRepo persists calendar day documents.  Each row stores the full
// nested day structure as JSON next to a version counter; writes replace
// the whole document and bump the version, guarded by a compare-and-set
// on the version read.  There is no partial nested-field update — the
// document is small (11x5x8 positions) and whole-day replacement keeps
// the concurrency story to a single CAS.
type DayRepo struct {
	db *sql.DB
}

// NewDayRepo returns a DayRepo bound to the provided database.
func NewDayRepo(db *sql.DB) *DayRepo { return &DayRepo{db: db} }

// DB exposes the underlying sql.DB for callers that need transactions
// spanning multiple repositories.
func (r *DayRepo) DB() *sql.DB { return r.db }

// Find loads the day document for the given date together with its
// current version.  Returns ErrDayNotFound when the date was never
// generated.
func (r *DayRepo) Find(ctx context.Context, date string) (model.Day, int64, error) {
	const q = `SELECT doc, version FROM days WHERE day = ?`
	var raw []byte
	var version int64
	if err := r.db.QueryRowContext(ctx, q, date).Scan(&raw, &version); err != nil {
		if err == sql.ErrNoRows {
			return model.Day{}, 0, ErrDayNotFound
		}
		return model.Day{}, 0, err
	}
	var d model.Day
	if err := json.Unmarshal(raw, &d); err != nil {
		return model.Day{}, 0, fmt.Errorf("decode day %s: %w", date, err)
	}
	return d, version, nil
}

// FindRange loads every day document with from <= day <= to, ordered by
// date.  An empty range yields an empty slice, not an error.
func (r *DayRepo) FindRange(ctx context.Context, from, to string) ([]model.Day, error) {
	const q = `SELECT doc FROM days WHERE day >= ? AND day <= ? ORDER BY day`
	rows, err := r.db.QueryContext(ctx, q, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var days []model.Day
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var d model.Day
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, fmt.Errorf("decode day: %w", err)
		}
		days = append(days, d)
	}
	return days, rows.Err()
}

// Dates lists every generated date in ascending order.  The sweeper uses
// this to walk the calendar one independent day at a time.
func (r *DayRepo) Dates(ctx context.Context) ([]string, error) {
	const q = `SELECT day FROM days ORDER BY day`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var dates []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		dates = append(dates, d)
	}
	return dates, rows.Err()
}

// Replace stores the whole day document, succeeding only when the stored
// version still equals the version the caller read.  On success the
// version is bumped; when the row moved on, ErrVersionConflict is
// returned and the caller must re-fetch, re-validate and retry.
func (r *DayRepo) Replace(ctx context.Context, day model.Day, version int64) error {
	raw, err := json.Marshal(day)
	if err != nil {
		return fmt.Errorf("encode day %s: %w", day.Date, err)
	}
	const q = `UPDATE days SET doc = ?, version = version + 1 WHERE day = ? AND version = ?`
	res, err := r.db.ExecContext(ctx, q, raw, day.Date, version)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Either the version moved on or the day does not exist; tell
		// them apart so callers can surface the right error.
		var exists int
		if err := r.db.QueryRowContext(ctx, `SELECT 1 FROM days WHERE day = ?`, day.Date).Scan(&exists); err != nil {
			if err == sql.ErrNoRows {
				return ErrDayNotFound
			}
			return err
		}
		return ErrVersionConflict
	}
	return nil
}

// BulkInsert stores a batch of freshly generated day documents at
// version zero.  Used by the month generator; duplicate dates map to
// ErrDayExists.
func (r *DayRepo) BulkInsert(ctx context.Context, days []model.Day) error {
	if len(days) == 0 {
		return nil
	}
	var b strings.Builder
	b.WriteString(`INSERT INTO days (day, doc, version) VALUES `)
	args := make([]interface{}, 0, len(days)*2)
	for i, d := range days {
		raw, err := json.Marshal(d)
		if err != nil {
			return fmt.Errorf("encode day %s: %w", d.Date, err)
		}
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString("(?, ?, 0)")
		args = append(args, d.Date, raw)
	}
	if _, err := r.db.ExecContext(ctx, b.String(), args...); err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == 1062 {
			return ErrDayExists
		}
		return err
	}
	return nil
}
