package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const timeLayout = "2006-01-02 15:04:05.000"

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func parseTime(s string) time.Time {
	t, err := time.ParseInLocation(timeLayout, s, time.UTC)
	if err != nil {
		return time.Time{}
	}
	return t
}

// MOEntry is one cached manufacturing order, keyed by MONumber.
type MOEntry struct {
	MONumber        string
	SKUName         string
	Quantity        *float64
	UoM             string
	Note            string
	SourceCreatedAt time.Time
	FetchedAt       time.Time
	LastUpdated     time.Time
}

// MOFilter selects cached orders. Empty fields do not filter.
type MOFilter struct {
	NotePatterns []string  // case-insensitive substrings, OR'ed
	CreatedSince time.Time // source_created_at >= CreatedSince
	Limit        int
}

type MOStats struct {
	Total           int
	WithinWindow    int
	OutsideWindow   int
	FetchedRecently int
	OldestCreatedAt *time.Time
	NewestCreatedAt *time.Time
}

const moColumns = `mo_number, sku_name, quantity, uom, note, source_created_at, fetched_at, last_updated`

// UpsertMO inserts or replaces the row for e.MONumber. fetched_at is only
// written on insert; last_updated is always now. The stored row is returned.
func (db *DB) UpsertMO(ctx context.Context, e *MOEntry, now time.Time) (*MOEntry, error) {
	var qty any
	if e.Quantity != nil {
		qty = *e.Quantity
	}
	ts := formatTime(now)
	_, err := db.ExecContext(ctx, db.Q(`INSERT INTO mo_cache (`+moColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (mo_number) DO UPDATE SET
			sku_name = excluded.sku_name,
			quantity = excluded.quantity,
			uom = excluded.uom,
			note = excluded.note,
			source_created_at = excluded.source_created_at,
			last_updated = excluded.last_updated`),
		e.MONumber, e.SKUName, qty, e.UoM, e.Note, formatTime(e.SourceCreatedAt), ts, ts)
	if err != nil {
		return nil, fmt.Errorf("upsert mo %s: %w", e.MONumber, err)
	}
	return db.GetMO(ctx, e.MONumber)
}

func (db *DB) GetMO(ctx context.Context, moNumber string) (*MOEntry, error) {
	row := db.QueryRowContext(ctx, db.Q(`SELECT `+moColumns+` FROM mo_cache WHERE mo_number = ?`), moNumber)
	e, err := scanMO(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("mo %s: %w", moNumber, ErrNotFound)
	}
	return e, err
}

// ListMOs returns matching rows newest source creation first.
func (db *DB) ListMOs(ctx context.Context, f MOFilter) ([]*MOEntry, error) {
	var where []string
	var args []any
	if len(f.NotePatterns) > 0 {
		var ors []string
		for _, p := range f.NotePatterns {
			ors = append(ors, `LOWER(note) LIKE ? ESCAPE '\'`)
			args = append(args, "%"+escapeLike(strings.ToLower(p))+"%")
		}
		where = append(where, "("+strings.Join(ors, " OR ")+")")
	}
	if !f.CreatedSince.IsZero() {
		where = append(where, "source_created_at >= ?")
		args = append(args, formatTime(f.CreatedSince))
	}

	query := `SELECT ` + moColumns + ` FROM mo_cache`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY source_created_at DESC, mo_number ASC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := db.QueryContext(ctx, db.Q(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []*MOEntry
	for rows.Next() {
		e, err := scanMO(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes p match literally inside a LIKE pattern.
func escapeLike(p string) string { return likeEscaper.Replace(p) }

// DeleteMOsCreatedBefore removes every row whose source_created_at is
// strictly before cutoff and returns the removed order numbers.
func (db *DB) DeleteMOsCreatedBefore(ctx context.Context, cutoff time.Time) ([]string, error) {
	rows, err := db.QueryContext(ctx, db.Q(`DELETE FROM mo_cache WHERE source_created_at < ? RETURNING mo_number`), formatTime(cutoff))
	if err != nil {
		return nil, fmt.Errorf("delete mo cache: %w", err)
	}
	defer rows.Close()
	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// MOStats counts rows against the retention cutoff; recentSince bounds the
// fetched_at count.
func (db *DB) MOStats(ctx context.Context, cutoff, recentSince time.Time) (*MOStats, error) {
	var s MOStats
	var within, recent sql.NullInt64
	var oldest, newest sql.NullString
	err := db.QueryRowContext(ctx, db.Q(`SELECT
			COUNT(*),
			SUM(CASE WHEN source_created_at >= ? THEN 1 ELSE 0 END),
			SUM(CASE WHEN fetched_at >= ? THEN 1 ELSE 0 END),
			MIN(source_created_at),
			MAX(source_created_at)
		FROM mo_cache`), formatTime(cutoff), formatTime(recentSince)).
		Scan(&s.Total, &within, &recent, &oldest, &newest)
	if err != nil {
		return nil, fmt.Errorf("mo stats: %w", err)
	}
	s.WithinWindow = int(within.Int64)
	s.OutsideWindow = s.Total - s.WithinWindow
	s.FetchedRecently = int(recent.Int64)
	if oldest.Valid {
		t := parseTime(oldest.String)
		s.OldestCreatedAt = &t
	}
	if newest.Valid {
		t := parseTime(newest.String)
		s.NewestCreatedAt = &t
	}
	return &s, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMO(s scanner) (*MOEntry, error) {
	var e MOEntry
	var qty sql.NullFloat64
	var created, fetched, updated string
	if err := s.Scan(&e.MONumber, &e.SKUName, &qty, &e.UoM, &e.Note, &created, &fetched, &updated); err != nil {
		return nil, err
	}
	if qty.Valid {
		e.Quantity = &qty.Float64
	}
	e.SourceCreatedAt = parseTime(created)
	e.FetchedAt = parseTime(fetched)
	e.LastUpdated = parseTime(updated)
	return &e, nil
}
