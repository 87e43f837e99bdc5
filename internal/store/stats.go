package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Stats holds aggregate counts and breakdowns used by `lore db stats`-style
// reporting.
type Stats struct {
	SessionCount int
	MessageCount int
	LinkCount    int
	EarliestAt   *time.Time
	LatestAt     *time.Time
	ByTool       map[string]int
}

// Stats computes counts, the session date range, and a by-tool breakdown.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions`).Scan(&st.SessionCount); err != nil {
		return st, fmt.Errorf("store: stats: session count: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages`).Scan(&st.MessageCount); err != nil {
		return st, fmt.Errorf("store: stats: message count: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM session_links`).Scan(&st.LinkCount); err != nil {
		return st, fmt.Errorf("store: stats: link count: %w", err)
	}

	var earliest, latest sql.NullString
	if err := s.db.QueryRowContext(ctx, `SELECT MIN(started_at), MAX(started_at) FROM sessions`).Scan(&earliest, &latest); err != nil {
		return st, fmt.Errorf("store: stats: date range: %w", err)
	}
	if earliest.Valid {
		t, err := time.Parse(time.RFC3339Nano, earliest.String)
		if err == nil {
			st.EarliestAt = &t
		}
	}
	if latest.Valid {
		t, err := time.Parse(time.RFC3339Nano, latest.String)
		if err == nil {
			st.LatestAt = &t
		}
	}

	rows, err := s.db.QueryContext(ctx, `SELECT tool, COUNT(*) FROM sessions GROUP BY tool`)
	if err != nil {
		return st, fmt.Errorf("store: stats: by-tool breakdown: %w", err)
	}
	defer rows.Close()

	st.ByTool = make(map[string]int)
	for rows.Next() {
		var tool string
		var count int
		if err := rows.Scan(&tool, &count); err != nil {
			return st, fmt.Errorf("store: stats: scanning tool breakdown: %w", err)
		}
		st.ByTool[tool] = count
	}
	return st, rows.Err()
}

// TagCounts returns how many sessions carry each tag label, most-used
// first, for `lore insights`-style reporting.
func (s *Store) TagCounts(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT label, COUNT(*) FROM tags GROUP BY label ORDER BY COUNT(*) DESC`)
	if err != nil {
		return nil, fmt.Errorf("store: tag counts: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var label string
		var count int
		if err := rows.Scan(&label, &count); err != nil {
			return nil, fmt.Errorf("store: tag counts: scanning: %w", err)
		}
		out[label] = count
	}
	return out, rows.Err()
}

// SessionsByDay returns a count of sessions started on each UTC calendar
// day, keyed "2006-01-02", for activity-over-time reporting.
func (s *Store) SessionsByDay(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT substr(started_at, 1, 10), COUNT(*) FROM sessions GROUP BY substr(started_at, 1, 10)`)
	if err != nil {
		return nil, fmt.Errorf("store: sessions by day: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var day string
		var count int
		if err := rows.Scan(&day, &count); err != nil {
			return nil, fmt.Errorf("store: sessions by day: scanning: %w", err)
		}
		out[day] = count
	}
	return out, rows.Err()
}
