package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lorehq/lore/internal/model"
)

const linkColumns = `id, session_id, link_type, commit_sha, branch, remote, created_at, created_by, confidence`

// InsertLink records a session<->commit association.
func (s *Store) InsertLink(ctx context.Context, link model.SessionLink) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO session_links (`+linkColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		link.ID.String(), link.SessionID.String(), string(link.LinkType),
		nullString(link.CommitSHA), nullString(link.Branch), nullString(link.Remote),
		link.CreatedAt.UTC().Format(time.RFC3339Nano), string(link.CreatedBy), link.Confidence,
	)
	if err != nil {
		return fmt.Errorf("store: insert link %s: %w", link.ID, err)
	}
	return nil
}

// GetLinksBySession returns every link for a session.
func (s *Store) GetLinksBySession(ctx context.Context, sessionID uuid.UUID) ([]model.SessionLink, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+linkColumns+` FROM session_links WHERE session_id = ?`, sessionID.String())
	if err != nil {
		return nil, fmt.Errorf("store: get links by session %s: %w", sessionID, err)
	}
	defer rows.Close()
	return scanLinks(rows)
}

// GetLinksByCommit returns links whose commit SHA starts with prefix
// (prefix must be at least 4 characters per the commit-linker contract,
// enforced by the caller).
func (s *Store) GetLinksByCommit(ctx context.Context, prefix string) ([]model.SessionLink, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+linkColumns+` FROM session_links WHERE commit_sha LIKE ?`, prefix+"%")
	if err != nil {
		return nil, fmt.Errorf("store: get links by commit %q: %w", prefix, err)
	}
	defer rows.Close()
	return scanLinks(rows)
}

// DeleteLinksBySession removes every link for a session. Returns the count removed.
func (s *Store) DeleteLinksBySession(ctx context.Context, sessionID uuid.UUID) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM session_links WHERE session_id = ?`, sessionID.String())
	if err != nil {
		return 0, fmt.Errorf("store: delete links by session %s: %w", sessionID, err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// DeleteLinkBySessionAndCommit removes the link between a session and a
// commit matched by SHA prefix. Returns true if a link was removed.
func (s *Store) DeleteLinkBySessionAndCommit(ctx context.Context, sessionID uuid.UUID, commitPrefix string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM session_links WHERE session_id = ? AND commit_sha LIKE ?`, sessionID.String(), commitPrefix+"%")
	if err != nil {
		return false, fmt.Errorf("store: delete link session %s commit %q: %w", sessionID, commitPrefix, err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// LinkExists reports whether session and commit are already linked.
func (s *Store) LinkExists(ctx context.Context, sessionID uuid.UUID, commitSHA string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM session_links WHERE session_id = ? AND commit_sha = ?`, sessionID.String(), commitSHA).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("store: link exists %s/%s: %w", sessionID, commitSHA, err)
	}
	return count > 0, nil
}

// FindSessionsNearCommitTime returns sessions whose [started_at, ended_at]
// window overlaps a window of windowMinutes around commitTime, ordered by
// proximity to commitTime. Used by the commit linker's auto-linking heuristic.
func (s *Store) FindSessionsNearCommitTime(ctx context.Context, commitTime time.Time, windowMinutes int, workingDirPrefix string) ([]model.Session, error) {
	window := time.Duration(windowMinutes) * time.Minute
	windowStart := commitTime.Add(-window).UTC().Format(time.RFC3339Nano)
	windowEnd := commitTime.Add(window).UTC().Format(time.RFC3339Nano)
	commitStr := commitTime.UTC().Format(time.RFC3339Nano)

	var rows *sql.Rows
	var err error
	// A session's interval is [started_at, ended_at ?? started_at]: an
	// open-ended session collapses to a zero-width point at started_at, so
	// it must itself satisfy the lower bound rather than skipping it.
	if workingDirPrefix != "" {
		rows, err = s.db.QueryContext(ctx, `
			SELECT `+sessionColumns+` FROM sessions
			WHERE working_directory LIKE ?
			  AND started_at <= ?
			  AND ((ended_at IS NULL AND started_at >= ?) OR (ended_at IS NOT NULL AND ended_at >= ?))
			ORDER BY ABS(julianday(COALESCE(ended_at, started_at)) - julianday(?))`,
			workingDirPrefix+"%", windowEnd, windowStart, windowStart, commitStr)
	} else {
		rows, err = s.db.QueryContext(ctx, `
			SELECT `+sessionColumns+` FROM sessions
			WHERE started_at <= ?
			  AND ((ended_at IS NULL AND started_at >= ?) OR (ended_at IS NOT NULL AND ended_at >= ?))
			ORDER BY ABS(julianday(COALESCE(ended_at, started_at)) - julianday(?))`,
			windowEnd, windowStart, windowStart, commitStr)
	}
	if err != nil {
		return nil, fmt.Errorf("store: find sessions near commit time: %w", err)
	}
	defer rows.Close()
	return scanSessions(rows)
}

func scanLinks(rows *sql.Rows) ([]model.SessionLink, error) {
	var out []model.SessionLink
	for rows.Next() {
		var (
			idStr, sessionIDStr, linkType, createdBy, createdAt string
			commitSHA, branch, remote                           sql.NullString
			confidence                                          sql.NullFloat64
		)
		if err := rows.Scan(&idStr, &sessionIDStr, &linkType, &commitSHA, &branch, &remote, &createdAt, &createdBy, &confidence); err != nil {
			return nil, fmt.Errorf("scanning link row: %w", err)
		}
		id, err := uuid.Parse(idStr)
		if err != nil {
			return nil, fmt.Errorf("parsing link id %q: %w", idStr, err)
		}
		sessionID, err := uuid.Parse(sessionIDStr)
		if err != nil {
			return nil, fmt.Errorf("parsing link session id %q: %w", sessionIDStr, err)
		}
		ts, err := time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing link created_at %q: %w", createdAt, err)
		}

		link := model.SessionLink{
			ID:        id,
			SessionID: sessionID,
			LinkType:  model.LinkType(linkType),
			CommitSHA: commitSHA.String,
			Branch:    branch.String,
			Remote:    remote.String,
			CreatedAt: ts,
			CreatedBy: model.LinkCreator(createdBy),
		}
		if confidence.Valid {
			link.Confidence = &confidence.Float64
		}
		out = append(out, link)
	}
	return out, rows.Err()
}
