package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lorehq/lore/internal/model"
)

const sessionColumns = `id, tool, tool_version, started_at, ended_at, model, working_directory, git_branch, source_path, message_count, machine_id`

// UpsertSession inserts a new session or, on id conflict, updates only
// ended_at and message_count.
func (s *Store) UpsertSession(ctx context.Context, sess model.Session) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (`+sessionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			ended_at = excluded.ended_at,
			message_count = excluded.message_count
	`,
		sess.ID.String(),
		sess.Tool,
		nullString(sess.ToolVersion),
		sess.StartedAt.UTC().Format(time.RFC3339Nano),
		nullTime(sess.EndedAt),
		nullString(sess.Model),
		sess.WorkingDirectory,
		nullString(sess.GitBranch),
		nullString(sess.SourcePath),
		sess.MessageCount,
		nullUUID(sess.MachineID),
	)
	if err != nil {
		return fmt.Errorf("store: upsert session %s: %w", sess.ID, err)
	}
	return nil
}

// GetSession retrieves a session by id. Returns (nil, nil) if it doesn't exist.
func (s *Store) GetSession(ctx context.Context, id uuid.UUID) (*model.Session, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id.String())
	sess, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: get session %s: %w", id, err)
	}
	return sess, nil
}

// ListSessions lists sessions ordered by start time descending, optionally
// filtered to those whose working directory starts with workingDirPrefix.
func (s *Store) ListSessions(ctx context.Context, limit int, workingDirPrefix string) ([]model.Session, error) {
	var rows *sql.Rows
	var err error
	if workingDirPrefix != "" {
		rows, err = s.db.QueryContext(ctx, `
			SELECT `+sessionColumns+` FROM sessions
			WHERE working_directory LIKE ?
			ORDER BY started_at DESC LIMIT ?`,
			workingDirPrefix+"%", limit)
	} else {
		rows, err = s.db.QueryContext(ctx, `
			SELECT `+sessionColumns+` FROM sessions
			ORDER BY started_at DESC LIMIT ?`,
			limit)
	}
	if err != nil {
		return nil, fmt.Errorf("store: list sessions: %w", err)
	}
	defer rows.Close()
	return scanSessions(rows)
}

// ListSessionsWithTag lists sessions tagged with label, most recent first.
func (s *Store) ListSessionsWithTag(ctx context.Context, label string, limit int) ([]model.Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+prefixColumns("s", sessionColumns)+`
		FROM sessions s
		JOIN tags t ON t.session_id = s.id
		WHERE t.label = ?
		ORDER BY s.started_at DESC LIMIT ?`,
		label, limit)
	if err != nil {
		return nil, fmt.Errorf("store: list sessions with tag %q: %w", label, err)
	}
	defer rows.Close()
	return scanSessions(rows)
}

// ErrAmbiguousPrefix is returned by FindSessionByIDPrefix when more than one
// session id matches the given prefix.
var ErrAmbiguousPrefix = fmt.Errorf("store: ambiguous session id prefix")

// FindSessionByIDPrefix resolves a short id prefix to a full session.
// Returns (nil, nil) if no session matches, ErrAmbiguousPrefix if more than
// one does.
func (s *Store) FindSessionByIDPrefix(ctx context.Context, prefix string) (*model.Session, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id LIKE ? LIMIT 2`, prefix+"%")
	if err != nil {
		return nil, fmt.Errorf("store: find session by prefix %q: %w", prefix, err)
	}
	defer rows.Close()

	sessions, err := scanSessions(rows)
	if err != nil {
		return nil, err
	}
	switch len(sessions) {
	case 0:
		return nil, nil
	case 1:
		return &sessions[0], nil
	default:
		return nil, ErrAmbiguousPrefix
	}
}

// SessionExistsBySource reports whether a session with the given source_path
// has already been imported. Used by the import pipeline for deduplication.
func (s *Store) SessionExistsBySource(ctx context.Context, sourcePath string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions WHERE source_path = ?`, sourcePath).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("store: session exists by source %q: %w", sourcePath, err)
	}
	return count > 0, nil
}

// DeleteSession removes a session and everything it owns (messages, links,
// tags, summary, annotations, FTS rows, sync bookkeeping) in one transaction.
func (s *Store) DeleteSession(ctx context.Context, id uuid.UUID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: delete session %s: begin tx: %w", id, err)
	}
	defer tx.Rollback()

	idStr := id.String()
	stmts := []string{
		`DELETE FROM messages_fts WHERE message_id IN (SELECT id FROM messages WHERE session_id = ?)`,
		`DELETE FROM messages WHERE session_id = ?`,
		`DELETE FROM session_links WHERE session_id = ?`,
		`DELETE FROM tags WHERE session_id = ?`,
		`DELETE FROM summaries WHERE session_id = ?`,
		`DELETE FROM annotations WHERE session_id = ?`,
		`DELETE FROM sync_status WHERE session_id = ?`,
		`DELETE FROM sessions WHERE id = ?`,
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt, idStr); err != nil {
			return fmt.Errorf("store: delete session %s: %w", id, err)
		}
	}

	return tx.Commit()
}

// DeleteSessionsOlderThan deletes all sessions whose started_at is before
// cutoff, along with their owned rows. Returns the number of sessions deleted.
func (s *Store) DeleteSessionsOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM sessions WHERE started_at < ?`, cutoff.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, fmt.Errorf("store: delete sessions older than %s: %w", cutoff, err)
	}
	var ids []uuid.UUID
	for rows.Next() {
		var idStr string
		if err := rows.Scan(&idStr); err != nil {
			rows.Close()
			return 0, fmt.Errorf("store: scanning session id: %w", err)
		}
		id, err := uuid.Parse(idStr)
		if err != nil {
			rows.Close()
			return 0, fmt.Errorf("store: parsing session id %q: %w", idStr, err)
		}
		ids = append(ids, id)
	}
	rows.Close()

	for _, id := range ids {
		if err := s.DeleteSession(ctx, id); err != nil {
			return 0, err
		}
	}
	return len(ids), nil
}

func scanSessions(rows *sql.Rows) ([]model.Session, error) {
	var out []model.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scanning session row: %w", err)
		}
		out = append(out, *sess)
	}
	return out, rows.Err()
}

// rowScanner abstracts over *sql.Row and *sql.Rows, which both expose Scan.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*model.Session, error) {
	var (
		idStr, tool, workingDirectory                                      string
		toolVersion, model_, gitBranch, sourcePath, machineID, endedAt, startedAt sql.NullString
		messageCount                                                       int
	)
	err := row.Scan(&idStr, &tool, &toolVersion, &startedAt, &endedAt, &model_, &workingDirectory, &gitBranch, &sourcePath, &messageCount, &machineID)
	if err != nil {
		return nil, err
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("parsing session id %q: %w", idStr, err)
	}
	started, err := time.Parse(time.RFC3339Nano, startedAt.String)
	if err != nil {
		return nil, fmt.Errorf("parsing started_at %q: %w", startedAt.String, err)
	}

	sess := &model.Session{
		ID:               id,
		Tool:             tool,
		ToolVersion:      toolVersion.String,
		StartedAt:        started,
		Model:            model_.String,
		WorkingDirectory: workingDirectory,
		GitBranch:        gitBranch.String,
		SourcePath:       sourcePath.String,
		MessageCount:     messageCount,
	}
	if endedAt.Valid && endedAt.String != "" {
		t, err := time.Parse(time.RFC3339Nano, endedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parsing ended_at %q: %w", endedAt.String, err)
		}
		sess.EndedAt = &t
	}
	if machineID.Valid && machineID.String != "" {
		mid, err := uuid.Parse(machineID.String)
		if err != nil {
			return nil, fmt.Errorf("parsing machine_id %q: %w", machineID.String, err)
		}
		sess.MachineID = mid
	}
	return sess, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func nullUUID(id uuid.UUID) any {
	if id == uuid.Nil {
		return nil
	}
	return id.String()
}

// prefixColumns rewrites a comma-separated column list to qualify every
// column with alias, for use in joined queries that reuse scanSession.
func prefixColumns(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, col := range parts {
		parts[i] = alias + "." + strings.TrimSpace(col)
	}
	return strings.Join(parts, ", ")
}
