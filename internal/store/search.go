package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lorehq/lore/internal/model"
)

// SearchMessages runs an FTS5 MATCH query over message text, relevance
// ranked, optionally filtered by working directory prefix, minimum
// timestamp, and role.
func (s *Store) SearchMessages(ctx context.Context, query string, limit int, workingDirPrefix string, since *time.Time, role model.MessageRole) ([]model.SearchResult, error) {
	var sql_ strings.Builder
	sql_.WriteString(`
		SELECT m.session_id, m.id, m.role,
		       snippet(messages_fts, 1, '**', '**', '...', 32) AS snippet,
		       m.timestamp, s.working_directory
		FROM messages_fts fts
		JOIN messages m ON fts.message_id = m.id
		JOIN sessions s ON m.session_id = s.id
		WHERE messages_fts MATCH ?`)

	args := []any{query}
	if workingDirPrefix != "" {
		sql_.WriteString(" AND s.working_directory LIKE ?")
		args = append(args, workingDirPrefix+"%")
	}
	if since != nil {
		sql_.WriteString(" AND m.timestamp >= ?")
		args = append(args, since.UTC().Format(time.RFC3339Nano))
	}
	if role != "" {
		sql_.WriteString(" AND m.role = ?")
		args = append(args, string(role))
	}
	sql_.WriteString(" ORDER BY rank LIMIT ?")
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, sql_.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("store: search messages %q: %w", query, err)
	}
	defer rows.Close()

	var out []model.SearchResult
	for rows.Next() {
		var (
			sessionIDStr, messageIDStr, role, snippet, timestamp, workingDirectory string
		)
		if err := rows.Scan(&sessionIDStr, &messageIDStr, &role, &snippet, &timestamp, &workingDirectory); err != nil {
			return nil, fmt.Errorf("store: scanning search result: %w", err)
		}
		sessionID, err := uuid.Parse(sessionIDStr)
		if err != nil {
			return nil, fmt.Errorf("parsing search result session id %q: %w", sessionIDStr, err)
		}
		messageID, err := uuid.Parse(messageIDStr)
		if err != nil {
			return nil, fmt.Errorf("parsing search result message id %q: %w", messageIDStr, err)
		}
		ts, err := time.Parse(time.RFC3339Nano, timestamp)
		if err != nil {
			return nil, fmt.Errorf("parsing search result timestamp %q: %w", timestamp, err)
		}
		out = append(out, model.SearchResult{
			SessionID:        sessionID,
			MessageID:        messageID,
			Role:             model.MessageRole(role),
			Snippet:          snippet,
			Timestamp:        ts,
			WorkingDirectory: workingDirectory,
		})
	}
	return out, rows.Err()
}

// RebuildSearchIndex clears and refills the FTS index from the messages
// table. Returns the number of messages re-indexed.
func (s *Store) RebuildSearchIndex(ctx context.Context) (int, error) {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM messages_fts`); err != nil {
		return 0, fmt.Errorf("store: rebuild search index: clear: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id, content FROM messages`)
	if err != nil {
		return 0, fmt.Errorf("store: rebuild search index: select messages: %w", err)
	}
	defer rows.Close()

	count := 0
	for rows.Next() {
		var id, contentJSON string
		if err := rows.Scan(&id, &contentJSON); err != nil {
			return count, fmt.Errorf("store: rebuild search index: scanning message: %w", err)
		}
		var mc model.MessageContent
		if err := json.Unmarshal([]byte(contentJSON), &mc); err != nil {
			mc = model.NewTextContent(contentJSON)
		}
		text := mc.ExtractText()
		if text == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, `INSERT INTO messages_fts (message_id, text_content) VALUES (?, ?)`, id, text); err != nil {
			return count, fmt.Errorf("store: rebuild search index: indexing message %s: %w", id, err)
		}
		count++
	}
	return count, rows.Err()
}

// SearchIndexNeedsRebuild reports whether the store has messages but an
// empty FTS index, which indicates sessions imported before FTS existed.
func (s *Store) SearchIndexNeedsRebuild(ctx context.Context) (bool, error) {
	var messageCount, ftsCount int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages`).Scan(&messageCount); err != nil {
		return false, fmt.Errorf("store: search index needs rebuild: counting messages: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages_fts`).Scan(&ftsCount); err != nil {
		return false, fmt.Errorf("store: search index needs rebuild: counting fts rows: %w", err)
	}
	return messageCount > 0 && ftsCount == 0, nil
}

// Vacuum reclaims free space in the database file.
func (s *Store) Vacuum(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `VACUUM`)
	if err != nil {
		return fmt.Errorf("store: vacuum: %w", err)
	}
	return nil
}
