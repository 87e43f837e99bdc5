package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lorehq/lore/internal/model"
)

const messageColumns = `id, session_id, parent_id, idx, timestamp, role, content, model, git_branch, cwd`

// InsertMessage inserts a message, idempotent on id. On first insert it also
// emits an FTS row if the message's extracted text is non-empty.
func (s *Store) InsertMessage(ctx context.Context, msg model.Message) error {
	contentJSON, err := json.Marshal(msg.Content)
	if err != nil {
		return fmt.Errorf("store: marshal message content %s: %w", msg.ID, err)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (`+messageColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING`,
		msg.ID.String(),
		msg.SessionID.String(),
		nullUUIDPtr(msg.ParentID),
		msg.Index,
		msg.Timestamp.UTC().Format(time.RFC3339Nano),
		string(msg.Role),
		string(contentJSON),
		nullString(msg.Model),
		nullString(msg.GitBranch),
		nullString(msg.CWD),
	)
	if err != nil {
		return fmt.Errorf("store: insert message %s: %w", msg.ID, err)
	}

	inserted, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: insert message %s: rows affected: %w", msg.ID, err)
	}
	if inserted == 0 {
		return nil
	}

	text := msg.Content.ExtractText()
	if text == "" {
		return nil
	}
	if _, err := s.db.ExecContext(ctx, `INSERT INTO messages_fts (message_id, text_content) VALUES (?, ?)`, msg.ID.String(), text); err != nil {
		return fmt.Errorf("store: index message %s for search: %w", msg.ID, err)
	}
	return nil
}

// GetMessages returns all messages for a session, ordered by index.
func (s *Store) GetMessages(ctx context.Context, sessionID uuid.UUID) ([]model.Message, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+messageColumns+` FROM messages WHERE session_id = ? ORDER BY idx`, sessionID.String())
	if err != nil {
		return nil, fmt.Errorf("store: get messages for session %s: %w", sessionID, err)
	}
	defer rows.Close()

	var out []model.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scanning message: %w", err)
		}
		out = append(out, *msg)
	}
	return out, rows.Err()
}

func scanMessage(row rowScanner) (*model.Message, error) {
	var (
		idStr, sessionIDStr, role, content string
		parentID, modelStr, gitBranch, cwd sql.NullString
		index                              int
		timestamp                          string
	)
	if err := row.Scan(&idStr, &sessionIDStr, &parentID, &index, &timestamp, &role, &content, &modelStr, &gitBranch, &cwd); err != nil {
		return nil, err
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("parsing message id %q: %w", idStr, err)
	}
	sessionID, err := uuid.Parse(sessionIDStr)
	if err != nil {
		return nil, fmt.Errorf("parsing session id %q: %w", sessionIDStr, err)
	}
	ts, err := time.Parse(time.RFC3339Nano, timestamp)
	if err != nil {
		return nil, fmt.Errorf("parsing message timestamp %q: %w", timestamp, err)
	}

	var mc model.MessageContent
	if err := json.Unmarshal([]byte(content), &mc); err != nil {
		// Defensive fallback: treat unparseable stored content as plain text,
		// matching the source format's behavior on legacy rows.
		mc = model.NewTextContent(content)
	}

	msg := &model.Message{
		ID:        id,
		SessionID: sessionID,
		Index:     index,
		Timestamp: ts,
		Role:      model.MessageRole(role),
		Content:   mc,
		Model:     modelStr.String,
		GitBranch: gitBranch.String,
		CWD:       cwd.String,
	}
	if parentID.Valid && parentID.String != "" {
		pid, err := uuid.Parse(parentID.String)
		if err != nil {
			return nil, fmt.Errorf("parsing parent id %q: %w", parentID.String, err)
		}
		msg.ParentID = &pid
	}
	return msg, nil
}

func nullUUIDPtr(id *uuid.UUID) any {
	if id == nil {
		return nil
	}
	return id.String()
}
