package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lorehq/lore/internal/model"
)

// AddTag attaches a label to a session. Re-adding the same label is a no-op.
func (s *Store) AddTag(ctx context.Context, sessionID uuid.UUID, label string, createdAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tags (session_id, label, created_at) VALUES (?, ?, ?)
		ON CONFLICT(session_id, label) DO NOTHING`,
		sessionID.String(), label, createdAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("store: add tag %q to session %s: %w", label, sessionID, err)
	}
	return nil
}

// RemoveTag detaches a label from a session.
func (s *Store) RemoveTag(ctx context.Context, sessionID uuid.UUID, label string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM tags WHERE session_id = ? AND label = ?`, sessionID.String(), label)
	if err != nil {
		return fmt.Errorf("store: remove tag %q from session %s: %w", label, sessionID, err)
	}
	return nil
}

// GetTags returns every label attached to a session.
func (s *Store) GetTags(ctx context.Context, sessionID uuid.UUID) ([]model.Tag, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT session_id, label, created_at FROM tags WHERE session_id = ? ORDER BY created_at`, sessionID.String())
	if err != nil {
		return nil, fmt.Errorf("store: get tags for session %s: %w", sessionID, err)
	}
	defer rows.Close()

	var out []model.Tag
	for rows.Next() {
		var sidStr, label, createdAt string
		if err := rows.Scan(&sidStr, &label, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning tag row: %w", err)
		}
		sid, err := uuid.Parse(sidStr)
		if err != nil {
			return nil, fmt.Errorf("parsing tag session id %q: %w", sidStr, err)
		}
		ts, err := time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing tag created_at %q: %w", createdAt, err)
		}
		out = append(out, model.Tag{SessionID: sid, Label: label, CreatedAt: ts})
	}
	return out, rows.Err()
}

// SetSummary creates or replaces the singleton summary for a session.
func (s *Store) SetSummary(ctx context.Context, summary model.Summary) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO summaries (session_id, text, provider, model, created_at) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET text = excluded.text, provider = excluded.provider, model = excluded.model, created_at = excluded.created_at`,
		summary.SessionID.String(), summary.Text, nullString(summary.Provider), nullString(summary.Model), summary.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("store: set summary for session %s: %w", summary.SessionID, err)
	}
	return nil
}

// GetSummary returns the summary for a session, or (nil, nil) if none exists.
func (s *Store) GetSummary(ctx context.Context, sessionID uuid.UUID) (*model.Summary, error) {
	var text string
	var provider, modelStr sql.NullString
	var createdAt string
	err := s.db.QueryRowContext(ctx, `SELECT text, provider, model, created_at FROM summaries WHERE session_id = ?`, sessionID.String()).
		Scan(&text, &provider, &modelStr, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: get summary for session %s: %w", sessionID, err)
	}
	ts, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing summary created_at %q: %w", createdAt, err)
	}
	return &model.Summary{SessionID: sessionID, Text: text, Provider: provider.String, Model: modelStr.String, CreatedAt: ts}, nil
}

// AddAnnotation appends a note to a session's ordered annotation list.
func (s *Store) AddAnnotation(ctx context.Context, annotation model.Annotation) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO annotations (id, session_id, text, created_at) VALUES (?, ?, ?, ?)`,
		annotation.ID.String(), annotation.SessionID.String(), annotation.Text, annotation.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("store: add annotation to session %s: %w", annotation.SessionID, err)
	}
	return nil
}

// GetAnnotations returns a session's annotations in creation order.
func (s *Store) GetAnnotations(ctx context.Context, sessionID uuid.UUID) ([]model.Annotation, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, session_id, text, created_at FROM annotations WHERE session_id = ? ORDER BY created_at`, sessionID.String())
	if err != nil {
		return nil, fmt.Errorf("store: get annotations for session %s: %w", sessionID, err)
	}
	defer rows.Close()

	var out []model.Annotation
	for rows.Next() {
		var idStr, sidStr, text, createdAt string
		if err := rows.Scan(&idStr, &sidStr, &text, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning annotation row: %w", err)
		}
		id, err := uuid.Parse(idStr)
		if err != nil {
			return nil, fmt.Errorf("parsing annotation id %q: %w", idStr, err)
		}
		sid, err := uuid.Parse(sidStr)
		if err != nil {
			return nil, fmt.Errorf("parsing annotation session id %q: %w", sidStr, err)
		}
		ts, err := time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing annotation created_at %q: %w", createdAt, err)
		}
		out = append(out, model.Annotation{ID: id, SessionID: sid, Text: text, CreatedAt: ts})
	}
	return out, rows.Err()
}
