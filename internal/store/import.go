package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lorehq/lore/internal/model"
)

// ImportSessionWithMessages upserts a session and inserts all of its
// messages idempotently in a single transaction, optionally recording sync
// bookkeeping. Used by pull so a partially-applied remote session is never
// visible to other readers.
func (s *Store) ImportSessionWithMessages(ctx context.Context, sess model.Session, messages []model.Message, serverTime *time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: import session %s: begin tx: %w", sess.ID, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO sessions (`+sessionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			ended_at = excluded.ended_at,
			message_count = excluded.message_count
	`,
		sess.ID.String(), sess.Tool, nullString(sess.ToolVersion),
		sess.StartedAt.UTC().Format(time.RFC3339Nano), nullTime(sess.EndedAt),
		nullString(sess.Model), sess.WorkingDirectory, nullString(sess.GitBranch),
		nullString(sess.SourcePath), sess.MessageCount, nullUUID(sess.MachineID),
	); err != nil {
		return fmt.Errorf("store: import session %s: upsert: %w", sess.ID, err)
	}

	for _, msg := range messages {
		contentJSON, err := json.Marshal(msg.Content)
		if err != nil {
			return fmt.Errorf("store: import session %s: marshal message %s: %w", sess.ID, msg.ID, err)
		}
		res, err := tx.ExecContext(ctx, `
			INSERT INTO messages (`+messageColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO NOTHING`,
			msg.ID.String(), msg.SessionID.String(), nullUUIDPtr(msg.ParentID), msg.Index,
			msg.Timestamp.UTC().Format(time.RFC3339Nano), string(msg.Role), string(contentJSON),
			nullString(msg.Model), nullString(msg.GitBranch), nullString(msg.CWD),
		)
		if err != nil {
			return fmt.Errorf("store: import session %s: insert message %s: %w", sess.ID, msg.ID, err)
		}
		if inserted, _ := res.RowsAffected(); inserted == 0 {
			continue
		}
		if text := msg.Content.ExtractText(); text != "" {
			if _, err := tx.ExecContext(ctx, `INSERT INTO messages_fts (message_id, text_content) VALUES (?, ?)`, msg.ID.String(), text); err != nil {
				return fmt.Errorf("store: import session %s: index message %s: %w", sess.ID, msg.ID, err)
			}
		}
	}

	if serverTime != nil {
		now := time.Now().UTC().Format(time.RFC3339Nano)
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO sync_status (session_id, server_time, synced_at) VALUES (?, ?, ?)
			ON CONFLICT(session_id) DO UPDATE SET server_time = excluded.server_time, synced_at = excluded.synced_at
		`, sess.ID.String(), serverTime.UTC().Format(time.RFC3339Nano), now); err != nil {
			return fmt.Errorf("store: import session %s: record sync status: %w", sess.ID, err)
		}
	}

	return tx.Commit()
}
