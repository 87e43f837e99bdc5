package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lorehq/lore/internal/model"
)

// GetUnsyncedSessions returns sessions with no sync_status row, or whose
// server_time bookkeeping predates their own last mutation — i.e. every
// session the sync engine still needs to push.
func (s *Store) GetUnsyncedSessions(ctx context.Context) ([]model.Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+sessionColumns+` FROM sessions s
		WHERE NOT EXISTS (SELECT 1 FROM sync_status ss WHERE ss.session_id = s.id)
		ORDER BY s.started_at`)
	if err != nil {
		return nil, fmt.Errorf("store: get unsynced sessions: %w", err)
	}
	defer rows.Close()
	return scanSessions(rows)
}

// MarkSessionsSynced records that the given sessions are synced as of serverTime.
func (s *Store) MarkSessionsSynced(ctx context.Context, ids []uuid.UUID, serverTime time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: mark sessions synced: begin tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	st := serverTime.UTC().Format(time.RFC3339Nano)
	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO sync_status (session_id, server_time, synced_at) VALUES (?, ?, ?)
			ON CONFLICT(session_id) DO UPDATE SET server_time = excluded.server_time, synced_at = excluded.synced_at`,
			id.String(), st, now); err != nil {
			return fmt.Errorf("store: mark session %s synced: %w", id, err)
		}
	}
	return tx.Commit()
}

// ClearSyncStatus wipes all sync bookkeeping, forcing every session to be
// re-evaluated by the next push/pull cycle.
func (s *Store) ClearSyncStatus(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sync_status`)
	if err != nil {
		return fmt.Errorf("store: clear sync status: %w", err)
	}
	return nil
}

// ClearSyncStatusForSessions wipes sync bookkeeping for specific sessions.
func (s *Store) ClearSyncStatusForSessions(ctx context.Context, ids []uuid.UUID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: clear sync status for sessions: begin tx: %w", err)
	}
	defer tx.Rollback()
	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, `DELETE FROM sync_status WHERE session_id = ?`, id.String()); err != nil {
			return fmt.Errorf("store: clear sync status for session %s: %w", id, err)
		}
	}
	return tx.Commit()
}

// LastSyncTime returns the most recent server_time recorded in sync
// bookkeeping, or nil if no session has ever been synced.
func (s *Store) LastSyncTime(ctx context.Context) (*time.Time, error) {
	var serverTime string
	err := s.db.QueryRowContext(ctx, `SELECT server_time FROM sync_status ORDER BY server_time DESC LIMIT 1`).Scan(&serverTime)
	if err != nil {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, serverTime)
	if err != nil {
		return nil, fmt.Errorf("store: parsing last sync time %q: %w", serverTime, err)
	}
	return &t, nil
}

// IsSyncedAsOf reports whether a session's sync bookkeeping records a server
// time at or after t.
func (s *Store) IsSyncedAsOf(ctx context.Context, sessionID uuid.UUID, t time.Time) (bool, error) {
	var serverTime string
	err := s.db.QueryRowContext(ctx, `SELECT server_time FROM sync_status WHERE session_id = ?`, sessionID.String()).Scan(&serverTime)
	if err != nil {
		return false, nil
	}
	st, err := time.Parse(time.RFC3339Nano, serverTime)
	if err != nil {
		return false, fmt.Errorf("store: parsing sync server_time %q: %w", serverTime, err)
	}
	return !st.Before(t), nil
}
