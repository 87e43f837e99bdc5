package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lorehq/lore/internal/model"
)

// UpsertMachine inserts or renames a machine record.
func (s *Store) UpsertMachine(ctx context.Context, m model.Machine) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO machines (id, name, created_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name`,
		m.ID.String(), m.Name, m.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("store: upsert machine %s: %w", m.ID, err)
	}
	return nil
}

// GetMachine looks up a machine by id. Returns (nil, nil) if unknown.
func (s *Store) GetMachine(ctx context.Context, id uuid.UUID) (*model.Machine, error) {
	var name, createdAt string
	err := s.db.QueryRowContext(ctx, `SELECT name, created_at FROM machines WHERE id = ?`, id.String()).Scan(&name, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: get machine %s: %w", id, err)
	}
	ts, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing machine created_at %q: %w", createdAt, err)
	}
	return &model.Machine{ID: id, Name: name, CreatedAt: ts}, nil
}

// ListMachines returns every known machine.
func (s *Store) ListMachines(ctx context.Context) ([]model.Machine, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, created_at FROM machines ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("store: list machines: %w", err)
	}
	defer rows.Close()

	var out []model.Machine
	for rows.Next() {
		var idStr, name, createdAt string
		if err := rows.Scan(&idStr, &name, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning machine row: %w", err)
		}
		id, err := uuid.Parse(idStr)
		if err != nil {
			return nil, fmt.Errorf("parsing machine id %q: %w", idStr, err)
		}
		ts, err := time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing machine created_at %q: %w", createdAt, err)
		}
		out = append(out, model.Machine{ID: id, Name: name, CreatedAt: ts})
	}
	return out, rows.Err()
}
