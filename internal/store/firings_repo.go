package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"bindrelay/internal/core"
)

// InsertFiring appends one firing record and prunes history beyond the
// configured retention for that task.
func (s *Store) InsertFiring(ctx context.Context, firing *core.Firing) error {
	firing.CreatedAt = time.Now().UTC()
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO firings (id, task_id, fired_at, status, relayed_count, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, firing.ID, firing.TaskID, firing.FiredAt.UTC().Format(time.RFC3339Nano), firing.Status,
		firing.RelayedCount, nullableString(firing.Error), firing.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("insert firing: %w", err)
	}
	if s.FiringRetention > 0 {
		if err := s.pruneFirings(ctx, firing.TaskID); err != nil {
			return fmt.Errorf("prune firings: %w", err)
		}
	}
	return nil
}

// ListFirings returns the newest firings of a task, most recent first.
func (s *Store) ListFirings(ctx context.Context, taskID string, limit int) ([]*core.Firing, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, task_id, fired_at, status, relayed_count, error, created_at
		FROM firings
		WHERE task_id = ?
		ORDER BY fired_at DESC
		LIMIT ?
	`, taskID, limit)
	if err != nil {
		return nil, fmt.Errorf("query firings: %w", err)
	}
	defer rows.Close()
	var firings []*core.Firing
	for rows.Next() {
		firing, err := scanFiring(rows)
		if err != nil {
			return nil, err
		}
		firings = append(firings, firing)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return firings, nil
}

func (s *Store) pruneFirings(ctx context.Context, taskID string) error {
	_, err := s.DB.ExecContext(ctx, `
		DELETE FROM firings
		WHERE task_id = ? AND id NOT IN (
			SELECT id FROM firings WHERE task_id = ? ORDER BY fired_at DESC LIMIT ?
		)
	`, taskID, taskID, s.FiringRetention)
	return err
}

func scanFiring(scanner interface {
	Scan(dest ...any) error
}) (*core.Firing, error) {
	var (
		id, taskID, firedAt, status, createdAt string
		relayedCount                           int
		errText                                sql.NullString
	)
	if err := scanner.Scan(&id, &taskID, &firedAt, &status, &relayedCount, &errText, &createdAt); err != nil {
		return nil, fmt.Errorf("scan firing: %w", err)
	}
	firing := &core.Firing{
		ID:           id,
		TaskID:       taskID,
		Status:       core.FiringStatus(status),
		RelayedCount: relayedCount,
	}
	if t, err := time.Parse(time.RFC3339Nano, firedAt); err == nil {
		firing.FiredAt = t
	}
	if errText.Valid {
		firing.Error = &errText.String
	}
	if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		firing.CreatedAt = t
	}
	return firing, nil
}

func nullableString(value *string) any {
	if value == nil {
		return nil
	}
	return *value
}
