package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"bindrelay/internal/core"
)

var ErrTaskNotFound = errors.New("task not found")

// InsertTask persists a new binding task.
func (s *Store) InsertTask(ctx context.Context, task *core.BindingTask) error {
	now := time.Now().UTC()
	task.CreatedAt = now
	task.UpdatedAt = now
	kinds, err := json.Marshal(task.DataKinds)
	if err != nil {
		return fmt.Errorf("encode data kinds: %w", err)
	}
	props, err := json.Marshal(task.AssetProperties)
	if err != nil {
		return fmt.Errorf("encode asset properties: %w", err)
	}
	_, err = s.DB.ExecContext(ctx, `
		INSERT INTO binding_tasks (id, producer_id, binding_id, asset_id, contract_id,
			interval_seconds, expiry, data_kinds, asset_properties, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, task.ID, task.ProducerID, task.BindingID, task.AssetID, task.ContractID,
		task.Interval, task.Expiry.UTC().Format(time.RFC3339Nano), string(kinds), string(props),
		task.CreatedAt.Format(time.RFC3339Nano), task.UpdatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

// GetTask loads one binding task by id.
func (s *Store) GetTask(ctx context.Context, id string) (*core.BindingTask, error) {
	row := s.DB.QueryRowContext(ctx, `
		SELECT id, producer_id, binding_id, asset_id, contract_id,
			interval_seconds, expiry, data_kinds, asset_properties, created_at, updated_at
		FROM binding_tasks WHERE id = ?
	`, id)
	task, err := scanTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	return task, nil
}

// ListTasks returns every persisted binding task, oldest first so the
// reconciler schedules long-standing tasks before fresh ones.
func (s *Store) ListTasks(ctx context.Context) ([]*core.BindingTask, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, producer_id, binding_id, asset_id, contract_id,
			interval_seconds, expiry, data_kinds, asset_properties, created_at, updated_at
		FROM binding_tasks
		ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()
	var tasks []*core.BindingTask
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tasks, nil
}

// DeleteTask removes a task definition from the store. A live timer already
// scheduled for it keeps firing until its captured expiry; there is no
// external cancel.
func (s *Store) DeleteTask(ctx context.Context, id string) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM binding_tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrTaskNotFound
	}
	return nil
}

func scanTask(scanner interface {
	Scan(dest ...any) error
}) (*core.BindingTask, error) {
	var (
		id, producerID, bindingID, assetID, contractID string
		interval                                       int
		expiry, kinds, props, createdAt, updatedAt     string
	)
	if err := scanner.Scan(&id, &producerID, &bindingID, &assetID, &contractID,
		&interval, &expiry, &kinds, &props, &createdAt, &updatedAt); err != nil {
		return nil, fmt.Errorf("scan task: %w", err)
	}
	task := &core.BindingTask{
		ID:         id,
		ProducerID: producerID,
		BindingID:  bindingID,
		AssetID:    assetID,
		ContractID: contractID,
		Interval:   interval,
	}
	// A corrupt expiry must surface, not round-trip as the zero time: the
	// scheduler would read that as instantly expired.
	expiryTime, err := time.Parse(time.RFC3339Nano, expiry)
	if err != nil {
		return nil, fmt.Errorf("parse expiry: %w", err)
	}
	task.Expiry = expiryTime
	if err := json.Unmarshal([]byte(kinds), &task.DataKinds); err != nil {
		return nil, fmt.Errorf("decode data kinds: %w", err)
	}
	if err := json.Unmarshal([]byte(props), &task.AssetProperties); err != nil {
		return nil, fmt.Errorf("decode asset properties: %w", err)
	}
	if task.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if task.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	return task, nil
}
