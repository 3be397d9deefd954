package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound covers both a genuinely absent row and a row owned by someone
// else. The two cases are deliberately indistinguishable so that callers
// cannot probe for the existence of another owner's data.
var ErrNotFound = errors.New("not found")

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

type Task struct {
	ID          int64     `json:"id"`
	OwnerID     string    `json:"owner_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Completed   bool      `json:"completed"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type TaskUpdate struct {
	Title       *string
	Description *string
}

func (s *Store) CreateTask(ctx context.Context, ownerID, title, description string) (Task, error) {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `INSERT INTO tasks (owner_id, title, description, completed, created_at, updated_at) VALUES (?, ?, ?, 0, ?, ?)`,
		ownerID, title, nullString(description), now.Format(time.RFC3339Nano), now.Format(time.RFC3339Nano))
	if err != nil {
		return Task{}, fmt.Errorf("insert task: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Task{}, fmt.Errorf("task id: %w", err)
	}
	return Task{ID: id, OwnerID: ownerID, Title: title, Description: description, CreatedAt: now, UpdatedAt: now}, nil
}

// GetTask fetches a task by id, scoped to ownerID. Ownership is part of the
// lookup itself: a foreign task behaves exactly like a missing one.
func (s *Store) GetTask(ctx context.Context, ownerID string, id int64) (Task, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, owner_id, title, description, completed, created_at, updated_at FROM tasks WHERE id = ? AND owner_id = ?`, id, ownerID)
	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Task{}, ErrNotFound
	}
	if err != nil {
		return Task{}, fmt.Errorf("get task: %w", err)
	}
	return task, nil
}

// ListTasks returns all of ownerID's tasks. completed filters by completion
// state when non-nil.
func (s *Store) ListTasks(ctx context.Context, ownerID string, completed *bool) ([]Task, error) {
	query := `SELECT id, owner_id, title, description, completed, created_at, updated_at FROM tasks WHERE owner_id = ?`
	args := []any{ownerID}
	if completed != nil {
		query += ` AND completed = ?`
		args = append(args, boolToInt(*completed))
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var out []Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		out = append(out, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}
	return out, nil
}

// UpdateTask applies the supplied fields to an owned task inside a
// transaction and touches updated_at.
func (s *Store) UpdateTask(ctx context.Context, ownerID string, id int64, update TaskUpdate) (Task, error) {
	return s.mutateTask(ctx, ownerID, id, func(task *Task) {
		if update.Title != nil {
			task.Title = *update.Title
		}
		if update.Description != nil {
			task.Description = *update.Description
		}
	})
}

// CompleteTask marks an owned task completed. Completing an already
// completed task is a no-op that still succeeds with the same final state.
func (s *Store) CompleteTask(ctx context.Context, ownerID string, id int64) (Task, error) {
	return s.mutateTask(ctx, ownerID, id, func(task *Task) {
		task.Completed = true
	})
}

func (s *Store) DeleteTask(ctx context.Context, ownerID string, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) mutateTask(ctx context.Context, ownerID string, id int64, apply func(*Task)) (Task, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Task{}, fmt.Errorf("begin task tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx, `SELECT id, owner_id, title, description, completed, created_at, updated_at FROM tasks WHERE id = ? AND owner_id = ?`, id, ownerID)
	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Task{}, ErrNotFound
	}
	if err != nil {
		return Task{}, fmt.Errorf("fetch task: %w", err)
	}

	apply(&task)
	task.UpdatedAt = time.Now().UTC()

	_, err = tx.ExecContext(ctx, `UPDATE tasks SET title = ?, description = ?, completed = ?, updated_at = ? WHERE id = ? AND owner_id = ?`,
		task.Title, nullString(task.Description), boolToInt(task.Completed), task.UpdatedAt.Format(time.RFC3339Nano), id, ownerID)
	if err != nil {
		return Task{}, fmt.Errorf("update task: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return Task{}, fmt.Errorf("commit task tx: %w", err)
	}
	return task, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (Task, error) {
	var task Task
	var description sql.NullString
	var completed int
	var createdAtStr, updatedAtStr string
	if err := row.Scan(&task.ID, &task.OwnerID, &task.Title, &description, &completed, &createdAtStr, &updatedAtStr); err != nil {
		return Task{}, err
	}
	task.Description = description.String
	task.Completed = completed != 0
	task.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAtStr)
	task.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAtStr)
	return task, nil
}

func nullString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
