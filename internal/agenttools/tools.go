package agenttools

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/taskflow-ai/taskflow/internal/state"
)

const (
	StatusPending   = "pending"
	StatusCompleted = "completed"

	maxTitleLen       = 200
	maxDescriptionLen = 1000
)

// Toolkit runs task operations for authenticated owners. Each operation is
// stateless, atomic at the store level, and reports absent and foreign tasks
// with the identical "not found" error so ids cannot be probed.
type Toolkit struct {
	store *state.Store
}

func NewToolkit(store *state.Store) *Toolkit {
	return &Toolkit{store: store}
}

func (t *Toolkit) AddTask(ctx context.Context, ownerID, title, description string) Result {
	if strings.TrimSpace(title) == "" {
		return Errorf("title is required")
	}
	if bad := checkLengths(&title, &description); bad != nil {
		return *bad
	}
	task, err := t.store.CreateTask(ctx, ownerID, title, description)
	if err != nil {
		return Errorf("Failed to create task: %v", err)
	}
	return Success(taskPayload(task))
}

// ListTasks returns the owner's tasks, optionally filtered by status
// ("pending" or "completed"; anything else means no filter).
func (t *Toolkit) ListTasks(ctx context.Context, ownerID, status string) Result {
	var completed *bool
	switch status {
	case StatusPending:
		v := false
		completed = &v
	case StatusCompleted:
		v := true
		completed = &v
	}
	tasks, err := t.store.ListTasks(ctx, ownerID, completed)
	if err != nil {
		return Errorf("Failed to list tasks: %v", err)
	}
	payload := TaskListPayload{Tasks: []TaskPayload{}}
	for _, task := range tasks {
		payload.Tasks = append(payload.Tasks, taskPayload(task))
	}
	return Success(payload)
}

func (t *Toolkit) UpdateTask(ctx context.Context, ownerID string, taskID int64, title, description *string) Result {
	if title != nil && strings.TrimSpace(*title) == "" {
		return Errorf("title is required")
	}
	if bad := checkLengths(title, description); bad != nil {
		return *bad
	}
	task, err := t.store.UpdateTask(ctx, ownerID, taskID, state.TaskUpdate{Title: title, Description: description})
	if errors.Is(err, state.ErrNotFound) {
		return notFound(taskID)
	}
	if err != nil {
		return Errorf("Failed to update task: %v", err)
	}
	return Success(taskPayload(task))
}

// CompleteTask marks a task done. Completing an already completed task is a
// no-op that still succeeds with the same final state.
func (t *Toolkit) CompleteTask(ctx context.Context, ownerID string, taskID int64) Result {
	task, err := t.store.CompleteTask(ctx, ownerID, taskID)
	if errors.Is(err, state.ErrNotFound) {
		return notFound(taskID)
	}
	if err != nil {
		return Errorf("Failed to complete task: %v", err)
	}
	return Success(taskPayload(task))
}

func (t *Toolkit) DeleteTask(ctx context.Context, ownerID string, taskID int64) Result {
	err := t.store.DeleteTask(ctx, ownerID, taskID)
	if errors.Is(err, state.ErrNotFound) {
		return notFound(taskID)
	}
	if err != nil {
		return Errorf("Failed to delete task: %v", err)
	}
	return Success(DeletePayload{
		Success: true,
		Message: deleteMessage(taskID),
		TaskID:  taskID,
	})
}

// checkLengths enforces the field bounds shared by every write path. Nil
// fields are skipped so partial updates validate only what they touch.
func checkLengths(title, description *string) *Result {
	if title != nil && len(*title) > maxTitleLen {
		r := Errorf("title must be at most %d characters", maxTitleLen)
		return &r
	}
	if description != nil && len(*description) > maxDescriptionLen {
		r := Errorf("description must be at most %d characters", maxDescriptionLen)
		return &r
	}
	return nil
}

func notFound(taskID int64) Result {
	return Errorf("Task %d not found", taskID)
}

func deleteMessage(taskID int64) string {
	return "Task " + strconv.FormatInt(taskID, 10) + " deleted successfully"
}

func taskPayload(task state.Task) TaskPayload {
	status := StatusPending
	if task.Completed {
		status = StatusCompleted
	}
	return TaskPayload{
		TaskID:      task.ID,
		Status:      status,
		Title:       task.Title,
		Description: task.Description,
		CreatedAt:   task.CreatedAt.Format(time.RFC3339Nano),
		UpdatedAt:   task.UpdatedAt.Format(time.RFC3339Nano),
	}
}
