package state_test

import (
	"context"
	"errors"
	"testing"

	"github.com/taskflow-ai/taskflow/internal/state"
	"github.com/taskflow-ai/taskflow/internal/testutil"
)

func TestTaskLifecycle(t *testing.T) {
	db, closeFn := testutil.OpenTestDB(t)
	defer closeFn()

	store := state.NewStore(db)
	ctx := context.Background()

	task, err := store.CreateTask(ctx, "u1", "buy milk", "from the corner shop")
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if task.ID == 0 {
		t.Fatalf("expected assigned task id")
	}
	if task.Completed {
		t.Fatalf("new task should be pending")
	}

	newTitle := "buy oat milk"
	updated, err := store.UpdateTask(ctx, "u1", task.ID, state.TaskUpdate{Title: &newTitle})
	if err != nil {
		t.Fatalf("update task: %v", err)
	}
	if updated.Title != newTitle {
		t.Fatalf("title = %q, want %q", updated.Title, newTitle)
	}
	if updated.Description != "from the corner shop" {
		t.Fatalf("description should be untouched, got %q", updated.Description)
	}
	if !updated.UpdatedAt.After(task.UpdatedAt) && !updated.UpdatedAt.Equal(task.UpdatedAt) {
		t.Fatalf("updated_at went backwards")
	}

	completed, err := store.CompleteTask(ctx, "u1", task.ID)
	if err != nil {
		t.Fatalf("complete task: %v", err)
	}
	if !completed.Completed {
		t.Fatalf("task should be completed")
	}

	// Completing again is a no-op that still succeeds.
	again, err := store.CompleteTask(ctx, "u1", task.ID)
	if err != nil {
		t.Fatalf("complete task twice: %v", err)
	}
	if !again.Completed {
		t.Fatalf("task should stay completed")
	}

	if err := store.DeleteTask(ctx, "u1", task.ID); err != nil {
		t.Fatalf("delete task: %v", err)
	}
	if _, err := store.GetTask(ctx, "u1", task.ID); !errors.Is(err, state.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestListTasksFilter(t *testing.T) {
	db, closeFn := testutil.OpenTestDB(t)
	defer closeFn()

	store := state.NewStore(db)
	ctx := context.Background()

	a, err := store.CreateTask(ctx, "u1", "one", "")
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if _, err := store.CreateTask(ctx, "u1", "two", ""); err != nil {
		t.Fatalf("create task: %v", err)
	}
	if _, err := store.CompleteTask(ctx, "u1", a.ID); err != nil {
		t.Fatalf("complete task: %v", err)
	}

	all, err := store.ListTasks(ctx, "u1", nil)
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("len(all) = %d, want 2", len(all))
	}

	done := true
	completed, err := store.ListTasks(ctx, "u1", &done)
	if err != nil {
		t.Fatalf("list completed: %v", err)
	}
	if len(completed) != 1 || completed[0].ID != a.ID {
		t.Fatalf("expected only task %d completed, got %+v", a.ID, completed)
	}

	pending := false
	open, err := store.ListTasks(ctx, "u1", &pending)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(open) != 1 || open[0].Title != "two" {
		t.Fatalf("expected only pending task 'two', got %+v", open)
	}
}

func TestOwnerIsolation(t *testing.T) {
	db, closeFn := testutil.OpenTestDB(t)
	defer closeFn()

	store := state.NewStore(db)
	ctx := context.Background()

	task, err := store.CreateTask(ctx, "alice", "private", "")
	if err != nil {
		t.Fatalf("create task: %v", err)
	}

	// Every cross-owner access fails with the same error as a missing id.
	if _, err := store.GetTask(ctx, "bob", task.ID); !errors.Is(err, state.ErrNotFound) {
		t.Fatalf("get: expected ErrNotFound, got %v", err)
	}
	title := "stolen"
	if _, err := store.UpdateTask(ctx, "bob", task.ID, state.TaskUpdate{Title: &title}); !errors.Is(err, state.ErrNotFound) {
		t.Fatalf("update: expected ErrNotFound, got %v", err)
	}
	if _, err := store.CompleteTask(ctx, "bob", task.ID); !errors.Is(err, state.ErrNotFound) {
		t.Fatalf("complete: expected ErrNotFound, got %v", err)
	}
	if err := store.DeleteTask(ctx, "bob", task.ID); !errors.Is(err, state.ErrNotFound) {
		t.Fatalf("delete: expected ErrNotFound, got %v", err)
	}

	// The same error shape appears for a genuinely absent id.
	if _, err := store.GetTask(ctx, "bob", 99999); !errors.Is(err, state.ErrNotFound) {
		t.Fatalf("absent get: expected ErrNotFound, got %v", err)
	}

	// And the owner still sees the task untouched.
	got, err := store.GetTask(ctx, "alice", task.ID)
	if err != nil {
		t.Fatalf("owner get: %v", err)
	}
	if got.Title != "private" || got.Completed {
		t.Fatalf("task mutated through foreign access: %+v", got)
	}
}

func TestConversationsAndMessages(t *testing.T) {
	db, closeFn := testutil.OpenTestDB(t)
	defer closeFn()

	store := state.NewStore(db)
	ctx := context.Background()

	conv, err := store.CreateConversation(ctx, "u1")
	if err != nil {
		t.Fatalf("create conversation: %v", err)
	}

	if _, err := store.GetConversation(ctx, "u2", conv.ID); !errors.Is(err, state.ErrNotFound) {
		t.Fatalf("foreign conversation: expected ErrNotFound, got %v", err)
	}

	if _, err := store.AppendMessage(ctx, conv.ID, state.RoleUser, "hello"); err != nil {
		t.Fatalf("append user message: %v", err)
	}
	if _, err := store.AppendMessage(ctx, conv.ID, state.RoleAssistant, "hi there"); err != nil {
		t.Fatalf("append assistant message: %v", err)
	}

	messages, err := store.ListMessages(ctx, conv.ID)
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("len(messages) = %d, want 2", len(messages))
	}
	if messages[0].Role != state.RoleUser || messages[1].Role != state.RoleAssistant {
		t.Fatalf("messages out of order: %+v", messages)
	}
}
