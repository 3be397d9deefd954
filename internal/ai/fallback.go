package ai

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/taskflow-ai/taskflow/internal/agenttools"
)

const helpText = "I can help you manage your tasks! Try saying:\n" +
	"- 'Add a task to buy groceries'\n" +
	"- 'Show my tasks'\n" +
	"- 'Complete task 5'\n" +
	"- 'Delete task 3'"

// Matcher is the deterministic keyword strategy at the end of the fallback
// chain. It classifies the lowercased message in a fixed priority order and
// calls the toolkit directly. It never fails: with no keyword match it
// returns the help text, so a turn always gets an answer.
//
// Keyword extraction is a plain heuristic and is intentionally kept so: a
// title containing the word "delete" will be classified as a delete request.
type Matcher struct {
	tools *agenttools.Toolkit
}

func NewMatcher(tools *agenttools.Toolkit) *Matcher {
	return &Matcher{tools: tools}
}

func (m *Matcher) Name() string { return "fallback" }

func (m *Matcher) Respond(ctx context.Context, ownerID, message string, _ []Message) (string, error) {
	return m.Reply(ctx, ownerID, message), nil
}

// Reply classifies message and produces the response text. Fully
// reproducible from its input: no model, no randomness, no learning.
func (m *Matcher) Reply(ctx context.Context, ownerID, message string) string {
	lower := strings.ToLower(message)

	switch {
	case containsAny(lower, "add", "create", "new task"):
		return m.addTask(ctx, ownerID, message)
	case containsAny(lower, "list", "show", "my tasks", "what tasks"):
		return m.listTasks(ctx, ownerID)
	case containsAny(lower, "complete", "done", "finish"):
		return m.completeTask(ctx, ownerID, message)
	case containsAny(lower, "delete", "remove"):
		return m.deleteTask(ctx, ownerID, message)
	default:
		return helpText
	}
}

func (m *Matcher) addTask(ctx context.Context, ownerID, message string) string {
	title := extractTitle(message)
	if title == "" {
		return "What would you like to name the task?"
	}
	res := m.tools.AddTask(ctx, ownerID, title, "")
	if !res.OK() {
		return fmt.Sprintf("Sorry, I couldn't create the task: %s", res.ErrText())
	}
	task := res.Payload().(agenttools.TaskPayload)
	return fmt.Sprintf("✅ Task created: '%s' (ID: %d)", task.Title, task.TaskID)
}

func (m *Matcher) listTasks(ctx context.Context, ownerID string) string {
	res := m.tools.ListTasks(ctx, ownerID, "")
	if !res.OK() {
		return fmt.Sprintf("Sorry, I couldn't retrieve your tasks: %s", res.ErrText())
	}
	list := res.Payload().(agenttools.TaskListPayload)
	if len(list.Tasks) == 0 {
		return "You don't have any tasks yet. Would you like to create one?"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "You have %d task(s):\n\n", len(list.Tasks))
	for _, task := range list.Tasks {
		icon := "⏳"
		if task.Status == agenttools.StatusCompleted {
			icon = "✅"
		}
		fmt.Fprintf(&b, "%s %d: %s\n", icon, task.TaskID, task.Title)
	}
	return b.String()
}

func (m *Matcher) completeTask(ctx context.Context, ownerID, message string) string {
	taskID, ok := firstNumericToken(message)
	if !ok {
		return "Which task would you like to complete? Please provide the task ID."
	}
	res := m.tools.CompleteTask(ctx, ownerID, taskID)
	if !res.OK() {
		return fmt.Sprintf("Sorry, I couldn't complete the task: %s", res.ErrText())
	}
	task := res.Payload().(agenttools.TaskPayload)
	return fmt.Sprintf("✅ Task completed: '%s'", task.Title)
}

func (m *Matcher) deleteTask(ctx context.Context, ownerID, message string) string {
	taskID, ok := firstNumericToken(message)
	if !ok {
		return "Which task would you like to delete? Please provide the task ID."
	}
	res := m.tools.DeleteTask(ctx, ownerID, taskID)
	if !res.OK() {
		return fmt.Sprintf("Sorry, I couldn't delete the task: %s", res.ErrText())
	}
	return fmt.Sprintf("🗑️ Task %d deleted successfully", taskID)
}

// extractTitle strips the add keywords from the raw message and trims the
// remainder.
func extractTitle(message string) string {
	title := strings.ReplaceAll(message, "add", "")
	title = strings.ReplaceAll(title, "create", "")
	title = strings.ReplaceAll(title, "new task", "")
	return strings.TrimSpace(title)
}

// firstNumericToken scans whitespace-separated tokens for the first one made
// entirely of digits.
func firstNumericToken(message string) (int64, bool) {
	for _, token := range strings.Fields(message) {
		if !allDigits(token) {
			continue
		}
		id, err := strconv.ParseInt(token, 10, 64)
		if err != nil {
			continue
		}
		return id, true
	}
	return 0, false
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func containsAny(haystack string, needles ...string) bool {
	for _, needle := range needles {
		if strings.Contains(haystack, needle) {
			return true
		}
	}
	return false
}
