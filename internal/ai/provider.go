// Package ai holds the response-generation strategies: adapters that speak
// each upstream provider's function-calling wire format, and the
// deterministic keyword matcher used when no provider is available.
package ai

import "context"

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Provider generates one assistant response for a chat turn. The owner id is
// the verified identity; adapters must use it for every tool execution and
// ignore any owner-like field a provider echoes back.
type Provider interface {
	Name() string
	Respond(ctx context.Context, ownerID, message string, history []Message) (string, error)
}

// Config is the explicit handle for one provider client. Constructed once at
// startup and passed in; there are no package-level singletons.
type Config struct {
	APIKey    string
	Model     string
	MaxTokens int

	// BaseURL overrides the provider endpoint. Used by tests.
	BaseURL string
}

const systemPrompt = `You are TaskFlow AI, a helpful task management assistant.

Your role is to help users manage their tasks through natural conversation.

Available tools:
- add_task: Create new tasks
- list_tasks: Show all tasks or filter by status (pending/completed)
- update_task: Modify task title or description
- complete_task: Mark tasks as done
- delete_task: Remove tasks

Guidelines:
1. Always confirm actions after using tools
2. Show task IDs and titles in confirmations
3. Be friendly and conversational
4. Handle errors gracefully with helpful messages
5. Suggest next actions when appropriate

When users ask to add tasks, extract the title from their message.
When users ask about their tasks, use list_tasks.
When users want to complete or delete tasks, ask for the task ID if not provided.`
