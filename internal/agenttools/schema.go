package agenttools

import (
	"context"
	"encoding/json"
)

// Definition is the provider-neutral description of one tool. Each adapter
// converts it to its provider's function-calling wire format.
type Definition struct {
	Name        string
	Description string
	Parameters  ParameterSchema
}

type ParameterSchema struct {
	Properties map[string]Property
	Required   []string
}

type Property struct {
	Type        string
	Description string
	Enum        []string
}

// JSONMap renders the schema as a generic JSON-schema object map, the form
// both provider SDKs accept.
func (p ParameterSchema) JSONMap() map[string]any {
	properties := make(map[string]any, len(p.Properties))
	for name, prop := range p.Properties {
		entry := map[string]any{"type": prop.Type}
		if prop.Description != "" {
			entry["description"] = prop.Description
		}
		if len(prop.Enum) > 0 {
			entry["enum"] = prop.Enum
		}
		properties[name] = entry
	}
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(p.Required) > 0 {
		schema["required"] = p.Required
	}
	return schema
}

// Definitions lists the five task tools offered to providers.
func Definitions() []Definition {
	return []Definition{
		{
			Name:        "add_task",
			Description: "Create a new task for the user",
			Parameters: ParameterSchema{
				Properties: map[string]Property{
					"title":       {Type: "string", Description: "Task title"},
					"description": {Type: "string", Description: "Optional task description"},
				},
				Required: []string{"title"},
			},
		},
		{
			Name:        "list_tasks",
			Description: "List all tasks for the user, optionally filtered by status",
			Parameters: ParameterSchema{
				Properties: map[string]Property{
					"status": {Type: "string", Description: "Optional filter - pending or completed", Enum: []string{StatusPending, StatusCompleted}},
				},
			},
		},
		{
			Name:        "update_task",
			Description: "Update task title and/or description",
			Parameters: ParameterSchema{
				Properties: map[string]Property{
					"task_id":     {Type: "integer", Description: "Task ID to update"},
					"title":       {Type: "string", Description: "New title"},
					"description": {Type: "string", Description: "New description"},
				},
				Required: []string{"task_id"},
			},
		},
		{
			Name:        "complete_task",
			Description: "Mark a task as completed",
			Parameters: ParameterSchema{
				Properties: map[string]Property{
					"task_id": {Type: "integer", Description: "Task ID to complete"},
				},
				Required: []string{"task_id"},
			},
		},
		{
			Name:        "delete_task",
			Description: "Delete a task",
			Parameters: ParameterSchema{
				Properties: map[string]Property{
					"task_id": {Type: "integer", Description: "Task ID to delete"},
				},
				Required: []string{"task_id"},
			},
		},
	}
}

// callArgs covers the union of arguments across the five tools. A user_id
// field is deliberately absent: ownership always comes from the verified
// identity, never from provider-supplied arguments.
type callArgs struct {
	TaskID      int64   `json:"task_id"`
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Status      string  `json:"status"`
}

// Execute runs one provider-requested tool invocation on behalf of ownerID.
func (t *Toolkit) Execute(ctx context.Context, ownerID, name string, rawArgs json.RawMessage) Result {
	var args callArgs
	if len(rawArgs) > 0 {
		if err := json.Unmarshal(rawArgs, &args); err != nil {
			return Errorf("invalid arguments for %s: %v", name, err)
		}
	}
	switch name {
	case "add_task":
		title := ""
		if args.Title != nil {
			title = *args.Title
		}
		description := ""
		if args.Description != nil {
			description = *args.Description
		}
		return t.AddTask(ctx, ownerID, title, description)
	case "list_tasks":
		return t.ListTasks(ctx, ownerID, args.Status)
	case "update_task":
		return t.UpdateTask(ctx, ownerID, args.TaskID, args.Title, args.Description)
	case "complete_task":
		return t.CompleteTask(ctx, ownerID, args.TaskID)
	case "delete_task":
		return t.DeleteTask(ctx, ownerID, args.TaskID)
	default:
		return Errorf("Unknown tool: %s", name)
	}
}
