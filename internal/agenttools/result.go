// Package agenttools exposes the five task operations as uniform,
// ownership-checked tools. Every caller, human or model, mutates task data
// through this layer and gets a tagged Result back instead of an error.
package agenttools

import (
	"encoding/json"
	"fmt"
)

// Result is the tool layer's tagged union: either a success payload or a
// human-readable error reason. Nothing escapes this boundary as a Go error;
// callers branch on the tag.
type Result struct {
	payload any
	errText string
}

func Success(payload any) Result {
	return Result{payload: payload}
}

func Errorf(format string, args ...any) Result {
	return Result{errText: fmt.Sprintf(format, args...)}
}

func (r Result) OK() bool {
	return r.errText == ""
}

func (r Result) Payload() any {
	return r.payload
}

func (r Result) ErrText() string {
	return r.errText
}

// JSON renders the result in the tool wire shape fed back to providers:
// the payload object on success, {"error": reason} on failure.
func (r Result) JSON() string {
	if !r.OK() {
		data, _ := json.Marshal(map[string]string{"error": r.errText})
		return string(data)
	}
	data, err := json.Marshal(r.payload)
	if err != nil {
		fallback, _ := json.Marshal(map[string]string{"error": "failed to encode tool result"})
		return string(fallback)
	}
	return string(data)
}

// TaskPayload is the canonical wire representation of a task.
type TaskPayload struct {
	TaskID      int64  `json:"task_id"`
	Status      string `json:"status"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

type TaskListPayload struct {
	Tasks []TaskPayload `json:"tasks"`
}

type DeletePayload struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	TaskID  int64  `json:"task_id"`
}
