package ai_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/taskflow-ai/taskflow/internal/agenttools"
	"github.com/taskflow-ai/taskflow/internal/ai"
	"github.com/taskflow-ai/taskflow/internal/state"
	"github.com/taskflow-ai/taskflow/internal/testutil"
)

func newAnthropicProvider(t *testing.T, handler http.Handler) (*ai.AnthropicProvider, *agenttools.Toolkit, func()) {
	t.Helper()
	db, closeDB := testutil.OpenTestDB(t)
	upstream := httptest.NewServer(handler)
	tk := agenttools.NewToolkit(state.NewStore(db))
	provider := ai.NewAnthropicProvider(ai.Config{
		APIKey:    "test-key",
		Model:     "claude-3-5-sonnet-latest",
		MaxTokens: 1024,
		BaseURL:   upstream.URL,
	}, tk)
	return provider, tk, func() {
		upstream.Close()
		closeDB()
	}
}

func messageJSON(blocks []map[string]any, stopReason string) []byte {
	payload := map[string]any{
		"id":          "msg_test",
		"type":        "message",
		"role":        "assistant",
		"model":       "claude-3-5-sonnet-latest",
		"content":     blocks,
		"stop_reason": stopReason,
		"usage":       map[string]any{"input_tokens": 1, "output_tokens": 1},
	}
	data, _ := json.Marshal(payload)
	return data
}

func TestAnthropicRespondPlainText(t *testing.T) {
	var requests int
	provider, _, closeFn := newAnthropicProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(messageJSON([]map[string]any{
			{"type": "text", "text": "Hello! What can I do for you?"},
		}, "end_turn"))
	}))
	defer closeFn()

	got, err := provider.Respond(context.Background(), "u1", "hi", nil)
	if err != nil {
		t.Fatalf("respond: %v", err)
	}
	if got != "Hello! What can I do for you?" {
		t.Fatalf("response = %q", got)
	}
	if requests != 1 {
		t.Fatalf("expected a single upstream request, got %d", requests)
	}
}

func TestAnthropicRespondToolRound(t *testing.T) {
	var requests int
	var secondBody []byte
	provider, tk, closeFn := newAnthropicProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.Header().Set("Content-Type", "application/json")
		if requests == 1 {
			_, _ = w.Write(messageJSON([]map[string]any{
				{"type": "text", "text": "On it."},
				{"type": "tool_use", "id": "toolu_1", "name": "add_task", "input": map[string]any{"title": "buy milk"}},
			}, "tool_use"))
			return
		}
		secondBody, _ = io.ReadAll(r.Body)
		_, _ = w.Write(messageJSON([]map[string]any{
			{"type": "text", "text": "Created task 1: buy milk."},
		}, "end_turn"))
	}))
	defer closeFn()

	got, err := provider.Respond(context.Background(), "u1", "add buy milk", nil)
	if err != nil {
		t.Fatalf("respond: %v", err)
	}
	if got != "Created task 1: buy milk." {
		t.Fatalf("response = %q", got)
	}
	if requests != 2 {
		t.Fatalf("expected one tool round then one final request, got %d", requests)
	}

	list := tk.ListTasks(context.Background(), "u1", "").Payload().(agenttools.TaskListPayload)
	if len(list.Tasks) != 1 || list.Tasks[0].Title != "buy milk" {
		t.Fatalf("stored tasks = %+v", list.Tasks)
	}

	// The follow-up ties the result to the tool_use id and offers no tools.
	var followUp struct {
		Messages []struct {
			Role    string           `json:"role"`
			Content []map[string]any `json:"content"`
		} `json:"messages"`
		Tools []any `json:"tools"`
	}
	if err := json.Unmarshal(secondBody, &followUp); err != nil {
		t.Fatalf("decode follow-up body: %v", err)
	}
	if len(followUp.Tools) != 0 {
		t.Fatalf("follow-up should not offer tools")
	}
	foundResult := false
	for _, msg := range followUp.Messages {
		for _, block := range msg.Content {
			if block["type"] == "tool_result" && block["tool_use_id"] == "toolu_1" {
				foundResult = true
			}
		}
	}
	if !foundResult {
		t.Fatalf("no tool_result block in follow-up")
	}
}

func TestAnthropicRespondUpstreamError(t *testing.T) {
	provider, _, closeFn := newAnthropicProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"type":"error","error":{"type":"invalid_request_error","message":"bad request"}}`, http.StatusBadRequest)
	}))
	defer closeFn()

	_, err := provider.Respond(context.Background(), "u1", "hi", nil)
	if err == nil {
		t.Fatalf("expected an error so the dispatcher can fall through")
	}
}
