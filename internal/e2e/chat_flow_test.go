package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/taskflow-ai/taskflow/internal/agenttools"
	"github.com/taskflow-ai/taskflow/internal/ai"
	"github.com/taskflow-ai/taskflow/internal/api"
	"github.com/taskflow-ai/taskflow/internal/auth"
	"github.com/taskflow-ai/taskflow/internal/chat"
	"github.com/taskflow-ai/taskflow/internal/engine"
	"github.com/taskflow-ai/taskflow/internal/events"
	"github.com/taskflow-ai/taskflow/internal/state"
	"github.com/taskflow-ai/taskflow/internal/testutil"
)

// Drives the whole stack over HTTP: mint a token, hold a multi-turn chat
// that creates and completes a task through the keyword fallback, then check
// the task and the transcript through the REST surface.
func TestChatFlowEndToEnd(t *testing.T) {
	db, closeFn := testutil.OpenTestDB(t)
	defer closeFn()

	store := state.NewStore(db)
	tools := agenttools.NewToolkit(store)
	bus := events.NewBus()
	verifier := auth.NewVerifier("e2e-secret", time.Hour)
	service := chat.NewService(store, engine.NewDispatcher(ai.NewMatcher(tools)), bus)

	server := &api.Server{
		Chat:           service,
		Store:          store,
		Bus:            bus,
		Verifier:       verifier,
		BootstrapToken: "bootstrap",
	}
	client := testutil.NewInProcessClient(server.Handler())

	mintReq := testutil.NewRequest(http.MethodPost, "/api/auth/token", mustMarshal(t, map[string]any{"user_id": "pat"}))
	mintReq.Header.Set("X-Bootstrap-Token", "bootstrap")
	mintReq.Header.Set("Content-Type", "application/json")
	mintResp, err := client.Do(mintReq)
	if err != nil {
		t.Fatalf("mint request: %v", err)
	}
	var minted struct {
		AccessToken string `json:"access_token"`
	}
	decodeJSON(t, mintResp, &minted)
	if minted.AccessToken == "" {
		t.Fatalf("expected an access token")
	}
	token := minted.AccessToken

	resp := doJSON(t, client, "POST", "/api/chat", token, map[string]any{"message": "add file taxes"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("first turn status: %d", resp.StatusCode)
	}
	var turn chat.Turn
	decodeJSON(t, resp, &turn)
	if !strings.Contains(turn.Response, "Task created") {
		t.Fatalf("first turn response = %q", turn.Response)
	}

	resp = doJSON(t, client, "POST", "/api/chat", token, map[string]any{
		"message":         "complete 1",
		"conversation_id": turn.ConversationID,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("second turn status: %d", resp.StatusCode)
	}
	var second chat.Turn
	decodeJSON(t, resp, &second)
	if second.Response != "✅ Task completed: 'file taxes'" {
		t.Fatalf("second turn response = %q", second.Response)
	}

	resp = doJSON(t, client, "GET", "/api/tasks", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("tasks status: %d", resp.StatusCode)
	}
	var items []state.Task
	decodeJSON(t, resp, &items)
	if len(items) != 1 || !items[0].Completed {
		t.Fatalf("tasks = %+v", items)
	}

	resp = doJSON(t, client, "GET", "/api/chat/"+turn.ConversationID, token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("history status: %d", resp.StatusCode)
	}
	var history struct {
		Messages []state.Message `json:"messages"`
	}
	decodeJSON(t, resp, &history)
	if len(history.Messages) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(history.Messages))
	}
	if history.Messages[0].Content != "add file taxes" || history.Messages[3].Content != second.Response {
		t.Fatalf("transcript out of order: %+v", history.Messages)
	}
}

func doJSON(t *testing.T, client *http.Client, method, path, token string, payload any) *http.Response {
	t.Helper()
	var body *bytes.Reader
	if payload != nil {
		body = bytes.NewReader(mustMarshal(t, payload))
	} else {
		body = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(context.Background(), method, "http://in-process"+path, body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	return resp
}

func mustMarshal(t *testing.T, payload any) []byte {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return data
}

func decodeJSON(t *testing.T, resp *http.Response, dest any) {
	t.Helper()
	defer resp.Body.Close()
	dec := json.NewDecoder(resp.Body)
	if err := dec.Decode(dest); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}
