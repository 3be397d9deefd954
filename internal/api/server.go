package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/taskflow-ai/taskflow/internal/auth"
	"github.com/taskflow-ai/taskflow/internal/chat"
	"github.com/taskflow-ai/taskflow/internal/events"
	"github.com/taskflow-ai/taskflow/internal/state"
)

type Server struct {
	Chat     *chat.Service
	Store    *state.Store
	Bus      *events.Bus
	Verifier *auth.Verifier

	// BootstrapToken gates /api/auth/token. Empty disables the endpoint.
	BootstrapToken string
	StartedAt      time.Time
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/auth/token", s.handleToken)
	mux.HandleFunc("/api/chat", s.requireAuth(s.handleChat))
	mux.HandleFunc("/api/chat/ws", s.requireAuth(s.handleChatWS))
	mux.HandleFunc("/api/chat/", s.requireAuth(s.handleChatHistory))
	mux.HandleFunc("/api/tasks", s.requireAuth(s.handleTasks))
	mux.HandleFunc("/api/tasks/", s.requireAuth(s.handleTaskItem))

	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "time": time.Now().UTC()})
}

// handleToken mints an access token for a user id. The endpoint is meant for
// local development and trusted automation, so it is gated by a shared
// bootstrap secret rather than a full login flow.
func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	if s.BootstrapToken == "" {
		writeError(w, http.StatusNotImplemented, errMsg("token minting disabled"))
		return
	}
	if r.Header.Get("X-Bootstrap-Token") != s.BootstrapToken {
		writeError(w, http.StatusUnauthorized, errMsg("invalid bootstrap token"))
		return
	}
	var payload struct {
		UserID string `json:"user_id"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(payload.UserID) == "" {
		writeError(w, http.StatusBadRequest, errMsg("user_id is required"))
		return
	}
	token, err := s.Verifier.Issue(payload.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"access_token": token,
		"token_type":   "bearer",
	})
}

// requireAuth wraps a handler with bearer token verification and passes the
// verified subject through as the owner id.
func (s *Server) requireAuth(next func(http.ResponseWriter, *http.Request, string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, errMsg("missing bearer token"))
			return
		}
		claims, err := s.Verifier.Verify(token)
		if err != nil || !auth.ValidateClaims(claims) {
			writeError(w, http.StatusUnauthorized, errMsg("invalid or expired token"))
			return
		}
		next(w, r, claims.Subject)
	}
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request, ownerID string) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	var payload struct {
		Message        string `json:"message"`
		ConversationID string `json:"conversation_id"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(payload.Message) == "" {
		writeError(w, http.StatusBadRequest, errMsg("message is required"))
		return
	}
	if len(payload.Message) > maxMessageLen {
		writeError(w, http.StatusBadRequest, errMsg("message must be at most 5000 characters"))
		return
	}
	turn, err := s.Chat.HandleTurn(r.Context(), ownerID, payload.ConversationID, payload.Message)
	if errors.Is(err, state.ErrNotFound) {
		writeError(w, http.StatusNotFound, errMsg("conversation not found"))
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, turn)
}

func (s *Server) handleChatHistory(w http.ResponseWriter, r *http.Request, ownerID string) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	conversationID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/chat/"), "/")
	if conversationID == "" {
		writeError(w, http.StatusNotFound, errMsg("conversation not found"))
		return
	}
	messages, err := s.Chat.History(r.Context(), ownerID, conversationID)
	if errors.Is(err, state.ErrNotFound) {
		writeError(w, http.StatusNotFound, errMsg("conversation not found"))
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if messages == nil {
		messages = []state.Message{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"conversation_id": conversationID,
		"messages":        messages,
	})
}

func (s *Server) handleTasks(w http.ResponseWriter, r *http.Request, ownerID string) {
	switch r.Method {
	case http.MethodGet:
		completed, err := parseCompleted(r.URL.Query().Get("completed"))
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		items, err := s.Store.ListTasks(r.Context(), ownerID, completed)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		if items == nil {
			items = []state.Task{}
		}
		writeJSON(w, http.StatusOK, items)
	case http.MethodPost:
		var payload struct {
			Title       string `json:"title"`
			Description string `json:"description"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if strings.TrimSpace(payload.Title) == "" {
			writeError(w, http.StatusBadRequest, errMsg("title is required"))
			return
		}
		if err := checkTaskFields(&payload.Title, &payload.Description); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		task, err := s.Store.CreateTask(r.Context(), ownerID, payload.Title, payload.Description)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusCreated, task)
	default:
		writeMethodNotAllowed(w)
	}
}

func (s *Server) handleTaskItem(w http.ResponseWriter, r *http.Request, ownerID string) {
	path := strings.TrimPrefix(r.URL.Path, "/api/tasks/")
	segments := strings.Split(strings.Trim(path, "/"), "/")
	if len(segments) == 0 || segments[0] == "" {
		writeError(w, http.StatusNotFound, errMsg("task not found"))
		return
	}
	taskID, err := strconv.ParseInt(segments[0], 10, 64)
	if err != nil {
		writeError(w, http.StatusNotFound, errMsg("task not found"))
		return
	}

	if len(segments) > 1 {
		if segments[1] != "complete" {
			writeError(w, http.StatusNotFound, errMsg("task action not found"))
			return
		}
		if r.Method != http.MethodPost {
			writeMethodNotAllowed(w)
			return
		}
		task, err := s.Store.CompleteTask(r.Context(), ownerID, taskID)
		if err != nil {
			writeTaskError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, task)
		return
	}

	switch r.Method {
	case http.MethodGet:
		task, err := s.Store.GetTask(r.Context(), ownerID, taskID)
		if err != nil {
			writeTaskError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, task)
	case http.MethodPatch:
		var payload struct {
			Title       *string `json:"title"`
			Description *string `json:"description"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if payload.Title != nil && strings.TrimSpace(*payload.Title) == "" {
			writeError(w, http.StatusBadRequest, errMsg("title cannot be empty"))
			return
		}
		if err := checkTaskFields(payload.Title, payload.Description); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		task, err := s.Store.UpdateTask(r.Context(), ownerID, taskID, state.TaskUpdate{
			Title:       payload.Title,
			Description: payload.Description,
		})
		if err != nil {
			writeTaskError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, task)
	case http.MethodDelete:
		if err := s.Store.DeleteTask(r.Context(), ownerID, taskID); err != nil {
			writeTaskError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	default:
		writeMethodNotAllowed(w)
	}
}

const (
	maxMessageLen     = 5000
	maxTitleLen       = 200
	maxDescriptionLen = 1000
)

func checkTaskFields(title, description *string) error {
	if title != nil && len(*title) > maxTitleLen {
		return errMsg("title must be at most 200 characters")
	}
	if description != nil && len(*description) > maxDescriptionLen {
		return errMsg("description must be at most 1000 characters")
	}
	return nil
}

func writeTaskError(w http.ResponseWriter, err error) {
	if errors.Is(err, state.ErrNotFound) {
		writeError(w, http.StatusNotFound, errMsg("task not found"))
		return
	}
	writeError(w, http.StatusInternalServerError, err)
}

// bearerToken extracts the access token from the Authorization header, or
// from the token query parameter for WebSocket clients that cannot set
// headers.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return r.URL.Query().Get("token")
}

func parseCompleted(value string) (*bool, error) {
	if value == "" {
		return nil, nil
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return nil, errMsg("completed must be true or false")
	}
	return &parsed, nil
}

func decodeJSON(body io.Reader, dest any) error {
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec.Decode(dest)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"error": err.Error()})
}

func writeMethodNotAllowed(w http.ResponseWriter) {
	writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
}

type apiError struct {
	msg string
}

func (e apiError) Error() string { return e.msg }

func errMsg(msg string) error {
	return apiError{msg: msg}
}
