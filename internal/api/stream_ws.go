package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/coder/websocket"

	"github.com/taskflow-ai/taskflow/internal/events"
)

type wsWriter interface {
	Write(ctx context.Context, msgType websocket.MessageType, data []byte) error
}

// handleChatWS streams the authenticated user's turn events over a
// WebSocket. Events carry both sides of each turn as they are persisted.
func (s *Server) handleChatWS(w http.ResponseWriter, r *http.Request, ownerID string) {
	if s.Bus == nil {
		writeError(w, http.StatusInternalServerError, errMsg("event bus unavailable"))
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusInternalError, "closed")

	ctx := r.Context()
	if err := streamTurnEvents(ctx, s.Bus, ownerID, conn); err != nil {
		_ = conn.Close(websocket.StatusInternalError, "stream error")
		return
	}
	_ = conn.Close(websocket.StatusNormalClosure, "done")
}

func streamTurnEvents(ctx context.Context, bus *events.Bus, ownerID string, writer wsWriter) error {
	sub := bus.Subscribe(ctx, ownerID)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case evt, ok := <-sub:
			if !ok {
				return nil
			}
			payload, err := json.Marshal(evt)
			if err != nil {
				return err
			}
			if err := writer.Write(ctx, websocket.MessageText, payload); err != nil {
				return err
			}
		}
	}
}
