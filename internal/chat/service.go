// Package chat assembles conversation turns: it resolves the conversation,
// persists both sides of the exchange, and hands the accumulated history to
// the dispatcher.
package chat

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/taskflow-ai/taskflow/internal/ai"
	"github.com/taskflow-ai/taskflow/internal/engine"
	"github.com/taskflow-ai/taskflow/internal/events"
	"github.com/taskflow-ai/taskflow/internal/state"
)

// Turn is the outcome of one user message.
type Turn struct {
	ConversationID string    `json:"conversation_id"`
	Response       string    `json:"response"`
	Timestamp      time.Time `json:"timestamp"`
}

type Service struct {
	store      *state.Store
	dispatcher *engine.Dispatcher
	bus        *events.Bus

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewService(store *state.Store, dispatcher *engine.Dispatcher, bus *events.Bus) *Service {
	return &Service{
		store:      store,
		dispatcher: dispatcher,
		bus:        bus,
		locks:      map[string]*sync.Mutex{},
	}
}

// HandleTurn processes one user message. The conversation is created when
// conversationID is empty; a conversation belonging to someone else is
// indistinguishable from one that does not exist (state.ErrNotFound).
//
// The user message is persisted before dispatch, so it survives even if the
// process dies mid-turn. The dispatcher sees the history as it stood before
// this turn; the incoming message travels separately.
func (s *Service) HandleTurn(ctx context.Context, ownerID, conversationID, message string) (Turn, error) {
	conv, err := s.resolveConversation(ctx, ownerID, conversationID)
	if err != nil {
		return Turn{}, err
	}

	// Turns within one conversation are serialized so interleaved requests
	// cannot corrupt the user/assistant alternation.
	lock := s.conversationLock(conv.ID)
	lock.Lock()
	defer lock.Unlock()

	stored, err := s.store.ListMessages(ctx, conv.ID)
	if err != nil {
		return Turn{}, fmt.Errorf("load history: %w", err)
	}
	history := make([]ai.Message, 0, len(stored))
	for _, msg := range stored {
		history = append(history, ai.Message{Role: msg.Role, Content: msg.Content})
	}

	userMsg, err := s.store.AppendMessage(ctx, conv.ID, state.RoleUser, message)
	if err != nil {
		return Turn{}, fmt.Errorf("persist user message: %w", err)
	}
	s.publish(conv.ID, ownerID, userMsg)

	response := s.dispatcher.Respond(ctx, ownerID, message, history)

	assistantMsg, err := s.store.AppendMessage(ctx, conv.ID, state.RoleAssistant, response)
	if err != nil {
		return Turn{}, fmt.Errorf("persist assistant message: %w", err)
	}
	s.publish(conv.ID, ownerID, assistantMsg)

	if err := s.store.TouchConversation(ctx, conv.ID, assistantMsg.CreatedAt); err != nil {
		return Turn{}, err
	}

	return Turn{
		ConversationID: conv.ID,
		Response:       response,
		Timestamp:      assistantMsg.CreatedAt,
	}, nil
}

// History returns the conversation's messages oldest first, owner-scoped.
func (s *Service) History(ctx context.Context, ownerID, conversationID string) ([]state.Message, error) {
	if _, err := s.store.GetConversation(ctx, ownerID, conversationID); err != nil {
		return nil, err
	}
	return s.store.ListMessages(ctx, conversationID)
}

func (s *Service) resolveConversation(ctx context.Context, ownerID, conversationID string) (state.Conversation, error) {
	if conversationID == "" {
		return s.store.CreateConversation(ctx, ownerID)
	}
	return s.store.GetConversation(ctx, ownerID, conversationID)
}

func (s *Service) conversationLock(conversationID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[conversationID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[conversationID] = lock
	}
	return lock
}

func (s *Service) publish(conversationID, ownerID string, msg state.Message) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(events.Event{
		ConversationID: conversationID,
		OwnerID:        ownerID,
		Role:           msg.Role,
		Content:        msg.Content,
		CreatedAt:      msg.CreatedAt,
	})
}
