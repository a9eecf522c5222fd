// Package chat composes the conversation store and the model gateway into
// one chat turn: append the user message, stream the reply, append the
// aggregated assistant message.
package chat

import (
	"context"
	"fmt"

	"double/internal/llm"
	"double/internal/session"
	"double/internal/utils"
)

// Gateway is the slice of the model gateway a chat turn needs.
type Gateway interface {
	Chat(ctx context.Context, messages []llm.Message, onDelta llm.StreamFunc) (string, error)
}

// Service runs chat turns against one session store and one gateway
// snapshot. Callers must serialize turns per session: at most one in-flight
// append per session at a time.
type Service struct {
	store   *session.Store
	gateway Gateway
	logger  *utils.Logger
}

// NewService builds a chat service.
func NewService(store *session.Store, gateway Gateway) *Service {
	return &Service{
		store:   store,
		gateway: gateway,
		logger:  utils.NewComponentLogger("ChatService"),
	}
}

// Send appends the user message to the session, streams the assistant reply
// through onDelta, and appends the fully aggregated reply as a new assistant
// message, which is returned.
//
// The user message stays in the log when the gateway call fails; a turn is
// two independent appends, not a transaction.
func (s *Service) Send(ctx context.Context, sessionID, content string, attachments []session.Attachment, onDelta llm.StreamFunc) (session.Message, error) {
	sess, err := s.store.Get(sessionID)
	if err != nil {
		return session.Message{}, err
	}
	if sess == nil {
		return session.Message{}, fmt.Errorf("session %s not found", sessionID)
	}

	userMsg, err := s.store.AddMessage(sessionID, session.Message{
		Role:        llm.RoleUser,
		Content:     content,
		Attachments: attachments,
	})
	if err != nil {
		return session.Message{}, err
	}

	history := make([]llm.Message, 0, len(sess.Messages)+1)
	for _, msg := range sess.Messages {
		history = append(history, llm.Message{Role: msg.Role, Content: msg.Content})
	}
	history = append(history, llm.Message{Role: userMsg.Role, Content: userMsg.Content})

	reply, err := s.gateway.Chat(ctx, history, onDelta)
	if err != nil {
		s.logger.Warn("Chat turn failed for session %s: %v", sessionID, err)
		return session.Message{}, err
	}

	return s.store.AddMessage(sessionID, session.Message{
		Role:    llm.RoleAssistant,
		Content: reply,
	})
}
