package exchange

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"server/internal/domain"
	"server/internal/events"
)

// ListChats returns the chats the user participates in, open and closed.
func (s *Service) ListChats(ctx context.Context, userID string) ([]domain.Chat, error) {
	return s.chats.ListByUser(ctx, userID)
}

// ChatMessages returns up to limit messages of a chat in creation order.
// Only participants may read a chat; history stays readable after closing.
func (s *Service) ChatMessages(ctx context.Context, userID, chatID string, limit int) ([]domain.Message, error) {
	chat, err := s.chats.GetByID(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("load chat: %w", err)
	}
	if !chat.HasParticipant(userID) {
		return nil, domain.ErrNotAuthorized
	}
	if limit <= 0 || limit > 500 {
		limit = 200
	}
	return s.chats.ListMessages(ctx, chatID, limit)
}

// SendMessage appends a message to an open chat and notifies the peer.
func (s *Service) SendMessage(ctx context.Context, userID, chatID, body string) (*domain.Message, error) {
	body = strings.TrimSpace(body)
	if body == "" || len(body) > maxMessageLen {
		return nil, fmt.Errorf("%w: message body must be 1-%d characters", domain.ErrInvalidInput, maxMessageLen)
	}

	chat, err := s.chats.GetByID(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("load chat: %w", err)
	}
	if !chat.HasParticipant(userID) {
		return nil, domain.ErrNotAuthorized
	}
	if chat.Closed {
		return nil, domain.ErrChatClosed
	}

	message := &domain.Message{
		ID:        uuid.NewString(),
		ChatID:    chatID,
		SenderID:  userID,
		Body:      body,
		CreatedAt: s.now(),
	}
	if err := s.chats.AppendMessage(ctx, message); err != nil {
		return nil, fmt.Errorf("append message: %w", err)
	}

	s.publish(events.TopicChats, "message", chatID, []string{chat.ParticipantLo, chat.ParticipantHi}, message)
	return message, nil
}
