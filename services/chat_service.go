//go:generate go run go.uber.org/mock/mockgen -source=chat_service.go -destination=../mocks/mock_chat_service.go -package=mocks
package services

import (
	"context"
	"fmt"
	"log/slog"

	"chat-grid/domain"
	"chat-grid/moderation"
	"chat-grid/repositories"
	"chat-grid/runtime"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

type IChatService interface {
	PostMessage(ctx context.Context, channel *runtime.GroupChannel, sender domain.Identity, content string) error
	NotifyDeparture(groupID uuid.UUID, displayName string)
	History(groupID uuid.UUID, cursor *string) ([]domain.ChatMessage, *string, error)
}

// ChatService implements the persist-then-broadcast protocol on top of the
// live channel registry and the message history store.
type ChatService struct {
	registry  *runtime.Registry
	messages  repositories.IMessageRepository
	moderator *moderation.Moderator
	log       *slog.Logger
}

func NewChatService(log *slog.Logger, registry *runtime.Registry,
	messages repositories.IMessageRepository, moderator *moderation.Moderator) *ChatService {
	return &ChatService{registry: registry, messages: messages, moderator: moderator, log: log}
}

// PostMessage runs one inbound frame through moderation, persists it, and
// only then broadcasts it to the group. The broadcast never precedes the
// durable write; on a persistence error the message is dropped entirely and
// the error is returned for the caller to log. The connection lives on.
func (s *ChatService) PostMessage(_ context.Context, channel *runtime.GroupChannel,
	sender domain.Identity, content string) error {
	censored, foundWords := s.moderator.Censor(content)
	if len(foundWords) > 0 {
		s.log.Debug("Message censored",
			"group_id", channel.GroupID(),
			"sender", sender.UserID,
			"words", len(foundWords))
	}

	message := domain.NewUserMessage(sender.UserID, sender.Username, censored)

	err := s.messages.StoreMessage(repositories.StoredMessage{
		ID:         uuid.New(),
		GroupID:    channel.GroupID(),
		SenderID:   message.SenderID,
		SenderName: message.SenderName,
		Content:    message.Content,
		At:         message.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("message not persisted, dropping: %w", err)
	}

	channel.Publish(message)
	return nil
}

// NotifyDeparture broadcasts a system announcement to the group's channel if
// one currently exists. No channel is created just to announce a departure,
// and the announcement is never persisted.
func (s *ChatService) NotifyDeparture(groupID uuid.UUID, displayName string) {
	channel, ok := s.registry.Lookup(groupID)
	if !ok {
		return
	}
	delivered := channel.Publish(domain.NewSystemMessage(fmt.Sprintf("%s left the group", displayName)))
	s.log.Info("Departure announced", "group_id", groupID, "delivered", delivered)
}

func (s *ChatService) History(groupID uuid.UUID, cursor *string) ([]domain.ChatMessage, *string, error) {
	stored, next, err := s.messages.Messages(groupID, cursor)
	if err != nil {
		return nil, nil, err
	}
	messages := lo.Map(stored, func(item repositories.StoredMessage, _ int) domain.ChatMessage {
		return domain.ChatMessage{
			SenderID:   item.SenderID,
			SenderName: item.SenderName,
			Content:    item.Content,
			CreatedAt:  item.At,
		}
	})
	return messages, next, nil
}
