package services

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"chat-grid/domain"
	"chat-grid/moderation"
	"chat-grid/repositories"
	"chat-grid/runtime"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type fakeMessageRepository struct {
	stored   []repositories.StoredMessage
	storeErr error
	messages []repositories.StoredMessage
	dropped  []uuid.UUID
}

func (f *fakeMessageRepository) StoreMessage(msg repositories.StoredMessage) error {
	if f.storeErr != nil {
		return f.storeErr
	}
	f.stored = append(f.stored, msg)
	return nil
}

func (f *fakeMessageRepository) Messages(_ uuid.UUID, _ *string) ([]repositories.StoredMessage, *string, error) {
	return f.messages, nil, nil
}

func (f *fakeMessageRepository) DropGroup(groupID uuid.UUID) error {
	f.dropped = append(f.dropped, groupID)
	return nil
}

func newTestChatService(t *testing.T, messages repositories.IMessageRepository) (*ChatService, *runtime.Registry) {
	t.Helper()
	log := slog.Default()
	moderator, err := moderation.NewModerator([]string{"badger"}, '*', log)
	require.NoError(t, err)
	registry := runtime.NewRegistry(log, 16)
	return NewChatService(log, registry, messages, moderator), registry
}

func TestChatService_PostMessage_Persists_Then_Broadcasts(t *testing.T) {
	req := require.New(t)
	repo := &fakeMessageRepository{}
	svc, registry := newTestChatService(t, repo)

	groupID := uuid.New()
	sub := registry.Attach(groupID)
	defer sub.Cancel()

	sender := domain.Identity{UserID: uuid.New(), Username: "alice"}

	// When a frame is posted
	err := svc.PostMessage(context.Background(), sub.Channel(), sender, "hello there")
	req.NoError(err)

	// Then it was written to the store before anything else
	req.Len(repo.stored, 1)
	req.Equal(groupID, repo.stored[0].GroupID)
	req.Equal("hello there", repo.stored[0].Content)

	// And the subscriber received the same content
	received := <-sub.Messages()
	req.Equal("hello there", received.Content)
	req.Equal(sender.UserID, received.SenderID)
	req.Equal("alice", received.SenderName)
	req.False(received.IsSystem())
}

func TestChatService_PostMessage_Persistence_Failure_Suppresses_Broadcast(t *testing.T) {
	req := require.New(t)
	storeErr := errors.New("disk full")
	repo := &fakeMessageRepository{storeErr: storeErr}
	svc, registry := newTestChatService(t, repo)

	groupID := uuid.New()
	sub := registry.Attach(groupID)
	defer sub.Cancel()

	// When persistence fails
	err := svc.PostMessage(context.Background(), sub.Channel(),
		domain.Identity{UserID: uuid.New(), Username: "alice"}, "hello")

	// Then the error surfaces and no subscriber ever sees the message
	req.ErrorIs(err, storeErr)
	select {
	case msg := <-sub.Messages():
		t.Fatalf("unexpected broadcast after failed persist: %q", msg.Content)
	default:
	}
}

func TestChatService_PostMessage_Applies_Moderation(t *testing.T) {
	req := require.New(t)
	repo := &fakeMessageRepository{}
	svc, registry := newTestChatService(t, repo)

	sub := registry.Attach(uuid.New())
	defer sub.Cancel()

	err := svc.PostMessage(context.Background(), sub.Channel(),
		domain.Identity{UserID: uuid.New(), Username: "alice"}, "a badger bit me")
	req.NoError(err)

	// Both the durable copy and the broadcast carry the censored form
	req.Equal("a ****** bit me", repo.stored[0].Content)
	req.Equal("a ****** bit me", (<-sub.Messages()).Content)
}

func TestChatService_NotifyDeparture_Broadcasts_Without_Persisting(t *testing.T) {
	req := require.New(t)
	repo := &fakeMessageRepository{}
	svc, registry := newTestChatService(t, repo)

	groupID := uuid.New()
	sub := registry.Attach(groupID)
	defer sub.Cancel()

	svc.NotifyDeparture(groupID, "bob")

	msg := <-sub.Messages()
	req.True(msg.IsSystem())
	req.Equal("bob left the group", msg.Content)
	req.Equal("system", msg.SenderName)

	// System announcements never reach the store
	req.Empty(repo.stored)
}

func TestChatService_NotifyDeparture_Without_Channel_Is_A_Noop(t *testing.T) {
	repo := &fakeMessageRepository{}
	svc, _ := newTestChatService(t, repo)

	// No channel exists for this group; nothing should be created or stored
	svc.NotifyDeparture(uuid.New(), "bob")

	require.Empty(t, repo.stored)
}

func TestChatService_History_Maps_Stored_Messages(t *testing.T) {
	req := require.New(t)
	senderID := uuid.New()
	repo := &fakeMessageRepository{
		messages: []repositories.StoredMessage{
			{ID: uuid.New(), SenderID: senderID, SenderName: "alice", Content: "first"},
			{ID: uuid.New(), SenderID: senderID, SenderName: "alice", Content: "second"},
		},
	}
	svc, _ := newTestChatService(t, repo)

	history, next, err := svc.History(uuid.New(), nil)
	req.NoError(err)
	req.Nil(next)
	req.Len(history, 2)
	req.Equal("first", history[0].Content)
	req.Equal("second", history[1].Content)
	req.Equal("alice", history[0].SenderName)
}
