package runtime

import (
	"log/slog"
	"testing"

	"chat-grid/domain"
	apperrors "chat-grid/errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestGroupChannel_Publish_To_All_Subscribers(t *testing.T) {
	req := require.New(t)
	ch := newGroupChannel(uuid.New(), 10, slog.Default())

	// Given two subscribers
	subA, err := ch.Subscribe()
	req.NoError(err)
	subB, err := ch.Subscribe()
	req.NoError(err)
	req.Equal(2, ch.SubscriberCount())

	// When a message is published
	msg := domain.NewUserMessage(uuid.New(), "alice", "hi")
	delivered := ch.Publish(msg)

	// Then both subscribers receive it
	req.Equal(2, delivered)
	req.Equal(msg, <-subA.Messages())
	req.Equal(msg, <-subB.Messages())
}

func TestGroupChannel_Publish_Without_Subscribers(t *testing.T) {
	req := require.New(t)
	ch := newGroupChannel(uuid.New(), 10, slog.Default())

	// Publishing into an empty channel is not an error
	delivered := ch.Publish(domain.NewUserMessage(uuid.New(), "alice", "anyone here?"))
	req.Zero(delivered)
}

func TestGroupChannel_Slow_Subscriber_Misses_Newest(t *testing.T) {
	req := require.New(t)
	ch := newGroupChannel(uuid.New(), 2, slog.Default())

	slow, err := ch.Subscribe()
	req.NoError(err)

	// Given the subscriber never drains its backlog of capacity 2
	first := domain.NewUserMessage(uuid.New(), "alice", "one")
	second := domain.NewUserMessage(uuid.New(), "alice", "two")
	overflow := domain.NewUserMessage(uuid.New(), "alice", "three")

	req.Equal(1, ch.Publish(first))
	req.Equal(1, ch.Publish(second))

	// When publishing past the backlog, the newest message is rejected
	// for that subscriber and the publisher does not block
	req.Equal(0, ch.Publish(overflow))

	// Then only the oldest messages are delivered
	req.Equal(first, <-slow.Messages())
	req.Equal(second, <-slow.Messages())
	select {
	case extra := <-slow.Messages():
		t.Fatalf("unexpected message delivered: %v", extra)
	default:
	}
}

func TestGroupChannel_Sealed_Rejects_Subscribers_And_Publishes(t *testing.T) {
	req := require.New(t)
	ch := newGroupChannel(uuid.New(), 10, slog.Default())

	// Given an empty channel that cleanup just sealed
	req.True(ch.sealIfEmpty())

	// Then it accepts neither subscribers nor messages
	_, err := ch.Subscribe()
	req.ErrorIs(err, apperrors.ErrChannelSealed)
	req.Zero(ch.Publish(domain.NewSystemMessage("too late")))
}

func TestGroupChannel_SealIfEmpty_Refuses_Live_Subscriber(t *testing.T) {
	req := require.New(t)
	ch := newGroupChannel(uuid.New(), 10, slog.Default())

	sub, err := ch.Subscribe()
	req.NoError(err)

	// A channel with a live subscriber can never be sealed
	req.False(ch.sealIfEmpty())

	// Once the subscription is released, it can
	sub.Cancel()
	req.True(ch.sealIfEmpty())
}

func TestSubscription_Cancel_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	ch := newGroupChannel(uuid.New(), 10, slog.Default())

	sub, err := ch.Subscribe()
	req.NoError(err)

	sub.Cancel()
	sub.Cancel()
	req.Zero(ch.SubscriberCount())
}
