package runtime

import (
	"log/slog"
	"sync"
	"testing"

	"chat-grid/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestRegistry_GetOrCreate_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(slog.Default(), 10)
	groupID := uuid.New()

	first := registry.GetOrCreate(groupID)
	second := registry.GetOrCreate(groupID)

	// Both callers converge on the same channel
	req.Same(first, second)
	req.Equal(1, registry.Len())
}

func TestRegistry_Concurrent_GetOrCreate_Single_Winner(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(slog.Default(), 10)
	groupID := uuid.New()

	const callers = 64
	channels := make([]*GroupChannel, callers)
	var wg sync.WaitGroup
	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func(slot int) {
			defer wg.Done()
			channels[slot] = registry.GetOrCreate(groupID)
		}(i)
	}
	wg.Wait()

	// Exactly one channel was constructed, every caller holds it
	req.Equal(1, registry.Len())
	for _, ch := range channels {
		req.Same(channels[0], ch)
	}
}

func TestRegistry_RemoveIfEmpty_Respects_Live_Subscribers(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(slog.Default(), 10)
	groupID := uuid.New()

	// Given two connections in the group
	subA := registry.Attach(groupID)
	subB := registry.Attach(groupID)
	req.Equal(2, registry.SubscriberCount(groupID))

	// When one disconnects, the channel survives
	subA.Cancel()
	req.False(registry.RemoveIfEmpty(groupID))
	req.Equal(1, registry.SubscriberCount(groupID))

	// When the last one disconnects, the channel is removed
	subB.Cancel()
	req.True(registry.RemoveIfEmpty(groupID))
	req.Zero(registry.Len())

	// Removing again is a no-op
	req.False(registry.RemoveIfEmpty(groupID))
}

func TestRegistry_Fresh_Channel_After_Cleanup_Has_No_Backlog(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(slog.Default(), 10)
	groupID := uuid.New()

	// Given a channel that carried traffic and was then cleaned up
	sub := registry.Attach(groupID)
	registry.GetOrCreate(groupID).Publish(domain.NewUserMessage(uuid.New(), "alice", "old news"))
	sub.Cancel()
	req.True(registry.RemoveIfEmpty(groupID))

	// When someone attaches again
	fresh := registry.Attach(groupID)
	defer fresh.Cancel()

	// Then the previous backlog is not resurrected
	select {
	case msg := <-fresh.Messages():
		t.Fatalf("stale message resurrected: %v", msg)
	default:
	}
}

func TestRegistry_Attach_Survives_Concurrent_Cleanup(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(slog.Default(), 10)
	groupID := uuid.New()

	// Attachers race against aggressive cleanup; none of them may end up
	// holding a subscription on a sealed, removed channel.
	const rounds = 200
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			sub := registry.Attach(groupID)
			sub.Channel().Publish(domain.NewSystemMessage("ping"))
			req.Equal(domain.SystemSenderID, (<-sub.Messages()).SenderID)
			sub.Cancel()
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			registry.RemoveIfEmpty(groupID)
		}
	}()
	wg.Wait()

	registry.RemoveIfEmpty(groupID)
	req.Zero(registry.SubscriberCount(groupID))
}

func TestRegistry_Snapshot(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(slog.Default(), 10)
	groupA := uuid.New()
	groupB := uuid.New()

	subA1 := registry.Attach(groupA)
	subA2 := registry.Attach(groupA)
	subB1 := registry.Attach(groupB)
	defer subA1.Cancel()
	defer subA2.Cancel()
	defer subB1.Cancel()

	stats := registry.Snapshot()
	req.Len(stats, 2)
	req.Equal(2, stats[groupA.String()])
	req.Equal(1, stats[groupB.String()])
}
