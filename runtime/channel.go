// Package runtime owns the live broadcast topology of the chat service:
// one GroupChannel per group with at least one connected member, all of them
// tracked by the Registry. Nothing in this package is ever persisted.
package runtime

import (
	"log/slog"
	"sync"

	"chat-grid/domain"
	apperrors "chat-grid/errors"

	"github.com/google/uuid"
)

// GroupChannel is the in-memory publish/subscribe primitive scoped to one
// chat group. Each subscriber owns a buffered Go channel of fixed capacity;
// Publish never blocks on a slow subscriber.
//
// A channel is created lazily by the Registry on first attach and sealed by
// the Registry once its last subscriber is gone. A sealed channel accepts no
// new subscribers and drops publishes, which lets the Registry remove it
// without ever orphaning a live connection.
type GroupChannel struct {
	groupID  uuid.UUID
	capacity int
	log      *slog.Logger

	mu          sync.Mutex
	sealed      bool
	nextID      uint64
	subscribers map[uint64]chan domain.ChatMessage
}

func newGroupChannel(groupID uuid.UUID, capacity int, log *slog.Logger) *GroupChannel {
	return &GroupChannel{
		groupID:     groupID,
		capacity:    capacity,
		log:         log,
		subscribers: make(map[uint64]chan domain.ChatMessage),
	}
}

func (c *GroupChannel) GroupID() uuid.UUID { return c.groupID }

// Subscribe registers a new consumer and returns its subscription handle.
// It fails with ErrChannelSealed if the channel lost the race against
// cleanup; the caller is expected to go back to the Registry for a fresh one.
func (c *GroupChannel) Subscribe() (*Subscription, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sealed {
		return nil, apperrors.ErrChannelSealed
	}

	c.nextID++
	out := make(chan domain.ChatMessage, c.capacity)
	c.subscribers[c.nextID] = out
	return &Subscription{channel: c, id: c.nextID, out: out}, nil
}

// Publish delivers a message to every current subscriber, best effort.
// Delivery to a subscriber whose backlog is full is skipped: the slow
// consumer silently misses the message rather than blocking the publisher
// (reject-newest). Returns the number of successful deliveries.
func (c *GroupChannel) Publish(msg domain.ChatMessage) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sealed {
		return 0
	}

	delivered := 0
	for id, out := range c.subscribers {
		select {
		case out <- msg:
			delivered++
		default:
			c.log.Warn("Subscriber backlog full, dropping message",
				"group_id", c.groupID, "subscriber", id)
		}
	}
	return delivered
}

func (c *GroupChannel) SubscriberCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subscribers)
}

// sealIfEmpty marks the channel unusable iff it currently has no
// subscribers. Only the Registry calls this, while holding the map shard
// lock, so sealing and removal form one atomic conditional-remove.
func (c *GroupChannel) sealIfEmpty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.subscribers) > 0 {
		return false
	}
	c.sealed = true
	return true
}

func (c *GroupChannel) unsubscribe(id uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.subscribers, id)
}

// Subscription is one consumer's receive side of a GroupChannel.
type Subscription struct {
	channel *GroupChannel
	id      uint64
	out     chan domain.ChatMessage
}

// Messages is the stream of broadcasts since this subscription was created.
func (s *Subscription) Messages() <-chan domain.ChatMessage { return s.out }

// Channel exposes the publish side shared by all subscribers of the group.
func (s *Subscription) Channel() *GroupChannel { return s.channel }

// Cancel releases the subscription. It is safe to call more than once.
func (s *Subscription) Cancel() {
	s.channel.unsubscribe(s.id)
}
