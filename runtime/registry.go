package runtime

import (
	"log/slog"

	"github.com/google/uuid"
	cmap "github.com/orcaman/concurrent-map/v2"
)

// Registry is the process-wide mapping from group ID to its live
// GroupChannel. It is backed by a sharded concurrent map so one busy group
// never serializes traffic of unrelated groups behind a global lock.
//
// Invariant: at most one GroupChannel exists per group at any time. Creation
// is lazy (first attach wins, concurrent attaches converge on the winner) and
// removal only happens through the atomic zero-subscriber check in
// RemoveIfEmpty.
type Registry struct {
	log      *slog.Logger
	capacity int
	channels cmap.ConcurrentMap[string, *GroupChannel]
}

// NewRegistry builds an empty registry. capacity is the per-subscriber
// backlog of every channel it creates.
func NewRegistry(log *slog.Logger, capacity int) *Registry {
	return &Registry{
		log:      log,
		capacity: capacity,
		channels: cmap.New[*GroupChannel](),
	}
}

// GetOrCreate returns the group's channel, constructing it under the shard
// lock if absent. Concurrent calls for the same group all receive the same
// channel; no duplicate is ever observable.
func (r *Registry) GetOrCreate(groupID uuid.UUID) *GroupChannel {
	return r.channels.Upsert(groupID.String(), nil,
		func(exists bool, current, _ *GroupChannel) *GroupChannel {
			if exists {
				return current
			}
			r.log.Debug("Creating group channel", "group_id", groupID)
			return newGroupChannel(groupID, r.capacity, r.log)
		})
}

// Attach subscribes to the group's channel, creating it if needed. If the
// channel gets sealed by a concurrent cleanup between lookup and subscribe,
// Attach simply retries and ends up constructing a fresh channel, so a new
// subscriber is never left orphaned.
func (r *Registry) Attach(groupID uuid.UUID) *Subscription {
	for {
		ch := r.GetOrCreate(groupID)
		sub, err := ch.Subscribe()
		if err == nil {
			return sub
		}
	}
}

// Lookup returns the live channel for a group without creating one.
func (r *Registry) Lookup(groupID uuid.UUID) (*GroupChannel, bool) {
	return r.channels.Get(groupID.String())
}

// SubscriberCount reports the number of live subscriptions for a group,
// zero when no channel exists.
func (r *Registry) SubscriberCount(groupID uuid.UUID) int {
	ch, ok := r.channels.Get(groupID.String())
	if !ok {
		return 0
	}
	return ch.SubscriberCount()
}

// RemoveIfEmpty removes the group's channel iff it has zero subscribers at
// the moment of the check. The zero-check (seal) and the removal both happen
// under the same shard lock, so a subscriber arriving concurrently either
// lands on the still-valid channel or observes the sealed one and re-creates
// through Attach. Calling it for an absent or repopulated group is a no-op.
func (r *Registry) RemoveIfEmpty(groupID uuid.UUID) bool {
	removed := r.channels.RemoveCb(groupID.String(),
		func(_ string, ch *GroupChannel, exists bool) bool {
			return exists && ch.sealIfEmpty()
		})
	if removed {
		r.log.Info("No subscriber left in group, channel removed", "group_id", groupID)
	}
	return removed
}

// Len reports how many group channels are currently live.
func (r *Registry) Len() int {
	return r.channels.Count()
}

// Snapshot returns the subscriber count per live group, for observability.
func (r *Registry) Snapshot() map[string]int {
	stats := make(map[string]int, r.channels.Count())
	for key, ch := range r.channels.Items() {
		stats[key] = ch.SubscriberCount()
	}
	return stats
}
