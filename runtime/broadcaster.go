package runtime

import (
	"chatsphere/contract"
	"chatsphere/domain/event"
	"chatsphere/observability"
	"context"
	"log/slog"
	"sync"
)

// PresenceBroadcaster pushes the full online-user snapshot to every live
// connection, announced or not.
//
// Snapshots are taken and queued under one lock: two concurrent membership
// changes can never reach a connection in the reverse order, so every
// client converges on the latest snapshot.
type PresenceBroadcaster struct {
	mu            sync.Mutex
	log           *slog.Logger
	registry      contract.IRegistry
	directory     contract.IConnectionDirectory
	metrics       *observability.Metrics
	edgeTriggered bool
}

func NewPresenceBroadcaster(log *slog.Logger, registry contract.IRegistry,
	directory contract.IConnectionDirectory, metrics *observability.Metrics,
	edgeTriggered bool) *PresenceBroadcaster {
	return &PresenceBroadcaster{
		log:           log,
		registry:      registry,
		directory:     directory,
		metrics:       metrics,
		edgeTriggered: edgeTriggered,
	}
}

// MembershipChanged is called after every register/unregister.
// By default every call broadcasts; in edge-triggered mode only calls
// where a user went online or offline do.
func (b *PresenceBroadcaster) MembershipChanged(ctx context.Context, changed bool) {
	if b.edgeTriggered && !changed {
		return
	}
	b.Broadcast(ctx)
}

// Broadcast sends the current snapshot to all connections.
// A connection that cannot take the event is skipped; its own pump
// is responsible for tearing it down.
func (b *PresenceBroadcaster) Broadcast(ctx context.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()

	users := b.registry.OnlineUsers()
	b.metrics.OnlineUsers.Set(float64(len(users)))
	b.metrics.PresenceBroadcasts.Inc()

	evt := event.OnlineUsers{Users: users}
	for _, sink := range b.directory.All() {
		if err := sink.Consume(ctx, evt); err != nil {
			b.metrics.DroppedEvents.Inc()
			b.log.Debug("Presence snapshot not delivered",
				"connection_id", sink.ID(), "error", err)
		}
	}
	b.log.Debug("Presence broadcast", "online_users", len(users))
}
