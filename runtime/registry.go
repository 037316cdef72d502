package runtime

import (
	"chatsphere/domain"
	"sort"
	"sync"

	"github.com/samber/lo"
)

type Set map[domain.ConnectionID]struct{}

// Registry is the single source of truth for presence.
// A user key exists if and only if its connection set is non-empty.
// It holds connection identifiers only; the ConnectionDirectory owns the sinks.
type Registry struct {
	mu      sync.RWMutex
	members map[domain.UserID]Set // map user -> live connections
}

func NewRegistry() *Registry {
	return &Registry{members: make(map[domain.UserID]Set)}
}

// Register adds connectionID to the user's set, creating it on the fly.
// Registering the same connection twice is a no-op.
// It returns true when the user just went online.
func (r *Registry) Register(user domain.UserID, connectionID domain.ConnectionID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	connections, ok := r.members[user]
	if !ok {
		connections = make(Set)
		r.members[user] = connections
	}
	connections[connectionID] = struct{}{}
	return !ok
}

// Unregister removes connectionID from the user's set and drops the user
// once the set is empty, so no empty sets are left behind.
// It returns true when the user just went offline.
func (r *Registry) Unregister(user domain.UserID, connectionID domain.ConnectionID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	connections, ok := r.members[user]
	if !ok {
		return false
	}
	if _, exists := connections[connectionID]; !exists {
		return false
	}
	delete(connections, connectionID)

	// If no connection is left, the user is offline
	if len(connections) == 0 {
		delete(r.members, user)
		return true
	}
	return false
}

func (r *Registry) IsOnline(user domain.UserID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members[user]) > 0
}

// ConnectionsFor returns a copy of the user's connection identifiers,
// empty when the user is offline.
func (r *Registry) ConnectionsFor(user domain.UserID) []domain.ConnectionID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lo.Keys(r.members[user])
}

// OnlineUsers returns a sorted snapshot of every online user.
func (r *Registry) OnlineUsers() []domain.UserID {
	r.mu.RLock()
	users := lo.Keys(r.members)
	r.mu.RUnlock()

	sort.Slice(users, func(i, j int) bool { return users[i] < users[j] })
	return users
}
