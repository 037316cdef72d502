package runtime

import (
	"chatsphere/contract"
	"chatsphere/domain"
	"chatsphere/errors"
	"chatsphere/observability"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

type ConnectionState int

const (
	Unannounced ConnectionState = iota
	Announced
	Closed
)

func (s ConnectionState) String() string {
	switch s {
	case Unannounced:
		return "unannounced"
	case Announced:
		return "announced"
	default:
		return "closed"
	}
}

// Connection is the lifecycle handle of one transport connection.
// Only the LifecycleManager moves it between states.
type Connection struct {
	mu            sync.Mutex
	id            domain.ConnectionID
	state         ConnectionState
	user          domain.UserID
	authenticated domain.UserID
}

func (c *Connection) ID() domain.ConnectionID { return c.id }

// User returns the bound identity, if any.
func (c *Connection) User() (domain.UserID, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.user, c.user != ""
}

// Authenticated returns the identity proven at handshake time, empty if none.
func (c *Connection) Authenticated() domain.UserID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.authenticated
}

func (c *Connection) State() ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LifecycleManager drives Unannounced -> Announced -> Closed and keeps the
// registry and the connection directory in step with it.
type LifecycleManager struct {
	log         *slog.Logger
	registry    contract.IRegistry
	directory   contract.IConnectionDirectory
	broadcaster *PresenceBroadcaster
	metrics     *observability.Metrics
}

func NewLifecycleManager(log *slog.Logger, registry contract.IRegistry,
	directory contract.IConnectionDirectory, broadcaster *PresenceBroadcaster,
	metrics *observability.Metrics) *LifecycleManager {
	return &LifecycleManager{
		log:         log,
		registry:    registry,
		directory:   directory,
		broadcaster: broadcaster,
		metrics:     metrics,
	}
}

// Open makes the sink reachable and returns an unannounced connection.
// authenticated is the identity proven at handshake time, empty if none.
func (m *LifecycleManager) Open(sink contract.EventSink, authenticated domain.UserID) *Connection {
	m.directory.Attach(sink)
	m.metrics.Connections.Set(float64(m.directory.Len()))
	m.log.Debug("Connection opened", "connection_id", sink.ID())
	return &Connection{id: sink.ID(), state: Unannounced, authenticated: authenticated}
}

// Announce binds the connection to user and registers it.
// Repeated announces for the same user are keep-alive refreshes.
func (m *LifecycleManager) Announce(ctx context.Context, conn *Connection, user domain.UserID) error {
	if strings.TrimSpace(string(user)) == "" {
		return fmt.Errorf("%w: userId is required", errors.ErrMalformedEvent)
	}

	conn.mu.Lock()
	switch {
	case conn.state == Closed:
		conn.mu.Unlock()
		return errors.ErrConnectionClosed
	case conn.state == Announced && conn.user != user:
		conn.mu.Unlock()
		return fmt.Errorf("%w: connection already announced as %s", errors.ErrIdentityMismatch, conn.user)
	case conn.authenticated != "" && conn.authenticated != user:
		conn.mu.Unlock()
		return fmt.Errorf("%w: token belongs to %s", errors.ErrIdentityMismatch, conn.authenticated)
	}
	changed := m.registry.Register(user, conn.id)
	conn.state = Announced
	conn.user = user
	conn.mu.Unlock()

	if changed {
		m.log.Info("User online", "user_id", user, "connection_id", conn.id)
	}
	m.broadcaster.MembershipChanged(ctx, changed)
	return nil
}

// Close tears the connection down from any state. Calling it twice is harmless.
func (m *LifecycleManager) Close(ctx context.Context, conn *Connection) {
	conn.mu.Lock()
	if conn.state == Closed {
		conn.mu.Unlock()
		return
	}
	wasAnnounced := conn.state == Announced
	user := conn.user
	conn.state = Closed

	m.directory.Detach(conn.id)
	changed := false
	if wasAnnounced {
		changed = m.registry.Unregister(user, conn.id)
	}
	conn.mu.Unlock()

	m.metrics.Connections.Set(float64(m.directory.Len()))
	m.log.Debug("Connection closed", "connection_id", conn.id, "user_id", user)
	if !wasAnnounced {
		return
	}
	if changed {
		m.log.Info("User offline", "user_id", user)
	}
	m.broadcaster.MembershipChanged(ctx, changed)
}
