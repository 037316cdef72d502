package sink

import (
	"chatsphere/domain"
	"chatsphere/domain/event"
	"chatsphere/errors"
	"context"
	"sync"
)

// ConnectionSink is the outbound queue of one live connection.
// Producers never block: when the buffer is full the event is refused and
// Overflow fires so the owning transport can drop the slow peer.
type ConnectionSink struct {
	mu       sync.RWMutex
	id       domain.ConnectionID
	closed   bool
	events   chan event.Event
	overflow chan struct{}
}

func NewConnectionSink(id domain.ConnectionID, bufferSize int) *ConnectionSink {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	return &ConnectionSink{
		id:       id,
		events:   make(chan event.Event, bufferSize),
		overflow: make(chan struct{}, 1),
	}
}

func (s *ConnectionSink) ID() domain.ConnectionID { return s.id }

func (s *ConnectionSink) Consume(ctx context.Context, e event.Event) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return errors.ErrConnectionClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case s.events <- e:
		return nil
	default:
		select {
		case s.overflow <- struct{}{}:
		default:
		}
		return errors.ErrSlowConsumer
	}
}

// Events is drained by the connection's write pump. It is closed by Close.
func (s *ConnectionSink) Events() <-chan event.Event { return s.events }

// Overflow fires once the buffer has refused an event.
func (s *ConnectionSink) Overflow() <-chan struct{} { return s.overflow }

// Close stops accepting events; already queued ones stay readable.
func (s *ConnectionSink) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.events)
}
