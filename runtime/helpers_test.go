package runtime

import (
	"chatsphere/domain"
	"chatsphere/domain/event"
	"chatsphere/observability"
	"chatsphere/sink"
	"log/slog"

	"github.com/mama165/sdk-go/logs"
)

type core struct {
	log         *slog.Logger
	metrics     *observability.Metrics
	registry    *Registry
	directory   *ConnectionDirectory
	broadcaster *PresenceBroadcaster
	lifecycle   *LifecycleManager
}

func newCore(edgeTriggered bool) *core {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	metrics := observability.NewMetrics()
	registry := NewRegistry()
	directory := NewConnectionDirectory()
	broadcaster := NewPresenceBroadcaster(log, registry, directory, metrics, edgeTriggered)
	return &core{
		log:         log,
		metrics:     metrics,
		registry:    registry,
		directory:   directory,
		broadcaster: broadcaster,
		lifecycle:   NewLifecycleManager(log, registry, directory, broadcaster, metrics),
	}
}

func (c *core) open(id domain.ConnectionID) (*sink.ConnectionSink, *Connection) {
	s := sink.NewConnectionSink(id, 1024)
	return s, c.lifecycle.Open(s, "")
}

// drain empties the sink without blocking.
func drain(s *sink.ConnectionSink) []event.Event {
	var events []event.Event
	for {
		select {
		case e := <-s.Events():
			events = append(events, e)
		default:
			return events
		}
	}
}

func snapshots(events []event.Event) [][]domain.UserID {
	var users [][]domain.UserID
	for _, e := range events {
		if snapshot, ok := e.(event.OnlineUsers); ok {
			users = append(users, snapshot.Users)
		}
	}
	return users
}

func received(events []event.Event) []domain.Message {
	var messages []domain.Message
	for _, e := range events {
		if r, ok := e.(event.MessageReceived); ok {
			messages = append(messages, r.Message)
		}
	}
	return messages
}

func newTestSink(id domain.ConnectionID) *sink.ConnectionSink {
	return sink.NewConnectionSink(id, 1024)
}
