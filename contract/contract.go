//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"chatsphere/domain"
	"chatsphere/domain/event"
	"context"
	"io"
	"reflect"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink is the send side of one live connection.
// Consume must not block on a slow peer.
type EventSink interface {
	ID() domain.ConnectionID
	Consume(ctx context.Context, e event.Event) error
}

// IRegistry maps users to the identifiers of their live connections.
// Register and Unregister report whether the set of online users changed.
type IRegistry interface {
	Register(user domain.UserID, connectionID domain.ConnectionID) bool
	Unregister(user domain.UserID, connectionID domain.ConnectionID) bool
	IsOnline(user domain.UserID) bool
	ConnectionsFor(user domain.UserID) []domain.ConnectionID
	OnlineUsers() []domain.UserID
}

// IConnectionDirectory resolves connection identifiers to sendable sinks.
type IConnectionDirectory interface {
	Attach(sink EventSink)
	Detach(connectionID domain.ConnectionID)
	Get(connectionID domain.ConnectionID) (EventSink, bool)
	All() []EventSink
	Len() int
}

// IMessageStore is the system of record for messages.
type IMessageStore interface {
	CreateMessage(ctx context.Context, message domain.Message) (domain.Message, error)
	FindMessagesBetween(ctx context.Context, userA, userB domain.UserID) ([]domain.Message, error)
}

// IBlobStore keeps uploaded media and hands back a public reference.
type IBlobStore interface {
	Put(ctx context.Context, r io.Reader) (domain.Media, error)
	Open(name string) (io.ReadSeekCloser, error)
	Delete(media domain.Media) error
}
