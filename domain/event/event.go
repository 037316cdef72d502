// Package event defines what the server pushes to live connections.
package event

import (
	"chatsphere/domain"
)

const (
	NameOnlineUsers    = "online-users"
	NameReceiveMessage = "receive-message"
	NameMessageSent    = "message-sent"
	NameTyping         = "typing"
	NameStopTyping     = "stop-typing"
	NameError          = "error"
)

type Event interface {
	Name() string
}

// OnlineUsers is the full presence snapshot, sent to every connection.
type OnlineUsers struct {
	Users []domain.UserID
}

func (OnlineUsers) Name() string { return NameOnlineUsers }

// MessageReceived carries a persisted record to one of the recipient's connections.
type MessageReceived struct {
	Message domain.Message
}

func (MessageReceived) Name() string { return NameReceiveMessage }

// MessageSent acknowledges a send on the originating connection only.
type MessageSent struct {
	Ref     string
	Message domain.Message
}

func (MessageSent) Name() string { return NameMessageSent }

// Typing is relayed as-is and never stored.
type Typing struct {
	From domain.UserID
	Kind domain.TypingKind
}

func (t Typing) Name() string {
	if t.Kind == domain.TypingStop {
		return NameStopTyping
	}
	return NameTyping
}

// Failure is reported to the connection that caused it.
type Failure struct {
	Code    string
	Message string
	Ref     string
}

func (Failure) Name() string { return NameError }
