package domain

type TypingKind string

const (
	TypingStart TypingKind = "start"
	TypingStop  TypingKind = "stop"
)

// SendMessageCommand carries a send intent. Ref is an optional client
// correlation token echoed back on the sender's own connection.
type SendMessageCommand struct {
	From  UserID
	To    UserID
	Text  string
	Media *Media
	Ref   string
}

type TypingCommand struct {
	From UserID
	To   UserID
	Kind TypingKind
}

type GetHistoryCommand struct {
	User UserID
	Peer UserID
}
