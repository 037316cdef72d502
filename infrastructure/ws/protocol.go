package ws

import (
	"bytes"
	"chatsphere/domain"
	"chatsphere/domain/event"
	"chatsphere/errors"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
)

// Inbound event names.
const (
	EventAnnouncePresence = "announce-presence"
	EventSendMessage      = "send-message"
	EventTyping           = event.NameTyping
	EventStopTyping       = event.NameStopTyping
)

var validate = validator.New()

// Envelope is one websocket text frame.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type AnnouncePayload struct {
	UserID string `json:"userId" validate:"required"`
}

type SendMessagePayload struct {
	Ref      string `json:"ref,omitempty"`
	From     string `json:"from" validate:"required"`
	To       string `json:"to" validate:"required"`
	Text     string `json:"text,omitempty"`
	File     string `json:"file,omitempty" validate:"omitempty,url"`
	FileType string `json:"fileType,omitempty" validate:"omitempty,oneof=image video"`
}

type TypingPayload struct {
	To string `json:"to" validate:"required"`
}

// Record is the wire form of a persisted message.
type Record struct {
	ID        string    `json:"id"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Text      string    `json:"text"`
	File      string    `json:"file,omitempty"`
	FileType  string    `json:"fileType,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type onlineUsersPayload struct {
	Users []string `json:"users"`
}

type messageSentPayload struct {
	Ref    string `json:"ref"`
	Record Record `json:"record"`
}

type typingOutPayload struct {
	From string `json:"from"`
}

type failurePayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Ref     string `json:"ref,omitempty"`
}

func ToRecord(m domain.Message) Record {
	record := Record{
		ID:        m.ID.String(),
		From:      string(m.From),
		To:        string(m.To),
		Text:      m.Text,
		CreatedAt: m.CreatedAt,
	}
	if m.Media != nil {
		record.File = m.Media.URL
		record.FileType = string(m.Media.Kind)
	}
	return record
}

// Encode renders an outbound event as a text frame.
func Encode(e event.Event) ([]byte, error) {
	var data any
	switch evt := e.(type) {
	case event.OnlineUsers:
		data = onlineUsersPayload{Users: lo.Map(evt.Users, func(u domain.UserID, _ int) string { return string(u) })}
	case event.MessageReceived:
		data = ToRecord(evt.Message)
	case event.MessageSent:
		data = messageSentPayload{Ref: evt.Ref, Record: ToRecord(evt.Message)}
	case event.Typing:
		data = typingOutPayload{From: string(evt.From)}
	case event.Failure:
		data = failurePayload{Code: evt.Code, Message: evt.Message, Ref: evt.Ref}
	default:
		return nil, fmt.Errorf("no wire form for event %T", e)
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: e.Name(), Data: raw})
}

func decodeEnvelope(frame []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %w", errors.ErrMalformedEvent, err)
	}
	if env.Event == "" {
		return Envelope{}, fmt.Errorf("%w: event name is required", errors.ErrMalformedEvent)
	}
	return env, nil
}

// decodePayload unmarshals data into v and runs the struct validation.
func decodePayload(data json.RawMessage, v any) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return fmt.Errorf("%w: data is required", errors.ErrMalformedEvent)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %w", errors.ErrMalformedEvent, err)
	}
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %w", errors.ErrMalformedEvent, err)
	}
	return nil
}

// decodeAnnounce accepts both {"userId": "..."} and a bare JSON string.
func decodeAnnounce(data json.RawMessage) (domain.UserID, error) {
	var bare string
	if err := json.Unmarshal(data, &bare); err == nil {
		if bare == "" {
			return "", fmt.Errorf("%w: userId is required", errors.ErrMalformedEvent)
		}
		return domain.UserID(bare), nil
	}
	var payload AnnouncePayload
	if err := decodePayload(data, &payload); err != nil {
		return "", err
	}
	return domain.UserID(payload.UserID), nil
}

func (p SendMessagePayload) check() error {
	if (p.File == "") != (p.FileType == "") {
		return fmt.Errorf("%w: file and fileType go together", errors.ErrMalformedEvent)
	}
	return nil
}

func (p SendMessagePayload) command() domain.SendMessageCommand {
	cmd := domain.SendMessageCommand{
		From: domain.UserID(p.From),
		To:   domain.UserID(p.To),
		Text: p.Text,
		Ref:  p.Ref,
	}
	if p.File != "" {
		cmd.Media = &domain.Media{URL: p.File, Kind: domain.MediaKind(p.FileType)}
	}
	return cmd
}
