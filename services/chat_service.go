package services

import (
	"chatsphere/contract"
	"chatsphere/domain"
	"chatsphere/runtime"
	"context"
	"fmt"
	"io"
	"log/slog"
)

// IChatService is what the transports (websocket and REST) see of the core.
type IChatService interface {
	Connect(sink contract.EventSink, authenticated domain.UserID) *runtime.Connection
	Announce(ctx context.Context, conn *runtime.Connection, user domain.UserID) error
	Disconnect(ctx context.Context, conn *runtime.Connection)
	SendMessage(ctx context.Context, cmd domain.SendMessageCommand) (runtime.Delivery, error)
	Typing(ctx context.Context, cmd domain.TypingCommand) (int, error)
	GetMessages(ctx context.Context, cmd domain.GetHistoryCommand) ([]domain.Message, error)
	UploadMedia(ctx context.Context, cmd domain.SendMessageCommand, content io.Reader) (runtime.Delivery, error)
	OpenMedia(name string) (io.ReadSeekCloser, error)
	OnlineUsers() []domain.UserID
}

type ChatService struct {
	log          *slog.Logger
	orchestrator *runtime.Orchestrator
	blobs        contract.IBlobStore
}

func NewChatService(log *slog.Logger, o *runtime.Orchestrator, blobs contract.IBlobStore) *ChatService {
	return &ChatService{log: log, orchestrator: o, blobs: blobs}
}

func (s *ChatService) Connect(sink contract.EventSink, authenticated domain.UserID) *runtime.Connection {
	return s.orchestrator.Connect(sink, authenticated)
}

func (s *ChatService) Announce(ctx context.Context, conn *runtime.Connection, user domain.UserID) error {
	return s.orchestrator.Announce(ctx, conn, user)
}

func (s *ChatService) Disconnect(ctx context.Context, conn *runtime.Connection) {
	s.orchestrator.Disconnect(ctx, conn)
}

func (s *ChatService) SendMessage(ctx context.Context, cmd domain.SendMessageCommand) (runtime.Delivery, error) {
	return s.orchestrator.SendMessage(ctx, cmd)
}

func (s *ChatService) Typing(ctx context.Context, cmd domain.TypingCommand) (int, error) {
	return s.orchestrator.Typing(ctx, cmd)
}

func (s *ChatService) GetMessages(ctx context.Context, cmd domain.GetHistoryCommand) ([]domain.Message, error) {
	return s.orchestrator.History(ctx, cmd)
}

// UploadMedia stores the content first, then sends a message pointing at it
// through the regular delivery pipeline. The blob is removed again when the
// message cannot be sent.
func (s *ChatService) UploadMedia(ctx context.Context, cmd domain.SendMessageCommand, content io.Reader) (runtime.Delivery, error) {
	media, err := s.blobs.Put(ctx, content)
	if err != nil {
		return runtime.Delivery{}, fmt.Errorf("storing media: %w", err)
	}
	cmd.Media = &media
	delivery, err := s.orchestrator.SendMessage(ctx, cmd)
	if err != nil {
		if removeErr := s.blobs.Delete(media); removeErr != nil {
			s.log.Warn("Media stored but message not sent", "url", media.URL, "error", removeErr)
		}
		return runtime.Delivery{}, err
	}
	return delivery, nil
}

func (s *ChatService) OpenMedia(name string) (io.ReadSeekCloser, error) {
	return s.blobs.Open(name)
}

func (s *ChatService) OnlineUsers() []domain.UserID {
	return s.orchestrator.OnlineUsers()
}
