package storage

import (
	"chatsphere/domain"
	pb "chatsphere/proto/storage"
	"fmt"
	"time"

	"github.com/google/uuid"
)

func fromMessage(message domain.Message) *pb.Message {
	messagePb := &pb.Message{
		Id:        message.ID.String(),
		From:      string(message.From),
		To:        string(message.To),
		Text:      message.Text,
		CreatedAt: message.CreatedAt.UnixNano(),
		Delivered: message.Delivered,
	}
	if message.Media != nil {
		messagePb.MediaUrl = message.Media.URL
		messagePb.MediaKind = string(message.Media.Kind)
	}
	return messagePb
}

// ToMessage maps a stored record back to the domain.
func ToMessage(messagePb *pb.Message) (domain.Message, error) {
	parsedID, err := uuid.Parse(messagePb.GetId())
	if err != nil {
		return domain.Message{}, fmt.Errorf("stored message has invalid id %q: %w", messagePb.GetId(), err)
	}
	message := domain.Message{
		ID:        parsedID,
		From:      domain.UserID(messagePb.GetFrom()),
		To:        domain.UserID(messagePb.GetTo()),
		Text:      messagePb.GetText(),
		CreatedAt: time.Unix(0, messagePb.GetCreatedAt()).UTC(),
		Delivered: messagePb.GetDelivered(),
	}
	if messagePb.GetMediaUrl() != "" {
		message.Media = &domain.Media{URL: messagePb.GetMediaUrl(), Kind: domain.MediaKind(messagePb.GetMediaKind())}
	}
	return message, nil
}
