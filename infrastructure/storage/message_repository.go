package storage

import (
	"chatsphere/domain"
	pb "chatsphere/proto/storage"
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
	"github.com/samber/lo"
	"google.golang.org/protobuf/proto"
)

const MessagePrefix = "msg:"

type MessageRepository struct {
	db            *badger.DB
	log           *slog.Logger
	limitMessages *int
}

// NewMessageRepository returns a store for direct messages.
// limitMessages caps how many of the latest messages a history read returns;
// nil means no cap.
func NewMessageRepository(db *badger.DB, log *slog.Logger, limitMessages *int) *MessageRepository {
	return &MessageRepository{db: db, log: log, limitMessages: limitMessages}
}

// CreateMessage persists a message in BadgerDB.
// The key is formatted as "msg:{conversation}:{timestamp_padded}:{uuid}" to:
//  1. Keep both directions of a conversation under one prefix.
//  2. Ensure chronological sorting using 19-digit zero padding (lexicographical order).
//  3. Prevent data loss by using the UUID as a tie breaker when two messages
//     share the same nanosecond.
func (m *MessageRepository) CreateMessage(ctx context.Context, message domain.Message) (domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return domain.Message{}, err
	}
	key := messageKey(message)
	value, err := proto.Marshal(fromMessage(message))
	if err != nil {
		return domain.Message{}, fmt.Errorf("encoding message %s: %w", message.ID, err)
	}

	err = m.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
	if err != nil {
		return domain.Message{}, fmt.Errorf("storing message %s: %w", message.ID, err)
	}
	return message, nil
}

// FindMessagesBetween returns the conversation between two users, oldest first.
// With a limit, only the most recent messages are kept.
func (m *MessageRepository) FindMessagesBetween(ctx context.Context, userA, userB domain.UserID) ([]domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	prefix := []byte(conversationPrefix(userA, userB))
	var messages []domain.Message

	err := m.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		// Seek past the largest possible timestamp, then walk backwards
		seekKey := append(append([]byte{}, prefix...), []byte("9999999999999999999")...)
		for it.Seek(seekKey); it.ValidForPrefix(prefix); it.Next() {
			if m.limitMessages != nil && len(messages) == *m.limitMessages {
				m.log.Debug(fmt.Sprintf("Maximum of %d message reached", *m.limitMessages))
				break
			}
			err := it.Item().Value(func(value []byte) error {
				var messagePb pb.Message
				if err := proto.Unmarshal(value, &messagePb); err != nil {
					return err
				}
				message, err := ToMessage(&messagePb)
				if err != nil {
					return err
				}
				messages = append(messages, message)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return lo.Reverse(messages), nil
}

func messageKey(message domain.Message) []byte {
	return []byte(fmt.Sprintf("%s%019d:%s",
		conversationPrefix(message.From, message.To),
		message.CreatedAt.UnixNano(),
		message.ID,
	))
}

// conversationPrefix is direction independent. User ids are base64 encoded
// so that a ':' inside an id cannot collide with the key separators.
func conversationPrefix(a, b domain.UserID) string {
	if b < a {
		a, b = b, a
	}
	return fmt.Sprintf("%s%s.%s:", MessagePrefix, encodeUser(a), encodeUser(b))
}

func encodeUser(u domain.UserID) string {
	return base64.RawURLEncoding.EncodeToString([]byte(u))
}
