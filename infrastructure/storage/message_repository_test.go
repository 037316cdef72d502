package storage

import (
	"chatsphere/domain"
	pb "chatsphere/proto/storage"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
)

func openDB(t *testing.T) *badger.DB {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newMessage(from, to domain.UserID, text string, at time.Time) domain.Message {
	return domain.Message{ID: uuid.New(), From: from, To: to, Text: text, CreatedAt: at}
}

func Test_Create_And_Find_Conversation_Oldest_First(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repository := NewMessageRepository(openDB(t), slog.Default(), nil)
	at := time.Now().UTC()

	// Given a conversation in both directions and an unrelated one
	conversation := []domain.Message{
		newMessage("alice", "bob", "hi", at),
		newMessage("bob", "alice", "hello", at.Add(time.Second)),
		newMessage("alice", "bob", "how are you?", at.Add(2*time.Second)),
	}
	unrelated := newMessage("alice", "clara", "psst", at.Add(time.Millisecond))

	// Stored out of order
	for _, m := range []domain.Message{conversation[2], unrelated, conversation[0], conversation[1]} {
		stored, err := repository.CreateMessage(ctx, m)
		req.NoError(err)
		req.Equal(m, stored)
	}

	// When fetching from either side
	fromAlice, err := repository.FindMessagesBetween(ctx, "alice", "bob")
	req.NoError(err)
	fromBob, err := repository.FindMessagesBetween(ctx, "bob", "alice")
	req.NoError(err)

	// Then only that conversation comes back, sorted by creation time
	req.Len(fromAlice, 3)
	for i := range conversation {
		req.Equal(conversation[i].ID, fromAlice[i].ID)
		req.Equal(conversation[i].Text, fromAlice[i].Text)
		req.True(conversation[i].CreatedAt.Equal(fromAlice[i].CreatedAt))
	}
	req.Equal(fromAlice, fromBob)
}

func Test_Find_Keeps_Latest_Messages_When_Limited(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	limit := 2
	repository := NewMessageRepository(openDB(t), slog.Default(), &limit)
	at := time.Now().UTC()

	messages := []domain.Message{
		newMessage("alice", "bob", "one", at),
		newMessage("alice", "bob", "two", at.Add(time.Minute)),
		newMessage("alice", "bob", "three", at.Add(2*time.Minute)),
	}
	for _, m := range messages {
		_, err := repository.CreateMessage(ctx, m)
		req.NoError(err)
	}

	fetched, err := repository.FindMessagesBetween(ctx, "alice", "bob")
	req.NoError(err)
	req.Len(fetched, limit)
	req.Equal("two", fetched[0].Text)
	req.Equal("three", fetched[1].Text)
}

func Test_Find_Unknown_Conversation_Is_Empty(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openDB(t), slog.Default(), nil)

	fetched, err := repository.FindMessagesBetween(context.Background(), "nobody", "else")
	req.NoError(err)
	req.Empty(fetched)
}

func Test_User_Ids_With_Separators_Do_Not_Collide(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repository := NewMessageRepository(openDB(t), slog.Default(), nil)
	at := time.Now().UTC()

	_, err := repository.CreateMessage(ctx, newMessage("a:b", "c", "first", at))
	req.NoError(err)
	_, err = repository.CreateMessage(ctx, newMessage("a", "b:c", "second", at))
	req.NoError(err)

	fetched, err := repository.FindMessagesBetween(ctx, "a:b", "c")
	req.NoError(err)
	req.Len(fetched, 1)
	req.Equal("first", fetched[0].Text)
}

func Test_Create_With_Canceled_Context_Fails(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openDB(t), slog.Default(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := repository.CreateMessage(ctx, newMessage("alice", "bob", "late", time.Now()))
	req.ErrorIs(err, context.Canceled)
}

func Test_Message_Codec_Keeps_Media_And_Skips_Unknown_Fields(t *testing.T) {
	req := require.New(t)
	message := newMessage("alice", "bob", "", time.Unix(0, 1700000000123456789).UTC())
	message.Media = &domain.Media{URL: "http://localhost:8080/media/x.png", Kind: domain.MediaImage}

	value, err := proto.Marshal(fromMessage(message))
	req.NoError(err)
	// A field written by a newer version is appended
	value = append(value, 0x4a, 0x01, 0x7a) // field 9, bytes, "z"

	var messagePb pb.Message
	req.NoError(proto.Unmarshal(value, &messagePb))
	decoded, err := ToMessage(&messagePb)
	req.NoError(err)
	req.Equal(message, decoded)
}

func Test_Message_Codec_Rejects_Invalid_ID(t *testing.T) {
	_, err := ToMessage(&pb.Message{Id: "not-a-uuid", From: "alice", To: "bob"})
	require.Error(t, err)
}
