package runtime

import (
	"chatsphere/domain"
	"chatsphere/domain/event"
	"chatsphere/errors"
	"chatsphere/mocks"
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestTypingRelay_Start_Then_Stop(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	c := newCore(false)
	relay := NewTypingRelay(c.log, c.registry, c.directory, c.metrics)

	bob, conn := c.open("c2")
	req.NoError(c.lifecycle.Announce(ctx, conn, "bob"))
	drain(bob)

	n, err := relay.Relay(ctx, domain.TypingCommand{From: "alice", To: "bob", Kind: domain.TypingStart})
	req.NoError(err)
	req.Equal(1, n)
	n, err = relay.Relay(ctx, domain.TypingCommand{From: "alice", To: "bob", Kind: domain.TypingStop})
	req.NoError(err)
	req.Equal(1, n)

	events := drain(bob)
	req.Equal([]event.Event{
		event.Typing{From: "alice", Kind: domain.TypingStart},
		event.Typing{From: "alice", Kind: domain.TypingStop},
	}, events)
	req.Equal("typing", events[0].Name())
	req.Equal("stop-typing", events[1].Name())
}

func TestTypingRelay_Offline_Destination_Has_No_Effect(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	c := newCore(false)
	relay := NewTypingRelay(c.log, c.registry, c.directory, c.metrics)

	alice, conn := c.open("c1")
	req.NoError(c.lifecycle.Announce(ctx, conn, "alice"))
	drain(alice)

	for _, kind := range []domain.TypingKind{domain.TypingStart, domain.TypingStop} {
		n, err := relay.Relay(ctx, domain.TypingCommand{From: "alice", To: "bob", Kind: kind})
		req.NoError(err)
		req.Zero(n)
	}
	req.Empty(drain(alice))
}

func TestTypingRelay_Rejects_Malformed(t *testing.T) {
	req := require.New(t)
	c := newCore(false)
	relay := NewTypingRelay(c.log, c.registry, c.directory, c.metrics)

	_, err := relay.Relay(context.Background(), domain.TypingCommand{From: "alice", Kind: domain.TypingStart})
	req.ErrorIs(err, errors.ErrMalformedEvent)
	_, err = relay.Relay(context.Background(), domain.TypingCommand{From: "alice", To: "bob", Kind: "pause"})
	req.ErrorIs(err, errors.ErrMalformedEvent)
}

func TestTypingRelay_Failing_Connection_Does_Not_Stop_Others(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	registry := mocks.NewMockIRegistry(ctrl)
	directory := mocks.NewMockIConnectionDirectory(ctrl)
	broken := mocks.NewMockEventSink(ctrl)
	healthy := mocks.NewMockEventSink(ctrl)
	c := newCore(false)
	relay := NewTypingRelay(c.log, registry, directory, c.metrics)

	registry.EXPECT().ConnectionsFor(domain.UserID("bob")).Return([]domain.ConnectionID{"c2", "c3", "gone"})
	directory.EXPECT().Get(domain.ConnectionID("c2")).Return(broken, true)
	directory.EXPECT().Get(domain.ConnectionID("c3")).Return(healthy, true)
	directory.EXPECT().Get(domain.ConnectionID("gone")).Return(nil, false)
	broken.EXPECT().Consume(gomock.Any(), gomock.Any()).Return(errors.ErrSlowConsumer)
	healthy.EXPECT().Consume(gomock.Any(), event.Typing{From: "alice", Kind: domain.TypingStart}).Return(nil)

	n, err := relay.Relay(ctx, domain.TypingCommand{From: "alice", To: "bob", Kind: domain.TypingStart})

	req.NoError(err)
	req.Equal(1, n)
	req.Equal(float64(1), c.metrics.Value("chatsphere_dropped_events_total"))
}
