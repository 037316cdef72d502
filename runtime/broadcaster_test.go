package runtime

import (
	"chatsphere/contract"
	"chatsphere/domain"
	"chatsphere/domain/event"
	"chatsphere/mocks"
	"chatsphere/sink"
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestBroadcaster_Every_Membership_Change_By_Default(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	c := newCore(false)

	watcher, _ := c.open("c0")
	_, phone := c.open("c1")
	_, laptop := c.open("c2")

	req.NoError(c.lifecycle.Announce(ctx, phone, "bob"))
	req.NoError(c.lifecycle.Announce(ctx, laptop, "bob"))

	// A second device does not change the set but is still broadcast
	req.Equal([][]domain.UserID{{"bob"}, {"bob"}}, snapshots(drain(watcher)))
	req.Equal(float64(2), c.metrics.Value("chatsphere_presence_broadcasts_total"))
	req.Equal(float64(1), c.metrics.Value("chatsphere_online_users"))
}

func TestBroadcaster_Edge_Triggered_Skips_Unchanged_Sets(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	c := newCore(true)

	watcher, _ := c.open("c0")
	_, phone := c.open("c1")
	_, laptop := c.open("c2")

	req.NoError(c.lifecycle.Announce(ctx, phone, "bob"))
	req.NoError(c.lifecycle.Announce(ctx, laptop, "bob"))
	c.lifecycle.Close(ctx, phone)
	c.lifecycle.Close(ctx, laptop)

	req.Equal([][]domain.UserID{{"bob"}, {}}, snapshots(drain(watcher)))
}

func TestBroadcaster_Skips_Failing_Sinks(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	registry := mocks.NewMockIRegistry(ctrl)
	directory := mocks.NewMockIConnectionDirectory(ctrl)
	full := mocks.NewMockEventSink(ctrl)
	c := newCore(false)
	healthy := sink.NewConnectionSink("ok", 4)
	broadcaster := NewPresenceBroadcaster(c.log, registry, directory, c.metrics, false)

	registry.EXPECT().OnlineUsers().Return([]domain.UserID{"alice"})
	directory.EXPECT().All().Return([]contract.EventSink{full, healthy})
	full.EXPECT().Consume(gomock.Any(), gomock.Any()).Return(fmt.Errorf("buffer full"))
	full.EXPECT().ID().Return(domain.ConnectionID("full")).AnyTimes()

	broadcaster.Broadcast(context.Background())

	req.Equal([]event.Event{event.OnlineUsers{Users: []domain.UserID{"alice"}}}, drain(healthy))
	req.Equal(float64(1), c.metrics.Value("chatsphere_dropped_events_total"))
}

func TestBroadcaster_Concurrent_Changes_Converge(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	c := newCore(false)

	watchers := make([]*sink.ConnectionSink, 0, 5)
	for i := 0; i < 5; i++ {
		w, _ := c.open(domain.ConnectionID(fmt.Sprintf("watcher-%d", i)))
		watchers = append(watchers, w)
	}

	// Users join concurrently; every third one leaves again
	var wg sync.WaitGroup
	for i := 0; i < 60; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, conn := c.open(domain.ConnectionID(fmt.Sprintf("c%d", i)))
			if err := c.lifecycle.Announce(ctx, conn, domain.UserID(fmt.Sprintf("user-%02d", i))); err != nil {
				t.Error(err)
			}
			if i%3 == 0 {
				c.lifecycle.Close(ctx, conn)
			}
		}(i)
	}
	wg.Wait()

	final := c.registry.OnlineUsers()
	req.Len(final, 40)
	for _, w := range watchers {
		seen := snapshots(drain(w))
		req.NotEmpty(seen)
		req.Equal(final, seen[len(seen)-1])
	}
}
