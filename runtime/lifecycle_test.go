package runtime

import (
	"chatsphere/domain"
	"chatsphere/errors"
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLifecycle_Announce_Registers_And_Broadcasts_To_Everyone(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	c := newCore(false)

	// Given a connection that has not announced yet
	lurker, _ := c.open("c0")
	alice, conn := c.open("c1")
	req.Equal(Unannounced, conn.State())
	req.Equal(2, c.directory.Len())

	// When alice announces
	req.NoError(c.lifecycle.Announce(ctx, conn, "alice"))

	// Then she is online and every connection sees it
	req.Equal(Announced, conn.State())
	user, ok := conn.User()
	req.True(ok)
	req.Equal(domain.UserID("alice"), user)
	req.True(c.registry.IsOnline("alice"))
	req.Equal([][]domain.UserID{{"alice"}}, snapshots(drain(lurker)))
	req.Equal([][]domain.UserID{{"alice"}}, snapshots(drain(alice)))
}

func TestLifecycle_Repeated_Announce_Is_A_Refresh(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	c := newCore(false)
	_, conn := c.open("c1")

	req.NoError(c.lifecycle.Announce(ctx, conn, "alice"))
	req.NoError(c.lifecycle.Announce(ctx, conn, "alice"))

	req.Equal([]domain.ConnectionID{"c1"}, c.registry.ConnectionsFor("alice"))
}

func TestLifecycle_Announce_Rejections(t *testing.T) {
	ctx := context.Background()

	t.Run("should reject an empty identity", func(t *testing.T) {
		c := newCore(false)
		_, conn := c.open("c1")
		require.ErrorIs(t, c.lifecycle.Announce(ctx, conn, " "), errors.ErrMalformedEvent)
		require.Equal(t, Unannounced, conn.State())
	})

	t.Run("should reject a second identity", func(t *testing.T) {
		c := newCore(false)
		_, conn := c.open("c1")
		require.NoError(t, c.lifecycle.Announce(ctx, conn, "alice"))
		require.ErrorIs(t, c.lifecycle.Announce(ctx, conn, "bob"), errors.ErrIdentityMismatch)
		require.False(t, c.registry.IsOnline("bob"))
	})

	t.Run("should reject an identity other than the token's", func(t *testing.T) {
		c := newCore(false)
		conn := c.lifecycle.Open(newTestSink("c1"), "alice")
		require.Equal(t, domain.UserID("alice"), conn.Authenticated())
		require.ErrorIs(t, c.lifecycle.Announce(ctx, conn, "mallory"), errors.ErrIdentityMismatch)
		require.NoError(t, c.lifecycle.Announce(ctx, conn, "alice"))
	})

	t.Run("should reject after close", func(t *testing.T) {
		c := newCore(false)
		_, conn := c.open("c1")
		c.lifecycle.Close(ctx, conn)
		require.ErrorIs(t, c.lifecycle.Announce(ctx, conn, "alice"), errors.ErrConnectionClosed)
		require.False(t, c.registry.IsOnline("alice"))
	})
}

func TestLifecycle_Disconnect_Of_Last_Connection(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	c := newCore(false)

	_, alice := c.open("c1")
	bob, bobConn := c.open("c2")
	req.NoError(c.lifecycle.Announce(ctx, alice, "alice"))
	req.NoError(c.lifecycle.Announce(ctx, bobConn, "bob"))
	drain(bob)

	// When alice disconnects her only connection
	c.lifecycle.Close(ctx, alice)

	// Then she is gone and the remaining connections observe it
	req.Equal(Closed, alice.State())
	req.NotContains(c.registry.OnlineUsers(), domain.UserID("alice"))
	req.Equal([][]domain.UserID{{"bob"}}, snapshots(drain(bob)))
	_, ok := c.directory.Get("c1")
	req.False(ok)
}

func TestLifecycle_Disconnect_Of_One_Device_Keeps_User_Online(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	c := newCore(false)

	_, phone := c.open("c2")
	laptop, laptopConn := c.open("c3")
	req.NoError(c.lifecycle.Announce(ctx, phone, "bob"))
	req.NoError(c.lifecycle.Announce(ctx, laptopConn, "bob"))
	drain(laptop)

	c.lifecycle.Close(ctx, phone)

	req.True(c.registry.IsOnline("bob"))
	req.Equal([]domain.ConnectionID{"c3"}, c.registry.ConnectionsFor("bob"))
	req.Equal([][]domain.UserID{{"bob"}}, snapshots(drain(laptop)))
}

func TestLifecycle_Unannounced_Disconnect_Is_Silent(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	c := newCore(false)

	watcher, watcherConn := c.open("c1")
	req.NoError(c.lifecycle.Announce(ctx, watcherConn, "alice"))
	drain(watcher)
	_, lurker := c.open("c2")

	c.lifecycle.Close(ctx, lurker)
	c.lifecycle.Close(ctx, lurker)

	req.Empty(drain(watcher))
	req.Equal(1, c.directory.Len())
	req.Equal(float64(1), c.metrics.Value("chatsphere_connections"))
}
