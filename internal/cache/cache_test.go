package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemory(t *testing.T) {
	ctx := context.Background()

	t.Run("miss", func(t *testing.T) {
		require := require.New(t)
		_, ok, err := NewMemory(time.Minute).Get(ctx, "https://example.social/users/alice")
		require.NoError(err)
		require.False(ok)
	})
	t.Run("hit", func(t *testing.T) {
		require := require.New(t)
		c := NewMemory(time.Minute)
		val := []byte(`{"id":"https://example.social/users/alice"}`)
		require.NoError(c.Set(ctx, "alice", val))
		val[0] = 'X'

		got, ok, err := c.Get(ctx, "alice")
		require.NoError(err)
		require.True(ok)
		require.Equal(`{"id":"https://example.social/users/alice"}`, string(got))
	})
	t.Run("expiry", func(t *testing.T) {
		require := require.New(t)
		now := time.Now()
		c := NewMemory(time.Minute)
		c.now = func() time.Time { return now }
		require.NoError(c.Set(ctx, "alice", []byte("a")))

		now = now.Add(59 * time.Second)
		_, ok, err := c.Get(ctx, "alice")
		require.NoError(err)
		require.True(ok)

		now = now.Add(time.Second)
		_, ok, err = c.Get(ctx, "alice")
		require.NoError(err)
		require.False(ok)
		require.Empty(c.entries)
	})
	t.Run("set sweeps expired entries", func(t *testing.T) {
		require := require.New(t)
		now := time.Now()
		c := NewMemory(time.Minute)
		c.now = func() time.Time { return now }
		require.NoError(c.Set(ctx, "https://example.social/users/alice", []byte("a")))

		now = now.Add(30 * time.Second)
		require.NoError(c.Set(ctx, "https://example.social/users/bob", []byte("b")))
		require.Len(c.entries, 2)

		// alice was never read again after expiring
		now = now.Add(45 * time.Second)
		require.NoError(c.Set(ctx, "https://example.social/users/carol", []byte("c")))
		require.Len(c.entries, 2)
		require.NotContains(c.entries, "https://example.social/users/alice")
		require.Contains(c.entries, "https://example.social/users/bob")
	})
}

func TestNop(t *testing.T) {
	require := require.New(t)
	var c Cache = Nop{}
	require.NoError(c.Set(context.Background(), "k", []byte("v")))
	_, ok, err := c.Get(context.Background(), "k")
	require.NoError(err)
	require.False(ok)
}
