package catalog

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type countingLookup struct {
	snap  *Snapshot
	calls int
}

func (c *countingLookup) Snapshot(_ context.Context, _ Refs) (*Snapshot, error) {
	c.calls++
	return c.snap, nil
}

func TestCachedLookupServesRepeatedRefsFromRedis(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	snap := NewSnapshot()
	snap.Sizes["m"] = Size{ID: "m", Name: "Medium", BasePrice: 1200, IsActive: true}
	next := &countingLookup{snap: snap}
	lookup := CachedLookup{Next: next, Cache: NewCache(client, time.Minute)}

	ctx := context.Background()
	first, err := lookup.Snapshot(ctx, Refs{SizeIDs: []string{"m"}})
	require.NoError(t, err)
	second, err := lookup.Snapshot(ctx, Refs{SizeIDs: []string{"m", "m"}})
	require.NoError(t, err)

	require.Equal(t, 1, next.calls)
	size, err := second.Size("m")
	require.NoError(t, err)
	require.Equal(t, first.Sizes["m"], size)

	mr.FastForward(2 * time.Minute)
	_, err = lookup.Snapshot(ctx, Refs{SizeIDs: []string{"m"}})
	require.NoError(t, err)
	require.Equal(t, 2, next.calls)
}

func TestCachedLookupWithoutCacheDelegates(t *testing.T) {
	next := &countingLookup{snap: NewSnapshot()}
	lookup := CachedLookup{Next: next, Cache: NewCache(nil, time.Minute)}
	for i := 0; i < 3; i++ {
		_, err := lookup.Snapshot(context.Background(), Refs{})
		require.NoError(t, err)
	}
	require.Equal(t, 3, next.calls)
}
