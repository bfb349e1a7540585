package cache

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryClient_SetGet(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryClient(10)

	require.NoError(t, c.Set(ctx, "match:abc", []byte(`{"tier":"exact"}`), time.Minute))

	got, err := c.Get(ctx, "match:abc")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"tier":"exact"}`), got)
}

func TestMemoryClient_MissIsErrCacheMiss(t *testing.T) {
	c := NewMemoryClient(10)

	_, err := c.Get(context.Background(), "match:unknown")
	assert.True(t, errors.Is(err, ErrCacheMiss))
}

func TestMemoryClient_ExpiredEntryMisses(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryClient(10)

	require.NoError(t, c.Set(ctx, "match:abc", []byte("v"), -time.Second))

	_, err := c.Get(ctx, "match:abc")
	assert.True(t, errors.Is(err, ErrCacheMiss))
}

func TestMemoryClient_DeleteByPrefix(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryClient(10)

	require.NoError(t, c.Set(ctx, "match:a", []byte("1"), time.Minute))
	require.NoError(t, c.Set(ctx, "match:b", []byte("2"), time.Minute))
	require.NoError(t, c.Set(ctx, "other:c", []byte("3"), time.Minute))

	require.NoError(t, c.DeleteByPrefix(ctx, "match:"))

	_, err := c.Get(ctx, "match:a")
	assert.True(t, errors.Is(err, ErrCacheMiss))
	_, err = c.Get(ctx, "match:b")
	assert.True(t, errors.Is(err, ErrCacheMiss))

	got, err := c.Get(ctx, "other:c")
	require.NoError(t, err)
	assert.Equal(t, []byte("3"), got)
}

func TestMemoryClient_EvictsAtCapacity(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryClient(3)

	// The earliest deadline is the eviction victim.
	require.NoError(t, c.Set(ctx, "k0", []byte("0"), time.Second))
	for i := 1; i < 4; i++ {
		key := fmt.Sprintf("k%d", i)
		require.NoError(t, c.Set(ctx, key, []byte(key), time.Hour))
	}

	_, err := c.Get(ctx, "k0")
	assert.True(t, errors.Is(err, ErrCacheMiss))

	got, err := c.Get(ctx, "k3")
	require.NoError(t, err)
	assert.Equal(t, []byte("k3"), got)
}

func TestNopClient_NeverStores(t *testing.T) {
	ctx := context.Background()
	c := NewNopClient()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))

	_, err := c.Get(ctx, "k")
	assert.True(t, errors.Is(err, ErrCacheMiss))
	assert.NoError(t, c.Close())
}
