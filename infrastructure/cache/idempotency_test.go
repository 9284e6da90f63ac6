package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryIdempotencyStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryIdempotencyStore(time.Minute)

	_, found, _, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)

	ok, err := s.Claim(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, _ = s.Claim(ctx, "k")
	assert.False(t, ok, "second claim must lose")

	_, found, done, _ := s.Get(ctx, "k")
	assert.True(t, found)
	assert.False(t, done)

	require.NoError(t, s.Complete(ctx, "k", "group-1"))
	val, found, done, _ := s.Get(ctx, "k")
	assert.True(t, found)
	assert.True(t, done)
	assert.Equal(t, "group-1", val)

	assert.Error(t, s.Complete(ctx, "k", " "))
}

func TestMemoryIdempotencyStore_ReleaseAllowsRetry(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryIdempotencyStore(0)
	assert.Equal(t, DefaultTTL, s.ttl)

	ok, _ := s.Claim(ctx, "k")
	require.True(t, ok)
	require.NoError(t, s.Release(ctx, "k"))
	ok, _ = s.Claim(ctx, "k")
	assert.True(t, ok)
}

func TestMemoryIdempotencyStore_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	s := NewMemoryIdempotencyStore(time.Minute)
	s.now = func() time.Time { return now }

	require.NoError(t, s.Complete(ctx, "k", "group-1"))
	now = now.Add(59 * time.Second)
	_, found, _, _ := s.Get(ctx, "k")
	assert.True(t, found)

	now = now.Add(time.Second)
	_, found, _, _ = s.Get(ctx, "k")
	assert.False(t, found)
	ok, _ := s.Claim(ctx, "k")
	assert.True(t, ok)
}
