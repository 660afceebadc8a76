package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRUGetSet(t *testing.T) {
	ctx := context.Background()
	c, err := NewLRU(2)
	require.NoError(t, err)

	_, ok := c.Get(ctx, "a")
	assert.False(t, ok)

	value := []byte("one")
	require.NoError(t, c.Set(ctx, "a", value))
	value[0] = 'X'

	got, ok := c.Get(ctx, "a")
	require.True(t, ok)
	assert.Equal(t, []byte("one"), got)
}

func TestLRUEvictsOldest(t *testing.T) {
	ctx := context.Background()
	c, err := NewLRU(2)
	require.NoError(t, err)

	require.NoError(t, c.Set(ctx, "a", []byte("1")))
	require.NoError(t, c.Set(ctx, "b", []byte("2")))
	_, _ = c.Get(ctx, "a")
	require.NoError(t, c.Set(ctx, "c", []byte("3")))

	_, ok := c.Get(ctx, "b")
	assert.False(t, ok, "b was least recently used")
	_, ok = c.Get(ctx, "a")
	assert.True(t, ok)
	assert.Equal(t, 2, c.Len())
}

func TestNewLRURejectsNonPositiveSize(t *testing.T) {
	_, err := NewLRU(0)
	assert.Error(t, err)
}

func TestRedisUnreachableIsMiss(t *testing.T) {
	r := NewRedis("127.0.0.1:1", "", 0, "body-analyzer:", time.Minute)
	defer r.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, ok := r.Get(ctx, "missing")
	assert.False(t, ok)
	assert.Error(t, r.Set(ctx, "k", []byte("v")))
	assert.Equal(t, "body-analyzer:k", r.key("k"))
}
