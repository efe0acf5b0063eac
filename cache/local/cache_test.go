package local

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) *LocalCache {
	c, err := NewCache(Config{GCInterval: time.Minute})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestGetSet(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	err := c.Set(ctx, "key1", "value1", 0)
	require.NoError(t, err)

	v, err := c.Get(ctx, "key1")
	require.NoError(t, err)
	assert.Equal(t, "value1", v)
}

func TestGetMissing(t *testing.T) {
	c := newTestCache(t)
	_, err := c.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTTLExpiry(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	err := c.Set(ctx, "ttl_key", "val", 10*time.Millisecond)
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)
	_, err = c.Get(ctx, "ttl_key")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDel(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	_ = c.Set(ctx, "k", "v", 0)
	_ = c.Del(ctx, "k")
	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestExists(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	_ = c.Set(ctx, "k", "v", 0)
	exists, err := c.Exists(ctx, "k")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestSetNX(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	ok, err := c.SetNX(ctx, "lock", "owner", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.SetNX(ctx, "lock", "other", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok) // already held
}

func TestSetNX_AfterExpiry(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	ok, _ := c.SetNX(ctx, "lock", "a", 10*time.Millisecond)
	require.True(t, ok)
	time.Sleep(20 * time.Millisecond)
	ok, err := c.SetNX(ctx, "lock", "b", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCompareAndDelete(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	_, _ = c.SetNX(ctx, "lock", "owner", time.Minute)

	ok, err := c.CompareAndDelete(ctx, "lock", "intruder")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = c.CompareAndDelete(ctx, "lock", "owner")
	require.NoError(t, err)
	assert.True(t, ok)

	exists, _ := c.Exists(ctx, "lock")
	assert.False(t, exists)
}

func TestIncr_Concurrent(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = c.Incr(ctx, "counter")
		}()
	}
	wg.Wait()

	v, err := c.Get(ctx, "counter")
	require.NoError(t, err)
	assert.Equal(t, "50", v)
}

func TestExpire(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	assert.ErrorIs(t, c.Expire(ctx, "missing", time.Second), ErrNotFound)

	_ = c.Set(ctx, "k", "v", 0)
	require.NoError(t, c.Expire(ctx, "k", 10*time.Millisecond))
	time.Sleep(20 * time.Millisecond)
	exists, _ := c.Exists(ctx, "k")
	assert.False(t, exists)
}
