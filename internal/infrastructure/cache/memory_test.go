package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMemoryCacheSetGet(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	c.Set(ctx, "asset_data:1", []byte(`{"id":1}`), time.Minute)

	val, ok := c.Get(ctx, "asset_data:1")
	assert.True(t, ok)
	assert.Equal(t, []byte(`{"id":1}`), val)

	_, ok = c.Get(ctx, "asset_data:2")
	assert.False(t, ok)
}

func TestMemoryCacheExpiry(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	c.Set(ctx, "k", []byte("v"), 10*time.Millisecond)
	time.Sleep(25 * time.Millisecond)

	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)
}

func TestMemoryCacheDelete(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	c.Set(ctx, "k", []byte("v"), 0)
	c.Delete(ctx, "k")

	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)
}

func TestMemoryCacheZeroTTLNeverExpires(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	c.Set(ctx, "k", []byte("v"), 0)
	time.Sleep(15 * time.Millisecond)

	val, ok := c.Get(ctx, "k")
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), val)
}
