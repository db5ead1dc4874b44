package redis_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/pos-analytics/store/redis"
)

func TestNew_UnreachableServer(t *testing.T) {
	// GIVEN: An address nothing listens on
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// WHEN: Connecting
	_, err := redis.New(ctx, redis.Config{Addr: "127.0.0.1:1"})

	// THEN: The ping fails
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect to Redis")
}

// Runs against a real server when POS_TEST_REDIS_ADDR is set.
func TestCache_RoundTrip(t *testing.T) {
	addr := os.Getenv("POS_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("POS_TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	c, err := redis.New(ctx, redis.Config{Addr: addr, TTL: time.Minute}, redis.WithKeyPrefix("pos:test:"))
	require.NoError(t, err)
	defer c.Close()
	require.NoError(t, c.Clear(ctx))

	_, ok, err := c.Get(ctx, "sprouts/pos_data.json")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Put(ctx, "sprouts/pos_data.json", []byte(`{"v":1}`)))
	data, ok, err := c.Get(ctx, "sprouts/pos_data.json")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"v":1}`, string(data))

	require.NoError(t, c.Clear(ctx))
	_, ok, err = c.Get(ctx, "sprouts/pos_data.json")
	require.NoError(t, err)
	assert.False(t, ok)
}
