package publisher

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisPublisher(t *testing.T) {
	ctx := context.Background()
	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   0,
	})

	// Test if Redis is available
	if _, err := client.Ping(ctx).Result(); err != nil {
		client.Close()
		t.Skip("Redis is not available, skipping test")
	}

	stream := "test_listings_" + time.Now().Format("150405.000000")
	publisher := NewRedisPublisher(ctx, client, stream, 2)
	defer publisher.Close()
	defer client.Del(ctx, stream)

	err := client.XGroupCreateMkStream(ctx, stream, "test_group", "$").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		t.Fatal(err)
	}

	require.NoError(t, publisher.Publish("salem", []byte("test_message")))

	res, err := client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Streams:  []string{stream, ">"},
		Group:    "test_group",
		Consumer: "test_consumer",
		Count:    1,
		Block:    time.Second,
	}).Result()
	require.NoError(t, err)
	require.Len(t, res, 1)
	values := res[0].Messages[0].Values
	assert.Equal(t, "salem", values["source"])
	// The message should be base64 encoded
	assert.Equal(t, "dGVzdF9tZXNzYWdl", values[MessageField])

	for i := 0; i < 5; i++ {
		require.NoError(t, publisher.Publish("yc", []byte("m")))
	}
	require.NoError(t, publisher.TrimStreams())
	length, err := client.XLen(ctx, stream).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(2), length)
}
