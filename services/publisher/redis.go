package publisher

import (
	"context"
	"encoding/base64"

	"github.com/redis/go-redis/v9"
)

// MessageField is the stream field holding the base64 encoded listing JSON
const MessageField = "b64_listing"

// RedisPublisher implements Publisher using a Redis stream
type RedisPublisher struct {
	client          redis.UniversalClient
	ctx             context.Context
	stream          string
	streamMaxLength int64
}

// NewRedisPublisher creates a publisher writing to stream
func NewRedisPublisher(ctx context.Context, client redis.UniversalClient, stream string, streamMaxLength int) *RedisPublisher {
	return &RedisPublisher{
		client:          client,
		ctx:             ctx,
		stream:          stream,
		streamMaxLength: int64(streamMaxLength),
	}
}

// Publish adds a message to the stream.
// The message is base64 encoded before publishing
func (p *RedisPublisher) Publish(source string, message []byte) error {
	encodedMessage := base64.StdEncoding.EncodeToString(message)

	return p.client.XAdd(p.ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]interface{}{
			"source":     source,
			MessageField: encodedMessage,
		},
	}).Err()
}

// TrimStreams trims the stream to the configured maximum length
func (p *RedisPublisher) TrimStreams() error {
	if p.streamMaxLength <= 0 {
		return nil
	}
	return p.client.XTrimMaxLen(p.ctx, p.stream, p.streamMaxLength).Err()
}

// Close closes the Redis connection
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
