package dedup

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "sjsage522/listingscout/pkg/errors"
)

const redisProvider = "state-redis"

// RedisBackend keeps the seen ids in a hash and the last run in a string key.
// A commit builds a temporary hash and renames it over the live one inside
// MULTI/EXEC.
type RedisBackend struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisBackend creates a backend under the given key prefix
func NewRedisBackend(client redis.UniversalClient, prefix string) *RedisBackend {
	return &RedisBackend{client: client, prefix: prefix}
}

func (r *RedisBackend) seenKey() string    { return r.prefix + ":seen" }
func (r *RedisBackend) tmpKey() string     { return r.prefix + ":seen:tmp" }
func (r *RedisBackend) lastRunKey() string { return r.prefix + ":last_run" }

// Load reads the seen hash and the last run
func (r *RedisBackend) Load(ctx context.Context) (State, error) {
	fields, err := r.client.HGetAll(ctx, r.seenKey()).Result()
	if err != nil {
		return State{}, apperrors.NewPersistence(redisProvider, "failed to read "+r.seenKey(), err)
	}
	state := NewState()
	for id, value := range fields {
		at, err := time.Parse(time.RFC3339Nano, value)
		if err != nil {
			return State{}, apperrors.NewPersistence(redisProvider, "corrupt timestamp for "+id, err)
		}
		state.Seen[id] = at
	}

	lastRun, err := r.client.Get(ctx, r.lastRunKey()).Result()
	switch {
	case errors.Is(err, redis.Nil):
	case err != nil:
		return State{}, apperrors.NewPersistence(redisProvider, "failed to read "+r.lastRunKey(), err)
	default:
		if state.LastRun, err = time.Parse(time.RFC3339Nano, lastRun); err != nil {
			return State{}, apperrors.NewPersistence(redisProvider, "corrupt last run", err)
		}
	}
	return state, nil
}

// Commit replaces the stored state in one transaction
func (r *RedisBackend) Commit(ctx context.Context, state State) error {
	values := make([]interface{}, 0, 2*len(state.Seen))
	for id, at := range state.Seen {
		values = append(values, id, at.UTC().Format(time.RFC3339Nano))
	}

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, r.tmpKey())
		if len(values) == 0 {
			pipe.Del(ctx, r.seenKey())
		} else {
			pipe.HSet(ctx, r.tmpKey(), values...)
			pipe.Rename(ctx, r.tmpKey(), r.seenKey())
		}
		if state.LastRun.IsZero() {
			pipe.Del(ctx, r.lastRunKey())
		} else {
			pipe.Set(ctx, r.lastRunKey(), state.LastRun.UTC().Format(time.RFC3339Nano), 0)
		}
		return nil
	})
	if err != nil {
		return apperrors.NewPersistence(redisProvider, "failed to commit state", err)
	}
	return nil
}
