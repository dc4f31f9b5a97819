package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/segmentio/encoding/json"
)

const keyPrefix = "session:"

// RedisStore keeps sessions across restarts. Entries expire after ttl so an
// abandoned prompt does not linger forever.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

// NewRedisClient parses a redis:// URL and pings the server.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("неверный REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis недоступен: %w", err)
	}
	return client, nil
}

func key(userID int64) string {
	return keyPrefix + strconv.FormatInt(userID, 10)
}

func (r *RedisStore) Get(ctx context.Context, userID int64) (State, error) {
	raw, err := r.client.Get(ctx, key(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return State{}, nil
		}
		return State{}, err
	}

	var state State
	if err := json.Unmarshal(raw, &state); err != nil {
		return State{}, fmt.Errorf("повреждена сессия %d: %w", userID, err)
	}
	return state, nil
}

func (r *RedisStore) Set(ctx context.Context, userID int64, state State) error {
	current, err := r.Get(ctx, userID)
	if err != nil {
		return err
	}
	if err := checkTransition(current.Step, state.Step); err != nil {
		return err
	}
	if state.Step == StepNone {
		return r.Clear(ctx, userID)
	}

	raw, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key(userID), raw, r.ttl).Err()
}

func (r *RedisStore) Clear(ctx context.Context, userID int64) error {
	return r.client.Del(ctx, key(userID)).Err()
}
