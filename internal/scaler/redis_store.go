package scaler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps scaler states under "<prefix>:scaler:<instrument>".
type RedisStore struct {
	client *redis.Client
	prefix string
}

// DialRedis opens a client and verifies it with a ping.
func DialRedis(addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		PoolSize:     10,
		PoolTimeout:  30 * time.Second,
		MinIdleConns: 2,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "sentinel"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (r *RedisStore) key(instrument string) string {
	return fmt.Sprintf("%s:scaler:%s", r.prefix, instrument)
}

// Save overwrites the state without expiry.
func (r *RedisStore) Save(ctx context.Context, st *State) error {
	data, err := json.Marshal(st)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, r.key(st.Instrument), data, 0).Err(); err != nil {
		return fmt.Errorf("save scaler %s: %w", st.Instrument, err)
	}
	return nil
}

func (r *RedisStore) Load(ctx context.Context, instrument string) (*State, error) {
	data, err := r.client.Get(ctx, r.key(instrument)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: %s", ErrNotFitted, instrument)
		}
		return nil, fmt.Errorf("load scaler %s: %w", instrument, err)
	}
	return decodeState(instrument, data)
}

// Close releases the underlying client.
func (r *RedisStore) Close() error {
	return r.client.Close()
}
