package artifact

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a Store backed by Redis. Artifacts live under
// "prefix:session:seq:kind" with native expiry; a per-session set indexes
// them for DeleteSession.
type Redis struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedis wraps an existing client.
func NewRedis(client *redis.Client, prefix string, ttl time.Duration) *Redis {
	if prefix == "" {
		prefix = "jarvis"
	}
	return &Redis{client: client, prefix: prefix, ttl: ttl}
}

// DialRedis parses url and connects.
func DialRedis(url, prefix string, ttl time.Duration) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("artifact: parse redis url: %w", err)
	}
	return NewRedis(redis.NewClient(opts), prefix, ttl), nil
}

func (r *Redis) dataKey(k Key) string {
	return r.prefix + ":" + k.SessionID + ":" + strconv.FormatUint(k.Seq, 10) + ":" + string(k.Kind)
}

func (r *Redis) indexKey(sessionID string) string {
	return r.prefix + ":idx:" + sessionID
}

// Put stores data and indexes the key under its session.
func (r *Redis) Put(ctx context.Context, key Key, data []byte) error {
	if err := key.Validate(); err != nil {
		return err
	}

	dk := r.dataKey(key)
	ik := r.indexKey(key.SessionID)

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, dk, data, r.ttl)
	pipe.SAdd(ctx, ik, dk)
	if r.ttl > 0 {
		pipe.Expire(ctx, ik, r.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("artifact: redis put: %w", err)
	}
	return nil
}

// Get returns the artifact bytes.
func (r *Redis) Get(ctx context.Context, key Key) ([]byte, error) {
	data, err := r.client.Get(ctx, r.dataKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("artifact: redis get: %w", err)
	}
	return data, nil
}

// Delete removes an artifact and its index entry.
func (r *Redis) Delete(ctx context.Context, key Key) error {
	dk := r.dataKey(key)

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, dk)
	pipe.SRem(ctx, r.indexKey(key.SessionID), dk)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("artifact: redis delete: %w", err)
	}
	return nil
}

// DeleteSession removes every indexed artifact of sessionID.
func (r *Redis) DeleteSession(ctx context.Context, sessionID string) error {
	ik := r.indexKey(sessionID)

	members, err := r.client.SMembers(ctx, ik).Result()
	if err != nil {
		return fmt.Errorf("artifact: redis index: %w", err)
	}

	keys := append(members, ik)
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("artifact: redis delete session: %w", err)
	}
	return nil
}

// Sweep prunes index entries whose data keys Redis has already expired.
func (r *Redis) Sweep(ctx context.Context, now time.Time) (int, error) {
	removed := 0
	iter := r.client.Scan(ctx, 0, r.prefix+":idx:*", 100).Iterator()
	for iter.Next(ctx) {
		ik := iter.Val()
		members, err := r.client.SMembers(ctx, ik).Result()
		if err != nil {
			return removed, fmt.Errorf("artifact: redis sweep: %w", err)
		}
		for _, dk := range members {
			n, err := r.client.Exists(ctx, dk).Result()
			if err != nil {
				return removed, fmt.Errorf("artifact: redis sweep: %w", err)
			}
			if n > 0 {
				continue
			}
			// A concurrent Delete may already have dropped the entry.
			gone, err := r.client.SRem(ctx, ik, dk).Result()
			if err != nil {
				return removed, fmt.Errorf("artifact: redis sweep: %w", err)
			}
			removed += int(gone)
		}
	}
	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("artifact: redis scan: %w", err)
	}
	return removed, nil
}

// Ping checks connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the client.
func (r *Redis) Close() error {
	return r.client.Close()
}

var _ Store = (*Redis)(nil)
