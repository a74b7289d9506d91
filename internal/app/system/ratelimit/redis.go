// internal/app/system/ratelimit/redis.go
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// consumeScript increments the window counter and applies the block in one
// round trip so concurrent consumers across processes see a consistent
// count.
//
// KEYS[1] counter, KEYS[2] block marker
// ARGV[1] window ms, ARGV[2] points, ARGV[3] block ms
// Returns {consumed, resetInMs, blocked}.
var consumeScript = redis.NewScript(`
local bttl = redis.call('PTTL', KEYS[2])
if bttl > 0 then
  local c = tonumber(redis.call('GET', KEYS[1]) or '0')
  return {c, bttl, 1}
end
local n = redis.call('INCR', KEYS[1])
local ttl = redis.call('PTTL', KEYS[1])
if n == 1 or ttl < 0 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
  ttl = tonumber(ARGV[1])
end
if n > tonumber(ARGV[2]) and tonumber(ARGV[3]) > 0 then
  redis.call('SET', KEYS[2], '1', 'PX', ARGV[3])
  return {n, tonumber(ARGV[3]), 1}
end
return {n, ttl, 0}
`)

// RedisStore keeps counters in Redis. Keys expire on their own; nothing
// needs sweeping.
type RedisStore struct {
	c redis.UniversalClient
}

// NewRedisStore wraps an existing client.
func NewRedisStore(c redis.UniversalClient) *RedisStore {
	return &RedisStore{c: c}
}

// Dial parses a redis:// URL, connects, and pings. Callers own the
// returned client and must Close it.
func Dial(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func blockKey(key string) string { return key + ":blocked" }

// Consume implements Store.
func (s *RedisStore) Consume(ctx context.Context, key string, p Policy) (Usage, error) {
	res, err := consumeScript.Run(ctx, s.c,
		[]string{key, blockKey(key)},
		p.Window.Milliseconds(), p.Points, p.Block.Milliseconds(),
	).Int64Slice()
	if err != nil {
		return Usage{}, err
	}
	if len(res) != 3 {
		return Usage{}, fmt.Errorf("ratelimit: unexpected script reply %v", res)
	}
	return Usage{
		Consumed: int(res[0]),
		ResetIn:  time.Duration(res[1]) * time.Millisecond,
		Blocked:  res[2] == 1,
	}, nil
}

// Peek implements Store.
func (s *RedisStore) Peek(ctx context.Context, key string) (Usage, error) {
	pipe := s.c.Pipeline()
	count := pipe.Get(ctx, key)
	ttl := pipe.PTTL(ctx, key)
	bttl := pipe.PTTL(ctx, blockKey(key))
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return Usage{}, err
	}

	n, err := count.Int()
	if err != nil && !errors.Is(err, redis.Nil) {
		return Usage{}, err
	}
	if b := bttl.Val(); b > 0 {
		return Usage{Consumed: n, ResetIn: b, Blocked: true}, nil
	}
	if t := ttl.Val(); t > 0 {
		return Usage{Consumed: n, ResetIn: t}, nil
	}
	return Usage{}, nil
}

// Reset implements Store.
func (s *RedisStore) Reset(ctx context.Context, key string) error {
	return s.c.Del(ctx, key, blockKey(key)).Err()
}
