package ratelimit_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/dalemusser/hackreg/internal/app/system/ratelimit"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T) (*ratelimit.RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return ratelimit.NewRedisStore(client), mr
}

func TestRedisStore_ConsumeAndBlock(t *testing.T) {
	s, mr := newRedisStore(t)
	ctx := context.Background()
	p := ratelimit.Policy{Points: 2, Window: time.Minute, Block: 10 * time.Minute}

	u, err := s.Consume(ctx, "rl:k", p)
	require.NoError(t, err)
	require.Equal(t, 1, u.Consumed)
	require.False(t, u.Blocked)

	_, err = s.Consume(ctx, "rl:k", p)
	require.NoError(t, err)

	u, err = s.Consume(ctx, "rl:k", p)
	require.NoError(t, err)
	require.True(t, u.Blocked)
	require.Equal(t, 10*time.Minute, u.ResetIn)

	// The counter window passes but the block remains.
	mr.FastForward(2 * time.Minute)
	u, err = s.Consume(ctx, "rl:k", p)
	require.NoError(t, err)
	require.True(t, u.Blocked)

	mr.FastForward(9 * time.Minute)
	u, err = s.Consume(ctx, "rl:k", p)
	require.NoError(t, err)
	require.False(t, u.Blocked)
	require.Equal(t, 1, u.Consumed)
}

func TestRedisStore_PeekAndReset(t *testing.T) {
	s, _ := newRedisStore(t)
	ctx := context.Background()
	p := ratelimit.Policy{Points: 5, Window: time.Minute}

	u, err := s.Peek(ctx, "rl:empty")
	require.NoError(t, err)
	require.Equal(t, 0, u.Consumed)

	s.Consume(ctx, "rl:k", p)
	s.Consume(ctx, "rl:k", p)
	u, err = s.Peek(ctx, "rl:k")
	require.NoError(t, err)
	require.Equal(t, 2, u.Consumed)
	require.Greater(t, u.ResetIn, time.Duration(0))

	require.NoError(t, s.Reset(ctx, "rl:k"))
	u, err = s.Peek(ctx, "rl:k")
	require.NoError(t, err)
	require.Equal(t, 0, u.Consumed)
}

func TestRedisStore_GateFailsClosedWhenServerGone(t *testing.T) {
	s, mr := newRedisStore(t)
	g := ratelimit.NewGate(s, ratelimit.DefaultPolicies())
	mr.Close()

	_, err := g.Consume(context.Background(), ratelimit.BucketSubmission, "ip")
	require.ErrorIs(t, err, ratelimit.ErrUnavailable)
}
