package ratelimit

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/Domenick1991/medlaw-booking/config"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
}

var twoPerMinute = Policy{Name: BookingPolicy, Window: time.Minute, Limit: 2}

func TestRegistry(t *testing.T) {
	reg, err := NewRegistry(config.RateLimitConfig{Policies: map[string]config.PolicyConfig{
		"booking": {WindowSeconds: 3600, Limit: 5},
		"slots":   {WindowSeconds: 60, Limit: 30},
	}})
	require.NoError(t, err)

	p, ok := reg.Get(BookingPolicy)
	require.True(t, ok)
	assert.Equal(t, Policy{Name: "booking", Window: time.Hour, Limit: 5}, p)
	assert.Equal(t, []string{"booking", "slots"}, reg.Names())

	_, ok = reg.Get("missing")
	assert.False(t, ok)
}

func TestRegistry_RequiresBookingPolicy(t *testing.T) {
	_, err := NewRegistry(config.RateLimitConfig{Policies: map[string]config.PolicyConfig{
		"slots": {WindowSeconds: 60, Limit: 30},
	}})
	assert.Error(t, err)
}

func TestRegistry_RejectsNonPositive(t *testing.T) {
	_, err := NewRegistry(config.RateLimitConfig{Policies: map[string]config.PolicyConfig{
		"booking": {WindowSeconds: 0, Limit: 5},
	}})
	assert.Error(t, err)
}

func TestDecision_RetryAfter(t *testing.T) {
	now := time.Now()
	assert.Equal(t, time.Duration(0), Decision{Allowed: true, ResetAt: now.Add(time.Minute)}.RetryAfter(now))
	assert.Equal(t, time.Minute, Decision{Allowed: false, ResetAt: now.Add(time.Minute)}.RetryAfter(now))
	assert.Equal(t, time.Duration(0), Decision{Allowed: false, ResetAt: now.Add(-time.Second)}.RetryAfter(now))
}

func TestMemoryLimiter_DeniesOverLimit(t *testing.T) {
	clock := newClock()
	l := NewMemoryLimiter()
	l.now = clock.now
	ctx := context.Background()

	d, err := l.Allow(ctx, twoPerMinute, "203.0.113.7")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 1, d.Remaining)

	d, err = l.Allow(ctx, twoPerMinute, "203.0.113.7")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)

	d, err = l.Allow(ctx, twoPerMinute, "203.0.113.7")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.True(t, d.ResetAt.After(clock.t))
	assert.True(t, d.RetryAfter(clock.t) > 0)
}

func TestMemoryLimiter_IdentitiesAreIndependent(t *testing.T) {
	clock := newClock()
	l := NewMemoryLimiter()
	l.now = clock.now
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := l.Allow(ctx, twoPerMinute, "a")
		require.NoError(t, err)
	}
	d, err := l.Allow(ctx, twoPerMinute, "a")
	require.NoError(t, err)
	assert.False(t, d.Allowed)

	d, err = l.Allow(ctx, twoPerMinute, "b")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestMemoryLimiter_RefillsOverTime(t *testing.T) {
	clock := newClock()
	l := NewMemoryLimiter()
	l.now = clock.now
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, _ = l.Allow(ctx, twoPerMinute, "a")
	}
	d, _ := l.Allow(ctx, twoPerMinute, "a")
	require.False(t, d.Allowed)

	clock.advance(31 * time.Second)
	d, err := l.Allow(ctx, twoPerMinute, "a")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestMemoryLimiter_DropsIdleBuckets(t *testing.T) {
	clock := newClock()
	l := NewMemoryLimiter()
	l.now = clock.now
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		_, err := l.Allow(ctx, twoPerMinute, fmt.Sprintf("198.51.100.%d", i))
		require.NoError(t, err)
	}
	require.Equal(t, 50, l.size())

	clock.advance(30 * time.Second)
	_, err := l.Allow(ctx, twoPerMinute, "active")
	require.NoError(t, err)
	assert.Equal(t, 51, l.size(), "no sweep inside the sweep interval")

	clock.advance(40 * time.Second)
	_, err = l.Allow(ctx, twoPerMinute, "active")
	require.NoError(t, err)
	assert.Equal(t, 1, l.size())

	// A dropped bucket comes back full.
	d, err := l.Allow(ctx, twoPerMinute, "198.51.100.0")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 1, d.Remaining)
}

func newRedisLimiter(t *testing.T) (*RedisLimiter, *miniredis.Miniredis, *fakeClock) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	clock := newClock()
	l := NewRedisLimiter(client, "rl")
	l.now = clock.now
	return l, mr, clock
}

func TestRedisLimiter_SlidingWindow(t *testing.T) {
	l, _, clock := newRedisLimiter(t)
	ctx := context.Background()
	start := clock.t

	d, err := l.Allow(ctx, twoPerMinute, "203.0.113.7")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 1, d.Remaining)

	clock.advance(10 * time.Second)
	d, err = l.Allow(ctx, twoPerMinute, "203.0.113.7")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)

	d, err = l.Allow(ctx, twoPerMinute, "203.0.113.7")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, start.Add(time.Minute).UnixMilli(), d.ResetAt.UnixMilli())

	clock.advance(51 * time.Second)
	d, err = l.Allow(ctx, twoPerMinute, "203.0.113.7")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)
}

func TestRedisLimiter_KeysPerPolicyAndIdentity(t *testing.T) {
	l, mr, _ := newRedisLimiter(t)
	ctx := context.Background()

	_, err := l.Allow(ctx, twoPerMinute, "203.0.113.7")
	require.NoError(t, err)
	_, err = l.Allow(ctx, twoPerMinute, "")
	require.NoError(t, err)

	assert.True(t, mr.Exists("rl:booking:203.0.113.7"))
	assert.True(t, mr.Exists("rl:booking:unknown"))
}

func TestRedisLimiter_BackendDown(t *testing.T) {
	l, mr, _ := newRedisLimiter(t)
	mr.Close()

	_, err := l.Allow(context.Background(), twoPerMinute, "203.0.113.7")
	assert.Error(t, err)
}
