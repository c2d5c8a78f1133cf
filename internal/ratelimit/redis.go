package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Sliding window over a sorted set scored by request time in milliseconds.
// Returns {allowed, remaining, reset_at_ms}.
var slidingWindowScript = redis.NewScript(`
	local key = KEYS[1]
	local now_ms = tonumber(ARGV[1])
	local window_ms = tonumber(ARGV[2])
	local limit = tonumber(ARGV[3])
	local member = ARGV[4]

	redis.call('ZREMRANGEBYSCORE', key, '-inf', tostring(now_ms - window_ms))
	local count = redis.call('ZCARD', key)

	local allowed = 0
	if count < limit then
		redis.call('ZADD', key, ARGV[1], member)
		count = count + 1
		allowed = 1
	end
	redis.call('PEXPIRE', key, ARGV[2])

	local reset_ms = now_ms + window_ms
	local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
	if oldest[2] ~= nil then
		reset_ms = tonumber(oldest[2]) + window_ms
	end

	local remaining = limit - count
	if remaining < 0 then remaining = 0 end
	return { allowed, remaining, reset_ms }
`)

type RedisLimiter struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

func NewRedisLimiter(client *redis.Client, prefix string) *RedisLimiter {
	return &RedisLimiter{client: client, prefix: prefix, now: time.Now}
}

func (l *RedisLimiter) Allow(ctx context.Context, policy Policy, identity string) (Decision, error) {
	now := l.now()
	vals, err := slidingWindowScript.Run(ctx, l.client, []string{l.key(policy, identity)},
		now.UnixMilli(), policy.Window.Milliseconds(), policy.Limit, uuid.NewString()).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit script: %w", err)
	}

	arr, ok := vals.([]interface{})
	if !ok || len(arr) != 3 {
		return Decision{}, fmt.Errorf("rate limit script: unexpected result %#v", vals)
	}
	return Decision{
		Allowed:   asInt64(arr[0]) == 1,
		Remaining: int(asInt64(arr[1])),
		ResetAt:   time.UnixMilli(asInt64(arr[2])),
	}, nil
}

func (l *RedisLimiter) key(policy Policy, identity string) string {
	if identity == "" {
		identity = "unknown"
	}
	return strings.Join([]string{l.prefix, policy.Name, identity}, ":")
}

func asInt64(v interface{}) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case float64:
		return int64(t)
	case string:
		if n, err := strconv.ParseInt(t, 10, 64); err == nil {
			return n
		}
	}
	return 0
}

var _ Limiter = (*RedisLimiter)(nil)
