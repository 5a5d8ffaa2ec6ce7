package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// tokenBucketScript refills the bucket from the elapsed time and takes one
// token when available. It returns {allowed, wait_ms}.
var tokenBucketScript = redis.NewScript(`
local capacity = tonumber(ARGV[1])
local per_token = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local ttl = tonumber(ARGV[4])

local state = redis.call('HMGET', KEYS[1], 'tokens', 'ts')
local tokens = tonumber(state[1])
local ts = tonumber(state[2])
if tokens == nil or ts == nil then
  tokens = capacity
  ts = now
end

local elapsed = math.max(0, now - ts)
tokens = math.min(capacity, tokens + elapsed / per_token)

local allowed = 0
local wait = 0
if tokens >= 1 then
  tokens = tokens - 1
  allowed = 1
else
  wait = math.ceil((1 - tokens) * per_token)
end

redis.call('HSET', KEYS[1], 'tokens', tostring(tokens), 'ts', now)
redis.call('PEXPIRE', KEYS[1], ttl)
return {allowed, wait}
`)

type redisLimiter struct {
	client redis.UniversalClient
	bucket Bucket
	prefix string
	now    func() time.Time
}

// NewRedisLimiter returns a Limiter whose buckets live in Redis so that every
// instance shares the same budget per client.
func NewRedisLimiter(client redis.UniversalClient, prefix, name string, bucket Bucket) Limiter {
	return &redisLimiter{
		client: client,
		bucket: bucket,
		prefix: fmt.Sprintf("%s:ratelimit:%s", prefix, name),
		now:    time.Now,
	}
}

func (l *redisLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	perToken := l.bucket.perToken().Milliseconds()
	if perToken < 1 {
		perToken = 1
	}
	ttl := (2 * l.bucket.Interval).Milliseconds()

	res, err := tokenBucketScript.Run(ctx, l.client, []string{l.prefix + ":" + key},
		l.bucket.Burst, perToken, l.now().UnixMilli(), ttl,
	).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("rate limiter script for %q: %w", key, err)
	}
	if len(res) != 2 {
		return Decision{}, fmt.Errorf("rate limiter script for %q returned %d values", key, len(res))
	}
	if res[0] == 1 {
		return Decision{Allowed: true}, nil
	}
	return Decision{RetryAfter: time.Duration(res[1]) * time.Millisecond}, nil
}
