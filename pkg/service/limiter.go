package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// Limiter throttles submissions per actor.
type Limiter interface {
	Allow(ctx context.Context, actorID string) (bool, error)
}

// LocalLimiter is an in-process token bucket per actor, for
// single-node deployments.
type LocalLimiter struct {
	mu     sync.Mutex
	rps    rate.Limit
	burst  int
	actors map[string]*rate.Limiter
}

// NewLocalLimiter creates a limiter allowing rps requests per second
// with the given burst per actor.
func NewLocalLimiter(rps float64, burst int) *LocalLimiter {
	return &LocalLimiter{
		rps:    rate.Limit(rps),
		burst:  burst,
		actors: make(map[string]*rate.Limiter),
	}
}

func (l *LocalLimiter) Allow(ctx context.Context, actorID string) (bool, error) {
	_ = ctx
	l.mu.Lock()
	limiter, ok := l.actors[actorID]
	if !ok {
		limiter = rate.NewLimiter(l.rps, l.burst)
		l.actors[actorID] = limiter
	}
	l.mu.Unlock()

	return limiter.Allow(), nil
}

// tokenBucket refills and drains one actor's bucket atomically so all
// nodes share the same budget.
// KEYS[1] = bucket key
// ARGV[1] = refill rate (tokens/second), ARGV[2] = burst capacity,
// ARGV[3] = unix time in seconds (fractional)
var tokenBucket = redis.NewScript(`
local fill = tonumber(ARGV[1])
local cap = tonumber(ARGV[2])
local now = tonumber(ARGV[3])

local b = redis.call("HMGET", KEYS[1], "t", "at")
local tokens = tonumber(b[1]) or cap
local at = tonumber(b[2]) or now

tokens = math.min(cap, tokens + math.max(0, now - at) * fill)

local ok = 0
if tokens >= 1 then
    tokens = tokens - 1
    ok = 1
end

redis.call("HMSET", KEYS[1], "t", tokens, "at", now)
redis.call("EXPIRE", KEYS[1], 60)
return ok
`)

// RedisLimiter is a Redis-backed token bucket shared across nodes.
type RedisLimiter struct {
	client *redis.Client
	rps    float64
	burst  int
}

// NewRedisLimiter creates a limiter from a redis URL
// (redis://host:port/db).
func NewRedisLimiter(url string, rps float64, burst int) (*RedisLimiter, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return &RedisLimiter{
		client: redis.NewClient(opts),
		rps:    rps,
		burst:  burst,
	}, nil
}

func (l *RedisLimiter) Allow(ctx context.Context, actorID string) (bool, error) {
	key := "forge:limiter:" + actorID
	now := float64(time.Now().UnixMicro()) / 1e6

	allowed, err := tokenBucket.Run(ctx, l.client, []string{key}, l.rps, l.burst, now).Int64()
	if err != nil {
		return false, fmt.Errorf("redis limiter: %w", err)
	}
	return allowed == 1, nil
}
