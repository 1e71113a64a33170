// Package redislimit provides a fixed-window auth.RateLimiter backed by
// Redis, shared by every server instance.
package redislimit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rhuss/memberportal/pkg/auth"
	"github.com/rhuss/memberportal/pkg/debug"
)

// DefaultPrefix namespaces limiter keys.
const DefaultPrefix = "memberportal:ratelimit:"

// incrScript increments the counter and starts the window on the first
// attempt, atomically.
var incrScript = redis.NewScript(`
local count = redis.call('INCR', KEYS[1])
if count == 1 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return count
`)

// Limiter counts attempts per key in Redis using INCR with a window TTL.
// It fails open: when Redis is unreachable the attempt is allowed and a
// warning is logged.
type Limiter struct {
	client *redis.Client
	limit  int
	window time.Duration
	prefix string
}

var _ auth.RateLimiter = (*Limiter)(nil)

// Connect parses a redis:// URL, pings the server and returns the client.
func Connect(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", opts.Addr, err)
	}

	slog.Info("redis rate limiter connected", "addr", opts.Addr)
	return client, nil
}

// New creates a limiter allowing limit attempts per key in each window.
// A limit of zero or less disables limiting.
func New(client *redis.Client, limit int, window time.Duration) *Limiter {
	if window <= 0 {
		window = time.Minute
	}
	return &Limiter{
		client: client,
		limit:  limit,
		window: window,
		prefix: DefaultPrefix,
	}
}

// Allow implements auth.RateLimiter.
func (l *Limiter) Allow(ctx context.Context, key string) error {
	if l.limit <= 0 {
		return nil
	}

	redisKey := l.prefix + key

	count, err := incrScript.Run(ctx, l.client, []string{redisKey}, l.window.Milliseconds()).Int64()
	if err != nil {
		slog.Warn("rate limiter unavailable, allowing request", "error", err)
		return nil
	}

	debug.Log("ratelimit", "attempt counted", "key", key, "count", count, "limit", l.limit)
	if count > int64(l.limit) {
		return auth.ErrTooManyRequests
	}
	return nil
}
