package ratelimit

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
)

// Token bucket in one round trip.
// KEYS[1] = bucket key
// ARGV[1] = max tokens (burst), ARGV[2] = refill per second, ARGV[3] = now (ms)
// Returns 1 when a token was taken, 0 otherwise.
// 'last' only advances by the time that was converted into whole tokens, so
// partial refills carry over between calls.
var tokenBucket = redis.NewScript(`
local tokens_key = KEYS[1]
local max_tokens = tonumber(ARGV[1])
local refill_rate = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local bucket = redis.call('HMGET', tokens_key, 'tokens', 'last')
local tokens = tonumber(bucket[1]) or max_tokens
local last = tonumber(bucket[2]) or now
if now < last then
  last = now
end
local refill = math.floor((now - last) * refill_rate / 1000)
if refill > 0 then
  tokens = math.min(max_tokens, tokens + refill)
  last = last + math.floor(refill * 1000 / refill_rate)
end
if tokens >= max_tokens then
  last = now
end
local allowed = 0
if tokens > 0 then
  tokens = tokens - 1
  allowed = 1
end
redis.call('HSET', tokens_key, 'tokens', tokens, 'last', last)
redis.call('PEXPIRE', tokens_key, math.ceil(max_tokens * 1000 / refill_rate) + 1000)
return allowed
`)

type LimiterConfig struct {
	RPS   int
	Burst int
}

// RateLimiter throttles forecast lookups per client. Redis failures let the
// request through.
type RateLimiter struct {
	redis  redis.Scripter
	prefix string
	cfg    LimiterConfig
	now    func() time.Time
}

func New(rdb redis.Scripter, prefix string, cfg LimiterConfig) *RateLimiter {
	if cfg.RPS <= 0 {
		cfg.RPS = 5
	}
	if cfg.Burst <= 0 {
		cfg.Burst = cfg.RPS * 2
	}
	return &RateLimiter{redis: rdb, prefix: prefix, cfg: cfg, now: time.Now}
}

func (rl *RateLimiter) Middleware(keyFunc func(r *http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := rl.prefix + ":" + keyFunc(r)
			allowed, err := rl.Allow(r.Context(), key)
			if err != nil {
				slog.Warn("rate limiter unavailable, allowing request", "key", key, "error", err)
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				w.Header().Set("Retry-After", "1")
				writeJSONError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": msg, "code": status})
}

func (rl *RateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	now := rl.now().UnixMilli()
	allowed, err := tokenBucket.Run(ctx, rl.redis, []string{key}, rl.cfg.Burst, rl.cfg.RPS, now).Int64()
	if err != nil {
		return false, err
	}
	slog.Debug("token bucket", "key", key, "allowed", allowed, "max", rl.cfg.Burst, "rps", rl.cfg.RPS)
	return allowed == 1, nil
}

// KeyByIP keys buckets on the client address. Run behind middleware.RealIP so
// RemoteAddr reflects X-Forwarded-For.
func KeyByIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
