package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/redis/go-redis/v9"
)

// writeLimitPrefix namespaces per-client write buckets.
const writeLimitPrefix = "ratelimit:writes:ip:"

// RateLimitResult contains the result of a rate limit check.
type RateLimitResult struct {
	Allowed    bool
	Remaining  int64
	ResetAt    time.Time
	RetryAfter time.Duration
}

// writeBucket refills at ARGV[1] tokens/s up to ARGV[2], charging one
// token per call. Times are milliseconds. Returns
// {allowed, retry_after_ms, remaining, ms_until_full}.
var writeBucket = redis.NewScript(`
local rate  = tonumber(ARGV[1]) / 1000
local burst = tonumber(ARGV[2])
local now   = tonumber(ARGV[3])

local state  = redis.call('HMGET', KEYS[1], 'tokens', 'ts')
local tokens = tonumber(state[1]) or burst
local ts     = tonumber(state[2]) or now

tokens = math.min(burst, tokens + math.max(0, now - ts) * rate)

local allowed, retry = 0, 0
if tokens >= 1 then
  tokens = tokens - 1
  allowed = 1
else
  retry = math.ceil((1 - tokens) / rate)
end

local until_full = math.ceil((burst - tokens) / rate)
redis.call('HSET', KEYS[1], 'tokens', tokens, 'ts', now)
redis.call('PEXPIRE', KEYS[1], until_full + 1000)

return {allowed, retry, math.floor(tokens), until_full}
`)

func unlimited(burst int) *RateLimitResult {
	return &RateLimitResult{Allowed: true, Remaining: int64(burst), ResetAt: time.Now()}
}

// CheckIPRateLimit charges one write against the bucket of ip. Only a
// hash of the IP is stored. On Redis errors the returned result allows
// the request alongside the error.
func (c *Cache) CheckIPRateLimit(ctx context.Context, ip string, ratePerSecond, burst int) (*RateLimitResult, error) {
	if ratePerSecond <= 0 {
		return unlimited(burst), nil
	}

	now := time.Now()
	out, err := writeBucket.Run(ctx, c.client,
		[]string{writeLimitPrefix + hashIP(ip)},
		ratePerSecond, burst, now.UnixMilli(),
	).Int64Slice()
	if err != nil {
		return unlimited(burst), err
	}

	return &RateLimitResult{
		Allowed:    out[0] == 1,
		RetryAfter: time.Duration(out[1]) * time.Millisecond,
		Remaining:  out[2],
		ResetAt:    now.Add(time.Duration(out[3]) * time.Millisecond),
	}, nil
}

// hashIP returns the first 8 bytes of the SHA-256 of ip, hex encoded.
func hashIP(ip string) string {
	sum := sha256.Sum256([]byte(ip))
	return hex.EncodeToString(sum[:8])
}
