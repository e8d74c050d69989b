package ratelimit

import (
	"context"
	"errors"
	"math"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// tokens is returned as a string because Redis truncates Lua numbers to integers.
const tokenBucketScript = `
local rate = tonumber(ARGV[1])
local burst = tonumber(ARGV[2])
local ttl = tonumber(ARGV[3])

local nowData = redis.call("TIME")
local now = (nowData[1] * 1000) + math.floor(nowData[2] / 1000)

local data = redis.call("HMGET", KEYS[1], "tokens", "ts")
local tokens = tonumber(data[1])
local ts = tonumber(data[2])

if tokens == nil then
  tokens = burst
else
  local delta = math.max(0, now - ts)
  tokens = math.min(burst, tokens + (delta / 1000) * rate)
end

local allowed = 0
if tokens >= 1 then
  allowed = 1
  tokens = tokens - 1
end

redis.call("HSET", KEYS[1], "tokens", tokens, "ts", now)
redis.call("PEXPIRE", KEYS[1], ttl)

return {allowed, tostring(tokens), now}
`

var (
	ErrNotConfigured   = errors.New("rate_limiter_not_configured")
	ErrInvalidBucket   = errors.New("invalid_rate_limit_bucket")
	errInvalidResponse = errors.New("invalid rate limit script response")
)

type TokenBucket struct {
	client redis.Scripter
	script *redis.Script
}

type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetTime  time.Time
	RetryAfter time.Duration
}

func NewTokenBucket(client redis.Scripter) *TokenBucket {
	if client == nil {
		return nil
	}
	return &TokenBucket{
		client: client,
		script: redis.NewScript(tokenBucketScript),
	}
}

// Allow takes one token from the bucket stored at key. The bucket holds at
// most burst tokens and refills at rate tokens per second.
func (t *TokenBucket) Allow(ctx context.Context, key string, rate float64, burst int) (*Result, error) {
	if t == nil || t.client == nil {
		return nil, ErrNotConfigured
	}
	if key == "" || rate <= 0 || burst <= 0 {
		return nil, ErrInvalidBucket
	}

	res, err := t.script.Run(ctx, t.client, []string{key},
		rate,
		burst,
		int64(bucketTTL(rate, burst)/time.Millisecond),
	).Slice()
	if err != nil {
		return nil, err
	}
	return parseResult(res, rate, burst)
}

func parseResult(res []interface{}, rate float64, burst int) (*Result, error) {
	if len(res) < 3 {
		return nil, errInvalidResponse
	}

	allowed := toInt(res[0]) == 1
	tokens := toFloat(res[1])
	ts := toInt(res[2])

	var retryAfter time.Duration
	if !allowed && tokens < 1 {
		retryAfter = time.Duration((1 - tokens) / rate * float64(time.Second))
	}

	return &Result{
		Allowed:    allowed,
		Limit:      burst,
		Remaining:  int(math.Floor(tokens)),
		ResetTime:  time.UnixMilli(ts).Add(retryAfter),
		RetryAfter: retryAfter,
	}, nil
}

func bucketTTL(rate float64, burst int) time.Duration {
	if rate <= 0 || burst <= 0 {
		return time.Second
	}
	seconds := math.Ceil((float64(burst) / rate) * 2)
	if seconds < 1 {
		seconds = 1
	}
	return time.Duration(seconds) * time.Second
}

func toInt(v interface{}) int64 {
	switch val := v.(type) {
	case int64:
		return val
	case int:
		return int64(val)
	case float64:
		return int64(val)
	case string:
		n, _ := strconv.ParseInt(val, 10, 64)
		return n
	default:
		return 0
	}
}

func toFloat(v interface{}) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case int64:
		return float64(val)
	case string:
		f, _ := strconv.ParseFloat(val, 64)
		return f
	default:
		return 0
	}
}
