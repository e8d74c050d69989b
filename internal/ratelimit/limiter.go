package ratelimit

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/coursepulse/internal/config"
	obslogger "github.com/smallbiznis/coursepulse/internal/observability/logger"
	"github.com/smallbiznis/coursepulse/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const keyAnalyticsScope = "coursepulse:ratelimit:%s:%s"

type allower interface {
	Allow(ctx context.Context, key string, rate float64, burst int) (*Result, error)
}

// NewRedisClient returns nil when no Redis address is configured.
func NewRedisClient(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) *redis.Client {
	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(cfg.RedisPassword),
		DB:       cfg.RedisDB,
	})
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := client.Ping(ctx).Err(); err != nil {
				log.Warn("redis unreachable, analytics rate limiting will fail open", zap.String("addr", addr), zap.Error(err))
			}
			return nil
		},
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	return client
}

type Params struct {
	fx.In

	Config  config.Config
	Client  *redis.Client `optional:"true"`
	Log     *zap.Logger
	Metrics *metrics.Metrics `optional:"true"`
}

// Limiter throttles analytics reads per scope with a Redis token bucket.
// A nil Limiter allows everything.
type Limiter struct {
	bucket  allower
	rate    float64
	burst   int
	log     *zap.Logger
	metrics *metrics.Metrics
}

func NewLimiter(p Params) (*Limiter, error) {
	cfg := p.Config.RateLimit
	if !cfg.Enabled || p.Client == nil {
		return nil, nil
	}
	if cfg.Rate <= 0 || cfg.Burst <= 0 {
		return nil, fmt.Errorf("%w: rate and burst must be positive", ErrInvalidBucket)
	}
	return newLimiter(NewTokenBucket(p.Client), cfg.Rate, cfg.Burst, p.Log, p.Metrics), nil
}

func newLimiter(bucket allower, rate float64, burst int, log *zap.Logger, m *metrics.Metrics) *Limiter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Limiter{
		bucket:  bucket,
		rate:    rate,
		burst:   burst,
		log:     log.Named("ratelimit"),
		metrics: m,
	}
}

// Allow fails open: a Redis error lets the request through.
func (l *Limiter) Allow(ctx context.Context, endpoint, scopeKey string) (*Result, bool) {
	if l == nil || l.bucket == nil {
		return nil, true
	}

	res, err := l.bucket.Allow(ctx, bucketKey(endpoint, scopeKey), l.rate, l.burst)
	if err != nil {
		obslogger.WithContext(ctx, l.log).Warn("rate limit check failed", zap.String("endpoint", endpoint), zap.Error(err))
		l.metrics.RecordRateLimitAllowed(ctx, endpoint)
		return nil, true
	}
	if !res.Allowed {
		l.metrics.RecordRateLimitDenied(ctx, endpoint, "scope_exhausted")
		return res, false
	}
	l.metrics.RecordRateLimitAllowed(ctx, endpoint)
	return res, true
}

// Middleware rejects requests whose scope exhausted its bucket with 429.
// keyFn derives the scope key from the request.
func (l *Limiter) Middleware(endpoint string, keyFn func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if l == nil {
			c.Next()
			return
		}

		res, ok := l.Allow(c.Request.Context(), endpoint, keyFn(c))
		if res != nil {
			c.Header("X-RateLimit-Limit", strconv.Itoa(res.Limit))
			c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		}
		if !ok {
			retry := int(res.RetryAfter.Round(time.Second) / time.Second)
			if retry < 1 {
				retry = 1
			}
			c.Header("Retry-After", strconv.Itoa(retry))
			c.AbortWithStatusJSON(429, gin.H{
				"error": gin.H{
					"type":    "rate_limited",
					"message": "too many analytics requests for this scope",
				},
			})
			return
		}
		c.Next()
	}
}

// bucketKey hashes the scope so long course lists map to short keys.
func bucketKey(endpoint, scopeKey string) string {
	sum := sha1.Sum([]byte(scopeKey))
	return fmt.Sprintf(keyAnalyticsScope, endpoint, hex.EncodeToString(sum[:]))
}
