package ratelimit

import (
	"context"
	"fmt"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/factuur/internal/config"
)

const keyCompletionSource = "completion:source:%s"

// CompletionLimiter throttles completion requests per source shop. Disabled
// (nil limiter) when no redis address is configured; callers treat nil as
// unlimited.
type CompletionLimiter struct {
	bucket *TokenBucket
	rate   float64
	burst  int
}

func NewCompletionLimiter(cfg config.Config) *CompletionLimiter {
	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" || cfg.CompletionRateLimit <= 0 || cfg.CompletionRateBurst <= 0 {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(cfg.RedisPassword),
	})

	return &CompletionLimiter{
		bucket: NewTokenBucket(client),
		rate:   float64(cfg.CompletionRateLimit),
		burst:  cfg.CompletionRateBurst,
	}
}

func (l *CompletionLimiter) Enabled() bool {
	return l != nil && l.bucket != nil
}

// Allow consumes one token from the per-source bucket.
func (l *CompletionLimiter) Allow(ctx context.Context, source string) (*Result, error) {
	if source == "" {
		source = "unknown"
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keyCompletionSource, source), l.rate, l.burst)
}
