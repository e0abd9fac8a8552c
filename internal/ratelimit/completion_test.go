package ratelimit

import (
	"testing"

	"github.com/smallbiznis/factuur/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestNewCompletionLimiter_DisabledWithoutRedis(t *testing.T) {
	limiter := NewCompletionLimiter(config.Config{
		RedisAddr:           "",
		CompletionRateLimit: 20,
		CompletionRateBurst: 40,
	})
	assert.Nil(t, limiter)
	assert.False(t, limiter.Enabled())
}

func TestNewCompletionLimiter_DisabledWithoutLimits(t *testing.T) {
	limiter := NewCompletionLimiter(config.Config{
		RedisAddr:           "localhost:6379",
		CompletionRateLimit: 0,
		CompletionRateBurst: 40,
	})
	assert.Nil(t, limiter)

	limiter = NewCompletionLimiter(config.Config{
		RedisAddr:           "localhost:6379",
		CompletionRateLimit: 20,
		CompletionRateBurst: -1,
	})
	assert.Nil(t, limiter)
}

func TestNewCompletionLimiter_Enabled(t *testing.T) {
	limiter := NewCompletionLimiter(config.Config{
		RedisAddr:           "localhost:6379",
		CompletionRateLimit: 20,
		CompletionRateBurst: 40,
	})
	assert.True(t, limiter.Enabled())
}
