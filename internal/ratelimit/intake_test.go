package ratelimit

import (
	"context"
	"testing"

	"github.com/hopelink/givecoin/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntakeLimiterDisabledWithoutRedis(t *testing.T) {
	limiter := NewChargeIntakeLimiter(
		config.Config{},
		config.NewStaticLifecycleHolder(config.DefaultLifecycleConfig()),
	)

	allowed, err := limiter.Allow(context.Background(), "203.0.113.9")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestNilTokenBucketAlwaysAllows(t *testing.T) {
	var bucket *TokenBucket

	allowed, err := bucket.Allow(context.Background(), "k", 1, 1)
	require.NoError(t, err)
	assert.True(t, allowed)
}
