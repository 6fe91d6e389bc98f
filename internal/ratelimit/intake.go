package ratelimit

import (
	"context"
	"fmt"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/hopelink/givecoin/internal/config"
)

const keyChargeIntake = "charge:intake:ip:%s"

// ChargeIntakeLimiter throttles charge creation per client address. It is
// disabled entirely when no redis address is configured.
type ChargeIntakeLimiter struct {
	bucket    *TokenBucket
	lifecycle *config.LifecycleConfigHolder
}

func NewChargeIntakeLimiter(cfg config.Config, lifecycle *config.LifecycleConfigHolder) *ChargeIntakeLimiter {
	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" {
		return &ChargeIntakeLimiter{lifecycle: lifecycle}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(cfg.RedisPassword),
	})
	return &ChargeIntakeLimiter{
		bucket:    NewTokenBucket(client),
		lifecycle: lifecycle,
	}
}

func (l *ChargeIntakeLimiter) Allow(ctx context.Context, clientIP string) (bool, error) {
	if l == nil || l.bucket == nil {
		return true, nil
	}
	cfg := l.lifecycle.Get()
	return l.bucket.Allow(
		ctx,
		fmt.Sprintf(keyChargeIntake, strings.TrimSpace(clientIP)),
		cfg.CreateChargeRate,
		cfg.CreateChargeBurst,
	)
}
