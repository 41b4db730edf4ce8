package ratelimit

import (
	"context"
	"errors"
)

// Limiter 以 key 區分的限流器, key 通常是 client ip
type Limiter interface {
	Allow(ctx context.Context, key string) bool
}

type Config struct {
	Capacity      int
	RatePerSecond float64 // tokens/秒
}

func (c Config) Validate() error {
	if c.Capacity <= 0 {
		return errors.New("rate limit capacity must be positive")
	}
	if c.RatePerSecond <= 0 {
		return errors.New("rate limit refill rate must be positive")
	}
	return nil
}

// Enabled capacity 或 rate 為 0 時不限流
func (c Config) Enabled() bool {
	return c.Capacity > 0 && c.RatePerSecond > 0
}

// Unlimited 不限流
type Unlimited struct{}

func (Unlimited) Allow(context.Context, string) bool { return true }
