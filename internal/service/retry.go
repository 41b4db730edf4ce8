package service

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/RoyceAzure/lab/storefront/internal/infra/repository/db"
)

type RetryPolicy struct {
	MaxRetries int
	Backoff    time.Duration
	MaxBackoff time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 3,
		Backoff:    50 * time.Millisecond,
		MaxBackoff: time.Second,
	}
}

// delay 第 attempt 次重試前的等待時間, 指數成長加上 [0, d/2) 的 jitter
func (p RetryPolicy) delay(attempt int) time.Duration {
	if p.Backoff <= 0 {
		return 0
	}
	d := p.Backoff << attempt
	if p.MaxBackoff > 0 && (d > p.MaxBackoff || d <= 0) {
		d = p.MaxBackoff
	}
	return d + time.Duration(rand.Int64N(int64(d)/2+1))
}

// retryOnConflict 只有 db.ErrTxConflict 會重試, 其他錯誤直接回傳
// ctx 結束時停止等待並回傳最後一次的錯誤
func retryOnConflict(ctx context.Context, policy RetryPolicy, fn func(attempt int) error) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = fn(attempt)
		if err == nil || !errors.Is(err, db.ErrTxConflict) || attempt >= policy.MaxRetries {
			return err
		}

		timer := time.NewTimer(policy.delay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}
	}
}
