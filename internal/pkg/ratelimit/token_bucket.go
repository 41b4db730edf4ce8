package ratelimit

import (
	"context"
	"sync"
	"time"
)

type bucket struct {
	tokens     float64
	lastRefill time.Time
	lastSeen   time.Time
}

/*
記憶體中的 token bucket, 每個 key 一個 bucket
取用時依經過時間補充 token, 背景只負責清除閒置的 bucket
請使用 defer 呼叫 Stop()
*/
type TokenBucket struct {
	Config
	mu      sync.Mutex
	buckets map[string]*bucket
	idleTTL time.Duration
	now     func() time.Time
	cancel  chan struct{}
	once    sync.Once
}

func NewTokenBucket(config Config) *TokenBucket {
	t := &TokenBucket{
		Config:  config,
		buckets: make(map[string]*bucket),
		idleTTL: 10 * time.Minute,
		now:     time.Now,
		cancel:  make(chan struct{}),
	}
	go t.background()
	return t
}

func (t *TokenBucket) Allow(_ context.Context, key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	b, ok := t.buckets[key]
	if !ok {
		b = &bucket{tokens: float64(t.Capacity), lastRefill: now}
		t.buckets[key] = b
	}
	b.lastSeen = now

	elapsed := now.Sub(b.lastRefill).Seconds()
	if elapsed > 0 {
		b.tokens += elapsed * t.RatePerSecond
		if b.tokens > float64(t.Capacity) {
			b.tokens = float64(t.Capacity)
		}
		b.lastRefill = now
	}

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

func (t *TokenBucket) background() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-t.cancel:
			return
		case <-ticker.C:
			t.evictIdle()
		}
	}
}

func (t *TokenBucket) evictIdle() {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	for key, b := range t.buckets {
		if now.Sub(b.lastSeen) > t.idleTTL {
			delete(t.buckets, key)
		}
	}
}

func (t *TokenBucket) Stop() {
	t.once.Do(func() {
		close(t.cancel)
	})
}
