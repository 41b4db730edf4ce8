package ratelimit

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const redisKeyPrefix = "ratelimit:"

var tokenBucketScript = redis.NewScript(`
local key = KEYS[1]
local capacity = tonumber(ARGV[1])
local rate = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local ttl = tonumber(ARGV[4])

local bucket = redis.call('HMGET', key, 'tokens', 'last_refill')
local tokens = tonumber(bucket[1])
local lastRefill = tonumber(bucket[2])

-- key 不存在時以滿容量初始化
if tokens == nil then
	tokens = capacity
	lastRefill = now
end

local elapsed = (now - lastRefill) / 1000
if elapsed > 0 then
	tokens = math.min(capacity, tokens + elapsed * rate)
	lastRefill = now
end

local allowed = 0
if tokens >= 1 then
	tokens = tokens - 1
	allowed = 1
end

redis.call('HSET', key, 'tokens', tostring(tokens), 'last_refill', tostring(lastRefill))
redis.call('EXPIRE', key, ttl)
return allowed
`)

/*
多個 instance 共用的 token bucket, 狀態保存在 redis
以 lua script 保證讀取與扣除是原子的
redis 失敗時放行, 以 ctx 內的 request logger 記錄
*/
type RedisTokenBucket struct {
	Config
	client redis.Scripter
	ttl    time.Duration
	now    func() time.Time
}

func NewRedisTokenBucket(client redis.Scripter, config Config) *RedisTokenBucket {
	if client == nil {
		panic("NewRedisTokenBucket: redis client cannot be nil")
	}
	return &RedisTokenBucket{
		Config: config,
		client: client,
		ttl:    time.Minute,
		now:    time.Now,
	}
}

func (r *RedisTokenBucket) Allow(ctx context.Context, key string) bool {
	result, err := tokenBucketScript.Run(ctx, r.client,
		[]string{redisKeyPrefix + key},
		r.Capacity,
		strconv.FormatFloat(r.RatePerSecond, 'f', -1, 64),
		r.now().UnixMilli(),
		int(r.ttl.Seconds()),
	).Int64()
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("redis rate limiter failed, request allowed")
		return true
	}
	return result == 1
}
