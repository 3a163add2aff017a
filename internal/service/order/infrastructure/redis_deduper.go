// internal/service/order/infrastructure/redis_deduper.go
package infrastructure

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	dedupKeyPrefix = "stocklog:event:"
	dedupKeyTTL    = 24 * time.Hour
)

// RedisDeduper 用 SETNX 实现 port.Deduper。
// key 带 TTL：去重窗口之外的重复事件会再被处理一次，
// 对只追加的审计日志来说是可接受的。
type RedisDeduper struct {
	client *redis.Client
}

func NewRedisDeduper(client *redis.Client) *RedisDeduper {
	return &RedisDeduper{client: client}
}

func (d *RedisDeduper) FirstSeen(ctx context.Context, eventID string) (bool, error) {
	return d.client.SetNX(ctx, dedupKeyPrefix+eventID, 1, dedupKeyTTL).Result()
}
