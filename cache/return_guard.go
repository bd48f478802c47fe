package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ReturnGuard 同一借用的归还请求在 ttl 内只放行一次，挡住重复提交
type ReturnGuard struct {
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
}

func NewReturnGuard(rdb *redis.Client, prefix string, ttl time.Duration) *ReturnGuard {
	return &ReturnGuard{rdb: rdb, ttl: ttl, prefix: prefix}
}

func (g *ReturnGuard) key(loanID string) string {
	return fmt.Sprintf("%s:inv:return:%s", g.prefix, loanID)
}

// Acquire 返回 false 表示 ttl 内已有同一借用的归还请求
func (g *ReturnGuard) Acquire(ctx context.Context, loanID string) (bool, error) {
	if g == nil {
		return true, nil
	}
	return g.rdb.SetNX(ctx, g.key(loanID), "1", g.ttl).Result()
}

func (g *ReturnGuard) Release(ctx context.Context, loanID string) {
	if g == nil {
		return
	}
	_ = g.rdb.Del(ctx, g.key(loanID)).Err()
}
