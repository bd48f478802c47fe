package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"equipment_loan_tool/inventory"

	"github.com/redis/go-redis/v9"
)

// DashboardCache 首页统计缓存。每次变更把代数加一，旧代的值不再被读到；
// nil 接收者上的方法都不做任何事
type DashboardCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
}

func NewDashboardCache(rdb *redis.Client, prefix string, ttl time.Duration) *DashboardCache {
	return &DashboardCache{rdb: rdb, ttl: ttl, prefix: prefix}
}

func (c *DashboardCache) genKey() string { return fmt.Sprintf("%s:inv:dashboard:gen", c.prefix) }

func (c *DashboardCache) key(gen int64) string {
	return fmt.Sprintf("%s:inv:dashboard:%d", c.prefix, gen)
}

// Generation 当前代数，从未失效过时为 0
func (c *DashboardCache) Generation(ctx context.Context) (int64, error) {
	if c == nil {
		return 0, nil
	}
	gen, err := c.rdb.Get(ctx, c.genKey()).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

// Get 读当前代的统计，同时返回代数供 Set 使用；未命中时 ok=false, err=nil
func (c *DashboardCache) Get(ctx context.Context) (d inventory.Dashboard, gen int64, ok bool, err error) {
	if c == nil {
		return d, 0, false, nil
	}
	if gen, err = c.Generation(ctx); err != nil {
		return d, 0, false, err
	}
	b, err := c.rdb.Get(ctx, c.key(gen)).Bytes()
	if errors.Is(err, redis.Nil) {
		return d, gen, false, nil
	}
	if err != nil {
		return d, gen, false, err
	}
	if err := json.Unmarshal(b, &d); err != nil {
		return d, gen, false, err
	}
	return d, gen, true, nil
}

// Set 写到 gen 代；计算期间发生过失效时这份值写进旧代，不会被读到
func (c *DashboardCache) Set(ctx context.Context, gen int64, d inventory.Dashboard) error {
	if c == nil {
		return nil
	}
	b, err := json.Marshal(d)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, c.key(gen), b, c.ttl).Err()
}

func (c *DashboardCache) Invalidate(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.rdb.Incr(ctx, c.genKey()).Err()
}
