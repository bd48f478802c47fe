package app

import (
	"context"
	"fmt"
	"time"

	"equipment_loan_tool/cache"
	"equipment_loan_tool/config"
	"equipment_loan_tool/db"
	"equipment_loan_tool/inventory"
	"equipment_loan_tool/logger"
	"equipment_loan_tool/media"
	"equipment_loan_tool/remote"

	"github.com/gin-gonic/gin"
	"github.com/panjf2000/ants/v2"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"
)

// 简化别名，便于 handlers 调用
type Ctx = gin.Context
type H = gin.H

// App 聚合各依赖
type App struct {
	Router *gin.Engine
	DB     *gorm.DB
	Repo   *db.Repo
	RDB    *redis.Client
	Pool   *ants.Pool
	Config *config.GlobalConfig

	Hub       *inventory.Hub
	Mirror    *inventory.Mirror
	Desk      *inventory.Desk
	Media     *media.Service
	Dashboard *cache.DashboardCache
	Guard     *cache.ReturnGuard
}

func New(ctx context.Context, conf *config.GlobalConfig) (*App, error) {
	a := &App{Config: conf, Hub: inventory.NewHub()}

	store, err := a.openStore(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	if store != nil {
		pool, err := ants.NewPool(conf.Store.PoolSize, ants.WithNonblocking(false))
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("mirror pool: %w", err)
		}
		a.Pool = pool
		a.Mirror = inventory.NewMirror(store, pool, conf.Store.Timeout)
	}
	if a.Repo != nil {
		a.Hub.Subscribe(a.recordActivity)
	}

	// --- Redis ---
	if conf.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: conf.Redis.Addr, Password: conf.Redis.Password, DB: conf.Redis.DB})
		pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if err := rdb.Ping(pctx).Err(); err != nil {
			_ = rdb.Close()
			a.Close()
			return nil, fmt.Errorf("redis: %w", err)
		}
		a.RDB = rdb
		a.Dashboard = cache.NewDashboardCache(rdb, conf.Server.Platform, conf.Redis.DashboardTTL)
		a.Guard = cache.NewReturnGuard(rdb, conf.Server.Platform, conf.Redis.ReturnLock)
		a.Hub.Subscribe(func(inventory.Event) {
			if err := a.Dashboard.Invalidate(context.Background()); err != nil {
				logger.Warnf(ctx, "invalidate dashboard cache err: %v", err)
			}
		})
	}

	// --- Inventory ---
	reg := inventory.NewRegistry(a.Mirror, a.Hub)
	led := inventory.NewLedger(a.Mirror, a.Hub)
	if err := a.Mirror.Hydrate(ctx, reg, led); err != nil {
		a.Close()
		return nil, fmt.Errorf("hydrate: %w", err)
	}
	if conf.Store.SeedInitial {
		if n := inventory.Seed(ctx, reg); n > 0 {
			logger.Infof(ctx, "seeded %d initial materials", n)
		}
	}
	policy := inventory.ReturnAlwaysAvailable
	if conf.Loan.ReturnStatusPolicy == config.ReturnDerive {
		policy = inventory.ReturnDerive
	}
	a.Desk = inventory.NewDesk(reg, led, a.Mirror, policy)

	// --- Media ---
	var up media.Uploader
	if conf.Storage.AccessKeyID != "" {
		u, err := media.NewOSSUploader(conf.Storage)
		if err != nil {
			a.Close()
			return nil, err
		}
		up = u
	} else {
		logger.Warnf(ctx, "OSS_ACCESS_KEY_ID not set, uploads disabled")
	}
	var rs media.ImageResizer
	if conf.Resize.Endpoint != "" {
		rs = media.NewResizer(conf.Resize)
	}
	a.Media = media.NewService(up, rs, conf.Resize.ThresholdBytes)

	// --- Gin ---
	a.Router = NewRouter(conf.Server)
	return a, nil
}

// openStore 根据 STORE_DRIVER 选择远端持久化
func (a *App) openStore(ctx context.Context) (inventory.Store, error) {
	conf := a.Config
	switch conf.Store.Driver {
	case config.StorePostgres:
		conn, err := db.ConnectDB(ctx, conf.Database, conf.Log.LogLevel)
		if err != nil {
			return nil, err
		}
		a.DB = conn
		if err := db.Migrate(conn); err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
		a.Repo = db.NewRepo(conn)
		return a.Repo, nil
	case config.StoreHTTP:
		return remote.NewClient(conf.Store.APIBaseURL, conf.Store.Timeout), nil
	default:
		logger.Warnf(ctx, "STORE_DRIVER=%s, changes are kept in memory only", conf.Store.Driver)
		return nil, nil
	}
}

// recordActivity 异步写审计日志，失败只记日志
func (a *App) recordActivity(e inventory.Event) {
	ctx := context.Background()
	err := a.Pool.Submit(func() {
		c, cancel := context.WithTimeout(ctx, a.Config.Store.Timeout)
		defer cancel()
		if err := a.Repo.LogActivity(c, string(e.Type), e.ID, e.At); err != nil {
			logger.Errorf(c, "activity %s %s err: %v", e.Type, e.ID, err)
		}
	})
	if err != nil {
		logger.Errorf(ctx, "activity submit err: %v", err)
	}
}

func NewRouter(conf config.Server) *gin.Engine {
	r := gin.New()
	r.ContextWithFallback = true
	r.Use(gin.Recovery())
	useCORS(r, conf.WebOrigin)
	r.Use(otelgin.Middleware(fmt.Sprintf("%s-%s", conf.Platform, conf.Service)))
	r.Use(logger.LogWithWriter())
	return r
}

// Close 释放连接；等待镜像写入完成
func (a *App) Close() {
	if a.Pool != nil {
		if err := a.Pool.ReleaseTimeout(10 * time.Second); err != nil {
			logger.Warnf(context.Background(), "mirror pool release: %v", err)
		}
	}
	if a.RDB != nil {
		_ = a.RDB.Close()
	}
	db.Close(a.DB)
}
