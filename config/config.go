package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type GlobalConfig struct {
	Server   Server   `mapstructure:",squash"`
	Database Database `mapstructure:",squash"`
	Redis    Redis    `mapstructure:",squash"`
	Store    Store    `mapstructure:",squash"`
	Storage  Storage  `mapstructure:",squash"`
	Resize   Resize   `mapstructure:",squash"`
	Loan     Loan     `mapstructure:",squash"`
	Log      Log      `mapstructure:",squash"`
}

type Server struct {
	Platform  string `mapstructure:"PLATFORM" default:"federation"`
	Service   string `mapstructure:"SERVICE" default:"inventory"`
	Env       string `mapstructure:"ENV" default:"dev"`
	Port      int    `mapstructure:"PORT" default:"3001"`
	WebOrigin string `mapstructure:"WEB_ORIGIN" default:"http://localhost:3000"`
}

type Database struct {
	Host     string `mapstructure:"DB_HOST" default:"localhost"`
	Port     int    `mapstructure:"DB_PORT" default:"5432"`
	Name     string `mapstructure:"DB_NAME" default:"inventory"`
	User     string `mapstructure:"DB_USER" default:"postgres"`
	Password string `mapstructure:"DB_PASSWORD" default:"postgres"`
	SSLMode  string `mapstructure:"DB_SSLMODE" default:"disable"`
}

type Redis struct {
	Addr         string        `mapstructure:"REDIS_ADDR"`
	Password     string        `mapstructure:"REDIS_PASSWORD"`
	DB           int           `mapstructure:"REDIS_DB" default:"0"`
	DashboardTTL time.Duration `mapstructure:"DASHBOARD_CACHE_TTL" default:"30s"`
	ReturnLock   time.Duration `mapstructure:"RETURN_GUARD_TTL" default:"5s"`
}

// StoreDriver 选择远端持久化：postgres / http / memory
type StoreDriver string

const (
	StorePostgres StoreDriver = "postgres"
	StoreHTTP     StoreDriver = "http"
	StoreMemory   StoreDriver = "memory"
)

type Store struct {
	Driver      StoreDriver   `mapstructure:"STORE_DRIVER" default:"postgres"`
	APIBaseURL  string        `mapstructure:"API_BASE_URL" default:"http://localhost:4566/restapis/inventory/dev/_user_request_"`
	Timeout     time.Duration `mapstructure:"STORE_TIMEOUT" default:"10s"`
	PoolSize    int           `mapstructure:"MIRROR_POOL_SIZE" default:"16"`
	SeedInitial bool          `mapstructure:"SEED_INITIAL_MATERIALS" default:"true"`
}

type Storage struct {
	Endpoint        string `mapstructure:"OSS_ENDPOINT" default:"oss-cn-hangzhou.aliyuncs.com"`
	AccessKeyID     string `mapstructure:"OSS_ACCESS_KEY_ID"`
	AccessKeySecret string `mapstructure:"OSS_ACCESS_KEY_SECRET"`
	Bucket          string `mapstructure:"OSS_BUCKET" default:"materials"`
	PublicBaseURL   string `mapstructure:"OSS_PUBLIC_URL"`
	Prefix          string `mapstructure:"OSS_PREFIX" default:"materials"`
}

type Resize struct {
	Endpoint       string        `mapstructure:"RESIZE_ENDPOINT"`
	ThresholdBytes int64         `mapstructure:"RESIZE_THRESHOLD_BYTES" default:"2097152"`
	Width          int           `mapstructure:"RESIZE_WIDTH" default:"1024"`
	Height         int           `mapstructure:"RESIZE_HEIGHT" default:"1024"`
	Format         string        `mapstructure:"RESIZE_FORMAT" default:"webp"`
	Quality        int           `mapstructure:"RESIZE_QUALITY" default:"80"`
	Timeout        time.Duration `mapstructure:"RESIZE_TIMEOUT" default:"30s"`
}

// ReturnStatusPolicy 归还后 status 的计算方式
type ReturnStatusPolicy string

const (
	ReturnAlwaysAvailable ReturnStatusPolicy = "always_available"
	ReturnDerive          ReturnStatusPolicy = "derive"
)

type Loan struct {
	ReturnStatusPolicy ReturnStatusPolicy `mapstructure:"RETURN_STATUS_POLICY" default:"always_available"`
}

type Log struct {
	LogPath  string `mapstructure:"LOG_PATH" default:"./inventory.log"`
	LogLevel string `mapstructure:"LOG_LEVEL" default:"info"`
}

var config = &GlobalConfig{}

func init() {
	if err := defaults.Set(config); err != nil {
		fmt.Printf("set default err: %+v", err)
		os.Exit(1)
	}
}

func Global() *GlobalConfig {
	return config
}

// LoadEnv 读取 .env 后由 viper 覆盖默认值
func LoadEnv() error {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found - using environment variables")
	}

	c, err := Load()
	if err != nil {
		return err
	}
	*config = *c
	return nil
}

// Load 默认值 + 环境变量；显式设为空串的变量也会覆盖默认值，用来关掉可选组件
func Load() (*GlobalConfig, error) {
	c := &GlobalConfig{}
	if err := defaults.Set(c); err != nil {
		return nil, fmt.Errorf("set defaults: %w", err)
	}

	v := viper.NewWithOptions(viper.ExperimentalBindStruct())
	v.AllowEmptyEnv(true)
	v.AutomaticEnv()
	if err := v.Unmarshal(c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *GlobalConfig) Validate() error {
	switch c.Store.Driver {
	case StorePostgres, StoreHTTP, StoreMemory:
	default:
		return fmt.Errorf("invalid STORE_DRIVER %q", c.Store.Driver)
	}
	switch c.Loan.ReturnStatusPolicy {
	case ReturnAlwaysAvailable, ReturnDerive:
	default:
		return fmt.Errorf("invalid RETURN_STATUS_POLICY %q", c.Loan.ReturnStatusPolicy)
	}
	if c.Store.Driver == StoreHTTP && strings.TrimSpace(c.Store.APIBaseURL) == "" {
		return fmt.Errorf("API_BASE_URL is required when STORE_DRIVER=http")
	}
	return nil
}

// DSN postgres 连接串
func (d Database) DSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%d sslmode=%s",
		d.Host, d.User, d.Password, d.Name, d.Port, d.SSLMode,
	)
}
