package logger

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type ServiceEnv struct {
	Platform string
	Service  string
	Env      string
}

type LogConfig struct {
	Path       string
	LogLevel   string
	MaxSizeMB  int
	MaxBackups int
	ServiceEnv ServiceEnv
}

var (
	mu     sync.RWMutex
	base   = otelzap.New(zap.NewNop())
	writer *lumberjack.Logger
)

// Init 初始化全局日志：控制台 + 滚动文件，带 trace_id
func Init(conf *LogConfig) {
	level := zapcore.InfoLevel
	if err := level.UnmarshalText([]byte(strings.ToLower(conf.LogLevel))); err != nil {
		level = zapcore.InfoLevel
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "time"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.Lock(os.Stdout), level),
	}

	var w *lumberjack.Logger
	if conf.Path != "" {
		maxSize := conf.MaxSizeMB
		if maxSize <= 0 {
			maxSize = 100
		}
		backups := conf.MaxBackups
		if backups <= 0 {
			backups = 5
		}
		w = &lumberjack.Logger{
			Filename:   conf.Path,
			MaxSize:    maxSize,
			MaxBackups: backups,
			Compress:   true,
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(w), level))
	}

	zl := zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(1)).With(
		zap.String("platform", conf.ServiceEnv.Platform),
		zap.String("service", conf.ServiceEnv.Service),
		zap.String("env", conf.ServiceEnv.Env),
	)

	use(otelzap.New(zl, otelzap.WithMinLevel(level)), w)
}

func use(l *otelzap.Logger, w *lumberjack.Logger) {
	mu.Lock()
	defer mu.Unlock()
	base = l
	writer = w
}

// Close 刷盘并关闭文件
func Close() {
	mu.Lock()
	defer mu.Unlock()
	_ = base.Sync()
	if writer != nil {
		_ = writer.Close()
		writer = nil
	}
}

// L 绑定 ctx 的结构化日志，trace 字段需调用方用 TraceFields 带上
func L(ctx context.Context) otelzap.LoggerWithCtx {
	mu.RLock()
	defer mu.RUnlock()
	return base.Ctx(ctx)
}

// TraceFields ctx 里有有效 span 时返回 trace_id / span_id
func TraceFields(ctx context.Context) []zap.Field {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return nil
	}
	return []zap.Field{
		zap.String("trace_id", sc.TraceID().String()),
		zap.String("span_id", sc.SpanID().String()),
	}
}

func Debugf(ctx context.Context, format string, args ...any) {
	L(ctx).Debug(fmt.Sprintf(format, args...), TraceFields(ctx)...)
}

func Infof(ctx context.Context, format string, args ...any) {
	L(ctx).Info(fmt.Sprintf(format, args...), TraceFields(ctx)...)
}

func Warnf(ctx context.Context, format string, args ...any) {
	L(ctx).Warn(fmt.Sprintf(format, args...), TraceFields(ctx)...)
}

func Errorf(ctx context.Context, format string, args ...any) {
	L(ctx).Error(fmt.Sprintf(format, args...), TraceFields(ctx)...)
}
