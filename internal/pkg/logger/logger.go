package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	globalLogger *slog.Logger
	once         sync.Once
)

type ctxKey struct{}

// Init 初始化全局 logger，只有第一次调用生效
func Init(level, format string) {
	once.Do(func() {
		globalLogger = New(os.Stdout, level, format)
		slog.SetDefault(globalLogger)
	})
}

// New builds a logger tagged with the service name. format is "json" (default) or "text".
func New(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	var h slog.Handler
	if strings.EqualFold(format, "text") {
		h = slog.NewTextHandler(w, opts)
	} else {
		h = slog.NewJSONHandler(w, opts)
	}
	return slog.New(h).With("service", "lottogate")
}

func parseLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return slog.LevelInfo
	}
	return l
}

func Get() *slog.Logger {
	if globalLogger == nil {
		Init("info", "json")
	}
	return globalLogger
}

// WithContext attaches attributes (request_id, dealer_id) that every
// LogError/LogWarn on ctx will carry.
func WithContext(ctx context.Context, args ...any) context.Context {
	prev, _ := ctx.Value(ctxKey{}).([]any)
	merged := make([]any, 0, len(prev)+len(args))
	merged = append(merged, prev...)
	merged = append(merged, args...)
	return context.WithValue(ctx, ctxKey{}, merged)
}

func fromContext(ctx context.Context) []any {
	if ctx == nil {
		return nil
	}
	attrs, _ := ctx.Value(ctxKey{}).([]any)
	return attrs
}

func Info(msg string, args ...any)  { Get().Info(msg, args...) }
func Error(msg string, args ...any) { Get().Error(msg, args...) }
func Warn(msg string, args ...any)  { Get().Warn(msg, args...) }
func Debug(msg string, args ...any) { Get().Debug(msg, args...) }

func LogError(ctx context.Context, err error, msg string, args ...any) {
	logErr(ctx, slog.LevelError, err, msg, args)
}

// LogWarn is LogError at warn level, for failures the operation recovers from.
func LogWarn(ctx context.Context, err error, msg string, args ...any) {
	logErr(ctx, slog.LevelWarn, err, msg, args)
}

func logErr(ctx context.Context, level slog.Level, err error, msg string, args []any) {
	if err == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	base := fromContext(ctx)
	all := make([]any, 0, len(base)+len(args)+1)
	all = append(all, base...)
	all = append(all, args...)
	all = append(all, slog.String("error", err.Error()))
	Get().Log(ctx, level, msg, all...)
}
