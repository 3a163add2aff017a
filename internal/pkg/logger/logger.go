// internal/pkg/logger/logger.go
package logger

import (
	"context"
	"os"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

var log zerolog.Logger

func init() {
	// 在 Init 之前也要能用，默认输出 JSON 到 stdout。
	log = zerolog.New(os.Stdout).With().Timestamp().Logger()
}

// Init 按服务名和环境初始化全局 logger。
// development 环境使用易读的 console 输出，其余环境输出 JSON。
func Init(serviceName, env string) {
	var l zerolog.Logger
	if env == "development" {
		l = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		l = zerolog.New(os.Stdout)
	}
	log = l.With().Timestamp().Str("service", serviceName).Logger()
}

// Logger 返回全局 logger。
func Logger() *zerolog.Logger {
	return &log
}

// Ctx 返回一个带上当前 trace_id / span_id 的 logger，
// 方便在 Jaeger 和日志之间互相跳转。
func Ctx(ctx context.Context) *zerolog.Logger {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return &log
	}
	l := log.With().
		Str("trace_id", sc.TraceID().String()).
		Str("span_id", sc.SpanID().String()).
		Logger()
	return &l
}
