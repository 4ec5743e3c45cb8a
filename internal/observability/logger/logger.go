// Package logger builds the service zap logger and request-scoped children of it.
package logger

import (
	"context"
	"strings"

	obscontext "github.com/pqasys/langcsebkg5-sub008/internal/observability/context"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config selects encoder and level.
type Config struct {
	ServiceName string
	Environment string
	Level       string
}

// New builds a JSON logger for production and a console logger otherwise, and
// installs it as the zap global so FromContext works outside fx wiring.
func New(cfg Config) (*zap.Logger, error) {
	var zcfg zap.Config
	if strings.EqualFold(cfg.Environment, "production") {
		zcfg = zap.NewProductionConfig()
	} else {
		zcfg = zap.NewDevelopmentConfig()
		zcfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	zcfg.EncoderConfig.TimeKey = "ts"
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	if lvl := strings.TrimSpace(cfg.Level); lvl != "" {
		level, err := zapcore.ParseLevel(lvl)
		if err != nil {
			return nil, err
		}
		zcfg.Level = zap.NewAtomicLevelAt(level)
	}

	log, err := zcfg.Build()
	if err != nil {
		return nil, err
	}
	if name := strings.TrimSpace(cfg.ServiceName); name != "" {
		log = log.With(zap.String("service", name))
	}
	zap.ReplaceGlobals(log)
	return log, nil
}

// FromContext returns the global logger enriched with request and trace identifiers.
func FromContext(ctx context.Context) *zap.Logger {
	log := zap.L()
	if ctx == nil {
		return log
	}
	fields := make([]zap.Field, 0, 3)
	if requestID := obscontext.RequestIDFromContext(ctx); requestID != "" {
		fields = append(fields, zap.String("request_id", requestID))
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
	}
	if len(fields) == 0 {
		return log
	}
	return log.With(fields...)
}
