package observability

import (
	"github.com/pqasys/langcsebkg5-sub008/internal/config"
	"github.com/pqasys/langcsebkg5-sub008/internal/observability/logger"
	"github.com/pqasys/langcsebkg5-sub008/internal/observability/metrics"
	"github.com/pqasys/langcsebkg5-sub008/internal/observability/tracing"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("observability",
	fx.Provide(func(cfg config.Config) (*zap.Logger, error) {
		return logger.New(logger.Config{
			ServiceName: cfg.AppName,
			Environment: cfg.Environment,
		})
	}),
	fx.Provide(func(cfg config.Config) tracing.Config {
		return tracing.Config{
			Enabled:          cfg.Otel.TracingEnabled,
			ServiceName:      cfg.AppName,
			ServiceVersion:   cfg.Version,
			Environment:      cfg.Environment,
			ExporterEndpoint: cfg.Otel.ExporterEndpoint,
			ExporterProtocol: cfg.Otel.ExporterProtocol,
			SamplingRatio:    cfg.Otel.SamplingRatio,
		}
	}),
	fx.Provide(func(cfg config.Config) metrics.Config {
		return metrics.Config{ServiceName: cfg.AppName, Environment: cfg.Environment}
	}),
	fx.Provide(func(lc fx.Lifecycle, cfg metrics.Config) (*sdkmetric.MeterProvider, error) {
		provider, err := metrics.NewMeterProvider(cfg, nil)
		if err != nil {
			return nil, err
		}
		otel.SetMeterProvider(provider)
		lc.Append(fx.Hook{OnStop: provider.Shutdown})
		return provider, nil
	}),
	fx.Provide(func(cfg metrics.Config, provider *sdkmetric.MeterProvider) (*metrics.HTTPMetrics, error) {
		return metrics.NewHTTPMetrics(cfg, provider)
	}),
	fx.Provide(func(cfg metrics.Config) *metrics.ReportMetrics {
		return metrics.NewReportMetrics(cfg, nil)
	}),
	fx.Invoke(tracing.NewProvider),
)
