package tracing

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	serviceNamespace = "lingua"
	defaultRatio     = 0.1
)

// ReportRoutes are the request paths whose traces are always kept. Revenue
// reports are rare and slow, and schedule writes change prices.
var ReportRoutes = []string{"/api/admin/revenue/", "/monthly-prices"}

// Config configures the tracer provider and exporter.
type Config struct {
	Enabled          bool
	ServiceName      string
	ServiceVersion   string
	Environment      string
	ExporterEndpoint string
	ExporterProtocol string
	SamplingRatio    float64
	// AlwaysSample lists span name fragments sampled regardless of the ratio.
	// Defaults to ReportRoutes.
	AlwaysSample []string
}

// NewProvider installs the global tracer provider. With tracing disabled a
// no-op provider is installed and nil is returned.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (*sdktrace.TracerProvider, error) {
	SetPropagator()
	if !cfg.Enabled {
		otel.SetTracerProvider(noop.NewTracerProvider())
		return nil, nil
	}

	protocol := strings.ToLower(strings.TrimSpace(cfg.ExporterProtocol))
	exporter, err := newExporter(protocol, strings.TrimSpace(cfg.ExporterEndpoint))
	if err != nil {
		return nil, err
	}

	res, err := newResource(cfg)
	if err != nil {
		return nil, err
	}

	sampler := newReportSampler(cfg)
	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sampler)),
	)
	otel.SetTracerProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				log.Info("shutting down tracer provider")
				return provider.Shutdown(ctx)
			},
		})
	}

	log.Info("tracing initialized",
		zap.String("protocol", protocol),
		zap.String("sampler", sampler.Description()),
	)
	return provider, nil
}

func newResource(cfg Config) (*resource.Resource, error) {
	return resource.New(context.Background(),
		resource.WithHost(),
		resource.WithProcessRuntimeVersion(),
		resource.WithAttributes(
			attribute.String("service.name", cfg.ServiceName),
			attribute.String("service.namespace", serviceNamespace),
			attribute.String("service.version", cfg.ServiceVersion),
			attribute.String("deployment.environment", cfg.Environment),
			attribute.StringSlice("lingua.components", []string{"revenue", "pricing"}),
		),
	)
}

// newExporter accepts either host:port or a full URL as endpoint. A URL
// overrides the scheme and path defaults of the chosen protocol.
func newExporter(protocol, endpoint string) (sdktrace.SpanExporter, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	isURL := false
	if endpoint != "" {
		if u, err := url.Parse(endpoint); err == nil && u.Scheme != "" && u.Host != "" {
			isURL = true
		}
	}

	switch protocol {
	case "http", "http/protobuf":
		var opts []otlptracehttp.Option
		switch {
		case isURL:
			opts = append(opts, otlptracehttp.WithEndpointURL(endpoint))
		case endpoint != "":
			opts = append(opts, otlptracehttp.WithEndpoint(endpoint))
		}
		return otlptracehttp.New(ctx, opts...)
	case "grpc", "":
		var opts []otlptracegrpc.Option
		switch {
		case isURL:
			opts = append(opts, otlptracegrpc.WithEndpointURL(endpoint))
		case endpoint != "":
			opts = append(opts, otlptracegrpc.WithInsecure(), otlptracegrpc.WithEndpoint(endpoint))
		default:
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		return otlptracegrpc.New(ctx, opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

// reportSampler keeps every root span whose name matches a report route and
// samples the rest by ratio.
type reportSampler struct {
	fragments []string
	fallback  sdktrace.Sampler
}

func newReportSampler(cfg Config) reportSampler {
	fragments := cfg.AlwaysSample
	if len(fragments) == 0 {
		fragments = ReportRoutes
	}
	return reportSampler{
		fragments: fragments,
		fallback:  sdktrace.TraceIDRatioBased(clampRatio(cfg.SamplingRatio)),
	}
}

func (s reportSampler) ShouldSample(p sdktrace.SamplingParameters) sdktrace.SamplingResult {
	for _, fragment := range s.fragments {
		if fragment != "" && strings.Contains(p.Name, fragment) {
			return sdktrace.AlwaysSample().ShouldSample(p)
		}
	}
	return s.fallback.ShouldSample(p)
}

func (s reportSampler) Description() string {
	return fmt.Sprintf("ReportSampler{%s;%s}", strings.Join(s.fragments, ","), s.fallback.Description())
}

func clampRatio(value float64) float64 {
	switch {
	case value <= 0:
		return defaultRatio
	case value > 1:
		return 1
	default:
		return value
	}
}
