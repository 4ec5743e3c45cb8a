package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

// NewMeterProvider returns an OTel meter provider whose instruments are
// exported on registerer, or the default registerer when nil, so they are
// served from /metrics next to the report instruments.
func NewMeterProvider(cfg Config, registerer prometheus.Registerer) (*sdkmetric.MeterProvider, error) {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	exporter, err := otelprom.New(
		otelprom.WithRegisterer(registerer),
		otelprom.WithoutScopeInfo(),
	)
	if err != nil {
		return nil, err
	}
	res := resource.NewSchemaless(
		attribute.String("service.name", cfg.serviceName()),
		attribute.String("deployment.environment", cfg.environment()),
	)
	return sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
		sdkmetric.WithResource(res),
	), nil
}
