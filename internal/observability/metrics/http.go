package metrics

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// HTTPMetrics captures low-cardinality HTTP server metrics.
type HTTPMetrics struct {
	requestDuration metric.Float64Histogram
	inFlight        metric.Int64UpDownCounter
}

// NewHTTPMetrics creates HTTP metrics instruments.
func NewHTTPMetrics(cfg Config, provider metric.MeterProvider) (*HTTPMetrics, error) {
	meter := provider.Meter(cfg.serviceName() + "/http")

	requestDuration, err := meter.Float64Histogram("http.server.duration_ms")
	if err != nil {
		return nil, err
	}
	inFlight, err := meter.Int64UpDownCounter("http.server.in_flight")
	if err != nil {
		return nil, err
	}
	return &HTTPMetrics{requestDuration: requestDuration, inFlight: inFlight}, nil
}

// GinMiddleware records request duration and in-flight metrics, keyed by route template.
func GinMiddleware(m *HTTPMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		route := c.FullPath()
		if strings.TrimSpace(route) == "" {
			route = "unmatched"
		}
		ctx := c.Request.Context()
		routeAttr := metric.WithAttributes(attribute.String("route", route))

		m.inFlight.Add(ctx, 1, routeAttr)
		start := time.Now()
		c.Next()
		m.inFlight.Add(ctx, -1, routeAttr)

		m.requestDuration.Record(ctx, float64(time.Since(start).Milliseconds()), metric.WithAttributes(
			attribute.String("route", route),
			attribute.String("status_code", strconv.Itoa(c.Writer.Status())),
		))
	}
}
