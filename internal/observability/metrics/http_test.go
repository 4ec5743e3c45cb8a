package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

func TestGinMiddlewareExportsRequestDuration(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reg := prometheus.NewRegistry()
	cfg := Config{ServiceName: "lingua-test", Environment: "test"}

	provider, err := NewMeterProvider(cfg, reg)
	if err != nil {
		t.Fatalf("meter provider: %v", err)
	}
	defer provider.Shutdown(context.Background())

	m, err := NewHTTPMetrics(cfg, provider)
	if err != nil {
		t.Fatalf("http metrics: %v", err)
	}
	engine := gin.New()
	engine.Use(GinMiddleware(m))
	engine.GET("/api/courses/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	engine.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/courses/7", nil))

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	var count uint64
	for _, mf := range families {
		if !strings.HasPrefix(mf.GetName(), "http_server_duration") {
			continue
		}
		for _, metric := range mf.GetMetric() {
			labels := map[string]string{}
			for _, pair := range metric.GetLabel() {
				labels[pair.GetName()] = pair.GetValue()
			}
			if labels["route"] == "/api/courses/:id" && labels["status_code"] == "204" {
				count += metric.GetHistogram().GetSampleCount()
			}
		}
	}
	if count != 1 {
		t.Fatalf("expected one recorded request, got %d", count)
	}
}

func TestGinMiddlewareWithoutMetricsPassesThrough(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(GinMiddleware(nil))
	engine.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
