package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	ResultSuccess = "success"
	ResultFailed  = "failed"
)

// ReportMetrics tracks revenue report generation and pricing schedule writes.
type ReportMetrics struct {
	reportDuration  *prometheus.HistogramVec
	reportsTotal    *prometheus.CounterVec
	pricingWrites   *prometheus.CounterVec
	customOverrides prometheus.Counter
}

// NewReportMetrics registers the report instruments on registerer, or the
// default registerer when nil.
func NewReportMetrics(cfg Config, registerer prometheus.Registerer) *ReportMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	constLabels := prometheus.Labels{
		"service": cfg.serviceName(),
		"env":     cfg.environment(),
	}

	reportDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:        "lingua_revenue_report_duration_seconds",
			Help:        "Time spent building a revenue report.",
			Buckets:     []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			ConstLabels: constLabels,
		},
		[]string{"report"},
	)
	reportsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "lingua_revenue_reports_total",
			Help:        "Revenue reports generated by report kind and result.",
			ConstLabels: constLabels,
		},
		[]string{"report", "result"}, // success | failed
	)
	pricingWrites := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "lingua_pricing_schedule_writes_total",
			Help:        "Monthly price schedule writes by operation.",
			ConstLabels: constLabels,
		},
		[]string{"operation"},
	)
	customOverrides := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name:        "lingua_pricing_custom_prices_total",
			Help:        "Monthly prices persisted with a value diverging from the discount formula.",
			ConstLabels: constLabels,
		},
	)

	registerer.MustRegister(reportDuration, reportsTotal, pricingWrites, customOverrides)

	return &ReportMetrics{
		reportDuration:  reportDuration,
		reportsTotal:    reportsTotal,
		pricingWrites:   pricingWrites,
		customOverrides: customOverrides,
	}
}

// ObserveReport records one report run.
func (m *ReportMetrics) ObserveReport(report string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	result := ResultSuccess
	if err != nil {
		result = ResultFailed
	}
	m.reportDuration.WithLabelValues(report).Observe(elapsed.Seconds())
	m.reportsTotal.WithLabelValues(report, result).Inc()
}

// IncPricingWrite counts a persisted schedule mutation and the custom prices it stored.
func (m *ReportMetrics) IncPricingWrite(operation string, customCount int) {
	if m == nil {
		return
	}
	m.pricingWrites.WithLabelValues(operation).Inc()
	if customCount > 0 {
		m.customOverrides.Add(float64(customCount))
	}
}
