package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/pqasys/langcsebkg5-sub008/internal/clock"
	"github.com/pqasys/langcsebkg5-sub008/internal/config"
	obsctx "github.com/pqasys/langcsebkg5-sub008/internal/observability/context"
	"github.com/pqasys/langcsebkg5-sub008/internal/observability/metrics"
	"github.com/pqasys/langcsebkg5-sub008/internal/observability/tracing"
	"github.com/pqasys/langcsebkg5-sub008/internal/revenue/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const (
	tracerName = "revenue.service"

	reportSummary    = "summary"
	reportBreakdown  = "breakdown"
	reportProjection = "projection"

	trendMonths        = 12
	projectionWindow   = 3
	growthFactorWindow = 30 * 24 * time.Hour
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Clock   clock.Clock
	Cfg     config.Config
	Repo    domain.Repository
	Metrics *metrics.ReportMetrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	clock   clock.Clock
	repo    domain.Repository
	metrics *metrics.ReportMetrics
	impacts config.RevenueConfig
}

func NewService(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("revenue.service"),
		clock:   p.Clock,
		repo:    p.Repo,
		metrics: p.Metrics,
		impacts: p.Cfg.Revenue,
	}
}

func (s *Service) Summary(ctx context.Context, r domain.Range) (domain.Summary, error) {
	if err := r.Validate(); err != nil {
		return domain.Summary{}, err
	}
	ctx, span := tracing.Start(ctx, tracerName, "revenue.Summary", rangeAttributes(r)...)
	defer span.End()

	started := time.Now()
	summary, err := s.summary(ctx, r)
	if err := s.finish(ctx, span, reportSummary, started, err); err != nil {
		return domain.Summary{}, err
	}
	return summary, nil
}

func (s *Service) Breakdown(ctx context.Context, r domain.Range) (domain.Breakdown, error) {
	if err := r.Validate(); err != nil {
		return domain.Breakdown{}, err
	}
	ctx, span := tracing.Start(ctx, tracerName, "revenue.Breakdown", rangeAttributes(r)...)
	defer span.End()

	started := time.Now()
	breakdown, err := s.breakdown(ctx, r)
	if err := s.finish(ctx, span, reportBreakdown, started, err); err != nil {
		return domain.Breakdown{}, err
	}
	return breakdown, nil
}

// Projection uses the six complete months before asOf. A zero asOf means now.
func (s *Service) Projection(ctx context.Context, asOf time.Time) (domain.Projection, error) {
	if asOf.IsZero() {
		asOf = s.clock.Now()
	}
	asOf = asOf.UTC()
	ctx, span := tracing.Start(ctx, tracerName, "revenue.Projection",
		attribute.String("revenue.as_of", asOf.Format(time.RFC3339)),
	)
	defer span.End()

	started := time.Now()
	projection, err := s.projection(ctx, asOf)
	if err := s.finish(ctx, span, reportProjection, started, err); err != nil {
		return domain.Projection{}, err
	}
	return projection, nil
}

// finish records the run and wraps any failure as ErrAggregationFailed.
func (s *Service) finish(ctx context.Context, span trace.Span, report string, started time.Time, err error) error {
	elapsed := time.Since(started)
	s.metrics.ObserveReport(report, elapsed, err)
	if err == nil {
		return nil
	}
	tracing.RecordError(span, err)
	s.log.Error("revenue report failed",
		zap.String("report", report),
		zap.String("request_id", obsctx.RequestIDFromContext(ctx)),
		zap.Duration("elapsed", elapsed),
		zap.Error(err),
	)
	return fmt.Errorf("%w: %w", domain.ErrAggregationFailed, err)
}

func (s *Service) summary(ctx context.Context, r domain.Range) (domain.Summary, error) {
	totals, err := s.repo.SumPayments(ctx, s.db, r)
	if err != nil {
		return domain.Summary{}, err
	}
	institutionBilling, err := s.repo.SumInstitutionBilling(ctx, s.db, r)
	if err != nil {
		return domain.Summary{}, err
	}
	studentBilling, err := s.repo.SumStudentBilling(ctx, s.db, r)
	if err != nil {
		return domain.Summary{}, err
	}
	previous, err := s.repo.SumPayments(ctx, s.db, r.Previous())
	if err != nil {
		return domain.Summary{}, err
	}

	return domain.Summary{
		Start:                          r.Start,
		End:                            r.End,
		TotalRevenue:                   totals.Amount,
		CommissionRevenue:              totals.Commission,
		StudentRevenue:                 totals.Amount - totals.Commission,
		SubscriptionRevenue:            institutionBilling + studentBilling,
		InstitutionSubscriptionRevenue: institutionBilling,
		StudentSubscriptionRevenue:     studentBilling,
		PaymentCount:                   totals.Count,
		GrowthRate:                     growthRate(totals.Amount, previous.Amount),
	}, nil
}

func (s *Service) breakdown(ctx context.Context, r domain.Range) (domain.Breakdown, error) {
	var out domain.Breakdown
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		summary, err := s.summary(gctx, r)
		out.Summary = summary
		return err
	})
	g.Go(func() error {
		institutions, err := s.institutionBreakdown(gctx, r)
		out.ByInstitution = institutions
		return err
	})
	g.Go(func() error {
		plans, err := s.planBreakdown(gctx, r)
		out.ByPlan = plans
		return err
	})
	g.Go(func() error {
		last := domain.MonthRange(r.End.Add(-time.Nanosecond))
		monthly, err := s.monthlySeries(gctx, last.Start, trendMonths)
		out.Monthly = monthly
		return err
	})

	if err := g.Wait(); err != nil {
		return domain.Breakdown{}, err
	}
	return out, nil
}

func (s *Service) institutionBreakdown(ctx context.Context, r domain.Range) ([]domain.InstitutionBreakdown, error) {
	payments, err := s.repo.ListInstitutionPayments(ctx, s.db, r)
	if err != nil {
		return nil, err
	}
	billing, err := s.repo.ListInstitutionBilling(ctx, s.db, r)
	if err != nil {
		return nil, err
	}

	byID := make(map[int64]*domain.InstitutionBreakdown, len(payments)+len(billing))
	get := func(id int64) *domain.InstitutionBreakdown {
		item, ok := byID[id]
		if !ok {
			item = &domain.InstitutionBreakdown{}
			byID[id] = item
		}
		return item
	}
	for _, row := range payments {
		item := get(row.InstitutionID.Int64())
		item.InstitutionID = row.InstitutionID
		item.InstitutionName = row.InstitutionName
		item.CourseRevenue += row.Revenue
		item.StudentCount += row.StudentCount
		item.CourseCount += row.CourseCount
	}
	for _, row := range billing {
		item := get(row.InstitutionID.Int64())
		item.InstitutionID = row.InstitutionID
		item.InstitutionName = row.InstitutionName
		item.SubscriptionRevenue += row.Revenue
	}

	out := make([]domain.InstitutionBreakdown, 0, len(byID))
	for _, item := range byID {
		item.TotalRevenue = item.CourseRevenue + item.SubscriptionRevenue
		out = append(out, *item)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalRevenue != out[j].TotalRevenue {
			return out[i].TotalRevenue > out[j].TotalRevenue
		}
		return out[i].InstitutionID < out[j].InstitutionID
	})
	return out, nil
}

func (s *Service) planBreakdown(ctx context.Context, r domain.Range) ([]domain.PlanBreakdown, error) {
	rows, err := s.repo.ListPlanRevenue(ctx, s.db, r)
	if err != nil {
		return nil, err
	}
	out := make([]domain.PlanBreakdown, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.PlanBreakdown{
			PlanType:          row.PlanType,
			CommissionRate:    row.CommissionRate,
			SubscriptionCount: row.SubscriptionCount,
			Revenue:           row.Revenue,
			Commission:        commission(row.Revenue, row.CommissionRate),
		})
	}
	return out, nil
}

// monthlySeries returns count months ending with the month starting at last,
// oldest first. One extra month is read so the first point has a growth value.
func (s *Service) monthlySeries(ctx context.Context, last time.Time, count int) ([]domain.MonthlyRevenue, error) {
	series := make([]domain.MonthlyRevenue, 0, count+1)
	for i := count; i >= 0; i-- {
		month := domain.MonthRange(last.AddDate(0, -i, 0))
		point, err := s.monthTotals(ctx, month)
		if err != nil {
			return nil, err
		}
		if n := len(series); n > 0 {
			point.Growth = growthRate(point.TotalRevenue, series[n-1].TotalRevenue)
		}
		series = append(series, point)
	}
	return series[1:], nil
}

func (s *Service) monthTotals(ctx context.Context, month domain.Range) (domain.MonthlyRevenue, error) {
	totals, err := s.repo.SumPayments(ctx, s.db, month)
	if err != nil {
		return domain.MonthlyRevenue{}, err
	}
	institutionBilling, err := s.repo.SumInstitutionBilling(ctx, s.db, month)
	if err != nil {
		return domain.MonthlyRevenue{}, err
	}
	studentBilling, err := s.repo.SumStudentBilling(ctx, s.db, month)
	if err != nil {
		return domain.MonthlyRevenue{}, err
	}
	return domain.MonthlyRevenue{
		Period:              month.Start.Format("2006-01"),
		TotalRevenue:        totals.Amount,
		CommissionRevenue:   totals.Commission,
		SubscriptionRevenue: institutionBilling + studentBilling,
	}, nil
}

func (s *Service) projection(ctx context.Context, asOf time.Time) (domain.Projection, error) {
	out := domain.Projection{AsOf: asOf}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		lastComplete := domain.MonthRange(asOf).Start.AddDate(0, -1, 0)
		monthly, err := s.monthlySeries(gctx, lastComplete, 2*projectionWindow)
		if err != nil {
			return err
		}
		out.Monthly = monthly
		out.PreviousAverage = averageRevenue(monthly[:projectionWindow])
		out.CurrentAverage = averageRevenue(monthly[projectionWindow:])
		out.GrowthRate = growthRate(out.CurrentAverage, out.PreviousAverage)
		out.ProjectedRevenue = project(out.CurrentAverage, out.PreviousAverage)
		return nil
	})
	g.Go(func() error {
		factors, err := s.growthFactors(gctx, domain.Range{Start: asOf.Add(-growthFactorWindow), End: asOf})
		if err != nil {
			return err
		}
		out.GrowthFactors = factors
		for _, f := range factors {
			out.GrowthImpact += f.EstimatedImpact
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return domain.Projection{}, err
	}
	return out, nil
}

func (s *Service) growthFactors(ctx context.Context, window domain.Range) ([]domain.GrowthFactor, error) {
	institutions, err := s.repo.CountNewInstitutions(ctx, s.db, window)
	if err != nil {
		return nil, err
	}
	upgrades, err := s.repo.CountPlanUpgrades(ctx, s.db, window)
	if err != nil {
		return nil, err
	}
	enrollments, err := s.repo.CountNewEnrollments(ctx, s.db, window)
	if err != nil {
		return nil, err
	}
	return []domain.GrowthFactor{
		newGrowthFactor(domain.GrowthFactorNewInstitutions, institutions, s.impacts.NewInstitutionImpact),
		newGrowthFactor(domain.GrowthFactorPlanUpgrades, upgrades, s.impacts.PlanUpgradeImpact),
		newGrowthFactor(domain.GrowthFactorNewEnrollments, enrollments, s.impacts.NewEnrollmentImpact),
	}, nil
}

func newGrowthFactor(name string, count, impact int64) domain.GrowthFactor {
	return domain.GrowthFactor{
		Name:            name,
		Count:           count,
		ImpactPerUnit:   impact,
		EstimatedImpact: count * impact,
	}
}

func rangeAttributes(r domain.Range) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("revenue.range_start", r.Start.Format(time.RFC3339)),
		attribute.String("revenue.range_end", r.End.Format(time.RFC3339)),
	}
}
