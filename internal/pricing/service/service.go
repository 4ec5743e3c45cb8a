package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/pqasys/langcsebkg5-sub008/internal/audit/domain"
	"github.com/pqasys/langcsebkg5-sub008/internal/cache"
	"github.com/pqasys/langcsebkg5-sub008/internal/clock"
	"github.com/pqasys/langcsebkg5-sub008/internal/config"
	marketplacedomain "github.com/pqasys/langcsebkg5-sub008/internal/marketplace/domain"
	"github.com/pqasys/langcsebkg5-sub008/internal/observability/logger"
	"github.com/pqasys/langcsebkg5-sub008/internal/observability/metrics"
	"github.com/pqasys/langcsebkg5-sub008/internal/pricing/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	auditTargetCourse = "course"

	opSave     = "save"
	opOverride = "override"
	opSetAll   = "set_all"
	opReset    = "reset"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Cfg      config.Config
	Repo     domain.Repository
	AuditSvc auditdomain.Service    `optional:"true"`
	Metrics  *metrics.ReportMetrics `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	repo        domain.Repository
	auditSvc    auditdomain.Service
	metrics     *metrics.ReportMetrics
	courseCache cache.Cache[snowflake.ID, marketplacedomain.Course]
}

func NewService(p Params) domain.Service {
	var courses cache.Cache[snowflake.ID, marketplacedomain.Course] = cache.NoopCache[snowflake.ID, marketplacedomain.Course]{}
	if p.Cfg.Pricing.CourseCacheTTL > 0 {
		courses = cache.NewTTLCache[snowflake.ID, marketplacedomain.Course](p.Cfg.Pricing.CourseCacheTTL)
	}
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("pricing.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		repo:        p.Repo,
		auditSvc:    p.AuditSvc,
		metrics:     p.Metrics,
		courseCache: courses,
	}
}

func (s *Service) GetSchedule(ctx context.Context, courseID snowflake.ID, year int) (*domain.Schedule, error) {
	return s.loadSchedule(ctx, s.db, courseID, year, true)
}

func (s *Service) SaveSchedule(ctx context.Context, courseID snowflake.ID, year int, prices []domain.PriceInput) (*domain.Schedule, error) {
	for _, in := range prices {
		if in.MonthNumber < 1 || in.MonthNumber > domain.MonthsPerSchedule {
			return nil, domain.ErrInvalidMonth
		}
		if in.Price < 0 {
			return nil, domain.ErrInvalidPrice
		}
	}
	return s.mutate(ctx, courseID, year, opSave, map[string]any{"prices": len(prices)}, func(sched *domain.Schedule) ([]int, error) {
		for _, in := range prices {
			if err := sched.Override(in.MonthNumber, in.Price); err != nil {
				return nil, err
			}
		}
		return allMonths(), nil
	})
}

func (s *Service) OverrideMonth(ctx context.Context, courseID snowflake.ID, year, monthNumber int, price int64) (*domain.Schedule, error) {
	meta := map[string]any{"month_number": monthNumber, "price": price}
	return s.mutate(ctx, courseID, year, opOverride, meta, func(sched *domain.Schedule) ([]int, error) {
		if err := sched.Override(monthNumber, price); err != nil {
			return nil, err
		}
		return []int{monthNumber}, nil
	})
}

func (s *Service) SetAll(ctx context.Context, courseID snowflake.ID, year int, price int64) (*domain.Schedule, error) {
	return s.mutate(ctx, courseID, year, opSetAll, map[string]any{"price": price}, func(sched *domain.Schedule) ([]int, error) {
		if err := sched.SetAll(price); err != nil {
			return nil, err
		}
		return allMonths(), nil
	})
}

func (s *Service) Reset(ctx context.Context, courseID snowflake.ID, year int) (*domain.Schedule, error) {
	return s.mutate(ctx, courseID, year, opReset, nil, func(sched *domain.Schedule) ([]int, error) {
		sched.Reset()
		return allMonths(), nil
	})
}

// mutate loads the schedule, applies change and persists the months it returns
// in one transaction. The course is read through tx so prices are built on the
// current base price. The audit entry is written after commit.
func (s *Service) mutate(
	ctx context.Context,
	courseID snowflake.ID,
	year int,
	operation string,
	metadata map[string]any,
	change func(*domain.Schedule) ([]int, error),
) (*domain.Schedule, error) {
	var sched *domain.Schedule
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		loaded, err := s.loadSchedule(ctx, tx, courseID, year, false)
		if err != nil {
			return err
		}
		months, err := change(loaded)
		if err != nil {
			return err
		}
		if err := s.repo.UpsertMonthlyPrices(ctx, tx, s.rowsFor(loaded, months)); err != nil {
			return err
		}
		sched = loaded
		return nil
	})
	if err != nil {
		logger.FromContext(ctx).Named("pricing.service").Warn("monthly price write failed",
			zap.String("operation", operation),
			zap.String("course_id", courseID.String()),
			zap.Int("year", year),
			zap.Error(err),
		)
		return nil, err
	}

	s.metrics.IncPricingWrite(operation, sched.CustomCount())
	s.writeAudit(ctx, operation, sched, metadata)
	return sched, nil
}

func (s *Service) loadSchedule(ctx context.Context, db *gorm.DB, courseID snowflake.ID, year int, cached bool) (*domain.Schedule, error) {
	if err := domain.ValidateYear(year); err != nil {
		return nil, err
	}
	course, err := s.findCourse(ctx, db, courseID, cached)
	if err != nil {
		return nil, err
	}
	sched, err := domain.Generate(course.ID, course.BasePrice, year, s.clock.Now())
	if err != nil {
		return nil, err
	}
	sched.Currency = course.Currency

	rows, err := s.repo.ListMonthlyPrices(ctx, db, courseID, year)
	if err != nil {
		return nil, err
	}
	sched.Apply(rows)
	return sched, nil
}

// findCourse serves reads from the course cache when cached is set. A fresh
// read always refreshes the cache.
func (s *Service) findCourse(ctx context.Context, db *gorm.DB, courseID snowflake.ID, cached bool) (marketplacedomain.Course, error) {
	if cached {
		if course, ok := s.courseCache.Get(courseID); ok {
			return course, nil
		}
	}
	course, err := s.repo.FindCourse(ctx, db, courseID)
	if err != nil {
		return marketplacedomain.Course{}, err
	}
	if course == nil {
		return marketplacedomain.Course{}, domain.ErrCourseNotFound
	}
	s.courseCache.Set(courseID, *course)
	return *course, nil
}

func (s *Service) rowsFor(sched *domain.Schedule, months []int) []domain.MonthlyPrice {
	now := s.clock.Now()
	rows := make([]domain.MonthlyPrice, 0, len(months))
	for _, n := range months {
		e := sched.Entries[n-1]
		rows = append(rows, domain.MonthlyPrice{
			ID:          s.genID.Generate(),
			CourseID:    sched.CourseID,
			MonthNumber: e.MonthNumber,
			Year:        sched.Year,
			BaseTotal:   e.BaseTotal,
			Discount:    e.Discount,
			Price:       e.Price,
			IsCustom:    e.IsCustom,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}
	return rows
}

func (s *Service) writeAudit(ctx context.Context, operation string, sched *domain.Schedule, extra map[string]any) {
	if s.auditSvc == nil {
		return
	}
	metadata := map[string]any{
		"year":         sched.Year,
		"custom_count": sched.CustomCount(),
	}
	for key, value := range extra {
		metadata[key] = value
	}
	targetID := sched.CourseID.String()
	if err := s.auditSvc.AuditLog(ctx, "monthly_price."+operation, auditTargetCourse, &targetID, metadata); err != nil {
		s.log.Warn("failed to write monthly price audit log",
			zap.String("operation", operation),
			zap.String("course_id", targetID),
			zap.Error(err),
		)
	}
}

func allMonths() []int {
	months := make([]int, domain.MonthsPerSchedule)
	for i := range months {
		months[i] = i + 1
	}
	return months
}
