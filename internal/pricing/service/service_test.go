package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/pqasys/langcsebkg5-sub008/internal/audit/domain"
	auditrepository "github.com/pqasys/langcsebkg5-sub008/internal/audit/repository"
	auditservice "github.com/pqasys/langcsebkg5-sub008/internal/audit/service"
	"github.com/pqasys/langcsebkg5-sub008/internal/clock"
	"github.com/pqasys/langcsebkg5-sub008/internal/config"
	marketplacedomain "github.com/pqasys/langcsebkg5-sub008/internal/marketplace/domain"
	"github.com/pqasys/langcsebkg5-sub008/internal/pricing/domain"
	"github.com/pqasys/langcsebkg5-sub008/internal/pricing/repository"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const testCourseID snowflake.ID = 100

type pricingFixture struct {
	db    *gorm.DB
	svc   domain.Service
	audit auditdomain.Service
}

func setupPricingService(t *testing.T) pricingFixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&marketplacedomain.Course{}, &domain.MonthlyPrice{}, &auditdomain.AuditLog{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := db.Create(&marketplacedomain.Course{
		ID:            testCourseID,
		InstitutionID: 1,
		Title:         "German B1",
		BasePrice:     100,
		Currency:      "EUR",
		CreatedAt:     time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}).Error; err != nil {
		t.Fatalf("insert course: %v", err)
	}

	node, err := snowflake.NewNode(2)
	if err != nil {
		t.Fatalf("snowflake: %v", err)
	}
	fixed := clock.FixedClock{At: time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)}
	audit := auditservice.NewService(auditservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: fixed,
		Repo:  auditrepository.Provide(),
	})
	cfg := config.Config{Pricing: config.PricingConfig{CourseCacheTTL: time.Minute}}
	svc := NewService(Params{
		DB:       db,
		Log:      zap.NewNop(),
		GenID:    node,
		Clock:    fixed,
		Cfg:      cfg,
		Repo:     repository.Provide(),
		AuditSvc: audit,
	})
	return pricingFixture{db: db, svc: svc, audit: audit}
}

func TestGetScheduleGeneratesFormulaWithoutPersisting(t *testing.T) {
	f := setupPricingService(t)

	sched, err := f.svc.GetSchedule(context.Background(), testCourseID, 2026)
	if err != nil {
		t.Fatalf("get schedule: %v", err)
	}
	if sched.Currency != "EUR" || len(sched.Entries) != domain.MonthsPerSchedule {
		t.Fatalf("unexpected schedule %+v", sched)
	}
	if sched.Entries[0].Period != "2026-10" || sched.Entries[0].Price != 90 {
		t.Fatalf("unexpected first entry %+v", sched.Entries[0])
	}

	var count int64
	if err := f.db.Model(&domain.MonthlyPrice{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("viewing a schedule must not persist rows, got %d", count)
	}
}

func TestOverrideMonthPersistsAndAudits(t *testing.T) {
	f := setupPricingService(t)
	ctx := context.Background()

	sched, err := f.svc.OverrideMonth(ctx, testCourseID, 2027, 4, 300)
	if err != nil {
		t.Fatalf("override: %v", err)
	}
	if !sched.Entries[3].IsCustom {
		t.Fatalf("expected custom entry")
	}

	reloaded, err := f.svc.GetSchedule(ctx, testCourseID, 2027)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Entries[3].Price != 300 || !reloaded.Entries[3].IsCustom {
		t.Fatalf("override not persisted: %+v", reloaded.Entries[3])
	}
	if reloaded.Entries[4].IsCustom {
		t.Fatalf("unrelated month changed")
	}

	other, err := f.svc.GetSchedule(ctx, testCourseID, 2026)
	if err != nil {
		t.Fatalf("other year: %v", err)
	}
	if other.CustomCount() != 0 {
		t.Fatalf("override leaked into another year")
	}

	logs, err := f.audit.List(ctx, auditdomain.ListFilter{Action: "monthly_price.override"})
	if err != nil {
		t.Fatalf("list audit: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("expected 1 audit entry, got %d", len(logs))
	}
}

func TestResetRestoresPersistedFormula(t *testing.T) {
	f := setupPricingService(t)
	ctx := context.Background()

	if _, err := f.svc.SetAll(ctx, testCourseID, 2027, 50); err != nil {
		t.Fatalf("set all: %v", err)
	}
	sched, err := f.svc.Reset(ctx, testCourseID, 2027)
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if sched.CustomCount() != 0 {
		t.Fatalf("expected no custom entries after reset")
	}

	var rows []domain.MonthlyPrice
	if err := f.db.Where("course_id = ? AND year = ?", testCourseID, 2027).Order("month_number").Find(&rows).Error; err != nil {
		t.Fatalf("load rows: %v", err)
	}
	if len(rows) != domain.MonthsPerSchedule {
		t.Fatalf("expected %d rows, got %d", domain.MonthsPerSchedule, len(rows))
	}
	for _, row := range rows {
		q, _ := domain.NewQuote(100, row.MonthNumber)
		if row.Price != q.Price || row.IsCustom {
			t.Fatalf("month %d not restored: %+v", row.MonthNumber, row)
		}
	}
}

func TestSaveScheduleValidatesBeforeWriting(t *testing.T) {
	f := setupPricingService(t)
	ctx := context.Background()

	_, err := f.svc.SaveSchedule(ctx, testCourseID, 2027, []domain.PriceInput{
		{MonthNumber: 1, Price: 80},
		{MonthNumber: 13, Price: 10},
	})
	if !errors.Is(err, domain.ErrInvalidMonth) {
		t.Fatalf("expected invalid month, got %v", err)
	}

	sched, err := f.svc.SaveSchedule(ctx, testCourseID, 2027, []domain.PriceInput{{MonthNumber: 1, Price: 80}})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if sched.Entries[0].Price != 80 || sched.CustomCount() != 1 {
		t.Fatalf("unexpected schedule after save: %+v", sched.Entries[0])
	}
}

func TestUnknownCourseAndYear(t *testing.T) {
	f := setupPricingService(t)
	ctx := context.Background()

	if _, err := f.svc.GetSchedule(ctx, 999, 2026); !errors.Is(err, domain.ErrCourseNotFound) {
		t.Fatalf("expected course not found, got %v", err)
	}
	if _, err := f.svc.GetSchedule(ctx, testCourseID, 1900); !errors.Is(err, domain.ErrInvalidYear) {
		t.Fatalf("expected invalid year, got %v", err)
	}
}

func TestWritesUseCurrentBasePriceDespiteCachedCourse(t *testing.T) {
	f := setupPricingService(t)
	ctx := context.Background()

	// warms the course cache with base price 100
	if _, err := f.svc.GetSchedule(ctx, testCourseID, 2027); err != nil {
		t.Fatalf("get schedule: %v", err)
	}
	if err := f.db.Model(&marketplacedomain.Course{}).Where("id = ?", testCourseID).Update("base_price", 200).Error; err != nil {
		t.Fatalf("update base price: %v", err)
	}

	sched, err := f.svc.Reset(ctx, testCourseID, 2027)
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	first := sched.Entries[0]
	if first.BaseTotal != 200 || first.Price != 180 || first.IsCustom {
		t.Fatalf("reset built on stale base price: %+v", first)
	}

	var rows []domain.MonthlyPrice
	if err := f.db.Where("course_id = ? AND year = ?", testCourseID, 2027).Order("month_number").Find(&rows).Error; err != nil {
		t.Fatalf("list rows: %v", err)
	}
	if len(rows) != domain.MonthsPerSchedule {
		t.Fatalf("expected %d rows, got %d", domain.MonthsPerSchedule, len(rows))
	}
	if rows[3].BaseTotal != 800 || rows[3].Discount != 15 || rows[3].Price != 680 {
		t.Fatalf("unexpected stored month 4: %+v", rows[3])
	}

	reloaded, err := f.svc.GetSchedule(ctx, testCourseID, 2027)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.BasePrice != 200 || reloaded.CustomCount() != 0 {
		t.Fatalf("cache not refreshed after write: base=%d custom=%d", reloaded.BasePrice, reloaded.CustomCount())
	}
}
