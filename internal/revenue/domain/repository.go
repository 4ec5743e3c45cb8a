package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	marketplacedomain "github.com/pqasys/langcsebkg5-sub008/internal/marketplace/domain"
	"gorm.io/gorm"
)

// PaymentTotals sums completed payments.
type PaymentTotals struct {
	Amount     int64 `gorm:"column:amount"`
	Commission int64 `gorm:"column:commission"`
	Count      int64 `gorm:"column:payment_count"`
}

type InstitutionPaymentRow struct {
	InstitutionID   snowflake.ID `gorm:"column:institution_id"`
	InstitutionName string       `gorm:"column:institution_name"`
	Revenue         int64        `gorm:"column:revenue"`
	StudentCount    int64        `gorm:"column:student_count"`
	CourseCount     int64        `gorm:"column:course_count"`
}

type InstitutionBillingRow struct {
	InstitutionID   snowflake.ID `gorm:"column:institution_id"`
	InstitutionName string       `gorm:"column:institution_name"`
	Revenue         int64        `gorm:"column:revenue"`
}

type PlanRevenueRow struct {
	PlanType          marketplacedomain.PlanType `gorm:"column:plan_type"`
	CommissionRate    float64                    `gorm:"column:commission_rate"`
	SubscriptionCount int64                      `gorm:"column:subscription_count"`
	Revenue           int64                      `gorm:"column:revenue"`
}

// Repository reads the marketplace records behind revenue reports. Every
// method only reads; callers pass the handle so reads can share a transaction.
type Repository interface {
	SumPayments(ctx context.Context, db *gorm.DB, r Range) (PaymentTotals, error)
	SumInstitutionBilling(ctx context.Context, db *gorm.DB, r Range) (int64, error)
	SumStudentBilling(ctx context.Context, db *gorm.DB, r Range) (int64, error)
	ListInstitutionPayments(ctx context.Context, db *gorm.DB, r Range) ([]InstitutionPaymentRow, error)
	ListInstitutionBilling(ctx context.Context, db *gorm.DB, r Range) ([]InstitutionBillingRow, error)
	ListPlanRevenue(ctx context.Context, db *gorm.DB, r Range) ([]PlanRevenueRow, error)
	CountNewInstitutions(ctx context.Context, db *gorm.DB, r Range) (int64, error)
	CountPlanUpgrades(ctx context.Context, db *gorm.DB, r Range) (int64, error)
	CountNewEnrollments(ctx context.Context, db *gorm.DB, r Range) (int64, error)
}

// MonthRange returns the calendar month containing t, in UTC.
func MonthRange(t time.Time) Range {
	t = t.UTC()
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return Range{Start: start, End: start.AddDate(0, 1, 0)}
}
