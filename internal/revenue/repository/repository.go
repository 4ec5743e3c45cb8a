package repository

import (
	"context"

	marketplacedomain "github.com/pqasys/langcsebkg5-sub008/internal/marketplace/domain"
	"github.com/pqasys/langcsebkg5-sub008/internal/revenue/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) SumPayments(ctx context.Context, db *gorm.DB, rng domain.Range) (domain.PaymentTotals, error) {
	var totals domain.PaymentTotals
	err := db.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(amount), 0) AS amount,
		        COALESCE(SUM(commission_amount), 0) AS commission,
		        COUNT(*) AS payment_count
		 FROM payments
		 WHERE status = ? AND created_at >= ? AND created_at < ?`,
		marketplacedomain.PaymentStatusCompleted, rng.Start, rng.End,
	).Scan(&totals).Error
	if err != nil {
		return domain.PaymentTotals{}, err
	}
	return totals, nil
}

func (r *repo) SumInstitutionBilling(ctx context.Context, db *gorm.DB, rng domain.Range) (int64, error) {
	return sumBilling(ctx, db, "institution_billing_history", rng)
}

func (r *repo) SumStudentBilling(ctx context.Context, db *gorm.DB, rng domain.Range) (int64, error) {
	return sumBilling(ctx, db, "student_billing_history", rng)
}

func sumBilling(ctx context.Context, db *gorm.DB, table string, rng domain.Range) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(amount), 0)
		 FROM `+table+`
		 WHERE status = ? AND billing_date >= ? AND billing_date < ?`,
		marketplacedomain.BillingStatusPaid, rng.Start, rng.End,
	).Scan(&total).Error
	return total, err
}

func (r *repo) ListInstitutionPayments(ctx context.Context, db *gorm.DB, rng domain.Range) ([]domain.InstitutionPaymentRow, error) {
	var rows []domain.InstitutionPaymentRow
	err := db.WithContext(ctx).Raw(
		`SELECT i.id AS institution_id,
		        i.name AS institution_name,
		        COALESCE(SUM(p.amount), 0) AS revenue,
		        COUNT(DISTINCT e.student_id) AS student_count,
		        COUNT(DISTINCT c.id) AS course_count
		 FROM payments p
		 JOIN enrollments e ON e.id = p.enrollment_id
		 JOIN courses c ON c.id = e.course_id
		 JOIN institutions i ON i.id = c.institution_id
		 WHERE p.status = ? AND p.created_at >= ? AND p.created_at < ?
		 GROUP BY i.id, i.name`,
		marketplacedomain.PaymentStatusCompleted, rng.Start, rng.End,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) ListInstitutionBilling(ctx context.Context, db *gorm.DB, rng domain.Range) ([]domain.InstitutionBillingRow, error) {
	var rows []domain.InstitutionBillingRow
	err := db.WithContext(ctx).Raw(
		`SELECT i.id AS institution_id,
		        i.name AS institution_name,
		        COALESCE(SUM(b.amount), 0) AS revenue
		 FROM institution_billing_history b
		 JOIN subscriptions s ON s.id = b.subscription_id
		 JOIN institutions i ON i.id = s.institution_id
		 WHERE b.status = ? AND b.billing_date >= ? AND b.billing_date < ?
		 GROUP BY i.id, i.name`,
		marketplacedomain.BillingStatusPaid, rng.Start, rng.End,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ListPlanRevenue reports every plan, including plans without billing in range.
// subscription_count counts active subscriptions; revenue counts paid billing
// of any subscription on the plan.
func (r *repo) ListPlanRevenue(ctx context.Context, db *gorm.DB, rng domain.Range) ([]domain.PlanRevenueRow, error) {
	var rows []domain.PlanRevenueRow
	err := db.WithContext(ctx).Raw(
		`SELECT pl.type AS plan_type,
		        pl.commission_rate AS commission_rate,
		        COUNT(DISTINCT CASE WHEN s.status = ? THEN s.id END) AS subscription_count,
		        COALESCE(SUM(b.amount), 0) AS revenue
		 FROM plans pl
		 LEFT JOIN subscriptions s ON s.plan_id = pl.id
		 LEFT JOIN institution_billing_history b
		        ON b.subscription_id = s.id
		       AND b.status = ?
		       AND b.billing_date >= ?
		       AND b.billing_date < ?
		 GROUP BY pl.type, pl.commission_rate
		 ORDER BY pl.commission_rate DESC, pl.type ASC`,
		marketplacedomain.SubscriptionStatusActive,
		marketplacedomain.BillingStatusPaid, rng.Start, rng.End,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) CountNewInstitutions(ctx context.Context, db *gorm.DB, rng domain.Range) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Model(&marketplacedomain.Institution{}).
		Where("created_at >= ? AND created_at < ?", rng.Start, rng.End).
		Count(&count).Error
	return count, err
}

func (r *repo) CountPlanUpgrades(ctx context.Context, db *gorm.DB, rng domain.Range) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Model(&marketplacedomain.Subscription{}).
		Where("upgraded_at IS NOT NULL AND upgraded_at >= ? AND upgraded_at < ?", rng.Start, rng.End).
		Count(&count).Error
	return count, err
}

func (r *repo) CountNewEnrollments(ctx context.Context, db *gorm.DB, rng domain.Range) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Model(&marketplacedomain.Enrollment{}).
		Where("created_at >= ? AND created_at < ?", rng.Start, rng.End).
		Count(&count).Error
	return count, err
}
