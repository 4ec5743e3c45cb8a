package service

import (
	"context"
	"time"

	"github.com/pqasys/langcsebkg5-sub008/internal/revenue/domain"
	"gorm.io/gorm"
)

type fakePayment struct {
	at         time.Time
	amount     int64
	commission int64
}

type fakeBilling struct {
	at     time.Time
	amount int64
}

// fakeRepository answers sums from in-memory records and returns canned rows
// for the grouped queries. It is read-only after setup.
type fakeRepository struct {
	payments           []fakePayment
	institutionBilling []fakeBilling
	studentBilling     []fakeBilling

	institutionPayments []domain.InstitutionPaymentRow
	institutionBillings []domain.InstitutionBillingRow
	plans               []domain.PlanRevenueRow

	newInstitutions int64
	planUpgrades    int64
	newEnrollments  int64

	failOn map[string]error
}

func (f *fakeRepository) fail(method string) error {
	if f.failOn == nil {
		return nil
	}
	return f.failOn[method]
}

func within(r domain.Range, at time.Time) bool {
	return !at.Before(r.Start) && at.Before(r.End)
}

func (f *fakeRepository) SumPayments(ctx context.Context, db *gorm.DB, r domain.Range) (domain.PaymentTotals, error) {
	if err := f.fail("SumPayments"); err != nil {
		return domain.PaymentTotals{}, err
	}
	var totals domain.PaymentTotals
	for _, p := range f.payments {
		if within(r, p.at) {
			totals.Amount += p.amount
			totals.Commission += p.commission
			totals.Count++
		}
	}
	return totals, nil
}

func sumFake(records []fakeBilling, r domain.Range) int64 {
	var total int64
	for _, b := range records {
		if within(r, b.at) {
			total += b.amount
		}
	}
	return total
}

func (f *fakeRepository) SumInstitutionBilling(ctx context.Context, db *gorm.DB, r domain.Range) (int64, error) {
	if err := f.fail("SumInstitutionBilling"); err != nil {
		return 0, err
	}
	return sumFake(f.institutionBilling, r), nil
}

func (f *fakeRepository) SumStudentBilling(ctx context.Context, db *gorm.DB, r domain.Range) (int64, error) {
	if err := f.fail("SumStudentBilling"); err != nil {
		return 0, err
	}
	return sumFake(f.studentBilling, r), nil
}

func (f *fakeRepository) ListInstitutionPayments(ctx context.Context, db *gorm.DB, r domain.Range) ([]domain.InstitutionPaymentRow, error) {
	if err := f.fail("ListInstitutionPayments"); err != nil {
		return nil, err
	}
	return f.institutionPayments, nil
}

func (f *fakeRepository) ListInstitutionBilling(ctx context.Context, db *gorm.DB, r domain.Range) ([]domain.InstitutionBillingRow, error) {
	if err := f.fail("ListInstitutionBilling"); err != nil {
		return nil, err
	}
	return f.institutionBillings, nil
}

func (f *fakeRepository) ListPlanRevenue(ctx context.Context, db *gorm.DB, r domain.Range) ([]domain.PlanRevenueRow, error) {
	if err := f.fail("ListPlanRevenue"); err != nil {
		return nil, err
	}
	return f.plans, nil
}

func (f *fakeRepository) CountNewInstitutions(ctx context.Context, db *gorm.DB, r domain.Range) (int64, error) {
	return f.newInstitutions, f.fail("CountNewInstitutions")
}

func (f *fakeRepository) CountPlanUpgrades(ctx context.Context, db *gorm.DB, r domain.Range) (int64, error) {
	return f.planUpgrades, f.fail("CountPlanUpgrades")
}

func (f *fakeRepository) CountNewEnrollments(ctx context.Context, db *gorm.DB, r domain.Range) (int64, error) {
	return f.newEnrollments, f.fail("CountNewEnrollments")
}
