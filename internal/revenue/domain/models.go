// Package domain defines revenue report shapes. Monetary values are minor
// currency units; growth rates are percentages rounded to two decimals.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	marketplacedomain "github.com/pqasys/langcsebkg5-sub008/internal/marketplace/domain"
)

// Range is a half-open UTC interval [Start, End).
type Range struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewRange validates and normalizes a report range to UTC.
func NewRange(start, end time.Time) (Range, error) {
	r := Range{Start: start.UTC(), End: end.UTC()}
	if err := r.Validate(); err != nil {
		return Range{}, err
	}
	return r, nil
}

func (r Range) Validate() error {
	if r.Start.IsZero() || r.End.IsZero() || !r.End.After(r.Start) {
		return ErrInvalidRange
	}
	return nil
}

// Previous returns the equal-length range ending where r starts.
func (r Range) Previous() Range {
	length := r.End.Sub(r.Start)
	return Range{Start: r.Start.Add(-length), End: r.Start}
}

// Summary holds the headline totals of a range.
type Summary struct {
	Start                          time.Time `json:"start"`
	End                            time.Time `json:"end"`
	TotalRevenue                   int64     `json:"total_revenue"`
	CommissionRevenue              int64     `json:"commission_revenue"`
	StudentRevenue                 int64     `json:"student_revenue"`
	SubscriptionRevenue            int64     `json:"subscription_revenue"`
	InstitutionSubscriptionRevenue int64     `json:"institution_subscription_revenue"`
	StudentSubscriptionRevenue     int64     `json:"student_subscription_revenue"`
	PaymentCount                   int64     `json:"payment_count"`
	GrowthRate                     float64   `json:"growth_rate"`
}

// InstitutionBreakdown splits an institution's revenue into course payments
// and its own subscription billing. A record lands in exactly one of the two.
type InstitutionBreakdown struct {
	InstitutionID       snowflake.ID `json:"institution_id"`
	InstitutionName     string       `json:"institution_name"`
	CourseRevenue       int64        `json:"course_revenue"`
	SubscriptionRevenue int64        `json:"subscription_revenue"`
	TotalRevenue        int64        `json:"total_revenue"`
	StudentCount        int64        `json:"student_count"`
	CourseCount         int64        `json:"course_count"`
}

type PlanBreakdown struct {
	PlanType          marketplacedomain.PlanType `json:"plan_type"`
	CommissionRate    float64                    `json:"commission_rate"`
	SubscriptionCount int64                      `json:"subscription_count"`
	Revenue           int64                      `json:"revenue"`
	Commission        int64                      `json:"commission"`
}

// MonthlyRevenue is one point of a monthly trend; Growth compares TotalRevenue
// with the month before.
type MonthlyRevenue struct {
	Period              string  `json:"period"`
	TotalRevenue        int64   `json:"total_revenue"`
	CommissionRevenue   int64   `json:"commission_revenue"`
	SubscriptionRevenue int64   `json:"subscription_revenue"`
	Growth              float64 `json:"growth"`
}

type Breakdown struct {
	Summary       Summary                `json:"summary"`
	ByInstitution []InstitutionBreakdown `json:"by_institution"`
	ByPlan        []PlanBreakdown        `json:"by_plan"`
	Monthly       []MonthlyRevenue       `json:"monthly"`
}

// GrowthFactor is a heuristic contribution to projected revenue.
type GrowthFactor struct {
	Name            string `json:"name"`
	Count           int64  `json:"count"`
	ImpactPerUnit   int64  `json:"impact_per_unit"`
	EstimatedImpact int64  `json:"estimated_impact"`
}

type Projection struct {
	AsOf             time.Time        `json:"as_of"`
	CurrentAverage   int64            `json:"current_average"`
	PreviousAverage  int64            `json:"previous_average"`
	GrowthRate       float64          `json:"growth_rate"`
	ProjectedRevenue int64            `json:"projected_revenue"`
	GrowthFactors    []GrowthFactor   `json:"growth_factors"`
	GrowthImpact     int64            `json:"growth_impact"`
	Monthly          []MonthlyRevenue `json:"monthly"`
}
