// Package domain contains the marketplace records read by revenue reports and
// course pricing. The tables are owned by the wider platform.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
	PaymentStatusFailed    = "failed"
	PaymentStatusRefunded  = "refunded"
)

const (
	BillingStatusPending = "pending"
	BillingStatusPaid    = "paid"
	BillingStatusFailed  = "failed"
)

const (
	SubscriptionStatusActive   = "active"
	SubscriptionStatusCanceled = "canceled"
)

// PlanType names a commission tier.
type PlanType string

const (
	PlanTypeBasic        PlanType = "basic"
	PlanTypeProfessional PlanType = "professional"
	PlanTypeEnterprise   PlanType = "enterprise"
)

// Institution is a tenant publishing courses.
type Institution struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	Name      string       `gorm:"type:text;not null" json:"name"`
	CreatedAt time.Time    `gorm:"not null" json:"created_at"`
}

func (Institution) TableName() string { return "institutions" }

// Course is a sellable language course. BasePrice is a monthly price in whole currency units.
type Course struct {
	ID            snowflake.ID `gorm:"primaryKey" json:"id"`
	InstitutionID snowflake.ID `gorm:"not null;index" json:"institution_id"`
	Title         string       `gorm:"type:text;not null" json:"title"`
	BasePrice     int64        `gorm:"not null" json:"base_price"`
	Currency      string       `gorm:"type:text;not null;default:'USD'" json:"currency"`
	CreatedAt     time.Time    `gorm:"not null" json:"created_at"`
}

func (Course) TableName() string { return "courses" }

// Enrollment links a student to a course.
type Enrollment struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	CourseID  snowflake.ID `gorm:"not null;index" json:"course_id"`
	StudentID snowflake.ID `gorm:"not null;index" json:"student_id"`
	CreatedAt time.Time    `gorm:"not null" json:"created_at"`
}

func (Enrollment) TableName() string { return "enrollments" }

// Payment is a student's payment for an enrollment, in minor currency units.
// Completed payments are immutable.
type Payment struct {
	ID               snowflake.ID `gorm:"primaryKey" json:"id"`
	EnrollmentID     snowflake.ID `gorm:"not null;index" json:"enrollment_id"`
	Amount           int64        `gorm:"not null" json:"amount"`
	CommissionAmount int64        `gorm:"not null;default:0" json:"commission_amount"`
	Currency         string       `gorm:"type:text;not null;default:'USD'" json:"currency"`
	Status           string       `gorm:"type:text;not null;index" json:"status"`
	CreatedAt        time.Time    `gorm:"not null;index" json:"created_at"`
}

func (Payment) TableName() string { return "payments" }

// Plan is an institution subscription tier. CommissionRate is a percentage.
type Plan struct {
	ID             snowflake.ID `gorm:"primaryKey" json:"id"`
	Type           PlanType     `gorm:"type:text;not null;uniqueIndex" json:"type"`
	Name           string       `gorm:"type:text;not null" json:"name"`
	CommissionRate float64      `gorm:"not null" json:"commission_rate"`
	MonthlyFee     int64        `gorm:"not null" json:"monthly_fee"`
	CreatedAt      time.Time    `gorm:"not null" json:"created_at"`
}

func (Plan) TableName() string { return "plans" }

// Subscription binds an institution to a plan. UpgradedAt is set when the
// institution moves to a higher tier.
type Subscription struct {
	ID             snowflake.ID  `gorm:"primaryKey" json:"id"`
	InstitutionID  snowflake.ID  `gorm:"not null;index" json:"institution_id"`
	PlanID         snowflake.ID  `gorm:"not null;index" json:"plan_id"`
	PreviousPlanID *snowflake.ID `json:"previous_plan_id,omitempty"`
	Status         string        `gorm:"type:text;not null" json:"status"`
	UpgradedAt     *time.Time    `json:"upgraded_at,omitempty"`
	CreatedAt      time.Time     `gorm:"not null" json:"created_at"`
}

func (Subscription) TableName() string { return "subscriptions" }

// InstitutionBilling is one invoice cycle of an institution subscription, in minor units.
type InstitutionBilling struct {
	ID             snowflake.ID `gorm:"primaryKey" json:"id"`
	SubscriptionID snowflake.ID `gorm:"not null;index" json:"subscription_id"`
	Amount         int64        `gorm:"not null" json:"amount"`
	BillingDate    time.Time    `gorm:"not null;index" json:"billing_date"`
	Status         string       `gorm:"type:text;not null" json:"status"`
}

func (InstitutionBilling) TableName() string { return "institution_billing_history" }

// StudentBilling is one invoice cycle of an individual student subscription, in minor units.
type StudentBilling struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	StudentID   snowflake.ID `gorm:"not null;index" json:"student_id"`
	Amount      int64        `gorm:"not null" json:"amount"`
	BillingDate time.Time    `gorm:"not null;index" json:"billing_date"`
	Status      string       `gorm:"type:text;not null" json:"status"`
}

func (StudentBilling) TableName() string { return "student_billing_history" }

// AllModels lists every marketplace table, in dependency order.
func AllModels() []any {
	return []any{
		&Institution{},
		&Course{},
		&Enrollment{},
		&Payment{},
		&Plan{},
		&Subscription{},
		&InstitutionBilling{},
		&StudentBilling{},
	}
}
