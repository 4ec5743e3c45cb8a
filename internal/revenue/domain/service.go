package domain

import (
	"context"
	"errors"
	"time"
)

// Service builds revenue reports.
type Service interface {
	Summary(ctx context.Context, r Range) (Summary, error)
	Breakdown(ctx context.Context, r Range) (Breakdown, error)
	Projection(ctx context.Context, asOf time.Time) (Projection, error)
}

var (
	ErrInvalidRange = errors.New("invalid_range")
	// ErrAggregationFailed wraps every data access failure of a report.
	ErrAggregationFailed = errors.New("revenue_aggregation_failed")
)

const (
	GrowthFactorNewInstitutions = "new_institutions"
	GrowthFactorPlanUpgrades    = "plan_upgrades"
	GrowthFactorNewEnrollments  = "new_enrollments"
)
