package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

type PriceInput struct {
	MonthNumber int   `json:"month_number" validate:"required,min=1,max=12"`
	Price       int64 `json:"price" validate:"min=0"`
}

// Service manages persisted monthly price schedules.
type Service interface {
	GetSchedule(ctx context.Context, courseID snowflake.ID, year int) (*Schedule, error)
	SaveSchedule(ctx context.Context, courseID snowflake.ID, year int, prices []PriceInput) (*Schedule, error)
	OverrideMonth(ctx context.Context, courseID snowflake.ID, year, monthNumber int, price int64) (*Schedule, error)
	SetAll(ctx context.Context, courseID snowflake.ID, year int, price int64) (*Schedule, error)
	Reset(ctx context.Context, courseID snowflake.ID, year int) (*Schedule, error)
}
