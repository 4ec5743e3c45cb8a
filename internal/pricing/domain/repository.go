package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	marketplacedomain "github.com/pqasys/langcsebkg5-sub008/internal/marketplace/domain"
	"gorm.io/gorm"
)

type Repository interface {
	// FindCourse returns nil without error when the course does not exist.
	FindCourse(ctx context.Context, db *gorm.DB, courseID snowflake.ID) (*marketplacedomain.Course, error)
	ListMonthlyPrices(ctx context.Context, db *gorm.DB, courseID snowflake.ID, year int) ([]MonthlyPrice, error)
	// UpsertMonthlyPrices inserts rows or replaces price and is_custom on the
	// (course_id, month_number, year) key.
	UpsertMonthlyPrices(ctx context.Context, db *gorm.DB, rows []MonthlyPrice) error
}
