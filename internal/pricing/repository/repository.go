package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	marketplacedomain "github.com/pqasys/langcsebkg5-sub008/internal/marketplace/domain"
	"github.com/pqasys/langcsebkg5-sub008/internal/pricing/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindCourse(ctx context.Context, db *gorm.DB, courseID snowflake.ID) (*marketplacedomain.Course, error) {
	var course marketplacedomain.Course
	err := db.WithContext(ctx).Where("id = ?", courseID).First(&course).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &course, nil
}

func (r *repo) ListMonthlyPrices(ctx context.Context, db *gorm.DB, courseID snowflake.ID, year int) ([]domain.MonthlyPrice, error) {
	var rows []domain.MonthlyPrice
	err := db.WithContext(ctx).
		Where("course_id = ? AND year = ?", courseID, year).
		Order("month_number ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) UpsertMonthlyPrices(ctx context.Context, db *gorm.DB, rows []domain.MonthlyPrice) error {
	if len(rows) == 0 {
		return nil
	}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "course_id"},
				{Name: "month_number"},
				{Name: "year"},
			},
			DoUpdates: clause.AssignmentColumns([]string{"base_total", "discount", "price", "is_custom", "updated_at"}),
		}).
		Create(&rows).Error
}
