package domain

import "errors"

var (
	ErrInvalidMonth    = errors.New("invalid_month_number")
	ErrInvalidPrice    = errors.New("invalid_price")
	ErrInvalidYear     = errors.New("invalid_year")
	ErrInvalidCurrency = errors.New("invalid_currency")
	ErrCourseNotFound  = errors.New("course_not_found")
)
