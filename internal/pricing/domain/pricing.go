// Package domain holds the progressive monthly discount used to price course
// commitments. Prices here are whole currency units.
package domain

import (
	"math"

	"github.com/shopspring/decimal"
)

const (
	MonthsPerSchedule = 12
	MaxDiscount       = 50

	baseDiscount  = 10
	discountStep  = 5
	monthsPerStep = 3
)

// Quote is the formula price of committing to monthNumber months.
type Quote struct {
	MonthNumber int   `json:"month_number"`
	BaseTotal   int64 `json:"base_total"`
	Discount    int   `json:"discount"`
	Price       int64 `json:"price"`
}

// Discount returns the percentage discount for an n month commitment. It steps
// up every three months and is capped at MaxDiscount. n below 1 has no discount.
func Discount(n int) int {
	if n < 1 {
		return 0
	}
	d := (n-1)/monthsPerStep*discountStep + baseDiscount
	if d > MaxDiscount {
		return MaxDiscount
	}
	return d
}

// NewQuote prices n months of a course whose monthly base price is basePrice.
// A base total that does not fit in an int64 is rejected as ErrInvalidPrice.
func NewQuote(basePrice int64, n int) (Quote, error) {
	if n < 1 {
		return Quote{}, ErrInvalidMonth
	}
	if basePrice < 0 || basePrice > math.MaxInt64/int64(n) {
		return Quote{}, ErrInvalidPrice
	}
	baseTotal := basePrice * int64(n)
	discount := Discount(n)
	return Quote{
		MonthNumber: n,
		BaseTotal:   baseTotal,
		Discount:    discount,
		Price:       applyDiscount(baseTotal, discount),
	}, nil
}

// applyDiscount rounds half away from zero.
func applyDiscount(baseTotal int64, discount int) int64 {
	return decimal.NewFromInt(baseTotal).
		Mul(decimal.NewFromInt(int64(100 - discount))).
		Div(decimal.NewFromInt(100)).
		Round(0).
		IntPart()
}
