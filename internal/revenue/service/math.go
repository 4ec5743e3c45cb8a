package service

import (
	"github.com/pqasys/langcsebkg5-sub008/internal/revenue/domain"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// growthRate is the percentage change from previous to current, rounded to two
// decimals. It is 0 when previous is 0.
func growthRate(current, previous int64) float64 {
	if previous == 0 {
		return 0
	}
	return decimal.NewFromInt(current - previous).
		Mul(hundred).
		Div(decimal.NewFromInt(previous)).
		Round(2).
		InexactFloat64()
}

func commission(revenue int64, rate float64) int64 {
	return decimal.NewFromInt(revenue).
		Mul(decimal.NewFromFloat(rate)).
		Div(hundred).
		Round(0).
		IntPart()
}

// project applies the recent growth once more: current * (1 + rate), with
// rate = (current - previous) / previous.
func project(current, previous int64) int64 {
	if previous == 0 {
		return current
	}
	c := decimal.NewFromInt(current)
	return c.Mul(c).Div(decimal.NewFromInt(previous)).Round(0).IntPart()
}

func averageRevenue(months []domain.MonthlyRevenue) int64 {
	if len(months) == 0 {
		return 0
	}
	sum := decimal.Zero
	for _, m := range months {
		sum = sum.Add(decimal.NewFromInt(m.TotalRevenue))
	}
	return sum.Div(decimal.NewFromInt(int64(len(months)))).Round(0).IntPart()
}
