package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	MinYear = 2000
	MaxYear = 2100
)

// MonthlyPrice is a persisted schedule entry. A course has at most one row per
// month number and year. BaseTotal and Discount record the formula the price
// was saved against.
type MonthlyPrice struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	CourseID    snowflake.ID `gorm:"not null;uniqueIndex:ux_monthly_prices_course_month_year,priority:1" json:"course_id"`
	MonthNumber int          `gorm:"not null;uniqueIndex:ux_monthly_prices_course_month_year,priority:2" json:"month_number"`
	Year        int          `gorm:"not null;uniqueIndex:ux_monthly_prices_course_month_year,priority:3" json:"year"`
	BaseTotal   int64        `gorm:"not null;default:0" json:"base_total"`
	Discount    int          `gorm:"not null;default:0" json:"discount"`
	Price       int64        `gorm:"not null" json:"price"`
	IsCustom    bool         `gorm:"not null;default:false" json:"is_custom"`
	CreatedAt   time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time    `gorm:"not null" json:"updated_at"`
}

func (MonthlyPrice) TableName() string { return "monthly_prices" }

// Entry is one row of a schedule as shown to admins. Period is the calendar
// month (YYYY-MM) the commitment starts in.
type Entry struct {
	MonthNumber int    `json:"month_number"`
	Period      string `json:"period"`
	Label       string `json:"label"`
	BaseTotal   int64  `json:"base_total"`
	Discount    int    `json:"discount"`
	Price       int64  `json:"price"`
	IsCustom    bool   `json:"is_custom"`
}

// Schedule is the twelve month price list of a course for one year.
type Schedule struct {
	CourseID  snowflake.ID `json:"course_id"`
	Year      int          `json:"year"`
	BasePrice int64        `json:"base_price"`
	Currency  string       `json:"currency"`
	Entries   []Entry      `json:"entries"`
}

func ValidateYear(year int) error {
	if year < MinYear || year > MaxYear {
		return ErrInvalidYear
	}
	return nil
}

// Generate builds the formula schedule for year. Labels start at the current
// month when year is the current year and at January otherwise.
func Generate(courseID snowflake.ID, basePrice int64, year int, now time.Time) (*Schedule, error) {
	if err := ValidateYear(year); err != nil {
		return nil, err
	}
	if basePrice < 0 {
		return nil, ErrInvalidPrice
	}

	now = now.UTC()
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	if year == now.Year() {
		start = time.Date(year, now.Month(), 1, 0, 0, 0, 0, time.UTC)
	}

	s := &Schedule{
		CourseID:  courseID,
		Year:      year,
		BasePrice: basePrice,
		Entries:   make([]Entry, 0, MonthsPerSchedule),
	}
	for n := 1; n <= MonthsPerSchedule; n++ {
		q, err := NewQuote(basePrice, n)
		if err != nil {
			return nil, err
		}
		month := start.AddDate(0, n-1, 0)
		s.Entries = append(s.Entries, Entry{
			MonthNumber: n,
			Period:      month.Format("2006-01"),
			Label:       month.Format("Jan 2006"),
			BaseTotal:   q.BaseTotal,
			Discount:    q.Discount,
			Price:       q.Price,
		})
	}
	return s, nil
}

func (s *Schedule) entry(n int) (*Entry, error) {
	if n < 1 || n > len(s.Entries) {
		return nil, ErrInvalidMonth
	}
	return &s.Entries[n-1], nil
}

// Override sets month n to price. The entry is custom only while price differs
// from the formula.
func (s *Schedule) Override(n int, price int64) error {
	if price < 0 {
		return ErrInvalidPrice
	}
	e, err := s.entry(n)
	if err != nil {
		return err
	}
	e.Price = price
	e.IsCustom = price != applyDiscount(e.BaseTotal, e.Discount)
	return nil
}

// SetAll sets every month to price.
func (s *Schedule) SetAll(price int64) error {
	if price < 0 {
		return ErrInvalidPrice
	}
	for n := 1; n <= len(s.Entries); n++ {
		if err := s.Override(n, price); err != nil {
			return err
		}
	}
	return nil
}

// Reset restores every month to its formula price.
func (s *Schedule) Reset() {
	for i := range s.Entries {
		e := &s.Entries[i]
		e.Price = applyDiscount(e.BaseTotal, e.Discount)
		e.IsCustom = false
	}
}

// Apply merges persisted rows of the same course and year over the schedule.
// The stored custom flag holds while the row was saved against the current
// formula. Rows saved under another base price are compared again.
func (s *Schedule) Apply(rows []MonthlyPrice) {
	for _, row := range rows {
		if row.CourseID != s.CourseID || row.Year != s.Year {
			continue
		}
		e, err := s.entry(row.MonthNumber)
		if err != nil {
			continue
		}
		e.Price = row.Price
		if row.BaseTotal == e.BaseTotal && row.Discount == e.Discount {
			e.IsCustom = row.IsCustom
			continue
		}
		e.IsCustom = row.Price != applyDiscount(e.BaseTotal, e.Discount)
	}
}

// CustomCount counts entries diverging from the formula.
func (s *Schedule) CustomCount() int {
	count := 0
	for _, e := range s.Entries {
		if e.IsCustom {
			count++
		}
	}
	return count
}
