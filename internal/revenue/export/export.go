// Package export serializes revenue breakdowns for download. Each report
// section becomes a table: consecutive blocks in CSV, one sheet each in XLSX.
package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pqasys/langcsebkg5-sub008/internal/revenue/domain"
	"github.com/xuri/excelize/v2"
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

var ErrUnsupportedFormat = errors.New("unsupported_export_format")

func ParseFormat(value string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(value))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	default:
		return "", ErrUnsupportedFormat
	}
}

func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv"
}

// Filename names a download for the breakdown range, e.g. revenue_2026-03-01_2026-04-01.csv.
func (f Format) Filename(r domain.Range) string {
	return fmt.Sprintf("revenue_%s_%s.%s", r.Start.Format("2006-01-02"), r.End.Format("2006-01-02"), f)
}

type table struct {
	name   string
	header []string
	rows   [][]any
}

func tables(b domain.Breakdown) []table {
	s := b.Summary
	summary := table{
		name:   "Summary",
		header: []string{"Metric", "Value"},
		rows: [][]any{
			{"Start", s.Start.Format("2006-01-02T15:04:05Z07:00")},
			{"End", s.End.Format("2006-01-02T15:04:05Z07:00")},
			{"Total Revenue", s.TotalRevenue},
			{"Commission Revenue", s.CommissionRevenue},
			{"Student Revenue", s.StudentRevenue},
			{"Subscription Revenue", s.SubscriptionRevenue},
			{"Institution Subscription Revenue", s.InstitutionSubscriptionRevenue},
			{"Student Subscription Revenue", s.StudentSubscriptionRevenue},
			{"Payments", s.PaymentCount},
			{"Growth Rate", s.GrowthRate},
		},
	}

	institutions := table{
		name:   "Institutions",
		header: []string{"Institution ID", "Institution", "Course Revenue", "Subscription Revenue", "Total Revenue", "Students", "Courses"},
	}
	for _, item := range b.ByInstitution {
		institutions.rows = append(institutions.rows, []any{
			item.InstitutionID.String(), item.InstitutionName, item.CourseRevenue,
			item.SubscriptionRevenue, item.TotalRevenue, item.StudentCount, item.CourseCount,
		})
	}

	plans := table{
		name:   "Plans",
		header: []string{"Plan", "Commission Rate", "Subscriptions", "Revenue", "Commission"},
	}
	for _, item := range b.ByPlan {
		plans.rows = append(plans.rows, []any{
			string(item.PlanType), item.CommissionRate, item.SubscriptionCount, item.Revenue, item.Commission,
		})
	}

	monthly := table{
		name:   "Monthly",
		header: []string{"Period", "Total Revenue", "Commission Revenue", "Subscription Revenue", "Growth"},
	}
	for _, item := range b.Monthly {
		monthly.rows = append(monthly.rows, []any{
			item.Period, item.TotalRevenue, item.CommissionRevenue, item.SubscriptionRevenue, item.Growth,
		})
	}

	return []table{summary, institutions, plans, monthly}
}

func Write(w io.Writer, f Format, b domain.Breakdown) error {
	switch f {
	case FormatCSV:
		return WriteCSV(w, b)
	case FormatXLSX:
		return WriteXLSX(w, b)
	default:
		return ErrUnsupportedFormat
	}
}

// WriteCSV quotes fields as RFC 4180 requires, so free-text names may hold
// commas, quotes or newlines.
func WriteCSV(w io.Writer, b domain.Breakdown) error {
	writer := csv.NewWriter(w)
	for i, t := range tables(b) {
		if i > 0 {
			if err := writer.Write([]string{}); err != nil {
				return err
			}
		}
		if err := writer.Write([]string{"# " + t.name}); err != nil {
			return err
		}
		if err := writer.Write(t.header); err != nil {
			return err
		}
		for _, row := range t.rows {
			record := make([]string, len(row))
			for j, value := range row {
				record[j] = formatCell(value)
			}
			if err := writer.Write(record); err != nil {
				return err
			}
		}
	}
	writer.Flush()
	return writer.Error()
}

func WriteXLSX(w io.Writer, b domain.Breakdown) error {
	f := excelize.NewFile()
	defer f.Close()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	for i, t := range tables(b) {
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), t.name); err != nil {
				return err
			}
		} else if _, err := f.NewSheet(t.name); err != nil {
			return err
		}

		for col, header := range t.header {
			cell, _ := excelize.CoordinatesToCellName(col+1, 1)
			if err := f.SetCellValue(t.name, cell, header); err != nil {
				return err
			}
		}
		last, _ := excelize.CoordinatesToCellName(len(t.header), 1)
		if err := f.SetCellStyle(t.name, "A1", last, bold); err != nil {
			return err
		}

		for r, row := range t.rows {
			for col, value := range row {
				cell, _ := excelize.CoordinatesToCellName(col+1, r+2)
				if err := f.SetCellValue(t.name, cell, value); err != nil {
					return err
				}
			}
		}
	}

	return f.Write(w)
}

func formatCell(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', 2, 64)
	default:
		return fmt.Sprint(v)
	}
}
