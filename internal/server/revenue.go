package server

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	revenuedomain "github.com/pqasys/langcsebkg5-sub008/internal/revenue/domain"
	"github.com/pqasys/langcsebkg5-sub008/internal/revenue/export"
	"go.uber.org/zap"
)

const defaultRevenueWindowDays = 30

// @Summary      Revenue Summary
// @Description  Totals and growth for a date range
// @Tags         revenue
// @Produce      json
// @Param        start  query  string  false  "Start (RFC3339 or YYYY-MM-DD)"
// @Param        end    query  string  false  "End, exclusive (RFC3339 or YYYY-MM-DD, inclusive day)"
// @Success      200  {object}  revenuedomain.Summary
// @Router       /admin/revenue/summary [get]
func (s *Server) GetRevenueSummary(c *gin.Context) {
	if s.revenueSvc == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	r, err := s.parseRevenueRange(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.revenueSvc.Summary(c.Request.Context(), r)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// @Summary      Revenue Breakdown
// @Description  Revenue by institution, plan and month
// @Tags         revenue
// @Produce      json
// @Param        start  query  string  false  "Start"
// @Param        end    query  string  false  "End"
// @Success      200  {object}  revenuedomain.Breakdown
// @Router       /admin/revenue/breakdown [get]
func (s *Server) GetRevenueBreakdown(c *gin.Context) {
	if s.revenueSvc == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	r, err := s.parseRevenueRange(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.revenueSvc.Breakdown(c.Request.Context(), r)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// @Summary      Revenue Projection
// @Description  One month ahead projection with growth factors
// @Tags         revenue
// @Produce      json
// @Param        as_of  query  string  false  "Reference time"
// @Success      200  {object}  revenuedomain.Projection
// @Router       /admin/revenue/projection [get]
func (s *Server) GetRevenueProjection(c *gin.Context) {
	if s.revenueSvc == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	asOf, err := parseOptionalTime(c.Query("as_of"), false)
	if err != nil {
		AbortWithError(c, newValidationError("as_of", "invalid_time", "invalid as_of time"))
		return
	}
	var ref time.Time
	if asOf != nil {
		ref = *asOf
	}

	resp, err := s.revenueSvc.Projection(c.Request.Context(), ref)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// @Summary      Export Revenue
// @Description  Download the revenue breakdown as CSV or XLSX
// @Tags         revenue
// @Produce      text/csv
// @Param        start   query  string  false  "Start"
// @Param        end     query  string  false  "End"
// @Param        format  query  string  false  "csv or xlsx"
// @Router       /admin/revenue/export [get]
func (s *Server) ExportRevenue(c *gin.Context) {
	if s.revenueSvc == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		AbortWithError(c, newValidationError("format", "invalid_format", "format must be csv or xlsx"))
		return
	}
	r, err := s.parseRevenueRange(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	breakdown, err := s.revenueSvc.Breakdown(c.Request.Context(), r)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := export.Write(&buf, format, breakdown); err != nil {
		AbortWithError(c, err)
		return
	}

	if s.auditSvc != nil {
		err := s.auditSvc.AuditLog(c.Request.Context(), "revenue.export", "revenue_report", nil, map[string]any{
			"format": string(format),
			"start":  r.Start.Format(time.RFC3339),
			"end":    r.End.Format(time.RFC3339),
		})
		if err != nil {
			s.log.Warn("failed to write revenue export audit log",
				zap.String("format", string(format)),
				zap.Error(err),
			)
		}
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", format.Filename(r)))
	c.Data(http.StatusOK, format.ContentType(), buf.Bytes())
}

// parseRevenueRange defaults to the trailing 30 days. A date-only end covers
// that whole day.
func (s *Server) parseRevenueRange(c *gin.Context) (revenuedomain.Range, error) {
	startValue, err := parseOptionalTime(c.Query("start"), false)
	if err != nil {
		return revenuedomain.Range{}, newValidationError("start", "invalid_time", "invalid start time")
	}
	endValue, err := parseOptionalTime(c.Query("end"), true)
	if err != nil {
		return revenuedomain.Range{}, newValidationError("end", "invalid_time", "invalid end time")
	}

	end := s.clock.Now()
	if endValue != nil {
		end = endValue.UTC()
	}
	start := end.AddDate(0, 0, -defaultRevenueWindowDays)
	if startValue != nil {
		start = startValue.UTC()
	}

	r, err := revenuedomain.NewRange(start, end)
	if err != nil {
		return revenuedomain.Range{}, newValidationError("range", "invalid_range", "start must be before end")
	}
	return r, nil
}

// parseOptionalTime accepts RFC3339 or YYYY-MM-DD. With endOfDay a bare date
// resolves to the start of the following day.
func parseOptionalTime(value string, endOfDay bool) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		t = t.UTC()
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, err
	}
	if endOfDay {
		t = t.AddDate(0, 0, 1)
	}
	return &t, nil
}
