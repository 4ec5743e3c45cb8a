package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	pricingdomain "github.com/pqasys/langcsebkg5-sub008/internal/pricing/domain"
)

type saveMonthlyPricesRequest struct {
	Prices []pricingdomain.PriceInput `json:"prices" validate:"required,min=1,max=12,dive"`
}

type overrideMonthlyPriceRequest struct {
	Year        int   `json:"year" validate:"required"`
	MonthNumber int   `json:"month_number" validate:"required,min=1,max=12"`
	Price       int64 `json:"price" validate:"min=0"`
}

type setAllMonthlyPricesRequest struct {
	Year  int   `json:"year" validate:"required"`
	Price int64 `json:"price" validate:"min=0"`
}

type resetMonthlyPricesRequest struct {
	Year int `json:"year" validate:"required"`
}

type quoteResponse struct {
	pricingdomain.Quote
	BasePrice      int64  `json:"base_price"`
	Currency       string `json:"currency,omitempty"`
	FormattedPrice string `json:"formatted_price,omitempty"`
}

// @Summary      Quote Monthly Price
// @Description  Progressive discount price of committing to a number of months
// @Tags         pricing
// @Produce      json
// @Param        base_price  query  int     true   "Monthly base price"
// @Param        month       query  int     true   "Number of months"
// @Param        currency    query  string  false  "ISO currency for display"
// @Success      200  {object}  quoteResponse
// @Router       /pricing/quote [get]
func (s *Server) GetPricingQuote(c *gin.Context) {
	basePrice, err := strconv.ParseInt(strings.TrimSpace(c.Query("base_price")), 10, 64)
	if err != nil {
		AbortWithError(c, newValidationError("base_price", "invalid_base_price", "invalid base_price"))
		return
	}
	month, err := strconv.Atoi(strings.TrimSpace(c.Query("month")))
	if err != nil {
		AbortWithError(c, newValidationError("month", "invalid_month", "invalid month"))
		return
	}

	quote, err := pricingdomain.NewQuote(basePrice, month)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp := quoteResponse{Quote: quote, BasePrice: basePrice}
	if code := strings.TrimSpace(c.Query("currency")); code != "" {
		formatted, err := pricingdomain.FormatAmount(quote.Price, code)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		resp.Currency = strings.ToUpper(code)
		resp.FormattedPrice = formatted
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// @Summary      Get Monthly Prices
// @Description  Twelve month price schedule of a course
// @Tags         pricing
// @Produce      json
// @Param        id    path   string  true   "Course ID"
// @Param        year  query  int     false  "Year, defaults to the current year"
// @Success      200  {object}  pricingdomain.Schedule
// @Router       /courses/{id}/monthly-prices [get]
func (s *Server) GetMonthlyPrices(c *gin.Context) {
	courseID, err := parseCourseID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	year, err := s.parseYear(c.Query("year"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.pricingSvc.GetSchedule(c.Request.Context(), courseID, year)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// @Summary      Save Monthly Prices
// @Description  Persist prices for the given months of a year
// @Tags         pricing
// @Accept       json
// @Produce      json
// @Param        id       path   string                    true   "Course ID"
// @Param        year     query  int                       false  "Year"
// @Param        request  body   saveMonthlyPricesRequest  true   "Prices"
// @Success      200  {object}  pricingdomain.Schedule
// @Router       /courses/{id}/monthly-prices [put]
func (s *Server) SaveMonthlyPrices(c *gin.Context) {
	courseID, err := parseCourseID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	year, err := s.parseYear(c.Query("year"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req saveMonthlyPricesRequest
	if err := s.bindJSON(c, &req); err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.pricingSvc.SaveSchedule(c.Request.Context(), courseID, year, req.Prices)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// @Summary      Override Monthly Price
// @Tags         pricing
// @Accept       json
// @Produce      json
// @Param        id       path  string                       true  "Course ID"
// @Param        request  body  overrideMonthlyPriceRequest  true  "Override"
// @Success      200  {object}  pricingdomain.Schedule
// @Router       /courses/{id}/monthly-prices/override [post]
func (s *Server) OverrideMonthlyPrice(c *gin.Context) {
	courseID, err := parseCourseID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req overrideMonthlyPriceRequest
	if err := s.bindJSON(c, &req); err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.pricingSvc.OverrideMonth(c.Request.Context(), courseID, req.Year, req.MonthNumber, req.Price)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// @Summary      Set All Monthly Prices
// @Tags         pricing
// @Accept       json
// @Produce      json
// @Param        id       path  string                      true  "Course ID"
// @Param        request  body  setAllMonthlyPricesRequest  true  "Price"
// @Success      200  {object}  pricingdomain.Schedule
// @Router       /courses/{id}/monthly-prices/set-all [post]
func (s *Server) SetAllMonthlyPrices(c *gin.Context) {
	courseID, err := parseCourseID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req setAllMonthlyPricesRequest
	if err := s.bindJSON(c, &req); err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.pricingSvc.SetAll(c.Request.Context(), courseID, req.Year, req.Price)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// @Summary      Reset Monthly Prices
// @Tags         pricing
// @Accept       json
// @Produce      json
// @Param        id       path  string                     true  "Course ID"
// @Param        request  body  resetMonthlyPricesRequest  true  "Year"
// @Success      200  {object}  pricingdomain.Schedule
// @Router       /courses/{id}/monthly-prices/reset [post]
func (s *Server) ResetMonthlyPrices(c *gin.Context) {
	courseID, err := parseCourseID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req resetMonthlyPricesRequest
	if err := s.bindJSON(c, &req); err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.pricingSvc.Reset(c.Request.Context(), courseID, req.Year)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func parseCourseID(c *gin.Context) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(c.Param("id")))
	if err != nil || id <= 0 {
		return 0, newValidationError("id", "invalid_id", "invalid course id")
	}
	return id, nil
}

func (s *Server) parseYear(value string) (int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return s.clock.Now().Year(), nil
	}
	year, err := strconv.Atoi(value)
	if err != nil {
		return 0, newValidationError("year", "invalid_year", "invalid year")
	}
	return year, nil
}

func (s *Server) bindJSON(c *gin.Context, req any) error {
	if err := c.ShouldBindJSON(req); err != nil {
		return invalidRequestError()
	}
	if err := s.validate.Struct(req); err != nil {
		return fromValidator(err)
	}
	return nil
}
