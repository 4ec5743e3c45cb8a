package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/pqasys/langcsebkg5-sub008/internal/observability/logger"
	pricingdomain "github.com/pqasys/langcsebkg5-sub008/internal/pricing/domain"
	revenuedomain "github.com/pqasys/langcsebkg5-sub008/internal/revenue/domain"
	"github.com/pqasys/langcsebkg5-sub008/internal/revenue/export"
	"go.uber.org/zap"
)

const (
	errorTypeValidation   = "validation_error"
	errorTypeInvalid      = "invalid_request_error"
	errorTypeNotFound     = "not_found_error"
	errorTypeRateLimit    = "rate_limit_error"
	errorTypeUnavailable  = "service_unavailable_error"
	errorTypeInternal     = "api_error"
	genericInternalReason = "internal server error"
)

var (
	ErrNotFound           = errors.New("not_found")
	ErrTooManyRequests    = errors.New("too_many_requests")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

// ValidationError reports a rejected request field.
type ValidationError struct {
	Field   string
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func newValidationError(field, code, message string) error {
	return &ValidationError{Field: field, Code: code, Message: message}
}

func invalidRequestError() error {
	return newValidationError("body", "invalid_request", "invalid request")
}

// fromValidator converts the first failed validator rule into a ValidationError.
func fromValidator(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return invalidRequestError()
	}
	fe := verrs[0]
	field := toSnake(fe.Field())
	return newValidationError(field, fe.Tag(), fmt.Sprintf("%s failed on %s", field, fe.Tag()))
}

type errorBody struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// AbortWithError writes the JSON error envelope matching err and stops the chain.
func AbortWithError(c *gin.Context, err error) {
	status, body := describeError(err)
	if status >= http.StatusInternalServerError {
		logger.FromContext(c.Request.Context()).Error("request failed",
			zap.String("path", c.FullPath()),
			zap.Int("status", status),
			zap.Error(err),
		)
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, gin.H{"error": body})
}

func describeError(err error) (int, errorBody) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return http.StatusBadRequest, errorBody{
			Type:    errorTypeValidation,
			Code:    verr.Code,
			Message: verr.Message,
			Field:   verr.Field,
		}
	}

	switch {
	case errors.Is(err, revenuedomain.ErrAggregationFailed):
		return http.StatusInternalServerError, errorBody{
			Type:    errorTypeInternal,
			Code:    revenuedomain.ErrAggregationFailed.Error(),
			Message: "revenue report could not be generated",
		}
	case errors.Is(err, revenuedomain.ErrInvalidRange),
		errors.Is(err, pricingdomain.ErrInvalidMonth),
		errors.Is(err, pricingdomain.ErrInvalidPrice),
		errors.Is(err, pricingdomain.ErrInvalidYear),
		errors.Is(err, pricingdomain.ErrInvalidCurrency),
		errors.Is(err, export.ErrUnsupportedFormat):
		return http.StatusBadRequest, errorBody{Type: errorTypeInvalid, Code: err.Error(), Message: humanize(err.Error())}
	case errors.Is(err, pricingdomain.ErrCourseNotFound), errors.Is(err, ErrNotFound):
		return http.StatusNotFound, errorBody{Type: errorTypeNotFound, Code: err.Error(), Message: humanize(err.Error())}
	case errors.Is(err, ErrTooManyRequests):
		return http.StatusTooManyRequests, errorBody{Type: errorTypeRateLimit, Code: err.Error(), Message: humanize(err.Error())}
	case errors.Is(err, ErrServiceUnavailable):
		return http.StatusServiceUnavailable, errorBody{Type: errorTypeUnavailable, Code: err.Error(), Message: humanize(err.Error())}
	default:
		return http.StatusInternalServerError, errorBody{Type: errorTypeInternal, Code: "internal_error", Message: genericInternalReason}
	}
}

func humanize(code string) string {
	return strings.ReplaceAll(code, "_", " ")
}

func toSnake(name string) string {
	var b strings.Builder
	for i, r := range name {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}
