package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	completiondomain "github.com/smallbiznis/factuur/internal/completion/domain"
	vatratedomain "github.com/smallbiznis/factuur/internal/vatrate/domain"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrInternal           = errors.New("internal_error")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrTooManyRequests    = errors.New("too_many_requests")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (int, errorPayload) {
	switch {
	case isContractError(err):
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{Field: contractErrorField(err), Code: err.Error(), Message: "invalid value"},
			},
		}
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, vatratedomain.ErrInvalidCountry),
		errors.Is(err, vatratedomain.ErrInvalidDate):
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{Field: "request", Code: "invalid_request", Message: "invalid request"},
			},
		}
	case errors.Is(err, ErrNotFound),
		errors.Is(err, vatratedomain.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, ErrTooManyRequests):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "too_many_requests",
			Message: "rate limit exceeded",
		}
	case errors.Is(err, ErrServiceUnavailable):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

// isContractError reports whether the completion engine rejected the raw
// invoice shape. These map to 400; everything the engine handled itself is a
// message inside a 200 response, concept invoices included.
func isContractError(err error) bool {
	switch {
	case errors.Is(err, completiondomain.ErrMissingCustomer),
		errors.Is(err, completiondomain.ErrMissingCountry),
		errors.Is(err, completiondomain.ErrMissingLines),
		errors.Is(err, completiondomain.ErrMissingDate),
		errors.Is(err, completiondomain.ErrInvalidQuantity):
		return true
	default:
		return false
	}
}

func contractErrorField(err error) string {
	switch {
	case errors.Is(err, completiondomain.ErrMissingCustomer):
		return "customer"
	case errors.Is(err, completiondomain.ErrMissingCountry):
		return "customer.countryCode"
	case errors.Is(err, completiondomain.ErrMissingLines):
		return "lines"
	case errors.Is(err, completiondomain.ErrMissingDate):
		return "issueDate"
	case errors.Is(err, completiondomain.ErrInvalidQuantity):
		return "lines.quantity"
	default:
		return "request"
	}
}
