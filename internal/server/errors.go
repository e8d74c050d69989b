package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	analyticsdomain "github.com/smallbiznis/coursepulse/internal/analytics/domain"
	"github.com/smallbiznis/coursepulse/internal/analytics/engine"
	recordsdomain "github.com/smallbiznis/coursepulse/internal/records/domain"
	"github.com/smallbiznis/coursepulse/internal/timewindow"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (v *ValidationError) Error() string {
	return v.Code
}

type errorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var ErrInvalidRequest = errors.New("invalid_request")

// statusClientClosedRequest is reported when the caller went away before the
// response was ready.
const statusClientClosedRequest = 499

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

func newValidationError(field, code, message string) error {
	return &ValidationError{Field: field, Code: code, Message: message}
}

func mapError(err error) (int, errorPayload) {
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return http.StatusBadRequest, errorPayload{
			Type:    vErr.Code,
			Message: vErr.Message,
			Field:   vErr.Field,
		}
	}

	switch {
	case errors.Is(err, timewindow.ErrInvalidPeriod):
		return http.StatusBadRequest, errorPayload{Type: "invalid_period", Message: "period must be one of day, week, month, year, all, custom"}
	case errors.Is(err, timewindow.ErrInvalidRange):
		return http.StatusBadRequest, errorPayload{Type: "invalid_range", Message: "from must be before to"}
	case errors.Is(err, analyticsdomain.ErrInvalidScope):
		return http.StatusBadRequest, errorPayload{Type: "invalid_scope", Message: "use all=true or an instructor_id and/or course_id filter"}
	case errors.Is(err, engine.ErrInvalidGroupBy):
		return http.StatusBadRequest, errorPayload{Type: "invalid_group_by", Message: "group_by must be course, payment_method or currency_hint"}
	case errors.Is(err, analyticsdomain.ErrInvalidRequest),
		errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest, errorPayload{Type: "invalid_request", Message: "invalid request"}
	case errors.Is(err, context.Canceled):
		return statusClientClosedRequest, errorPayload{Type: "request_canceled", Message: "request canceled by client"}
	case errors.Is(err, recordsdomain.ErrDataUnavailable):
		return http.StatusServiceUnavailable, errorPayload{Type: "data_unavailable", Message: "analytics data is temporarily unavailable"}
	default:
		return http.StatusInternalServerError, errorPayload{Type: "internal_error", Message: "internal server error"}
	}
}

func classifyErrorForLog(err error) (string, string) {
	status, payload := mapError(err)
	switch {
	case status >= http.StatusInternalServerError:
		return "server", payload.Type
	default:
		return "client", payload.Type
	}
}
