// Package dto provides Data Transfer Objects for HTTP request/response handling.
package dto

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"

	"github.com/jsamuelsen/quotenest/internal/domain"
)

// ErrorResponse is the standard error envelope for all error responses.
type ErrorResponse struct {
	Error   ErrorDetail `json:"error"`
	TraceID string      `json:"traceId,omitempty"`
}

// ErrorDetail contains the error information.
type ErrorDetail struct {
	// Code is a machine-readable error code (e.g., "NOT_FOUND", "VALIDATION_ERROR").
	Code string `json:"code"`

	// Message is a human-readable error message.
	Message string `json:"message"`

	// Details carries field-level messages for validation errors.
	Details map[string]string `json:"details,omitempty"`
}

// Error codes for machine-readable error identification.
const (
	ErrorCodeNotFound        = "NOT_FOUND"
	ErrorCodeValidation      = "VALIDATION_ERROR"
	ErrorCodeBadRequest      = "BAD_REQUEST"
	ErrorCodeRequestTooLarge = "REQUEST_TOO_LARGE"
	ErrorCodeRateLimited     = "RATE_LIMITED"
	ErrorCodeStore           = "STORE_ERROR"
	ErrorCodeInternal        = "INTERNAL_ERROR"
	ErrorCodeTimeout         = "TIMEOUT"
)

// Fixed client-facing messages. Store and internal failures never echo the cause.
const (
	MessageInvalidJSON = "invalid JSON in request body"
	MessageStore       = "the quote store could not complete the request"
	MessageInternal    = "an internal error occurred"
	MessageTimeout     = "request timeout exceeded"
)

// traceIDKey is the gin context key checked before the active span.
const traceIDKey = "trace_id"

// NewErrorResponse creates a new error response with the given code and message.
func NewErrorResponse(code, message string) *ErrorResponse {
	return &ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	}
}

// NewErrorResponseWithDetails creates an error response with field details.
func NewErrorResponseWithDetails(code, message string, details map[string]string) *ErrorResponse {
	resp := NewErrorResponse(code, message)
	resp.Error.Details = details

	return resp
}

// WithTraceID adds a trace ID to the error response.
func (e *ErrorResponse) WithTraceID(traceID string) *ErrorResponse {
	e.TraceID = traceID
	return e
}

// HTTPStatusFromCode maps error codes to HTTP status codes.
func HTTPStatusFromCode(code string) int {
	switch code {
	case ErrorCodeNotFound:
		return http.StatusNotFound
	case ErrorCodeValidation, ErrorCodeBadRequest:
		return http.StatusBadRequest
	case ErrorCodeRequestTooLarge:
		return http.StatusRequestEntityTooLarge
	case ErrorCodeRateLimited:
		return http.StatusTooManyRequests
	case ErrorCodeTimeout:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// FromError maps an error returned by the quote service onto a status and
// envelope. Unknown errors become INTERNAL_ERROR with a generic message.
func FromError(err error) (int, *ErrorResponse) {
	var (
		validationErr *domain.ValidationError
		tooLarge      *http.MaxBytesError
	)

	switch {
	case err == nil:
		return http.StatusOK, nil

	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, NewErrorResponse(ErrorCodeTimeout, MessageTimeout)

	case errors.As(err, &validationErr):
		resp := NewErrorResponse(ErrorCodeValidation, validationErr.Error())
		if validationErr.Field != "" {
			resp.Error.Details = map[string]string{validationErr.Field: validationErr.Message}
		}

		return http.StatusBadRequest, resp

	case domain.IsNotFound(err):
		var notFound *domain.NotFoundError
		if errors.As(err, &notFound) {
			return http.StatusNotFound, NewErrorResponse(ErrorCodeNotFound, notFound.Error())
		}

		return http.StatusNotFound, NewErrorResponse(ErrorCodeNotFound, "resource not found")

	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge, NewErrorResponse(ErrorCodeRequestTooLarge, tooLarge.Error())

	case domain.IsStore(err):
		return http.StatusInternalServerError, NewErrorResponse(ErrorCodeStore, MessageStore)

	default:
		return http.StatusInternalServerError, NewErrorResponse(ErrorCodeInternal, MessageInternal)
	}
}

// GetTraceID returns the trace ID for the request: an explicit value stored on
// the gin context, then the active span, then the X-Request-ID header.
func GetTraceID(c *gin.Context) string {
	if v, ok := c.Get(traceIDKey); ok {
		if id, ok := v.(string); ok {
			return id
		}

		return ""
	}

	if sc := trace.SpanFromContext(c.Request.Context()).SpanContext(); sc.HasTraceID() {
		return sc.TraceID().String()
	}

	return c.GetHeader("X-Request-ID")
}

// HandleError writes the mapped error envelope and aborts the handler chain.
// The error is attached to the context so the request logger can report it.
func HandleError(c *gin.Context, err error) {
	status, resp := FromError(err)
	_ = c.Error(err)

	c.AbortWithStatusJSON(status, resp.WithTraceID(GetTraceID(c)))
}

// AbortWithCode writes an envelope for an adapter-level failure that has no
// domain error behind it, such as a malformed body or an exhausted rate limit.
func AbortWithCode(c *gin.Context, code, message string) {
	c.AbortWithStatusJSON(HTTPStatusFromCode(code), NewErrorResponse(code, message).WithTraceID(GetTraceID(c)))
}

// HandleBindError reports a body that could not be decoded. Oversized bodies
// keep their own code; everything else is the fixed invalid JSON message.
func HandleBindError(c *gin.Context, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		HandleError(c, err)
		return
	}

	_ = c.Error(err)
	AbortWithCode(c, ErrorCodeBadRequest, MessageInvalidJSON)
}

// HandleValidationErrors reports field-level failures found by Validate.
func HandleValidationErrors(c *gin.Context, err error) {
	_ = c.Error(err)

	c.AbortWithStatusJSON(http.StatusBadRequest, NewErrorResponseWithDetails(
		ErrorCodeValidation,
		"request validation failed",
		ValidationErrors(err),
	).WithTraceID(GetTraceID(c)))
}
