// Package errors maps application failures to RFC 7807 HTTP problems.
package errors

import (
	"net/http"

	"github.com/go-chi/render"
)

// APIError represents a structured API error response
type APIError struct {
	StatusCode int         `json:"status_code"`
	ErrorCode  string      `json:"error_code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return e.Message
}

// Render implements the render.Renderer interface for chi/render
func (e *APIError) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.StatusCode)
	return nil
}

// ValidationError describes one invalid field
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// New creates a new APIError with the given parameters
func New(statusCode int, errorCode, message string) *APIError {
	return &APIError{
		StatusCode: statusCode,
		ErrorCode:  errorCode,
		Message:    message,
	}
}

// NewWithDetails creates a new APIError with additional details
func NewWithDetails(statusCode int, errorCode, message string, details interface{}) *APIError {
	return &APIError{
		StatusCode: statusCode,
		ErrorCode:  errorCode,
		Message:    message,
		Details:    details,
	}
}

// Error codes
const (
	CodeInvalidRequest       = "INVALID_REQUEST"
	CodeValidationFailed     = "VALIDATION_FAILED"
	CodeInvalidUpload        = "INVALID_UPLOAD"
	CodeNoStartups           = "NO_STARTUPS"
	CodePayloadTooLarge      = "PAYLOAD_TOO_LARGE"
	CodeUnsupportedMediaType = "UNSUPPORTED_MEDIA_TYPE"
	CodeNotFound             = "NOT_FOUND"
	CodeNoResults            = "NO_RESULTS"
	CodeBatchNotFound        = "BATCH_NOT_FOUND"
	CodeBatchInProgress      = "BATCH_IN_PROGRESS"
	CodeRateLimitExceeded    = "RATE_LIMIT_EXCEEDED"
	CodeInternalServer       = "INTERNAL_SERVER_ERROR"
	CodeServiceUnavailable   = "SERVICE_UNAVAILABLE"
	CodeWebSocketUpgrade     = "WEBSOCKET_UPGRADE_FAILED"
)

// Predefined errors
var (
	// 400 Bad Request
	ErrInvalidRequest   = New(http.StatusBadRequest, CodeInvalidRequest, "Invalid request format")
	ErrValidationFailed = New(http.StatusBadRequest, CodeValidationFailed, "Request validation failed")
	ErrInvalidUpload    = New(http.StatusBadRequest, CodeInvalidUpload, "Could not read the uploaded spreadsheet")
	ErrNoStartups       = New(http.StatusBadRequest, CodeNoStartups, "No startups found in file")

	// 404 Not Found
	ErrNotFound      = New(http.StatusNotFound, CodeNotFound, "Resource not found")
	ErrNoResults     = New(http.StatusNotFound, CodeNoResults, "No results available. Please run evaluation first.")
	ErrBatchNotFound = New(http.StatusNotFound, CodeBatchNotFound, "Batch not found")

	// 409 Conflict
	ErrBatchInProgress = New(http.StatusConflict, CodeBatchInProgress, "An evaluation is already running")

	// 413 Payload Too Large
	ErrPayloadTooLarge = New(http.StatusRequestEntityTooLarge, CodePayloadTooLarge, "The uploaded file exceeds the maximum allowed size")

	// 429 Too Many Requests
	ErrRateLimitExceeded = New(http.StatusTooManyRequests, CodeRateLimitExceeded, "Rate limit exceeded")

	// 500 Internal Server Error
	ErrInternalServer   = New(http.StatusInternalServerError, CodeInternalServer, "Internal server error")
	ErrWebSocketUpgrade = New(http.StatusInternalServerError, CodeWebSocketUpgrade, "WebSocket upgrade failed")

	// 503 Service Unavailable
	ErrServiceUnavailable = New(http.StatusServiceUnavailable, CodeServiceUnavailable, "Service temporarily unavailable")
)

// InvalidRequestWithError creates an invalid request error with details
func InvalidRequestWithError(err error) *APIError {
	return NewWithDetails(http.StatusBadRequest, CodeInvalidRequest, "Invalid request format", err.Error())
}

// InvalidUploadWithError creates an invalid upload error with details
func InvalidUploadWithError(err error) *APIError {
	return NewWithDetails(http.StatusBadRequest, CodeInvalidUpload, "Could not read the uploaded spreadsheet", err.Error())
}

// WebSocketUpgradeWithError reports a refused upgrade with the status the
// upgrader chose
func WebSocketUpgradeWithError(status int, err error) *APIError {
	apiErr := *ErrWebSocketUpgrade
	apiErr.StatusCode = status
	apiErr.Details = err.Error()
	return &apiErr
}

// ValidationErrors represents multiple validation errors
type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

// NewValidationErrors creates validation errors from multiple fields
func NewValidationErrors(errors []ValidationError) *APIError {
	return NewWithDetails(
		http.StatusBadRequest,
		CodeValidationFailed,
		"Request validation failed",
		ValidationErrors{Errors: errors},
	)
}
