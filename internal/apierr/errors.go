package apierr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/tablescout/tablescout/internal/logger"
)

// ErrorCode represents a structured error code
type ErrorCode string

// Error code constants organized by category
const (
	// PROVIDER_ - Upstream metered API errors
	ErrProviderAuth        ErrorCode = "PROVIDER_AUTH_FAILED"
	ErrProviderTransient   ErrorCode = "PROVIDER_TRANSIENT"
	ErrProviderPermanent   ErrorCode = "PROVIDER_PERMANENT"
	ErrProviderSchema      ErrorCode = "PROVIDER_SCHEMA_CHANGE"
	ErrProviderCircuitOpen ErrorCode = "PROVIDER_CIRCUIT_OPEN"
	ErrProviderNotConfig   ErrorCode = "PROVIDER_NOT_CONFIGURED"

	// SEARCH_ - Search operation errors
	ErrSearchInvalidQuery ErrorCode = "SEARCH_INVALID_QUERY"
	ErrSearchFailed       ErrorCode = "SEARCH_FAILED"

	// SYSTEM_ - System and server errors
	ErrSystemInternal    ErrorCode = "SYSTEM_INTERNAL"
	ErrSystemDatabase    ErrorCode = "SYSTEM_DATABASE"
	ErrSystemUnavailable ErrorCode = "SYSTEM_UNAVAILABLE"

	// VALIDATION_ - Request validation errors
	ErrValidationInvalidJSON  ErrorCode = "VALIDATION_INVALID_JSON"
	ErrValidationMissingField ErrorCode = "VALIDATION_MISSING_FIELD"
	ErrValidationInvalidValue ErrorCode = "VALIDATION_INVALID_VALUE"

	// RESOURCE_ - Resource errors
	ErrResourceNotFound ErrorCode = "RESOURCE_NOT_FOUND"

	// RATE_LIMIT_ - Rate limiting errors
	ErrRateLimitGlobal ErrorCode = "RATE_LIMIT_GLOBAL"
	ErrRateLimitIP     ErrorCode = "RATE_LIMIT_IP"
)

// Error represents a structured error, used both for upstream provider
// failures and for responses written by the HTTP API.
type Error struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
	status    int                    // HTTP status code (not serialized)
}

// ErrorResponse is the top-level error response wrapper
type ErrorResponse struct {
	Error *Error `json:"error"`
}

// New creates a new structured error
func New(code ErrorCode, message string, status int) *Error {
	return &Error{
		Code:    code,
		Message: message,
		status:  status,
	}
}

// WithDetails adds details to the error
func (e *Error) WithDetails(details map[string]interface{}) *Error {
	e.Details = details
	return e
}

// WithRequestID adds a request ID to the error
func (e *Error) WithRequestID(requestID string) *Error {
	e.RequestID = requestID
	return e
}

// Error implements the error interface
func (e *Error) Error() string {
	return string(e.Code) + ": " + e.Message
}

// Status returns the HTTP status code
func (e *Error) Status() int {
	return e.status
}

// ClassifyStatus maps an upstream HTTP status to a structured error.
// It returns nil for any 2xx/3xx status. 401 is an auth failure, 429 and
// 5xx are transient (retriable), remaining 4xx are permanent.
func ClassifyStatus(provider string, status int) *Error {
	switch {
	case status < 400:
		return nil
	case status == http.StatusUnauthorized:
		return ProviderAuth(provider, status)
	case status == http.StatusTooManyRequests || status >= 500:
		return ProviderTransient(provider, status)
	default:
		return ProviderPermanent(provider, status)
	}
}

// IsTransient reports whether err is an upstream error worth retrying.
func IsTransient(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == ErrProviderTransient
}

// Provider error constructors

// ProviderAuth creates an upstream authentication failure error
func ProviderAuth(provider string, status int) *Error {
	return New(ErrProviderAuth, fmt.Sprintf("%s authentication failed (HTTP %d)", provider, status), http.StatusBadGateway).
		WithDetails(map[string]interface{}{"provider": provider, "upstream_status": status})
}

// ProviderTransient creates a retriable upstream error (429, 5xx)
func ProviderTransient(provider string, status int) *Error {
	return New(ErrProviderTransient, fmt.Sprintf("%s transient error (HTTP %d)", provider, status), http.StatusBadGateway).
		WithDetails(map[string]interface{}{"provider": provider, "upstream_status": status})
}

// ProviderPermanent creates a non-retriable upstream error (4xx other than 401/429)
func ProviderPermanent(provider string, status int) *Error {
	return New(ErrProviderPermanent, fmt.Sprintf("%s client error (HTTP %d)", provider, status), http.StatusBadGateway).
		WithDetails(map[string]interface{}{"provider": provider, "upstream_status": status})
}

// ProviderSchema creates an error for an unexpected upstream response shape
func ProviderSchema(provider, detail string) *Error {
	return New(ErrProviderSchema, fmt.Sprintf("%s response shape changed: %s", provider, detail), http.StatusBadGateway).
		WithDetails(map[string]interface{}{"provider": provider})
}

// ProviderCircuitOpen creates an error for a shed call behind an open breaker
func ProviderCircuitOpen(provider string) *Error {
	return New(ErrProviderCircuitOpen, fmt.Sprintf("%s circuit breaker is open", provider), http.StatusServiceUnavailable).
		WithDetails(map[string]interface{}{"provider": provider})
}

// ProviderNotConfigured creates an error for a provider missing its API key
func ProviderNotConfigured(provider string) *Error {
	return New(ErrProviderNotConfig, provider+" is not configured", http.StatusServiceUnavailable).
		WithDetails(map[string]interface{}{"provider": provider})
}

// API error constructors

// SearchInvalidQuery creates a search invalid query error
func SearchInvalidQuery(message string) *Error {
	if message == "" {
		message = "Invalid search query"
	}
	return New(ErrSearchInvalidQuery, message, http.StatusBadRequest)
}

// SearchFailed creates a search failed error
func SearchFailed(message string) *Error {
	if message == "" {
		message = "Search query failed"
	}
	return New(ErrSearchFailed, message, http.StatusInternalServerError)
}

// SystemInternal creates an internal server error
func SystemInternal(message string) *Error {
	if message == "" {
		message = "Internal server error"
	}
	return New(ErrSystemInternal, message, http.StatusInternalServerError)
}

// SystemDatabase creates a database error
func SystemDatabase(message string) *Error {
	if message == "" {
		message = "Database error"
	}
	return New(ErrSystemDatabase, message, http.StatusInternalServerError)
}

// SystemUnavailable creates a service unavailable error
func SystemUnavailable(message string) *Error {
	if message == "" {
		message = "Service unavailable"
	}
	return New(ErrSystemUnavailable, message, http.StatusServiceUnavailable)
}

// ValidationInvalidJSON creates an invalid JSON error
func ValidationInvalidJSON() *Error {
	return New(ErrValidationInvalidJSON, "Invalid JSON request body", http.StatusBadRequest)
}

// ValidationMissingField creates a missing field error
func ValidationMissingField(field string) *Error {
	return New(ErrValidationMissingField, "Missing required field: "+field, http.StatusBadRequest).
		WithDetails(map[string]interface{}{"field": field})
}

// ValidationInvalidValue creates an invalid value error
func ValidationInvalidValue(field string, message string) *Error {
	if message == "" {
		message = "Invalid value for field: " + field
	}
	return New(ErrValidationInvalidValue, message, http.StatusBadRequest).
		WithDetails(map[string]interface{}{"field": field})
}

// ResourceNotFound creates a resource not found error
func ResourceNotFound(resourceType string) *Error {
	return New(ErrResourceNotFound, resourceType+" not found", http.StatusNotFound).
		WithDetails(map[string]interface{}{"resource_type": resourceType})
}

// RateLimitGlobal creates a global rate limit error
func RateLimitGlobal() *Error {
	return New(ErrRateLimitGlobal, "Rate limit exceeded - too many requests globally", http.StatusTooManyRequests)
}

// RateLimitIP creates an IP rate limit error
func RateLimitIP() *Error {
	return New(ErrRateLimitIP, "Rate limit exceeded - too many requests from your IP", http.StatusTooManyRequests)
}

// WriteError writes a structured error response to the HTTP response writer
func WriteError(w http.ResponseWriter, err *Error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.Status())
	json.NewEncoder(w).Encode(ErrorResponse{Error: err})
}

// GetRequestID extracts the request ID from the context
func GetRequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(logger.RequestIDKey).(string); ok {
		return reqID
	}
	return ""
}

// WriteErrorWithContext writes a structured error response with request ID from context
func WriteErrorWithContext(w http.ResponseWriter, r *http.Request, err *Error) {
	if reqID := GetRequestID(r.Context()); reqID != "" {
		err = err.WithRequestID(reqID)
	}
	WriteError(w, err)
}
