package dto

import "net/http"

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	// ErrCodeUnknown is used when the error type is unknown
	ErrCodeUnknown = "ERR_UNKNOWN"
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "ERR_INTERNAL"
)

// Input error codes
const (
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	// ErrCodeNotFound is used when a resource is not found
	ErrCodeNotFound = "ERR_NOT_FOUND"
)

// Upstream error codes cover the Shopify Admin API
const (
	// ErrCodeUpstreamUnavailable is used when a store API cannot be reached
	ErrCodeUpstreamUnavailable = "ERR_UPSTREAM_UNAVAILABLE"
	// ErrCodeUpstreamRejected is used when a store API returns a failure status
	ErrCodeUpstreamRejected = "ERR_UPSTREAM_REJECTED"
	// ErrCodeUpstreamInvalid is used when a store API response cannot be parsed
	ErrCodeUpstreamInvalid = "ERR_UPSTREAM_INVALID"
)

// Sink error codes cover the spreadsheet backend
const (
	// ErrCodeSinkFailed is used when writing a tab fails
	ErrCodeSinkFailed = "ERR_SINK_FAILED"
)

// Pipeline error codes cover reconciliation failures
const (
	// ErrCodeSchemaMismatch is used when join keys or projected columns are missing
	ErrCodeSchemaMismatch = "ERR_SCHEMA_MISMATCH"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	// General errors
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	// Input errors
	ErrCodeBadRequest: http.StatusBadRequest,
	ErrCodeNotFound:   http.StatusNotFound,

	// Upstream errors -> 502 Bad Gateway
	ErrCodeUpstreamUnavailable: http.StatusBadGateway,
	ErrCodeUpstreamRejected:    http.StatusBadGateway,
	ErrCodeUpstreamInvalid:     http.StatusBadGateway,

	// Sink errors -> 502 Bad Gateway
	ErrCodeSinkFailed: http.StatusBadGateway,

	// Pipeline errors
	ErrCodeSchemaMismatch: http.StatusInternalServerError,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
