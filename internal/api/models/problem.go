package models

import (
	"encoding/json"
	"net/http"
)

// Problem represents an RFC7807 error response.
// This is used for all API error responses with Content-Type: application/problem+json.
type Problem struct {
	// Type is a URI reference that identifies the problem type.
	Type string `json:"type"`

	// Title is a short, human-readable summary of the problem type.
	Title string `json:"title"`

	// Status is the HTTP status code for this occurrence of the problem.
	Status int `json:"status"`

	// Code names the error kind so devices can branch without parsing Detail.
	Code ErrorCode `json:"code"`

	// Detail is a human-readable explanation specific to this occurrence.
	Detail string `json:"detail,omitempty"`

	// Instance is a URI reference that identifies the specific occurrence.
	Instance string `json:"instance,omitempty"`

	// TraceID is the request trace identifier for debugging.
	TraceID string `json:"traceId"`
}

// ErrorCode is the machine-readable kind carried in Problem.Code.
type ErrorCode string

// Error codes.
const (
	CodeMissingCredential  ErrorCode = "MissingCredential"
	CodeUnknownKey         ErrorCode = "UnknownKey"
	CodeMalformedTimestamp ErrorCode = "MalformedTimestamp"
	CodeStaleTimestamp     ErrorCode = "StaleTimestamp"
	CodeMissingField       ErrorCode = "MissingField"
	CodeInvalidFormat      ErrorCode = "InvalidFormat"
	CodeDeviceBlocked      ErrorCode = "DeviceBlocked"
	CodeRateLimited        ErrorCode = "RateLimited"
	CodeTLSRequired        ErrorCode = "TLSRequired"
	CodeNotFound           ErrorCode = "NotFound"
	CodeUnavailable        ErrorCode = "Unavailable"
	CodeInternal           ErrorCode = "Internal"
)

// ProblemType constants for standard error types.
const (
	ProblemTypeValidation      = "https://relay.olahtaxi.app/problems/validation-error"
	ProblemTypeUnauthorized    = "https://relay.olahtaxi.app/problems/unauthorized"
	ProblemTypeForbidden       = "https://relay.olahtaxi.app/problems/forbidden"
	ProblemTypeNotFound        = "https://relay.olahtaxi.app/problems/not-found"
	ProblemTypeTooManyRequests = "https://relay.olahtaxi.app/problems/too-many-requests"
	ProblemTypeInternal        = "https://relay.olahtaxi.app/problems/internal-error"
	ProblemTypeUnavailable     = "https://relay.olahtaxi.app/problems/service-unavailable"
)

// NewProblem creates a new Problem with the given parameters.
func NewProblem(problemType, title string, status int, code ErrorCode, traceID string) *Problem {
	return &Problem{
		Type:    problemType,
		Title:   title,
		Status:  status,
		Code:    code,
		TraceID: traceID,
	}
}

// WithDetail adds a detail message to the Problem.
func (p *Problem) WithDetail(detail string) *Problem {
	p.Detail = detail
	return p
}

// WithInstance adds the request instance URI to the Problem.
func (p *Problem) WithInstance(instance string) *Problem {
	p.Instance = instance
	return p
}

// Write writes the Problem as JSON to the ResponseWriter.
func (p *Problem) Write(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/problem+json")
	if p.TraceID != "" {
		w.Header().Set("X-Request-Id", p.TraceID)
	}
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

// NewBadRequest creates a 400 problem.
func NewBadRequest(traceID string, code ErrorCode, detail string) *Problem {
	return NewProblem(ProblemTypeValidation, "Bad request", http.StatusBadRequest, code, traceID).
		WithDetail(detail)
}

// NewUnauthorized creates a 401 problem.
func NewUnauthorized(traceID string, code ErrorCode, detail string) *Problem {
	return NewProblem(ProblemTypeUnauthorized, "Unauthorized", http.StatusUnauthorized, code, traceID).
		WithDetail(detail)
}

// NewForbidden creates a 403 problem.
func NewForbidden(traceID string, code ErrorCode, detail string) *Problem {
	return NewProblem(ProblemTypeForbidden, "Forbidden", http.StatusForbidden, code, traceID).
		WithDetail(detail)
}

// NewNotFound creates a 404 problem.
func NewNotFound(traceID, detail string) *Problem {
	return NewProblem(ProblemTypeNotFound, "Not found", http.StatusNotFound, CodeNotFound, traceID).
		WithDetail(detail)
}

// NewTooManyRequests creates a 429 problem.
func NewTooManyRequests(traceID, detail string) *Problem {
	return NewProblem(ProblemTypeTooManyRequests, "Too many requests", http.StatusTooManyRequests, CodeRateLimited, traceID).
		WithDetail(detail)
}

// NewInternalError creates a 500 problem. detail must not carry downstream error text.
func NewInternalError(traceID, detail string) *Problem {
	return NewProblem(ProblemTypeInternal, "Internal server error", http.StatusInternalServerError, CodeInternal, traceID).
		WithDetail(detail)
}

// NewServiceUnavailable creates a 503 problem.
func NewServiceUnavailable(traceID, detail string) *Problem {
	return NewProblem(ProblemTypeUnavailable, "Service unavailable", http.StatusServiceUnavailable, CodeUnavailable, traceID).
		WithDetail(detail)
}
