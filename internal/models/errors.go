package models

import (
	"errors"
	"net/http"
	"time"
)

// Stable error codes surfaced to clients. Clients should retry only where
// the accompanying retryable flag is true.
const (
	ErrCodeValidation    = "VALIDATION_ERROR"
	ErrCodeInvalidFlight = "INVALID_FLIGHT"
	ErrCodeNoSeats       = "NO_SEATS_AVAILABLE"
	ErrCodeLockFailed    = "LOCK_ACQUISITION_FAILED"
	ErrCodeNotFound      = "BOOKING_NOT_FOUND"
	ErrCodeUnavailable   = "SERVICE_UNAVAILABLE"
	ErrCodeInternal      = "INTERNAL_ERROR"
)

// ServiceError is the typed error crossing the services → handlers boundary.
// The HTTP layer maps it to the shared error envelope without string
// matching.
type ServiceError struct {
	Code       string
	Message    string
	Details    string
	Retryable  bool
	HTTPStatus int
}

// Error implements the error interface.
func (e *ServiceError) Error() string {
	if e.Details != "" {
		return e.Message + ": " + e.Details
	}
	return e.Message
}

// AsServiceError unwraps err into a *ServiceError if it carries one.
func AsServiceError(err error) (*ServiceError, bool) {
	var se *ServiceError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// NewValidationError reports a malformed or out-of-range request field.
func NewValidationError(msg string) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeValidation,
		Message:    msg,
		Retryable:  false,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewInvalidFlightError reports an unknown or unbookable flight identifier.
func NewInvalidFlightError(identifier string) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeInvalidFlight,
		Message:    "flight identifier is unknown or not bookable",
		Details:    identifier,
		Retryable:  false,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewNoSeatsError reports insufficient inventory on a leg.
func NewNoSeatsError(flightID string) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeNoSeats,
		Message:    "not enough seats available",
		Details:    flightID,
		Retryable:  false,
		HTTPStatus: http.StatusConflict,
	}
}

// NewLockFailedError reports that the flight mutex wait budget was exhausted.
func NewLockFailedError() *ServiceError {
	return &ServiceError{
		Code:       ErrCodeLockFailed,
		Message:    "could not acquire flight lock, try again",
		Retryable:  true,
		HTTPStatus: http.StatusConflict,
	}
}

// NewBookingNotFoundError reports an unknown booking id.
func NewBookingNotFoundError(bookingID string) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeNotFound,
		Message:    "booking not found",
		Details:    bookingID,
		Retryable:  false,
		HTTPStatus: http.StatusNotFound,
	}
}

// NewServiceUnavailableError reports an unreachable upstream dependency.
func NewServiceUnavailableError(dependency string) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeUnavailable,
		Message:    "upstream dependency unavailable",
		Details:    dependency,
		Retryable:  true,
		HTTPStatus: http.StatusServiceUnavailable,
	}
}

// NewInternalError reports an unexpected storage or state failure.
func NewInternalError(msg string) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeInternal,
		Message:    "internal error",
		Details:    msg,
		Retryable:  true,
		HTTPStatus: http.StatusInternalServerError,
	}
}

// ErrorResponse is the shared JSON error envelope.
type ErrorResponse struct {
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Retryable bool      `json:"retryable"`
	Timestamp time.Time `json:"timestamp"`
}

// NewErrorResponse builds the envelope for a service error.
func NewErrorResponse(se *ServiceError) ErrorResponse {
	return ErrorResponse{
		Error:     se.Code,
		Message:   se.Message,
		Details:   se.Details,
		Retryable: se.Retryable,
		Timestamp: time.Now().UTC(),
	}
}
