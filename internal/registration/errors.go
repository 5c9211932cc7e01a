package registration

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is the machine-readable error kind surfaced to callers.
type Code string

const (
	CodeNotFound             Code = "NOT_FOUND"
	CodePrerequisiteMissing  Code = "PREREQUISITE_MISSING"
	CodeAlreadyEnrolled      Code = "ALREADY_ENROLLED"
	CodeAlreadyWaitlisted    Code = "ALREADY_WAITLISTED"
	CodeSeatTaken            Code = "SEAT_TAKEN"
	CodeInvalidSeatLabel     Code = "INVALID_SEAT_LABEL"
	CodeBookingClosed        Code = "BOOKING_CLOSED"
	CodeBookingAlreadyOpen   Code = "BOOKING_ALREADY_OPEN"
	CodeCapacityExceeded     Code = "CAPACITY_EXCEEDED"
	CodeConfigurationInvalid Code = "CONFIGURATION_INVALID"
	CodeConflict             Code = "CONFLICT"
	CodeTimeout              Code = "TIMEOUT"
	CodeInternal             Code = "INTERNAL"
)

// Error carries a machine code alongside the human message.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a coded error.
func NewError(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Errorf creates a coded error with a formatted message.
func Errorf(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WrapError attaches a code to an underlying error.
func WrapError(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// CodeOf extracts the machine code, defaulting to INTERNAL.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// HTTPStatus maps a code to its response status.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeNotFound:
		return http.StatusNotFound
	case CodePrerequisiteMissing, CodeAlreadyEnrolled, CodeAlreadyWaitlisted,
		CodeInvalidSeatLabel, CodeBookingAlreadyOpen, CodeConfigurationInvalid:
		return http.StatusBadRequest
	case CodeSeatTaken, CodeBookingClosed, CodeCapacityExceeded, CodeConflict:
		return http.StatusConflict
	case CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
