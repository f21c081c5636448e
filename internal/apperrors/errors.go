// Package apperrors defines the typed error taxonomy shared by all services.
// Business-rule failures carry a stable code so handlers can map them to HTTP
// statuses without string matching.
package apperrors

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

type Code string

const (
	CodeNotFound              Code = "NOT_FOUND"
	CodeForbidden             Code = "FORBIDDEN"
	CodeInvalidTransition     Code = "INVALID_TRANSITION"
	CodeImmutable             Code = "IMMUTABLE"
	CodePolicyViolation       Code = "POLICY_VIOLATION"
	CodeConflict              Code = "CONFLICT"
	CodeDuplicateRegistration Code = "DUPLICATE_REGISTRATION"
	CodeValidationFailed      Code = "VALIDATION_FAILED"
	CodeOutOfStock            Code = "OUT_OF_STOCK"
	CodeAlreadyUsed           Code = "ALREADY_USED"
	CodeExpired               Code = "EXPIRED"
	CodeWrongEvent            Code = "WRONG_EVENT"
	CodeTicketCancelled       Code = "TICKET_CANCELLED"
	CodeInternal              Code = "INTERNAL"
)

type Error struct {
	Message string `json:"message"`
	Code    Code   `json:"code"`
	Details error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Details != nil {
		return fmt.Sprintf("%s [%s]: %v", e.Message, e.Code, e.Details)
	}
	return fmt.Sprintf("%s [%s]", e.Message, e.Code)
}

func (e *Error) Unwrap() error {
	return e.Details
}

func New(message string, code Code, details error) *Error {
	return &Error{Message: message, Code: code, Details: details}
}

func NotFound(message string) *Error {
	return New(message, CodeNotFound, nil)
}

func Forbidden(message string) *Error {
	return New(message, CodeForbidden, nil)
}

func InvalidTransition(message string) *Error {
	return New(message, CodeInvalidTransition, nil)
}

func Immutable(message string) *Error {
	return New(message, CodeImmutable, nil)
}

func PolicyViolation(message string) *Error {
	return New(message, CodePolicyViolation, nil)
}

func Conflict(message string) *Error {
	return New(message, CodeConflict, nil)
}

func DuplicateRegistration(message string) *Error {
	return New(message, CodeDuplicateRegistration, nil)
}

func ValidationFailed(message string) *Error {
	return New(message, CodeValidationFailed, nil)
}

func OutOfStock(message string) *Error {
	return New(message, CodeOutOfStock, nil)
}

func AlreadyUsed(message string) *Error {
	return New(message, CodeAlreadyUsed, nil)
}

func Expired(message string) *Error {
	return New(message, CodeExpired, nil)
}

func WrongEvent(message string) *Error {
	return New(message, CodeWrongEvent, nil)
}

func TicketCancelled(message string) *Error {
	return New(message, CodeTicketCancelled, nil)
}

// Internal wraps storage or infrastructure failures. These are kept distinct
// from business codes so callers never treat them as rule violations.
func Internal(message string, details error) *Error {
	return New(message, CodeInternal, details)
}

// CodeOf extracts the code from err, or CodeInternal for untyped errors.
func CodeOf(err error) Code {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code Code) bool {
	return CodeOf(err) == code
}

// HTTPStatus maps an error code to the HTTP status returned to callers.
func HTTPStatus(code Code) int {
	switch code {
	case CodeNotFound:
		return fiber.StatusNotFound
	case CodeForbidden:
		return fiber.StatusForbidden
	case CodeInvalidTransition, CodeImmutable, CodePolicyViolation:
		return fiber.StatusUnprocessableEntity
	case CodeConflict, CodeDuplicateRegistration, CodeOutOfStock, CodeAlreadyUsed:
		return fiber.StatusConflict
	case CodeValidationFailed:
		return fiber.StatusBadRequest
	case CodeExpired, CodeWrongEvent, CodeTicketCancelled:
		return fiber.StatusUnprocessableEntity
	default:
		return fiber.StatusInternalServerError
	}
}
