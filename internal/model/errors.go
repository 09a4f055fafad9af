package model

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes domain errors.
type ErrorCode string

const (
	// ErrCodeNotFound: a referenced component, cart line or remote document is absent.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// ErrCodeValidation: malformed input fields. No state was changed.
	ErrCodeValidation ErrorCode = "VALIDATION"

	// ErrCodeInsufficientStock: requested quantity exceeds live stock.
	ErrCodeInsufficientStock ErrorCode = "INSUFFICIENT_STOCK"

	// ErrCodeCheckoutFailed: commit hit an inconsistency and was rolled back.
	ErrCodeCheckoutFailed ErrorCode = "CHECKOUT_FAILED"

	// ErrCodeImportFormat: a backup document failed to parse or validate.
	ErrCodeImportFormat ErrorCode = "IMPORT_FORMAT"

	// ErrCodeSync: network, auth or remote failure. Never fatal.
	ErrCodeSync ErrorCode = "SYNC"
)

// Error is a domain error. Entity names the offending record (a component
// name or id, a cart line, a document id) so that a single notification
// line can tell the user what went wrong.
type Error struct {
	Code    ErrorCode
	Message string
	Entity  string
	Details map[string]string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Entity != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Entity)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

// NotFound creates an ErrCodeNotFound error for entity.
func NotFound(entity, format string, args ...any) *Error {
	return &Error{Code: ErrCodeNotFound, Entity: entity, Message: fmt.Sprintf(format, args...)}
}

// Validation creates an ErrCodeValidation error for entity.
func Validation(entity, format string, args ...any) *Error {
	return &Error{Code: ErrCodeValidation, Entity: entity, Message: fmt.Sprintf(format, args...)}
}

// InsufficientStock creates an ErrCodeInsufficientStock error naming the
// component and the requested/available quantities.
func InsufficientStock(entity string, requested, available int) *Error {
	return &Error{
		Code:    ErrCodeInsufficientStock,
		Entity:  entity,
		Message: fmt.Sprintf("requested %d, only %d in stock", requested, available),
		Details: map[string]string{
			"requested": fmt.Sprintf("%d", requested),
			"available": fmt.Sprintf("%d", available),
		},
	}
}

// CheckoutFailed wraps cause in an ErrCodeCheckoutFailed error.
func CheckoutFailed(entity string, cause error) *Error {
	return &Error{
		Code:    ErrCodeCheckoutFailed,
		Entity:  entity,
		Message: "checkout rolled back",
		Err:     cause,
	}
}

// ImportFormat wraps cause in an ErrCodeImportFormat error.
func ImportFormat(entity string, cause error) *Error {
	return &Error{
		Code:    ErrCodeImportFormat,
		Entity:  entity,
		Message: "invalid backup document",
		Err:     cause,
	}
}

// SyncFailed wraps cause in an ErrCodeSync error.
func SyncFailed(entity, op string, cause error) *Error {
	return &Error{
		Code:    ErrCodeSync,
		Entity:  entity,
		Message: op + " failed",
		Err:     cause,
	}
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsNotFound reports whether err is an ErrCodeNotFound domain error.
func IsNotFound(err error) bool { return CodeOf(err) == ErrCodeNotFound }

// IsValidation reports whether err is an ErrCodeValidation domain error.
func IsValidation(err error) bool { return CodeOf(err) == ErrCodeValidation }

// IsInsufficientStock reports whether err is an ErrCodeInsufficientStock domain error.
func IsInsufficientStock(err error) bool { return CodeOf(err) == ErrCodeInsufficientStock }

// IsCheckoutFailed reports whether err is an ErrCodeCheckoutFailed domain error.
func IsCheckoutFailed(err error) bool { return CodeOf(err) == ErrCodeCheckoutFailed }

// IsImportFormat reports whether err is an ErrCodeImportFormat domain error.
func IsImportFormat(err error) bool { return CodeOf(err) == ErrCodeImportFormat }

// IsSync reports whether err is an ErrCodeSync domain error.
func IsSync(err error) bool { return CodeOf(err) == ErrCodeSync }
