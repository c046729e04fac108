package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for the HTTP boundary and for callers that
// branch on failure mode instead of message text.
type Kind string

const (
	KindValidation          Kind = "VALIDATION"
	KindNotFound            Kind = "NOT_FOUND"
	KindInsufficientStock   Kind = "INSUFFICIENT_STOCK"
	KindOutOfStock          Kind = "OUT_OF_STOCK"
	KindQuantityUnavailable Kind = "QUANTITY_UNAVAILABLE"
	KindEmptyCart           Kind = "EMPTY_CART"
	KindInvalidPayment      Kind = "INVALID_PAYMENT"
	KindInternal            Kind = "INTERNAL"
)

// Error is a classified domain error.
type Error struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	err     error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.err
}

// New creates a classified error with a formatted message.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies an underlying error.
func Wrap(kind Kind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), err: err}
}

func Validation(format string, args ...interface{}) *Error {
	return New(KindValidation, format, args...)
}

func NotFound(format string, args ...interface{}) *Error {
	return New(KindNotFound, format, args...)
}

func InsufficientStock(format string, args ...interface{}) *Error {
	return New(KindInsufficientStock, format, args...)
}

func OutOfStock(format string, args ...interface{}) *Error {
	return New(KindOutOfStock, format, args...)
}

func QuantityUnavailable(format string, args ...interface{}) *Error {
	return New(KindQuantityUnavailable, format, args...)
}

func EmptyCart(format string, args ...interface{}) *Error {
	return New(KindEmptyCart, format, args...)
}

func InvalidPayment(format string, args ...interface{}) *Error {
	return New(KindInvalidPayment, format, args...)
}

func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: "internal error", err: err}
}

// KindOf returns the Kind of err, or KindInternal when err carries no
// classification.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether err is classified as kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
