package utils

import (
	"errors"
	"fmt"
)

// ErrorKind is the stable machine-readable classification carried by every
// domain error crossing the HTTP boundary.
type ErrorKind string

const (
	ErrorKindValidation        ErrorKind = "validation"
	ErrorKindNotFound          ErrorKind = "not_found"
	ErrorKindInsufficientStock ErrorKind = "insufficient_stock"
	ErrorKindConflict          ErrorKind = "conflict"
	ErrorKindUnauthorized      ErrorKind = "unauthorized"
)

type DomainError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

func NewValidationError(format string, args ...any) *DomainError {
	return &DomainError{Kind: ErrorKindValidation, Message: fmt.Sprintf(format, args...)}
}

func NewNotFoundError(format string, args ...any) *DomainError {
	return &DomainError{Kind: ErrorKindNotFound, Message: fmt.Sprintf(format, args...)}
}

func NewInsufficientStockError(productName string, available, requested string) *DomainError {
	return &DomainError{
		Kind:    ErrorKindInsufficientStock,
		Message: fmt.Sprintf("insufficient stock for %s (available=%s, requested=%s)", productName, available, requested),
	}
}

func NewConflictError(format string, args ...any) *DomainError {
	return &DomainError{Kind: ErrorKindConflict, Message: fmt.Sprintf(format, args...)}
}

func NewUnauthorizedError(format string, args ...any) *DomainError {
	return &DomainError{Kind: ErrorKindUnauthorized, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the error's domain kind, or "" for non-domain errors.
func KindOf(err error) ErrorKind {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}

// ErrorRecordNotFound is the shared sentinel for lookups scoped by business_id.
var ErrorRecordNotFound = &DomainError{Kind: ErrorKindNotFound, Message: "record not found"}

func ErrorPanic(err error) {
	if err != nil {
		panic(err)
	}
}
