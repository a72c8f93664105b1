// Package apperr classifies domain failures so handlers can map them to
// status codes and a structured envelope.
package apperr

import (
	"errors"
	"fmt"

	"eventos-backend/internal/models"
)

// Kind is the class of a failure
type Kind string

const (
	KindValidation     Kind = "validation"
	KindNotFound       Kind = "not_found"
	KindConflict       Kind = "conflict"
	KindInfrastructure Kind = "infrastructure"
)

// Error is a classified failure with optional per-item detail
type Error struct {
	Kind    Kind
	Message string
	// Details lists every product that failed a stock check
	Details []models.StockShortage
	// Count is the number of dependents blocking a conflict
	Count int
	Err   error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message == "" {
		return e.Err.Error()
	}
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// ErrInsufficientStock is matched by every stock shortage error
var ErrInsufficientStock = errors.New("stock insuficiente")

func Validation(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

func Validationf(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// WrapValidation classifies err as a validation failure, keeping it reachable via errors.Is
func WrapValidation(err error, msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg, Err: err}
}

func NotFound(entity string, id int) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("%s %d no encontrado", entity, id)}
}

func NotFoundMsg(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

func Conflict(msg string, count int) *Error {
	return &Error{Kind: KindConflict, Message: msg, Count: count}
}

func Infrastructure(err error) *Error {
	return &Error{Kind: KindInfrastructure, Message: "error interno", Err: err}
}

// InsufficientStock reports every shortage in one validation error
func InsufficientStock(shortages []models.StockShortage) *Error {
	msg := fmt.Sprintf("stock insuficiente para %d producto(s)", len(shortages))
	if len(shortages) == 1 {
		s := shortages[0]
		msg = fmt.Sprintf("stock insuficiente para %s: requerido %d, disponible %d", s.Nombre, s.Requerido, s.Disponible)
	}
	return &Error{Kind: KindValidation, Message: msg, Details: shortages, Err: ErrInsufficientStock}
}

// KindOf returns the kind of err; unclassified errors are infrastructure
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInfrastructure
}

// As extracts the classified error, if any
func As(err error) (*Error, bool) {
	var ae *Error
	ok := errors.As(err, &ae)
	return ae, ok
}

// Is reports whether err is classified as kind
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
