package domain

import (
	"errors"
	"fmt"
)

// Sentinels para errors.Is. Los tipos concretos de abajo las envuelven.
var (
	ErrInsufficientData = errors.New("insufficient data")
	ErrInvalidInput     = errors.New("invalid input")
)

// InsufficientDataError indica que la serie es demasiado corta para la operación.
// Es un error estructural del llamador, no una condición de mercado.
type InsufficientDataError struct {
	Op   string
	Need int
	Got  int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("%s: insufficient data: need at least %d samples, got %d", e.Op, e.Need, e.Got)
}

// Is permite errors.Is(err, ErrInsufficientData).
func (e *InsufficientDataError) Is(target error) bool {
	return target == ErrInsufficientData
}

// InvalidInputError indica una violación de precondición: longitudes distintas,
// fechas no monótonas, precios no positivos o parámetros fuera de rango.
type InvalidInputError struct {
	Op     string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("%s: invalid input: %s", e.Op, e.Reason)
}

// Is permite errors.Is(err, ErrInvalidInput).
func (e *InvalidInputError) Is(target error) bool {
	return target == ErrInvalidInput
}

// Insufficient construye un *InsufficientDataError.
func Insufficient(op string, need, got int) error {
	return &InsufficientDataError{Op: op, Need: need, Got: got}
}

// Invalid construye un *InvalidInputError con un mensaje formateado.
func Invalid(op, format string, args ...any) error {
	return &InvalidInputError{Op: op, Reason: fmt.Sprintf(format, args...)}
}
