package services

import (
	"errors"
	"fmt"

	"tesoro/internal/core"
	"tesoro/internal/repository"
)

var (
	// ErrValidation matches every *ValidationError.
	ErrValidation = errors.New("validation failed")
	// ErrExportUnavailable is returned when no message broker is configured.
	ErrExportUnavailable = errors.New("export is not available")
)

// ValidationError reports a rejected input field.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func invalid(field string, err error) error {
	return &ValidationError{Field: field, Err: err}
}

// NotFoundError carries a user-facing message for a missing resource. It
// unwraps to repository.ErrNotFound or core.ErrEmptyExpenseSet.
type NotFoundError struct {
	msg string
	err error
}

func (e *NotFoundError) Error() string { return e.msg }

func (e *NotFoundError) Unwrap() error { return e.err }

func listNotFound(id core.ListID) error {
	return &NotFoundError{msg: fmt.Sprintf("Expenses list with ID %d not found", id), err: repository.ErrNotFound}
}

func expenseNotFound(id core.ExpenseID) error {
	return &NotFoundError{msg: fmt.Sprintf("Expense with ID %d not found", id), err: repository.ErrNotFound}
}

func noExpenses(id core.ListID) error {
	return &NotFoundError{
		msg: fmt.Sprintf("Could not find any expenses for the expenses list with ID %d", id),
		err: core.ErrEmptyExpenseSet,
	}
}

// IsNotFound reports whether err means the requested resource does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound) || errors.Is(err, core.ErrEmptyExpenseSet)
}
